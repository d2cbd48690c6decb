// Package snapshot provides keyed lookup of per-asset indicator snapshots.
// The indicator aggregator publishes a snapshot per evaluation cycle; the
// pipeline consumes it read-only and it is discarded afterwards.
package snapshot

import (
	"context"
	"strings"

	"signal-engine/internal/signal"
)

// Provider resolves the indicator snapshot for one asset. A false return
// means no snapshot is available; the pipeline degrades rather than fails.
type Provider interface {
	Lookup(ctx context.Context, assetID string) (*signal.IndicatorSnapshot, bool)
}

// MapProvider serves snapshots from a dictionary keyed by asset id.
type MapProvider struct {
	snapshots map[string]*signal.IndicatorSnapshot
}

// FromMap creates a MapProvider. Keys are matched case-insensitively.
func FromMap(snapshots map[string]*signal.IndicatorSnapshot) *MapProvider {
	normalized := make(map[string]*signal.IndicatorSnapshot, len(snapshots))
	for coin, snap := range snapshots {
		normalized[strings.ToUpper(coin)] = snap
	}
	return &MapProvider{snapshots: normalized}
}

// Lookup implements Provider.
func (m *MapProvider) Lookup(_ context.Context, assetID string) (*signal.IndicatorSnapshot, bool) {
	snap, ok := m.snapshots[strings.ToUpper(assetID)]
	return snap, ok
}

// Pair is one (asset, snapshot) element of an ordered collection.
type Pair struct {
	Coin     string                    `json:"coin"`
	Snapshot *signal.IndicatorSnapshot `json:"snapshot"`
}

// PairListProvider serves snapshots from an ordered-pair collection, the
// second shape the upstream aggregator emits.
type PairListProvider struct {
	pairs []Pair
}

// FromPairs creates a PairListProvider.
func FromPairs(pairs []Pair) *PairListProvider {
	return &PairListProvider{pairs: pairs}
}

// Lookup implements Provider. The first matching pair wins.
func (p *PairListProvider) Lookup(_ context.Context, assetID string) (*signal.IndicatorSnapshot, bool) {
	for _, pair := range p.pairs {
		if strings.EqualFold(pair.Coin, assetID) {
			return pair.Snapshot, true
		}
	}
	return nil, false
}
