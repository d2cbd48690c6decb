package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidSignalStructure is returned when the raw AI output cannot be
// resolved to a signal-shaped record for the target asset. This is the only
// hard failure in the pipeline; the signal is discarded, not defaulted.
var ErrInvalidSignalStructure = errors.New("invalid signal structure")

// RawPayloadShape classifies the loosely-typed payloads the AI produces.
// The shape is determined once up front instead of probing fields ad hoc.
type RawPayloadShape int

const (
	ShapeUnknown RawPayloadShape = iota
	ShapeDirect                  // object already shaped like a signal
	ShapeDirectNoAsset           // direction present, asset missing
	ShapeNestedSignals           // signals nested under "signals"
	ShapeNestedData              // signals nested under "data"
	ShapeBareArray               // top-level array of signal objects
)

func (s RawPayloadShape) String() string {
	switch s {
	case ShapeDirect:
		return "direct"
	case ShapeDirectNoAsset:
		return "direct_no_asset"
	case ShapeNestedSignals:
		return "nested_signals"
	case ShapeNestedData:
		return "nested_data"
	case ShapeBareArray:
		return "bare_array"
	default:
		return "unknown"
	}
}

var directionKeys = []string{"signal", "direction"}
var assetKeys = []string{"coin", "symbol"}

// Normalizer repairs loosely-typed AI output into a ProposedSignal with a
// guaranteed asset id and a numeric confidence.
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "Normalizer").Logger()}
}

// NormalizeJSON parses raw JSON bytes and normalizes the result.
func (n *Normalizer) NormalizeJSON(raw []byte, assetID string) (ProposedSignal, error) {
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ProposedSignal{}, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidSignalStructure, err)
	}
	return n.Normalize(payload, assetID)
}

// Normalize resolves an already-parsed AI payload to a ProposedSignal for
// assetID. Resolution order: direct signal object, direction-only object,
// then nested collections ("signals", "data", bare array) searched for an
// entry matching assetID with first-entry fallback.
func (n *Normalizer) Normalize(payload interface{}, assetID string) (ProposedSignal, error) {
	shape := detectShape(payload)

	var entry map[string]interface{}
	switch shape {
	case ShapeDirect, ShapeDirectNoAsset:
		entry = payload.(map[string]interface{})
	case ShapeNestedSignals:
		entry = pickEntry(payload.(map[string]interface{})["signals"], assetID)
	case ShapeNestedData:
		entry = pickEntry(payload.(map[string]interface{})["data"], assetID)
	case ShapeBareArray:
		entry = pickEntry(payload, assetID)
	default:
		return ProposedSignal{}, fmt.Errorf("%w: unrecognized payload shape for %s", ErrInvalidSignalStructure, assetID)
	}

	if entry == nil {
		return ProposedSignal{}, fmt.Errorf("%w: no direction-bearing entry found for %s", ErrInvalidSignalStructure, assetID)
	}
	if directionOf(entry) == "" {
		return ProposedSignal{}, fmt.Errorf("%w: entry for %s lacks a direction field", ErrInvalidSignalStructure, assetID)
	}

	sig, diags := n.toSignal(entry, assetID)
	if sig.SignalID == "" {
		sig.SignalID = uuid.New().String()
	}
	for _, d := range diags {
		sig = sig.WithDiagnostic(d)
	}

	n.logger.Debug().
		Str("coin", sig.Coin).
		Str("shape", shape.String()).
		Str("direction", string(sig.Signal)).
		Float64("confidence", sig.Confidence).
		Msg("Normalized raw signal")

	return sig, nil
}

// detectShape classifies the payload exactly once.
func detectShape(payload interface{}) RawPayloadShape {
	switch v := payload.(type) {
	case map[string]interface{}:
		hasDirection := directionOf(v) != ""
		hasAsset := assetOf(v) != ""
		if hasDirection && hasAsset {
			return ShapeDirect
		}
		if hasDirection {
			return ShapeDirectNoAsset
		}
		if _, ok := v["signals"]; ok {
			return ShapeNestedSignals
		}
		if _, ok := v["data"]; ok {
			return ShapeNestedData
		}
		return ShapeUnknown
	case []interface{}:
		return ShapeBareArray
	default:
		return ShapeUnknown
	}
}

// pickEntry searches a nested collection for the entry matching assetID,
// falling back to the first direction-bearing entry.
func pickEntry(collection interface{}, assetID string) map[string]interface{} {
	var items []interface{}
	switch v := collection.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		// Some payloads key signals by asset id directly.
		if m, ok := v[assetID].(map[string]interface{}); ok && directionOf(m) != "" {
			return m
		}
		for _, item := range v {
			items = append(items, item)
		}
	default:
		return nil
	}

	var first map[string]interface{}
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok || directionOf(m) == "" {
			continue
		}
		if strings.EqualFold(assetOf(m), assetID) {
			return m
		}
		if first == nil {
			first = m
		}
	}
	return first
}

func directionOf(m map[string]interface{}) string {
	for _, key := range directionKeys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func assetOf(m map[string]interface{}) string {
	for _, key := range assetKeys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// toSignal converts the resolved entry into a typed ProposedSignal, stamping
// the asset id and repairing confidence to the admission floor.
func (n *Normalizer) toSignal(entry map[string]interface{}, assetID string) (ProposedSignal, []string) {
	var diags []string

	// Work on a copy so the caller's payload is left untouched.
	fields := make(map[string]interface{}, len(entry)+2)
	for k, v := range entry {
		fields[k] = v
	}
	// Mirror the direction onto the canonical key so the struct decode sees it.
	fields["signal"] = directionOf(entry)
	fields["coin"] = assetID

	raw, _ := json.Marshal(fields)
	var sig ProposedSignal
	if err := json.Unmarshal(raw, &sig); err != nil {
		// Field-by-field decode failures (e.g. string prices) degrade to the
		// fields that did decode; the direction and coin are already safe.
		diags = append(diags, fmt.Sprintf("partial decode of raw signal: %v", err))
		sig.Coin = assetID
		sig.Signal = Direction(directionOf(entry))
	}

	conf, ok := entry["confidence"].(float64)
	switch {
	case !ok:
		diags = append(diags, fmt.Sprintf("confidence missing or non-numeric, defaulted to %.2f", DefaultConfidence))
		sig.Confidence = DefaultConfidence
	case !ValidConfidence(conf):
		n.logger.Warn().
			Str("coin", assetID).
			Float64("confidence", conf).
			Msg("Confidence outside [0,1], resetting to floor")
		diags = append(diags, fmt.Sprintf("confidence %.4f outside [0,1], reset to %.2f", conf, DefaultConfidence))
		sig.Confidence = DefaultConfidence
	default:
		sig.Confidence = conf
	}

	return sig, diags
}
