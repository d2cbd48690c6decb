package invalidation

import (
	"strings"
	"testing"

	"signal-engine/internal/signal"
)

func TestGenerateAnchorsOnStopLevel(t *testing.T) {
	g := NewGenerator()

	sig := signal.ProposedSignal{
		Coin:       "BTC",
		Signal:     signal.DirectionLong,
		EntryPrice: 100,
		StopLoss:   96.70,
	}

	got := g.Generate(sig, nil)
	if !strings.HasPrefix(got, "Invalidated if ") {
		t.Errorf("Generate() = %q, want Invalidated if prefix", got)
	}
	if !strings.Contains(got, "BTC closes below") {
		t.Errorf("Generate() = %q, missing stop-level clause", got)
	}
	if !strings.Contains(got, "96.70") {
		t.Errorf("Generate() = %q, missing stop price", got)
	}
}

func TestGenerateWithoutStopUsesEntryOffset(t *testing.T) {
	g := NewGenerator()

	tests := []struct {
		name      string
		direction signal.Direction
		wantVerb  string
		wantLevel string
	}{
		{"long anchors 2% below entry", signal.DirectionLong, "closes below", "98.00"},
		{"short anchors 2% above entry", signal.DirectionShort, "closes above", "102.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := signal.ProposedSignal{Coin: "ETH", Signal: tt.direction, EntryPrice: 100}
			got := g.Generate(sig, nil)
			if !strings.Contains(got, tt.wantVerb) {
				t.Errorf("Generate() = %q, missing %q", got, tt.wantVerb)
			}
			if !strings.Contains(got, tt.wantLevel) {
				t.Errorf("Generate() = %q, missing level %s", got, tt.wantLevel)
			}
		})
	}
}

func TestGenerateEnrichesFromSnapshot(t *testing.T) {
	g := NewGenerator()

	sig := signal.ProposedSignal{
		Coin:       "BTC",
		Signal:     signal.DirectionLong,
		EntryPrice: 100,
		StopLoss:   96.70,
	}
	snapshot := &signal.IndicatorSnapshot{
		Coin:     "BTC",
		Price:    100,
		Supports: []float64{97.5},
		Trend:    signal.TrendAlignment{Daily: "bullish"},
		External: &signal.ExternalData{Sentiment: "bullish"},
	}

	got := g.Generate(sig, snapshot)
	if !strings.Contains(got, "support at") {
		t.Errorf("Generate() = %q, missing support clause", got)
	}
	if !strings.Contains(got, "daily trend flipping from bullish") {
		t.Errorf("Generate() = %q, missing trend clause", got)
	}
	if !strings.Contains(got, "sentiment turning bearish") {
		t.Errorf("Generate() = %q, missing sentiment clause", got)
	}
}

func TestGenerateBareSignalStillAssetSpecific(t *testing.T) {
	g := NewGenerator()

	got := g.Generate(signal.ProposedSignal{Coin: "SOL", Signal: signal.DirectionHold}, nil)
	if !strings.Contains(got, "SOL") {
		t.Errorf("Generate() = %q, not asset specific", got)
	}
	if got == "" {
		t.Error("Generate() returned empty condition")
	}
}
