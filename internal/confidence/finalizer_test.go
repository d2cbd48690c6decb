package confidence

import (
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
)

type fixedScorer struct {
	result ScoreResult
}

func (f *fixedScorer) Score(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) ScoreResult {
	return f.result
}

func TestFinalizerClampsToHardFloor(t *testing.T) {
	tests := []struct {
		name   string
		scored float64
		want   float64
	}{
		{"zero score", 0.0, HardFloor},
		{"below floor", 0.04, HardFloor},
		{"negative", -0.3, HardFloor},
		{"NaN", math.NaN(), HardFloor},
		{"positive infinity", math.Inf(1), HardFloor},
		{"above one", 1.4, 1.0},
		{"in range untouched", 0.72, 0.72},
		{"exactly at floor untouched", HardFloor, HardFloor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &fixedScorer{result: ScoreResult{Confidence: tt.scored, MaxScore: 1.0}}
			f := NewFinalizer(scorer, zerolog.Nop())

			sig := signal.ProposedSignal{Coin: "BTC", Signal: signal.DirectionLong, Confidence: 0.8}
			got := f.Apply(sig, &signal.IndicatorSnapshot{})

			if math.Abs(got.Confidence-tt.want) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.want)
			}
		})
	}
}

func TestFinalizerRecordsBreakdownOnClamp(t *testing.T) {
	scorer := &fixedScorer{result: ScoreResult{
		Confidence:       0.0,
		Score:            0.0,
		MaxScore:         1.0,
		Breakdown:        []string{"both trend timeframes oppose direction", "extreme volatility regime"},
		AutoRejectReason: "counter-trend setup in extreme volatility regime",
	}}
	f := NewFinalizer(scorer, zerolog.Nop())

	got := f.Apply(signal.ProposedSignal{Coin: "BTC", Signal: signal.DirectionLong}, &signal.IndicatorSnapshot{})

	if got.Confidence != HardFloor {
		t.Fatalf("Confidence = %v, want %v", got.Confidence, HardFloor)
	}
	joined := strings.Join(got.Diagnostics, "\n")
	if !strings.Contains(joined, "auto-reject") {
		t.Error("auto-reject reason not recorded in diagnostics")
	}
	if !strings.Contains(joined, "oppose direction") {
		t.Error("score breakdown not recorded in diagnostics")
	}
}

func TestFinalizerWithoutSnapshotDefaults(t *testing.T) {
	scorer := &fixedScorer{result: ScoreResult{Confidence: 0.9}}
	f := NewFinalizer(scorer, zerolog.Nop())

	got := f.Apply(signal.ProposedSignal{Coin: "BTC", Confidence: 0.9}, nil)

	// Scoring is skipped entirely; the admission floor applies, not the
	// 0.10 scoring floor.
	if got.Confidence != signal.DefaultConfidence {
		t.Errorf("Confidence = %v, want %v", got.Confidence, signal.DefaultConfidence)
	}
	if len(got.Diagnostics) == 0 {
		t.Error("expected a diagnostic noting the missing snapshot")
	}
}
