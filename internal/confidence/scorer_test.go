package confidence

import (
	"math"
	"testing"

	"signal-engine/internal/signal"
)

func TestConfluenceScorer(t *testing.T) {
	tests := []struct {
		name           string
		sig            signal.ProposedSignal
		snapshot       *signal.IndicatorSnapshot
		wantConfidence float64
	}{
		{
			name: "full confluence long",
			sig: signal.ProposedSignal{
				Signal:     signal.DirectionLong,
				EntryPrice: 100,
				Confidence: 0.9,
			},
			snapshot: &signal.IndicatorSnapshot{
				Trend:        signal.TrendAlignment{Daily: "bullish", Weekly: "bullish", Aligned: true},
				MarketRegime: "moderate",
				Supports:     []float64{99.5},
				External:     &signal.ExternalData{Sentiment: "bullish"},
			},
			// 1.0*0.35 + 0.8*0.15 + 1.0*0.25 + 0.9*0.10 + 0.9*0.15
			wantConfidence: 0.945,
		},
		{
			name: "everything hostile",
			sig: signal.ProposedSignal{
				Signal:     signal.DirectionLong,
				EntryPrice: 100,
				Confidence: 0.9,
			},
			snapshot: &signal.IndicatorSnapshot{
				Trend:        signal.TrendAlignment{Daily: "bearish", Weekly: "bearish"},
				MarketRegime: "extreme",
				External:     &signal.ExternalData{Sentiment: "bearish"},
			},
			// 0*0.35 + 0.1*0.15 + 0.5*0.25 + 0.2*0.10 + 0.9*0.15
			wantConfidence: 0.295,
		},
		{
			name: "neutral context scores near middle",
			sig: signal.ProposedSignal{
				Signal:     signal.DirectionLong,
				EntryPrice: 100,
				Confidence: 0.5,
			},
			snapshot: &signal.IndicatorSnapshot{},
			// 0.5 across every component
			wantConfidence: 0.5,
		},
		{
			name: "short scored against bearish context",
			sig: signal.ProposedSignal{
				Signal:     signal.DirectionShort,
				EntryPrice: 100,
				Confidence: 0.8,
			},
			snapshot: &signal.IndicatorSnapshot{
				Trend:        signal.TrendAlignment{Daily: "bearish", Weekly: "bearish", Aligned: true},
				MarketRegime: "low",
				Resistances:  []float64{100.5},
			},
			// 1.0*0.35 + 0.8*0.15 + 1.0*0.25 + 0.5*0.10 + 0.8*0.15
			wantConfidence: 0.89,
		},
	}

	scorer := NewConfluenceScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Score(tt.sig, tt.snapshot)
			if math.Abs(result.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestConfluenceScorerAutoReject(t *testing.T) {
	scorer := NewConfluenceScorer()

	sig := signal.ProposedSignal{Signal: signal.DirectionLong, EntryPrice: 100, Confidence: 0.8}

	t.Run("counter-trend in extreme regime", func(t *testing.T) {
		result := scorer.Score(sig, &signal.IndicatorSnapshot{
			Trend:        signal.TrendAlignment{Daily: "bearish", Weekly: "bearish"},
			MarketRegime: "extreme",
		})
		if result.AutoRejectReason == "" {
			t.Error("expected an auto-reject reason")
		}
	})

	t.Run("counter-trend in moderate regime passes", func(t *testing.T) {
		result := scorer.Score(sig, &signal.IndicatorSnapshot{
			Trend:        signal.TrendAlignment{Daily: "bearish", Weekly: "bearish"},
			MarketRegime: "moderate",
		})
		if result.AutoRejectReason != "" {
			t.Errorf("unexpected auto-reject: %q", result.AutoRejectReason)
		}
	})
}
