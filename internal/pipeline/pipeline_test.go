package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"signal-engine/internal/confidence"
	"signal-engine/internal/invalidation"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
	"signal-engine/internal/target"
)

type fixedThresholds struct{}

func (fixedThresholds) MediumConfidence() float64 { return 0.75 }

func newTestPipeline() *Pipeline {
	logger := zerolog.Nop()
	bounce := target.NewBounceCalculator()

	return New(
		signal.NewNormalizer(logger),
		signal.NewInvalidationSynthesizer(invalidation.NewGenerator(), logger),
		risk.NewStopLossSizer(risk.DefaultStopConfig(), bounce, logger),
		risk.NewPositionSizer(risk.DefaultPositionConfig(), logger),
		risk.NewTakeProfitCalculator(risk.DefaultTakeProfitConfig(), target.NewDynamicCalculator(), bounce, fixedThresholds{}, logger),
		confidence.NewFinalizer(confidence.NewConfluenceScorer(), logger),
		logger,
	)
}

func bullishSnapshot() *signal.IndicatorSnapshot {
	return &signal.IndicatorSnapshot{
		Coin:         "BTC",
		Price:        100,
		ATR:          2,
		Trend:        signal.TrendAlignment{Daily: "bullish", Weekly: "bullish", Aligned: true},
		MarketRegime: "moderate",
	}
}

func TestFinalizeLongEntry(t *testing.T) {
	p := newTestPipeline()
	raw := []byte(`{"signals":[{"coin":"BTC","signal":"buy_to_enter","entry_price":100,"confidence":0.8,"invalidation_condition":"if trend reverses"}]}`)

	got, err := p.FinalizeJSON(raw, "BTC", bullishSnapshot(), signal.AccountState{AccountValue: 1000})
	if err != nil {
		t.Fatalf("FinalizeJSON() error = %v", err)
	}

	if math.Abs(got.StopLoss-96.70) > 1e-6 {
		t.Errorf("StopLoss = %.4f, want 96.70", got.StopLoss)
	}
	if math.Abs(got.StopDistance-3.30) > 1e-6 {
		t.Errorf("StopDistance = %.4f, want 3.30", got.StopDistance)
	}
	if got.Leverage != 10 {
		t.Errorf("Leverage = %d, want 10", got.Leverage)
	}
	if math.Abs(got.Quantity-2.0/33.0) > 1e-6 {
		t.Errorf("Quantity = %v, want %v", got.Quantity, 2.0/33.0)
	}
	if got.ProfitTarget <= got.EntryPrice {
		t.Errorf("ProfitTarget = %.4f, want above entry", got.ProfitTarget)
	}
	if got.RiskRewardRatio < 2.5 {
		t.Errorf("RiskRewardRatio = %.4f, want >= 2.5", got.RiskRewardRatio)
	}
	if !got.InvalidationAutoGenerated || got.InvalidationCondition == "if trend reverses" {
		t.Errorf("generic invalidation not replaced: %q", got.InvalidationCondition)
	}
	if !signal.ValidConfidence(got.Confidence) {
		t.Errorf("Confidence = %v, want valid", got.Confidence)
	}
	if got.SignalID == "" {
		t.Error("SignalID not assigned")
	}
}

func TestFinalizeShortEntry(t *testing.T) {
	p := newTestPipeline()
	raw := []byte(`{"coin":"ETH","signal":"sell_to_enter","entry_price":100,"confidence":0.8}`)
	snapshot := &signal.IndicatorSnapshot{
		Coin:         "ETH",
		Price:        100,
		ATR:          2,
		Trend:        signal.TrendAlignment{Daily: "bearish", Weekly: "bearish", Aligned: true},
		MarketRegime: "moderate",
	}

	got, err := p.FinalizeJSON(raw, "ETH", snapshot, signal.AccountState{})
	if err != nil {
		t.Fatalf("FinalizeJSON() error = %v", err)
	}

	if got.StopLoss <= got.EntryPrice {
		t.Errorf("StopLoss = %.4f, want above entry for a short", got.StopLoss)
	}
	if got.ProfitTarget >= got.EntryPrice {
		t.Errorf("ProfitTarget = %.4f, want below entry for a short", got.ProfitTarget)
	}
	if got.RiskRewardRatio < 2.5 {
		t.Errorf("RiskRewardRatio = %.4f, want >= 2.5", got.RiskRewardRatio)
	}
}

func TestFinalizeHoldSkipsSizing(t *testing.T) {
	p := newTestPipeline()
	raw := []byte(`{"coin":"BTC","signal":"hold","confidence":0.7}`)

	got, err := p.FinalizeJSON(raw, "BTC", bullishSnapshot(), signal.AccountState{})
	if err != nil {
		t.Fatalf("FinalizeJSON() error = %v", err)
	}

	if got.Quantity != 0 || got.StopDistance != 0 || got.ProfitTarget != 0 {
		t.Errorf("hold was sized: %+v", got)
	}
	if got.InvalidationCondition == "" {
		t.Error("hold signal missing invalidation condition")
	}
	if !signal.ValidConfidence(got.Confidence) {
		t.Errorf("Confidence = %v, want valid", got.Confidence)
	}
}

func TestFinalizeWithoutSnapshot(t *testing.T) {
	p := newTestPipeline()
	raw := []byte(`{"coin":"BTC","signal":"buy_to_enter","entry_price":100,"confidence":0.8}`)

	got, err := p.FinalizeJSON(raw, "BTC", nil, signal.AccountState{})
	if err != nil {
		t.Fatalf("FinalizeJSON() error = %v", err)
	}

	// Flat fallback stop and the admission-floor confidence.
	if math.Abs(got.StopLoss-98.00) > 1e-6 {
		t.Errorf("StopLoss = %.4f, want 98.00", got.StopLoss)
	}
	if got.Confidence != signal.DefaultConfidence {
		t.Errorf("Confidence = %v, want %v", got.Confidence, signal.DefaultConfidence)
	}
	if got.Quantity == 0 {
		t.Error("entry signal not sized under fallback stop")
	}
}

func TestFinalizeInvalidPayload(t *testing.T) {
	p := newTestPipeline()

	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte(`{{`)},
		{"no direction", []byte(`{"coin":"BTC","price":100}`)},
		{"empty array", []byte(`[]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.FinalizeJSON(tt.raw, "BTC", bullishSnapshot(), signal.AccountState{})
			if !errors.Is(err, signal.ErrInvalidSignalStructure) {
				t.Errorf("error = %v, want ErrInvalidSignalStructure", err)
			}
		})
	}
}

func TestFinalizeContrarianHalvesRisk(t *testing.T) {
	p := newTestPipeline()
	raw := []byte(`{"coin":"BTC","signal":"buy_to_enter","entry_price":100,"confidence":0.8,"contrarian_play":true}`)

	got, err := p.FinalizeJSON(raw, "BTC", bullishSnapshot(), signal.AccountState{})
	if err != nil {
		t.Fatalf("FinalizeJSON() error = %v", err)
	}

	if math.Abs(got.RiskUSD-1.0) > 1e-9 {
		t.Errorf("RiskUSD = %v, want 1.0 (halved)", got.RiskUSD)
	}
	// Contrarian plays carry the elevated 3.0 reward:risk minimum.
	if got.RiskRewardRatio < 3.0 {
		t.Errorf("RiskRewardRatio = %.4f, want >= 3.0", got.RiskRewardRatio)
	}
}

func TestFinalizeSpecificInvalidationKept(t *testing.T) {
	p := newTestPipeline()
	raw := []byte(`{"coin":"BTC","signal":"buy_to_enter","entry_price":100,"confidence":0.8,"invalidation_condition":"Invalidated if BTC closes below 95000 on the 4h"}`)

	got, err := p.FinalizeJSON(raw, "BTC", bullishSnapshot(), signal.AccountState{})
	if err != nil {
		t.Fatalf("FinalizeJSON() error = %v", err)
	}

	if got.InvalidationAutoGenerated {
		t.Error("specific condition was replaced")
	}
	if got.InvalidationCondition != "Invalidated if BTC closes below 95000 on the 4h" {
		t.Errorf("InvalidationCondition = %q", got.InvalidationCondition)
	}
}
