// Package pipeline runs the signal finalization sequence: normalize,
// synthesize invalidation, size the stop, size the position, compute the
// target, finalize confidence.
package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"signal-engine/internal/confidence"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
)

// Pipeline converts raw AI output plus a market snapshot into a finalized,
// risk-bounded signal. It holds no per-signal state: concurrent calls for
// different assets are safe without locking.
type Pipeline struct {
	normalizer   *signal.Normalizer
	invalidation *signal.InvalidationSynthesizer
	stops        *risk.StopLossSizer
	position     *risk.PositionSizer
	takeProfit   *risk.TakeProfitCalculator
	confidence   *confidence.Finalizer
	logger       zerolog.Logger
}

// New creates a Pipeline from its stage components.
func New(
	normalizer *signal.Normalizer,
	invalidation *signal.InvalidationSynthesizer,
	stops *risk.StopLossSizer,
	position *risk.PositionSizer,
	takeProfit *risk.TakeProfitCalculator,
	confidenceFinalizer *confidence.Finalizer,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer:   normalizer,
		invalidation: invalidation,
		stops:        stops,
		position:     position,
		takeProfit:   takeProfit,
		confidence:   confidenceFinalizer,
		logger:       logger.With().Str("component", "Pipeline").Logger(),
	}
}

// FinalizeJSON parses raw JSON bytes and finalizes the contained signal.
func (p *Pipeline) FinalizeJSON(raw []byte, assetID string, snapshot *signal.IndicatorSnapshot, account signal.AccountState) (signal.ProposedSignal, error) {
	sig, err := p.normalizer.NormalizeJSON(raw, assetID)
	if err != nil {
		return signal.ProposedSignal{}, err
	}
	return p.run(sig, snapshot, account), nil
}

// Finalize runs the full pipeline over an already-parsed AI payload.
// Structurally invalid payloads return signal.ErrInvalidSignalStructure;
// every other degradation is repaired in place and noted in the signal's
// diagnostics.
func (p *Pipeline) Finalize(payload interface{}, assetID string, snapshot *signal.IndicatorSnapshot, account signal.AccountState) (signal.ProposedSignal, error) {
	sig, err := p.normalizer.Normalize(payload, assetID)
	if err != nil {
		return signal.ProposedSignal{}, err
	}
	return p.run(sig, snapshot, account), nil
}

func (p *Pipeline) run(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot, account signal.AccountState) signal.ProposedSignal {
	sig = p.invalidation.Apply(sig, snapshot)

	if sig.Signal.IsEntry() && sig.EntryPrice > 0 {
		sized, ok := p.stops.Apply(sig, snapshot)
		sig = sized
		if ok {
			sig = p.position.Apply(sig, account)
			sig = p.takeProfit.Apply(sig, snapshot)
		}
	}

	sig = p.confidence.Apply(sig, snapshot)

	// Absolute final fallback: if confidence was never touched at all, emit
	// the admission floor rather than the 0.10 scoring floor. The two floors
	// protect against different failure paths and are kept distinct.
	if !signal.ValidConfidence(sig.Confidence) {
		sig.Confidence = signal.DefaultConfidence
		sig = sig.WithDiagnostic(fmt.Sprintf("confidence never set, defaulted to %.2f", signal.DefaultConfidence))
	}

	p.logger.Info().
		Str("coin", sig.Coin).
		Str("direction", string(sig.Signal)).
		Float64("confidence", sig.Confidence).
		Float64("quantity", sig.Quantity).
		Float64("risk_reward", sig.RiskRewardRatio).
		Int("diagnostics", len(sig.Diagnostics)).
		Msg("Signal finalized")

	return sig
}
