package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
)

// TargetCalculator computes the standard trend/regime-aware profit target.
type TargetCalculator interface {
	Target(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot, stopDistance float64) (target float64, reason string)
}

// BounceTargetCalculator computes bounce-specific targets and the optional
// trailing override from recent close history.
type BounceTargetCalculator interface {
	Target(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot, stopDistance, bounceStrength float64) (target float64, counterTrend bool, reason string)
	Trail(sig signal.ProposedSignal, closes []float64, target float64) (trailed float64, applied bool, reason string)
}

// ThresholdSource exposes the configured medium-confidence threshold used by
// the minimum reward:risk rule.
type ThresholdSource interface {
	MediumConfidence() float64
}

// TakeProfitConfig holds take-profit policy constants.
type TakeProfitConfig struct {
	MinAITargetMovePercent float64 `json:"min_ai_target_move_percent"` // AI target acceptance band lower bound. Default 2.0
	MaxAITargetMovePercent float64 `json:"max_ai_target_move_percent"` // Upper bound. Default 5.0
	BaseMinRR              float64 `json:"base_min_rr"`                // Default 2.5
	ElevatedMinRR          float64 `json:"elevated_min_rr"`            // Below medium confidence or contrarian. Default 3.0
	CounterTrendPenalty    float64 `json:"counter_trend_penalty"`      // Recorded, never applied. Default 0.05
}

// DefaultTakeProfitConfig returns the default take-profit configuration.
func DefaultTakeProfitConfig() TakeProfitConfig {
	return TakeProfitConfig{
		MinAITargetMovePercent: 2.0,
		MaxAITargetMovePercent: 5.0,
		BaseMinRR:              2.5,
		ElevatedMinRR:          3.0,
		CounterTrendPenalty:    0.05,
	}
}

const rrTolerance = 1e-9

// TakeProfitCalculator computes and validates the profit target. Pure price
// arithmetic over the given inputs; every branch is total.
type TakeProfitCalculator struct {
	config     TakeProfitConfig
	standard   TargetCalculator
	bounce     BounceTargetCalculator
	thresholds ThresholdSource
	logger     zerolog.Logger
}

// NewTakeProfitCalculator creates a TakeProfitCalculator.
func NewTakeProfitCalculator(
	config TakeProfitConfig,
	standard TargetCalculator,
	bounce BounceTargetCalculator,
	thresholds ThresholdSource,
	logger zerolog.Logger,
) *TakeProfitCalculator {
	return &TakeProfitCalculator{
		config:     config,
		standard:   standard,
		bounce:     bounce,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "TakeProfitCalculator").Logger(),
	}
}

// Apply computes the profit target, applies the AI override rule, enforces
// the minimum reward:risk ratio, and repairs direction errors. Requires
// sig.StopDistance > 0.
func (c *TakeProfitCalculator) Apply(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) signal.ProposedSignal {
	if sig.StopDistance <= 0 || sig.EntryPrice <= 0 {
		return sig
	}

	aiTarget := sig.ProfitTarget
	var target float64

	if sig.BounceMode && sig.BounceStrength > 0 && c.bounce != nil {
		bounceTarget, counterTrend, reason := c.bounce.Target(sig, snapshot, sig.StopDistance, sig.BounceStrength)
		target = bounceTarget
		sig = sig.WithDiagnostic("bounce target: " + reason)
		if counterTrend {
			// The 25% target reduction is already baked into the delegate.
			sig.CounterTrendPenalty = c.config.CounterTrendPenalty
			sig = sig.WithDiagnostic(fmt.Sprintf("counter-trend bounce, %.0f%% confidence penalty recorded", c.config.CounterTrendPenalty*100))
		}

		var closes []float64
		if snapshot != nil {
			closes = snapshot.RecentCloses
		}
		if trailed, applied, trailReason := c.bounce.Trail(sig, closes, target); applied {
			sig.OriginalTarget = target
			sig.TrailingApplied = true
			sig = sig.WithDiagnostic(fmt.Sprintf("trailing target %.4f -> %.4f: %s", target, trailed, trailReason))
			target = trailed
		}
	} else if c.standard != nil {
		stdTarget, reason := c.standard.Target(sig, snapshot, sig.StopDistance)
		target = stdTarget
		sig = sig.WithDiagnostic("dynamic target: " + reason)
	}

	// AI override: accept the AI's target when it is on the correct side and
	// implies a move inside the acceptance band.
	if aiTarget > 0 {
		movePercent := math.Abs(aiTarget-sig.EntryPrice) / sig.EntryPrice * 100
		if c.correctSide(sig, aiTarget) &&
			movePercent >= c.config.MinAITargetMovePercent &&
			movePercent <= c.config.MaxAITargetMovePercent {
			target = aiTarget
			sig = sig.WithDiagnostic(fmt.Sprintf("AI target %.4f accepted (%.2f%% move)", aiTarget, movePercent))
		} else {
			c.logger.Debug().
				Str("coin", sig.Coin).
				Float64("ai_target", aiTarget).
				Float64("move_percent", movePercent).
				Msg("AI target rejected")
			sig = sig.WithDiagnostic(fmt.Sprintf("AI target %.4f rejected (%.2f%% move outside %.1f-%.1f%% band or wrong side)",
				aiTarget, movePercent, c.config.MinAITargetMovePercent, c.config.MaxAITargetMovePercent))
		}
	}

	sig.ProfitTarget = target
	sig = c.EnforceMinRR(sig)

	// Direction sanity: after all adjustments the target must sit strictly on
	// the profitable side of entry, else it is forced from the stop distance.
	if !c.correctSide(sig, sig.ProfitTarget) {
		minRR := c.minRR(sig)
		sig.ProfitTarget = c.targetAt(sig, minRR)
		sig.RiskRewardRatio = minRR
		sig = sig.WithDiagnostic("target on wrong side of entry, forced from stop distance")
	}

	return sig
}

// EnforceMinRR recomputes the reward:risk ratio and raises the target to the
// minimum when it falls short. Idempotent: an already-compliant signal is
// returned with an unchanged target.
func (c *TakeProfitCalculator) EnforceMinRR(sig signal.ProposedSignal) signal.ProposedSignal {
	if sig.StopDistance <= 0 || sig.EntryPrice <= 0 {
		return sig
	}

	minRR := c.minRR(sig)
	rr := math.Abs(sig.ProfitTarget-sig.EntryPrice) / sig.StopDistance
	if rr+rrTolerance < minRR {
		old := sig.ProfitTarget
		sig.ProfitTarget = c.targetAt(sig, minRR)
		rr = math.Abs(sig.ProfitTarget-sig.EntryPrice) / sig.StopDistance
		sig = sig.WithDiagnostic(fmt.Sprintf("R:R %.2f below minimum %.1f, target %.4f -> %.4f", math.Abs(old-sig.EntryPrice)/sig.StopDistance, minRR, old, sig.ProfitTarget))
	}
	sig.RiskRewardRatio = rr
	return sig
}

// minRR returns the minimum reward:risk ratio for this signal: elevated when
// confidence is below the medium threshold or the play is contrarian.
func (c *TakeProfitCalculator) minRR(sig signal.ProposedSignal) float64 {
	medium := 0.75
	if c.thresholds != nil {
		medium = c.thresholds.MediumConfidence()
	}
	if sig.Confidence < medium || sig.IsContrarian() {
		return c.config.ElevatedMinRR
	}
	return c.config.BaseMinRR
}

// targetAt returns entry ± stopDistance*rr with the sign per direction.
func (c *TakeProfitCalculator) targetAt(sig signal.ProposedSignal, rr float64) float64 {
	if sig.Signal.IsShort() {
		return sig.EntryPrice - sig.StopDistance*rr
	}
	return sig.EntryPrice + sig.StopDistance*rr
}

// correctSide reports whether the target is strictly on the profitable side
// of entry for the signal's direction.
func (c *TakeProfitCalculator) correctSide(sig signal.ProposedSignal, target float64) bool {
	if sig.Signal.IsShort() {
		return target > 0 && target < sig.EntryPrice
	}
	return target > sig.EntryPrice
}
