// Package target provides the default profit-target calculators consumed by
// the take-profit stage: a standard trend/regime-aware calculator and a
// bounce-specific calculator with trailing support.
package target

import (
	"fmt"

	"signal-engine/internal/signal"
)

// DynamicCalculator derives a target from the stop distance, scaled by trend
// alignment and volatility regime.
type DynamicCalculator struct{}

// NewDynamicCalculator creates a DynamicCalculator.
func NewDynamicCalculator() *DynamicCalculator {
	return &DynamicCalculator{}
}

// Target computes the standard profit target as a reward multiple of the
// stop distance. Aligned trends stretch the multiple, high-volatility
// regimes shrink it, and nearby structure caps the result.
func (d *DynamicCalculator) Target(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot, stopDistance float64) (float64, string) {
	multiple := 3.0
	reason := "base 3.0x stop distance"

	short := sig.Signal.IsShort()
	if snapshot != nil {
		with := "bullish"
		if short {
			with = "bearish"
		}
		if snapshot.Trend.Aligned && snapshot.Trend.Daily == with {
			multiple += 0.5
			reason += ", +0.5x aligned trend"
		} else if snapshot.Trend.Daily != "" && snapshot.Trend.Daily != "neutral" && snapshot.Trend.Daily != with {
			multiple -= 0.5
			reason += ", -0.5x opposing daily trend"
		}

		switch snapshot.MarketRegime {
		case "high", "extreme":
			multiple -= 0.5
			reason += ", -0.5x " + snapshot.MarketRegime + " volatility regime"
		case "low":
			multiple += 0.25
			reason += ", +0.25x low volatility regime"
		}
	}

	if multiple < 2.0 {
		multiple = 2.0
	}

	target := sig.EntryPrice + stopDistance*multiple
	if short {
		target = sig.EntryPrice - stopDistance*multiple
	}

	// Respect nearby structure: do not project targets through the first
	// opposing level.
	if snapshot != nil {
		if short {
			if sup := snapshot.NearestSupport(sig.EntryPrice); sup > 0 && target < sup {
				target = sup
				reason += fmt.Sprintf(", capped at support %.4f", sup)
			}
		} else {
			if res := snapshot.NearestResistance(sig.EntryPrice); res > 0 && target > res {
				target = res
				reason += fmt.Sprintf(", capped at resistance %.4f", res)
			}
		}
	}

	return target, reason
}
