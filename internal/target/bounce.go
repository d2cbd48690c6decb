package target

import (
	"fmt"

	"signal-engine/internal/signal"
)

const (
	// counterTrendReduction shrinks counter-trend bounce targets by 25%.
	counterTrendReduction = 0.25

	// trailEMAPeriod is the short EMA consulted for trailing decisions.
	trailEMAPeriod = 9
)

// BounceCalculator computes bounce-play targets, the stop-distance offset by
// ATR magnitude, and the EMA-cross trailing override.
type BounceCalculator struct{}

// NewBounceCalculator creates a BounceCalculator.
func NewBounceCalculator() *BounceCalculator {
	return &BounceCalculator{}
}

// StopOffset returns the bounce stop-distance multiplier for the given ATR
// percent. High ATR widens the stop so ordinary wicks do not trigger an
// exit; low ATR tightens it.
func (b *BounceCalculator) StopOffset(atrPercent float64) (float64, string) {
	switch {
	case atrPercent > 4.0:
		return 1.3, "high ATR, stop widened to survive wicks"
	case atrPercent > 2.5:
		return 1.15, "elevated ATR, stop widened"
	case atrPercent > 0 && atrPercent < 1.0:
		return 0.85, "low ATR, stop tightened"
	default:
		return 1.0, "ATR in normal range, no offset"
	}
}

// Target computes the bounce target. Bounce strength (0..1) scales the
// reward multiple between 1.5x and 2.5x the stop distance; the first
// opposing level caps the result. A bounce fighting the daily trend is
// flagged counter-trend and its target reduced by 25% here.
func (b *BounceCalculator) Target(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot, stopDistance, bounceStrength float64) (float64, bool, string) {
	if bounceStrength < 0 {
		bounceStrength = 0
	}
	if bounceStrength > 1 {
		bounceStrength = 1
	}

	multiple := 1.5 + bounceStrength
	reason := fmt.Sprintf("bounce strength %.2f -> %.2fx stop distance", bounceStrength, multiple)

	short := sig.Signal.IsShort()
	move := stopDistance * multiple

	counterTrend := false
	if snapshot != nil {
		with := "bullish"
		if short {
			with = "bearish"
		}
		if snapshot.Trend.Daily != "" && snapshot.Trend.Daily != "neutral" && snapshot.Trend.Daily != with {
			counterTrend = true
			move *= 1 - counterTrendReduction
			reason += fmt.Sprintf(", counter-trend vs %s daily, target reduced %.0f%%", snapshot.Trend.Daily, counterTrendReduction*100)
		}
	}

	targetPrice := sig.EntryPrice + move
	if short {
		targetPrice = sig.EntryPrice - move
	}

	if snapshot != nil {
		if short {
			if sup := snapshot.NearestSupport(sig.EntryPrice); sup > 0 && targetPrice < sup {
				targetPrice = sup
				reason += fmt.Sprintf(", capped at support %.4f", sup)
			}
		} else {
			if res := snapshot.NearestResistance(sig.EntryPrice); res > 0 && targetPrice > res {
				targetPrice = res
				reason += fmt.Sprintf(", capped at resistance %.4f", res)
			}
		}
	}

	return targetPrice, counterTrend, reason
}

// Trail overrides the target based on short-EMA cross behaviour in the
// recent close history. A bounce still riding the favorable side of the EMA
// gets 10% more room; a close back across the EMA pulls the target 25%
// closer to entry to lock the move in.
func (b *BounceCalculator) Trail(sig signal.ProposedSignal, closes []float64, targetPrice float64) (float64, bool, string) {
	if len(closes) < trailEMAPeriod+3 || targetPrice <= 0 || sig.EntryPrice <= 0 {
		return targetPrice, false, ""
	}

	ema := emaSeries(closes, trailEMAPeriod)
	short := sig.Signal.IsShort()

	favorable := func(i int) bool {
		if short {
			return closes[i] < ema[i]
		}
		return closes[i] > ema[i]
	}

	last := len(closes) - 1

	// Latest close crossed back over the EMA: momentum stalled.
	if !favorable(last) && favorable(last-1) {
		move := (targetPrice - sig.EntryPrice) * 0.75
		return sig.EntryPrice + move, true, fmt.Sprintf("close crossed EMA%d against the bounce, target pulled 25%% in", trailEMAPeriod)
	}

	// Three consecutive favorable closes: let the move run.
	if favorable(last) && favorable(last-1) && favorable(last-2) {
		move := (targetPrice - sig.EntryPrice) * 1.10
		return sig.EntryPrice + move, true, fmt.Sprintf("three closes riding EMA%d, target extended 10%%", trailEMAPeriod)
	}

	return targetPrice, false, ""
}

// emaSeries returns the EMA of the series, seeded with the first value.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	k := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}
