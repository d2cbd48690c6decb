// Package risk converts a proposed signal into risk-bounded trade
// parameters: stop distance, position size, and take-profit target.
package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
)

// BounceStopAdjuster widens or tightens the stop distance for bounce-mode
// signals based on ATR magnitude. Returns the multiplier applied and a
// textual reason.
type BounceStopAdjuster interface {
	StopOffset(atrPercent float64) (multiplier float64, reason string)
}

// StopConfig holds stop-loss sizing configuration.
type StopConfig struct {
	WickBufferPercent float64 `json:"wick_buffer_percent"` // Added to every ATR-derived stop. Default 0.3
	FallbackPercent   float64 `json:"fallback_percent"`    // Flat stop when ATR is unavailable. Default 2.0
}

// DefaultStopConfig returns the default stop-loss configuration.
func DefaultStopConfig() StopConfig {
	return StopConfig{
		WickBufferPercent: 0.3,
		FallbackPercent:   2.0,
	}
}

// StopLossSizer derives a stop distance from volatility with tiered ATR
// multipliers and a wick buffer.
type StopLossSizer struct {
	config StopConfig
	bounce BounceStopAdjuster
	logger zerolog.Logger
}

// NewStopLossSizer creates a StopLossSizer. bounce may be nil to disable
// bounce-mode stop adjustment.
func NewStopLossSizer(config StopConfig, bounce BounceStopAdjuster, logger zerolog.Logger) *StopLossSizer {
	return &StopLossSizer{
		config: config,
		bounce: bounce,
		logger: logger.With().Str("component", "StopLossSizer").Logger(),
	}
}

// atrTier selects the ATR multiplier and minimum stop percent for a
// volatility tier. Higher volatility gets a wider multiplier and floor so
// ordinary wicks do not trigger the stop.
func atrTier(atrPercent float64) (multiplier, floorPercent float64) {
	switch {
	case atrPercent > 4.0:
		return 2.0, 3.0
	case atrPercent > 2.5:
		return 1.75, 2.0
	case atrPercent > 1.5:
		return 1.5, 1.5
	default:
		return 1.5, 1.5
	}
}

// Apply computes the stop-loss price and stop distance for an entry-type
// signal. The second return is false when no usable stop distance could be
// established, in which case sizing must be abandoned and the signal
// returned unsized.
func (s *StopLossSizer) Apply(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) (signal.ProposedSignal, bool) {
	if !sig.Signal.IsEntry() || sig.EntryPrice <= 0 {
		return sig, false
	}

	entry := sig.EntryPrice
	short := sig.Signal.IsShort()

	var atr float64
	if snapshot != nil {
		atr = snapshot.ATR
	}

	var stopFrac float64
	if atr > 0 {
		atrPercent := atr / entry * 100
		multiplier, floorPercent := atrTier(atrPercent)
		stopFrac = math.Max(multiplier*atr/entry, floorPercent/100)
		stopFrac += s.config.WickBufferPercent / 100
		s.logger.Debug().
			Str("coin", sig.Coin).
			Float64("atr_percent", atrPercent).
			Float64("multiplier", multiplier).
			Float64("stop_percent", stopFrac*100).
			Msg("ATR-based stop computed")
	} else {
		stopFrac = s.config.FallbackPercent / 100
		sig = sig.WithDiagnostic(fmt.Sprintf("ATR unavailable, flat %.1f%% stop applied", s.config.FallbackPercent))
	}

	distance := entry * stopFrac

	// Bounce plays post-adjust the distance by ATR magnitude: wider under
	// high ATR to survive wicks, tighter under low ATR.
	if sig.BounceMode && s.bounce != nil {
		atrPercent := 0.0
		if atr > 0 {
			atrPercent = atr / entry * 100
		}
		offset, reason := s.bounce.StopOffset(atrPercent)
		if offset > 0 && offset != 1.0 {
			distance *= offset
			sig.StopOffsetMultiplier = offset
			sig = sig.WithDiagnostic(fmt.Sprintf("bounce stop offset %.2fx: %s", offset, reason))
		}
	}

	if !usableDistance(distance) {
		// Last resort: an AI-provided stop on the correct side of entry.
		if aiDistance := aiStopDistance(sig); usableDistance(aiDistance) {
			sig.StopDistance = aiDistance
			sig = sig.WithDiagnostic("computed stop unusable, AI-provided stop retained")
			return sig, true
		}
		s.logger.Warn().Str("coin", sig.Coin).Msg("No usable stop distance, abandoning sizing")
		return sig.WithDiagnostic("no usable stop distance, signal returned unsized"), false
	}

	if short {
		sig.StopLoss = entry + distance
	} else {
		sig.StopLoss = entry - distance
	}
	sig.StopDistance = distance
	return sig, true
}

// aiStopDistance returns the distance implied by the AI's stop when it sits
// on the correct side of entry, else 0.
func aiStopDistance(sig signal.ProposedSignal) float64 {
	if sig.StopLoss <= 0 || sig.EntryPrice <= 0 {
		return 0
	}
	if sig.Signal.IsShort() {
		if sig.StopLoss > sig.EntryPrice {
			return sig.StopLoss - sig.EntryPrice
		}
		return 0
	}
	if sig.StopLoss < sig.EntryPrice {
		return sig.EntryPrice - sig.StopLoss
	}
	return 0
}

func usableDistance(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
