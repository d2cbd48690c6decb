// Package confidence finalizes the probability-like confidence score on a
// signal: delegate scoring, hard-floor clamping, and diagnostics.
package confidence

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
)

// HardFloor is the "something went wrong but don't discard the signal"
// floor applied immediately after scoring. It is deliberately distinct from
// signal.DefaultConfidence (0.60), which is the absolute fallback used only
// when confidence was never computed at all.
const HardFloor = 0.10

// ScoreResult is the structured output of a confidence scorer.
type ScoreResult struct {
	Confidence       float64  `json:"confidence"`
	Score            float64  `json:"score"`
	MaxScore         float64  `json:"max_score"`
	Breakdown        []string `json:"breakdown,omitempty"`
	AutoRejectReason string   `json:"auto_reject_reason,omitempty"`
}

// Scorer computes a confidence score for one signal against its snapshot.
type Scorer interface {
	Score(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) ScoreResult
}

// Finalizer delegates to the scorer and repairs the result into a valid
// range. The delegate's confidence is authoritative; the quality-weighted
// justification path feeds only explanatory text, never the number.
type Finalizer struct {
	scorer Scorer
	logger zerolog.Logger
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(scorer Scorer, logger zerolog.Logger) *Finalizer {
	return &Finalizer{
		scorer: scorer,
		logger: logger.With().Str("component", "ConfidenceFinalizer").Logger(),
	}
}

// Apply finalizes the signal's confidence. Without a snapshot the confidence
// is set to the 0.60 admission floor and scoring is skipped entirely.
func (f *Finalizer) Apply(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) signal.ProposedSignal {
	if snapshot == nil {
		sig.Confidence = signal.DefaultConfidence
		return sig.WithDiagnostic(fmt.Sprintf("no indicator snapshot, confidence defaulted to %.2f", signal.DefaultConfidence))
	}

	result := f.scorer.Score(sig, snapshot)

	conf := result.Confidence
	if math.IsNaN(conf) || math.IsInf(conf, 0) || conf < HardFloor {
		f.logger.Warn().
			Str("coin", sig.Coin).
			Float64("raw_confidence", conf).
			Float64("score", result.Score).
			Float64("max_score", result.MaxScore).
			Str("breakdown", strings.Join(result.Breakdown, "; ")).
			Str("auto_reject", result.AutoRejectReason).
			Msg("Scored confidence below hard floor, clamping")

		note := fmt.Sprintf("confidence %.4f clamped to %.2f floor", conf, HardFloor)
		if result.AutoRejectReason != "" {
			note += " (scorer auto-reject: " + result.AutoRejectReason + ")"
		}
		sig = sig.WithDiagnostic(note)
		for _, line := range result.Breakdown {
			sig = sig.WithDiagnostic("score breakdown: " + line)
		}
		conf = HardFloor
	}
	if conf > 1 {
		sig = sig.WithDiagnostic(fmt.Sprintf("confidence %.4f above 1.0, clamped", conf))
		conf = 1
	}

	sig.Confidence = conf
	return sig
}
