package signal

import (
	"strings"

	"github.com/rs/zerolog"
)

// genericPhrases are boilerplate invalidation conditions the AI falls back to
// when it has nothing specific to say. Matched case-insensitively as
// substrings.
var genericPhrases = []string{
	"if trend reverses",
	"if conditions change",
	"if the market turns",
	"if momentum fades",
	"if sentiment shifts",
	"market conditions",
}

// SubstitutionReason says why a synthesized condition replaced the AI's.
type SubstitutionReason string

const (
	SubstitutionMissing SubstitutionReason = "missing"
	SubstitutionGeneric SubstitutionReason = "generic"
)

// InvalidationGenerator produces asset-specific invalidation prose from the
// signal and its indicator snapshot. Implementations must not fail; thin
// indicator data simply yields a lower-quality string.
type InvalidationGenerator interface {
	Generate(sig ProposedSignal, snapshot *IndicatorSnapshot) string
}

// NeedsInvalidation reports whether the condition must be synthesized and,
// when it must, why. Empty, "n/a", and generic boilerplate all trigger
// synthesis; anything specific is left untouched.
func NeedsInvalidation(condition string) (bool, SubstitutionReason) {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" || strings.EqualFold(trimmed, "n/a") || strings.EqualFold(trimmed, "none") {
		return true, SubstitutionMissing
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true, SubstitutionGeneric
		}
	}
	return false, ""
}

// InvalidationSynthesizer ensures every signal carries a specific
// invalidation condition. This stage never fails.
type InvalidationSynthesizer struct {
	generator InvalidationGenerator
	logger    zerolog.Logger
}

// NewInvalidationSynthesizer creates an InvalidationSynthesizer.
func NewInvalidationSynthesizer(generator InvalidationGenerator, logger zerolog.Logger) *InvalidationSynthesizer {
	return &InvalidationSynthesizer{
		generator: generator,
		logger:    logger.With().Str("component", "InvalidationSynthesizer").Logger(),
	}
}

// Apply returns the signal with a specific invalidation condition. An
// already-specific condition is idempotent under re-application.
func (is *InvalidationSynthesizer) Apply(sig ProposedSignal, snapshot *IndicatorSnapshot) ProposedSignal {
	needed, reason := NeedsInvalidation(sig.InvalidationCondition)
	if !needed {
		return sig
	}

	generated := is.generator.Generate(sig, snapshot)
	is.logger.Debug().
		Str("coin", sig.Coin).
		Str("reason", string(reason)).
		Msg("Synthesized invalidation condition")

	sig.InvalidationCondition = generated
	sig.InvalidationAutoGenerated = true
	return sig.WithDiagnostic("invalidation condition synthesized (" + string(reason) + ")")
}
