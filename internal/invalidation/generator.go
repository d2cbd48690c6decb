// Package invalidation builds human-readable invalidation conditions for
// signals whose AI-provided condition was missing or boilerplate.
package invalidation

import (
	"fmt"
	"strings"

	"signal-engine/internal/signal"
)

// Generator produces asset-specific invalidation prose from whatever
// indicator context is available. It never fails; with no snapshot it falls
// back to a stop-anchored sentence.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the invalidation condition for one signal.
func (g *Generator) Generate(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) string {
	var parts []string

	short := sig.Signal.IsShort()
	verb := "closes below"
	if short {
		verb = "closes above"
	}

	if sig.StopLoss > 0 {
		parts = append(parts, fmt.Sprintf("%s %s %s (stop level)", sig.Coin, verb, formatPrice(sig.StopLoss)))
	} else if sig.EntryPrice > 0 {
		// No stop yet: anchor on a 2% adverse move from entry.
		level := sig.EntryPrice * 0.98
		if short {
			level = sig.EntryPrice * 1.02
		}
		parts = append(parts, fmt.Sprintf("%s %s %s (2%% beyond entry)", sig.Coin, verb, formatPrice(level)))
	}

	if snapshot != nil {
		if short {
			if res := snapshot.NearestResistance(snapshot.Price); res > 0 {
				parts = append(parts, fmt.Sprintf("a sustained break above resistance at %s", formatPrice(res)))
			}
		} else {
			if sup := snapshot.NearestSupport(snapshot.Price); sup > 0 {
				parts = append(parts, fmt.Sprintf("a sustained break below support at %s", formatPrice(sup)))
			}
		}

		if snapshot.Trend.Daily != "" && snapshot.Trend.Daily != "neutral" {
			parts = append(parts, fmt.Sprintf("the daily trend flipping from %s", snapshot.Trend.Daily))
		}

		if ext := snapshot.External; ext != nil && ext.Sentiment != "" {
			opposing := "bearish"
			if short {
				opposing = "bullish"
			}
			if ext.Sentiment != opposing {
				parts = append(parts, fmt.Sprintf("sentiment turning %s", opposing))
			}
		}
	}

	if len(parts) == 0 {
		// Nothing usable at all; still specific to the asset and thesis.
		return fmt.Sprintf("%s price action contradicts the %s thesis for two consecutive daily closes", sig.Coin, thesisWord(sig.Signal))
	}

	return "Invalidated if " + strings.Join(parts, ", or ")
}

func thesisWord(d signal.Direction) string {
	if d.IsShort() {
		return "short"
	}
	return "long"
}

func formatPrice(p float64) string {
	if p >= 100 {
		return fmt.Sprintf("$%.2f", p)
	}
	return fmt.Sprintf("$%.4f", p)
}
