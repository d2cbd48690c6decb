package risk

import (
	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
)

// PositionConfig holds equal-risk position sizing configuration.
type PositionConfig struct {
	EqualCapitalPerSignal float64 `json:"equal_capital_per_signal"` // Fixed capital slice per open signal
	RiskPercent           float64 `json:"risk_percent"`             // Fraction of the slice at risk. Default 0.02
	Leverage              int     `json:"leverage"`                 // Fixed leverage. Default 10
	ContrarianFactor      float64 `json:"contrarian_factor"`        // Risk budget multiplier for contrarian plays. Default 0.5
}

// DefaultPositionConfig returns the default sizing configuration.
func DefaultPositionConfig() PositionConfig {
	return PositionConfig{
		EqualCapitalPerSignal: 100,
		RiskPercent:           0.02,
		Leverage:              10,
		ContrarianFactor:      0.5,
	}
}

// PositionSizer converts the equal capital slice and stop distance into a
// quantity. This stage cannot fail; a tiny stop distance just produces a
// degenerate quantity.
type PositionSizer struct {
	config PositionConfig
	logger zerolog.Logger
}

// NewPositionSizer creates a PositionSizer.
func NewPositionSizer(config PositionConfig, logger zerolog.Logger) *PositionSizer {
	return &PositionSizer{
		config: config,
		logger: logger.With().Str("component", "PositionSizer").Logger(),
	}
}

// Apply populates RiskUSD, Quantity, Leverage, and the descriptive
// RiskPercent. Requires sig.StopDistance > 0 (established by the stop-loss
// sizer); with no distance the signal is returned unchanged.
func (p *PositionSizer) Apply(sig signal.ProposedSignal, account signal.AccountState) signal.ProposedSignal {
	if sig.StopDistance <= 0 {
		return sig
	}

	riskBudget := p.config.EqualCapitalPerSignal * p.config.RiskPercent
	if sig.IsContrarian() {
		riskBudget *= p.config.ContrarianFactor
		sig = sig.WithDiagnostic("contrarian play, risk budget halved")
	}

	sig.RiskUSD = riskBudget
	sig.Leverage = p.config.Leverage
	sig.Quantity = riskBudget / (sig.StopDistance * float64(p.config.Leverage))

	// Observability only; the denominator never gates sizing.
	sig.RiskPercent = riskBudget / account.Balance() * 100

	p.logger.Debug().
		Str("coin", sig.Coin).
		Float64("risk_usd", sig.RiskUSD).
		Float64("quantity", sig.Quantity).
		Float64("risk_percent", sig.RiskPercent).
		Msg("Position sized")

	return sig
}
