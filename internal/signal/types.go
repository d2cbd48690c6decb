package signal

import "math"

// Direction is the action proposed by the AI for one asset.
type Direction string

const (
	DirectionLong  Direction = "buy_to_enter"
	DirectionShort Direction = "sell_to_enter"
	DirectionAdd   Direction = "add"
	DirectionHold  Direction = "hold"
	DirectionExit  Direction = "exit"
)

// IsEntry reports whether the direction opens or increases exposure and
// therefore needs stop/target/quantity parameterization.
func (d Direction) IsEntry() bool {
	return d == DirectionLong || d == DirectionShort || d == DirectionAdd
}

// IsShort reports whether the direction profits from falling prices.
func (d Direction) IsShort() bool {
	return d == DirectionShort
}

// DefaultConfidence is the admission floor applied when the AI omitted or
// mangled the confidence field. Downstream filtering drops anything below
// 60%, so defaulting to 0.5 would silently discard otherwise valid signals.
const DefaultConfidence = 0.60

// ProposedSignal is one AI trade idea as it moves through the finalization
// pipeline. Stages take it by value and return an updated copy; the caller's
// record is never mutated.
type ProposedSignal struct {
	SignalID string    `json:"signal_id"`
	Coin     string    `json:"coin"`
	Signal   Direction `json:"signal"`

	EntryPrice   float64 `json:"entry_price,omitempty"`
	StopLoss     float64 `json:"stop_loss,omitempty"`
	ProfitTarget float64 `json:"profit_target,omitempty"`
	Confidence   float64 `json:"confidence"`

	Justification         string `json:"justification,omitempty"`
	InvalidationCondition string `json:"invalidation_condition,omitempty"`

	// Bounce variant: short-term reversal play with its own stop/target math.
	BounceMode     bool    `json:"bounce_mode,omitempty"`
	BounceStrength float64 `json:"bounce_strength,omitempty"`

	// Contrarian flags halve the risk budget and raise the minimum R:R.
	ContrarianPlay     bool `json:"contrarian_play,omitempty"`
	OversoldContrarian bool `json:"oversold_contrarian,omitempty"`

	// Populated by the pipeline.
	Quantity        float64 `json:"quantity,omitempty"`
	Leverage        int     `json:"leverage,omitempty"`
	StopDistance    float64 `json:"stop_distance,omitempty"`
	RiskUSD         float64 `json:"risk_usd,omitempty"`
	RiskPercent     float64 `json:"risk_percent,omitempty"`
	RiskRewardRatio float64 `json:"risk_reward_ratio,omitempty"`

	InvalidationAutoGenerated bool `json:"invalidation_auto_generated,omitempty"`

	// CounterTrendPenalty is recorded when the bounce target fights the daily
	// trend. It is metadata only and is never subtracted from Confidence.
	CounterTrendPenalty float64 `json:"counter_trend_penalty,omitempty"`

	StopOffsetMultiplier float64 `json:"stop_offset_multiplier,omitempty"`
	TrailingApplied      bool    `json:"trailing_applied,omitempty"`
	OriginalTarget       float64 `json:"original_target,omitempty"`

	// Diagnostics accumulates human-readable notes about every repair,
	// default, and correction applied along the way.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// IsContrarian reports whether either contrarian flag is set.
func (s ProposedSignal) IsContrarian() bool {
	return s.ContrarianPlay || s.OversoldContrarian
}

// WithDiagnostic returns a copy of the signal with a note appended.
func (s ProposedSignal) WithDiagnostic(note string) ProposedSignal {
	notes := make([]string, 0, len(s.Diagnostics)+1)
	notes = append(notes, s.Diagnostics...)
	notes = append(notes, note)
	s.Diagnostics = notes
	return s
}

// TrendAlignment holds the precomputed daily/weekly trend labels.
type TrendAlignment struct {
	Daily   string `json:"daily"`   // bullish, bearish, neutral
	Weekly  string `json:"weekly"`  // bullish, bearish, neutral
	Aligned bool   `json:"aligned"` // daily and weekly agree
}

// ExternalData carries optional on-chain and sentiment context.
type ExternalData struct {
	Sentiment      string  `json:"sentiment,omitempty"` // bullish, bearish, neutral
	FearGreedIndex float64 `json:"fear_greed_index,omitempty"`
	OnChainTrend   string  `json:"onchain_trend,omitempty"`
}

// IndicatorSnapshot is the read-only per-asset bag of precomputed technical
// values for one evaluation cycle. The pipeline never writes to it.
type IndicatorSnapshot struct {
	Coin         string         `json:"coin"`
	Price        float64        `json:"price"`
	ATR          float64        `json:"atr"`
	Trend        TrendAlignment `json:"trend_alignment"`
	MarketRegime string         `json:"market_regime"` // low, moderate, high, extreme
	Supports     []float64      `json:"support_levels,omitempty"`
	Resistances  []float64      `json:"resistance_levels,omitempty"`
	External     *ExternalData  `json:"external_data,omitempty"`

	// RecentCloses feeds the trailing-target EMA cross check. Oldest first.
	RecentCloses []float64 `json:"recent_closes,omitempty"`
}

// NearestSupport returns the highest support below the given price, or 0.
func (s *IndicatorSnapshot) NearestSupport(price float64) float64 {
	best := 0.0
	for _, lvl := range s.Supports {
		if lvl < price && lvl > best {
			best = lvl
		}
	}
	return best
}

// NearestResistance returns the lowest resistance above the given price, or 0.
func (s *IndicatorSnapshot) NearestResistance(price float64) float64 {
	best := 0.0
	for _, lvl := range s.Resistances {
		if lvl > price && (best == 0 || lvl < best) {
			best = lvl
		}
	}
	return best
}

// AccountState is the read-only account view used for descriptive risk
// percentages. It never gates sizing.
type AccountState struct {
	AccountValue  float64 `json:"account_value"`
	AvailableCash float64 `json:"available_cash"`
}

// Balance returns the preferred denominator for risk-percent reporting:
// account value, then available cash, then a fixed 90 when both are absent.
func (a AccountState) Balance() float64 {
	if a.AccountValue > 0 {
		return a.AccountValue
	}
	if a.AvailableCash > 0 {
		return a.AvailableCash
	}
	return 90
}

// RiskParameters is the ephemeral sizing result computed for one signal.
type RiskParameters struct {
	StopDistance    float64 `json:"stop_distance"`
	RiskUSD         float64 `json:"risk_usd"`
	Quantity        float64 `json:"quantity"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// ValidConfidence reports whether c is a usable probability-like value.
func ValidConfidence(c float64) bool {
	return !math.IsNaN(c) && !math.IsInf(c, 0) && c > 0 && c <= 1
}
