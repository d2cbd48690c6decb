package confidence

import (
	"fmt"

	"signal-engine/internal/signal"
)

// ConfluenceScorer is the default confidence scorer: a weighted blend of
// trend alignment, volatility regime, structure proximity, external
// sentiment, and the AI's own conviction.
type ConfluenceScorer struct {
	trendWeight     float64
	regimeWeight    float64
	structureWeight float64
	sentimentWeight float64
	aiWeight        float64
}

// NewConfluenceScorer creates a scorer with the default weights.
func NewConfluenceScorer() *ConfluenceScorer {
	return &ConfluenceScorer{
		trendWeight:     0.35,
		regimeWeight:    0.15,
		structureWeight: 0.25,
		sentimentWeight: 0.10,
		aiWeight:        0.15,
	}
}

// Score computes the confluence score for one signal. The returned
// Confidence is Score/MaxScore; an auto-reject reason is attached when the
// setup fights both trend timeframes in a hostile regime.
func (s *ConfluenceScorer) Score(sig signal.ProposedSignal, snapshot *signal.IndicatorSnapshot) ScoreResult {
	result := ScoreResult{MaxScore: 1.0}

	with := "bullish"
	if sig.Signal.IsShort() {
		with = "bearish"
	}

	// 1. Trend alignment.
	trendScore := 0.5
	dailyOpposed := snapshot.Trend.Daily != "" && snapshot.Trend.Daily != "neutral" && snapshot.Trend.Daily != with
	weeklyOpposed := snapshot.Trend.Weekly != "" && snapshot.Trend.Weekly != "neutral" && snapshot.Trend.Weekly != with
	switch {
	case snapshot.Trend.Aligned && snapshot.Trend.Daily == with:
		trendScore = 1.0
		result.Breakdown = append(result.Breakdown, "daily and weekly trend aligned with direction")
	case snapshot.Trend.Daily == with:
		trendScore = 0.75
		result.Breakdown = append(result.Breakdown, "daily trend with direction, weekly neutral or opposed")
	case dailyOpposed && weeklyOpposed:
		trendScore = 0.0
		result.Breakdown = append(result.Breakdown, "both trend timeframes oppose direction")
	case dailyOpposed:
		trendScore = 0.25
		result.Breakdown = append(result.Breakdown, "daily trend opposes direction")
	}

	// 2. Volatility regime.
	regimeScore := 0.5
	switch snapshot.MarketRegime {
	case "low", "moderate":
		regimeScore = 0.8
		result.Breakdown = append(result.Breakdown, snapshot.MarketRegime+" volatility regime")
	case "high":
		regimeScore = 0.4
		result.Breakdown = append(result.Breakdown, "high volatility regime")
	case "extreme":
		regimeScore = 0.1
		result.Breakdown = append(result.Breakdown, "extreme volatility regime")
	}

	// 3. Structure proximity: entries near a protective level score higher.
	structureScore := 0.5
	if sig.EntryPrice > 0 {
		var level float64
		if sig.Signal.IsShort() {
			level = snapshot.NearestResistance(sig.EntryPrice)
		} else {
			level = snapshot.NearestSupport(sig.EntryPrice)
		}
		if level > 0 {
			distPercent := (sig.EntryPrice - level) / sig.EntryPrice * 100
			if sig.Signal.IsShort() {
				distPercent = (level - sig.EntryPrice) / sig.EntryPrice * 100
			}
			switch {
			case distPercent < 1.0:
				structureScore = 1.0
				result.Breakdown = append(result.Breakdown, "entry within 1% of protective level")
			case distPercent < 3.0:
				structureScore = 0.75
				result.Breakdown = append(result.Breakdown, "entry within 3% of protective level")
			default:
				structureScore = 0.4
				result.Breakdown = append(result.Breakdown, fmt.Sprintf("protective level %.1f%% away", distPercent))
			}
		}
	}

	// 4. External sentiment, neutral when absent.
	sentimentScore := 0.5
	if ext := snapshot.External; ext != nil && ext.Sentiment != "" {
		if ext.Sentiment == with {
			sentimentScore = 0.9
			result.Breakdown = append(result.Breakdown, "sentiment supports direction")
		} else if ext.Sentiment != "neutral" {
			sentimentScore = 0.2
			result.Breakdown = append(result.Breakdown, "sentiment opposes direction")
		}
	}

	// 5. The AI's own conviction, taken as-is.
	aiScore := sig.Confidence
	if !signal.ValidConfidence(aiScore) {
		aiScore = 0.5
	}

	result.Score = trendScore*s.trendWeight +
		regimeScore*s.regimeWeight +
		structureScore*s.structureWeight +
		sentimentScore*s.sentimentWeight +
		aiScore*s.aiWeight
	result.Confidence = result.Score / result.MaxScore

	if trendScore == 0 && snapshot.MarketRegime == "extreme" {
		result.AutoRejectReason = "counter-trend setup in extreme volatility regime"
	}

	return result
}
