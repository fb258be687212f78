package risk

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STOP/TARGET LEVELS - Advisory stop-loss and take-profit pricing
// ═══════════════════════════════════════════════════════════════════════════════
//
// Used when opening a new position. Volatility is estimated from 1h/24h
// price-change data (1h preferred), the stop distance is a multiple of
// that volatility, and take-profit targets form a fixed ladder scaled up
// when the deadline or the token demands it.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	defaultVolatility = 0.15
	maxVolatility     = 0.3
	stopMultiple      = 1.5
	maxStopDistance   = 0.2
)

// TakeProfitLevel is one rung of the take-profit ladder
type TakeProfitLevel struct {
	Price   decimal.Decimal
	GainPct decimal.Decimal // percent above entry
	Portion decimal.Decimal // fraction of position to sell
}

var baseTakeProfitLadder = []struct {
	gain    float64 // fraction above entry
	portion float64
}{
	{0.2, 0.3},
	{0.5, 0.3},
	{1.0, 0.2},
	{2.0, 0.2},
}

// EstimateVolatility derives a volatility estimate from a token's price
// change data: hourly change x4 when present, else daily change / 6,
// capped at 30%. Falls back to 15% when neither is available.
func EstimateVolatility(token types.TokenInfo) decimal.Decimal {
	change1h := token.PriceChange1h.Abs()
	change24h := token.PriceChange24h.Abs()

	cap := decimal.NewFromFloat(maxVolatility)

	if change1h.GreaterThan(decimal.Zero) {
		hourly := change1h.Div(hundred)
		return decimal.Min(hourly.Mul(decimal.NewFromInt(4)), cap)
	}
	if change24h.GreaterThan(decimal.Zero) {
		daily := change24h.Div(hundred)
		return decimal.Min(daily.Div(decimal.NewFromInt(6)), cap)
	}
	return decimal.NewFromFloat(defaultVolatility)
}

// OptimalStopLoss recommends a stop-loss price for a new position. The
// stop distance is 1.5x estimated volatility, tightened by 20% when
// portfolio exposure is high or the target is close, capped at 20%.
func OptimalStopLoss(token types.TokenInfo, entryPrice decimal.Decimal, metrics types.RiskMetrics, progress decimal.Decimal) decimal.Decimal {
	volatility := EstimateVolatility(token)

	stopPct := volatility.Mul(decimal.NewFromFloat(stopMultiple))

	if metrics.RiskExposurePct.GreaterThan(decimal.NewFromInt(30)) {
		stopPct = stopPct.Mul(decimal.NewFromFloat(0.8))
	}
	if progress.GreaterThan(decimal.NewFromFloat(0.7)) {
		stopPct = stopPct.Mul(decimal.NewFromFloat(0.8))
	}

	stopPct = decimal.Min(stopPct, decimal.NewFromFloat(maxStopDistance))
	stopPrice := entryPrice.Mul(decimal.NewFromInt(1).Sub(stopPct))

	log.Debug().
		Str("token", token.Symbol).
		Str("stop", stopPrice.String()).
		Str("distance", stopPct.Mul(hundred).StringFixed(2)+"%").
		Msg("Stop loss calculated")

	return stopPrice
}

// TakeProfitLevels builds the take-profit ladder for a new position.
// Targets scale up with required daily growth (capped at 2x) and with
// token volatility (capped at 1.5x); each scaling is independent.
func TakeProfitLevels(token types.TokenInfo, entryPrice decimal.Decimal, metrics types.RiskMetrics) []TakeProfitLevel {
	volatility := EstimateVolatility(token)
	requiredGrowth := metrics.RequiredDailyGrowthPct.Div(hundred)

	levels := make([]TakeProfitLevel, 0, len(baseTakeProfitLadder))
	for _, base := range baseTakeProfitLadder {
		gain := decimal.NewFromFloat(base.gain)

		if requiredGrowth.GreaterThan(decimal.NewFromFloat(0.5)) {
			growthFactor := requiredGrowth.Div(decimal.NewFromFloat(0.5))
			gain = gain.Mul(decimal.Min(growthFactor, decimal.NewFromInt(2)))
		}
		if volatility.GreaterThan(decimal.NewFromFloat(0.2)) {
			volFactor := volatility.Div(decimal.NewFromFloat(0.2))
			gain = gain.Mul(decimal.Min(volFactor, decimal.NewFromFloat(1.5)))
		}

		levels = append(levels, TakeProfitLevel{
			Price:   entryPrice.Mul(decimal.NewFromInt(1).Add(gain)),
			GainPct: gain.Mul(hundred),
			Portion: decimal.NewFromFloat(base.portion),
		})
	}

	return levels
}
