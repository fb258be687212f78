package risk

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION SIZING - Bounded capital allocation for new trades
// ═══════════════════════════════════════════════════════════════════════════════
//
// Strategy-level sizing starts from a base % of available capital and
// applies independent multiplicative factors:
//   risk tier × confidence × deadline pressure × progress
// The final percentage never exceeds 50% of available capital.
//
// The risk-adjustment path (Monitor.AdjustPositionSize) uses its own tier
// table. The two tables differ on VERY_HIGH (0.5 vs 0.6) and are kept as
// distinct named policies.
//
// ═══════════════════════════════════════════════════════════════════════════════

// TierPolicy maps risk tiers to sizing multipliers
type TierPolicy map[types.RiskLevel]decimal.Decimal

// Factor returns the multiplier for a tier, defaulting to the VERY_HIGH
// entry for unknown tiers.
func (p TierPolicy) Factor(level types.RiskLevel) decimal.Decimal {
	if f, ok := p[level]; ok {
		return f
	}
	return p[types.RiskVeryHigh]
}

// StrategyTierPolicy is the tier table for strategy-level sizing
var StrategyTierPolicy = TierPolicy{
	types.RiskLow:      decimal.NewFromFloat(1.2),
	types.RiskMedium:   decimal.NewFromFloat(1.0),
	types.RiskHigh:     decimal.NewFromFloat(0.8),
	types.RiskVeryHigh: decimal.NewFromFloat(0.5),
}

// AdjustmentTierPolicy is the tier table for the risk-adjustment path
var AdjustmentTierPolicy = TierPolicy{
	types.RiskLow:      decimal.NewFromFloat(1.2),
	types.RiskMedium:   decimal.NewFromFloat(1.0),
	types.RiskHigh:     decimal.NewFromFloat(0.8),
	types.RiskVeryHigh: decimal.NewFromFloat(0.6),
}

// horizonDays is the canonical challenge horizon used as the reference
// for deadline pressure.
const horizonDays = 10

// Sizer computes strategy-level position sizes
type Sizer struct {
	maxRiskPerTrade decimal.Decimal // base fraction of available capital
	minTradeUSD     decimal.Decimal
	targetValue     decimal.Decimal
	daysRemaining   int
}

// NewSizer creates a position sizer
func NewSizer(maxRiskPerTrade, minTradeUSD, targetValue decimal.Decimal, daysRemaining int) *Sizer {
	return &Sizer{
		maxRiskPerTrade: maxRiskPerTrade,
		minTradeUSD:     minTradeUSD,
		targetValue:     targetValue,
		daysRemaining:   daysRemaining,
	}
}

// Size computes the USD amount to allocate to a new trade. Returns zero
// when capital is insufficient or the amount falls below the minimum
// trade threshold; callers must skip the trade.
func (s *Sizer) Size(signal types.TradingSignal, p types.Portfolio) decimal.Decimal {
	available := p.AvailableCapital
	if available.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	tierFactor := StrategyTierPolicy.Factor(signal.RiskLevel)
	confidenceFactor := signal.Confidence

	// More aggressive as the deadline approaches
	one := decimal.NewFromInt(1)
	pressure := decimal.NewFromInt(int64(horizonDays - s.daysRemaining)).
		Div(decimal.NewFromInt(horizonDays))
	deadlineFactor := one.Add(decimal.Max(decimal.Zero, pressure))

	progressFactor := one
	if s.targetValue.GreaterThan(decimal.Zero) {
		progress := p.TotalValueUSD.Div(s.targetValue)
		if progress.LessThan(decimal.NewFromFloat(0.3)) {
			progressFactor = decimal.NewFromFloat(1.2)
		} else if progress.GreaterThan(decimal.NewFromFloat(0.7)) {
			progressFactor = decimal.NewFromFloat(0.8)
		}
	}

	percentage := s.maxRiskPerTrade.
		Mul(tierFactor).
		Mul(confidenceFactor).
		Mul(deadlineFactor).
		Mul(progressFactor)

	// Never more than half of what is available
	percentage = decimal.Min(percentage, decimal.NewFromFloat(0.5))

	amount := available.Mul(percentage)
	if amount.LessThan(s.minTradeUSD) {
		return decimal.Zero
	}

	log.Debug().
		Str("token", signal.Token.Symbol).
		Str("amount", "$"+amount.StringFixed(2)).
		Str("pct", percentage.Mul(hundred).StringFixed(2)+"%").
		Str("available", "$"+available.StringFixed(2)).
		Msg("Position size calculated")

	return amount
}
