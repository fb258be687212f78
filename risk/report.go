package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RISK REPORT - Renderable summary of portfolio risk and performance
// ═══════════════════════════════════════════════════════════════════════════════

// Assumed payoff profile for the Kelly estimate: winners gain 50%,
// losers stop out at 15%.
var (
	assumedAvgWin  = decimal.NewFromFloat(0.5)
	assumedAvgLoss = decimal.NewFromFloat(0.15)
)

// LimitStatus is either "OK" or "EXCEEDED"
type LimitStatus string

const (
	StatusOK       LimitStatus = "OK"
	StatusExceeded LimitStatus = "EXCEEDED"
)

// Report is a complete risk report. Every field is always populated;
// missing data degrades individual values to zero rather than omitting
// the report.
type Report struct {
	Portfolio types.Portfolio
	Metrics   types.RiskMetrics

	RiskAdjustedReturn decimal.Decimal
	SharpeRatio        decimal.Decimal
	WinRatePct         decimal.Decimal
	KellyPct           decimal.Decimal
	DaysToTarget       decimal.Decimal

	DailyLossStatus     LimitStatus
	DrawdownStatus      LimitStatus
	PortfolioRiskStatus LimitStatus

	SizeRecommendation   string // NORMAL, REDUCE, INCREASE
	SuggestedMaxPosition decimal.Decimal
}

// BuildReport assembles a risk report from fresh metrics
func (m *Monitor) BuildReport() Report {
	metrics := m.Update()
	snapshot := m.ledger.Snapshot()
	dailyTrades := m.DailyTrades()

	// Risk-adjusted return: P/L relative to max drawdown. The simplified
	// Sharpe uses drawdown as the volatility proxy, so it coincides.
	rar := decimal.Zero
	if metrics.MaxDrawdownPct.GreaterThan(decimal.Zero) {
		rar = snapshot.ProfitLossPct.Div(metrics.MaxDrawdownPct)
	}

	winRate := decimal.NewFromFloat(0.5)
	if len(dailyTrades) > 0 {
		wins := 0
		for _, trade := range dailyTrades {
			if trade.Type == types.SignalSell && trade.AmountUSD.GreaterThan(decimal.Zero) {
				wins++
			}
		}
		winRate = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(len(dailyTrades))))
	}

	// Kelly % = W - (1-W)/R, clamped to [0, 0.5]
	winLossRatio := assumedAvgWin.Div(assumedAvgLoss)
	one := decimal.NewFromInt(1)
	kelly := winRate.Sub(one.Sub(winRate).Div(winLossRatio))
	kelly = decimal.Max(decimal.Zero, decimal.Min(kelly, decimal.NewFromFloat(0.5)))

	daysToTarget := decimal.Zero
	if snapshot.TotalValueUSD.GreaterThan(decimal.Zero) && snapshot.TotalValueUSD.LessThan(m.targetValue) {
		growth := metrics.RequiredDailyGrowthPct.Div(hundred).InexactFloat64()
		if growth > 0 {
			ratio := m.targetValue.Div(snapshot.TotalValueUSD).InexactFloat64()
			days := math.Log(ratio) / math.Log(1+growth)
			if !math.IsNaN(days) && !math.IsInf(days, 0) {
				daysToTarget = decimal.NewFromFloat(days)
			}
		}
	}

	report := Report{
		Portfolio: snapshot,
		Metrics:   metrics,

		RiskAdjustedReturn: rar,
		SharpeRatio:        rar,
		WinRatePct:         winRate.Mul(hundred),
		KellyPct:           kelly.Mul(hundred),
		DaysToTarget:       daysToTarget,

		DailyLossStatus:     limitStatus(metrics.DailyPLPct.GreaterThan(m.limits.MaxDailyLoss.Neg().Mul(hundred))),
		DrawdownStatus:      limitStatus(metrics.MaxDrawdownPct.LessThan(m.limits.MaxDrawdown.Mul(hundred))),
		PortfolioRiskStatus: limitStatus(metrics.RiskExposurePct.LessThan(m.limits.MaxPortfolioRisk.Mul(hundred))),

		SizeRecommendation: sizeRecommendation(metrics, snapshot),
	}

	suggestedPct := kelly
	if suggestedPct.LessThanOrEqual(decimal.Zero) {
		suggestedPct = m.limits.MaxRiskPerTrade
	}
	report.SuggestedMaxPosition = snapshot.AvailableCapital.Mul(suggestedPct)

	return report
}

func limitStatus(ok bool) LimitStatus {
	if ok {
		return StatusOK
	}
	return StatusExceeded
}

func sizeRecommendation(metrics types.RiskMetrics, p types.Portfolio) string {
	switch {
	case metrics.RiskExposurePct.GreaterThan(decimal.NewFromInt(40)):
		return "REDUCE"
	case metrics.DailyPLPct.LessThan(decimal.NewFromInt(-10)):
		return "REDUCE"
	case metrics.MaxDrawdownPct.GreaterThan(decimal.NewFromInt(20)):
		return "REDUCE"
	case p.ProfitLossPct.GreaterThan(hundred):
		// Protect profits once capital has doubled
		return "REDUCE"
	case metrics.RequiredDailyGrowthPct.GreaterThan(hundred):
		return "INCREASE"
	default:
		return "NORMAL"
	}
}
