package risk

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RISK MONITOR - Rolling risk metrics and limit enforcement
// ═══════════════════════════════════════════════════════════════════════════════
//
// Responsibilities:
// 1. Track daily-high and all-time-high portfolio value
// 2. Compute drawdowns, daily P/L, exposure and required growth rate
// 3. Enforce daily loss / drawdown / portfolio risk limits
// 4. Reset daily state on calendar-date rollover
//
// The monitor only reads ledger state; it never mutates it.
//
// ═══════════════════════════════════════════════════════════════════════════════

var hundred = decimal.NewFromInt(100)

// LedgerView is the read-only ledger access the monitor needs
type LedgerView interface {
	Snapshot() types.Portfolio
}

// Limits configures the monitor's risk ceilings, all as fractions (0.2 = 20%)
type Limits struct {
	MaxDailyLoss     decimal.Decimal
	MaxDrawdown      decimal.Decimal
	MaxRiskPerTrade  decimal.Decimal
	MaxPortfolioRisk decimal.Decimal
	StopFraction     decimal.Decimal // assumed worst-case loss per position
}

// Monitor computes rolling risk metrics from the ledger
type Monitor struct {
	mu sync.Mutex

	ledger LedgerView
	limits Limits

	targetValue   decimal.Decimal
	daysRemaining int

	dailyHighValue decimal.Decimal
	allTimeHigh    decimal.Decimal
	lastResetDate  time.Time // truncated to a calendar date
	dailyTrades    []types.TradeExecution

	metrics types.RiskMetrics

	now func() time.Time
}

// NewMonitor creates a risk monitor bound to a ledger view
func NewMonitor(ledger LedgerView, limits Limits, targetValue decimal.Decimal, daysRemaining int) *Monitor {
	m := &Monitor{
		ledger:        ledger,
		limits:        limits,
		targetValue:   targetValue,
		daysRemaining: daysRemaining,
		now:           time.Now,
	}
	m.lastResetDate = dateOf(m.now())
	return m
}

// SetClock overrides the monitor clock, for tests
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Restore seeds the high-water marks from persisted state so drawdown
// limits survive a restart within the same day. Only raises the marks,
// never lowers them.
func (m *Monitor) Restore(dailyHigh, allTimeHigh decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dailyHigh.GreaterThan(m.dailyHighValue) {
		m.dailyHighValue = dailyHigh
	}
	if allTimeHigh.GreaterThan(m.allTimeHigh) {
		m.allTimeHigh = allTimeHigh
	}
}

// Update recomputes all risk metrics from a fresh ledger snapshot.
// A calendar-date rollover resets the daily-high value and the daily
// trade list before anything is computed.
func (m *Monitor) Update() types.RiskMetrics {
	snapshot := m.ledger.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	currentValue := snapshot.TotalValueUSD
	now := m.now()

	if today := dateOf(now); today.After(m.lastResetDate) {
		m.dailyHighValue = currentValue
		m.lastResetDate = today
		m.dailyTrades = nil
		log.Info().Str("date", today.Format("2006-01-02")).Msg("📅 Daily risk metrics reset")
	}

	if currentValue.GreaterThan(m.dailyHighValue) {
		m.dailyHighValue = currentValue
	}
	if currentValue.GreaterThan(m.allTimeHigh) {
		m.allTimeHigh = currentValue
	}

	dailyDrawdown := drawdown(m.dailyHighValue, currentValue)
	maxDrawdown := drawdown(m.allTimeHigh, currentValue)

	// Daily P/L from the day's trades, signed by direction
	dailyPL := decimal.Zero
	for _, trade := range m.dailyTrades {
		if trade.Type == types.SignalSell {
			dailyPL = dailyPL.Add(trade.AmountUSD)
		} else {
			dailyPL = dailyPL.Sub(trade.AmountUSD)
		}
	}
	dailyPLPct := decimal.Zero
	if base := currentValue.Sub(dailyPL); base.GreaterThan(decimal.Zero) && len(m.dailyTrades) > 0 {
		dailyPLPct = dailyPL.Div(base).Mul(hundred)
	}

	// Exposure: worst-case loss if every position's stop were hit
	exposure := decimal.Zero
	for _, h := range snapshot.Holdings {
		exposure = exposure.Add(h.CurrentValue.Mul(m.limits.StopFraction))
	}
	exposurePct := decimal.Zero
	if currentValue.GreaterThan(decimal.Zero) {
		exposurePct = exposure.Div(currentValue).Mul(hundred)
	}

	requiredGrowth := requiredDailyGrowth(currentValue, m.targetValue, m.daysRemaining)

	// Risk budget scales the base max-risk upward when the deadline
	// demands aggressive growth, capped at 2x.
	base := m.limits.MaxRiskPerTrade
	growthFactor := decimal.Min(requiredGrowth.Mul(decimal.NewFromInt(10)), decimal.NewFromInt(2))
	adjusted := base.Mul(decimal.Max(decimal.NewFromInt(1), growthFactor))
	riskBudget := decimal.Min(adjusted, base.Mul(decimal.NewFromInt(2)))

	m.metrics = types.RiskMetrics{
		CurrentValue:           currentValue,
		DailyHighValue:         m.dailyHighValue,
		AllTimeHigh:            m.allTimeHigh,
		DailyDrawdownPct:       dailyDrawdown.Mul(hundred),
		MaxDrawdownPct:         maxDrawdown.Mul(hundred),
		DailyPL:                dailyPL,
		DailyPLPct:             dailyPLPct,
		RiskExposure:           exposure,
		RiskExposurePct:        exposurePct,
		RequiredDailyGrowthPct: requiredGrowth.Mul(hundred),
		RiskBudgetPct:          riskBudget.Mul(hundred),
		MaxDailyLossPct:        m.limits.MaxDailyLoss.Mul(hundred),
		MaxDrawdownLimitPct:    m.limits.MaxDrawdown.Mul(hundred),
		MaxRiskPerTradePct:     m.limits.MaxRiskPerTrade.Mul(hundred),
		MaxPortfolioRiskPct:    m.limits.MaxPortfolioRisk.Mul(hundred),
		LastUpdated:            now,
	}

	return m.metrics
}

// CheckLimits reports whether any risk limit is violated. It returns the
// first violation found; callers decide whether to block new buys.
func (m *Monitor) CheckLimits(metrics types.RiskMetrics) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if metrics.DailyPLPct.LessThanOrEqual(m.limits.MaxDailyLoss.Neg().Mul(hundred)) {
		return false, "daily loss limit exceeded: " + metrics.DailyPLPct.StringFixed(2) + "%" +
			" (limit: -" + m.limits.MaxDailyLoss.Mul(hundred).StringFixed(2) + "%)"
	}
	if metrics.MaxDrawdownPct.GreaterThanOrEqual(m.limits.MaxDrawdown.Mul(hundred)) {
		return false, "maximum drawdown exceeded: " + metrics.MaxDrawdownPct.StringFixed(2) + "%" +
			" (limit: " + m.limits.MaxDrawdown.Mul(hundred).StringFixed(2) + "%)"
	}
	if metrics.RiskExposurePct.GreaterThanOrEqual(m.limits.MaxPortfolioRisk.Mul(hundred)) {
		return false, "portfolio risk exposure too high: " + metrics.RiskExposurePct.StringFixed(2) + "%" +
			" (limit: " + m.limits.MaxPortfolioRisk.Mul(hundred).StringFixed(2) + "%)"
	}
	return true, ""
}

// RecordTrade appends a trade to the daily list used for the date-scoped
// P/L calculation. The ledger keeps full history independently.
func (m *Monitor) RecordTrade(trade types.TradeExecution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyTrades = append(m.dailyTrades, trade)
	log.Info().
		Str("side", string(trade.Type)).
		Str("amount", "$"+trade.AmountUSD.StringFixed(2)).
		Msg("📊 Trade recorded for daily risk tracking")
}

// AdjustPositionSize applies the risk-adjustment sizing policy to a base
// position size: exposure, daily P/L, drawdown, risk tier and progress
// factors, capped so at least 5% of available capital stays unspent.
func (m *Monitor) AdjustPositionSize(baseSize decimal.Decimal, level types.RiskLevel) decimal.Decimal {
	metrics := m.Update()
	snapshot := m.ledger.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	one := decimal.NewFromInt(1)
	half := decimal.NewFromFloat(0.5)

	exposureFactor := one
	if metrics.RiskExposurePct.GreaterThan(decimal.NewFromInt(30)) {
		exposureFactor = one.Sub(metrics.RiskExposurePct.Sub(decimal.NewFromInt(30)).Div(decimal.NewFromInt(70)))
		exposureFactor = decimal.Max(half, exposureFactor)
	}

	dailyPLFactor := one
	if metrics.DailyPLPct.LessThan(decimal.Zero) {
		dailyPLFactor = one.Sub(decimal.Min(half, metrics.DailyPLPct.Abs().Div(hundred)))
	} else if metrics.DailyPLPct.GreaterThan(decimal.NewFromInt(20)) {
		dailyPLFactor = one.Add(decimal.Min(half, metrics.DailyPLPct.Sub(decimal.NewFromInt(20)).Div(hundred)))
	}

	drawdownFactor := one
	if metrics.MaxDrawdownPct.GreaterThan(decimal.NewFromInt(10)) {
		drawdownFactor = one.Sub(metrics.MaxDrawdownPct.Sub(decimal.NewFromInt(10)).Div(decimal.NewFromInt(90)))
		drawdownFactor = decimal.Max(half, drawdownFactor)
	}

	tierFactor := AdjustmentTierPolicy.Factor(level)

	progressFactor := one
	if m.targetValue.GreaterThan(decimal.Zero) {
		progress := snapshot.TotalValueUSD.Div(m.targetValue)
		if progress.LessThan(decimal.NewFromFloat(0.3)) {
			progressFactor = decimal.NewFromFloat(1.2)
		} else if progress.GreaterThan(decimal.NewFromFloat(0.7)) {
			progressFactor = decimal.NewFromFloat(0.8)
		}
	}

	adjusted := baseSize.
		Mul(exposureFactor).
		Mul(dailyPLFactor).
		Mul(drawdownFactor).
		Mul(tierFactor).
		Mul(progressFactor)

	// Always leave a capital buffer
	adjusted = decimal.Min(adjusted, snapshot.AvailableCapital.Mul(decimal.NewFromFloat(0.95)))

	log.Debug().
		Str("base", "$"+baseSize.StringFixed(2)).
		Str("adjusted", "$"+adjusted.StringFixed(2)).
		Str("exposure_factor", exposureFactor.StringFixed(2)).
		Str("daily_pl_factor", dailyPLFactor.StringFixed(2)).
		Str("drawdown_factor", drawdownFactor.StringFixed(2)).
		Str("tier_factor", tierFactor.StringFixed(2)).
		Str("progress_factor", progressFactor.StringFixed(2)).
		Msg("Risk-adjusted position size")

	return adjusted
}

// ShouldIncreasePosition recommends adding to a winning position: at least
// +30% P/L, exposure under 30%, daily drawdown under 10%, and the add-on
// (half the current position) above the $20 floor.
func (m *Monitor) ShouldIncreasePosition(tokenAddress string) (bool, decimal.Decimal) {
	metrics := m.Update()
	snapshot := m.ledger.Snapshot()

	holding, ok := snapshot.FindHolding(tokenAddress)
	if !ok {
		return false, decimal.Zero
	}
	if holding.ProfitLossPct.LessThan(decimal.NewFromInt(30)) {
		return false, decimal.Zero
	}
	if metrics.RiskExposurePct.GreaterThan(decimal.NewFromInt(30)) {
		return false, decimal.Zero
	}
	if metrics.DailyDrawdownPct.GreaterThan(decimal.NewFromInt(10)) {
		return false, decimal.Zero
	}

	additional := holding.CurrentValue.Mul(decimal.NewFromFloat(0.5))
	additional = decimal.Min(additional, snapshot.AvailableCapital.Mul(decimal.NewFromFloat(0.5)))
	if additional.LessThan(decimal.NewFromInt(20)) {
		return false, decimal.Zero
	}

	log.Info().
		Str("token", holding.TokenSymbol).
		Str("additional", "$"+additional.StringFixed(2)).
		Msg("📈 Position increase recommended")

	return true, additional
}

// DailyTrades returns a copy of the day's recorded trades
func (m *Monitor) DailyTrades() []types.TradeExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	trades := make([]types.TradeExecution, len(m.dailyTrades))
	copy(trades, m.dailyTrades)
	return trades
}

// Metrics returns the most recently computed metrics without recomputing
func (m *Monitor) Metrics() types.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// drawdown computes (high - current) / high as a fraction, floored at 0
func drawdown(high, current decimal.Decimal) decimal.Decimal {
	if high.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	dd := high.Sub(current).Div(high)
	if dd.IsNegative() {
		return decimal.Zero
	}
	return dd
}

// requiredDailyGrowth computes (target/current)^(1/days) - 1 as a fraction.
// Guarded to 0 when days or current value are not positive.
func requiredDailyGrowth(current, target decimal.Decimal, daysRemaining int) decimal.Decimal {
	if daysRemaining <= 0 || current.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	ratio := target.Div(current).InexactFloat64()
	if ratio <= 0 {
		return decimal.Zero
	}
	growth := math.Pow(ratio, 1/float64(daysRemaining)) - 1
	if math.IsNaN(growth) || math.IsInf(growth, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(growth)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
