package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/0xkylo/moonshot/types"
)

func TestBuildReportBaseline(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("200"),
		InitialCapital:   dec("200"),
		AvailableCapital: dec("200"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	report := m.BuildReport()

	// No trades yet: win rate defaults to 50%
	assert.True(t, report.WinRatePct.Equal(dec("50")), "win rate = %s", report.WinRatePct)

	// Kelly: 0.5 - 0.5/(0.5/0.15) = 0.35
	assert.InDelta(t, 35, report.KellyPct.InexactFloat64(), 0.001)
	assert.InDelta(t, 70, report.SuggestedMaxPosition.InexactFloat64(), 0.01)

	// 47.9%/day compounding from $200 reaches $10000 in exactly the horizon
	assert.InDelta(t, 10, report.DaysToTarget.InexactFloat64(), 0.01)

	assert.Equal(t, StatusOK, report.DailyLossStatus)
	assert.Equal(t, StatusOK, report.DrawdownStatus)
	assert.Equal(t, StatusOK, report.PortfolioRiskStatus)
	assert.Equal(t, "NORMAL", report.SizeRecommendation)
}

func TestBuildReportWinRateFromDailyTrades(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("220"),
		InitialCapital:   dec("200"),
		AvailableCapital: dec("100"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	m.RecordTrade(types.TradeExecution{Type: types.SignalBuy, AmountUSD: dec("40"), Timestamp: time.Now()})
	m.RecordTrade(types.TradeExecution{Type: types.SignalSell, AmountUSD: dec("20"), Timestamp: time.Now()})
	m.RecordTrade(types.TradeExecution{Type: types.SignalSell, AmountUSD: dec("20"), Timestamp: time.Now()})
	m.RecordTrade(types.TradeExecution{Type: types.SignalSell, AmountUSD: dec("20"), Timestamp: time.Now()})

	report := m.BuildReport()

	// 3 sells out of 4 trades
	assert.True(t, report.WinRatePct.Equal(dec("75")), "win rate = %s", report.WinRatePct)
	// Kelly 0.75 - 0.25/(10/3) = 0.675, clamped to 0.5
	assert.True(t, report.KellyPct.Equal(dec("50")), "kelly = %s", report.KellyPct)
	assert.True(t, report.SuggestedMaxPosition.Equal(dec("50")))
	assert.Equal(t, StatusOK, report.DailyLossStatus)
}

func TestBuildReportRecommendsReduceAfterDrawdown(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("400"),
		InitialCapital:   dec("200"),
		AvailableCapital: dec("400"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)
	m.Update()

	// 400 -> 300 is a 25% drawdown: over the REDUCE threshold but
	// still inside the 30% hard limit
	ledger.portfolio.TotalValueUSD = dec("300")
	report := m.BuildReport()

	assert.True(t, report.Metrics.MaxDrawdownPct.Equal(dec("25")))
	assert.Equal(t, "REDUCE", report.SizeRecommendation)
	assert.Equal(t, StatusOK, report.DrawdownStatus)
}

func TestBuildReportDrawdownLimitExceeded(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("1000"),
		InitialCapital:   dec("200"),
		AvailableCapital: dec("1000"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)
	m.Update()

	ledger.portfolio.TotalValueUSD = dec("650")
	report := m.BuildReport()

	assert.True(t, report.Metrics.MaxDrawdownPct.Equal(dec("35")))
	assert.Equal(t, StatusExceeded, report.DrawdownStatus)
	assert.Equal(t, "REDUCE", report.SizeRecommendation)
}
