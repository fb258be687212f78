package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xkylo/moonshot/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeLedger serves a settable snapshot
type fakeLedger struct {
	portfolio types.Portfolio
}

func (f *fakeLedger) Snapshot() types.Portfolio {
	return f.portfolio
}

func defaultLimits() Limits {
	return Limits{
		MaxDailyLoss:     dec("0.2"),
		MaxDrawdown:      dec("0.3"),
		MaxRiskPerTrade:  dec("0.15"),
		MaxPortfolioRisk: dec("0.5"),
		StopFraction:     dec("0.15"),
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestUpdateRequiredDailyGrowth(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("200"),
		InitialCapital:   dec("200"),
		AvailableCapital: dec("200"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	metrics := m.Update()

	// (10000/200)^(1/10) - 1 = 47.88%
	assert.InDelta(t, 47.88, metrics.RequiredDailyGrowthPct.InexactFloat64(), 0.05)
	// Aggressive growth pushes the risk budget to the 2x cap
	assert.True(t, metrics.RiskBudgetPct.Equal(dec("30")), "budget = %s", metrics.RiskBudgetPct)
}

func TestUpdateDrawdownFlooredAtZero(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{TotalValueUSD: dec("200")}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)
	m.Update()

	// Value only rises: drawdown must stay at zero
	ledger.portfolio.TotalValueUSD = dec("300")
	metrics := m.Update()

	assert.True(t, metrics.DailyDrawdownPct.IsZero())
	assert.True(t, metrics.MaxDrawdownPct.IsZero())
	assert.True(t, metrics.AllTimeHigh.Equal(dec("300")))
}

func TestRestoreSeedsHighWaterMarks(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{TotalValueUSD: dec("300")}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	// Persisted state from before a restart earlier the same day
	m.Restore(dec("320"), dec("400"))
	metrics := m.Update()

	assert.True(t, metrics.AllTimeHigh.Equal(dec("400")))
	// (400-300)/400 = 25%, (320-300)/320 = 6.25%
	assert.True(t, metrics.MaxDrawdownPct.Equal(dec("25")), "max dd = %s", metrics.MaxDrawdownPct)
	assert.True(t, metrics.DailyDrawdownPct.Equal(dec("6.25")), "daily dd = %s", metrics.DailyDrawdownPct)
}

func TestUpdateComputesDrawdownFromHigh(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{TotalValueUSD: dec("400")}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)
	m.Update()

	ledger.portfolio.TotalValueUSD = dec("300")
	metrics := m.Update()

	assert.True(t, metrics.MaxDrawdownPct.Equal(dec("25")), "drawdown = %s", metrics.MaxDrawdownPct)
	assert.True(t, metrics.DailyHighValue.Equal(dec("400")))
}

func TestDailyRolloverResetsState(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{TotalValueUSD: dec("400")}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	// Past the construction-time date so the rollover comparison fires
	day1 := time.Date(2100, 1, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(fixedClock(day1))
	m.Update()
	m.RecordTrade(types.TradeExecution{Type: types.SignalBuy, AmountUSD: dec("50")})

	// Value drops before midnight
	ledger.portfolio.TotalValueUSD = dec("300")
	metrics := m.Update()
	assert.True(t, metrics.DailyDrawdownPct.Equal(dec("25")))
	assert.Len(t, m.DailyTrades(), 1)

	// Next calendar day: daily high re-anchors, trade list clears
	m.SetClock(fixedClock(day1.Add(24 * time.Hour)))
	metrics = m.Update()

	assert.True(t, metrics.DailyDrawdownPct.IsZero())
	assert.Empty(t, m.DailyTrades())
	// All-time high survives the rollover
	assert.True(t, metrics.MaxDrawdownPct.Equal(dec("25")))
}

func TestDailyPLSignedByDirection(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{TotalValueUSD: dec("200")}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	m.RecordTrade(types.TradeExecution{Type: types.SignalBuy, AmountUSD: dec("50")})
	m.RecordTrade(types.TradeExecution{Type: types.SignalSell, AmountUSD: dec("80")})

	metrics := m.Update()
	assert.True(t, metrics.DailyPL.Equal(dec("30")), "daily P/L = %s", metrics.DailyPL)
}

func TestUpdateExposureFromStopFraction(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("200"),
		AvailableCapital: dec("100"),
		Holdings: []types.Holding{
			{TokenAddress: "a", CurrentValue: dec("60")},
			{TokenAddress: "b", CurrentValue: dec("40")},
		},
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	metrics := m.Update()

	// (60+40) * 0.15 = 15, 7.5% of 200
	assert.True(t, metrics.RiskExposure.Equal(dec("15")))
	assert.True(t, metrics.RiskExposurePct.Equal(dec("7.5")))
}

func TestCheckLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		metrics  types.RiskMetrics
		ok       bool
		contains string
	}{
		{
			name:    "all within limits",
			metrics: types.RiskMetrics{DailyPLPct: dec("-5"), MaxDrawdownPct: dec("10"), RiskExposurePct: dec("20")},
			ok:      true,
		},
		{
			name:     "daily loss breached",
			metrics:  types.RiskMetrics{DailyPLPct: dec("-20"), MaxDrawdownPct: dec("10"), RiskExposurePct: dec("20")},
			ok:       false,
			contains: "daily loss",
		},
		{
			name:     "drawdown breached",
			metrics:  types.RiskMetrics{DailyPLPct: dec("-5"), MaxDrawdownPct: dec("30"), RiskExposurePct: dec("20")},
			ok:       false,
			contains: "drawdown",
		},
		{
			name:     "portfolio risk breached",
			metrics:  types.RiskMetrics{DailyPLPct: dec("-5"), MaxDrawdownPct: dec("10"), RiskExposurePct: dec("50")},
			ok:       false,
			contains: "portfolio risk",
		},
		{
			name:     "daily loss reported first",
			metrics:  types.RiskMetrics{DailyPLPct: dec("-25"), MaxDrawdownPct: dec("35"), RiskExposurePct: dec("60")},
			ok:       false,
			contains: "daily loss",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ledger := &fakeLedger{portfolio: types.Portfolio{TotalValueUSD: dec("200")}}
			m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

			ok, violation := m.CheckLimits(tt.metrics)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Contains(t, violation, tt.contains)
			} else {
				assert.Empty(t, violation)
			}
		})
	}
}

func TestAdjustPositionSizeLeavesCapitalBuffer(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("100"),
		AvailableCapital: dec("20"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	adjusted := m.AdjustPositionSize(dec("500"), types.RiskLow)
	assert.True(t, adjusted.LessThanOrEqual(dec("19")), "adjusted = %s", adjusted)
}

func TestAdjustPositionSizeTierFactors(t *testing.T) {
	t.Parallel()

	ledger := &fakeLedger{portfolio: types.Portfolio{
		TotalValueUSD:    dec("200"),
		AvailableCapital: dec("1000"),
	}}
	m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

	low := m.AdjustPositionSize(dec("100"), types.RiskLow)
	veryHigh := m.AdjustPositionSize(dec("100"), types.RiskVeryHigh)

	// Progress below 30% applies the 1.2x factor to both
	assert.True(t, low.Equal(dec("144")), "low = %s", low)
	assert.True(t, veryHigh.Equal(dec("72")), "very high = %s", veryHigh)
}

func TestShouldIncreasePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		plPct     string
		available string
		want      bool
		amount    string
	}{
		{name: "winning position", plPct: "40", available: "100", want: true, amount: "50"},
		{name: "gain below threshold", plPct: "20", available: "100", want: false},
		{name: "capped by available capital", plPct: "40", available: "60", want: true, amount: "30"},
		{name: "add-on below floor", plPct: "40", available: "30", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ledger := &fakeLedger{portfolio: types.Portfolio{
				TotalValueUSD:    dec("200"),
				AvailableCapital: dec(tt.available),
				Holdings: []types.Holding{{
					TokenAddress:  "token-a",
					TokenSymbol:   "MEME",
					CurrentValue:  dec("100"),
					ProfitLossPct: dec(tt.plPct),
				}},
			}}
			m := NewMonitor(ledger, defaultLimits(), dec("10000"), 10)

			ok, amount := m.ShouldIncreasePosition("token-a")
			require.Equal(t, tt.want, ok)
			if tt.want {
				assert.True(t, amount.Equal(dec(tt.amount)), "amount = %s", amount)
			}
		})
	}
}
