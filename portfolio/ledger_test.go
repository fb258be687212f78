package portfolio

import (
	"context"
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

func buyTrade(address string, amountUSD, quantity, price decimal.Decimal) types.TradeExecution {
	return types.TradeExecution{
		Token:     types.TokenInfo{Symbol: "MEME", Address: address, PriceUSD: price},
		Type:      types.SignalBuy,
		AmountUSD: amountUSD,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sellTrade(address string, amountUSD, quantity, price decimal.Decimal) types.TradeExecution {
	t := buyTrade(address, amountUSD, quantity, price)
	t.Type = types.SignalSell
	return t
}

func TestApplyTradeBuyCreatesHolding(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("200"))
	err := l.ApplyTrade(buyTrade("token-a", dec("50"), dec("500000"), dec("0.0001")))
	require.NoError(t, err)

	p := l.Snapshot()
	assert.True(t, p.AvailableCapital.Equal(dec("150")), "available = %s", p.AvailableCapital)
	require.Len(t, p.Holdings, 1)

	h := p.Holdings[0]
	assert.True(t, h.Quantity.Equal(dec("500000")))
	assert.True(t, h.CostBasis.Equal(dec("50")))
	assert.True(t, h.AveragePrice.Equal(dec("0.0001")))
	assert.Len(t, p.TradeHistory, 1)
}

func TestApplyTradeBuyMergesWeightedAverage(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("300"))
	require.NoError(t, l.ApplyTrade(buyTrade("token-a", dec("100"), dec("100"), dec("1"))))
	require.NoError(t, l.ApplyTrade(buyTrade("token-a", dec("100"), dec("50"), dec("2"))))

	p := l.Snapshot()
	require.Len(t, p.Holdings, 1)

	h := p.Holdings[0]
	assert.True(t, h.Quantity.Equal(dec("150")))
	assert.True(t, h.CostBasis.Equal(dec("200")))
	// 200 / 150
	assert.True(t, h.AveragePrice.Round(6).Equal(dec("1.333333")), "avg = %s", h.AveragePrice)
	assert.True(t, p.AvailableCapital.Equal(dec("100")))
}

func TestApplyTradeBuyInsufficientCapital(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("40"))
	err := l.ApplyTrade(buyTrade("token-a", dec("50"), dec("500"), dec("0.1")))
	require.ErrorIs(t, err, ErrInsufficientCapital)

	p := l.Snapshot()
	assert.True(t, p.AvailableCapital.Equal(dec("40")))
	assert.Empty(t, p.Holdings)
	assert.Empty(t, p.TradeHistory)
}

func TestApplyTradeSellWithoutHolding(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("200"))
	err := l.ApplyTrade(sellTrade("unknown", dec("10"), dec("100"), dec("0.1")))
	require.ErrorIs(t, err, ErrNoHolding)

	p := l.Snapshot()
	assert.True(t, p.AvailableCapital.Equal(dec("200")))
	assert.Empty(t, p.TradeHistory, "declined trades never reach history")
}

func TestFullSellWithinTolerance(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("200"))
	require.NoError(t, l.ApplyTrade(buyTrade("token-a", dec("100"), dec("1000"), dec("0.1"))))

	// 999.95 of 1000 is inside the 0.01% tolerance band
	require.NoError(t, l.ApplyTrade(sellTrade("token-a", dec("120"), dec("999.95"), dec("0.12"))))

	p := l.Snapshot()
	assert.Empty(t, p.Holdings, "dust-level remainder should close the position")
	assert.True(t, p.AvailableCapital.Equal(dec("220")))
}

func TestPartialSellReducesCostBasisProportionally(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("200"))
	require.NoError(t, l.ApplyTrade(buyTrade("token-a", dec("100"), dec("1000"), dec("0.1"))))
	require.NoError(t, l.ApplyTrade(sellTrade("token-a", dec("30"), dec("250"), dec("0.12"))))

	p := l.Snapshot()
	require.Len(t, p.Holdings, 1)

	h := p.Holdings[0]
	assert.True(t, h.Quantity.Equal(dec("750")))
	assert.True(t, h.CostBasis.Equal(dec("75")), "cost basis = %s", h.CostBasis)
	assert.True(t, p.AvailableCapital.Equal(dec("130")))
}

func TestRoundTripConservesCapital(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("200"))
	require.NoError(t, l.ApplyTrade(buyTrade("token-a", dec("50"), dec("500"), dec("0.1"))))
	require.NoError(t, l.ApplyTrade(sellTrade("token-a", dec("50"), dec("500"), dec("0.1"))))

	p := l.Snapshot()
	assert.True(t, p.AvailableCapital.Equal(dec("200")))
	assert.True(t, p.TotalValueUSD.Equal(dec("200")))
	assert.True(t, p.ProfitLoss.IsZero())
	assert.Len(t, p.TradeHistory, 2)
}

type stubPrices struct {
	prices map[string]decimal.Decimal
}

func (s stubPrices) TokenPrice(_ context.Context, address string) decimal.Decimal {
	return s.prices[address]
}

func TestRefreshValuationsIsolatesFailures(t *testing.T) {
	t.Parallel()

	l := NewLedger(dec("400"))
	require.NoError(t, l.ApplyTrade(buyTrade("token-a", dec("100"), dec("1000"), dec("0.1"))))
	require.NoError(t, l.ApplyTrade(buyTrade("token-b", dec("100"), dec("200"), dec("0.5"))))

	// token-b has no price this cycle
	l.RefreshValuations(context.Background(), stubPrices{prices: map[string]decimal.Decimal{
		"token-a": dec("0.2"),
	}})

	p := l.Snapshot()
	a, ok := p.FindHolding("token-a")
	require.True(t, ok)
	assert.True(t, a.CurrentValue.Equal(dec("200")))
	assert.True(t, a.ProfitLossPct.Equal(dec("100")))

	b, ok := p.FindHolding("token-b")
	require.True(t, ok)
	assert.True(t, b.CurrentValue.Equal(dec("100")), "stale valuation kept for token-b")
}
