package strategy

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

func newTestEvaluator(now time.Time) *ExitEvaluator {
	e := NewExitEvaluator(dec("50"), dec("-15"), 48*time.Hour)
	e.SetClock(func() time.Time { return now })
	return e
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		plPct string
		age   time.Duration
		want  ExitState
	}{
		{name: "take profit at threshold", plPct: "50", age: time.Hour, want: StateTakeProfit},
		{name: "take profit beats time exit", plPct: "60", age: 5 * 24 * time.Hour, want: StateTakeProfit},
		{name: "stop loss at threshold", plPct: "-15", age: time.Hour, want: StateStopLoss},
		{name: "stop loss beats time exit", plPct: "-20", age: 5 * 24 * time.Hour, want: StateStopLoss},
		{name: "stagnant position times out", plPct: "5", age: 3 * 24 * time.Hour, want: StateTimeExit},
		{name: "old but performing stays held", plPct: "25", age: 3 * 24 * time.Hour, want: StateHeld},
		{name: "young position held", plPct: "10", age: time.Hour, want: StateHeld},
		{name: "exactly at hold limit", plPct: "5", age: 48 * time.Hour, want: StateTimeExit},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEvaluator(now)
			h := types.Holding{
				TokenSymbol:   "MEME",
				ProfitLossPct: dec(tt.plPct),
				PurchasedAt:   now.Add(-tt.age),
			}

			state, reason := e.Evaluate(h)
			assert.Equal(t, tt.want, state)
			if tt.want == StateHeld {
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestCheckAllSkipsHeldPositions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	p := types.Portfolio{Holdings: []types.Holding{
		{TokenAddress: "a", ProfitLossPct: dec("60"), PurchasedAt: now.Add(-time.Hour)},
		{TokenAddress: "b", ProfitLossPct: dec("10"), PurchasedAt: now.Add(-time.Hour)},
		{TokenAddress: "c", ProfitLossPct: dec("-18"), PurchasedAt: now.Add(-time.Hour)},
	}}

	decisions := e.CheckAll(p)
	require.Len(t, decisions, 2)
	assert.Equal(t, StateTakeProfit, decisions[0].State)
	assert.Equal(t, "a", decisions[0].Holding.TokenAddress)
	assert.Equal(t, StateStopLoss, decisions[1].State)
	assert.Equal(t, "c", decisions[1].Holding.TokenAddress)
}
