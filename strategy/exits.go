package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXIT EVALUATOR - Per-holding exit state machine
// ═══════════════════════════════════════════════════════════════════════════════
//
// Re-derived from current P/L and age every cycle; no transition history
// is persisted. Rules are checked in strict precedence order:
//   take profit → stop loss → time exit
//
// ═══════════════════════════════════════════════════════════════════════════════

// ExitState is the evaluated state of a holding
type ExitState string

const (
	StateHeld       ExitState = "HELD"
	StateTakeProfit ExitState = "TAKE_PROFIT"
	StateStopLoss   ExitState = "STOP_LOSS"
	StateTimeExit   ExitState = "TIME_EXIT"
)

// ExitDecision is a sell recommendation for one holding
type ExitDecision struct {
	Holding types.Holding
	State   ExitState
	Reason  string
}

// ExitEvaluator evaluates holdings against exit rules
type ExitEvaluator struct {
	takeProfitPct   decimal.Decimal // trigger at or above, e.g. 50
	stopLossPct     decimal.Decimal // trigger at or below, e.g. -15
	maxHoldTime     time.Duration   // time exit threshold, e.g. 48h
	timeExitPLFloor decimal.Decimal // time exit only below this P/L%, e.g. 20

	now func() time.Time
}

// NewExitEvaluator creates an evaluator with the given thresholds
func NewExitEvaluator(takeProfitPct, stopLossPct decimal.Decimal, maxHoldTime time.Duration) *ExitEvaluator {
	return &ExitEvaluator{
		takeProfitPct:   takeProfitPct,
		stopLossPct:     stopLossPct,
		maxHoldTime:     maxHoldTime,
		timeExitPLFloor: decimal.NewFromInt(20),
		now:             time.Now,
	}
}

// SetClock overrides the evaluator clock, for tests
func (e *ExitEvaluator) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate classifies a single holding. First matching rule wins.
func (e *ExitEvaluator) Evaluate(h types.Holding) (ExitState, string) {
	pl := h.ProfitLossPct

	if pl.GreaterThanOrEqual(e.takeProfitPct) {
		return StateTakeProfit, fmt.Sprintf("take profit triggered at %s%% gain", pl.StringFixed(2))
	}
	if pl.LessThanOrEqual(e.stopLossPct) {
		return StateStopLoss, fmt.Sprintf("stop loss triggered at %s%% loss", pl.StringFixed(2))
	}
	if h.Age(e.now()) >= e.maxHoldTime && pl.LessThan(e.timeExitPLFloor) {
		return StateTimeExit, fmt.Sprintf("time-based exit after %dd+ with only %s%% gain",
			int(e.maxHoldTime.Hours()/24), pl.StringFixed(2))
	}
	return StateHeld, ""
}

// CheckAll evaluates every holding and returns sell recommendations
func (e *ExitEvaluator) CheckAll(p types.Portfolio) []ExitDecision {
	var decisions []ExitDecision
	for _, h := range p.Holdings {
		state, reason := e.Evaluate(h)
		if state == StateHeld {
			continue
		}
		decisions = append(decisions, ExitDecision{Holding: h, State: state, Reason: reason})
	}
	return decisions
}
