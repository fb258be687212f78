package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/portfolio"
	"github.com/0xkylo/moonshot/risk"
	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ORCHESTRATOR - Per-cycle trading decisions
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow per cycle:
//   refresh valuations → evaluate exits → fetch/cache signals →
//   filter & size buy candidates → progress metrics
//
// ═══════════════════════════════════════════════════════════════════════════════

// horizonDays is the canonical challenge horizon
const horizonDays = 10

// SignalSource produces trading signals on demand
type SignalSource interface {
	Signals(ctx context.Context) []types.TradingSignal
}

// Trader executes buy/sell orders on the exchange
type Trader interface {
	BuyToken(ctx context.Context, tokenAddress string, amountUSD decimal.Decimal) (types.TradeExecution, error)
	SellToken(ctx context.Context, tokenAddress string, quantity decimal.Decimal) (types.TradeExecution, error)
}

// Notifier receives trade notifications
type Notifier interface {
	NotifyTrade(action, symbol string, amountUSD decimal.Decimal, reason string)
}

// Actions is the complete per-cycle decision set
type Actions struct {
	Portfolio           types.Portfolio
	Metrics             types.RiskMetrics
	SellRecommendations []ExitDecision
	BuyCandidates       []types.ScoredSignal
	Progress            Progress
}

// Progress tracks advance toward the challenge target
type Progress struct {
	DaysRemaining          int
	CurrentValue           decimal.Decimal
	TargetValue            decimal.Decimal
	ProgressPct            decimal.Decimal
	ExpectedValue          decimal.Decimal // linear elapsed-time target
	ValueDifference        decimal.Decimal
	OnTrack                bool
	RequiredDailyGrowthPct decimal.Decimal
}

// Orchestrator composes the ledger, risk monitor, sizing engine, exit
// evaluator and signal source into a single decision loop.
type Orchestrator struct {
	mu sync.Mutex

	ledger  *portfolio.Ledger
	monitor *risk.Monitor
	sizer   *risk.Sizer
	exits   *ExitEvaluator
	signals SignalSource
	prices  portfolio.PriceSource
	trader  Trader

	targetValue   decimal.Decimal
	daysRemaining int
	minConfidence decimal.Decimal
	minTradeUSD   decimal.Decimal

	cacheTTL      time.Duration
	cachedSignals []types.TradingSignal
	cachedAt      time.Time

	notifier Notifier

	now func() time.Time
}

// NewOrchestrator wires the decision loop together
func NewOrchestrator(
	ledger *portfolio.Ledger,
	monitor *risk.Monitor,
	sizer *risk.Sizer,
	exits *ExitEvaluator,
	signals SignalSource,
	prices portfolio.PriceSource,
	trader Trader,
	targetValue decimal.Decimal,
	daysRemaining int,
	minConfidence decimal.Decimal,
	minTradeUSD decimal.Decimal,
	cacheTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		ledger:        ledger,
		monitor:       monitor,
		sizer:         sizer,
		exits:         exits,
		signals:       signals,
		prices:        prices,
		trader:        trader,
		targetValue:   targetValue,
		daysRemaining: daysRemaining,
		minConfidence: minConfidence,
		minTradeUSD:   minTradeUSD,
		cacheTTL:      cacheTTL,
		now:           time.Now,
	}
}

// SetClock overrides the orchestrator clock, for tests
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

// SetNotifier sets the trade notification sink
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifier = n
}

// GetSignals returns cached signals while the cache is fresh, otherwise
// requests a new batch from the signal source. The cache is one shared
// value, not per-token.
func (o *Orchestrator) GetSignals(ctx context.Context) []types.TradingSignal {
	o.mu.Lock()
	if !o.cachedAt.IsZero() && o.now().Sub(o.cachedAt) < o.cacheTTL {
		cached := o.cachedSignals
		o.mu.Unlock()
		log.Debug().Int("count", len(cached)).Msg("Using cached trading signals")
		return cached
	}
	o.mu.Unlock()

	fresh := o.signals.Signals(ctx)

	o.mu.Lock()
	o.cachedSignals = fresh
	o.cachedAt = o.now()
	o.mu.Unlock()

	log.Info().Int("count", len(fresh)).Msg("🔄 Trading signals refreshed")
	return fresh
}

// RecommendedActions runs one full decision cycle
func (o *Orchestrator) RecommendedActions(ctx context.Context) Actions {
	o.ledger.RefreshValuations(ctx, o.prices)
	snapshot := o.ledger.Snapshot()
	metrics := o.monitor.Update()

	sells := o.exits.CheckAll(snapshot)

	signals := o.GetSignals(ctx)
	buys := o.filterBuyCandidates(signals, snapshot)

	return Actions{
		Portfolio:           snapshot,
		Metrics:             metrics,
		SellRecommendations: sells,
		BuyCandidates:       buys,
		Progress:            o.progress(snapshot, metrics),
	}
}

// filterBuyCandidates keeps BUY signals for tokens not already held, with
// sufficient confidence, that size to at least the minimum trade amount.
// The computed size is attached as a companion value.
func (o *Orchestrator) filterBuyCandidates(signals []types.TradingSignal, snapshot types.Portfolio) []types.ScoredSignal {
	var candidates []types.ScoredSignal
	for _, signal := range signals {
		if signal.Type != types.SignalBuy {
			continue
		}
		if _, held := snapshot.FindHolding(signal.Token.Address); held {
			continue
		}
		if signal.Confidence.LessThan(o.minConfidence) {
			continue
		}

		size := o.sizer.Size(signal, snapshot)
		if size.LessThan(o.minTradeUSD) {
			continue
		}

		candidates = append(candidates, types.ScoredSignal{
			Signal:          signal,
			RecommendedSize: size,
		})
	}
	return candidates
}

func (o *Orchestrator) progress(snapshot types.Portfolio, metrics types.RiskMetrics) Progress {
	dailyTarget := o.targetValue.Div(decimal.NewFromInt(horizonDays))
	daysElapsed := decimal.NewFromInt(int64(horizonDays - o.daysRemaining))
	expected := snapshot.InitialCapital.Add(dailyTarget.Mul(daysElapsed))
	diff := snapshot.TotalValueUSD.Sub(expected)

	progressPct := decimal.Zero
	if o.targetValue.GreaterThan(decimal.Zero) {
		progressPct = snapshot.TotalValueUSD.Div(o.targetValue).Mul(decimal.NewFromInt(100))
	}

	return Progress{
		DaysRemaining:          o.daysRemaining,
		CurrentValue:           snapshot.TotalValueUSD,
		TargetValue:            o.targetValue,
		ProgressPct:            progressPct,
		ExpectedValue:          expected,
		ValueDifference:        diff,
		OnTrack:                diff.GreaterThanOrEqual(decimal.Zero),
		RequiredDailyGrowthPct: metrics.RequiredDailyGrowthPct,
	}
}

// ExecuteBuy sizes and executes a buy signal, then applies the trade to
// the ledger. The context is checked after the exchange call so an
// abandoned fetch never applies a stale trade.
func (o *Orchestrator) ExecuteBuy(ctx context.Context, signal types.TradingSignal) (types.TradeExecution, error) {
	snapshot := o.ledger.Snapshot()
	size := o.sizer.Size(signal, snapshot)
	if size.IsZero() {
		return types.TradeExecution{}, fmt.Errorf("position size below minimum for %s", signal.Token.Symbol)
	}

	trade, err := o.trader.BuyToken(ctx, signal.Token.Address, size)
	if err != nil {
		return types.TradeExecution{}, fmt.Errorf("buy %s: %w", signal.Token.Symbol, err)
	}

	if err := ctx.Err(); err != nil {
		log.Warn().Str("token", signal.Token.Symbol).Msg("Buy abandoned before ledger update")
		return types.TradeExecution{}, err
	}

	if err := o.ledger.ApplyTrade(trade); err != nil {
		return types.TradeExecution{}, err
	}
	o.monitor.RecordTrade(trade)

	if o.notifier != nil {
		o.notifier.NotifyTrade("BUY", signal.Token.Symbol, trade.AmountUSD, signal.Reasoning)
	}

	// Advisory exit levels for the new position
	metrics := o.monitor.Metrics()
	progress := decimal.Zero
	if o.targetValue.GreaterThan(decimal.Zero) {
		progress = snapshot.TotalValueUSD.Div(o.targetValue)
	}
	stop := risk.OptimalStopLoss(signal.Token, trade.Price, metrics, progress)
	targets := risk.TakeProfitLevels(signal.Token, trade.Price, metrics)

	log.Info().
		Str("token", signal.Token.Symbol).
		Str("amount", "$"+trade.AmountUSD.StringFixed(2)).
		Str("stop", stop.String()).
		Int("tp_levels", len(targets)).
		Msg("✅ Buy executed")

	return trade, nil
}

// ExecuteSell sells the full holding behind an exit decision
func (o *Orchestrator) ExecuteSell(ctx context.Context, decision ExitDecision) (types.TradeExecution, error) {
	h := decision.Holding

	trade, err := o.trader.SellToken(ctx, h.TokenAddress, h.Quantity)
	if err != nil {
		return types.TradeExecution{}, fmt.Errorf("sell %s: %w", h.TokenSymbol, err)
	}

	if err := ctx.Err(); err != nil {
		log.Warn().Str("token", h.TokenSymbol).Msg("Sell abandoned before ledger update")
		return types.TradeExecution{}, err
	}

	if trade.Metadata == nil {
		trade.Metadata = make(map[string]string)
	}
	trade.Metadata["sell_reason"] = decision.Reason

	if err := o.ledger.ApplyTrade(trade); err != nil {
		return types.TradeExecution{}, err
	}
	o.monitor.RecordTrade(trade)

	if o.notifier != nil {
		o.notifier.NotifyTrade(string(decision.State), h.TokenSymbol, trade.AmountUSD, decision.Reason)
	}

	log.Info().
		Str("token", h.TokenSymbol).
		Str("amount", "$"+trade.AmountUSD.StringFixed(2)).
		Str("reason", decision.Reason).
		Msg("📉 Sell executed")

	return trade, nil
}
