// Moonshot - Time-boxed Solana meme-coin trading engine
//
// Attempts to grow a small capital base toward an aggressive target
// within a fixed number of days, with hard risk limits:
// 1. Scan trending tokens and tracked wallets for buy signals
// 2. Size positions by risk tier, confidence, deadline and progress
// 3. Exit on take-profit, stop-loss, or stagnant-position timeout
// 4. Halt new entries when daily-loss / drawdown / exposure limits trip
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/config"
	"github.com/0xkylo/moonshot/exchange"
	"github.com/0xkylo/moonshot/market"
	"github.com/0xkylo/moonshot/notify"
	"github.com/0xkylo/moonshot/portfolio"
	"github.com/0xkylo/moonshot/risk"
	"github.com/0xkylo/moonshot/signals"
	"github.com/0xkylo/moonshot/storage"
	"github.com/0xkylo/moonshot/strategy"
	"github.com/0xkylo/moonshot/types"
)

const version = "1.0.0"

// maxBuysPerCycle bounds how many new positions one cycle can open
const maxBuysPerCycle = 3

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("initial", "$"+cfg.InitialCapital.StringFixed(2)).
		Str("target", "$"+cfg.TargetValue.StringFixed(2)).
		Int("days", cfg.DaysRemaining).
		Bool("dry_run", cfg.DryRun).
		Msg("🌙 Moonshot starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ====== PERSISTENCE ======
	dbPath := cfg.DatabasePath
	if cfg.PostgresDSN != "" {
		dbPath = cfg.PostgresDSN
	}
	db, err := storage.New(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// ====== MARKET DATA ======
	dex := market.NewDexScreener(cfg.DexScreenerURL)
	birdeye := market.NewBirdeye(cfg.BirdeyeURL, cfg.BirdeyeAPIKey)
	analyzer := market.NewAnalyzer(dex, birdeye)
	helius := market.NewHelius(cfg.HeliusURL, cfg.HeliusAPIKey)

	// ====== SIGNAL SOURCES ======
	trends := signals.NewTrendAnalyzer(analyzer)
	wallets := signals.NewWalletTracker(helius, dex, cfg.TrackedWallets)
	aggregator := signals.NewAggregator(trends, wallets)
	if len(cfg.TrackedWallets) > 0 {
		log.Info().Int("count", len(cfg.TrackedWallets)).Msg("👛 Wallet tracking enabled")
	}

	// ====== CORE ENGINE ======
	ledger := portfolio.NewLedger(cfg.InitialCapital)
	monitor := risk.NewMonitor(ledger, risk.Limits{
		MaxDailyLoss:     cfg.MaxDailyLoss,
		MaxDrawdown:      cfg.MaxDrawdown,
		MaxRiskPerTrade:  cfg.MaxRiskPerTrade,
		MaxPortfolioRisk: cfg.MaxPortfolioRisk,
		StopFraction:     cfg.StopFraction,
	}, cfg.TargetValue, cfg.DaysRemaining)

	// Recover persisted state so a same-day restart keeps its limits
	if state, err := db.RiskStateFor(time.Now().Format("2006-01-02")); err == nil {
		monitor.Restore(state.DailyHighValue, state.AllTimeHigh)
		log.Info().
			Str("daily_high", "$"+state.DailyHighValue.StringFixed(2)).
			Str("all_time_high", "$"+state.AllTimeHigh.StringFixed(2)).
			Msg("♻️ Risk state restored")
	}
	if stats, err := db.Stats(); err == nil && stats.TotalTrades > 0 {
		log.Info().
			Int64("trades", stats.TotalTrades).
			Int64("buys", stats.Buys).
			Int64("sells", stats.Sells).
			Str("pnl", "$"+stats.TotalPnL.StringFixed(2)).
			Msg("📜 Trade history loaded")
	}

	sizer := risk.NewSizer(cfg.MaxRiskPerTrade, cfg.MinTradeUSD, cfg.TargetValue, cfg.DaysRemaining)
	exits := strategy.NewExitEvaluator(cfg.TakeProfitPct, cfg.StopLossPct, cfg.MaxHoldTime)

	trader := exchange.NewJupiter(cfg.JupiterAPIURL, cfg.SolanaRPCURL,
		cfg.SolanaPrivateKey, cfg.SolanaWallet, cfg.DryRun, analyzer)
	if !cfg.DryRun && cfg.SolanaPrivateKey == "" {
		log.Warn().Msg("⚠️ No signing key - live trades will be declined")
	}

	orch := strategy.NewOrchestrator(ledger, monitor, sizer, exits,
		aggregator, analyzer, trader,
		cfg.TargetValue, cfg.DaysRemaining,
		cfg.MinConfidence, cfg.MinTradeUSD, cfg.SignalCacheTTL)

	// ====== NOTIFICATIONS ======
	telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram notifier")
	}
	if telegram != nil {
		orch.SetNotifier(telegram)
	}

	// ====== STARTUP COMPLETE ======
	log.Info().Msg("✅ All systems online")
	log.Info().Msg("")
	log.Info().Msg("╔══════════════════════════════════════════╗")
	log.Info().Msg("║        MOONSHOT CHALLENGE ACTIVE         ║")
	log.Info().Msg("║                                          ║")
	log.Info().Msgf("║  Goal: $%-7s → $%-7s in %2d days    ║",
		cfg.InitialCapital.StringFixed(0), cfg.TargetValue.StringFixed(0), cfg.DaysRemaining)
	log.Info().Msg("║  → Scan trending tokens + smart wallets  ║")
	log.Info().Msg("║  → Size by tier, confidence, deadline    ║")
	log.Info().Msg("║  → Exit at +50% TP / -15% SL / 48h idle  ║")
	log.Info().Msg("║                                          ║")
	log.Info().Msg("║  🛡️ Hard limits: daily loss, drawdown    ║")
	log.Info().Msg("╚══════════════════════════════════════════╝")
	log.Info().Msg("")

	engine := &engine{
		cfg:      cfg,
		orch:     orch,
		monitor:  monitor,
		db:       db,
		telegram: telegram,
	}

	go engine.run(ctx)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("🛑 Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("🛑 Context cancelled")
	}

	cancel()
	log.Info().Msg("👋 Goodbye!")
}

// engine drives the periodic decision loop
type engine struct {
	cfg      *config.Config
	orch     *strategy.Orchestrator
	monitor  *risk.Monitor
	db       *storage.Database
	telegram *notify.Telegram
}

func (e *engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	e.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

func (e *engine) cycle(ctx context.Context) {
	actions := e.orch.RecommendedActions(ctx)

	limitsOK, violation := e.monitor.CheckLimits(actions.Metrics)
	if !limitsOK {
		log.Warn().Str("violation", violation).Msg("🚨 Risk limit breached, no new entries")
		e.telegram.NotifyLimitBreach(violation)
	}

	var trades, wins, losses int
	pnl := decimal.Zero

	// Sells always run, limits or not
	for _, decision := range actions.SellRecommendations {
		trade, err := e.orch.ExecuteSell(ctx, decision)
		if err != nil {
			e.logTradeError(err, decision.Holding.TokenSymbol)
			continue
		}
		e.persistTrade(trade)
		trades++
		if decision.Holding.ProfitLoss.GreaterThan(decimal.Zero) {
			wins++
		} else {
			losses++
		}
		pnl = pnl.Add(decision.Holding.ProfitLoss)
	}

	if limitsOK {
		buys := actions.BuyCandidates
		if len(buys) > maxBuysPerCycle {
			buys = buys[:maxBuysPerCycle]
		}
		for _, candidate := range buys {
			e.telegram.NotifySignal(candidate.Signal)
			trade, err := e.orch.ExecuteBuy(ctx, candidate.Signal)
			if err != nil {
				e.logTradeError(err, candidate.Signal.Token.Symbol)
				continue
			}
			e.persistTrade(trade)
			trades++
		}
	}

	// Flag winners worth adding to; the add-on goes through the
	// risk-adjustment sizing path before it is surfaced.
	for _, h := range actions.Portfolio.Holdings {
		ok, addOn := e.monitor.ShouldIncreasePosition(h.TokenAddress)
		if !ok {
			continue
		}
		addOn = e.monitor.AdjustPositionSize(addOn, types.RiskHigh)
		log.Info().
			Str("token", h.TokenSymbol).
			Str("add_on", "$"+addOn.StringFixed(2)).
			Msg("📈 Position increase candidate")
	}

	report := e.monitor.BuildReport()
	log.Info().
		Str("value", "$"+actions.Portfolio.TotalValueUSD.StringFixed(2)).
		Str("progress", actions.Progress.ProgressPct.StringFixed(1)+"%").
		Str("required_growth", actions.Metrics.RequiredDailyGrowthPct.StringFixed(1)+"%/day").
		Bool("on_track", actions.Progress.OnTrack).
		Str("sizing", report.SizeRecommendation).
		Msg("📊 Cycle complete")

	e.telegram.NotifyProgress(actions.Progress)
	e.saveDailyState(actions, trades, wins, losses, pnl)
}

func (e *engine) persistTrade(trade types.TradeExecution) {
	if err := e.db.SaveTrade(trade); err != nil {
		log.Error().Err(err).Msg("Failed to persist trade")
	}
}

func (e *engine) saveDailyState(actions strategy.Actions, trades, wins, losses int, pnl decimal.Decimal) {
	date := time.Now().Format("2006-01-02")

	state := &storage.RiskState{
		Date:           date,
		DailyHighValue: actions.Metrics.DailyHighValue,
		AllTimeHigh:    actions.Metrics.AllTimeHigh,
		DailyPnL:       actions.Metrics.DailyPL,
		DailyTrades:    len(e.monitor.DailyTrades()),
	}
	if err := e.db.SaveRiskState(state); err != nil {
		log.Error().Err(err).Msg("Failed to persist risk state")
	}

	err := e.db.UpdateDailyStats(date, trades, wins, losses, pnl, actions.Portfolio.TotalValueUSD)
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist daily stats")
	}
}

func (e *engine) logTradeError(err error, symbol string) {
	if errors.Is(err, exchange.ErrTradingDisabled) {
		log.Debug().Str("token", symbol).Msg("Trade declined: trading disabled")
		return
	}
	log.Error().Err(err).Str("token", symbol).Msg("Trade failed")
}
