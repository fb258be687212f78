package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the engine
type Config struct {
	// Challenge parameters
	InitialCapital decimal.Decimal
	TargetValue    decimal.Decimal
	DaysRemaining  int

	// Risk limits
	MaxRiskPerTrade  decimal.Decimal // fraction of capital per trade
	MaxDailyLoss     decimal.Decimal
	MaxDrawdown      decimal.Decimal
	MaxPortfolioRisk decimal.Decimal
	StopFraction     decimal.Decimal // assumed worst-case loss per position

	// Trade filters
	MinTradeUSD   decimal.Decimal
	MinConfidence decimal.Decimal

	// Exit defaults
	TakeProfitPct decimal.Decimal // P/L% that triggers take profit
	StopLossPct   decimal.Decimal // P/L% that triggers stop loss
	MaxHoldTime   time.Duration

	// Loop timing
	SignalCacheTTL time.Duration
	CycleInterval  time.Duration

	// Mode
	DryRun bool
	Debug  bool

	// Solana
	SolanaPrivateKey string
	SolanaWallet     string
	SolanaRPCURL     string
	JupiterAPIURL    string
	TrackedWallets   []string

	// Market data
	DexScreenerURL string
	BirdeyeURL     string
	BirdeyeAPIKey  string
	HeliusURL      string
	HeliusAPIKey   string

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Database
	DatabasePath string
	PostgresDSN  string // overrides DatabasePath when set
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		InitialCapital: getEnvDecimal("INITIAL_CAPITAL", decimal.NewFromFloat(200)),
		TargetValue:    getEnvDecimal("TARGET_VALUE", decimal.NewFromFloat(10000)),
		DaysRemaining:  getEnvInt("DAYS_REMAINING", 10),

		MaxRiskPerTrade:  getEnvDecimal("MAX_RISK_PER_TRADE", decimal.NewFromFloat(0.15)),
		MaxDailyLoss:     getEnvDecimal("MAX_DAILY_LOSS", decimal.NewFromFloat(0.2)),
		MaxDrawdown:      getEnvDecimal("MAX_DRAWDOWN", decimal.NewFromFloat(0.3)),
		MaxPortfolioRisk: getEnvDecimal("MAX_PORTFOLIO_RISK", decimal.NewFromFloat(0.5)),
		StopFraction:     getEnvDecimal("STOP_FRACTION", decimal.NewFromFloat(0.15)),

		MinTradeUSD:   getEnvDecimal("MIN_TRADE_USD", decimal.NewFromFloat(10)),
		MinConfidence: getEnvDecimal("MIN_CONFIDENCE", decimal.NewFromFloat(0.4)),

		TakeProfitPct: getEnvDecimal("TAKE_PROFIT_PCT", decimal.NewFromFloat(50)),
		StopLossPct:   getEnvDecimal("STOP_LOSS_PCT", decimal.NewFromFloat(-15)),
		MaxHoldTime:   getEnvDuration("MAX_HOLD_TIME", 48*time.Hour),

		SignalCacheTTL: getEnvDuration("SIGNAL_CACHE_TTL", 30*time.Minute),
		CycleInterval:  getEnvDuration("CYCLE_INTERVAL", 5*time.Minute),

		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		SolanaPrivateKey: os.Getenv("SOLANA_PRIVATE_KEY"),
		SolanaWallet:     os.Getenv("SOLANA_WALLET_ADDRESS"),
		SolanaRPCURL:     getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		JupiterAPIURL:    getEnv("JUPITER_API_URL", "https://quote-api.jup.ag/v6"),
		TrackedWallets:   getEnvList("TRACKED_WALLETS"),

		DexScreenerURL: getEnv("DEXSCREENER_API_URL", "https://api.dexscreener.com/latest"),
		BirdeyeURL:     getEnv("BIRDEYE_API_URL", "https://public-api.birdeye.so/v1"),
		BirdeyeAPIKey:  os.Getenv("BIRDEYE_API_KEY"),
		HeliusURL:      getEnv("HELIUS_API_URL", "https://api.helius.xyz"),
		HeliusAPIKey:   os.Getenv("HELIUS_API_KEY"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabasePath: getEnv("DATABASE_PATH", "data/moonshot.db"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("INITIAL_CAPITAL must be positive")
	}
	if cfg.TargetValue.LessThanOrEqual(cfg.InitialCapital) {
		return nil, fmt.Errorf("TARGET_VALUE must exceed INITIAL_CAPITAL")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
