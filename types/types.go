package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// SignalType is the direction of a trading signal or trade
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// RiskLevel classifies how risky a trade is
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// TokenInfo is an immutable snapshot of a token's market data.
// Re-fetched each cycle, never mutated in place except to append
// enrichment fields to Metadata.
type TokenInfo struct {
	Symbol         string
	Name           string
	Address        string // unique chain address, holding key
	PriceUSD       decimal.Decimal
	MarketCap      decimal.Decimal
	Volume24h      decimal.Decimal
	PriceChange24h decimal.Decimal // percent
	PriceChange1h  decimal.Decimal // percent
	LiquidityUSD   decimal.Decimal
	Holders        int
	CreatedAt      time.Time
	Metadata       map[string]string
}

// TradingSignal is a scored recommendation produced fresh each refresh
// cycle. Never mutated after creation; the recommended position size is
// carried by the ScoredSignal companion value instead.
type TradingSignal struct {
	Token       TokenInfo
	Type        SignalType
	Confidence  decimal.Decimal // 0..1
	EntryPrice  decimal.Decimal
	TargetPrice decimal.Decimal
	StopLoss    decimal.Decimal
	RiskLevel   RiskLevel
	Timestamp   time.Time
	Reasoning   string
	Source      string // "trend_analysis", "wallet_tracking"
	Metadata    map[string]string
}

// ScoredSignal pairs a buy signal with its computed position size
type ScoredSignal struct {
	Signal          TradingSignal
	RecommendedSize decimal.Decimal // USD
}

// Holding is the engine's record of a currently-owned token quantity.
// One per distinct token address.
type Holding struct {
	TokenAddress  string
	TokenSymbol   string
	TokenName     string
	Quantity      decimal.Decimal
	AveragePrice  decimal.Decimal // cost basis per unit
	CostBasis     decimal.Decimal // aggregate
	CurrentPrice  decimal.Decimal
	CurrentValue  decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal
	PurchasedAt   time.Time
	LastUpdated   time.Time
}

// Age reports how long the holding has been open
func (h Holding) Age(now time.Time) time.Duration {
	return now.Sub(h.PurchasedAt)
}

// TradeExecution is an immutable record of a completed trade.
// Appended to history, never modified or deleted.
type TradeExecution struct {
	Token     TokenInfo
	Type      SignalType
	AmountUSD decimal.Decimal
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Timestamp time.Time
	TxHash    string
	Fee       decimal.Decimal
	Status    string
	Metadata  map[string]string // e.g. sell reason
}

// Portfolio is the derived view of the ledger, recomputed on snapshot
type Portfolio struct {
	TotalValueUSD    decimal.Decimal
	InitialCapital   decimal.Decimal
	AvailableCapital decimal.Decimal
	ProfitLoss       decimal.Decimal
	ProfitLossPct    decimal.Decimal
	Holdings         []Holding
	TradeHistory     []TradeExecution
	UpdatedAt        time.Time
}

// FindHolding returns the holding for a token address, if any
func (p Portfolio) FindHolding(address string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.TokenAddress == address {
			return h, true
		}
	}
	return Holding{}, false
}

// RiskMetrics is recomputed each cycle from the ledger snapshot.
// All percentage fields are in percent units (0..100), all ratio
// computations are guarded so values are never NaN or infinite.
type RiskMetrics struct {
	CurrentValue           decimal.Decimal
	DailyHighValue         decimal.Decimal
	AllTimeHigh            decimal.Decimal
	DailyDrawdownPct       decimal.Decimal
	MaxDrawdownPct         decimal.Decimal
	DailyPL                decimal.Decimal
	DailyPLPct             decimal.Decimal
	RiskExposure           decimal.Decimal // worst-case USD loss across holdings
	RiskExposurePct        decimal.Decimal
	RequiredDailyGrowthPct decimal.Decimal
	RiskBudgetPct          decimal.Decimal
	MaxDailyLossPct        decimal.Decimal
	MaxDrawdownLimitPct    decimal.Decimal
	MaxRiskPerTradePct     decimal.Decimal
	MaxPortfolioRiskPct    decimal.Decimal
	LastUpdated            time.Time
}

// Quote is a swap quote from the exchange
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       decimal.Decimal
	OutAmount      decimal.Decimal
	PriceImpactPct decimal.Decimal
	SlippageBps    int
}

// WalletInfo describes a tracked wallet used for copy-trade signals
type WalletInfo struct {
	Address          string
	Name             string
	Tags             []string
	WinRate7d        decimal.Decimal // 0..1 trailing win rate
	TotalTrades      int
	SuccessfulTrades int
	Metadata         map[string]string
}

// WalletTransaction is a single historical transaction of a tracked wallet
type WalletTransaction struct {
	Signature    string
	Timestamp    time.Time
	Type         string // "buy" or "sell"
	TokenSymbol  string
	TokenName    string
	TokenAddress string
	AmountSol    decimal.Decimal
	Success      bool
}
