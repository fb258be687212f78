package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TREND SIGNALS - Buy signals from trending-token analysis
// ═══════════════════════════════════════════════════════════════════════════════

// MarketScanner is the market analysis surface the trend analyzer needs
type MarketScanner interface {
	FindPotentialTokens(ctx context.Context, maxTokens int) []types.TokenInfo
	EnrichToken(ctx context.Context, token types.TokenInfo) types.TokenInfo
}

// TrendAnalyzer converts trending-token observations into buy signals
type TrendAnalyzer struct {
	scanner   MarketScanner
	maxTokens int

	now func() time.Time
}

// NewTrendAnalyzer creates a trend analyzer
func NewTrendAnalyzer(scanner MarketScanner) *TrendAnalyzer {
	return &TrendAnalyzer{
		scanner:   scanner,
		maxTokens: 5,
		now:       time.Now,
	}
}

// SetClock overrides the analyzer clock, for tests
func (t *TrendAnalyzer) SetClock(now func() time.Time) {
	t.now = now
}

// Signals generates buy signals from the current trending candidates
func (t *TrendAnalyzer) Signals(ctx context.Context) []types.TradingSignal {
	candidates := t.scanner.FindPotentialTokens(ctx, t.maxTokens)

	signals := make([]types.TradingSignal, 0, len(candidates))
	for _, token := range candidates {
		enriched := t.scanner.EnrichToken(ctx, token)

		entry := enriched.PriceUSD
		signal := types.TradingSignal{
			Token:       enriched,
			Type:        types.SignalBuy,
			Confidence:  t.confidence(enriched),
			EntryPrice:  entry,
			TargetPrice: entry.Mul(decimal.NewFromFloat(1.5)),
			StopLoss:    entry.Mul(decimal.NewFromFloat(0.85)),
			RiskLevel:   t.riskLevel(enriched),
			Timestamp:   t.now(),
			Reasoning: fmt.Sprintf("trending token with %s%% 24h change, $%s volume and $%s liquidity",
				enriched.PriceChange24h.StringFixed(2),
				enriched.Volume24h.StringFixed(2),
				enriched.LiquidityUSD.StringFixed(2)),
			Source: "trend_analysis",
		}

		signals = append(signals, signal)
	}

	log.Info().Int("count", len(signals)).Msg("Trend signals generated")
	return signals
}

// confidence starts at 0.5 and shifts with momentum, volume and
// liquidity, clamped to [0.3, 0.9].
func (t *TrendAnalyzer) confidence(token types.TokenInfo) decimal.Decimal {
	confidence := decimal.NewFromFloat(0.5)

	switch {
	case token.PriceChange24h.GreaterThan(decimal.NewFromInt(20)):
		confidence = confidence.Add(decimal.NewFromFloat(0.1))
	case token.PriceChange24h.GreaterThan(decimal.NewFromInt(10)):
		confidence = confidence.Add(decimal.NewFromFloat(0.05))
	case token.PriceChange24h.LessThan(decimal.NewFromInt(-10)):
		confidence = confidence.Sub(decimal.NewFromFloat(0.1))
	}

	switch {
	case token.Volume24h.GreaterThan(decimal.NewFromInt(500000)):
		confidence = confidence.Add(decimal.NewFromFloat(0.1))
	case token.Volume24h.GreaterThan(decimal.NewFromInt(100000)):
		confidence = confidence.Add(decimal.NewFromFloat(0.05))
	}

	switch {
	case token.LiquidityUSD.GreaterThan(decimal.NewFromInt(500000)):
		confidence = confidence.Add(decimal.NewFromFloat(0.1))
	case token.LiquidityUSD.GreaterThan(decimal.NewFromInt(100000)):
		confidence = confidence.Add(decimal.NewFromFloat(0.05))
	case token.LiquidityUSD.GreaterThan(decimal.Zero) && token.LiquidityUSD.LessThan(decimal.NewFromInt(50000)):
		confidence = confidence.Sub(decimal.NewFromFloat(0.1))
	}

	confidence = decimal.Max(decimal.NewFromFloat(0.3), confidence)
	confidence = decimal.Min(decimal.NewFromFloat(0.9), confidence)
	return confidence
}

// riskLevel defaults to HIGH for meme coins, raised for thin or very
// young tokens, lowered for deep liquidity.
func (t *TrendAnalyzer) riskLevel(token types.TokenInfo) types.RiskLevel {
	if token.LiquidityUSD.GreaterThan(decimal.Zero) && token.LiquidityUSD.LessThan(decimal.NewFromInt(50000)) {
		return types.RiskVeryHigh
	}
	if !token.CreatedAt.IsZero() && t.now().Sub(token.CreatedAt) < 3*24*time.Hour {
		return types.RiskVeryHigh
	}
	if token.LiquidityUSD.GreaterThan(decimal.NewFromInt(500000)) {
		return types.RiskMedium
	}
	return types.RiskHigh
}
