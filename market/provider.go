package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// DataProvider is the market data contract the engine consumes. All
// methods return empty/zero results on transient failure; the engine
// treats that as "no data this cycle", never as a fatal error.
type DataProvider interface {
	TrendingTokens(ctx context.Context, limit int) []types.TokenInfo
	TokenPrice(ctx context.Context, address string) decimal.Decimal
	SolPrice(ctx context.Context) decimal.Decimal
}

// Sentiment summarizes the trending-token market direction
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// State is a cached snapshot of market conditions
type State struct {
	TrendingTokens []types.TokenInfo
	SolPrice       decimal.Decimal
	Sentiment      Sentiment
	BullishCount   int
	BearishCount   int
	UpdatedAt      time.Time
}
