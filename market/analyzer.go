package market

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET ANALYZER - Cached market state, candidate scoring, enrichment
// ═══════════════════════════════════════════════════════════════════════════════

const stateCacheTTL = 5 * time.Minute

var _ DataProvider = (*Analyzer)(nil)

// Analyzer composes the market data clients and implements DataProvider
type Analyzer struct {
	mu sync.Mutex

	dex          *DexScreener
	birdeye      *Birdeye
	httpClient   *http.Client
	coingeckoURL string

	state     *State
	updatedAt time.Time

	now func() time.Time
}

// NewAnalyzer creates a market analyzer
func NewAnalyzer(dex *DexScreener, birdeye *Birdeye) *Analyzer {
	return &Analyzer{
		dex:          dex,
		birdeye:      birdeye,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		coingeckoURL: "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd",
		now:          time.Now,
	}
}

// SetClock overrides the analyzer clock, for tests
func (a *Analyzer) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// TrendingTokens implements DataProvider
func (a *Analyzer) TrendingTokens(ctx context.Context, limit int) []types.TokenInfo {
	return a.dex.TrendingTokens(ctx, limit)
}

// TokenPrice implements DataProvider
func (a *Analyzer) TokenPrice(ctx context.Context, address string) decimal.Decimal {
	return a.dex.TokenPrice(ctx, address)
}

// SolPrice fetches the current SOL price from CoinGecko, zero on failure
func (a *Analyzer) SolPrice(ctx context.Context) decimal.Decimal {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.coingeckoURL, nil)
	if err != nil {
		return decimal.Zero
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("SOL price fetch failed")
		return decimal.Zero
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero
	}

	var data struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Debug().Err(err).Msg("SOL price parse failed")
		return decimal.Zero
	}

	return decimal.NewFromFloat(data.Solana.USD)
}

// AnalyzeMarket returns the current market state, cached for five
// minutes. Sentiment is bullish or bearish when one side outnumbers the
// other by 1.5x.
func (a *Analyzer) AnalyzeMarket(ctx context.Context) State {
	a.mu.Lock()
	if a.state != nil && a.now().Sub(a.updatedAt) < stateCacheTTL {
		cached := *a.state
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	trending := a.dex.TrendingTokens(ctx, 20)
	solPrice := a.SolPrice(ctx)

	bullish, bearish := 0, 0
	for _, token := range trending {
		switch {
		case token.PriceChange24h.GreaterThan(decimal.Zero):
			bullish++
		case token.PriceChange24h.LessThan(decimal.Zero):
			bearish++
		}
	}

	sentiment := SentimentNeutral
	if float64(bullish) > float64(bearish)*1.5 {
		sentiment = SentimentBullish
	} else if float64(bearish) > float64(bullish)*1.5 {
		sentiment = SentimentBearish
	}

	state := State{
		TrendingTokens: trending,
		SolPrice:       solPrice,
		Sentiment:      sentiment,
		BullishCount:   bullish,
		BearishCount:   bearish,
		UpdatedAt:      a.now(),
	}

	a.mu.Lock()
	a.state = &state
	a.updatedAt = state.UpdatedAt
	a.mu.Unlock()

	log.Info().
		Str("sentiment", string(sentiment)).
		Str("sol_price", "$"+solPrice.StringFixed(2)).
		Int("tokens", len(trending)).
		Msg("📊 Market analysis completed")

	return state
}

// FindPotentialTokens scores trending tokens and returns the top
// candidates. Tokens below the liquidity or volume floors are skipped.
func (a *Analyzer) FindPotentialTokens(ctx context.Context, maxTokens int) []types.TokenInfo {
	state := a.AnalyzeMarket(ctx)
	if len(state.TrendingTokens) == 0 {
		log.Warn().Msg("No market data available for candidate scoring")
		return nil
	}

	type scored struct {
		token types.TokenInfo
		score decimal.Decimal
	}

	var candidates []scored
	for _, token := range state.TrendingTokens {
		if token.LiquidityUSD.GreaterThan(decimal.Zero) && token.LiquidityUSD.LessThan(decimal.NewFromInt(10000)) {
			continue
		}
		if token.Volume24h.GreaterThan(decimal.Zero) && token.Volume24h.LessThan(decimal.NewFromInt(5000)) {
			continue
		}
		candidates = append(candidates, scored{token: token, score: a.scoreToken(token)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score.GreaterThan(candidates[j].score)
	})

	if len(candidates) > maxTokens {
		candidates = candidates[:maxTokens]
	}

	tokens := make([]types.TokenInfo, len(candidates))
	for i, c := range candidates {
		tokens[i] = c.token
	}

	log.Info().Int("count", len(tokens)).Msg("Candidate tokens selected")
	return tokens
}

// scoreToken rewards positive momentum, depth and recency
func (a *Analyzer) scoreToken(token types.TokenInfo) decimal.Decimal {
	score := decimal.Zero

	if token.PriceChange24h.GreaterThan(decimal.Zero) {
		score = score.Add(token.PriceChange24h.Div(decimal.NewFromInt(10)))
	}
	if token.PriceChange1h.GreaterThan(decimal.Zero) {
		score = score.Add(token.PriceChange1h.Div(decimal.NewFromInt(5)))
	}

	five := decimal.NewFromInt(5)
	if token.LiquidityUSD.GreaterThan(decimal.Zero) {
		score = score.Add(decimal.Min(token.LiquidityUSD.Div(decimal.NewFromInt(1000000)), five))
	}
	if token.Volume24h.GreaterThan(decimal.Zero) {
		score = score.Add(decimal.Min(token.Volume24h.Div(decimal.NewFromInt(500000)), five))
	}

	if !token.CreatedAt.IsZero() {
		daysOld := int(a.now().Sub(token.CreatedAt).Hours() / 24)
		if daysOld <= 7 {
			score = score.Add(decimal.NewFromInt(int64(7 - daysOld)).Div(decimal.NewFromInt(2)))
		}
	}

	return score
}

// EnrichToken appends holder count and extra metadata to a token
// snapshot. Enrichment failures leave the token unchanged.
func (a *Analyzer) EnrichToken(ctx context.Context, token types.TokenInfo) types.TokenInfo {
	holders := a.birdeye.TokenHolders(ctx, token.Address)
	if holders > 0 {
		token.Holders = holders
	}

	extra := a.birdeye.TokenMetadata(ctx, token.Address)
	if len(extra) > 0 {
		if token.Metadata == nil {
			token.Metadata = make(map[string]string, len(extra))
		}
		for k, v := range extra {
			token.Metadata[k] = v
		}
	}

	return token
}
