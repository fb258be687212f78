package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DEXSCREENER - Trending Solana tokens and price lookups
// ═══════════════════════════════════════════════════════════════════════════════

// DexScreener fetches trending meme coins on Solana
type DexScreener struct {
	baseURL    string
	httpClient *http.Client
}

// NewDexScreener creates a DexScreener client
func NewDexScreener(baseURL string) *DexScreener {
	return &DexScreener{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type dexPair struct {
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"baseToken"`
	PriceUSD    string  `json:"priceUsd"`
	FDV         float64 `json:"fdv"`
	PriceChange struct {
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PairCreatedAt int64 `json:"pairCreatedAt"`
}

type pairResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// TrendingTokens returns trending Solana tokens sorted by 24h volume.
// Returns an empty slice on any transient failure.
func (d *DexScreener) TrendingTokens(ctx context.Context, limit int) []types.TokenInfo {
	url := fmt.Sprintf("%s/dex/search?q=meme&chain=solana", d.baseURL)

	data, ok := d.fetchPairs(ctx, url)
	if !ok || len(data.Pairs) == 0 {
		return nil
	}

	sort.Slice(data.Pairs, func(i, j int) bool {
		return data.Pairs[i].Volume.H24 > data.Pairs[j].Volume.H24
	})

	tokens := make([]types.TokenInfo, 0, limit)
	for _, pair := range data.Pairs {
		if len(tokens) >= limit {
			break
		}
		tokens = append(tokens, pair.toToken())
	}

	log.Info().Int("count", len(tokens)).Msg("🔎 Trending tokens fetched")
	return tokens
}

// TokenInfo looks up a single token by address, using the pair with the
// highest liquidity. Returns false when no data is available.
func (d *DexScreener) TokenInfo(ctx context.Context, address string) (types.TokenInfo, bool) {
	url := fmt.Sprintf("%s/dex/tokens/%s", d.baseURL, address)

	data, ok := d.fetchPairs(ctx, url)
	if !ok || len(data.Pairs) == 0 {
		return types.TokenInfo{}, false
	}

	sort.Slice(data.Pairs, func(i, j int) bool {
		return data.Pairs[i].Liquidity.USD > data.Pairs[j].Liquidity.USD
	})

	token := data.Pairs[0].toToken()
	token.Address = address
	return token, true
}

// TokenPrice returns the current USD price for a token, zero when
// unavailable.
func (d *DexScreener) TokenPrice(ctx context.Context, address string) decimal.Decimal {
	token, ok := d.TokenInfo(ctx, address)
	if !ok {
		return decimal.Zero
	}
	return token.PriceUSD
}

func (d *DexScreener) fetchPairs(ctx context.Context, url string) (pairResponse, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pairResponse{}, false
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("DexScreener fetch failed")
		return pairResponse{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("DexScreener returned non-200")
		return pairResponse{}, false
	}

	var data pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Debug().Err(err).Msg("DexScreener parse failed")
		return pairResponse{}, false
	}

	return data, true
}

func (p dexPair) toToken() types.TokenInfo {
	price, err := decimal.NewFromString(p.PriceUSD)
	if err != nil {
		price = decimal.Zero
	}

	var createdAt time.Time
	if p.PairCreatedAt > 0 {
		createdAt = time.UnixMilli(p.PairCreatedAt)
	}

	return types.TokenInfo{
		Symbol:         p.BaseToken.Symbol,
		Name:           p.BaseToken.Name,
		Address:        p.BaseToken.Address,
		PriceUSD:       price,
		MarketCap:      decimal.NewFromFloat(p.FDV),
		Volume24h:      decimal.NewFromFloat(p.Volume.H24),
		PriceChange24h: decimal.NewFromFloat(p.PriceChange.H24),
		PriceChange1h:  decimal.NewFromFloat(p.PriceChange.H1),
		LiquidityUSD:   decimal.NewFromFloat(p.Liquidity.USD),
		CreatedAt:      createdAt,
		Metadata: map[string]string{
			"dex":          p.DexID,
			"pair_address": p.PairAddress,
		},
	}
}
