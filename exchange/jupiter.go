package exchange

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// JUPITER - Swap quotes and trade execution on Solana
// ═══════════════════════════════════════════════════════════════════════════════

const (
	solMint        = "So11111111111111111111111111111111111111112"
	lamportsPerSol = 1_000_000_000
)

// ErrTradingDisabled is returned when live execution is requested but no
// signing key is configured. Sizing and risk metrics keep running.
var ErrTradingDisabled = errors.New("trading disabled: no signing key configured")

// PriceProvider supplies the USD prices the adapter needs to size swaps
type PriceProvider interface {
	TokenPrice(ctx context.Context, address string) decimal.Decimal
	SolPrice(ctx context.Context) decimal.Decimal
}

// Jupiter executes swaps through the Jupiter v6 aggregator. In dry-run
// mode fills are simulated at the quoted price; live mode requires a
// signing key.
type Jupiter struct {
	baseURL       string
	rpcURL        string
	privateKey    string
	walletAddress string
	dryRun        bool

	prices     PriceProvider
	httpClient *http.Client

	now func() time.Time
}

// NewJupiter creates a Jupiter adapter
func NewJupiter(baseURL, rpcURL, privateKey, walletAddress string, dryRun bool, prices PriceProvider) *Jupiter {
	return &Jupiter{
		baseURL:       baseURL,
		rpcURL:        rpcURL,
		privateKey:    privateKey,
		walletAddress: walletAddress,
		dryRun:        dryRun,
		prices:        prices,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
	}
}

// SetClock overrides the adapter clock, for tests
func (j *Jupiter) SetClock(now func() time.Time) {
	j.now = now
}

type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	SlippageBps    int    `json:"slippageBps"`
}

// Quote fetches a swap quote. Amount is in the input mint's base units.
func (j *Jupiter) Quote(ctx context.Context, inputMint, outputMint string, amount decimal.Decimal) (types.Quote, error) {
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%s&slippageBps=50&swapMode=ExactIn",
		j.baseURL, inputMint, outputMint, amount.Truncate(0).String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.Quote{}, err
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return types.Quote{}, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Quote{}, fmt.Errorf("jupiter quote: status %d", resp.StatusCode)
	}

	var raw quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.Quote{}, fmt.Errorf("jupiter quote: %w", err)
	}

	inAmount, _ := decimal.NewFromString(raw.InAmount)
	outAmount, _ := decimal.NewFromString(raw.OutAmount)
	impact, _ := decimal.NewFromString(raw.PriceImpactPct)

	return types.Quote{
		InputMint:      raw.InputMint,
		OutputMint:     raw.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		PriceImpactPct: impact,
		SlippageBps:    raw.SlippageBps,
	}, nil
}

// BuyToken spends amountUSD worth of SOL on a token
func (j *Jupiter) BuyToken(ctx context.Context, tokenAddress string, amountUSD decimal.Decimal) (types.TradeExecution, error) {
	price := j.prices.TokenPrice(ctx, tokenAddress)
	if price.LessThanOrEqual(decimal.Zero) {
		return types.TradeExecution{}, fmt.Errorf("no price available for %s", tokenAddress)
	}

	solPrice := j.prices.SolPrice(ctx)
	if solPrice.LessThanOrEqual(decimal.Zero) {
		return types.TradeExecution{}, fmt.Errorf("no SOL price available")
	}

	lamports := amountUSD.Div(solPrice).Mul(decimal.NewFromInt(lamportsPerSol))
	quantity := amountUSD.Div(price)

	txHash, err := j.execute(ctx, solMint, tokenAddress, lamports)
	if err != nil {
		return types.TradeExecution{}, err
	}

	trade := types.TradeExecution{
		Token: types.TokenInfo{
			Address:  tokenAddress,
			PriceUSD: price,
		},
		Type:      types.SignalBuy,
		AmountUSD: amountUSD,
		Quantity:  quantity,
		Price:     price,
		Timestamp: j.now(),
		TxHash:    txHash,
		Fee:       decimal.NewFromFloat(0.000005).Mul(solPrice),
		Status:    j.status(),
	}

	log.Info().
		Str("token", tokenAddress).
		Str("amount", "$"+amountUSD.StringFixed(2)).
		Str("quantity", quantity.String()).
		Msg("🛒 Buy order placed")

	return trade, nil
}

// SellToken sells a token quantity back into SOL
func (j *Jupiter) SellToken(ctx context.Context, tokenAddress string, quantity decimal.Decimal) (types.TradeExecution, error) {
	price := j.prices.TokenPrice(ctx, tokenAddress)
	if price.LessThanOrEqual(decimal.Zero) {
		return types.TradeExecution{}, fmt.Errorf("no price available for %s", tokenAddress)
	}

	amountUSD := quantity.Mul(price)

	txHash, err := j.execute(ctx, tokenAddress, solMint, quantity)
	if err != nil {
		return types.TradeExecution{}, err
	}

	solPrice := j.prices.SolPrice(ctx)

	trade := types.TradeExecution{
		Token: types.TokenInfo{
			Address:  tokenAddress,
			PriceUSD: price,
		},
		Type:      types.SignalSell,
		AmountUSD: amountUSD,
		Quantity:  quantity,
		Price:     price,
		Timestamp: j.now(),
		TxHash:    txHash,
		Fee:       decimal.NewFromFloat(0.000005).Mul(solPrice),
		Status:    j.status(),
	}

	log.Info().
		Str("token", tokenAddress).
		Str("amount", "$"+amountUSD.StringFixed(2)).
		Msg("💰 Sell order placed")

	return trade, nil
}

func (j *Jupiter) status() string {
	if j.dryRun {
		return "simulated"
	}
	return "completed"
}

// execute routes an order: simulated hash in dry-run, otherwise a real
// quote + swap round trip that requires a signing key.
func (j *Jupiter) execute(ctx context.Context, inputMint, outputMint string, amount decimal.Decimal) (string, error) {
	if j.dryRun {
		return simulatedTxHash(), nil
	}
	if j.privateKey == "" {
		return "", ErrTradingDisabled
	}

	quote, err := j.rawQuote(ctx, inputMint, outputMint, amount)
	if err != nil {
		return "", err
	}
	return j.submitSwap(ctx, quote)
}

// rawQuote keeps the quote response verbatim for the swap request
func (j *Jupiter) rawQuote(ctx context.Context, inputMint, outputMint string, amount decimal.Decimal) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%s&slippageBps=50&swapMode=ExactIn",
		j.baseURL, inputMint, outputMint, amount.Truncate(0).String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote: status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	return raw, nil
}

// submitSwap requests the swap transaction from Jupiter and submits it
// to the configured RPC node.
func (j *Jupiter) submitSwap(ctx context.Context, quote json.RawMessage) (string, error) {
	body, err := json.Marshal(map[string]any{
		"quoteResponse": quote,
		"userPublicKey": j.walletAddress,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("jupiter swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jupiter swap: status %d", resp.StatusCode)
	}

	var swap struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&swap); err != nil {
		return "", fmt.Errorf("jupiter swap: %w", err)
	}

	return j.sendTransaction(ctx, swap.SwapTransaction)
}

// sendTransaction submits a signed transaction to the Solana RPC node
func (j *Jupiter) sendTransaction(ctx context.Context, signedTx string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendTransaction",
		"params":  []any{signedTx, map[string]string{"encoding": "base64"}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.rpcURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("send transaction: %s", result.Error.Message)
	}

	return result.Result, nil
}

// simulatedTxHash generates a fake transaction hash for dry-run fills
func simulatedTxHash() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "simulated"
	}
	return "sim-" + hex.EncodeToString(buf)
}
