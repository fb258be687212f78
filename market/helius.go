package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// Helius fetches parsed wallet transaction history from the Helius
// enhanced transactions API. Degrades to empty results when no API key
// is configured.
type Helius struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHelius creates a Helius client
func NewHelius(baseURL, apiKey string) *Helius {
	return &Helius{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type heliusTx struct {
	Signature        string `json:"signature"`
	Timestamp        int64  `json:"timestamp"`
	Type             string `json:"type"`
	TransactionError any    `json:"transactionError"`
	TokenTransfers   []struct {
		FromUserAccount string  `json:"fromUserAccount"`
		ToUserAccount   string  `json:"toUserAccount"`
		Mint            string  `json:"mint"`
		TokenAmount     float64 `json:"tokenAmount"`
	} `json:"tokenTransfers"`
	NativeTransfers []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          int64  `json:"amount"` // lamports
	} `json:"nativeTransfers"`
}

// WalletTransactions returns the recent swap history of a wallet as
// buy/sell records. Empty on failure or when unconfigured.
func (h *Helius) WalletTransactions(ctx context.Context, address string, limit int) []types.WalletTransaction {
	if h.apiKey == "" {
		return nil
	}

	url := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s&type=SWAP&limit=%d",
		h.baseURL, address, h.apiKey, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Helius fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("Helius returned non-200")
		return nil
	}

	var raw []heliusTx
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		log.Debug().Err(err).Msg("Helius parse failed")
		return nil
	}

	txs := make([]types.WalletTransaction, 0, len(raw))
	for _, tx := range raw {
		parsed, ok := tx.toWalletTransaction(address)
		if !ok {
			continue
		}
		txs = append(txs, parsed)
	}
	return txs
}

// wrappedSolMint is the SOL leg of a swap, skipped during classification
const wrappedSolMint = "So11111111111111111111111111111111111111112"

// toWalletTransaction classifies a swap relative to the wallet by its
// non-SOL legs: receiving a token is a buy, sending one a sell. A
// token-to-token swap counts as a buy of the token received, whatever
// order the transfers appear in.
func (t heliusTx) toWalletTransaction(wallet string) (types.WalletTransaction, bool) {
	tx := types.WalletTransaction{
		Signature: t.Signature,
		Timestamp: time.Unix(t.Timestamp, 0),
		Success:   t.TransactionError == nil,
	}

	for _, transfer := range t.TokenTransfers {
		if transfer.Mint == wrappedSolMint {
			continue
		}
		if transfer.ToUserAccount == wallet {
			tx.Type = "buy"
			tx.TokenAddress = transfer.Mint
			break
		}
		if transfer.FromUserAccount == wallet && tx.Type == "" {
			tx.Type = "sell"
			tx.TokenAddress = transfer.Mint
		}
	}
	if tx.Type == "" {
		return types.WalletTransaction{}, false
	}

	lamportsPerSol := decimal.NewFromInt(1_000_000_000)
	for _, transfer := range t.NativeTransfers {
		if transfer.FromUserAccount == wallet || transfer.ToUserAccount == wallet {
			tx.AmountSol = tx.AmountSol.Add(decimal.NewFromInt(transfer.Amount).Div(lamportsPerSol))
		}
	}

	return tx, true
}
