package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Birdeye fetches supplementary token data (holder counts, metadata)
type Birdeye struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBirdeye creates a Birdeye client. Calls degrade to zero/empty when
// no API key is configured.
func NewBirdeye(baseURL, apiKey string) *Birdeye {
	return &Birdeye{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// TokenHolders returns the holder count for a token, zero on failure
func (b *Birdeye) TokenHolders(ctx context.Context, address string) int {
	var data struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/token/holders?address=%s", b.baseURL, address)
	if !b.fetch(ctx, url, &data) {
		return 0
	}
	return data.Data.Total
}

// TokenMetadata returns extra token metadata as flat string pairs,
// empty on failure.
func (b *Birdeye) TokenMetadata(ctx context.Context, address string) map[string]string {
	var data struct {
		Data map[string]any `json:"data"`
	}

	url := fmt.Sprintf("%s/token/meta?address=%s", b.baseURL, address)
	if !b.fetch(ctx, url, &data) {
		return nil
	}

	meta := make(map[string]string, len(data.Data))
	for k, v := range data.Data {
		meta[k] = fmt.Sprint(v)
	}
	return meta
}

func (b *Birdeye) fetch(ctx context.Context, url string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-API-KEY", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Birdeye fetch failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("Birdeye returned non-200")
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Debug().Err(err).Msg("Birdeye parse failed")
		return false
	}
	return true
}
