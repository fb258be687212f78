package signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WALLET TRACKING - Copy signals from profitable wallets
// ═══════════════════════════════════════════════════════════════════════════════

const (
	recentBuyLookback = 24 * time.Hour
	winRateLookback   = 7 * 24 * time.Hour
	minWalletWinRate  = 0.5
)

// TxSource fetches the recent transaction history of a wallet.
// Returns an empty slice on transient failure.
type TxSource interface {
	WalletTransactions(ctx context.Context, address string, limit int) []types.WalletTransaction
}

// TokenLookup resolves a token address to its current market snapshot
type TokenLookup interface {
	TokenInfo(ctx context.Context, address string) (types.TokenInfo, bool)
}

// WalletTracker watches a set of wallets and turns their recent buys
// into copy-trade signals, weighted by each wallet's trailing win rate.
type WalletTracker struct {
	mu sync.Mutex

	source  TxSource
	tokens  TokenLookup
	wallets []types.WalletInfo

	now func() time.Time
}

// NewWalletTracker creates a wallet tracker for the given addresses
func NewWalletTracker(source TxSource, tokens TokenLookup, addresses []string) *WalletTracker {
	wallets := make([]types.WalletInfo, 0, len(addresses))
	for i, addr := range addresses {
		wallets = append(wallets, types.WalletInfo{
			Address: addr,
			Name:    fmt.Sprintf("wallet-%d", i+1),
		})
	}
	return &WalletTracker{
		source:  source,
		tokens:  tokens,
		wallets: wallets,
		now:     time.Now,
	}
}

// SetClock overrides the tracker clock, for tests
func (w *WalletTracker) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

// Wallets returns the tracked wallet set with its latest stats
func (w *WalletTracker) Wallets() []types.WalletInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]types.WalletInfo, len(w.wallets))
	copy(out, w.wallets)
	return out
}

// Signals generates copy-trade buy signals from recent wallet activity.
// Wallets with a trailing win rate below 0.5 are skipped entirely.
func (w *WalletTracker) Signals(ctx context.Context) []types.TradingSignal {
	w.mu.Lock()
	wallets := make([]types.WalletInfo, len(w.wallets))
	copy(wallets, w.wallets)
	now := w.now()
	w.mu.Unlock()

	var signals []types.TradingSignal
	for i, wallet := range wallets {
		txs := w.source.WalletTransactions(ctx, wallet.Address, 50)
		if len(txs) == 0 {
			continue
		}

		wallet = analyzePerformance(wallet, txs, now)

		w.mu.Lock()
		w.wallets[i] = wallet
		w.mu.Unlock()

		if wallet.WinRate7d.LessThan(decimal.NewFromFloat(minWalletWinRate)) {
			log.Debug().
				Str("wallet", wallet.Address).
				Str("win_rate", wallet.WinRate7d.StringFixed(2)).
				Msg("Wallet below win rate floor, skipping")
			continue
		}

		for _, tx := range recentBuys(txs, now) {
			signal, ok := w.copySignal(ctx, wallet, tx, now)
			if !ok {
				continue
			}
			signals = append(signals, signal)
		}
	}

	log.Info().Int("count", len(signals)).Msg("Wallet copy signals generated")
	return signals
}

// analyzePerformance recomputes a wallet's trailing 7-day win rate from
// its successful sells. Older transactions in the batch are ignored.
func analyzePerformance(wallet types.WalletInfo, txs []types.WalletTransaction, now time.Time) types.WalletInfo {
	total, wins := 0, 0
	for _, tx := range txs {
		if tx.Type != "sell" {
			continue
		}
		if now.Sub(tx.Timestamp) > winRateLookback {
			continue
		}
		total++
		if tx.Success {
			wins++
		}
	}

	wallet.TotalTrades = total
	wallet.SuccessfulTrades = wins
	if total > 0 {
		wallet.WinRate7d = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(total)))
	} else {
		wallet.WinRate7d = decimal.Zero
	}
	return wallet
}

// recentBuys filters a transaction list to buys inside the lookback window
func recentBuys(txs []types.WalletTransaction, now time.Time) []types.WalletTransaction {
	var buys []types.WalletTransaction
	for _, tx := range txs {
		if tx.Type != "buy" || !tx.Success {
			continue
		}
		if now.Sub(tx.Timestamp) > recentBuyLookback {
			continue
		}
		buys = append(buys, tx)
	}
	return buys
}

func (w *WalletTracker) copySignal(ctx context.Context, wallet types.WalletInfo, tx types.WalletTransaction, now time.Time) (types.TradingSignal, bool) {
	token, ok := w.tokens.TokenInfo(ctx, tx.TokenAddress)
	if !ok || token.PriceUSD.LessThanOrEqual(decimal.Zero) {
		return types.TradingSignal{}, false
	}

	confidence := decimal.Min(
		decimal.NewFromFloat(0.5).Add(wallet.WinRate7d),
		decimal.NewFromFloat(0.95),
	)

	entry := token.PriceUSD
	return types.TradingSignal{
		Token:       token,
		Type:        types.SignalBuy,
		Confidence:  confidence,
		EntryPrice:  entry,
		TargetPrice: entry.Mul(decimal.NewFromFloat(1.5)),
		StopLoss:    entry.Mul(decimal.NewFromFloat(0.85)),
		RiskLevel:   types.RiskHigh,
		Timestamp:   now,
		Reasoning: fmt.Sprintf("wallet %s (win rate %s%%) bought %s",
			wallet.Name,
			wallet.WinRate7d.Mul(decimal.NewFromInt(100)).StringFixed(0),
			token.Symbol),
		Source: "wallet_tracking",
		Metadata: map[string]string{
			"wallet_address": wallet.Address,
			"tx_signature":   tx.Signature,
		},
	}, true
}
