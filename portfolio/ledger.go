package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PORTFOLIO LEDGER - Single writer for capital, holdings and trade history
// ═══════════════════════════════════════════════════════════════════════════════
//
// All mutations go through ApplyTrade under one mutex. Price lookups and
// other network-bound work happen before the lock is taken, never inside a
// mutation, so every update is atomic from the perspective of readers.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNoHolding is returned when a SELL references a token the ledger
	// does not hold. The trade is not applied.
	ErrNoHolding = errors.New("no holding for token")

	// ErrInsufficientCapital is returned when a BUY exceeds available
	// capital. The trade is not applied.
	ErrInsufficientCapital = errors.New("insufficient available capital")
)

// fullSellTolerance treats a sell of >= 99.99% of a holding's quantity as a
// full exit, absorbing float dust from upstream quantity conversions.
var fullSellTolerance = decimal.NewFromFloat(0.0001)

// PriceSource resolves a token's current USD price. A zero result means
// the price is unavailable this cycle.
type PriceSource interface {
	TokenPrice(ctx context.Context, address string) decimal.Decimal
}

// Ledger owns the authoritative portfolio state
type Ledger struct {
	mu sync.Mutex

	initialCapital   decimal.Decimal
	availableCapital decimal.Decimal
	holdings         []*types.Holding
	history          []types.TradeExecution
	lastUpdated      time.Time

	now func() time.Time
}

// NewLedger creates a ledger seeded with the starting capital
func NewLedger(initialCapital decimal.Decimal) *Ledger {
	return &Ledger{
		initialCapital:   initialCapital,
		availableCapital: initialCapital,
		now:              time.Now,
	}
}

// SetClock overrides the ledger clock, for tests
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// ApplyTrade applies a completed trade to the ledger state.
// BUY merges into an existing holding or creates one and debits capital.
// SELL reduces or removes the holding and credits capital.
// History is append-only and ordered by execution.
func (l *Ledger) ApplyTrade(trade types.TradeExecution) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch trade.Type {
	case types.SignalBuy:
		if trade.AmountUSD.GreaterThan(l.availableCapital) {
			return fmt.Errorf("buy $%s exceeds available $%s: %w",
				trade.AmountUSD.StringFixed(2), l.availableCapital.StringFixed(2), ErrInsufficientCapital)
		}
		l.applyBuy(trade)
	case types.SignalSell:
		h := l.findHolding(trade.Token.Address)
		if h == nil {
			return fmt.Errorf("sell %s: %w", trade.Token.Address, ErrNoHolding)
		}
		l.applySell(h, trade)
	default:
		return fmt.Errorf("unknown trade type %q", trade.Type)
	}

	l.history = append(l.history, trade)
	l.lastUpdated = l.now()

	log.Info().
		Str("side", string(trade.Type)).
		Str("token", trade.Token.Symbol).
		Str("amount", "$"+trade.AmountUSD.StringFixed(2)).
		Str("available", "$"+l.availableCapital.StringFixed(2)).
		Msg("📒 Trade applied")

	return nil
}

func (l *Ledger) applyBuy(trade types.TradeExecution) {
	now := l.now()

	if h := l.findHolding(trade.Token.Address); h != nil {
		newQuantity := h.Quantity.Add(trade.Quantity)
		newCostBasis := h.CostBasis.Add(trade.AmountUSD)

		h.Quantity = newQuantity
		h.CostBasis = newCostBasis
		if !newQuantity.IsZero() {
			h.AveragePrice = newCostBasis.Div(newQuantity)
		}
		h.CurrentPrice = trade.Price
		h.CurrentValue = newQuantity.Mul(trade.Price)
		h.LastUpdated = now
	} else {
		l.holdings = append(l.holdings, &types.Holding{
			TokenAddress: trade.Token.Address,
			TokenSymbol:  trade.Token.Symbol,
			TokenName:    trade.Token.Name,
			Quantity:     trade.Quantity,
			AveragePrice: trade.Price,
			CostBasis:    trade.AmountUSD,
			CurrentPrice: trade.Price,
			CurrentValue: trade.Quantity.Mul(trade.Price),
			PurchasedAt:  trade.Timestamp,
			LastUpdated:  now,
		})
	}

	l.availableCapital = l.availableCapital.Sub(trade.AmountUSD)
}

func (l *Ledger) applySell(h *types.Holding, trade types.TradeExecution) {
	threshold := h.Quantity.Mul(decimal.NewFromInt(1).Sub(fullSellTolerance))

	if trade.Quantity.GreaterThanOrEqual(threshold) {
		l.removeHolding(h.TokenAddress)
	} else {
		sellRatio := trade.Quantity.Div(h.Quantity)
		h.CostBasis = h.CostBasis.Sub(h.CostBasis.Mul(sellRatio))
		h.Quantity = h.Quantity.Sub(trade.Quantity)
		h.CurrentPrice = trade.Price
		h.CurrentValue = h.Quantity.Mul(trade.Price)
		h.LastUpdated = l.now()
	}

	l.availableCapital = l.availableCapital.Add(trade.AmountUSD)
}

// RefreshValuations re-prices every holding against the price source.
// A failed lookup for one token is logged and skipped so the remaining
// holdings still refresh. All lookups run before the lock is taken.
func (l *Ledger) RefreshValuations(ctx context.Context, prices PriceSource) {
	l.mu.Lock()
	addresses := make([]string, 0, len(l.holdings))
	for _, h := range l.holdings {
		addresses = append(addresses, h.TokenAddress)
	}
	l.mu.Unlock()

	fetched := make(map[string]decimal.Decimal, len(addresses))
	for _, addr := range addresses {
		price := prices.TokenPrice(ctx, addr)
		if price.IsZero() {
			log.Warn().Str("token", addr).Msg("Price unavailable, skipping valuation")
			continue
		}
		fetched[addr] = price
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.holdings {
		price, ok := fetched[h.TokenAddress]
		if !ok {
			continue
		}
		h.CurrentPrice = price
		h.CurrentValue = h.Quantity.Mul(price)
		h.ProfitLoss = h.CurrentValue.Sub(h.CostBasis)
		if h.CostBasis.GreaterThan(decimal.Zero) {
			h.ProfitLossPct = h.ProfitLoss.Div(h.CostBasis).Mul(decimal.NewFromInt(100))
		} else {
			h.ProfitLossPct = decimal.Zero
		}
		h.LastUpdated = l.now()
	}
	l.lastUpdated = l.now()
}

// Snapshot returns the derived portfolio view. Pure read.
func (l *Ledger) Snapshot() types.Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()

	holdingsValue := decimal.Zero
	holdings := make([]types.Holding, len(l.holdings))
	for i, h := range l.holdings {
		holdings[i] = *h
		holdingsValue = holdingsValue.Add(h.CurrentValue)
	}

	history := make([]types.TradeExecution, len(l.history))
	copy(history, l.history)

	totalValue := l.availableCapital.Add(holdingsValue)
	profitLoss := totalValue.Sub(l.initialCapital)
	profitLossPct := decimal.Zero
	if l.initialCapital.GreaterThan(decimal.Zero) {
		profitLossPct = profitLoss.Div(l.initialCapital).Mul(decimal.NewFromInt(100))
	}

	return types.Portfolio{
		TotalValueUSD:    totalValue,
		InitialCapital:   l.initialCapital,
		AvailableCapital: l.availableCapital,
		ProfitLoss:       profitLoss,
		ProfitLossPct:    profitLossPct,
		Holdings:         holdings,
		TradeHistory:     history,
		UpdatedAt:        l.lastUpdated,
	}
}

func (l *Ledger) findHolding(address string) *types.Holding {
	for _, h := range l.holdings {
		if h.TokenAddress == address {
			return h
		}
	}
	return nil
}

func (l *Ledger) removeHolding(address string) {
	for i, h := range l.holdings {
		if h.TokenAddress == address {
			l.holdings = append(l.holdings[:i], l.holdings[i+1:]...)
			return
		}
	}
}
