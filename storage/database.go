package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Trade and risk-state persistence
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db *gorm.DB
}

// Models

type TradeRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	TokenAddress string `gorm:"index"`
	TokenSymbol  string
	Side         string          // "BUY" or "SELL"
	AmountUSD    decimal.Decimal `gorm:"type:decimal(20,8)"`
	Quantity     decimal.Decimal `gorm:"type:decimal(30,12)"`
	Price        decimal.Decimal `gorm:"type:decimal(30,18)"`
	Fee          decimal.Decimal `gorm:"type:decimal(20,8)"`
	TxHash       string
	Status       string
	SellReason   string
	ExecutedAt   time.Time `gorm:"index"`
	CreatedAt    time.Time
}

type DailyStat struct {
	Date       string `gorm:"primaryKey"` // YYYY-MM-DD
	Trades     int
	Wins       int
	Losses     int
	PnL        decimal.Decimal `gorm:"column:pnl;type:decimal(20,8)"`
	Equity     decimal.Decimal `gorm:"type:decimal(20,8)"`
	UpdatedAt  time.Time
}

type RiskState struct {
	Date           string          `gorm:"primaryKey"` // YYYY-MM-DD
	DailyHighValue decimal.Decimal `gorm:"type:decimal(20,8)"`
	AllTimeHigh    decimal.Decimal `gorm:"type:decimal(20,8)"`
	DailyPnL       decimal.Decimal `gorm:"type:decimal(20,8)"`
	DailyTrades    int
	UpdatedAt      time.Time
}

// New opens the database. A postgres:// DSN selects PostgreSQL,
// anything else is treated as a SQLite file path.
func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("💾 Database connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("💾 Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&TradeRecord{}, &DailyStat{}, &RiskState{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// Trade operations

// SaveTrade persists an executed trade
func (d *Database) SaveTrade(trade types.TradeExecution) error {
	record := TradeRecord{
		TokenAddress: trade.Token.Address,
		TokenSymbol:  trade.Token.Symbol,
		Side:         string(trade.Type),
		AmountUSD:    trade.AmountUSD,
		Quantity:     trade.Quantity,
		Price:        trade.Price,
		Fee:          trade.Fee,
		TxHash:       trade.TxHash,
		Status:       trade.Status,
		SellReason:   trade.Metadata["sell_reason"],
		ExecutedAt:   trade.Timestamp,
	}
	return d.db.Create(&record).Error
}

// Daily stats

// UpdateDailyStats accumulates today's counters and overwrites equity
func (d *Database) UpdateDailyStats(date string, trades, wins, losses int, pnl, equity decimal.Decimal) error {
	var stat DailyStat
	err := d.db.Where("date = ?", date).First(&stat).Error
	if err != nil {
		stat = DailyStat{Date: date}
	}

	stat.Trades += trades
	stat.Wins += wins
	stat.Losses += losses
	stat.PnL = stat.PnL.Add(pnl)
	stat.Equity = equity
	stat.UpdatedAt = time.Now()

	return d.db.Save(&stat).Error
}

// Risk state

// SaveRiskState persists the monitor's state for crash recovery
func (d *Database) SaveRiskState(state *RiskState) error {
	state.UpdatedAt = time.Now()
	return d.db.Save(state).Error
}

// RiskStateFor retrieves the persisted risk state for a date
func (d *Database) RiskStateFor(date string) (*RiskState, error) {
	var state RiskState
	err := d.db.First(&state, "date = ?", date).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Aggregates

// SessionStats summarizes the persisted history across sessions
type SessionStats struct {
	TotalTrades int64
	Buys        int64
	Sells       int64
	TotalPnL    decimal.Decimal
}

// TotalPnL returns the summed daily P/L across all recorded days
func (d *Database) TotalPnL() (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := d.db.Model(&DailyStat{}).Select("COALESCE(SUM(pnl), 0) as total").Scan(&result).Error
	return result.Total, err
}

// Stats returns aggregate counters for startup reporting
func (d *Database) Stats() (SessionStats, error) {
	var stats SessionStats

	if err := d.db.Model(&TradeRecord{}).Count(&stats.TotalTrades).Error; err != nil {
		return stats, err
	}
	if err := d.db.Model(&TradeRecord{}).Where("side = ?", string(types.SignalBuy)).Count(&stats.Buys).Error; err != nil {
		return stats, err
	}
	stats.Sells = stats.TotalTrades - stats.Buys

	pnl, err := d.TotalPnL()
	if err != nil {
		return stats, err
	}
	stats.TotalPnL = pnl

	return stats, nil
}

// Close closes the underlying connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
