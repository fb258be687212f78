package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xkylo/moonshot/strategy"
	"github.com/0xkylo/moonshot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM - Trade and signal notifications
// ═══════════════════════════════════════════════════════════════════════════════

// Telegram sends notifications to a single chat. A nil receiver is a
// valid disabled notifier, so callers never branch on configuration.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier. Returns nil (disabled) when
// no token is configured.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		log.Info().Msg("Telegram not configured, notifications disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram notifier initialized")
	return &Telegram{api: api, chatID: chatID}, nil
}

// NotifyTrade reports an executed trade
func (t *Telegram) NotifyTrade(action, symbol string, amountUSD decimal.Decimal, reason string) {
	if t == nil {
		return
	}

	emoji := "🛒"
	if action != string(types.SignalBuy) {
		emoji = "💰"
	}

	t.send(fmt.Sprintf("%s *%s %s*\nAmount: $%s\n%s",
		emoji, action, symbol, amountUSD.StringFixed(2), reason))
}

// NotifySignal reports a new high-confidence signal
func (t *Telegram) NotifySignal(signal types.TradingSignal) {
	if t == nil {
		return
	}

	t.send(fmt.Sprintf("📡 *Signal: %s %s*\nConfidence: %s\nEntry: $%s\nTarget: $%s\nStop: $%s\nRisk: %s\n%s",
		signal.Type,
		signal.Token.Symbol,
		signal.Confidence.StringFixed(2),
		signal.EntryPrice.String(),
		signal.TargetPrice.String(),
		signal.StopLoss.String(),
		signal.RiskLevel,
		signal.Reasoning))
}

// NotifyProgress reports challenge progress
func (t *Telegram) NotifyProgress(p strategy.Progress) {
	if t == nil {
		return
	}

	status := "✅ on track"
	if !p.OnTrack {
		status = "⚠️ behind target"
	}

	t.send(fmt.Sprintf("📊 *Progress*\nValue: $%s / $%s (%s%%)\nDays left: %d\nRequired daily growth: %s%%\n%s",
		p.CurrentValue.StringFixed(2),
		p.TargetValue.StringFixed(2),
		p.ProgressPct.StringFixed(1),
		p.DaysRemaining,
		p.RequiredDailyGrowthPct.StringFixed(1),
		status))
}

// NotifyLimitBreach reports a violated risk limit
func (t *Telegram) NotifyLimitBreach(violation string) {
	if t == nil {
		return
	}
	t.send("🚨 *Risk limit breached*\n" + violation)
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := t.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}
