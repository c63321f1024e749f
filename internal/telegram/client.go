// Package telegram provides a client for sending signal notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/polyscout/polyscout/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a scan error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Scan error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Scanning recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendStartup announces that scanning has started from the given block.
func (c *Client) SendStartup(fromBlock uint64, trackedWallets int) error {
	text := fmt.Sprintf("🔍 *PolyScout started*\nScanning from block `%d`\nTracked wallets: %d",
		fromBlock, trackedWallets)
	return c.sendMarkdownV2(text)
}

// SendDailySummary reports activity for the trailing 24 hours.
func (c *Client) SendDailySummary(cycles, trades, signals, trackedWallets int) error {
	text := fmt.Sprintf(
		"📊 *Daily summary*\nScan cycles: %d\nTrades processed: %d\nSignals sent: %d\nTracked wallets: %d",
		cycles, trades, signals, trackedWallets)
	return c.sendMarkdownV2(text)
}

// SendSignal delivers a single detected signal.
func (c *Client) SendSignal(sig *models.Signal) error {
	return c.sendMarkdownV2(FormatSignal(sig))
}

// FormatSignal renders a signal into a Telegram MarkdownV2 message.
func FormatSignal(sig *models.Signal) string {
	switch sig.Kind {
	case models.SignalWhale:
		return formatWhale(sig)
	case models.SignalSynchronized:
		return formatSynchronized(sig)
	default:
		return formatCluster(sig)
	}
}

func formatCluster(sig *models.Signal) string {
	cl := sig.Cluster
	var b strings.Builder

	fmt.Fprintf(&b, "%s *Insider\\-like cluster* \\[%s\\]\n\n", scoreEmoji(sig.Score), escapeMarkdownV2(string(sig.Score)))

	if cl.Question != "" {
		fmt.Fprintf(&b, "🎯 %s\n", escapeMarkdownV2(cl.Question))
	} else {
		fmt.Fprintf(&b, "🎯 Market `%s`\n", escapeMarkdownV2(shortID(cl.MarketID)))
	}
	fmt.Fprintf(&b, "Outcome: *%s*\n", escapeMarkdownV2(cl.Outcome))
	if cl.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", escapeMarkdownV2(cl.Category))
	}

	fmt.Fprintf(&b, "\n👥 Wallets: %d\n", cl.NumWallets())
	fmt.Fprintf(&b, "💰 Total volume: %s\n", escapeMarkdownV2(fmt.Sprintf("$%.0f", cl.TotalVolume)))
	fmt.Fprintf(&b, "📊 Avg conviction: %s\n", escapeMarkdownV2(fmt.Sprintf("%.0f%%", cl.AvgConviction*100)))

	if cl.Price > 0 {
		fmt.Fprintf(&b, "💵 Entry price: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f", cl.Price)))
		roi := (1/cl.Price - 1) * 100
		fmt.Fprintf(&b, "📈 Potential ROI: %s\n", escapeMarkdownV2(fmt.Sprintf("+%.0f%%", roi)))
	}

	fmt.Fprintf(&b, "\n🕐 Entry window: %s → %s\n",
		escapeMarkdownV2(cl.FirstEntry.Format("01-02 15:04")),
		escapeMarkdownV2(cl.LatestEntry.Format("01-02 15:04")))
	fmt.Fprintf(&b, "💡 Suggested size: %s", escapeMarkdownV2(suggestedStake(sig.Score)))

	return b.String()
}

func formatWhale(sig *models.Signal) string {
	pos := sig.Position
	var b strings.Builder

	fmt.Fprintf(&b, "%s *Whale entry* \\[%s\\]\n\n", scoreEmoji(sig.Score), escapeMarkdownV2(string(sig.Score)))
	fmt.Fprintf(&b, "🐋 Wallet: `%s`\n", escapeMarkdownV2(shortID(pos.Wallet)))
	fmt.Fprintf(&b, "🎯 Market `%s` / *%s*\n", escapeMarkdownV2(shortID(pos.MarketID)), escapeMarkdownV2(pos.Outcome))
	fmt.Fprintf(&b, "💰 Position: %s\n", escapeMarkdownV2(fmt.Sprintf("$%.0f", pos.Volume)))
	fmt.Fprintf(&b, "📊 Conviction: %s\n", escapeMarkdownV2(fmt.Sprintf("%.0f%%", pos.Conviction*100)))
	fmt.Fprintf(&b, "🕐 Entered: %s", escapeMarkdownV2(pos.EnteredAt.Format("2006-01-02 15:04")))

	return b.String()
}

func formatSynchronized(sig *models.Signal) string {
	cl := sig.Cluster
	var b strings.Builder

	fmt.Fprintf(&b, "%s *Synchronized entries* \\[%s\\]\n\n", scoreEmoji(sig.Score), escapeMarkdownV2(string(sig.Score)))
	if cl.Question != "" {
		fmt.Fprintf(&b, "🎯 %s\n", escapeMarkdownV2(cl.Question))
	} else {
		fmt.Fprintf(&b, "🎯 Market `%s`\n", escapeMarkdownV2(shortID(cl.MarketID)))
	}
	fmt.Fprintf(&b, "Outcome: *%s*\n\n", escapeMarkdownV2(cl.Outcome))
	fmt.Fprintf(&b, "👥 %d wallets entered within %s\n",
		cl.NumWallets(), escapeMarkdownV2(cl.LatestEntry.Sub(cl.FirstEntry).Round(time.Minute).String()))
	fmt.Fprintf(&b, "💰 Total volume: %s", escapeMarkdownV2(fmt.Sprintf("$%.0f", cl.TotalVolume)))

	return b.String()
}

func scoreEmoji(score models.ConvictionScore) string {
	switch score {
	case models.ScoreVeryHigh:
		return "🔴"
	case models.ScoreHigh:
		return "🟠"
	case models.ScoreMedium:
		return "🟡"
	default:
		return "⚪"
	}
}

func suggestedStake(score models.ConvictionScore) string {
	switch score {
	case models.ScoreVeryHigh:
		return "$500"
	case models.ScoreHigh:
		return "$250"
	case models.ScoreMedium:
		return "$100"
	default:
		return "$50"
	}
}

// shortID abbreviates long hex identifiers for display.
func shortID(id string) string {
	if len(id) <= 14 {
		return id
	}
	return id[:8] + "…" + id[len(id)-4:]
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
