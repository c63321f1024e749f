// Package notify provides a console notifier for running without Telegram.
package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/polyscout/polyscout/internal/models"
)

// Console writes signal notifications to a terminal.
type Console struct {
	out io.Writer
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// SendSignal prints one detected signal as a table plus detail lines.
func (c *Console) SendSignal(sig *models.Signal) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] SIGNAL %s [%s] %s\n", now, sig.Kind, sig.Score, sig.RuleName)

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Outcome", "Wallets", "Volume", "Conviction", "Price")

	switch {
	case sig.Cluster != nil:
		cl := sig.Cluster
		table.Append(
			marketLabel(cl.Question, cl.MarketID),
			cl.Outcome,
			fmt.Sprintf("%d", cl.NumWallets()),
			fmt.Sprintf("$%.0f", cl.TotalVolume),
			fmt.Sprintf("%.0f%%", cl.AvgConviction*100),
			priceLabel(cl.Price),
		)
	case sig.Position != nil:
		pos := sig.Position
		table.Append(
			marketLabel("", pos.MarketID),
			pos.Outcome,
			"1",
			fmt.Sprintf("$%.0f", pos.Volume),
			fmt.Sprintf("%.0f%%", pos.Conviction*100),
			"-",
		)
	}
	table.Render()

	if sig.Cluster != nil && !sig.Cluster.FirstEntry.IsZero() {
		fmt.Fprintf(c.out, "  entries %s → %s\n",
			sig.Cluster.FirstEntry.Format("01-02 15:04"),
			sig.Cluster.LatestEntry.Format("01-02 15:04"))
	}
	if sig.RuleDescription != "" {
		fmt.Fprintf(c.out, "  %s\n", sig.RuleDescription)
	}
	return nil
}

// SendStartup prints the startup banner.
func (c *Console) SendStartup(fromBlock uint64, trackedWallets int) error {
	fmt.Fprintf(c.out, "[%s] polyscout started, scanning from block %d (%d tracked wallets)\n",
		time.Now().Format("15:04:05"), fromBlock, trackedWallets)
	return nil
}

// SendDailySummary prints the trailing 24h activity counters.
func (c *Console) SendDailySummary(cycles, trades, signals, trackedWallets int) error {
	fmt.Fprintf(c.out, "[%s] daily summary: %d cycles, %d trades, %d signals, %d tracked wallets\n",
		time.Now().Format("15:04:05"), cycles, trades, signals, trackedWallets)
	return nil
}

// SendError prints a cycle error.
func (c *Console) SendError(cycleErr error) error {
	fmt.Fprintf(c.out, "[%s] scan error: %v\n", time.Now().Format("15:04:05"), cycleErr)
	return nil
}

// SendRecovery prints a recovery notice after consecutive failures.
func (c *Console) SendRecovery(failureCount int) error {
	fmt.Fprintf(c.out, "[%s] scanning recovered after %d consecutive failure(s)\n",
		time.Now().Format("15:04:05"), failureCount)
	return nil
}

func marketLabel(question, marketID string) string {
	if question != "" {
		return truncate(question, 38)
	}
	if len(marketID) > 14 {
		return marketID[:12] + "..."
	}
	return marketID
}

func priceLabel(price float64) string {
	if price <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", price)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
