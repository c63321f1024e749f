package notify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/polyscout/polyscout/internal/models"
)

func TestConsoleSendSignalCluster(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	entered := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	sig := &models.Signal{
		Kind:            models.SignalCluster,
		Score:           models.ScoreHigh,
		RuleName:        "high_conviction_cluster",
		RuleDescription: "multiple wallets concentrated on one outcome",
		Cluster: &models.Cluster{
			MarketID:      "12345678901234567890",
			Outcome:       "Yes",
			Question:      "Will X resign by March?",
			Members:       make([]models.Position, 7),
			TotalVolume:   21000,
			AvgConviction: 0.88,
			Price:         0.42,
			FirstEntry:    entered,
			LatestEntry:   entered.Add(time.Hour),
		},
	}

	if err := c.SendSignal(sig); err != nil {
		t.Fatalf("SendSignal() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"SIGNAL cluster [HIGH] high_conviction_cluster",
		"Will X resign by March?",
		"Yes",
		"7",
		"$21000",
		"88%",
		"0.42",
		"multiple wallets concentrated on one outcome",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleSendSignalWhale(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	sig := &models.Signal{
		Kind:     models.SignalWhale,
		Score:    models.ScoreMedium,
		RuleName: "whale_entry",
		Position: &models.Position{
			MarketID:   "777",
			Outcome:    "No",
			Volume:     15000,
			Conviction: 0.9,
		},
	}

	if err := c.SendSignal(sig); err != nil {
		t.Fatalf("SendSignal() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"SIGNAL whale [MEDIUM]", "$15000", "90%"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleLifecycleMessages(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	if err := c.SendStartup(123456, 4); err != nil {
		t.Fatalf("SendStartup() error = %v", err)
	}
	if err := c.SendDailySummary(288, 950, 3, 12); err != nil {
		t.Fatalf("SendDailySummary() error = %v", err)
	}
	if err := c.SendRecovery(2); err != nil {
		t.Fatalf("SendRecovery() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"scanning from block 123456",
		"288 cycles, 950 trades, 3 signals",
		"recovered after 2 consecutive failure(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 38, "short"},
		{"one two three four five six seven eight nine", 20, "one two three four…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
		}
	}
}
