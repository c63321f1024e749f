package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/polyscout/polyscout/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"~strikethrough~", "\\~strikethrough\\~"},
		{"`code`", "\\`code\\`"},
		{">blockquote", "\\>blockquote"},
		{"#header", "\\#header"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"=equal|pipe", "\\=equal\\|pipe"},
		{"{brace}", "\\{brace\\}"},
		{"end!", "end\\!"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// The bot token validation happens first (network call), so an empty
	// token fails before chat ID parsing. Either way an error is expected.
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func TestFormatClusterSignal(t *testing.T) {
	entered := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	sig := &models.Signal{
		Kind:  models.SignalCluster,
		Score: models.ScoreVeryHigh,
		Cluster: &models.Cluster{
			MarketID:      "12345678901234567890",
			Outcome:       "Yes",
			Question:      "Will X resign by March?",
			Category:      "Politics",
			Members:       make([]models.Position, 12),
			TotalVolume:   48000,
			AvgConviction: 0.93,
			Price:         0.25,
			FirstEntry:    entered,
			LatestEntry:   entered.Add(30 * time.Minute),
		},
		DetectedAt: entered.Add(time.Hour),
	}

	msg := FormatSignal(sig)

	for _, want := range []string{
		"🔴",
		"Insider\\-like cluster",
		"VERY HIGH",
		"Will X resign by March?",
		"Wallets: 12",
		"$48000",
		"93%",
		"0\\.25",
		"\\+300%", // (1/0.25 - 1) * 100
		"$500",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatted cluster message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatClusterOmitsROIWithoutPrice(t *testing.T) {
	sig := &models.Signal{
		Kind:  models.SignalCluster,
		Score: models.ScoreMedium,
		Cluster: &models.Cluster{
			MarketID: "999",
			Outcome:  "unknown",
			Members:  make([]models.Position, 2),
		},
	}

	msg := FormatSignal(sig)
	if strings.Contains(msg, "ROI") {
		t.Errorf("unpriced cluster message should omit ROI:\n%s", msg)
	}
	if !strings.Contains(msg, "🟡") {
		t.Errorf("MEDIUM score should use yellow emoji:\n%s", msg)
	}
}

func TestFormatWhaleSignal(t *testing.T) {
	entered := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	sig := &models.Signal{
		Kind:  models.SignalWhale,
		Score: models.ScoreHigh,
		Position: &models.Position{
			Wallet:     "0xabcdef1234567890abcdef1234567890abcdef12",
			MarketID:   "777",
			Outcome:    "No",
			Volume:     25000,
			Conviction: 0.85,
			EnteredAt:  entered,
		},
	}

	msg := FormatSignal(sig)

	for _, want := range []string{
		"🟠",
		"Whale entry",
		"0xabcdef…ef12", // abbreviated wallet
		"$25000",
		"85%",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatted whale message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatSynchronizedSignal(t *testing.T) {
	entered := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	sig := &models.Signal{
		Kind:  models.SignalSynchronized,
		Score: models.ScoreHigh,
		Cluster: &models.Cluster{
			MarketID:    "555",
			Outcome:     "Yes",
			Members:     make([]models.Position, 6),
			TotalVolume: 12000,
			FirstEntry:  entered,
			LatestEntry: entered.Add(42 * time.Minute),
		},
	}

	msg := FormatSignal(sig)

	for _, want := range []string{
		"Synchronized entries",
		"6 wallets",
		"42m0s",
		"$12000",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatted synchronized message missing %q:\n%s", want, msg)
		}
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"short", "short"},
		{"12345678901234", "12345678901234"},
		{"0xabcdef1234567890abcdef1234567890abcdef12", "0xabcdef…ef12"},
	}
	for _, tt := range tests {
		if got := shortID(tt.input); got != tt.expected {
			t.Errorf("shortID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
