// Package models defines the core domain entities: trade facts, wallet
// positions, clusters, and signals.
package models

import (
	"errors"
	"time"
)

// Role tags which side of a fill a TradeFact describes.
type Role string

const (
	RoleMaker Role = "maker"
	RoleTaker Role = "taker"
)

// TradeFact is one observed fill side, decoded from an exchange log record.
// Price and Outcome are unresolved at decode time (0 and "unknown") and are
// filled in by asset enrichment. Immutable once decoded.
type TradeFact struct {
	Wallet      string    `json:"wallet"`
	MarketID    string    `json:"market_id"` // asset/token id, decimal string
	Outcome     string    `json:"outcome"`
	VolumeUSD   float64   `json:"volume_usd"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	Role        Role      `json:"role"`
}

// UnresolvedOutcome is the placeholder outcome label until enrichment
// resolves the asset id.
const UnresolvedOutcome = "unknown"

// Validate checks trade fact field constraints.
func (t *TradeFact) Validate() error {
	if t.Wallet == "" {
		return errors.New("wallet must not be empty")
	}
	if t.MarketID == "" {
		return errors.New("market ID must not be empty")
	}
	if t.Outcome == "" {
		return errors.New("outcome must not be empty")
	}
	if t.VolumeUSD < 0 {
		return errors.New("volume must not be negative")
	}
	if t.Price < 0 || t.Price > 1 {
		return errors.New("price must be between 0.0 and 1.0")
	}
	if t.Role != RoleMaker && t.Role != RoleTaker {
		return errors.New("role must be maker or taker")
	}
	return nil
}

// AssetInfo is the enrichment result for one asset id.
type AssetInfo struct {
	Question string  `json:"question"`
	Outcome  string  `json:"outcome"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Resolved reports whether the enrichment actually carries market metadata.
func (a AssetInfo) Resolved() bool {
	return a.Question != ""
}
