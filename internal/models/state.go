package models

import (
	"time"
)

// PositionKey identifies one tracked (wallet, market, outcome) entry.
type PositionKey struct {
	Wallet   string
	MarketID string
	Outcome  string
}

// TrackerState is the persistable snapshot of the position aggregator:
// nested wallet → market → outcome → volume, the per-wallet totals, and the
// first-seen timestamp per position key. Totals are stored rather than
// recomputed so a load/save round trip reproduces them bit for bit.
type TrackerState struct {
	Positions map[string]map[string]map[string]float64
	Totals    map[string]float64
	FirstSeen map[PositionKey]time.Time
}

// NewTrackerState returns an empty state with all maps allocated.
func NewTrackerState() *TrackerState {
	return &TrackerState{
		Positions: make(map[string]map[string]map[string]float64),
		Totals:    make(map[string]float64),
		FirstSeen: make(map[PositionKey]time.Time),
	}
}
