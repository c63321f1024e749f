// Package tracker maintains the rolling view of capital each wallet has
// committed to each market outcome.
package tracker

import (
	"time"

	"github.com/polyscout/polyscout/internal/models"
)

// Tracker is the position aggregator. It owns the wallet → market → outcome
// volume table, per-wallet totals, and the first-seen timestamp per position.
//
// Totals are kept in lockstep with positions inside every operation: the
// invariant totals[w] == Σ positions[w][*][*] holds between any two calls.
// The scan loop is the only mutator (one cycle at a time), so no locking.
type Tracker struct {
	positions map[string]map[string]map[string]float64
	totals    map[string]float64
	firstSeen map[models.PositionKey]time.Time
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		positions: make(map[string]map[string]map[string]float64),
		totals:    make(map[string]float64),
		firstSeen: make(map[models.PositionKey]time.Time),
	}
}

// NewFromState restores a tracker from a persisted snapshot. The state is
// copied; the caller's maps are not retained.
func NewFromState(state *models.TrackerState) *Tracker {
	t := New()
	if state == nil {
		return t
	}
	for wallet, markets := range state.Positions {
		for market, outcomes := range markets {
			for outcome, volume := range outcomes {
				t.setPosition(wallet, market, outcome, volume)
			}
		}
	}
	for wallet, total := range state.Totals {
		t.totals[wallet] = total
	}
	for key, ts := range state.FirstSeen {
		t.firstSeen[key] = ts
	}
	return t
}

// Ingest adds a trade's volume to the (wallet, market, outcome) position and
// to the wallet total in the same step. The first-seen timestamp is recorded
/// only for new keys: a position's entry time is its first observed trade.
func (t *Tracker) Ingest(trade models.TradeFact) {
	markets, ok := t.positions[trade.Wallet]
	if !ok {
		markets = make(map[string]map[string]float64)
		t.positions[trade.Wallet] = markets
	}
	outcomes, ok := markets[trade.MarketID]
	if !ok {
		outcomes = make(map[string]float64)
		markets[trade.MarketID] = outcomes
	}

	outcomes[trade.Outcome] += trade.VolumeUSD
	t.totals[trade.Wallet] += trade.VolumeUSD

	key := models.PositionKey{Wallet: trade.Wallet, MarketID: trade.MarketID, Outcome: trade.Outcome}
	if _, seen := t.firstSeen[key]; !seen {
		t.firstSeen[key] = trade.Timestamp
	}
}

// ConvictionOf returns the fraction of the wallet's total tracked capital
// committed to (market, outcome). Fails closed to 0 for unknown wallets or
// a zero total.
func (t *Tracker) ConvictionOf(wallet, market, outcome string) float64 {
	total := t.totals[wallet]
	if total == 0 {
		return 0
	}
	return t.positions[wallet][market][outcome] / total
}

// HighConvictionPositions returns every position whose wallet total is at
// least minVolume and whose conviction is at least minConviction, each
// annotated with its entry timestamp. The result is a point-in-time snapshot
// in unspecified order.
func (t *Tracker) HighConvictionPositions(minVolume, minConviction float64) []models.Position {
	var result []models.Position

	for wallet, total := range t.totals {
		if total < minVolume {
			continue
		}
		for market, outcomes := range t.positions[wallet] {
			for outcome, volume := range outcomes {
				conviction := volume / total
				if conviction < minConviction {
					continue
				}
				key := models.PositionKey{Wallet: wallet, MarketID: market, Outcome: outcome}
				result = append(result, models.Position{
					Wallet:      wallet,
					MarketID:    market,
					Outcome:     outcome,
					Volume:      volume,
					WalletTotal: total,
					Conviction:  conviction,
					EnteredAt:   t.firstSeen[key],
				})
			}
		}
	}

	return result
}

// Evict removes every position first seen before now − maxAge, decrementing
// the owning wallet's total by exactly that position's volume and dropping
// the wallet once its last position is gone. Idempotent for a fixed now.
// Returns the number of positions removed.
func (t *Tracker) Evict(now time.Time, maxAge time.Duration) int {
	cutoff := now.Add(-maxAge)

	var stale []models.PositionKey
	for key, ts := range t.firstSeen {
		if ts.Before(cutoff) {
			stale = append(stale, key)
		}
	}

	for _, key := range stale {
		volume := t.positions[key.Wallet][key.MarketID][key.Outcome]

		delete(t.positions[key.Wallet][key.MarketID], key.Outcome)
		t.totals[key.Wallet] -= volume
		delete(t.firstSeen, key)

		if len(t.positions[key.Wallet][key.MarketID]) == 0 {
			delete(t.positions[key.Wallet], key.MarketID)
		}
		if len(t.positions[key.Wallet]) == 0 {
			delete(t.positions, key.Wallet)
			delete(t.totals, key.Wallet)
		}
	}

	return len(stale)
}

// RelabelOutcome merges every position recorded under the unresolved outcome
// label for market into the resolved label. Volume ingested before the asset
// id resolved would otherwise sit under a different key than later fills on
// the same token, splitting one real position and diluting its conviction.
// Wallet totals are untouched; the first-seen timestamp keeps the earliest
// entry of the two keys.
func (t *Tracker) RelabelOutcome(market, outcome string) {
	if outcome == models.UnresolvedOutcome || outcome == "" {
		return
	}
	for wallet, markets := range t.positions {
		outcomes, ok := markets[market]
		if !ok {
			continue
		}
		volume, ok := outcomes[models.UnresolvedOutcome]
		if !ok {
			continue
		}
		outcomes[outcome] += volume
		delete(outcomes, models.UnresolvedOutcome)

		oldKey := models.PositionKey{Wallet: wallet, MarketID: market, Outcome: models.UnresolvedOutcome}
		newKey := models.PositionKey{Wallet: wallet, MarketID: market, Outcome: outcome}
		if ts, seen := t.firstSeen[newKey]; !seen || t.firstSeen[oldKey].Before(ts) {
			t.firstSeen[newKey] = t.firstSeen[oldKey]
		}
		delete(t.firstSeen, oldKey)
	}
}

// Wallets returns the number of wallets currently tracked.
func (t *Tracker) Wallets() int {
	return len(t.totals)
}

// WalletTotal returns the tracked total for a wallet (0 if unknown).
func (t *Tracker) WalletTotal(wallet string) float64 {
	return t.totals[wallet]
}

// Snapshot returns a deep copy of the tracker state for persistence.
func (t *Tracker) Snapshot() *models.TrackerState {
	state := models.NewTrackerState()
	for wallet, markets := range t.positions {
		sm := make(map[string]map[string]float64, len(markets))
		for market, outcomes := range markets {
			so := make(map[string]float64, len(outcomes))
			for outcome, volume := range outcomes {
				so[outcome] = volume
			}
			sm[market] = so
		}
		state.Positions[wallet] = sm
	}
	for wallet, total := range t.totals {
		state.Totals[wallet] = total
	}
	for key, ts := range t.firstSeen {
		state.FirstSeen[key] = ts
	}
	return state
}

func (t *Tracker) setPosition(wallet, market, outcome string, volume float64) {
	markets, ok := t.positions[wallet]
	if !ok {
		markets = make(map[string]map[string]float64)
		t.positions[wallet] = markets
	}
	outcomes, ok := markets[market]
	if !ok {
		outcomes = make(map[string]float64)
		markets[market] = outcomes
	}
	outcomes[outcome] = volume
}
