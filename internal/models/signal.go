package models

import (
	"fmt"
	"time"
)

// Position is one (wallet, market, outcome) entry from the aggregator,
// annotated with the owning wallet's total and the derived conviction ratio.
type Position struct {
	Wallet      string    `json:"wallet"`
	MarketID    string    `json:"market_id"`
	Outcome     string    `json:"outcome"`
	Volume      float64   `json:"volume"`
	WalletTotal float64   `json:"wallet_total"`
	Conviction  float64   `json:"conviction"`
	EnteredAt   time.Time `json:"entered_at"`
}

// Cluster groups wallets that independently hold high-conviction positions on
// the same (market, outcome) pair. Ephemeral: rebuilt on every detection pass.
type Cluster struct {
	MarketID      string     `json:"market_id"`
	Outcome       string     `json:"outcome"`
	Members       []Position `json:"members"`
	TotalVolume   float64    `json:"total_volume"` // sum of member position volumes
	AvgConviction float64    `json:"avg_conviction"`
	FirstEntry    time.Time  `json:"first_entry"`
	LatestEntry   time.Time  `json:"latest_entry"`

	// Enrichment fields, populated from the asset resolution cache when
	// available. Price 0 means unresolved.
	Question string  `json:"question,omitempty"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// NumWallets returns the cluster member count.
func (c *Cluster) NumWallets() int {
	return len(c.Members)
}

// SignalKind tags what pattern produced a signal.
type SignalKind string

const (
	SignalCluster      SignalKind = "cluster"
	SignalWhale        SignalKind = "whale"
	SignalSynchronized SignalKind = "synchronized"
)

// ConvictionScore is the severity label attached by the scoring rules.
type ConvictionScore string

const (
	ScoreLow      ConvictionScore = "LOW"
	ScoreMedium   ConvictionScore = "MEDIUM"
	ScoreHigh     ConvictionScore = "HIGH"
	ScoreVeryHigh ConvictionScore = "VERY HIGH"
)

// Signal is the alertable output of a pattern rule. Exactly one of Cluster
// or Position is set, depending on the kind.
type Signal struct {
	Kind            SignalKind      `json:"kind"`
	Score           ConvictionScore `json:"score"`
	RuleName        string          `json:"rule_name"`
	RuleDescription string          `json:"rule_description"`
	Cluster         *Cluster        `json:"cluster,omitempty"`
	Position        *Position       `json:"position,omitempty"`
	DetectedAt      time.Time       `json:"detected_at"`
}

// Identity returns the deterministic string used for deduplication.
// Cluster signals dedup on (market, outcome, member count) so the same
// cluster is re-alerted only when it grows. Other kinds key on their subject
// plus detection time; the subject keeps two signals detected in the same
// instant from colliding on one identity.
func (s *Signal) Identity() string {
	ts := s.DetectedAt.Format(time.RFC3339)
	switch {
	case s.Kind == SignalCluster && s.Cluster != nil:
		return fmt.Sprintf("%s_%s_%d", s.Cluster.MarketID, s.Cluster.Outcome, s.Cluster.NumWallets())
	case s.Position != nil:
		return fmt.Sprintf("%s_%s_%s_%s_%s", s.Kind, s.Position.Wallet, s.Position.MarketID, s.Position.Outcome, ts)
	case s.Cluster != nil:
		return fmt.Sprintf("%s_%s_%s_%s", s.Kind, s.Cluster.MarketID, s.Cluster.Outcome, ts)
	}
	return fmt.Sprintf("%s_%s", s.Kind, ts)
}
