// Package detector turns aggregator state into scored, alertable signals.
//
// Detection is stateless between calls; all temporal state lives in the
// tracker's entry timestamps. Rules are read-only against the aggregator so
// adding or removing one never changes aggregation semantics.
package detector

import (
	"sort"
	"time"

	"github.com/polyscout/polyscout/internal/models"
)

// AggregatorView is the query surface rules may read. The tracker implements it.
type AggregatorView interface {
	HighConvictionPositions(minVolume, minConviction float64) []models.Position
}

// Rule is one independent pattern predicate.
type Rule interface {
	Name() string
	Description() string
	Evaluate(clusters []models.Cluster, view AggregatorView, now time.Time) []models.Signal
}

type Config struct {
	MinWalletVolume   float64
	MinConviction     float64
	MinClusterWallets int
	MaxEntryPrice     float64
	AllowedCategories []string
	EmitUnpriced      bool

	WhaleMinVolume     float64
	WhaleMinConviction float64
	WhaleRecency       time.Duration

	SyncMinWallets int
	SyncWindow     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinWalletVolume:    1000,
		MinConviction:      0.80,
		MinClusterWallets:  1,
		MaxEntryPrice:      0.60,
		AllowedCategories:  []string{"Politics", "Financial"},
		EmitUnpriced:       true,
		WhaleMinVolume:     10000,
		WhaleMinConviction: 0.80,
		WhaleRecency:       time.Hour,
		SyncMinWallets:     5,
		SyncWindow:         time.Hour,
	}
}

// Detector holds the fixed rule set, registered at construction.
type Detector struct {
	cfg   Config
	rules []Rule
}

// New creates a detector with the default rule set.
func New(cfg Config) *Detector {
	return &Detector{
		cfg: cfg,
		rules: []Rule{
			&clusterRule{cfg: cfg},
			&whaleRule{cfg: cfg},
			&syncRule{cfg: cfg},
		},
	}
}

// BuildClusters groups the current high-conviction positions by
// (market, outcome) and keeps groups with at least MinClusterWallets members.
// Clusters are recomputed from scratch on every call.
func (d *Detector) BuildClusters(view AggregatorView) []models.Cluster {
	positions := view.HighConvictionPositions(d.cfg.MinWalletVolume, d.cfg.MinConviction)

	type groupKey struct{ market, outcome string }
	groups := make(map[groupKey][]models.Position)
	for _, p := range positions {
		k := groupKey{p.MarketID, p.Outcome}
		groups[k] = append(groups[k], p)
	}

	var clusters []models.Cluster
	for k, members := range groups {
		if len(members) < d.cfg.MinClusterWallets {
			continue
		}

		c := models.Cluster{
			MarketID:    k.market,
			Outcome:     k.outcome,
			Members:     members,
			FirstEntry:  members[0].EnteredAt,
			LatestEntry: members[0].EnteredAt,
		}
		var convictionSum float64
		for _, m := range members {
			c.TotalVolume += m.Volume
			convictionSum += m.Conviction
			if m.EnteredAt.Before(c.FirstEntry) {
				c.FirstEntry = m.EnteredAt
			}
			if m.EnteredAt.After(c.LatestEntry) {
				c.LatestEntry = m.EnteredAt
			}
		}
		c.AvgConviction = convictionSum / float64(len(members))
		clusters = append(clusters, c)
	}

	// Map iteration order is random; keep output stable for callers and logs.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].MarketID != clusters[j].MarketID {
			return clusters[i].MarketID < clusters[j].MarketID
		}
		return clusters[i].Outcome < clusters[j].Outcome
	})

	return clusters
}

// Run evaluates every registered rule against the cluster list and the
// aggregator view, concatenating their signals. Each signal is tagged with
// the rule that produced it.
func (d *Detector) Run(clusters []models.Cluster, view AggregatorView, now time.Time) []models.Signal {
	var signals []models.Signal
	for _, rule := range d.rules {
		detected := rule.Evaluate(clusters, view, now)
		for i := range detected {
			detected[i].RuleName = rule.Name()
			detected[i].RuleDescription = rule.Description()
		}
		signals = append(signals, detected...)
	}
	return signals
}
