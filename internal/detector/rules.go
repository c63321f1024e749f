package detector

import (
	"time"

	"github.com/polyscout/polyscout/internal/models"
)

// clusterRule scores every surviving cluster by member count, entry price,
// volume, and mean conviction. Clusters outside the category allow-list or
// above the price ceiling are skipped before scoring.
type clusterRule struct {
	cfg Config
}

func (r *clusterRule) Name() string { return "High Conviction Signal" }

func (r *clusterRule) Description() string {
	return "Wallet(s) with high volume and conviction on the same outcome"
}

func (r *clusterRule) Evaluate(clusters []models.Cluster, _ AggregatorView, now time.Time) []models.Signal {
	var signals []models.Signal

	for i := range clusters {
		c := clusters[i]

		if len(r.cfg.AllowedCategories) > 0 && !contains(r.cfg.AllowedCategories, c.Category) {
			continue
		}
		if c.Price == 0 && !r.cfg.EmitUnpriced {
			continue
		}
		if c.Price > 0 && c.Price > r.cfg.MaxEntryPrice {
			continue
		}

		signals = append(signals, models.Signal{
			Kind:       models.SignalCluster,
			Score:      scoreCluster(&c),
			Cluster:    &c,
			DetectedAt: now,
		})
	}

	return signals
}

// scoreCluster applies the scoring matrix. An unresolved price (0) is treated
// as 1.0, so unpriced clusters can only reach the volume/conviction tiers.
func scoreCluster(c *models.Cluster) models.ConvictionScore {
	price := c.Price
	if price == 0 {
		price = 1
	}
	n := c.NumWallets()

	switch {
	case n >= 20 && price < 0.30,
		n >= 10 && price < 0.40:
		return models.ScoreVeryHigh
	case n >= 5 && price < 0.50,
		n >= 3 && c.AvgConviction >= 0.90:
		return models.ScoreHigh
	case n >= 2 && c.TotalVolume >= 5000,
		n == 1 && c.TotalVolume >= 5000 && c.AvgConviction >= 0.90:
		return models.ScoreMedium
	default:
		return models.ScoreLow
	}
}

// whaleRule flags any single wallet position above the whale volume and
// conviction floors whose entry is recent. No clustering required.
type whaleRule struct {
	cfg Config
}

func (r *whaleRule) Name() string { return "Whale Entry" }

func (r *whaleRule) Description() string {
	return "Single large wallet with high conviction entering recently"
}

func (r *whaleRule) Evaluate(_ []models.Cluster, view AggregatorView, now time.Time) []models.Signal {
	positions := view.HighConvictionPositions(r.cfg.WhaleMinVolume, r.cfg.WhaleMinConviction)

	var signals []models.Signal
	for i := range positions {
		p := positions[i]
		if now.Sub(p.EnteredAt) > r.cfg.WhaleRecency {
			continue
		}
		signals = append(signals, models.Signal{
			Kind:       models.SignalWhale,
			Score:      models.ScoreHigh,
			Position:   &p,
			DetectedAt: now,
		})
	}
	return signals
}

// syncRule flags clusters whose members all entered within a short window,
// independently of the cluster's conviction score.
type syncRule struct {
	cfg Config
}

func (r *syncRule) Name() string { return "Synchronized Entry" }

func (r *syncRule) Description() string {
	return "Multiple wallets entering the same outcome within a short window"
}

func (r *syncRule) Evaluate(clusters []models.Cluster, _ AggregatorView, now time.Time) []models.Signal {
	var signals []models.Signal
	for i := range clusters {
		c := clusters[i]
		if c.NumWallets() < r.cfg.SyncMinWallets {
			continue
		}
		if c.LatestEntry.Sub(c.FirstEntry) > r.cfg.SyncWindow {
			continue
		}
		signals = append(signals, models.Signal{
			Kind:       models.SignalSynchronized,
			Score:      models.ScoreHigh,
			Cluster:    &c,
			DetectedAt: now,
		})
	}
	return signals
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
