// Package scanner drives the scan cycle: fetch exchange logs, decode fills,
// aggregate wallet positions, run detection, and deliver deduplicated signals.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/polyscout/polyscout/internal/decoder"
	"github.com/polyscout/polyscout/internal/detector"
	"github.com/polyscout/polyscout/internal/logger"
	"github.com/polyscout/polyscout/internal/models"
	"github.com/polyscout/polyscout/internal/storage"
	"github.com/polyscout/polyscout/internal/tracker"
)

// LogSource supplies raw exchange logs. The chain client implements it.
type LogSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FetchLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error)
}

// AssetResolver maps outcome token ids to market metadata.
// The Polymarket Gamma client implements it.
type AssetResolver interface {
	ResolveAssetIDs(ctx context.Context, ids []string) (map[string]models.AssetInfo, error)
	Cached(id string) (models.AssetInfo, bool)
}

// Notifier delivers detected signals.
type Notifier interface {
	SendSignal(sig *models.Signal) error
}

// Config holds scan cycle behavior.
type Config struct {
	BlockBatchSize uint64
	StartOffset    uint64
	Lookback       time.Duration
}

// Stats counts activity since the last reset, for the daily summary.
type Stats struct {
	Cycles  int
	Trades  int
	Signals int
}

// Scanner owns one full scan cycle. It is not safe for concurrent use;
// the caller runs cycles sequentially.
type Scanner struct {
	cfg      Config
	source   LogSource
	resolver AssetResolver
	notifier Notifier
	store    *storage.Storage
	tracker  *tracker.Tracker
	detector *detector.Detector

	// asset ids that failed resolution, retried on subsequent cycles
	pending map[string]struct{}
	stats   Stats
}

// New wires a scanner from its collaborators. The tracker carries any state
// restored from storage by the caller.
func New(cfg Config, source LogSource, resolver AssetResolver, notifier Notifier,
	store *storage.Storage, tr *tracker.Tracker, det *detector.Detector) *Scanner {
	if cfg.BlockBatchSize == 0 {
		cfg.BlockBatchSize = 1000
	}
	return &Scanner{
		cfg:      cfg,
		source:   source,
		resolver: resolver,
		notifier: notifier,
		store:    store,
		tracker:  tr,
		detector: det,
		pending:  make(map[string]struct{}),
	}
}

// StartBlock returns the first block the next cycle will scan, resolving the
// persisted checkpoint against the chain head.
func (s *Scanner) StartBlock(ctx context.Context) (uint64, error) {
	latest, err := s.source.LatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return s.startBlock(latest)
}

func (s *Scanner) startBlock(latest uint64) (uint64, error) {
	checkpoint, ok, err := s.store.LoadCheckpoint()
	if err != nil {
		return 0, err
	}
	if ok {
		return checkpoint + 1, nil
	}
	if latest > s.cfg.StartOffset {
		return latest - s.cfg.StartOffset, nil
	}
	return 0, nil
}

// TrackedWallets returns the number of wallets currently aggregated.
func (s *Scanner) TrackedWallets() int {
	return s.tracker.Wallets()
}

// Stats returns the counters accumulated since the last ResetStats.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// ResetStats zeroes the activity counters after a daily summary.
func (s *Scanner) ResetStats() {
	s.stats = Stats{}
}

// RunCycle performs one complete scan cycle at the given wall-clock time.
// State is persisted only after the cycle's blocks are fully processed, so a
// crash mid-cycle replays the same range on restart.
func (s *Scanner) RunCycle(ctx context.Context, now time.Time) error {
	latest, err := s.source.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block: %w", err)
	}

	from, err := s.startBlock(latest)
	if err != nil {
		return err
	}
	if from > latest {
		logger.Debug("no new blocks (head %d)", latest)
		return nil
	}

	trades, err := s.collectTrades(ctx, from, latest, now)
	if err != nil {
		return err
	}

	// The checkpoint only advances at the end, so a failed cycle replays the
	// same block range. Roll the tracker and the pending set back to their
	// pre-cycle state on failure or the replay would double-count the
	// range's volume.
	prior := s.tracker.Snapshot()
	priorPending := make(map[string]struct{}, len(s.pending))
	for id := range s.pending {
		priorPending[id] = struct{}{}
	}
	rollback := func(err error) error {
		s.tracker = tracker.NewFromState(prior)
		s.pending = priorPending
		return err
	}

	s.enrich(ctx, trades)

	ingested := 0
	for i := range trades {
		if err := trades[i].Validate(); err != nil {
			continue
		}
		s.tracker.Ingest(trades[i])
		ingested++
	}
	evicted := s.tracker.Evict(now, s.cfg.Lookback)
	logger.Info("scanned blocks %d-%d: %d trades ingested, %d positions evicted",
		from, latest, ingested, evicted)

	delivered, err := s.detectAndDeliver(now)
	if err != nil {
		return rollback(err)
	}

	if err := s.store.SaveCheckpoint(latest); err != nil {
		return rollback(err)
	}
	if err := s.store.SaveTrackerState(s.tracker.Snapshot()); err != nil {
		return rollback(err)
	}

	s.stats.Cycles++
	s.stats.Trades += ingested
	s.stats.Signals += delivered
	return nil
}

// collateralAssetID is the asset id of the cash side of a fill. That side is
// a USDC transfer, not an outcome token position, and is never tracked.
const collateralAssetID = "0"

// collectTrades walks the block range in batches and decodes every fill.
// Logs that do not match the fill shape are skipped silently.
func (s *Scanner) collectTrades(ctx context.Context, from, to uint64, now time.Time) ([]models.TradeFact, error) {
	var trades []models.TradeFact
	for start := from; start <= to; start += s.cfg.BlockBatchSize {
		end := start + s.cfg.BlockBatchSize - 1
		if end > to {
			end = to
		}
		logs, err := s.source.FetchLogs(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs for blocks %d-%d: %w", start, end, err)
		}
		for _, l := range logs {
			for _, trade := range decoder.Decode(l, now) {
				if trade.MarketID == collateralAssetID {
					continue
				}
				trades = append(trades, trade)
			}
		}
	}
	return trades, nil
}

// enrich resolves asset metadata for this cycle's trades plus any ids that
// failed on earlier cycles, then applies it in place. Resolution failures are
// tolerated; unresolved trades stay unpriced until a later cycle succeeds.
func (s *Scanner) enrich(ctx context.Context, trades []models.TradeFact) {
	need := make(map[string]struct{}, len(s.pending))
	for id := range s.pending {
		need[id] = struct{}{}
	}
	for i := range trades {
		if _, ok := s.resolver.Cached(trades[i].MarketID); !ok {
			need[trades[i].MarketID] = struct{}{}
		}
	}

	if len(need) > 0 {
		ids := make([]string, 0, len(need))
		for id := range need {
			ids = append(ids, id)
		}
		if _, err := s.resolver.ResolveAssetIDs(ctx, ids); err != nil {
			logger.Warn("asset resolution incomplete: %v", err)
		}
		for id := range need {
			if info, ok := s.resolver.Cached(id); ok && info.Resolved() {
				delete(s.pending, id)
				// Volume from earlier cycles may sit under the unresolved
				// label; fold it into the resolved one so a token's position
				// never splits across two keys.
				s.tracker.RelabelOutcome(id, info.Outcome)
			} else {
				s.pending[id] = struct{}{}
			}
		}
	}

	for i := range trades {
		if info, ok := s.resolver.Cached(trades[i].MarketID); ok && info.Resolved() {
			trades[i].Outcome = info.Outcome
			trades[i].Price = info.Price
		}
	}
}

// detectAndDeliver runs the rule set over current clusters and sends every
// signal not already delivered. A failed send is retried on the next cycle
// because the identity is only recorded after successful delivery.
func (s *Scanner) detectAndDeliver(now time.Time) (int, error) {
	clusters := s.detector.BuildClusters(s.tracker)
	for i := range clusters {
		if info, ok := s.resolver.Cached(clusters[i].MarketID); ok {
			clusters[i].Question = info.Question
			clusters[i].Category = info.Category
			clusters[i].Price = info.Price
		}
	}

	signals := s.detector.Run(clusters, s.tracker, now)

	delivered := 0
	for i := range signals {
		sig := &signals[i]
		identity := sig.Identity()

		sent, err := s.store.IsSent(identity)
		if err != nil {
			return delivered, err
		}
		if sent {
			continue
		}

		if err := s.notifier.SendSignal(sig); err != nil {
			logger.Error("failed to deliver signal %s: %v", identity, err)
			continue
		}
		if err := s.store.MarkSent(identity, now); err != nil {
			return delivered, err
		}
		if err := s.store.AddSignal(sig); err != nil {
			logger.Warn("failed to record signal history: %v", err)
		}
		logger.Info("signal delivered: %s [%s] %s", sig.Kind, sig.Score, identity)
		delivered++
	}
	return delivered, nil
}
