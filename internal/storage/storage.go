// Package storage provides SQLite-backed persistence for the scan
// checkpoint, the position tracker state, and the sent-signal history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/polyscout/polyscout/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/polyscout/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "polyscout", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoint (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			block_number INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			wallet     TEXT NOT NULL,
			market_id  TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			volume     REAL NOT NULL,
			first_seen INTEGER NOT NULL,
			PRIMARY KEY (wallet, market_id, outcome)
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_totals (
			wallet TEXT PRIMARY KEY,
			total  REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sent_signals (
			identity TEXT PRIMARY KEY,
			sent_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			score        TEXT NOT NULL,
			rule_name    TEXT NOT NULL,
			market_id    TEXT,
			outcome      TEXT,
			num_wallets  INTEGER NOT NULL DEFAULT 0,
			total_volume REAL NOT NULL DEFAULT 0,
			detected_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_detected_at ON signals(detected_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint returns the last fully processed block number.
// ok is false when no checkpoint has ever been written.
func (s *Storage) LoadCheckpoint() (block uint64, ok bool, err error) {
	row := s.db.QueryRow(`SELECT block_number FROM checkpoint WHERE id = 1`)
	if err := row.Scan(&block); err == sql.ErrNoRows {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return block, true, nil
}

// SaveCheckpoint durably records the last fully processed block number.
func (s *Storage) SaveCheckpoint(block uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO checkpoint (id, block_number, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET block_number = excluded.block_number, updated_at = excluded.updated_at`,
		block, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// SaveTrackerState rewrites the persisted tracker state wholesale in one
// transaction. Only one process instance writes, so no interleaving.
func (s *Storage) SaveTrackerState(state *models.TrackerState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM positions`); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM wallet_totals`); err != nil {
		return fmt.Errorf("failed to clear totals: %w", err)
	}

	for wallet, markets := range state.Positions {
		for market, outcomes := range markets {
			for outcome, volume := range outcomes {
				key := models.PositionKey{Wallet: wallet, MarketID: market, Outcome: outcome}
				_, err := tx.Exec(`
					INSERT INTO positions (wallet, market_id, outcome, volume, first_seen)
					VALUES (?,?,?,?,?)`,
					wallet, market, outcome, volume, state.FirstSeen[key].UnixNano(),
				)
				if err != nil {
					return fmt.Errorf("failed to insert position: %w", err)
				}
			}
		}
	}

	for wallet, total := range state.Totals {
		if _, err := tx.Exec(`INSERT INTO wallet_totals (wallet, total) VALUES (?,?)`, wallet, total); err != nil {
			return fmt.Errorf("failed to insert total: %w", err)
		}
	}

	return tx.Commit()
}

// LoadTrackerState reconstructs the persisted tracker state. An empty
// database yields an empty state, not an error.
func (s *Storage) LoadTrackerState() (*models.TrackerState, error) {
	state := models.NewTrackerState()

	rows, err := s.db.Query(`SELECT wallet, market_id, outcome, volume, first_seen FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wallet, market, outcome string
		var volume float64
		var firstSeenNano int64
		if err := rows.Scan(&wallet, &market, &outcome, &volume, &firstSeenNano); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if state.Positions[wallet] == nil {
			state.Positions[wallet] = make(map[string]map[string]float64)
		}
		if state.Positions[wallet][market] == nil {
			state.Positions[wallet][market] = make(map[string]float64)
		}
		state.Positions[wallet][market][outcome] = volume
		key := models.PositionKey{Wallet: wallet, MarketID: market, Outcome: outcome}
		state.FirstSeen[key] = time.Unix(0, firstSeenNano)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	totals, err := s.db.Query(`SELECT wallet, total FROM wallet_totals`)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer totals.Close()

	for totals.Next() {
		var wallet string
		var total float64
		if err := totals.Scan(&wallet, &total); err != nil {
			return nil, fmt.Errorf("failed to scan total: %w", err)
		}
		state.Totals[wallet] = total
	}
	return state, totals.Err()
}

// IsSent reports whether a signal identity was already delivered.
func (s *Storage) IsSent(identity string) (bool, error) {
	var one int
	row := s.db.QueryRow(`SELECT 1 FROM sent_signals WHERE identity = ?`, identity)
	if err := row.Scan(&one); err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to check sent signal: %w", err)
	}
	return true, nil
}

// MarkSent records a signal identity as delivered. Recording the same
// identity twice is a no-op, matching at-least-once delivery.
func (s *Storage) MarkSent(identity string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sent_signals (identity, sent_at) VALUES (?,?)
		ON CONFLICT(identity) DO NOTHING`,
		identity, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark signal sent: %w", err)
	}
	return nil
}

// SentCount returns the number of distinct delivered identities.
func (s *Storage) SentCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sent_signals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sent signals: %w", err)
	}
	return n, nil
}

// AddSignal appends one emitted signal to the history log.
func (s *Storage) AddSignal(sig *models.Signal) error {
	var market, outcome string
	var numWallets int
	var totalVolume float64
	switch {
	case sig.Cluster != nil:
		market = sig.Cluster.MarketID
		outcome = sig.Cluster.Outcome
		numWallets = sig.Cluster.NumWallets()
		totalVolume = sig.Cluster.TotalVolume
	case sig.Position != nil:
		market = sig.Position.MarketID
		outcome = sig.Position.Outcome
		numWallets = 1
		totalVolume = sig.Position.Volume
	}

	_, err := s.db.Exec(`
		INSERT INTO signals (id, kind, score, rule_name, market_id, outcome, num_wallets, total_volume, detected_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		uuid.New().String(), string(sig.Kind), string(sig.Score), sig.RuleName,
		market, outcome, numWallets, totalVolume, sig.DetectedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

// SignalRecord is one row of the emitted-signal history.
type SignalRecord struct {
	ID          string
	Kind        string
	Score       string
	RuleName    string
	MarketID    string
	Outcome     string
	NumWallets  int
	TotalVolume float64
	DetectedAt  time.Time
}

// RecentSignals returns the most recently detected signals, newest first.
func (s *Storage) RecentSignals(limit int) ([]SignalRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, score, rule_name, market_id, outcome, num_wallets, total_volume, detected_at
		FROM signals ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var r SignalRecord
		var detectedAtNano int64
		err := rows.Scan(&r.ID, &r.Kind, &r.Score, &r.RuleName, &r.MarketID, &r.Outcome,
			&r.NumWallets, &r.TotalVolume, &detectedAtNano)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		r.DetectedAt = time.Unix(0, detectedAtNano)
		records = append(records, r)
	}
	return records, rows.Err()
}
