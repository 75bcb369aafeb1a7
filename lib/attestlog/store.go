// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attestlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/trustframe-foundation/trustframe/lib/attest"
	"github.com/trustframe-foundation/trustframe/lib/clock"
	"github.com/trustframe-foundation/trustframe/lib/codec"
)

// Config holds the parameters for opening an evidence store. Path is
// required; everything else has defaults.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist; the file is created if missing.
	Path string

	// PoolSize is the number of connections. If zero or negative,
	// defaults to 4. The verifier writes serially; extra connections
	// only help concurrent readers of the evidence history.
	PoolSize int

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger

	// Clock is the time source for record timestamps. If nil, the real
	// clock is used.
	Clock clock.Clock
}

// A Record is one stored attestation outcome: the verdict plus the
// full quote that produced it, so a disputed verdict can be re-judged
// offline.
type Record struct {
	ID         int64
	RecordedAt time.Time
	DeviceID   string
	Accepted   bool
	Policy     string
	Reason     string
	Quote      attest.Quote
}

// Store is the append-only evidence log behind a verifier. Every
// judged quote is recorded, accepted or not; the history is how an
// operator notices a device drifting or an attacker probing.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	clock  clock.Clock
	path   string
}

const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	id          INTEGER PRIMARY KEY,
	recorded_at INTEGER NOT NULL,
	device_id   TEXT NOT NULL,
	accepted    INTEGER NOT NULL,
	policy      TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	quote       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS evidence_device_time
	ON evidence (device_id, recorded_at DESC);
`

// Open creates or opens an evidence store. The caller must call Close
// when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("attestlog: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeSource := cfg.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("attestlog: opening %s: %w", cfg.Path, err)
	}

	logger.Info("evidence store opened", "path", cfg.Path, "pool_size", poolSize)
	return &Store{pool: pool, logger: logger, clock: timeSource, path: cfg.Path}, nil
}

// prepareConnection applies the standard pragmas and the schema. Runs
// once per connection, on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("attestlog: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("attestlog: applying schema: %w", err)
	}
	return nil
}

// Record appends one judged exchange to the log.
func (s *Store) Record(ctx context.Context, verdict attest.Verdict, quote attest.Quote) error {
	encodedQuote, err := codec.Marshal(quote)
	if err != nil {
		return fmt.Errorf("attestlog: encoding quote: %w", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("attestlog: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO evidence (recorded_at, device_id, accepted, policy, reason, quote)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				s.clock.Now().UnixMilli(),
				verdict.DeviceID,
				boolToInt(verdict.Accepted),
				verdict.Policy,
				verdict.Reason,
				encodedQuote,
			},
		})
	if err != nil {
		return fmt.Errorf("attestlog: inserting evidence for %s: %w", verdict.DeviceID, err)
	}

	s.logger.Info("evidence recorded",
		"device", verdict.DeviceID,
		"accepted", verdict.Accepted,
		"policy", verdict.Policy,
	)
	return nil
}

// Recent returns up to limit records for a device, newest first.
func (s *Store) Recent(ctx context.Context, deviceID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("attestlog: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn,
		`SELECT id, recorded_at, device_id, accepted, policy, reason, quote
		 FROM evidence WHERE device_id = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{deviceID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record := Record{
					ID:         stmt.ColumnInt64(0),
					RecordedAt: time.UnixMilli(stmt.ColumnInt64(1)),
					DeviceID:   stmt.ColumnText(2),
					Accepted:   stmt.ColumnInt64(3) != 0,
					Policy:     stmt.ColumnText(4),
					Reason:     stmt.ColumnText(5),
				}
				encodedQuote := make([]byte, stmt.ColumnLen(6))
				stmt.ColumnBytes(6, encodedQuote)
				if err := codec.Unmarshal(encodedQuote, &record.Quote); err != nil {
					return fmt.Errorf("decoding stored quote %d: %w", record.ID, err)
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("attestlog: querying evidence for %s: %w", deviceID, err)
	}
	return records, nil
}

// RejectionStreak returns how many consecutive rejections the device
// has at the head of its history. Deployments alert past a threshold.
func (s *Store) RejectionStreak(ctx context.Context, deviceID string) (int, error) {
	records, err := s.Recent(ctx, deviceID, 100)
	if err != nil {
		return 0, err
	}
	streak := 0
	for _, record := range records {
		if record.Accepted {
			break
		}
		streak++
	}
	return streak, nil
}

// Close closes the store. Blocks until borrowed connections return.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("attestlog: closing %s: %w", s.path, err)
	}
	s.logger.Info("evidence store closed", "path", s.path)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
