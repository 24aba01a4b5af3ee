// Package postgres tails an append-only event table in PostgreSQL.
//
// The table needs a monotonically increasing integer id column and a JSON
// data column holding the event envelope. Progress is checkpointed per
// consumer name so a restart resumes after the last acknowledged row.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/custodia-labs/esload/internal/adapters/driven/source"
	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/logger"
)

// Ensure Source implements the interfaces.
var (
	_ driven.EventSource = (*Source)(nil)
	_ driven.Committer   = (*Source)(nil)
)

const (
	defaultTable        = "events"
	defaultConsumer     = "esload"
	defaultBatchSize    = 500
	defaultPollInterval = time.Second
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the event table and polling behaviour.
type Config struct {
	DSN          string
	Table        string
	Consumer     string
	BatchSize    int
	PollInterval time.Duration
	// Follow keeps polling once the table is drained instead of
	// returning io.EOF.
	Follow bool
}

type row struct {
	id   int64
	data []byte
}

// Source reads rows with id greater than the consumer's checkpoint.
type Source struct {
	db      *sql.DB
	cfg     Config
	fetch   string
	cursor  int64
	buf     []row
	tracker source.Tracker[int64]
}

// Open connects with lib/pq and resumes from the stored checkpoint.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	src, err := NewSource(ctx, db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}

// NewSource uses an existing connection. It creates the checkpoint table
// when missing.
func NewSource(ctx context.Context, db *sql.DB, cfg Config) (*Source, error) {
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	if cfg.Consumer == "" {
		cfg.Consumer = defaultConsumer
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if !identifier.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, cfg.Table)
	}

	s := &Source{
		db:  db,
		cfg: cfg,
		fetch: fmt.Sprintf(`
		SELECT id, data
		FROM %s
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, cfg.Table),
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS esload_checkpoints (
			consumer VARCHAR(255) PRIMARY KEY,
			last_id BIGINT NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}

	err := db.QueryRowContext(ctx,
		"SELECT last_id FROM esload_checkpoints WHERE consumer = $1", cfg.Consumer).Scan(&s.cursor)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	logger.Info("Postgres source %s resuming after id %d", cfg.Consumer, s.cursor)
	return s, nil
}

// Next returns the next decodable row. Rows that are not JSON objects
// are logged and skipped.
func (s *Source) Next(ctx context.Context) (domain.Event, error) {
	for {
		for len(s.buf) > 0 {
			r := s.buf[0]
			s.buf = s.buf[1:]

			ev, err := domain.ParseEvent(r.data)
			if err != nil {
				logger.Warn("Skipping row %s/%d: %v", s.cfg.Table, r.id, err)
				s.tracker.Skip(r.id)
				continue
			}
			s.tracker.Deliver(r.id)
			return ev, nil
		}

		if err := s.poll(ctx); err != nil {
			return domain.Event{}, err
		}
		if len(s.buf) > 0 {
			continue
		}
		if !s.cfg.Follow {
			return domain.Event{}, io.EOF
		}
		select {
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

func (s *Source) poll(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, s.fetch, s.cursor, s.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.data); err != nil {
			return fmt.Errorf("failed to scan event row: %w", err)
		}
		s.buf = append(s.buf, r)
		s.cursor = r.id
	}
	return rows.Err()
}

// Commit stores the id of the last row up to event seq.
func (s *Source) Commit(ctx context.Context, seq uint64) error {
	ids := s.tracker.Release(seq)
	if len(ids) == 0 {
		return nil
	}
	last := ids[len(ids)-1]
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO esload_checkpoints (consumer, last_id) VALUES ($1, $2)
		ON CONFLICT (consumer) DO UPDATE SET last_id = EXCLUDED.last_id`,
		s.cfg.Consumer, last)
	if err != nil {
		return fmt.Errorf("failed to store checkpoint %d: %w", last, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	return s.db.Close()
}
