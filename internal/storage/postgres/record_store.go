// Package postgres persists IntelRecords as JSONB documents keyed by registrable domain.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "intel_records"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// RecordStore implements crawler.RecordStore on Postgres. Concurrent upserts of
// one domain are serialized with a transaction-scoped advisory lock.
type RecordStore struct {
	pool   pool
	table  string
	scorer crawler.Scorer
	clock  crawler.Clock
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config, scorer crawler.Scorer, clock crawler.Clock) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required: %w", crawler.ErrInvalidConfig)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table, scorer, clock)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string, scorer crawler.Scorer, clock crawler.Clock) (*RecordStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q: %w", table, crawler.ErrInvalidConfig)
	}
	return &RecordStore{pool: p, table: table, scorer: scorer, clock: clock}, nil
}

// Migrate creates the record table when it does not exist.
func (s *RecordStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	domain       TEXT PRIMARY KEY,
	id           TEXT NOT NULL,
	record       JSONB NOT NULL,
	risk_score   INTEGER NOT NULL,
	date_added   TIMESTAMPTZ NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// Upsert merges rec into the stored document for rec.Domain inside one transaction.
func (s *RecordStore) Upsert(ctx context.Context, rec crawler.IntelRecord) (crawler.IntelRecord, error) {
	if rec.Domain == "" {
		return crawler.IntelRecord{}, &crawler.StoreError{Op: "upsert", Err: errors.New("record has no domain")}
	}
	merged, inserted, err := s.upsertTx(ctx, rec)
	if err != nil {
		metrics.ObserveUpsert("error")
		return crawler.IntelRecord{}, &crawler.StoreError{Domain: rec.Domain, Op: "upsert", Err: err}
	}
	if inserted {
		metrics.ObserveUpsert("inserted")
	} else {
		metrics.ObserveUpsert("merged")
	}
	return merged, nil
}

func (s *RecordStore) upsertTx(ctx context.Context, rec crawler.IntelRecord) (crawler.IntelRecord, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("begin tx: %w", err)
	}
	fail := func(err error) (crawler.IntelRecord, bool, error) {
		_ = tx.Rollback(ctx)
		return crawler.IntelRecord{}, false, err
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", rec.Domain); err != nil {
		return fail(fmt.Errorf("lock domain: %w", err))
	}

	var (
		existing crawler.IntelRecord
		raw      []byte
	)
	err = tx.QueryRow(ctx, fmt.Sprintf("SELECT record FROM %s WHERE domain = $1", s.table), rec.Domain).Scan(&raw)
	found := true
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		found = false
	case err != nil:
		return fail(fmt.Errorf("select record: %w", err))
	default:
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fail(fmt.Errorf("decode record: %w", err))
		}
	}

	now := s.clock.Now()
	merged := crawler.MergeRecords(existing, rec, now)
	merged.RiskScore = s.scorer.Score(merged, now)
	doc, err := json.Marshal(merged)
	if err != nil {
		return fail(fmt.Errorf("encode record: %w", err))
	}

	query := fmt.Sprintf(`
INSERT INTO %s (domain, id, record, risk_score, date_added, last_updated)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (domain) DO UPDATE SET
	record = EXCLUDED.record,
	risk_score = EXCLUDED.risk_score,
	last_updated = EXCLUDED.last_updated`, s.table)
	if _, err := tx.Exec(ctx, query,
		merged.Domain,
		merged.ID,
		doc,
		merged.RiskScore,
		merged.DateAdded,
		merged.LastUpdated,
	); err != nil {
		return fail(fmt.Errorf("write record: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("commit: %w", err)
	}
	return merged, !found, nil
}

// Get loads the record for domain.
func (s *RecordStore) Get(ctx context.Context, domain string) (crawler.IntelRecord, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT record FROM %s WHERE domain = $1", s.table), domain).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.IntelRecord{}, false, nil
	}
	if err != nil {
		return crawler.IntelRecord{}, false, &crawler.StoreError{Domain: domain, Op: "get", Err: err}
	}
	var rec crawler.IntelRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return crawler.IntelRecord{}, false, &crawler.StoreError{Domain: domain, Op: "get", Err: err}
	}
	return rec, true, nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
