// Package sqlite persists IntelRecords in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
)

const migration = `
CREATE TABLE IF NOT EXISTS intel_records (
	domain       TEXT PRIMARY KEY,
	id           TEXT NOT NULL,
	record       TEXT NOT NULL,
	risk_score   INTEGER NOT NULL,
	date_added   TEXT NOT NULL,
	last_updated TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_intel_records_risk ON intel_records(risk_score);
`

// RecordStore implements crawler.RecordStore on SQLite. The pool holds a
// single connection so read-modify-write transactions never interleave.
type RecordStore struct {
	db     *sql.DB
	scorer crawler.Scorer
	clock  crawler.Clock
}

// Open opens (or creates) the database at dsn, configures WAL mode and migrates the schema.
func Open(ctx context.Context, dsn string, scorer crawler.Scorer, clock crawler.Clock) (*RecordStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store.dsn is required: %w", crawler.ErrInvalidConfig)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite exec %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &RecordStore{db: db, scorer: scorer, clock: clock}, nil
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, found, err := getRecord(ctx, tx, rec.Domain)
	if err != nil {
		return crawler.IntelRecord{}, false, err
	}

	now := s.clock.Now()
	merged := crawler.MergeRecords(existing, rec, now)
	merged.RiskScore = s.scorer.Score(merged, now)
	doc, err := json.Marshal(merged)
	if err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("encode record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO intel_records (domain, id, record, risk_score, date_added, last_updated)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (domain) DO UPDATE SET
	record = excluded.record,
	risk_score = excluded.risk_score,
	last_updated = excluded.last_updated`,
		merged.Domain,
		merged.ID,
		string(doc),
		merged.RiskScore,
		merged.DateAdded.UTC().Format(time.RFC3339Nano),
		merged.LastUpdated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("write record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("commit: %w", err)
	}
	return merged, !found, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, domain string) (crawler.IntelRecord, bool, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT record FROM intel_records WHERE domain = ?`, domain).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return crawler.IntelRecord{}, false, nil
	}
	if err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("select record: %w", err)
	}
	var rec crawler.IntelRecord
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return crawler.IntelRecord{}, false, fmt.Errorf("decode record: %w", err)
	}
	return rec, true, nil
}

// Get loads the record for domain.
func (s *RecordStore) Get(ctx context.Context, domain string) (crawler.IntelRecord, bool, error) {
	rec, ok, err := getRecord(ctx, s.db, domain)
	if err != nil {
		return crawler.IntelRecord{}, false, &crawler.StoreError{Domain: domain, Op: "get", Err: err}
	}
	return rec, ok, nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM intel_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Ping verifies the database file is usable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
