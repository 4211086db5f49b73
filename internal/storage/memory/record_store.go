// Package memory provides in-process record and snapshot stores for local runs and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
)

// RecordStore keeps IntelRecords in a map keyed by registrable domain.
// Upserts on the same domain are serialized by a per-domain lock.
type RecordStore struct {
	scorer crawler.Scorer
	clock  crawler.Clock

	mu      sync.RWMutex
	records map[string]crawler.IntelRecord
	locks   sync.Map // domain -> *sync.Mutex
}

// NewRecordStore constructs an empty RecordStore.
func NewRecordStore(scorer crawler.Scorer, clock crawler.Clock) *RecordStore {
	return &RecordStore{
		scorer:  scorer,
		clock:   clock,
		records: make(map[string]crawler.IntelRecord),
	}
}

// Upsert inserts rec or merges it into the stored record for rec.Domain and
// rescores the result.
func (s *RecordStore) Upsert(ctx context.Context, rec crawler.IntelRecord) (crawler.IntelRecord, error) {
	if rec.Domain == "" {
		return crawler.IntelRecord{}, &crawler.StoreError{Op: "upsert", Err: errors.New("record has no domain")}
	}
	if err := ctx.Err(); err != nil {
		return crawler.IntelRecord{}, &crawler.StoreError{Domain: rec.Domain, Op: "upsert", Err: err}
	}

	lock := s.domainLock(rec.Domain)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	existing, found := s.records[rec.Domain]
	s.mu.RUnlock()

	now := s.clock.Now()
	merged := crawler.MergeRecords(existing, rec, now)
	merged.RiskScore = s.scorer.Score(merged, now)

	s.mu.Lock()
	s.records[rec.Domain] = merged
	s.mu.Unlock()

	if found {
		metrics.ObserveUpsert("merged")
	} else {
		metrics.ObserveUpsert("inserted")
	}
	return merged, nil
}

// Get returns the record stored for domain.
func (s *RecordStore) Get(_ context.Context, domain string) (crawler.IntelRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[domain]
	return rec, ok, nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Ping always succeeds.
func (s *RecordStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *RecordStore) Close() error { return nil }

func (s *RecordStore) domainLock(domain string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(domain, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
