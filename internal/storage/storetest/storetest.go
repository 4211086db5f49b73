// Package storetest holds behavior tests shared by every crawler.RecordStore.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/risk"
)

// Clock is a settable clock for store tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock fixed at now.
func NewClock(now time.Time) *Clock { return &Clock{now: now} }

// Now returns the current fixed time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Factory builds an empty store wired to the given scorer and clock.
type Factory func(t *testing.T, scorer crawler.Scorer, clock crawler.Clock) crawler.RecordStore

// Start is the base time used by the suite.
var Start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Page builds a single-page record under domain observed at seen.
func Page(id, domain, url string, seen time.Time, phones ...string) crawler.IntelRecord {
	artifacts := crawler.PageArtifacts{SourceURL: url, FetchedAt: seen}
	for _, p := range phones {
		artifacts.Phones = append(artifacts.Phones, crawler.Phone{
			Number: p, NormalizedNumber: p, FirstSeen: seen, LastSeen: seen, Status: crawler.ItemStatusActive,
		})
	}
	return crawler.NewRecord(id, domain, artifacts, crawler.DomainInfo{RegistrableDomain: domain}, seen)
}

// Run exercises upsert, merge, lookup and count semantics against a fresh store per subtest.
func Run(t *testing.T, factory Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert then get", func(t *testing.T) {
		clock := NewClock(Start)
		s := factory(t, risk.New(), clock)

		stored, err := s.Upsert(ctx, Page("id-1", "scam.test", "https://scam.test/a", Start, "+15551234567"))
		require.NoError(t, err)
		require.Equal(t, "id-1", stored.ID)
		require.Equal(t, risk.BaseScore, stored.RiskScore)

		got, ok, err := s.Get(ctx, "scam.test")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "scam.test", got.Domain)
		require.Len(t, got.Identifiers.Phones, 1)
		require.True(t, got.DateAdded.Equal(Start))

		_, ok, err = s.Get(ctx, "other.test")
		require.NoError(t, err)
		require.False(t, ok)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("merge keeps identity and unions items", func(t *testing.T) {
		clock := NewClock(Start)
		s := factory(t, risk.New(), clock)

		_, err := s.Upsert(ctx, Page("id-1", "scam.test", "https://scam.test/a", Start, "+15551234567"))
		require.NoError(t, err)

		later := Start.Add(time.Hour)
		clock.Advance(time.Hour)
		merged, err := s.Upsert(ctx, Page("id-2", "scam.test", "https://scam.test/b", later,
			"+15551234567", "+15550000001", "+15550000002"))
		require.NoError(t, err)

		require.Equal(t, "id-1", merged.ID)
		require.True(t, merged.DateAdded.Equal(Start))
		require.True(t, merged.LastUpdated.Equal(later))
		require.Len(t, merged.Identifiers.Phones, 3)
		require.Len(t, merged.Websites, 2)
		require.True(t, merged.Identifiers.Phones[0].FirstSeen.Equal(Start))
		require.True(t, merged.Identifiers.Phones[0].LastSeen.Equal(later))
		require.Equal(t, risk.BaseScore+1, merged.RiskScore)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("repeat upsert is idempotent", func(t *testing.T) {
		clock := NewClock(Start)
		s := factory(t, risk.New(), clock)

		rec := Page("id-1", "scam.test", "https://scam.test/a", Start, "+15551234567")
		once, err := s.Upsert(ctx, rec)
		require.NoError(t, err)
		clock.Advance(time.Minute)
		twice, err := s.Upsert(ctx, rec)
		require.NoError(t, err)

		once.LastUpdated, twice.LastUpdated = time.Time{}, time.Time{}
		require.Equal(t, normalize(once), normalize(twice))
	})

	t.Run("concurrent upserts on one domain lose nothing", func(t *testing.T) {
		clock := NewClock(Start)
		s := factory(t, risk.New(), clock)

		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				url := fmt.Sprintf("https://scam.test/%d", i)
				phone := fmt.Sprintf("+1555000%04d", i)
				_, err := s.Upsert(ctx, Page(fmt.Sprintf("id-%d", i), "scam.test", url, Start, phone))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, ok, err := s.Get(ctx, "scam.test")
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, got.Websites, writers)
		require.Len(t, got.Identifiers.Phones, writers)
	})

	t.Run("rejects empty domain", func(t *testing.T) {
		s := factory(t, risk.New(), NewClock(Start))
		_, err := s.Upsert(ctx, crawler.IntelRecord{})
		var storeErr *crawler.StoreError
		require.ErrorAs(t, err, &storeErr)
	})

	t.Run("ping", func(t *testing.T) {
		s := factory(t, risk.New(), NewClock(Start))
		require.NoError(t, s.Ping(ctx))
	})
}

// normalize strips monotonic clock readings and locations so records read
// back from different backends compare equal.
func normalize(rec crawler.IntelRecord) crawler.IntelRecord {
	fix := func(t time.Time) time.Time { return t.UTC().Round(0) }
	rec.DateAdded = fix(rec.DateAdded)
	rec.LastUpdated = fix(rec.LastUpdated)
	rec.DomainInfo.LastChecked = fix(rec.DomainInfo.LastChecked)
	for i := range rec.Identifiers.Phones {
		rec.Identifiers.Phones[i].FirstSeen = fix(rec.Identifiers.Phones[i].FirstSeen)
		rec.Identifiers.Phones[i].LastSeen = fix(rec.Identifiers.Phones[i].LastSeen)
	}
	for i := range rec.Websites {
		rec.Websites[i].FirstSeen = fix(rec.Websites[i].FirstSeen)
		rec.Websites[i].LastSeen = fix(rec.Websites[i].LastSeen)
	}
	return rec
}
