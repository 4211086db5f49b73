package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if crawlerPagesTotal == nil || crawlerArtifactsTotal == nil ||
		crawlerRecordsUpsertedTotal == nil || crawlerEnrichmentFailuresTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObservers(t *testing.T) {
	ObserveCrawl("https://Metrics.test/page", "200", 512)
	if val := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues("metrics.test", "200")); val != 1 {
		t.Errorf("Expected crawler_pages_total to be 1, got %f", val)
	}
	if val := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("metrics.test")); val != 512 {
		t.Errorf("Expected crawler_bytes_total to be 512, got %f", val)
	}

	ObserveArtifacts("email", 3)
	ObserveArtifacts("email", 0)
	if val := testutil.ToFloat64(crawlerArtifactsTotal.WithLabelValues("email")); val != 3 {
		t.Errorf("Expected crawler_artifacts_total{email} to be 3, got %f", val)
	}

	ObserveUpsert("inserted")
	if val := testutil.ToFloat64(crawlerRecordsUpsertedTotal.WithLabelValues("inserted")); val != 1 {
		t.Errorf("Expected crawler_records_upserted_total{inserted} to be 1, got %f", val)
	}

	ObserveEnrichmentFailure("whois")
	if val := testutil.ToFloat64(crawlerEnrichmentFailuresTotal.WithLabelValues("whois")); val != 1 {
		t.Errorf("Expected crawler_enrichment_failures_total{whois} to be 1, got %f", val)
	}

	before := testutil.ToFloat64(crawlerFetchRetriesTotal)
	ObserveFetchRetry()
	if val := testutil.ToFloat64(crawlerFetchRetriesTotal); val != before+1 {
		t.Errorf("Expected crawler_fetch_retries_total to grow by 1, got %f", val-before)
	}

	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if val := testutil.ToFloat64(crawlerActiveWorkers); val != 1 {
		t.Errorf("Expected crawler_active_workers to be 1, got %f", val)
	}
	DecActiveWorkers()

	ObserveRateLimitDelay("metrics.test", 250*time.Millisecond)
	if val := testutil.CollectAndCount(crawlerRateLimitDelaysSeconds); val != 1 {
		t.Errorf("Expected one rate limit histogram series, got %d", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
