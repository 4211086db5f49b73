// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal              *prometheus.CounterVec
	crawlerBytesTotal              *prometheus.CounterVec
	crawlerArtifactsTotal          *prometheus.CounterVec
	crawlerRecordsUpsertedTotal    *prometheus.CounterVec
	crawlerEnrichmentFailuresTotal *prometheus.CounterVec
	crawlerFetchRetriesTotal       prometheus.Counter
	crawlerActiveWorkers           prometheus.Gauge
	crawlerRateLimitDelaysSeconds  *prometheus.HistogramVec
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages fetched, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerArtifactsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_artifacts_total",
				Help: "Identifiers extracted from pages, labeled by kind.",
			},
			[]string{"kind"},
		)

		crawlerRecordsUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_records_upserted_total",
				Help: "Record store upserts, labeled by result.",
			},
			[]string{"result"},
		)

		crawlerEnrichmentFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_enrichment_failures_total",
				Help: "Failed WHOIS and DNS lookups, labeled by lookup.",
			},
			[]string{"lookup"},
		)

		crawlerFetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_fetch_retries_total",
				Help: "Total fetch attempts retried after a transient failure.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently expanding a seed.",
			},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of pacing wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests to the operational API, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of operational API latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl increments the page and byte counters.
func ObserveCrawl(site string, status string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	crawlerPagesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveArtifacts adds n extracted identifiers of kind.
func ObserveArtifacts(kind string, n int) {
	if n <= 0 {
		return
	}
	Init()
	crawlerArtifactsTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveUpsert counts a record store write by result ("inserted", "merged", "error").
func ObserveUpsert(result string) {
	Init()
	crawlerRecordsUpsertedTotal.WithLabelValues(result).Inc()
}

// ObserveEnrichmentFailure counts a failed lookup ("whois", "dns_A", ...).
func ObserveEnrichmentFailure(lookup string) {
	Init()
	crawlerEnrichmentFailuresTotal.WithLabelValues(lookup).Inc()
}

// ObserveFetchRetry counts a retried fetch attempt.
func ObserveFetchRetry() {
	Init()
	crawlerFetchRetriesTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	crawlerActiveWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
