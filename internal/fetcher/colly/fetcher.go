// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	// UserAgents is rotated per request. Empty selects colly's random browser agents.
	UserAgents         []string
	RespectRobots      bool
	Timeout            time.Duration
	MaxAttempts        int
	BackoffInitial     time.Duration
	BackoffMax         time.Duration
	LegacyTLSFallback  bool
	InsecureSkipVerify bool
}

// browserHeaders are sent with every request alongside the rotating User-Agent.
// Accept-Encoding is left to the transport so compressed bodies are decoded.
var browserHeaders = http.Header{
	"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
	"Accept-Language":           {"en-US,en;q=0.5"},
	"Connection":                {"keep-alive"},
	"Upgrade-Insecure-Requests": {"1"},
	"Sec-Fetch-Dest":            {"document"},
	"Sec-Fetch-Mode":            {"navigate"},
	"Sec-Fetch-Site":            {"none"},
	"Sec-Fetch-User":            {"?1"},
	"Cache-Control":             {"max-age=0"},
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	retry         *RetryPolicy
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit(), colly.ParseHTTPErrorResponse())
	c.IgnoreRobotsTxt = !cfg.RespectRobots

	var transport http.RoundTripper = newHTTPTransport(modernTLSConfig(cfg.InsecureSkipVerify))
	if cfg.LegacyTLSFallback {
		transport = &legacyTLSTransport{
			primary: transport,
			legacy:  newHTTPTransport(legacyTLSConfig(cfg.InsecureSkipVerify)),
			logger:  logger,
		}
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		retry:         NewRetryPolicy(cfg.MaxAttempts, cfg.BackoffInitial, cfg.BackoffMax),
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch retrieves a URL, retrying transient failures with backoff.
// Non-2xx terminal statuses are returned as *crawler.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	if !crawler.IsHTTPURL(request.URL) {
		return crawler.FetchResponse{}, &crawler.FetchError{
			URL:  request.URL,
			Kind: crawler.FetchPermanent,
			Err:  errors.New("not an absolute http(s) url"),
		}
	}

	start := time.Now()
	for attempt := 1; ; attempt++ {
		resp, err := f.fetchOnce(ctx, request, start)
		if err == nil {
			resp.Attempts = attempt
			metrics.ObserveCrawl(request.URL, fmt.Sprintf("%d", resp.StatusCode), len(resp.Body))
			return resp, nil
		}
		if !f.retry.ShouldRetry(err, attempt) {
			metrics.ObserveCrawl(request.URL, statusLabel(err), 0)
			return crawler.FetchResponse{}, err
		}
		delay := f.retry.Backoff(attempt)
		metrics.ObserveFetchRetry()
		f.logger.Debug("retrying fetch",
			zap.String("url", request.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("colly fetch canceled: %w", err)
		}
	}
}

func (f *Fetcher) fetchOnce(
	ctx context.Context,
	request crawler.FetchRequest,
	start time.Time,
) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, request, start, &result, &fetchErr)
	if len(f.cfg.UserAgents) == 0 {
		extensions.RandomUserAgent(collector)
	}
	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return crawler.FetchResponse{}, err
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		for key, values := range browserHeaders {
			r.Headers.Set(key, values[0])
		}
		if ua := f.pickUserAgent(); ua != "" {
			r.Headers.Set("User-Agent", ua)
		}
		copyHeaders(request.Headers, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			*fetchErr = crawler.NewStatusError(request.URL, r.StatusCode)
			return
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		// responses with a status were already handled in OnResponse
		if r != nil && r.StatusCode > 0 {
			return
		}
		*fetchErr = classifyTransportError(request.URL, err)
	})
}

func (f *Fetcher) pickUserAgent() string {
	switch len(f.cfg.UserAgents) {
	case 0:
		return ""
	case 1:
		return f.cfg.UserAgents[0]
	default:
		return f.cfg.UserAgents[rand.IntN(len(f.cfg.UserAgents))] //nolint:gosec // rotation, not security
	}
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return classifyTransportError(target, err)
		}
		return nil
	}
}

func copyHeaders(headers http.Header, r *colly.Request) {
	for key, values := range headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

// classifyTransportError wraps a failure that carried no HTTP status.
func classifyTransportError(target string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			return fmt.Errorf("colly fetch canceled: %w", err)
		}
	}
	kind := crawler.FetchTransient
	var (
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, colly.ErrRobotsTxtBlocked),
		errors.Is(err, colly.ErrForbiddenDomain),
		errors.Is(err, colly.ErrForbiddenURL),
		errors.Is(err, colly.ErrMissingURL):
		kind = crawler.FetchPermanent
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		kind = crawler.FetchPermanent
	case errors.As(err, &urlErr) && urlErr.Op == "parse":
		kind = crawler.FetchPermanent
	}
	return &crawler.FetchError{URL: target, Kind: kind, Err: err}
}

func statusLabel(err error) string {
	var fe *crawler.FetchError
	if errors.As(err, &fe) && fe.StatusCode > 0 {
		return fmt.Sprintf("%d", fe.StatusCode)
	}
	return "error"
}
