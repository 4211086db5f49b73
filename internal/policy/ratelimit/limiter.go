// Package ratelimit paces requests issued by a single crawl worker.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
)

// Limiter enforces a minimum delay between consecutive requests.
// Each worker owns its own Limiter.
type Limiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// Config holds pacing configuration.
type Config struct {
	// Delay is the minimum gap between requests. Zero or negative disables pacing.
	Delay time.Duration
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		delay:   cfg.Delay,
	}
}

// Delay returns the configured inter-request gap.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}

// Wait blocks until the next request may be sent, respecting the context.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(hostOf(rawURL), waited)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
