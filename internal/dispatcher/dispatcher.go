// Package dispatcher fans seed URLs out to a bounded pool of crawl workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/worker"
)

// Queue carries seed targets from the dispatcher to its workers.
type Queue interface {
	Enqueue(ctx context.Context, target crawler.CrawlTarget) error
	Dequeue(ctx context.Context) (crawler.CrawlTarget, error)
	Close()
}

// SeedCrawler expands one seed. *worker.Worker implements it.
type SeedCrawler interface {
	Crawl(ctx context.Context, seed crawler.CrawlTarget) worker.Result
}

// Config controls a run.
type Config struct {
	// Budget bounds the wall-clock length of a run. Zero means unlimited.
	Budget time.Duration
}

// Summary is reported at the end of a run.
type Summary struct {
	Seeds         int
	URLsVisited   int64
	URLsFailed    int64
	RecordsStored int64
	StoreErrors   int64
	Errors        int64
	Duration      time.Duration
	// Canceled is true when the budget elapsed or the caller stopped the run early.
	Canceled bool
}

type counters struct {
	visited     atomic.Int64
	failed      atomic.Int64
	stored      atomic.Int64
	storeErrors atomic.Int64
	errors      atomic.Int64
}

func (c *counters) add(r worker.Result) {
	c.visited.Add(int64(r.Visited))
	c.failed.Add(int64(r.Failed))
	c.stored.Add(int64(r.Stored))
	c.storeErrors.Add(int64(r.StoreErrors))
	c.errors.Add(int64(r.Errors))
}

// Dispatcher fans queue work out to a pool of workers.
type Dispatcher struct {
	queue   Queue
	workers []SeedCrawler
	cfg     Config
	logger  *zap.Logger
}

// New creates a Dispatcher. The pool size is len(workers).
func New(queue Queue, workers []SeedCrawler, cfg Config, logger *zap.Logger) (*Dispatcher, error) {
	if queue == nil {
		return nil, errors.New("dispatcher: queue is required")
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("dispatcher: at least one worker is required: %w", crawler.ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: queue, workers: workers, cfg: cfg, logger: logger}, nil
}

// Run feeds seeds to the pool and blocks until every seed subtree is
// exhausted or ctx (bounded by the configured budget) ends.
func (d *Dispatcher) Run(ctx context.Context, seeds []string) Summary {
	start := time.Now()
	if d.cfg.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Budget)
		defer cancel()
	}

	go d.produce(ctx, seeds)

	var (
		wg    sync.WaitGroup
		total counters
	)
	for i, w := range d.workers {
		wg.Add(1)
		go func(id int, wk SeedCrawler) {
			defer wg.Done()
			d.consume(ctx, id, wk, &total)
		}(i, w)
	}
	wg.Wait()

	summary := Summary{
		Seeds:         len(seeds),
		URLsVisited:   total.visited.Load(),
		URLsFailed:    total.failed.Load(),
		RecordsStored: total.stored.Load(),
		StoreErrors:   total.storeErrors.Load(),
		Errors:        total.errors.Load(),
		Duration:      time.Since(start),
		Canceled:      ctx.Err() != nil,
	}
	d.logger.Info("crawl run finished",
		zap.Int("seeds", summary.Seeds),
		zap.Int64("urls_visited", summary.URLsVisited),
		zap.Int64("urls_failed", summary.URLsFailed),
		zap.Int64("records_stored", summary.RecordsStored),
		zap.Int64("errors", summary.Errors),
		zap.Duration("duration", summary.Duration),
		zap.Bool("canceled", summary.Canceled),
	)
	return summary
}

func (d *Dispatcher) produce(ctx context.Context, seeds []string) {
	defer d.queue.Close()
	for _, seed := range seeds {
		if err := d.queue.Enqueue(ctx, crawler.CrawlTarget{URL: seed, Depth: 0}); err != nil {
			d.logger.Warn("seed enqueue stopped", zap.String("seed", seed), zap.Error(err))
			return
		}
	}
}

func (d *Dispatcher) consume(ctx context.Context, id int, wk SeedCrawler, total *counters) {
	for {
		target, err := d.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, crawler.ErrQueueClosed) && ctx.Err() == nil {
				d.logger.Error("seed dequeue failed", zap.Int("worker", id), zap.Error(err))
			}
			return
		}
		d.logger.Debug("seed dequeued", zap.Int("worker", id), zap.String("seed", target.URL))
		total.add(wk.Crawl(ctx, target))
	}
}
