// Package app initializes and holds long-lived services for one process and
// assembles them into a crawl run.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/api"
	"github.com/JakeFAU/scam-intel-crawler/internal/clock/system"
	"github.com/JakeFAU/scam-intel-crawler/internal/config"
	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/dispatcher"
	"github.com/JakeFAU/scam-intel-crawler/internal/enrich"
	"github.com/JakeFAU/scam-intel-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/scam-intel-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/scam-intel-crawler/internal/frontier"
	"github.com/JakeFAU/scam-intel-crawler/internal/hash/sha256"
	"github.com/JakeFAU/scam-intel-crawler/internal/id/uuid"
	"github.com/JakeFAU/scam-intel-crawler/internal/links"
	"github.com/JakeFAU/scam-intel-crawler/internal/logging"
	"github.com/JakeFAU/scam-intel-crawler/internal/patterns"
	"github.com/JakeFAU/scam-intel-crawler/internal/policy/ratelimit"
	queueMemory "github.com/JakeFAU/scam-intel-crawler/internal/queue/memory"
	"github.com/JakeFAU/scam-intel-crawler/internal/risk"
	"github.com/JakeFAU/scam-intel-crawler/internal/storage/gcs"
	"github.com/JakeFAU/scam-intel-crawler/internal/storage/local"
	"github.com/JakeFAU/scam-intel-crawler/internal/storage/memory"
	"github.com/JakeFAU/scam-intel-crawler/internal/storage/postgres"
	"github.com/JakeFAU/scam-intel-crawler/internal/storage/sqlite"
	"github.com/JakeFAU/scam-intel-crawler/internal/worker"
)

const pingTimeout = 5 * time.Second

// App holds the record store, the optional snapshot store and the logger.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	clock  crawler.Clock
	scorer risk.Scorer
	store  crawler.RecordStore
	blobs  crawler.BlobStore

	closeOnce sync.Once
	closers   []func() error
}

// Report is what a finished crawl run hands back to the CLI.
type Report struct {
	dispatcher.Summary
	Frontier frontier.Stats
	// Total is the store's record count after the run.
	Total int64
}

// New opens the configured stores. An unreachable record store is fatal.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New(), scorer: risk.New()}

	store, err := OpenStore(ctx, cfg.Store, a.scorer, a.clock)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("record store unreachable: %w", err)
	}
	logger.Info("record store ready", zap.String("driver", cfg.Store.Driver))

	blobs, closeBlobs, err := openBlobs(ctx, cfg.Snapshot)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.blobs = blobs
	if closeBlobs != nil {
		a.closers = append(a.closers, closeBlobs)
	}
	return a, nil
}

// OpenStore builds the record store named by cfg.Driver and prepares its schema.
func OpenStore(ctx context.Context, cfg config.StoreConfig, scorer crawler.Scorer, clock crawler.Clock) (crawler.RecordStore, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.NewRecordStore(scorer, clock), nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.MaxConns,
		}, scorer, clock)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DSN, scorer, clock)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q: %w", cfg.Driver, crawler.ErrInvalidConfig)
	}
}

func openBlobs(ctx context.Context, cfg config.SnapshotConfig) (crawler.BlobStore, func() error, error) {
	switch cfg.Backend {
	case config.SnapshotNone, "":
		return nil, nil, nil
	case config.SnapshotLocal:
		store, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("open local snapshot store: %w", err)
		}
		return store, nil, nil
	case config.SnapshotGCS:
		store, err := gcs.New(ctx, gcs.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs snapshot store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q: %w", cfg.Backend, crawler.ErrInvalidConfig)
	}
}

// Store returns the record store.
func (a *App) Store() crawler.RecordStore {
	return a.store
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Crawl runs every configured seed through a fresh worker pool and reports the outcome.
// The frontier and enrichment cache live only for this call.
func (a *App) Crawl(ctx context.Context) (Report, error) {
	cfg := a.cfg
	front := frontier.New(cfg.Crawler.MaxDepth)

	var enricher *enrich.Enricher
	if cfg.Enrich.Enabled {
		enricher = enrich.New(
			enrich.NewWhoisClient(time.Duration(cfg.Enrich.WhoisTimeoutSeconds)*time.Second),
			enrich.NewDNSResolver(enrich.DNSConfig{
				Servers: cfg.Enrich.DNSServers,
				Timeout: time.Duration(cfg.Enrich.DNSTimeoutSeconds) * time.Second,
			}),
			a.clock,
			a.logger.Named("enrich"),
		)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgents:         cfg.Crawler.UserAgents,
		RespectRobots:      cfg.Crawler.RespectRobots,
		Timeout:            cfg.Timeout(),
		MaxAttempts:        cfg.HTTP.MaxAttempts,
		BackoffInitial:     cfg.BackoffInitial(),
		BackoffMax:         cfg.BackoffMax(),
		LegacyTLSFallback:  cfg.HTTP.LegacyTLSFallback,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
	}, a.logger.Named("fetcher"))
	extractor := extract.New(patterns.Default(), a.clock, a.logger.Named("extract"))
	discoverer := links.New()
	hasher := sha256.New()
	ids := uuid.New()

	workers := make([]dispatcher.SeedCrawler, 0, cfg.Crawler.Concurrency)
	for i := 0; i < cfg.Crawler.Concurrency; i++ {
		deps := worker.Deps{
			Frontier:  front,
			Fetcher:   fetcher,
			Pacer:     ratelimit.New(ratelimit.Config{Delay: cfg.Delay()}),
			Extractor: extractor,
			Links:     discoverer,
			Scorer:    a.scorer,
			Store:     a.store,
			Blobs:     a.blobs,
			Hasher:    hasher,
			Clock:     a.clock,
			IDs:       ids,
		}
		if enricher != nil {
			deps.Enricher = enricher
		}
		w, err := worker.New(deps, worker.Config{
			StorePageText:  cfg.Crawler.StorePageText,
			SnapshotPrefix: cfg.Snapshot.Prefix,
		}, logging.ForWorker(a.logger, i))
		if err != nil {
			return Report{}, fmt.Errorf("build worker %d: %w", i, err)
		}
		workers = append(workers, w)
	}

	pool, err := dispatcher.New(
		queueMemory.NewQueue(cfg.Crawler.QueueDepth),
		workers,
		dispatcher.Config{Budget: cfg.Budget()},
		a.logger.Named("dispatcher"),
	)
	if err != nil {
		return Report{}, fmt.Errorf("build dispatcher: %w", err)
	}

	stopServer := a.startServer(ctx, front, enricher)
	summary := pool.Run(ctx, cfg.Crawler.SeedURLs)
	stopServer()

	report := Report{Summary: summary, Frontier: front.Stats()}
	countCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	total, err := a.store.Count(countCtx)
	if err != nil {
		return report, fmt.Errorf("count records: %w", err)
	}
	report.Total = total
	return report, nil
}

// startServer runs the operational HTTP surface when an address is configured.
// The returned func stops it and waits for shutdown.
func (a *App) startServer(ctx context.Context, front *frontier.Frontier, enricher *enrich.Enricher) func() {
	addr := a.cfg.Server.MetricsAddr
	if addr == "" {
		return func() {}
	}
	deps := api.Deps{Store: a.store, Frontier: front}
	if enricher != nil {
		deps.Cache = enricher
	}
	server := api.NewServer(deps, a.logger.Named("api"))

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.ListenAndServe(srvCtx, addr); err != nil {
			a.logger.Error("http server error", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Close releases every service in reverse order of creation. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			a.logger.Warn("error closing application services", zap.Error(err))
		}
	})
}
