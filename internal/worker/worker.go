// Package worker implements the per-seed crawl pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
	"github.com/JakeFAU/scam-intel-crawler/internal/patterns"
)

// Frontier is the visited-set gate shared by all workers.
type Frontier interface {
	ShouldVisit(url string, depth int) bool
	MarkDispatched(url string, depth int) (string, bool)
	MarkResult(key string, err error)
}

// Config controls Worker behavior.
type Config struct {
	// StorePageText writes the rendered page text to the snapshot store.
	StorePageText  bool
	SnapshotPrefix string
	ContentType    string
}

// Deps bundles the collaborators a Worker drives. Enricher, Blobs and Pacer are optional.
type Deps struct {
	Frontier  Frontier
	Fetcher   crawler.Fetcher
	Pacer     crawler.Pacer
	Extractor crawler.ArtifactExtractor
	Links     crawler.LinkDiscoverer
	Enricher  crawler.Enricher
	Scorer    crawler.Scorer
	Store     crawler.RecordStore
	Blobs     crawler.BlobStore
	Hasher    crawler.Hasher
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
}

// Result tallies what one Crawl call did.
type Result struct {
	Visited     int
	Failed      int
	Stored      int
	StoreErrors int
	Errors      int
}

// Add accumulates other into r.
func (r *Result) Add(other Result) {
	r.Visited += other.Visited
	r.Failed += other.Failed
	r.Stored += other.Stored
	r.StoreErrors += other.StoreErrors
	r.Errors += other.Errors
}

// Worker crawls one seed's link tree depth-first.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Worker, error) {
	switch {
	case deps.Frontier == nil:
		return nil, errors.New("worker: frontier is required")
	case deps.Fetcher == nil:
		return nil, errors.New("worker: fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("worker: extractor is required")
	case deps.Links == nil:
		return nil, errors.New("worker: link discoverer is required")
	case deps.Scorer == nil:
		return nil, errors.New("worker: scorer is required")
	case deps.Store == nil:
		return nil, errors.New("worker: record store is required")
	case deps.Clock == nil:
		return nil, errors.New("worker: clock is required")
	case deps.IDs == nil:
		return nil, errors.New("worker: id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/plain; charset=utf-8"
	}
	return &Worker{deps: deps, cfg: cfg, logger: logger}, nil
}

// Crawl expands seed depth-first until its subtree is exhausted or ctx ends.
// Links are visited in document order.
func (w *Worker) Crawl(ctx context.Context, seed crawler.CrawlTarget) Result {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	var res Result
	stack := []crawler.CrawlTarget{seed}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			w.logger.Info("crawl abandoned",
				zap.String("seed", seed.URL),
				zap.Int("pending", len(stack)),
				zap.Error(ctx.Err()),
			)
			break
		}
		target := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := w.Process(ctx, target, &res)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return res
}

// Process runs one URL through fetch, extract, enrich, score and persist, and
// returns the outbound links to visit next. Failures never escape this URL.
func (w *Worker) Process(ctx context.Context, target crawler.CrawlTarget, res *Result) []crawler.CrawlTarget {
	key, ok := w.deps.Frontier.MarkDispatched(target.URL, target.Depth)
	if !ok {
		return nil
	}
	logger := w.logger.With(zap.String("url", target.URL), zap.Int("depth", target.Depth))

	if w.deps.Pacer != nil {
		if err := w.deps.Pacer.Wait(ctx, target.URL); err != nil {
			w.deps.Frontier.MarkResult(key, err)
			res.Failed++
			return nil
		}
	}

	resp, err := w.deps.Fetcher.Fetch(ctx, crawler.FetchRequest{URL: target.URL, Depth: target.Depth})
	w.deps.Frontier.MarkResult(key, err)
	if err != nil {
		res.Failed++
		res.Errors++
		logger.Warn("fetch failed", zap.Bool("transient", crawler.IsTransient(err)), zap.Error(err))
		return nil
	}
	res.Visited++
	logger.Debug("fetched page",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Int("attempts", resp.Attempts),
	)

	artifacts := w.deps.Extractor.Extract(target.URL, resp.Body)
	if artifacts.Empty() {
		logger.Debug("no identifiers found")
	} else {
		w.persist(ctx, target, artifacts, res, logger)
	}

	base := resp.URL
	if base == "" {
		base = target.URL
	}
	links, err := w.deps.Links.Discover(base, resp.Body)
	if err != nil {
		res.Errors++
		logger.Warn("link discovery failed", zap.Error(err))
		return nil
	}
	next := make([]crawler.CrawlTarget, 0, len(links))
	for _, link := range links {
		if !crawler.IsHTTPURL(link) || !w.deps.Frontier.ShouldVisit(link, target.Depth+1) {
			continue
		}
		next = append(next, crawler.CrawlTarget{URL: link, Depth: target.Depth + 1})
	}
	return next
}

func (w *Worker) persist(
	ctx context.Context,
	target crawler.CrawlTarget,
	artifacts crawler.PageArtifacts,
	res *Result,
	logger *zap.Logger,
) {
	observeArtifacts(artifacts)

	domain, err := crawler.RegistrableDomain(target.URL)
	if err != nil {
		res.Errors++
		logger.Warn("resolve registrable domain", zap.Error(err))
		return
	}
	info := crawler.DomainInfo{RegistrableDomain: domain}
	if w.deps.Enricher != nil {
		info = w.deps.Enricher.Enrich(ctx, domain)
	}

	id, err := w.deps.IDs.NewID()
	if err != nil {
		res.Errors++
		logger.Error("generate record id", zap.Error(err))
		return
	}

	now := w.deps.Clock.Now()
	rec := crawler.NewRecord(id, domain, artifacts, info, now)
	if uri := w.snapshot(ctx, domain, artifacts, logger); uri != "" {
		rec.Websites[0].SnapshotURI = uri
	}
	rec.RiskScore = w.deps.Scorer.Score(rec, now)

	stored, err := w.deps.Store.Upsert(ctx, rec)
	if err != nil {
		var storeErr *crawler.StoreError
		if !errors.As(err, &storeErr) {
			err = &crawler.StoreError{Domain: domain, Op: "upsert", Err: err}
		}
		res.StoreErrors++
		res.Errors++
		logger.Error("store record failed", zap.String("domain", domain), zap.Error(err))
		return
	}
	res.Stored++
	logger.Info("record stored",
		zap.String("domain", domain),
		zap.Int("identifiers", artifacts.Count()),
		zap.Int("risk_score", stored.RiskScore),
	)
}

func (w *Worker) snapshot(
	ctx context.Context,
	domain string,
	artifacts crawler.PageArtifacts,
	logger *zap.Logger,
) string {
	if !w.cfg.StorePageText || w.deps.Blobs == nil || w.deps.Hasher == nil {
		return ""
	}
	key, err := w.deps.Hasher.Hash([]byte(artifacts.SourceURL))
	if err != nil {
		logger.Warn("hash snapshot key", zap.Error(err))
		return ""
	}
	uri, err := w.deps.Blobs.PutObject(ctx, w.snapshotPath(domain, key), w.cfg.ContentType,
		strings.NewReader(artifacts.Text))
	if err != nil {
		logger.Warn("store page snapshot", zap.Error(err))
		return ""
	}
	return uri
}

func (w *Worker) snapshotPath(domain, key string) string {
	name := fmt.Sprintf("%s.txt", key)
	prefix := strings.Trim(w.cfg.SnapshotPrefix, "/")
	if prefix == "" {
		return path.Join(domain, name)
	}
	return path.Join(prefix, domain, name)
}

func observeArtifacts(a crawler.PageArtifacts) {
	metrics.ObserveArtifacts(string(patterns.KindPhone), len(a.Phones))
	metrics.ObserveArtifacts(string(patterns.KindEmail), len(a.Emails))
	metrics.ObserveArtifacts(string(patterns.KindWallet), len(a.Wallets))
	metrics.ObserveArtifacts(string(patterns.KindSocial), len(a.SocialProfiles))
}
