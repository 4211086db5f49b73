// Package enrich resolves registrable domains to WHOIS and DNS metadata.
package enrich

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/metrics"
)

// Enricher performs soft-failing lookups and memoizes one result per domain
// for the lifetime of the Enricher, which is one crawl run.
type Enricher struct {
	whois    crawler.WhoisClient
	resolver crawler.DNSResolver
	clock    crawler.Clock
	logger   *zap.Logger

	group   singleflight.Group
	results sync.Map // domain -> crawler.DomainInfo
}

// New constructs an Enricher. Either lookup client may be nil to skip that lookup.
func New(whois crawler.WhoisClient, resolver crawler.DNSResolver, clock crawler.Clock, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		whois:    whois,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// Enrich returns DomainInfo for domain. Concurrent callers for the same domain
// share a single lookup and later callers get the cached value.
func (e *Enricher) Enrich(ctx context.Context, domain string) crawler.DomainInfo {
	if cached, ok := e.results.Load(domain); ok {
		return cached.(crawler.DomainInfo)
	}
	v, _, _ := e.group.Do(domain, func() (any, error) {
		if cached, ok := e.results.Load(domain); ok {
			return cached, nil
		}
		info := e.lookup(ctx, domain)
		// results from a canceled context are not cached
		if ctx.Err() == nil {
			e.results.Store(domain, info)
		}
		return info, nil
	})
	return v.(crawler.DomainInfo)
}

// Cached reports how many domains have a memoized result.
func (e *Enricher) Cached() int {
	n := 0
	e.results.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (e *Enricher) lookup(ctx context.Context, domain string) crawler.DomainInfo {
	info := crawler.DomainInfo{
		RegistrableDomain: domain,
		DNSRecords:        make(map[string][]string, len(crawler.DNSRecordTypes)),
		DNSState:          make(map[string]crawler.LookupState, len(crawler.DNSRecordTypes)),
	}

	if e.whois != nil {
		res, err := e.whois.Lookup(ctx, domain)
		if err != nil {
			info.WhoisState = crawler.LookupUnavailable
			metrics.ObserveEnrichmentFailure("whois")
			e.logger.Warn("whois lookup failed", zap.String("domain", domain), zap.Error(err))
		} else {
			info.WhoisState = crawler.LookupOK
			info.Registrar = res.Registrar
			info.CreationDate = res.CreationDate
			info.ExpirationDate = res.ExpirationDate
			info.UpdatedDate = res.UpdatedDate
			info.NameServers = res.NameServers
			info.Status = res.Status
		}
	}

	for _, rt := range crawler.DNSRecordTypes {
		if e.resolver == nil {
			break
		}
		records, err := e.resolver.Resolve(ctx, domain, rt)
		if err != nil {
			info.DNSRecords[rt] = []string{}
			info.DNSState[rt] = crawler.LookupUnavailable
			metrics.ObserveEnrichmentFailure("dns_" + rt)
			e.logger.Debug("dns lookup failed",
				zap.String("domain", domain),
				zap.String("type", rt),
				zap.Error(err),
			)
			continue
		}
		if records == nil {
			records = []string{}
		}
		info.DNSRecords[rt] = records
		info.DNSState[rt] = crawler.LookupOK
	}

	info.LastChecked = e.clock.Now()
	return info
}
