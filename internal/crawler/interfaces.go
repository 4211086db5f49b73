package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// LinkDiscoverer extracts absolute outbound links from a fetched body, in document order.
type LinkDiscoverer interface {
	Discover(baseURL string, body []byte) ([]string, error)
}

// ArtifactExtractor turns a fetched page into a structured artifact set.
type ArtifactExtractor interface {
	Extract(url string, rawHTML []byte) PageArtifacts
}

// WhoisClient returns registration data for a registrable domain.
type WhoisClient interface {
	Lookup(ctx context.Context, domain string) (WhoisResult, error)
}

// WhoisResult is the subset of WHOIS data the enricher keeps.
type WhoisResult struct {
	Registrar      string
	CreationDate   *time.Time
	ExpirationDate *time.Time
	UpdatedDate    *time.Time
	NameServers    []string
	Status         []string
}

// DNSResolver resolves one record type for a domain.
type DNSResolver interface {
	Resolve(ctx context.Context, domain string, recordType string) ([]string, error)
}

// Enricher resolves a registrable domain to DomainInfo. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, domain string) DomainInfo
}

// Scorer maps a record to a bounded risk score.
type Scorer interface {
	Score(record IntelRecord, now time.Time) int
}

// RecordStore persists IntelRecords keyed by registrable domain with merge-on-conflict.
type RecordStore interface {
	Upsert(ctx context.Context, record IntelRecord) (IntelRecord, error)
	Get(ctx context.Context, domain string) (IntelRecord, bool, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// BlobStore writes page snapshots and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Hasher derives stable content keys for snapshot paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Pacer blocks until the next request may be sent.
type Pacer interface {
	Wait(ctx context.Context, url string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
