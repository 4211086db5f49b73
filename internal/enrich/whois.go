package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

// rawWhois is the subset of *whois.Client used here.
type rawWhois interface {
	Whois(domain string, servers ...string) (string, error)
}

// WhoisClient queries WHOIS servers and parses the response.
type WhoisClient struct {
	client rawWhois
}

// NewWhoisClient returns a client with the given per-query timeout.
func NewWhoisClient(timeout time.Duration) *WhoisClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhoisClient{client: whois.NewClient().SetTimeout(timeout)}
}

// Lookup fetches and parses WHOIS data for domain.
func (c *WhoisClient) Lookup(ctx context.Context, domain string) (crawler.WhoisResult, error) {
	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := c.client.Whois(domain)
		ch <- reply{raw: raw, err: err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return crawler.WhoisResult{}, fmt.Errorf("whois %s: %w", domain, ctx.Err())
	case r = <-ch:
	}
	if r.err != nil {
		return crawler.WhoisResult{}, fmt.Errorf("whois %s: %w", domain, r.err)
	}
	return ParseWhois(r.raw)
}

// ParseWhois converts a raw WHOIS response into a WhoisResult.
func ParseWhois(raw string) (crawler.WhoisResult, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return crawler.WhoisResult{}, fmt.Errorf("parse whois: %w", err)
	}

	var out crawler.WhoisResult
	if info.Registrar != nil {
		out.Registrar = strings.TrimSpace(info.Registrar.Name)
	}
	if d := info.Domain; d != nil {
		out.CreationDate = pickTime(d.CreatedDateInTime, d.CreatedDate)
		out.ExpirationDate = pickTime(d.ExpirationDateInTime, d.ExpirationDate)
		out.UpdatedDate = pickTime(d.UpdatedDateInTime, d.UpdatedDate)
		out.NameServers = append([]string(nil), d.NameServers...)
		out.Status = append([]string(nil), d.Status...)
	}
	return out, nil
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func pickTime(parsed *time.Time, raw string) *time.Time {
	if parsed != nil && !parsed.IsZero() {
		t := parsed.UTC()
		return &t
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
