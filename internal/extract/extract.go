// Package extract turns fetched HTML into structured identifier artifacts.
package extract

import (
	"bytes"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/patterns"
)

// Extractor applies a pattern library to raw markup and its rendered text.
type Extractor struct {
	lib    *patterns.Library
	clock  crawler.Clock
	logger *zap.Logger
}

// New returns an Extractor. A nil library selects patterns.Default.
func New(lib *patterns.Library, clock crawler.Clock, logger *zap.Logger) *Extractor {
	if lib == nil {
		lib = patterns.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{lib: lib, clock: clock, logger: logger}
}

// Extract scans rawHTML and its rendered text. rawHTML is not modified.
func (e *Extractor) Extract(sourceURL string, rawHTML []byte) crawler.PageArtifacts {
	now := e.clock.Now()
	title, text := render(rawHTML, e.logger)

	var sb strings.Builder
	sb.Grow(len(rawHTML) + len(text) + 1)
	sb.Write(rawHTML)
	sb.WriteByte(' ')
	sb.WriteString(text)
	corpus := sb.String()

	out := crawler.PageArtifacts{
		SourceURL: sourceURL,
		Title:     title,
		FetchedAt: now,
		Text:      text,
	}

	for _, m := range uniqueMatches(e.lib.Phone, corpus) {
		out.Phones = append(out.Phones, crawler.Phone{
			Number:           m,
			NormalizedNumber: NormalizePhone(m),
			FirstSeen:        now,
			LastSeen:         now,
			Status:           crawler.ItemStatusActive,
		})
	}

	seenEmail := make(map[string]struct{})
	for _, m := range uniqueMatches(e.lib.Email, corpus) {
		addr, domainPart := NormalizeEmail(m)
		if _, ok := seenEmail[addr]; ok {
			continue
		}
		seenEmail[addr] = struct{}{}
		out.Emails = append(out.Emails, crawler.Email{
			Address:    addr,
			DomainPart: domainPart,
			FirstSeen:  now,
			LastSeen:   now,
			Status:     crawler.ItemStatusActive,
		})
	}

	seenWallet := make(map[string]struct{})
	for _, rule := range e.lib.Wallets {
		for _, m := range uniqueMatches(rule, corpus) {
			if _, ok := seenWallet[m]; ok {
				continue
			}
			seenWallet[m] = struct{}{}
			out.Wallets = append(out.Wallets, crawler.Wallet{
				Address:   m,
				Currency:  rule.Tag,
				FirstSeen: now,
				LastSeen:  now,
			})
		}
	}

	seenSocial := make(map[string]struct{})
	for _, rule := range e.lib.Social {
		for _, m := range uniqueMatches(rule, corpus) {
			if _, ok := seenSocial[m]; ok {
				continue
			}
			seenSocial[m] = struct{}{}
			out.SocialProfiles = append(out.SocialProfiles, crawler.SocialProfile{
				Platform:   rule.Tag,
				Handle:     handleOf(m),
				ProfileURL: m,
				FirstSeen:  now,
				LastSeen:   now,
				Status:     crawler.ItemStatusActive,
			})
		}
	}
	return out
}

// NormalizePhone strips non-digits and applies the country prefix rule:
// more than ten digits gain a leading "+", exactly ten gain "+1", and any
// other length is returned as the bare digit string.
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	switch {
	case len(digits) > 10:
		return "+" + digits
	case len(digits) == 10:
		return "+1" + digits
	default:
		return digits
	}
}

// NormalizeEmail lowercases the address and returns it with the text after the last "@".
func NormalizeEmail(raw string) (address, domainPart string) {
	address = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndex(address, "@"); i >= 0 {
		domainPart = address[i+1:]
	}
	return address, domainPart
}

// uniqueMatches returns non-overlapping matches in first-seen order with duplicates removed.
func uniqueMatches(rule patterns.Rule, corpus string) []string {
	if rule.Pattern == nil {
		return nil
	}
	all := rule.Pattern.FindAllString(corpus, -1)
	if len(all) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, m := range all {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// handleOf returns the last path segment of a matched profile fragment.
func handleOf(fragment string) string {
	trimmed := strings.TrimRight(fragment, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if unescaped, err := url.PathUnescape(trimmed); err == nil {
		return unescaped
	}
	return trimmed
}

// render returns the document title and visible text with whitespace collapsed.
func render(rawHTML []byte, logger *zap.Logger) (string, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		logger.Debug("render html failed", zap.Error(err))
		return "", ""
	}
	title := collapse(doc.Find("title").First().Text())
	doc.Find("script,style,noscript").Remove()
	return title, collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
