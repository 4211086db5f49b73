// Package risk computes the heuristic risk score of an intel record.
package risk

import (
	"strings"
	"time"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

// Score bounds.
const (
	MinScore  = 0
	MaxScore  = 10
	BaseScore = 5
)

// SuspiciousTerms are matched case-insensitively against website URLs.
var SuspiciousTerms = []string{"wallet", "crypto", "invest", "binary", "forex", "profit"}

// Scorer is the default heuristic scorer. It performs no I/O.
type Scorer struct{}

// New returns a Scorer.
func New() Scorer {
	return Scorer{}
}

// Score implements crawler.Scorer.
func (Scorer) Score(rec crawler.IntelRecord, now time.Time) int {
	return Score(rec, now)
}

// Score returns the bounded risk score of rec evaluated at now.
func Score(rec crawler.IntelRecord, now time.Time) int {
	score := BaseScore

	if age, known := rec.DomainInfo.AgeDays(now); known {
		switch {
		case age < 30:
			score += 2
		case age < 90:
			score++
		}
	}
	if distinctPhones(rec.Identifiers.Phones) > 2 {
		score++
	}
	if distinctEmails(rec.Identifiers.Emails) > 2 {
		score++
	}
	if len(rec.Identifiers.Wallets) > 0 {
		score++
	}
	if hasSuspiciousURL(rec.Websites) {
		score++
	}
	return min(max(score, MinScore), MaxScore)
}

func distinctPhones(phones []crawler.Phone) int {
	seen := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		key := p.NormalizedNumber
		if key == "" {
			key = p.Number
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}

func distinctEmails(emails []crawler.Email) int {
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		seen[strings.ToLower(e.Address)] = struct{}{}
	}
	return len(seen)
}

func hasSuspiciousURL(sites []crawler.Website) bool {
	for _, site := range sites {
		lower := strings.ToLower(site.URL)
		for _, term := range SuspiciousTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}
