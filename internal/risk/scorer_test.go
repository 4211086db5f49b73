package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func createdDaysAgo(days int) crawler.DomainInfo {
	created := now.AddDate(0, 0, -days)
	return crawler.DomainInfo{WhoisState: crawler.LookupOK, CreationDate: &created, LastChecked: now}
}

func phones(n int) []crawler.Phone {
	out := make([]crawler.Phone, n)
	for i := range out {
		out[i] = crawler.Phone{NormalizedNumber: fmt.Sprintf("+1555000%04d", i)}
	}
	return out
}

func emails(n int) []crawler.Email {
	out := make([]crawler.Email, n)
	for i := range out {
		out[i] = crawler.Email{Address: fmt.Sprintf("user%d@scam.test", i)}
	}
	return out
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  crawler.IntelRecord
		want int
	}{
		{
			name: "baseline",
			rec: crawler.IntelRecord{
				Identifiers: crawler.Identifiers{Phones: phones(2), Emails: emails(2)},
				Websites:    []crawler.Website{{URL: "https://example.test/page"}},
			},
			want: 5,
		},
		{name: "new domain", rec: crawler.IntelRecord{DomainInfo: createdDaysAgo(10)}, want: 7},
		{name: "young domain", rec: crawler.IntelRecord{DomainInfo: createdDaysAgo(30)}, want: 6},
		{name: "89 days", rec: crawler.IntelRecord{DomainInfo: createdDaysAgo(89)}, want: 6},
		{name: "established domain", rec: crawler.IntelRecord{DomainInfo: createdDaysAgo(90)}, want: 5},
		{
			name: "failed whois ignores stale creation date",
			rec: func() crawler.IntelRecord {
				info := createdDaysAgo(1)
				info.WhoisState = crawler.LookupUnavailable
				return crawler.IntelRecord{DomainInfo: info}
			}(),
			want: 5,
		},
		{name: "many phones", rec: crawler.IntelRecord{Identifiers: crawler.Identifiers{Phones: phones(3)}}, want: 6},
		{name: "many emails", rec: crawler.IntelRecord{Identifiers: crawler.Identifiers{Emails: emails(3)}}, want: 6},
		{
			name: "duplicate phones count once",
			rec: crawler.IntelRecord{Identifiers: crawler.Identifiers{Phones: []crawler.Phone{
				{NormalizedNumber: "+15551234567"}, {NormalizedNumber: "+15551234567"}, {NormalizedNumber: "+15551234567"},
			}}},
			want: 5,
		},
		{
			name: "wallet",
			rec:  crawler.IntelRecord{Identifiers: crawler.Identifiers{Wallets: []crawler.Wallet{{Address: "x", Currency: "BTC"}}}},
			want: 6,
		},
		{
			name: "suspicious url is case insensitive",
			rec:  crawler.IntelRecord{Websites: []crawler.Website{{URL: "https://example.test/Crypto-Gains"}}},
			want: 6,
		},
		{
			name: "everything capped at ten",
			rec: crawler.IntelRecord{
				DomainInfo: createdDaysAgo(1),
				Identifiers: crawler.Identifiers{
					Phones:  phones(5),
					Emails:  emails(5),
					Wallets: []crawler.Wallet{{Address: "x"}},
				},
				Websites: []crawler.Website{{URL: "https://forex-profit.test/invest"}},
			},
			want: 10,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Score(tc.rec, now)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got, MinScore)
			require.LessOrEqual(t, got, MaxScore)
		})
	}
}

func TestScorerImplementsPort(t *testing.T) {
	t.Parallel()

	var s crawler.Scorer = New()
	require.Equal(t, BaseScore, s.Score(crawler.IntelRecord{}, now))
}
