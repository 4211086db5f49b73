package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
	"github.com/JakeFAU/scam-intel-crawler/internal/patterns"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestExtractor() (*Extractor, time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return New(nil, fixedClock{now: now}, nil), now
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"(234) 567-8901", "+12345678901"},
		{"555-123-4567", "+15551234567"},
		{"+44 20 7946 0958", "+442079460958"},
		{"+1-234-567-8901", "+12345678901"},
		{"123-4567", "1234567"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizePhone(tc.in))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	addr, domain := NormalizeEmail("Foo@BAR.com")
	require.Equal(t, "foo@bar.com", addr)
	require.Equal(t, "bar.com", domain)

	again, againDomain := NormalizeEmail(addr)
	require.Equal(t, addr, again)
	require.Equal(t, domain, againDomain)
}

func TestExtract_ContactPage(t *testing.T) {
	t.Parallel()

	ex, now := newTestExtractor()
	html := []byte(`<html><head><title> Example  Support </title></head><body>
		<p>contact: test@example.test</p>
		<p>phone: 555-123-4567</p>
		<a href="mailto:TEST@example.test">mail</a>
		<a href="https://t.me/scamhelp">telegram</a>
		<p>send BTC to bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq</p>
	</body></html>`)
	original := append([]byte(nil), html...)

	got := ex.Extract("https://example.test/page", html)

	require.Equal(t, original, html)
	require.Equal(t, "https://example.test/page", got.SourceURL)
	require.Equal(t, "Example Support", got.Title)
	require.Equal(t, now, got.FetchedAt)

	require.Len(t, got.Phones, 1)
	require.Equal(t, "555-123-4567", got.Phones[0].Number)
	require.Equal(t, "+15551234567", got.Phones[0].NormalizedNumber)
	require.Equal(t, crawler.ItemStatusActive, got.Phones[0].Status)

	require.Len(t, got.Emails, 1)
	require.Equal(t, "test@example.test", got.Emails[0].Address)
	require.Equal(t, "example.test", got.Emails[0].DomainPart)

	require.Len(t, got.Wallets, 1)
	require.Equal(t, patterns.CurrencyBTC, got.Wallets[0].Currency)

	require.Len(t, got.SocialProfiles, 1)
	require.Equal(t, patterns.PlatformTelegram, got.SocialProfiles[0].Platform)
	require.Equal(t, "scamhelp", got.SocialProfiles[0].Handle)
	require.Equal(t, "t.me/scamhelp", got.SocialProfiles[0].ProfileURL)
	require.Equal(t, 4, got.Count())
}

func TestExtract_AttributeOnlyAndTextOnly(t *testing.T) {
	t.Parallel()

	ex, _ := newTestExtractor()
	html := []byte(`<html><body><div data-phone="(234) 567-8901"></div><p>write alice@scam.test</p></body></html>`)

	got := ex.Extract("https://scam.test/", html)
	require.Len(t, got.Phones, 1)
	require.Equal(t, "+12345678901", got.Phones[0].NormalizedNumber)
	require.Len(t, got.Emails, 1)
}

func TestExtract_InsertionOrder(t *testing.T) {
	t.Parallel()

	ex, _ := newTestExtractor()
	html := []byte(`<p>b@two.test a@one.test b@two.test</p>`)

	got := ex.Extract("https://two.test/", html)
	require.Len(t, got.Emails, 2)
	require.Equal(t, "b@two.test", got.Emails[0].Address)
	require.Equal(t, "a@one.test", got.Emails[1].Address)
}

func TestExtract_NoMatches(t *testing.T) {
	t.Parallel()

	ex, _ := newTestExtractor()
	got := ex.Extract("https://quiet.test/", []byte(`<html><head><title>Quiet</title></head><body><p>Nothing to see.</p></body></html>`))

	require.True(t, got.Empty())
	require.Zero(t, got.Count())
	require.Equal(t, "Quiet", got.Title)
	require.Contains(t, got.Text, "Nothing to see.")
}
