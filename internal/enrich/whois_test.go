package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleWhois = `Domain Name: EXAMPLE.COM
Registry Domain ID: 2336799_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.example-registrar.com
Registrar URL: http://www.example-registrar.com
Updated Date: 2024-08-14T07:01:34Z
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2025-08-13T04:00:00Z
Registrar: Example Registrar, Inc.
Registrar IANA ID: 376
Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
Name Server: A.IANA-SERVERS.NET
Name Server: B.IANA-SERVERS.NET
DNSSEC: signedDelegation
>>> Last update of whois database: 2024-09-01T00:00:00Z <<<
`

type fakeRawWhois struct {
	raw   string
	err   error
	delay time.Duration
}

func (f fakeRawWhois) Whois(string, ...string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.raw, f.err
}

func TestParseWhois(t *testing.T) {
	t.Parallel()

	res, err := ParseWhois(sampleWhois)
	require.NoError(t, err)
	require.Equal(t, "Example Registrar, Inc.", res.Registrar)
	require.NotNil(t, res.CreationDate)
	require.Equal(t, 1995, res.CreationDate.Year())
	require.NotNil(t, res.ExpirationDate)
	require.Equal(t, 2025, res.ExpirationDate.Year())
	require.NotNil(t, res.UpdatedDate)
	require.Len(t, res.NameServers, 2)
	require.NotEmpty(t, res.Status)
}

func TestParseWhois_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseWhois("")
	require.Error(t, err)
}

func TestWhoisClient_Lookup(t *testing.T) {
	t.Parallel()

	c := &WhoisClient{client: fakeRawWhois{raw: sampleWhois}}
	res, err := c.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, "Example Registrar, Inc.", res.Registrar)

	c = &WhoisClient{client: fakeRawWhois{err: errors.New("no whois server")}}
	_, err = c.Lookup(context.Background(), "example.com")
	require.ErrorContains(t, err, "whois example.com")
}

func TestWhoisClient_LookupHonorsContext(t *testing.T) {
	t.Parallel()

	c := &WhoisClient{client: fakeRawWhois{raw: sampleWhois, delay: time.Second}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Lookup(ctx, "example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPickTime(t *testing.T) {
	t.Parallel()

	parsed := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, parsed, *pickTime(&parsed, "ignored"))
	require.Equal(t, 2019, pickTime(nil, "2019-05-06").Year())
	require.Equal(t, 2018, pickTime(nil, "06-May-2018").Year())
	require.Nil(t, pickTime(nil, "garbage"))
	require.Nil(t, pickTime(nil, ""))
}
