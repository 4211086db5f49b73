package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host and scheme", "HTTPS://Example.TEST/Path", "https://example.test/Path"},
		{"strips default https port", "https://example.test:443/a", "https://example.test/a"},
		{"strips default http port", "http://example.test:80/a", "http://example.test/a"},
		{"keeps custom port", "http://example.test:8080/a", "http://example.test:8080/a"},
		{"drops fragment", "https://example.test/a#top", "https://example.test/a"},
		{"sorts query", "https://example.test/a?b=2&a=1", "https://example.test/a?a=1&b=2"},
		{"adds root path", "https://example.test", "https://example.test/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURL_RejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("/just/a/path")
	require.Error(t, err)
	_, err = NormalizeURL("http://[::1")
	require.Error(t, err)
}

func TestIsHTTPURL(t *testing.T) {
	t.Parallel()

	require.True(t, IsHTTPURL("https://example.test/a"))
	require.True(t, IsHTTPURL("HTTP://example.test"))
	require.False(t, IsHTTPURL("mailto:test@example.test"))
	require.False(t, IsHTTPURL("javascript:void(0)"))
	require.False(t, IsHTTPURL("/relative"))
	require.False(t, IsHTTPURL("ftp://example.test/file"))
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/page", "example.com"},
		{"https://shop.example.co.uk/", "example.co.uk"},
		{"https://EXAMPLE.test/page", "example.test"},
		{"http://127.0.0.1:8080/", "127.0.0.1"},
		{"http://localhost/", "localhost"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := RegistrableDomain(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := RegistrableDomain("/no/host")
	require.Error(t, err)
}
