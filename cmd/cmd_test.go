package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/scam-intel-crawler/internal/app"
	"github.com/JakeFAU/scam-intel-crawler/internal/config"
	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCrawlAndCountCommands(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body>Call 555-123-4567 or mail fraud@scam.test</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dsn := filepath.Join(t.TempDir(), "intel.db")
	cfgPath := writeConfig(t, `
crawler:
  delay_seconds: 0
http:
  max_attempts: 1
enrich:
  enabled: false
store:
  driver: sqlite
  dsn: `+dsn+`
logging:
  development: false
`)

	out, err := execute(t, "crawl", "--config", cfgPath, "--seed", srv.URL+"/", "--max-depth", "1", "--concurrency", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "URLs visited:              1")
	assert.Contains(t, out, "Records stored:            1")
	assert.Contains(t, out, "Total documents collected: 1")

	out, err = execute(t, "count", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "Total documents collected: 1\n", out)
}

func TestCrawlRequiresSeed(t *testing.T) {
	cfgPath := writeConfig(t, "logging:\n  development: false\n")
	_, err := execute(t, "crawl", "--config", cfgPath)
	require.ErrorIs(t, err, crawler.ErrInvalidConfig)
}

func TestCrawlRejectsRelativeSeed(t *testing.T) {
	cfgPath := writeConfig(t, "logging:\n  development: false\n")
	_, err := execute(t, "crawl", "--config", cfgPath, "--seed", "/contact")
	require.ErrorIs(t, err, crawler.ErrInvalidConfig)
}

func TestCrawlAppInitFailure(t *testing.T) {
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, config.Config, *zap.Logger) (*app.App, error) {
		return nil, errors.New("store unreachable")
	}

	cfgPath := writeConfig(t, "logging:\n  development: false\n")
	_, err := execute(t, "crawl", "--config", cfgPath, "--seed", "https://scam.test/")
	require.ErrorContains(t, err, "store unreachable")
}

func TestCountRejectsUnknownDriver(t *testing.T) {
	cfgPath := writeConfig(t, "store:\n  driver: mongo\nlogging:\n  development: false\n")
	_, err := execute(t, "count", "--config", cfgPath)
	require.ErrorIs(t, err, crawler.ErrInvalidConfig)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "count", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "load config")
}
