package collyfetcher

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// legacyTLSTransport retries HTTPS requests over a permissive TLS
// configuration when the modern handshake fails.
type legacyTLSTransport struct {
	primary http.RoundTripper
	legacy  http.RoundTripper
	logger  *zap.Logger
}

func (t *legacyTLSTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("legacy tls transport received nil request")
	}
	resp, err := t.primary.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if t.legacy == nil || req.URL == nil || req.URL.Scheme != "https" || !isTLSHandshakeError(err) {
		return nil, fmt.Errorf("roundtrip: %w", err)
	}
	if req.Body != nil && req.GetBody == nil {
		return nil, fmt.Errorf("roundtrip: %w", err)
	}

	t.logger.Debug("retrying with legacy tls",
		zap.String("host", req.URL.Host),
		zap.Error(err),
	)
	retry, cloneErr := cloneRequest(req)
	if cloneErr != nil {
		return nil, fmt.Errorf("roundtrip: %w", err)
	}
	resp, legacyErr := t.legacy.RoundTrip(retry)
	if legacyErr != nil {
		return nil, fmt.Errorf("legacy tls roundtrip: %w", legacyErr)
	}
	return resp, nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("clone request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

// isTLSHandshakeError reports whether err came from TLS negotiation rather than the network.
func isTLSHandshakeError(err error) bool {
	if err == nil {
		return false
	}
	var (
		alert      tls.AlertError
		recordErr  tls.RecordHeaderError
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &alert),
		errors.As(err, &recordErr),
		errors.As(err, &verifyErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls: ") &&
		!strings.Contains(msg, "handshake timeout")
}

func modernTLSConfig(insecureSkipVerify bool) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // scam sites routinely present broken certificates
	}
}

// legacyTLSConfig accepts TLS 1.0 through 1.2 and every cipher suite the
// runtime still implements, excluding plain DH which Go does not offer.
func legacyTLSConfig(insecureSkipVerify bool) *tls.Config {
	suites := make([]uint16, 0, 32)
	for _, s := range tls.CipherSuites() {
		suites = append(suites, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		suites = append(suites, s.ID)
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS10, //nolint:gosec // legacy fallback only
		MaxVersion:         tls.VersionTLS12,
		CipherSuites:       suites,
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // scam sites routinely present broken certificates
	}
}

func newHTTPTransport(tlsConfig *tls.Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
