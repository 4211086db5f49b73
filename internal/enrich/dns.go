package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultDNSServers are queried in order when none are configured.
var DefaultDNSServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// DNSResolver queries upstream resolvers directly with miekg/dns.
type DNSResolver struct {
	servers []string
	timeout time.Duration
	client  *dns.Client
}

// DNSConfig holds resolver configuration.
type DNSConfig struct {
	Servers []string
	Timeout time.Duration
}

// NewDNSResolver creates a resolver that tries each server in turn.
func NewDNSResolver(cfg DNSConfig) *DNSResolver {
	if len(cfg.Servers) == 0 {
		cfg.Servers = DefaultDNSServers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &DNSResolver{
		servers: cfg.Servers,
		timeout: cfg.Timeout,
		client:  &dns.Client{Timeout: cfg.Timeout},
	}
}

// Resolve returns the records of recordType for domain. A name that does not
// exist yields an empty result, not an error.
func (r *DNSResolver) Resolve(ctx context.Context, domain string, recordType string) ([]string, error) {
	qtype, ok := dns.StringToType[strings.ToUpper(recordType)]
	if !ok {
		return nil, fmt.Errorf("resolve %s: unsupported record type %q", domain, recordType)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, _, err := r.client.ExchangeContext(queryCtx, msg, server)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			return answerValues(resp.Answer, qtype), nil
		case dns.RcodeNameError:
			return nil, nil
		default:
			lastErr = fmt.Errorf("server %s answered %s", server, dns.RcodeToString[resp.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no dns servers configured")
	}
	return nil, fmt.Errorf("resolve %s %s: %w", recordType, domain, lastErr)
}

func answerValues(answers []dns.RR, qtype uint16) []string {
	out := make([]string, 0, len(answers))
	for _, rr := range answers {
		if rr.Header().Rrtype != qtype {
			continue
		}
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.MX:
			out = append(out, fmt.Sprintf("%d %s", v.Preference, v.Mx))
		case *dns.NS:
			out = append(out, v.Ns)
		case *dns.TXT:
			out = append(out, strings.Join(v.Txt, ""))
		default:
			out = append(out, strings.TrimPrefix(rr.String(), rr.Header().String()))
		}
	}
	return out
}
