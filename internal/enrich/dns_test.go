package enrich

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// startDNSServer serves a fixed zone for scam.test on a random local UDP port.
func startDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		q := req.Question[0]
		if q.Name != "scam.test." {
			resp.Rcode = dns.RcodeNameError
			_ = w.WriteMsg(resp)
			return
		}
		hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}
		switch q.Qtype {
		case dns.TypeA:
			resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.10")})
		case dns.TypeMX:
			resp.Answer = append(resp.Answer, &dns.MX{Hdr: hdr, Preference: 10, Mx: "mail.scam.test."})
		case dns.TypeNS:
			resp.Answer = append(resp.Answer,
				&dns.NS{Hdr: hdr, Ns: "ns1.scam.test."},
				&dns.NS{Hdr: hdr, Ns: "ns2.scam.test."},
			)
		case dns.TypeTXT:
			resp.Answer = append(resp.Answer, &dns.TXT{Hdr: hdr, Txt: []string{"v=spf1 ", "-all"}})
		}
		_ = w.WriteMsg(resp)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSResolver_RecordTypes(t *testing.T) {
	t.Parallel()

	addr := startDNSServer(t)
	r := NewDNSResolver(DNSConfig{Servers: []string{addr}, Timeout: time.Second})
	ctx := context.Background()

	a, err := r.Resolve(ctx, "scam.test", "A")
	require.NoError(t, err)
	require.Equal(t, []string{"192.0.2.10"}, a)

	mx, err := r.Resolve(ctx, "scam.test", "MX")
	require.NoError(t, err)
	require.Equal(t, []string{"10 mail.scam.test."}, mx)

	ns, err := r.Resolve(ctx, "scam.test", "NS")
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.scam.test.", "ns2.scam.test."}, ns)

	txt, err := r.Resolve(ctx, "scam.test", "TXT")
	require.NoError(t, err)
	require.Equal(t, []string{"v=spf1 -all"}, txt)
}

func TestDNSResolver_NXDomainIsEmpty(t *testing.T) {
	t.Parallel()

	addr := startDNSServer(t)
	r := NewDNSResolver(DNSConfig{Servers: []string{addr}, Timeout: time.Second})

	got, err := r.Resolve(context.Background(), "missing.test", "A")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDNSResolver_FallsBackToNextServer(t *testing.T) {
	t.Parallel()

	// nothing listens on the first address
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.LocalAddr().String()
	require.NoError(t, dead.Close())

	addr := startDNSServer(t)
	r := NewDNSResolver(DNSConfig{Servers: []string{deadAddr, addr}, Timeout: 300 * time.Millisecond})

	got, err := r.Resolve(context.Background(), "scam.test", "A")
	require.NoError(t, err)
	require.Equal(t, []string{"192.0.2.10"}, got)
}

func TestDNSResolver_Errors(t *testing.T) {
	t.Parallel()

	r := NewDNSResolver(DNSConfig{Servers: []string{"127.0.0.1:1"}, Timeout: 200 * time.Millisecond})

	_, err := r.Resolve(context.Background(), "scam.test", "BOGUS")
	require.ErrorContains(t, err, "unsupported record type")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, "scam.test", "A")
	require.Error(t, err)
}
