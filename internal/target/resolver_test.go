package target

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
)

// startDNSServer serves scanme.test. as 192.0.2.10 and 2001:db8::10 and
// answers NXDOMAIN for everything else.
func startDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		q := req.Question[0]
		if q.Name != "scanme.test." {
			m.SetRcode(req, dns.RcodeNameError)
			_ = w.WriteMsg(m)
			return
		}

		m.SetReply(req)
		switch q.Qtype {
		case dns.TypeA:
			rr, _ := dns.NewRR("scanme.test. 60 IN A 192.0.2.10")
			m.Answer = append(m.Answer, rr)
		case dns.TypeAAAA:
			rr, _ := dns.NewRR("scanme.test. 60 IN AAAA 2001:db8::10")
			m.Answer = append(m.Answer, rr)
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestResolve_IPLiterals(t *testing.T) {
	r := NewResolver(Config{}, logging.Discard())

	tests := []struct {
		name   string
		input  string
		addr   string
		family string
	}{
		{"ipv4", "127.0.0.1", "127.0.0.1", FamilyIPv4},
		{"ipv4 with spaces", "  10.0.0.5 ", "10.0.0.5", FamilyIPv4},
		{"ipv6", "::1", "::1", FamilyIPv6},
		{"bracketed ipv6", "[2001:db8::1]", "2001:db8::1", FamilyIPv6},
		{"ipv4-mapped ipv6", "::ffff:192.0.2.1", "192.0.2.1", FamilyIPv4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt, err := r.Resolve(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.addr, tgt.Addr.String())
			assert.Equal(t, tt.family, tgt.Family)
		})
	}
}

func TestResolve_InvalidTargets(t *testing.T) {
	r := NewResolver(Config{Timeout: 2 * time.Second}, logging.Discard())

	for _, input := range []string{"", "   ", "bad host name!", "no.such.host.invalid"} {
		t.Run(input, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), input)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeTargetInvalid), "got %v", err)
		})
	}
}

func TestResolve_SystemResolverStub(t *testing.T) {
	r := NewResolver(Config{}, logging.Discard())
	r.system = func(_ context.Context, network, host string) ([]netip.Addr, error) {
		assert.Equal(t, "ip", network)
		assert.Equal(t, "example.test", host)
		return []netip.Addr{netip.MustParseAddr("2001:db8::5"), netip.MustParseAddr("198.51.100.7")}, nil
	}

	tgt, err := r.Resolve(context.Background(), "example.test")
	require.NoError(t, err)
	assert.Equal(t, "example.test", tgt.Host)
	assert.Equal(t, "198.51.100.7", tgt.Addr.String())
	assert.Equal(t, "198.51.100.7:443", tgt.HostPort(443))
}

func TestResolve_SystemResolverEmpty(t *testing.T) {
	r := NewResolver(Config{}, logging.Discard())
	r.system = func(context.Context, string, string) ([]netip.Addr, error) { return nil, nil }

	_, err := r.Resolve(context.Background(), "empty.test")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTargetInvalid))
}

func TestResolve_Nameserver(t *testing.T) {
	addr := startDNSServer(t)
	r := NewResolver(Config{Nameserver: addr, Timeout: 2 * time.Second}, logging.Discard())

	t.Run("answers prefer ipv4", func(t *testing.T) {
		tgt, err := r.Resolve(context.Background(), "scanme.test")
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.10", tgt.Addr.String())
		assert.Equal(t, FamilyIPv4, tgt.Family)
	})

	t.Run("nxdomain", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "missing.test")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeTargetInvalid))
		assert.Contains(t, err.Error(), "NXDOMAIN")
	})
}

func TestNewResolver_NameserverDefaultPort(t *testing.T) {
	assert.Equal(t, "192.0.2.53:53", NewResolver(Config{Nameserver: "192.0.2.53"}, logging.Discard()).nameserver)
	assert.Equal(t, "[2001:db8::53]:53", NewResolver(Config{Nameserver: "2001:db8::53"}, logging.Discard()).nameserver)
	assert.Equal(t, "192.0.2.53:5353", NewResolver(Config{Nameserver: "192.0.2.53:5353"}, logging.Discard()).nameserver)
}

func TestPinger_NeverBlocksPastTimeout(t *testing.T) {
	p := NewPinger(2*time.Second, logging.Discard())

	start := time.Now()
	_ = p.Ping(context.Background(), "127.0.0.1")
	assert.Less(t, time.Since(start), 10*time.Second)
}
