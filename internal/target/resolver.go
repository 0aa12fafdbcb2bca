// Package target validates and resolves scan targets before any probe is
// dispatched. A target is accepted as an IP literal or a hostname that
// resolves to at least one address, either through the system resolver or
// through an explicitly configured DNS server.
package target

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
)

const (
	defaultLookupTimeout = 5 * time.Second
	defaultDNSPort       = "53"

	FamilyIPv4 = "ipv4"
	FamilyIPv6 = "ipv6"
)

// Target is a validated scan target. It is immutable after resolution.
type Target struct {
	// Host is the target as given by the caller.
	Host string
	// Addr is the address every probe connects to.
	Addr netip.Addr
	// Family is FamilyIPv4 or FamilyIPv6.
	Family string
}

// HostPort returns the dial address for port on this target.
func (t Target) HostPort(port uint16) string {
	return net.JoinHostPort(t.Addr.String(), strconv.Itoa(int(port)))
}

// Config holds resolver settings.
type Config struct {
	// Nameserver, when set, is queried directly with A and AAAA questions
	// instead of going through the system resolver. Port defaults to 53.
	Nameserver string `yaml:"nameserver" json:"nameserver"`
	// Timeout bounds a single lookup.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Resolver turns target strings into Targets.
type Resolver struct {
	nameserver string
	timeout    time.Duration
	system     func(ctx context.Context, network, host string) ([]netip.Addr, error)
	logger     *logging.Logger
}

// NewResolver creates a resolver from cfg.
func NewResolver(cfg Config, logger *logging.Logger) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	nameserver := strings.TrimSpace(cfg.Nameserver)
	if nameserver != "" {
		if _, _, err := net.SplitHostPort(nameserver); err != nil {
			nameserver = net.JoinHostPort(strings.Trim(nameserver, "[]"), defaultDNSPort)
		}
	}

	return &Resolver{
		nameserver: nameserver,
		timeout:    timeout,
		system:     net.DefaultResolver.LookupNetIP,
		logger:     logger.WithComponent("resolver"),
	}
}

// Resolve validates host and returns the Target to scan. Every failure is a
// *errors.ConfigError with code TARGET_INVALID.
func (r *Resolver) Resolve(ctx context.Context, host string) (Target, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Target{}, errors.ErrInvalidTarget(host, fmt.Errorf("empty target"))
	}

	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return newTarget(host, addr), nil
	}

	if _, ok := dns.IsDomainName(host); !ok {
		return Target{}, errors.ErrInvalidTarget(host, fmt.Errorf("malformed hostname"))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		addrs []netip.Addr
		err   error
	)
	if r.nameserver != "" {
		addrs, err = r.queryNameserver(ctx, host)
	} else {
		addrs, err = r.system(ctx, "ip", host)
	}
	if err != nil {
		r.logger.Debug("Target lookup failed", "target", host, "error", err)
		return Target{}, errors.ErrInvalidTarget(host, err)
	}

	addr, ok := pickAddr(addrs)
	if !ok {
		return Target{}, errors.ErrInvalidTarget(host, fmt.Errorf("no addresses found for %s", host))
	}

	r.logger.Debug("Target resolved", "target", host, "address", addr.String())
	return newTarget(host, addr), nil
}

// queryNameserver asks the configured server for A then AAAA records.
func (r *Resolver) queryNameserver(ctx context.Context, host string) ([]netip.Addr, error) {
	client := &dns.Client{Timeout: r.timeout}
	fqdn := dns.Fqdn(host)

	var addrs []netip.Addr
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		resp, _, err := client.ExchangeContext(ctx, msg, r.nameserver)
		if err != nil {
			return nil, fmt.Errorf("query %s %s via %s: %w", dns.TypeToString[qtype], fqdn, r.nameserver, err)
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, fmt.Errorf("%s: NXDOMAIN", host)
		default:
			return nil, fmt.Errorf("%s: %s", host, dns.RcodeToString[resp.Rcode])
		}

		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				if a, ok := netip.AddrFromSlice(rec.A); ok {
					addrs = append(addrs, a.Unmap())
				}
			case *dns.AAAA:
				if a, ok := netip.AddrFromSlice(rec.AAAA); ok {
					addrs = append(addrs, a)
				}
			}
		}
	}

	return addrs, nil
}

// pickAddr prefers the first IPv4 address and falls back to the first IPv6.
func pickAddr(addrs []netip.Addr) (netip.Addr, bool) {
	var v6 netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if a.Is4() {
			return a, true
		}
		if !v6.IsValid() {
			v6 = a
		}
	}
	return v6, v6.IsValid()
}

func newTarget(host string, addr netip.Addr) Target {
	addr = addr.Unmap()
	family := FamilyIPv4
	if addr.Is6() {
		family = FamilyIPv6
	}
	return Target{Host: host, Addr: addr, Family: family}
}
