package scanning

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/metrics"
	"github.com/anstrom/skim/internal/target"
)

//go:generate mockgen -source=prober.go -destination=mocks/mock_dialer.go -package=mocks

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// bannerProbes are sent in order on an open connection until one of them
// draws a non-empty response.
var bannerProbes = [][]byte{
	[]byte("HEAD / HTTP/1.0\r\n\r\n"),
	[]byte("GET / HTTP/1.0\r\n\r\n"),
	[]byte("\r\n\r\n"),
	[]byte("HELP\r\n"),
}

// Prober examines a single port: connect with retries, then banner grab,
// TLS handshake and service classification on success.
type Prober struct {
	config  ScanConfig
	dialer  Dialer
	policy  RetryPolicy
	metrics metrics.Recorder
	logger  *logging.Logger
}

// NewProber creates a prober. A nil dialer uses a *net.Dialer with the
// configured timeout.
func NewProber(cfg ScanConfig, dialer Dialer, recorder metrics.Recorder, logger *logging.Logger) *Prober {
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.Timeout}
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Prober{
		config: cfg,
		dialer: dialer,
		policy: RetryPolicy{
			MaxAttempts:       cfg.Retries,
			ExhaustionBackoff: cfg.ExhaustionBackoff,
		},
		metrics: recorder,
		logger:  logger,
	}
}

// Probe returns the result for port on t. It never fails: any problem
// yields a closed result, or an open result with empty fields.
func (p *Prober) Probe(ctx context.Context, t target.Target, port uint16) ScanResult {
	result := ScanResult{Port: port, Protocol: ProtocolTCP}
	addr := t.HostPort(port)
	logger := p.logger.WithPort(port)

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		start := time.Now()
		conn, outcome, err := p.connect(ctx, addr)
		p.metrics.IncrementProbeAttempts(outcome.String())

		if outcome == OutcomeSuccess {
			result.IsOpen = true
			result.ResponseTime = time.Since(start)
			p.inspect(ctx, t, addr, conn, &result, logger)
			return result
		}

		if p.config.Verbose {
			logger.Debug("Connect attempt failed", "attempt", attempt, "outcome", outcome.String(), "error", err)
		}

		retry, wait := p.policy.Next(attempt, outcome)
		if !retry || ctx.Err() != nil {
			return result
		}
		if wait > 0 {
			logger.Warn("Local resources exhausted, backing off", "wait", wait,
				"error", errors.WrapScanErrorWithPort(errors.CodeResourceExhausted, "connect", t.Host, port, err))
			if !sleepContext(ctx, wait) {
				return result
			}
		}
	}
}

func (p *Prober) connect(ctx context.Context, addr string) (net.Conn, AttemptOutcome, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, ClassifyDialError(err), err
	}
	return conn, OutcomeSuccess, nil
}

// inspect fills banner, TLS and service details for an open port and closes conn.
func (p *Prober) inspect(ctx context.Context, t target.Target, addr string, conn net.Conn, result *ScanResult, logger *logging.Logger) {
	// Closing the connection unblocks a pending banner read on interrupt.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	banner, err := p.grabBanner(ctx, conn)
	if err != nil && banner == "" {
		logger.Debug("No banner received", "error",
			errors.WrapScanErrorWithPort(errors.CodeBannerFailed, "banner", t.Host, result.Port, err))
	}
	result.Banner = banner

	if ctx.Err() != nil {
		return
	}

	info, err := p.probeTLS(ctx, t.Host, addr)
	if err != nil {
		logger.Debug("TLS handshake failed", "error",
			errors.WrapScanErrorWithPort(errors.CodeTLSFailed, "tls", t.Host, result.Port, err))
	} else {
		result.TLS = info
		p.metrics.IncrementTLSDetected()
	}

	result.Service = ClassifyService(result.Port, result.Banner)
}

// grabBanner sends each probe in turn and returns the first non-empty
// response, decoded leniently and trimmed.
func (p *Prober) grabBanner(ctx context.Context, conn net.Conn) (string, error) {
	buf := make([]byte, p.config.BannerSize)

	var lastErr error
	for _, probe := range bannerProbes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := conn.SetDeadline(time.Now().Add(p.config.Timeout)); err != nil {
			return "", err
		}

		if _, err := conn.Write(probe); err != nil {
			lastErr = err
			continue
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if banner := decodeBanner(buf[:n]); banner != "" {
				return banner, nil
			}
		}
		if err != nil {
			lastErr = err
		}
	}

	return "", lastErr
}

// decodeBanner drops invalid UTF-8 sequences and surrounding whitespace.
func decodeBanner(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
}

// probeTLS opens a second connection and attempts a TLS handshake without
// certificate verification.
func (p *Prober) probeTLS(ctx context.Context, host, addr string) (*TLSInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	raw, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	conn := tls.Client(raw, &tls.Config{
		ServerName:         strings.Trim(host, "[]"),
		InsecureSkipVerify: true, //nolint:gosec // certificates are recorded, not trusted
		MinVersion:         tls.VersionTLS10,
	})
	defer func() {
		_ = conn.Close()
	}()

	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	state := conn.ConnectionState()
	info := &TLSInfo{
		Version: tls.VersionName(state.Version),
		Cipher:  tls.CipherSuiteName(state.CipherSuite),
	}
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		info.Cert = &CertInfo{
			Subject:   leaf.Subject.String(),
			Issuer:    leaf.Issuer.String(),
			NotBefore: leaf.NotBefore,
			NotAfter:  leaf.NotAfter,
		}
	}
	return info, nil
}
