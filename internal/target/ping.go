package target

import (
	"context"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/skim/internal/logging"
)

const defaultPingTimeout = 10 * time.Second

// Pinger runs a pre-scan reachability check. Its answer is informational:
// callers log it and scan regardless.
type Pinger struct {
	timeout time.Duration
	logger  *logging.Logger
}

// NewPinger creates a pinger that gives up after timeout.
func NewPinger(timeout time.Duration, logger *logging.Logger) *Pinger {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return &Pinger{timeout: timeout, logger: logger.WithComponent("ping")}
}

// Ping reports whether host answered an nmap host-discovery probe.
// A missing nmap binary or a failed run counts as no answer.
func (p *Pinger) Ping(ctx context.Context, host string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Info("Pinging target", "target", host)

	scanner, err := nmap.NewScanner(ctx,
		nmap.WithTargets(host),
		nmap.WithPingScan(), // Host discovery only, no port scan
		nmap.WithTimingTemplate(nmap.TimingAggressive),
	)
	if err != nil {
		p.logger.Warn("Ping unavailable, continuing without reachability check", "error", err)
		return false
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		p.logger.Warn("Ping failed - host might be down or blocking ICMP", "target", host, "error", err)
		return false
	}
	if warnings != nil && len(*warnings) > 0 {
		p.logger.Debug("Ping completed with warnings", "warnings", *warnings)
	}

	for i := range result.Hosts {
		if result.Hosts[i].Status.State == "up" {
			p.logger.Info("Ping successful", "target", host)
			return true
		}
	}

	p.logger.Warn("Ping failed - host might be down or blocking ICMP", "target", host)
	return false
}
