// Package runner ties skim's stages into one scan pass: resolve the target,
// optionally ping it, probe every port, finalize the report and publish it.
// Both the one-shot scan command and the recurring watch use it.
package runner

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/report"
	"github.com/anstrom/skim/internal/scanning"
	"github.com/anstrom/skim/internal/target"
)

// Resolver turns a host argument into a scan target.
type Resolver interface {
	Resolve(ctx context.Context, host string) (target.Target, error)
}

// Pinger checks reachability before a scan.
type Pinger interface {
	Ping(ctx context.Context, host string) bool
}

// Runner executes scan passes.
type Runner struct {
	resolver  Resolver
	pinger    Pinger
	scanner   *scanning.Scanner
	publisher *report.Publisher
	logger    *logging.Logger
}

// New creates a runner. A nil pinger skips the reachability check.
func New(resolver Resolver, pinger Pinger, scanner *scanning.Scanner,
	publisher *report.Publisher, logger *logging.Logger) *Runner {
	return &Runner{
		resolver:  resolver,
		pinger:    pinger,
		scanner:   scanner,
		publisher: publisher,
		logger:    logger.WithComponent("runner"),
	}
}

// Run performs one scan of host over ports.
//
// Resolution failures and interrupts return a nil report. When the scan
// completes but an output fails, the report is returned together with the
// publish error so callers can treat it as a warning.
func (r *Runner) Run(ctx context.Context, host string, ports scanning.PortSpec) (*report.Report, error) {
	t, err := r.resolver.Resolve(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("resolve %s: %w", host, errors.ErrUserAbort)
		}
		r.logger.ErrorScan("Target resolution failed", host, err)
		return nil, err
	}

	logger := r.logger.WithTarget(t.Host)
	logger.Debug("Target resolved", "address", t.Addr.String(), "family", t.Family)

	if r.pinger != nil {
		if !r.pinger.Ping(ctx, t.Addr.String()) {
			logger.Warn("Target did not answer ping, scanning anyway")
		}
	}

	results, stats, err := r.scanner.Run(ctx, t, ports)
	if err != nil {
		return nil, err
	}

	rep := report.Finalize(results, stats)
	r.logger.InfoScan("Scan complete", t.Host,
		"scan_id", rep.Stats.ScanID,
		"open_ports", rep.Stats.OpenPorts,
		"total_ports", rep.Stats.TotalPorts,
		"duration", rep.Stats.Duration)

	if err := r.publisher.Publish(ctx, rep); err != nil {
		return rep, fmt.Errorf("publish report: %w", err)
	}
	return rep, nil
}
