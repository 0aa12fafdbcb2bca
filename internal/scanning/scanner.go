package scanning

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/metrics"
	"github.com/anstrom/skim/internal/target"
)

var validate = validator.New()

// Validate checks cfg against its field constraints.
func (c ScanConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("%s failed %q constraint", fe.Field(), fe.Tag()), fe.Field(), fe.Value())
		}
		return errors.WrapConfigError(errors.CodeValidation, "invalid scan configuration", err)
	}
	return nil
}

// Scanner runs a full scan of one target: every port is probed concurrently
// under a concurrency cap, and results come back in port-list order.
type Scanner struct {
	config  ScanConfig
	dialer  Dialer
	metrics metrics.Recorder
	logger  *logging.Logger
}

// NewScanner creates a scanner after validating cfg.
func NewScanner(cfg ScanConfig, recorder metrics.Recorder, logger *logging.Logger) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Scanner{
		config:  cfg,
		metrics: recorder,
		logger:  logger.WithComponent("scanner"),
	}, nil
}

// SetDialer replaces the dialer used for every connection.
func (s *Scanner) SetDialer(d Dialer) {
	s.dialer = d
}

// Run probes every port in ports and returns one result per port, in the
// same order. If ctx is cancelled before every probe completes, all results
// are discarded and the error wraps errors.ErrUserAbort.
func (s *Scanner) Run(ctx context.Context, t target.Target, ports PortSpec) ([]ScanResult, Statistics, error) {
	stats := Statistics{
		ScanID:     uuid.NewString(),
		Target:     t.Host,
		Address:    t.Addr.String(),
		TotalPorts: len(ports),
		StartTime:  time.Now(),
	}

	logger := s.logger.WithScanID(stats.ScanID).WithTarget(t.Host)
	logger.Info("Starting scan",
		"address", stats.Address,
		"ports", len(ports),
		"concurrency", s.config.MaxConcurrency,
		"timeout", s.config.Timeout)

	prober := NewProber(s.config, s.dialer, s.metrics, logger)
	limiter := NewFixedResourceManager(s.config.MaxConcurrency)
	defer func() {
		_ = limiter.Close()
	}()

	results := make([]ScanResult, len(ports))
	var wg sync.WaitGroup
	interrupted := false

	for i, port := range ports {
		probeID := strconv.Itoa(i)
		if err := limiter.Acquire(ctx, probeID); err != nil {
			interrupted = true
			break
		}
		s.metrics.AddActiveProbes(1)
		if s.config.Verbose && limiter.Available() == 0 {
			logger.Debug("Concurrency limit reached", "in_flight", limiter.Active())
		}

		wg.Add(1)
		go func(i int, port uint16, probeID string) {
			defer wg.Done()
			defer func() {
				s.metrics.AddActiveProbes(-1)
				limiter.Release(probeID)
			}()

			r := prober.Probe(ctx, t, port)
			results[i] = r

			switch {
			case r.IsOpen:
				logger.Info("Port open", "port", r.Port, "service", r.ServiceName(),
					"banner", r.Banner, "tls", r.TLS != nil, "response_time", r.ResponseTime)
			case s.config.Verbose:
				logger.Debug("Port closed", "port", r.Port, "attempts", r.Attempts)
			}
		}(i, port, probeID)
	}

	wg.Wait()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if interrupted || ctx.Err() != nil {
		s.metrics.IncrementScansTotal("aborted")
		logger.Warn("Scan interrupted, discarding partial results", "elapsed", stats.Duration)
		return nil, stats, fmt.Errorf("scan of %s: %w", t.Host, errors.ErrUserAbort)
	}

	open := 0
	for i := range results {
		if results[i].IsOpen {
			open++
		}
	}
	stats.OpenPorts = open

	s.metrics.IncrementScansTotal("success")
	s.metrics.RecordScanDuration(stats.Duration)
	s.metrics.IncrementPortsScanned("open", open)
	s.metrics.IncrementPortsScanned("closed", len(results)-open)

	logger.Info("Scan completed", "open_ports", open, "total_ports", len(results), "duration", stats.Duration)
	return results, stats, nil
}
