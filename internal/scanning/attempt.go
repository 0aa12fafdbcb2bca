package scanning

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"syscall"
	"time"
)

// AttemptOutcome is the classified result of one connect attempt.
type AttemptOutcome int

const (
	OutcomeSuccess AttemptOutcome = iota
	OutcomeRefused
	OutcomeTimedOut
	OutcomeResourceExhausted
	OutcomeOtherError
)

// String returns the outcome's metric label.
func (o AttemptOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRefused:
		return "refused"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeResourceExhausted:
		return "resource_exhausted"
	default:
		return "error"
	}
}

// ClassifyDialError maps a dial error onto an AttemptOutcome.
func ClassifyDialError(err error) AttemptOutcome {
	if err == nil {
		return OutcomeSuccess
	}

	switch {
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return OutcomeRefused
	case isResourceExhausted(err):
		return OutcomeResourceExhausted
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, os.ErrDeadlineExceeded):
		return OutcomeTimedOut
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimedOut
	}
	return OutcomeOtherError
}

// isResourceExhausted reports whether the local host ran out of file
// descriptors, socket buffers or memory.
func isResourceExhausted(err error) bool {
	return stderrors.Is(err, syscall.EMFILE) ||
		stderrors.Is(err, syscall.ENFILE) ||
		stderrors.Is(err, syscall.ENOBUFS) ||
		stderrors.Is(err, syscall.ENOMEM)
}

// RetryPolicy decides whether a failed connect is attempted again.
type RetryPolicy struct {
	// MaxAttempts is the total number of connects allowed, first one included.
	MaxAttempts int
	// ExhaustionBackoff is waited before retrying a resource-exhausted attempt.
	ExhaustionBackoff time.Duration
}

// Next reports whether attempt number attempt (1-based), which ended with
// outcome, should be followed by another, and how long to wait first.
func (p RetryPolicy) Next(attempt int, outcome AttemptOutcome) (bool, time.Duration) {
	if outcome == OutcomeSuccess || attempt >= p.MaxAttempts {
		return false, 0
	}
	if outcome == OutcomeResourceExhausted {
		return true, p.ExhaustionBackoff
	}
	return true, 0
}

// sleepContext waits for d or until ctx is done. It returns false if ctx
// ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
