package scanning

import (
	"context"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func dialError(errno syscall.Errno) error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: errno},
	}
}

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected AttemptOutcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"refused", dialError(syscall.ECONNREFUSED), OutcomeRefused},
		{"wrapped refused", fmt.Errorf("connect: %w", dialError(syscall.ECONNREFUSED)), OutcomeRefused},
		{"too many open files", dialError(syscall.EMFILE), OutcomeResourceExhausted},
		{"file table overflow", dialError(syscall.ENFILE), OutcomeResourceExhausted},
		{"no buffer space", dialError(syscall.ENOBUFS), OutcomeResourceExhausted},
		{"context deadline", context.DeadlineExceeded, OutcomeTimedOut},
		{"io deadline", &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}, OutcomeTimedOut},
		{"unreachable", dialError(syscall.EHOSTUNREACH), OutcomeOtherError},
		{"cancelled", context.Canceled, OutcomeOtherError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyDialError(tt.err))
		})
	}
}

func TestAttemptOutcome_String(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "refused", OutcomeRefused.String())
	assert.Equal(t, "timeout", OutcomeTimedOut.String())
	assert.Equal(t, "resource_exhausted", OutcomeResourceExhausted.String())
	assert.Equal(t, "error", OutcomeOtherError.String())
}

func TestRetryPolicy_Next(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, ExhaustionBackoff: time.Second}

	tests := []struct {
		name    string
		attempt int
		outcome AttemptOutcome
		retry   bool
		wait    time.Duration
	}{
		{"success stops", 1, OutcomeSuccess, false, 0},
		{"refused retries immediately", 1, OutcomeRefused, true, 0},
		{"timeout retries immediately", 1, OutcomeTimedOut, true, 0},
		{"other error retries immediately", 1, OutcomeOtherError, true, 0},
		{"exhaustion backs off", 1, OutcomeResourceExhausted, true, time.Second},
		{"last attempt stops", 2, OutcomeRefused, false, 0},
		{"last attempt stops on exhaustion", 2, OutcomeResourceExhausted, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry, wait := policy.Next(tt.attempt, tt.outcome)
			assert.Equal(t, tt.retry, retry)
			assert.Equal(t, tt.wait, wait)
		})
	}
}

func TestRetryPolicy_SingleAttempt(t *testing.T) {
	retry, _ := RetryPolicy{MaxAttempts: 1}.Next(1, OutcomeTimedOut)
	assert.False(t, retry)
}

func TestSleepContext(t *testing.T) {
	assert.True(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, sleepContext(ctx, time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}
