package processor

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/ternarybob/arbor"
)

// retryPolicy defines retry behavior with exponential backoff and jitter
type retryPolicy struct {
	maxAttempts       int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// newRetryPolicy creates the default fetch retry policy: three attempts,
// 1s initial backoff doubling up to 30s
func newRetryPolicy() *retryPolicy {
	return &retryPolicy{
		maxAttempts:       3,
		initialBackoff:    time.Second,
		maxBackoff:        30 * time.Second,
		backoffMultiplier: 2.0,
	}
}

// shouldRetry reports whether an attempt is worth repeating. Server
// errors and 429 retry; other client errors are terminal.
func (p *retryPolicy) shouldRetry(attempt, statusCode int, err error) bool {
	if attempt >= p.maxAttempts {
		return false
	}

	if statusCode > 0 {
		if statusCode == 408 || statusCode == 429 || statusCode >= 500 {
			return true
		}
		if statusCode >= 400 && statusCode < 500 {
			return false
		}
	}

	return isRetryableError(err)
}

// backoff calculates the wait before the given attempt, with ±25% jitter
func (p *retryPolicy) backoff(attempt int) time.Duration {
	wait := float64(p.initialBackoff) * math.Pow(p.backoffMultiplier, float64(attempt))
	if wait > float64(p.maxBackoff) {
		wait = float64(p.maxBackoff)
	}

	wait += wait * 0.25 * (rand.Float64()*2 - 1)
	if wait < 0 {
		wait = float64(p.initialBackoff)
	}
	return time.Duration(wait)
}

// execute wraps fn with the retry loop, honoring ctx between attempts
func (p *retryPolicy) execute(ctx context.Context, logger arbor.ILogger, fn func() (int, error)) (int, error) {
	var lastErr error
	var statusCode int

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		statusCode, lastErr = fn()

		if lastErr == nil && !retryableStatus(statusCode) {
			return statusCode, nil
		}
		if !p.shouldRetry(attempt+1, statusCode, lastErr) {
			return statusCode, lastErr
		}

		if attempt < p.maxAttempts-1 {
			wait := p.backoff(attempt)
			logger.Debug().
				Int("attempt", attempt+1).
				Int("status_code", statusCode).
				Err(lastErr).
				Dur("backoff", wait).
				Msg("Retrying fetch after backoff")

			select {
			case <-ctx.Done():
				return statusCode, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	logger.Debug().
		Int("max_attempts", p.maxAttempts).
		Int("status_code", statusCode).
		Err(lastErr).
		Msg("Retry attempts exhausted")
	return statusCode, lastErr
}

func retryableStatus(statusCode int) bool {
	return statusCode == 408 || statusCode == 429 || statusCode >= 500
}

// isRetryableError reports whether an error is transient: timeouts,
// connection resets and other network-level faults
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// isTimeoutError distinguishes timeout failures for metrics
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
