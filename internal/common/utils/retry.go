package utils

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryConfig holds configuration for retry operations.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first one
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after each retry. Ignored when Linear is set.
	BackoffFactor float64
	// Linear grows the delay as InitialDelay * attempt (1s, 2s, 3s, ...)
	Linear bool
	// JitterFactor adds up to this fraction of the delay at random (0.1 = 10%)
	JitterFactor float64
	// RetryableErrors decides which errors are retried. Nil retries everything.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns exponential backoff with 3 attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// RetryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// the attempts run out or ctx is done.
//
// A non-retryable error is returned unchanged so callers can still classify
// it. Exhausted attempts wrap the last error with "max retries exceeded".
func RetryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		timer := time.NewTimer(config.delayFor(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Delay returns the wait after the given (1-based) failed attempt, for
// callers that schedule retries themselves.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return c.delayFor(attempt)
}

// delayFor returns the wait after the given (1-based) failed attempt.
func (c RetryConfig) delayFor(attempt int) time.Duration {
	delay := c.InitialDelay
	if c.Linear {
		delay = c.InitialDelay * time.Duration(attempt)
	} else if c.BackoffFactor > 0 {
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * c.BackoffFactor)
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	if c.JitterFactor > 0 {
		delay += time.Duration(randomInt64n(int64(float64(delay) * c.JitterFactor)))
	}
	return delay
}

func randomInt64n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano() % n
	}
	return int64(binary.BigEndian.Uint64(b[:])>>1) % n
}
