// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 1 * time.Second

// Policy bounds a retry loop.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the first backoff delay; zero means RetryBaseDelay.
	BaseDelay time.Duration

	// MaxDelay caps every backoff delay; zero means uncapped.
	MaxDelay time.Duration
}

// Backoff returns the delay before retry number n (0-based): BaseDelay
// doubled n times, capped at MaxDelay.
func (p Policy) Backoff(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	d := time.Duration(math.Pow(2, float64(n))) * base
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		d = p.MaxDelay
	}
	return d
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code       int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Retryable reports whether the status is worth another attempt: server
// errors and rate limiting.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// NewStatusError builds a StatusError from a response, capturing a
// Retry-After hint given in seconds.
func NewStatusError(resp *http.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		se.URL = resp.Request.URL.String()
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return se
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient classifies an attempt error. Status errors are transient
// when Retryable; network errors and timeouts are transient; errors
// wrapped with Permanent and context cancellation are not. Anything else
// (for example a truncated body) is treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// Retry runs fn until it succeeds, returns a non-transient error, or the
// policy's retries are exhausted. fn receives the 1-based attempt
// number. Between attempts Retry sleeps the policy backoff, raised to a
// server Retry-After hint when one is present and still capped by
// MaxDelay. It returns the number of attempts made and the last error.
// If ctx is cancelled during a wait, ctx.Err() is returned.
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) (int, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	for {
		attempt++
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if !IsTransient(err) || attempt > maxRetries {
			return attempt, err
		}

		wait := p.Backoff(attempt - 1)
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > wait {
			wait = se.RetryAfter
			if p.MaxDelay > 0 && wait > p.MaxDelay {
				wait = p.MaxDelay
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
}
