// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

var errTransient = errors.New("connection reset")

func TestRetry_ImmediateSuccess(t *testing.T) {
	attempts, err := Retry(context.Background(), Policy{MaxRetries: 3}, func(int) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_TwoTransientFailuresThenSuccess(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), Policy{MaxRetries: 3}, func(int) error {
		calls++
		if calls <= 2 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	maxRetries := 3
	attempts, err := Retry(context.Background(), Policy{MaxRetries: maxRetries}, func(int) error {
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	// 1 initial + 3 retries = 4 total attempts.
	assert.Equal(t, maxRetries+1, attempts)
}

func TestRetry_ZeroRetriesMakesOneAttempt(t *testing.T) {
	attempts, err := Retry(context.Background(), Policy{}, func(int) error {
		return errTransient
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	attempts, err := Retry(context.Background(), Policy{MaxRetries: 5}, func(int) error {
		return Permanent(fmt.Errorf("bad request"))
	})
	assert.EqualError(t, err, "bad request")
	assert.Equal(t, 1, attempts)
}

func TestRetry_ClientErrorStatusIsNotRetried(t *testing.T) {
	attempts, err := Retry(context.Background(), Policy{MaxRetries: 5}, func(int) error {
		return &StatusError{Code: http.StatusNotFound}
	})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, 1, attempts)
}

func TestRetry_RateLimitIsRetried(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), Policy{MaxRetries: 2}, func(int) error {
		calls++
		if calls == 1 {
			return &StatusError{Code: http.StatusTooManyRequests}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetry_AttemptNumbersAreSequential(t *testing.T) {
	var seen []int
	_, _ = Retry(context.Background(), Policy{MaxRetries: 2}, func(attempt int) error {
		seen = append(seen, attempt)
		return errTransient
	})
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts, err := Retry(ctx, Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}, func(int) error {
		return errTransient
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestPolicyBackoffIncreasesAndCaps(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 20*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 40*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 50*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 50*time.Millisecond, p.Backoff(10))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errTransient, true},
		{"server error", &StatusError{Code: 503}, true},
		{"rate limited", &StatusError{Code: 429}, true},
		{"forbidden", &StatusError{Code: 403}, false},
		{"wrapped status", fmt.Errorf("get: %w", &StatusError{Code: 502}), true},
		{"permanent", Permanent(errTransient), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestNewStatusErrorReadsRetryAfter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/doc.pdf")
	require.NoError(t, err)
	defer resp.Body.Close()

	se := NewStatusError(resp)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, 7*time.Second, se.RetryAfter)
	assert.Equal(t, ts.URL+"/doc.pdf", se.URL)
	assert.True(t, se.Retryable())
}
