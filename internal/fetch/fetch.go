// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads one candidate document to disk with timeout,
// retry and exponential backoff. Failures are returned as data in the
// DownloadResult, never as errors.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdfharvest/internal/httputil"
	"github.com/pdiddy/pdfharvest/pkg/types"
)

// Fetcher downloads documents. The HTTP client's timeout bounds each
// attempt and should be the configured download timeout.
type Fetcher struct {
	client    *http.Client
	fs        afero.Fs
	policy    httputil.Policy
	userAgent string
	creds     httputil.Credentials
	log       *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCredentials sets basic auth for download requests.
func WithCredentials(c httputil.Credentials) Option {
	return func(f *Fetcher) { f.creds = c }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Fetcher) { f.log = log }
}

// WithPolicy overrides the retry policy derived from the configuration.
func WithPolicy(p httputil.Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// New creates a Fetcher writing to fs. Retries follow cfg.MaxRetries and
// backoff is capped at cfg.DownloadTimeout.
func New(client *http.Client, fs afero.Fs, cfg types.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: client,
		fs:     fs,
		policy: httputil.Policy{
			MaxRetries: cfg.MaxRetries,
			MaxDelay:   cfg.DownloadTimeout,
		},
		userAgent: cfg.UserAgent,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With(slog.String("component", "fetch"))
	return f
}

// Fetch downloads link.URL to destPath, streaming the body straight to
// the destination. Transient failures (network errors, timeouts, 5xx,
// 429) are retried; other 4xx responses and filesystem errors fail at
// once. The returned result carries the attempt count and, on failure,
// the last error. A failed download leaves no file at destPath.
func (f *Fetcher) Fetch(ctx context.Context, link types.CandidateLink, destPath string) types.DownloadResult {
	start := time.Now()
	var size int64
	created := false

	attempts, err := httputil.Retry(ctx, f.policy, func(attempt int) error {
		f.log.Debug("downloading",
			slog.String("url", link.URL),
			slog.String("file", filepath.Base(destPath)),
			slog.Int("attempt", attempt))

		n, opened, err := f.attempt(ctx, link.URL, destPath)
		size = n
		created = created || opened
		if err != nil {
			f.log.Debug("attempt failed",
				slog.String("url", link.URL),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		return err
	})

	result := types.DownloadResult{
		Link:     link,
		Filename: filepath.Base(destPath),
		Filepath: destPath,
		Outcome:  types.OutcomeSuccess,
		Size:     size,
		Elapsed:  time.Since(start),
		Attempts: attempts,
	}
	if err != nil {
		result.Outcome = types.OutcomeFailure
		result.Size = 0
		result.Error = err.Error()
		if created {
			f.removePartial(destPath)
		}
	}
	return result
}

// removePartial deletes what a failed download wrote, so a later run
// does not mistake a truncated file for a finished one.
func (f *Fetcher) removePartial(destPath string) {
	if err := f.fs.Remove(destPath); err != nil && !os.IsNotExist(err) {
		f.log.Warn("removing partial download",
			slog.String("file", destPath),
			slog.Any("error", err))
	}
}

// attempt performs one GET and streams the body into destPath. opened
// reports whether destPath was created or truncated.
func (f *Fetcher) attempt(ctx context.Context, rawURL, destPath string) (n int64, opened bool, err error) {
	req, err := httputil.NewRequest(ctx, rawURL, f.userAgent, "application/pdf,*/*;q=0.8", f.creds)
	if err != nil {
		return 0, false, httputil.Permanent(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return 0, false, httputil.NewStatusError(resp)
	}

	out, err := f.fs.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, false, httputil.Permanent(fmt.Errorf("creating %s: %w", destPath, err))
	}

	w := &recordingWriter{w: out}
	n, copyErr := io.Copy(w, resp.Body)
	closeErr := out.Close()
	switch {
	case w.err != nil:
		return n, true, httputil.Permanent(fmt.Errorf("writing %s: %w", destPath, w.err))
	case copyErr != nil:
		return n, true, fmt.Errorf("reading body: %w", copyErr)
	case closeErr != nil:
		return n, true, httputil.Permanent(fmt.Errorf("closing %s: %w", destPath, closeErr))
	}
	return n, true, nil
}

// recordingWriter remembers a write failure so it can be told apart
// from a failure reading the response body.
type recordingWriter struct {
	w   io.Writer
	err error
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	if err != nil {
		r.err = err
	}
	return n, err
}
