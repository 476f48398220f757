// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session drives one harvesting run: discover candidate links on
// every seed page, collapse duplicates, download each link in discovery
// order and persist a run summary.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/net/publicsuffix"

	"github.com/pdiddy/pdfharvest/internal/config"
	"github.com/pdiddy/pdfharvest/internal/discover"
	"github.com/pdiddy/pdfharvest/internal/fetch"
	"github.com/pdiddy/pdfharvest/internal/filename"
	"github.com/pdiddy/pdfharvest/internal/httputil"
	"github.com/pdiddy/pdfharvest/internal/match"
	"github.com/pdiddy/pdfharvest/internal/verify"
	"github.com/pdiddy/pdfharvest/pkg/types"
)

// SummaryFile is the name of the run summary written to the output directory.
const SummaryFile = "download_summary.json"

// ErrNoReachableSeed is returned when discovery failed for every seed.
// The summary is still written and returned alongside it.
var ErrNoReachableSeed = errors.New("no reachable seed URL")

// ErrNoSeeds is returned when Run is called without seed URLs.
var ErrNoSeeds = errors.New("no seed URLs given")

// State is a stage of a run.
type State int32

const (
	StateIdle State = iota
	StateDiscovering
	StateDeduplicating
	StateDownloading
	StateReporting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateDeduplicating:
		return "deduplicating"
	case StateDownloading:
		return "downloading"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// History is the run ledger a session reports to. *history.Store
// satisfies it.
type History interface {
	Record(ctx context.Context, summary *types.RunSummary) error
	LastSuccess(ctx context.Context, url string) (string, bool, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Session runs the pipeline for one configuration and output directory.
// A Session is not safe for concurrent Runs; State may be read from any
// goroutine.
type Session struct {
	cfg       types.Config
	outputDir string
	fs        afero.Fs
	client    *http.Client
	history   History
	sleep     SleepFunc
	creds     httputil.Credentials
	log       *slog.Logger

	discoverer *discover.Discoverer
	fetcher    *fetch.Fetcher
	verifier   *verify.Verifier

	state atomic.Int32
}

// Option configures a Session.
type Option func(*Session)

// WithFs sets the filesystem downloads and the summary are written to.
func WithFs(fs afero.Fs) Option {
	return func(s *Session) { s.fs = fs }
}

// WithClient sets the HTTP client. Its transport is shared by discovery
// and downloads; timeouts come from the configuration. A client without
// a cookie jar gets one for the lifetime of the session.
func WithClient(c *http.Client) Option {
	return func(s *Session) { s.client = c }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithHistory records every run in h and lets skip-existing find files
// downloaded under another name by an earlier run.
func WithHistory(h History) Option {
	return func(s *Session) { s.history = h }
}

// WithSleep replaces the inter-download wait.
func WithSleep(fn SleepFunc) Option {
	return func(s *Session) { s.sleep = fn }
}

// WithCredentials sets basic auth for every request.
func WithCredentials(c httputil.Credentials) Option {
	return func(s *Session) { s.creds = c }
}

// New validates cfg and builds a Session writing under outputDir.
func New(cfg types.Config, outputDir string, opts ...Option) (*Session, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		outputDir: outputDir,
		fs:        afero.NewOsFs(),
		client:    &http.Client{},
		sleep:     sleepContext,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	matcher, err := match.New(cfg.PDFPatterns, cfg.ExcludePatterns, cfg.CaseSensitivePatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	// Cookies set by a seed page are sent with the downloads it links to.
	jar := s.client.Jar
	if jar == nil {
		if jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
	}

	pageClient := *s.client
	pageClient.Timeout = cfg.RequestTimeout
	pageClient.Jar = jar
	s.discoverer, err = discover.New(&pageClient, matcher, cfg,
		discover.WithCredentials(s.creds),
		discover.WithLogger(s.log))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	fileClient := *s.client
	fileClient.Timeout = cfg.DownloadTimeout
	fileClient.Jar = jar
	s.fetcher = fetch.New(&fileClient, s.fs, cfg,
		fetch.WithCredentials(s.creds),
		fetch.WithLogger(s.log))

	s.verifier = verify.New(s.fs, cfg.VerifyPDFContent, cfg.DeleteInvalid)
	s.log = s.log.With(slog.String("component", "session"))
	return s, nil
}

// State returns the stage the current or last run is in.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debug("state", slog.String("state", st.String()))
}

// DownloadAll runs the pipeline and returns the summary as a generic
// mapping of its serialized fields. The error is the one Run returns.
func (s *Session) DownloadAll(ctx context.Context, seeds ...string) (map[string]any, error) {
	summary, err := s.Run(ctx, seeds...)
	if summary == nil {
		return nil, err
	}
	m, mErr := summary.AsMap()
	if mErr != nil {
		return nil, fmt.Errorf("encoding summary: %w", mErr)
	}
	return m, err
}

// Run discovers, deduplicates and downloads the links found on seeds,
// then writes the summary. Per-seed and per-link failures are recorded
// in the summary, never returned. Run returns ErrNoReachableSeed when
// every seed failed discovery, the context error when the run was
// interrupted, or an error when the summary could not be written.
func (s *Session) Run(ctx context.Context, seeds ...string) (*types.RunSummary, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	summary := types.NewRunSummary(newRunID(), time.Now())
	log := s.log.With(slog.String("run_id", summary.RunID))

	s.setState(StateDiscovering)
	var raw []types.CandidateLink
	reachable := 0
	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		summary.URLsScanned = append(summary.URLsScanned, seed)
		links, err := s.discoverSeed(ctx, seed)
		if err != nil {
			log.Warn("discovery failed", slog.String("seed", seed), slog.Any("error", err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("discovery %s: %v", seed, err))
			continue
		}
		reachable++
		log.Info("discovered links", slog.String("seed", seed), slog.Int("count", len(links)))
		raw = append(raw, links...)
	}

	s.setState(StateDeduplicating)
	links := Deduplicate(raw)
	summary.Found = len(links)
	log.Info("deduplicated links", slog.Int("raw", len(raw)), slog.Int("unique", len(links)))

	s.setState(StateDownloading)
	s.downloadAll(ctx, links, summary, log)

	s.setState(StateReporting)
	summary.EndTime = time.Now()
	reportCtx := context.WithoutCancel(ctx)
	if s.history != nil {
		if err := s.history.Record(reportCtx, summary); err != nil {
			log.Warn("recording history", slog.Any("error", err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("history: %v", err))
		}
	}
	writeErr := s.writeSummary(summary)

	s.setState(StateDone)

	switch {
	case writeErr != nil:
		return summary, writeErr
	case reachable == 0 && ctx.Err() == nil:
		return summary, ErrNoReachableSeed
	case ctx.Err() != nil:
		return summary, ctx.Err()
	}
	return summary, nil
}

func (s *Session) discoverSeed(ctx context.Context, seed string) ([]types.CandidateLink, error) {
	seq, err := s.discoverer.Discover(ctx, seed)
	if err != nil {
		return nil, err
	}
	var links []types.CandidateLink
	for link := range seq {
		links = append(links, link)
	}
	return links, nil
}

// Deduplicate collapses links by normalized URL, keeping the first
// occurrence and the original order.
func Deduplicate(links []types.CandidateLink) []types.CandidateLink {
	seen := make(map[string]bool, len(links))
	out := make([]types.CandidateLink, 0, len(links))
	for _, l := range links {
		key := match.NormalizeURL(l.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

func (s *Session) downloadAll(ctx context.Context, links []types.CandidateLink, summary *types.RunSummary, log *slog.Logger) {
	names := filename.NewResolver(s.cfg.FilenameMaxLength)

	for i, link := range links {
		if ctx.Err() != nil {
			log.Warn("run interrupted", slog.Int("remaining", len(links)-i))
			return
		}

		result := s.downloadOne(ctx, names, link)
		summary.Add(result)

		attrs := []any{
			slog.Int("item", i+1),
			slog.Int("of", len(links)),
			slog.String("url", link.URL),
			slog.String("outcome", result.Outcome.String()),
			slog.String("file", result.Filepath),
		}
		if result.Error != "" {
			attrs = append(attrs, slog.String("error", result.Error))
		}
		log.Info("download", attrs...)

		if i < len(links)-1 && s.cfg.DelayBetweenDownloads > 0 {
			if err := s.sleep(ctx, s.cfg.DelayBetweenDownloads); err != nil {
				log.Warn("run interrupted", slog.Int("remaining", len(links)-i-1))
				return
			}
		}
	}
}

func (s *Session) downloadOne(ctx context.Context, names *filename.Resolver, link types.CandidateLink) types.DownloadResult {
	start := time.Now()
	dir := s.outputDir
	if s.cfg.CreateSubdirs {
		dir = filepath.Join(dir, filename.SanitizeDomain(hostOf(link.URL)))
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return types.DownloadResult{
			Link:    link,
			Outcome: types.OutcomeFailure,
			Elapsed: time.Since(start),
			Error:   fmt.Sprintf("creating directory %s: %v", dir, err),
		}
	}

	name := names.Resolve(link, dir)
	path := filepath.Join(dir, name)

	if s.cfg.SkipExisting {
		if existing, ok := s.existing(ctx, link, path); ok {
			return types.DownloadResult{
				Link:     link,
				Filename: filepath.Base(existing),
				Filepath: existing,
				Outcome:  types.OutcomeSkipped,
				Size:     s.size(existing),
				Elapsed:  time.Since(start),
			}
		}
	}

	result := s.fetcher.Fetch(ctx, link, path)
	if result.Outcome != types.OutcomeSuccess {
		return result
	}
	if err := s.verifier.Verify(path); err != nil {
		result.Outcome = types.OutcomeFailure
		result.Size = 0
		result.Error = err.Error()
	}
	return result
}

// existing returns the path of a valid PDF already on disk for link: the
// resolved path itself, or the file an earlier run recorded for the URL.
func (s *Session) existing(ctx context.Context, link types.CandidateLink, path string) (string, bool) {
	if ok, err := s.verifier.IsPDF(path); err == nil && ok {
		return path, true
	}
	if s.history == nil {
		return "", false
	}
	prev, found, err := s.history.LastSuccess(ctx, link.URL)
	if err != nil {
		s.log.Debug("history lookup", slog.String("url", link.URL), slog.Any("error", err))
		return "", false
	}
	if !found || prev == path {
		return "", false
	}
	if ok, err := s.verifier.IsPDF(prev); err == nil && ok {
		return prev, true
	}
	return "", false
}

func (s *Session) size(path string) int64 {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (s *Session) writeSummary(summary *types.RunSummary) error {
	if err := s.fs.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	path := filepath.Join(s.outputDir, SummaryFile)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
