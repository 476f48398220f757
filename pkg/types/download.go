// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// CandidateLink is a URL found on a seed page that is believed to
// reference a PDF document.
type CandidateLink struct {
	// URL is the absolute document URL.
	URL string `json:"url" yaml:"url"`

	// Text is the whitespace-collapsed display text of the element.
	Text string `json:"link_text,omitempty" yaml:"link_text,omitempty"`

	// Title is the title (or alt) attribute of the element.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// SourceURL is the seed page the link was found on.
	SourceURL string `json:"source_url" yaml:"source_url"`
}

// Outcome is the result class of one download.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

func (o Outcome) String() string {
	return string(o)
}

// DownloadResult records what happened to one candidate link.
type DownloadResult struct {
	Link     CandidateLink `json:"link" yaml:"link"`
	Filename string        `json:"filename" yaml:"filename"`
	Filepath string        `json:"filepath" yaml:"filepath"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Size     int64         `json:"size_bytes" yaml:"size_bytes"`
	Elapsed  time.Duration `json:"-" yaml:"-"`
	Attempts int           `json:"attempts" yaml:"attempts"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// MarshalJSON adds elapsed_seconds, which is friendlier to consumers
// than nanoseconds.
func (r DownloadResult) MarshalJSON() ([]byte, error) {
	type plain DownloadResult
	return json.Marshal(struct {
		plain
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}{plain(r), r.Elapsed.Seconds()})
}

// RunSummary is the structured record of one pipeline invocation.
type RunSummary struct {
	RunID       string           `json:"run_id"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	URLsScanned []string         `json:"urls_scanned"`
	Found       int              `json:"pdfs_found"`
	Downloaded  int              `json:"pdfs_downloaded"`
	Failed      int              `json:"pdfs_failed"`
	Skipped     int              `json:"pdfs_skipped"`
	Successful  []DownloadResult `json:"successful_downloads"`
	Failures    []DownloadResult `json:"failed_downloads"`
	Skips       []DownloadResult `json:"skipped_downloads"`
	Errors      []string         `json:"errors"`
}

// NewRunSummary returns a summary with empty, non-nil lists so the
// serialized form always carries arrays.
func NewRunSummary(runID string, start time.Time) *RunSummary {
	return &RunSummary{
		RunID:       runID,
		StartTime:   start,
		URLsScanned: []string{},
		Successful:  []DownloadResult{},
		Failures:    []DownloadResult{},
		Skips:       []DownloadResult{},
		Errors:      []string{},
	}
}

// Add appends a result to the list matching its outcome and bumps the counters.
func (s *RunSummary) Add(r DownloadResult) {
	switch r.Outcome {
	case OutcomeSuccess:
		s.Downloaded++
		s.Successful = append(s.Successful, r)
	case OutcomeSkipped:
		s.Skipped++
		s.Skips = append(s.Skips, r)
	default:
		s.Failed++
		s.Failures = append(s.Failures, r)
	}
}

// Total returns the number of results recorded.
func (s *RunSummary) Total() int {
	return s.Downloaded + s.Failed + s.Skipped
}

// HasFailures reports whether any download failed.
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// AsMap returns the summary's serialized fields as a generic mapping.
func (s *RunSummary) AsMap() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
