// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match classifies candidate URLs against configurable include
// and exclude regular expressions, and defines the URL identity used to
// deduplicate candidates.
package match

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Decision is the classification of a URL.
type Decision int

const (
	Exclude Decision = iota
	Include
)

func (d Decision) String() string {
	if d == Include {
		return "include"
	}
	return "exclude"
}

// Matcher holds compiled include and exclude patterns. It is immutable
// after construction and safe for concurrent use.
type Matcher struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// New compiles the include and exclude patterns. Unless caseSensitive is
// set, every pattern is compiled with the (?i) flag.
func New(include, exclude []string, caseSensitive bool) (*Matcher, error) {
	inc, err := compileAll(include, caseSensitive)
	if err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	exc, err := compileAll(exclude, caseSensitive)
	if err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	return &Matcher{include: inc, exclude: exc}, nil
}

func compileAll(patterns []string, caseSensitive bool) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expr := p
		if !caseSensitive {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Classify returns Include when rawURL matches at least one include
// pattern and no exclude pattern. Matching is an unanchored search over
// the full URL string.
func (m *Matcher) Classify(rawURL string) Decision {
	if !anyMatch(m.include, rawURL) {
		return Exclude
	}
	if anyMatch(m.exclude, rawURL) {
		return Exclude
	}
	return Include
}

// Match reports whether rawURL is classified Include.
func (m *Matcher) Match(rawURL string) bool {
	return m.Classify(rawURL) == Include
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// NormalizeURL returns the identity of a URL for deduplication: the
// fragment is dropped, scheme and host are lowercased and default ports
// removed. Path and query are case-preserving.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)

	host := strings.ToLower(parsed.Host)
	switch {
	case parsed.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case parsed.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	parsed.Host = host

	if parsed.Path == "" && parsed.Host != "" {
		parsed.Path = "/"
	}
	return parsed.String()
}
