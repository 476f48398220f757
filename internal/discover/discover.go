// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover fetches a seed page and extracts candidate document
// links from it. Three strategies run over the same parsed document:
// configured CSS selectors, every anchor, and embedded object, embed and
// iframe elements. Each candidate must pass the pattern matcher.
package discover

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html/charset"

	"github.com/pdiddy/pdfharvest/internal/httputil"
	"github.com/pdiddy/pdfharvest/internal/match"
	"github.com/pdiddy/pdfharvest/pkg/types"
)

// maxLinkText caps the recorded display text of a link.
const maxLinkText = 100

// Discoverer extracts candidate links from seed pages.
type Discoverer struct {
	client    *http.Client
	matcher   *match.Matcher
	selectors []goquery.Matcher
	userAgent string
	creds     httputil.Credentials
	log       *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithCredentials sets basic auth for the seed page request.
func WithCredentials(c httputil.Credentials) Option {
	return func(d *Discoverer) { d.creds = c }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Discoverer) { d.log = log }
}

// New creates a Discoverer. The client's timeout should be the request
// timeout from the configuration. An invalid selector is an error.
func New(client *http.Client, matcher *match.Matcher, cfg types.Config, opts ...Option) (*Discoverer, error) {
	selectors, err := CompileSelectors(cfg.LinkSelectors)
	if err != nil {
		return nil, err
	}
	d := &Discoverer{
		client:    client,
		matcher:   matcher,
		selectors: selectors,
		userAgent: cfg.UserAgent,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(slog.String("component", "discover"))
	return d, nil
}

// CompileSelectors parses CSS selector rules.
func CompileSelectors(rules []string) ([]goquery.Matcher, error) {
	out := make([]goquery.Matcher, 0, len(rules))
	for _, rule := range rules {
		sel, err := cascadia.Compile(rule)
		if err != nil {
			return nil, fmt.Errorf("link selector %q: %w", rule, err)
		}
		out = append(out, sel)
	}
	return out, nil
}

// Discover fetches seedURL and returns a lazy sequence of candidate
// links. Network, status and parse failures are returned as an error
// before any candidate is produced. The sequence yields each normalized
// URL at most once.
func (d *Discoverer) Discover(ctx context.Context, seedURL string) (iter.Seq[types.CandidateLink], error) {
	base, err := url.Parse(seedURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid seed URL %q", seedURL)
	}

	doc, err := d.fetchDocument(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	// A <base href> changes how relative links resolve.
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(b)
		}
	}

	return func(yield func(types.CandidateLink) bool) {
		seen := make(map[string]bool)
		emit := func(s *goquery.Selection, raw string) bool {
			abs := resolveURL(raw, base)
			if abs == "" || !d.matcher.Match(abs) {
				return true
			}
			key := match.NormalizeURL(abs)
			if seen[key] {
				return true
			}
			seen[key] = true
			return yield(candidate(s, abs, seedURL))
		}

		// Strategy 1: configured selectors.
		for _, sel := range d.selectors {
			cont := true
			doc.FindMatcher(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				raw := elementURL(s)
				if raw == "" {
					return true
				}
				cont = emit(s, raw)
				return cont
			})
			if !cont {
				return
			}
		}

		// Strategy 2: every anchor.
		cont := true
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			cont = emit(s, href)
			return cont
		})
		if !cont {
			return
		}

		// Strategy 3: embedded documents.
		doc.Find("object[data], embed[src], iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			return emit(s, elementURL(s))
		})
	}, nil
}

// fetchDocument GETs the seed page and parses it, decoding the body to
// UTF-8 from whatever charset the server or the page declares.
func (d *Discoverer) fetchDocument(ctx context.Context, seedURL string) (*goquery.Document, error) {
	req, err := httputil.NewRequest(ctx, seedURL, d.userAgent, "text/html,application/xhtml+xml", d.creds)
	if err != nil {
		return nil, err
	}

	d.log.Debug("scanning seed page", slog.String("url", seedURL))
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", seedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httputil.NewStatusError(resp)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", seedURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", seedURL, err)
	}
	return doc, nil
}

// elementURL returns the first document-bearing attribute of an element.
func elementURL(s *goquery.Selection) string {
	for _, attr := range []string{"href", "data", "src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// candidate builds a CandidateLink from the element the URL came from.
func candidate(s *goquery.Selection, abs, seedURL string) types.CandidateLink {
	title, _ := s.Attr("title")
	if strings.TrimSpace(title) == "" {
		title, _ = s.Attr("alt")
	}
	return types.CandidateLink{
		URL:       abs,
		Text:      truncateRunes(collapseSpace(s.Text()), maxLinkText),
		Title:     collapseSpace(title),
		SourceURL: seedURL,
	}
}

// resolveURL resolves a potentially relative URL against a base. Non-HTTP
// schemes and same-page anchors resolve to "".
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "data:") || strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
