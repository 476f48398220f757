// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filename derives safe, deduplicated local filenames for
// candidate links.
package filename

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/pdfharvest/pkg/types"
)

const ext = ".pdf"

// maxNameBytes is the longest file name, in bytes, that Linux, macOS
// and Windows all accept.
const maxNameBytes = 255

// reserved holds the Windows device names, which cannot be used as a
// file name with any extension.
var reserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Resolver chooses filenames for one run. Names are unique per
// directory, compared case-insensitively. Not safe for concurrent use.
type Resolver struct {
	maxLen int
	byURL  map[string]string          // dir + "\x00" + url -> name
	taken  map[string]map[string]bool // dir -> lowercased names
}

// NewResolver returns a Resolver that caps filename stems at maxLen
// runes. Whole names are also kept within maxNameBytes.
func NewResolver(maxLen int) *Resolver {
	if maxLen <= 0 {
		maxLen = types.DefaultFilenameMaxLength
	}
	return &Resolver{
		maxLen: maxLen,
		byURL:  make(map[string]string),
		taken:  make(map[string]map[string]bool),
	}
}

// Resolve returns the filename for link inside dir. The same link URL
// in the same dir always gets the same name within a run; a different
// link whose name collides gets a numeric suffix before the extension.
func (r *Resolver) Resolve(link types.CandidateLink, dir string) string {
	dir = filepath.Clean(dir)
	key := dir + "\x00" + link.URL
	if name, ok := r.byURL[key]; ok {
		return name
	}

	stem := BaseStem(link)
	taken := r.taken[dir]
	if taken == nil {
		taken = make(map[string]bool)
		r.taken[dir] = taken
	}

	name := r.name(stem, "")
	for n := 1; taken[strings.ToLower(name)]; n++ {
		name = r.name(stem, fmt.Sprintf("_%d", n))
	}

	taken[strings.ToLower(name)] = true
	r.byURL[key] = name
	return name
}

// BaseStem is the untruncated, undisambiguated stem for a link: link
// text, else title, else the final URL path segment, else a hash of the
// URL.
func BaseStem(link types.CandidateLink) string {
	for _, candidate := range []string{link.Text, link.Title, lastSegment(link.URL)} {
		if s := Sanitize(candidate); s != "" {
			return s
		}
	}
	return hashStem(link.URL)
}

// Sanitize removes characters that are illegal or awkward in filenames,
// collapses whitespace runs to "_", and strips a trailing ".pdf" in any
// case. The result may be empty.
func Sanitize(s string) string {
	var b strings.Builder
	space := false
	for _, ch := range strings.TrimSpace(s) {
		switch {
		case unicode.IsSpace(ch):
			space = true
			continue
		case unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '-' || ch == '_' || ch == '.':
		default:
			// Illegal on common filesystems (<>:"/\|?*), control
			// characters and other punctuation.
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte('_')
		}
		space = false
		b.WriteRune(ch)
	}

	out := b.String()
	if strings.HasSuffix(strings.ToLower(out), ext) {
		out = out[:len(out)-len(ext)]
	}
	return strings.Trim(out, "._-")
}

// SanitizeDomain makes a host usable as a directory name.
func SanitizeDomain(host string) string {
	var b strings.Builder
	for _, ch := range host {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '-' || ch == '_' || ch == '.' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "unknown_host"
	}
	return out
}

// name builds stem + suffix + ext, cutting stem so the result stays
// within maxLen runes (excluding ext) and maxNameBytes bytes. One byte
// is held back for unreserve.
func (r *Resolver) name(stem, suffix string) string {
	base := truncate(stem, r.maxLen-len(suffix), maxNameBytes-len(ext)-len(suffix)-1) + suffix
	return unreserve(base) + ext
}

// truncate cuts stem to at most n runes and limit bytes, on a rune
// boundary.
func truncate(stem string, n, limit int) string {
	n = max(n, 1)
	out := stem
	if utf8.RuneCountInString(out) > n {
		out = string([]rune(out)[:n])
	}
	for len(out) > limit {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	if out == stem {
		return stem
	}
	return strings.TrimRight(out, "._-")
}

// unreserve appends "_" to a leading Windows device name, so "CON"
// becomes "CON_" and "nul.old" becomes "nul_.old".
func unreserve(base string) string {
	head, rest, dotted := strings.Cut(base, ".")
	if !reserved[strings.ToUpper(head)] {
		return base
	}
	if dotted {
		return head + "_." + rest
	}
	return head + "_"
}

// lastSegment returns the unescaped final path segment of rawURL.
func lastSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func hashStem(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("document_%x", h[:4])
}
