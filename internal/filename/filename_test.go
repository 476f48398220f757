// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filename

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/pdfharvest/pkg/types"
)

func link(url, text, title string) types.CandidateLink {
	return types.CandidateLink{URL: url, Text: text, Title: title}
}

func TestBaseStemPreference(t *testing.T) {
	tests := []struct {
		name string
		link types.CandidateLink
		want string
	}{
		{"text first", link("https://x.org/f/a.pdf", "Annual Report 2024", "Title"), "Annual_Report_2024"},
		{"title when no text", link("https://x.org/f/a.pdf", "", "Budget Plan"), "Budget_Plan"},
		{"url segment last", link("https://x.org/f/annual%20plan.pdf", "", ""), "annual_plan"},
		{"text of only symbols falls through", link("https://x.org/f/a.pdf", "»»", "Budget"), "Budget"},
		{"query ignored", link("https://x.org/f/b.PDF?ref=1", "", ""), "b"},
		{"hash when nothing usable", link("https://x.org/", "", ""), hashStem("https://x.org/")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseStem(tt.link))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"  lots   of\t\nspace  ", "lots_of_space"},
		{"Report.PDF", "Report"},
		{"report.pdf.pdf", "report.pdf"},
		{"Résumé 2024", "Résumé_2024"},
		{"...", ""},
		{"ctrl\x00\x07chars", "ctrlchars"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestResolveAppendsExtension(t *testing.T) {
	r := NewResolver(100)
	assert.Equal(t, "Annual_Report.pdf", r.Resolve(link("https://x.org/a.pdf", "Annual Report", ""), "out"))
}

func TestResolveTruncatesPreservingExtension(t *testing.T) {
	r := NewResolver(10)
	name := r.Resolve(link("https://x.org/a.pdf", strings.Repeat("abcdefghij", 5), ""), "out")
	assert.Equal(t, "abcdefghij.pdf", name)
}

func TestResolveMaxLengthCountsRunes(t *testing.T) {
	r := NewResolver(100)
	name := r.Resolve(link("https://x.org/a.pdf", strings.Repeat("é", 300), ""), "out")
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.Equal(t, 104, utf8.RuneCountInString(name))
}

func TestResolveCapsNameBytes(t *testing.T) {
	// Three bytes per rune: 100 runes would be a 304-byte name.
	r := NewResolver(100)
	name := r.Resolve(link("https://x.org/1.pdf", strings.Repeat("报", 100), ""), "out")
	assert.Equal(t, strings.Repeat("报", 83)+".pdf", name)
	assert.LessOrEqual(t, len(name), maxNameBytes)
	assert.True(t, utf8.ValidString(name))

	other := r.Resolve(link("https://x.org/2.pdf", strings.Repeat("报", 100), ""), "out")
	assert.Equal(t, strings.Repeat("报", 82)+"_1.pdf", other)
	assert.LessOrEqual(t, len(other), maxNameBytes)
}

func TestResolveCapsNameBytesOnRuneBoundary(t *testing.T) {
	// A 4-byte rune straddles the byte limit and is dropped whole.
	r := NewResolver(500)
	name := r.Resolve(link("https://x.org/a.pdf", "ab"+strings.Repeat("𝔸", 100), ""), "out")
	assert.True(t, utf8.ValidString(name))
	assert.LessOrEqual(t, len(name), maxNameBytes)
	assert.Equal(t, "ab"+strings.Repeat("𝔸", 62)+".pdf", name)
}

func TestResolveAvoidsReservedDeviceNames(t *testing.T) {
	tests := []struct {
		name string
		link types.CandidateLink
		want string
	}{
		{"text", link("https://x.org/a.pdf", "CON", ""), "CON_.pdf"},
		{"lowercase", link("https://x.org/b.pdf", "nul", ""), "nul_.pdf"},
		{"with dot", link("https://x.org/c.pdf", "aux.old", ""), "aux_.old.pdf"},
		{"url segment", link("https://x.org/COM1.pdf", "", ""), "COM1_.pdf"},
		{"printer port", link("https://x.org/d.pdf", "Lpt9", ""), "Lpt9_.pdf"},
		{"longer word", link("https://x.org/e.pdf", "CONSOLE", ""), "CONSOLE.pdf"},
		{"two digit port", link("https://x.org/f.pdf", "COM10", ""), "COM10.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewResolver(100).Resolve(tt.link, "out"))
		})
	}

	t.Run("collision", func(t *testing.T) {
		r := NewResolver(100)
		assert.Equal(t, "CON_.pdf", r.Resolve(link("https://x.org/1.pdf", "CON", ""), "out"))
		assert.Equal(t, "con_1.pdf", r.Resolve(link("https://x.org/2.pdf", "con", ""), "out"))
	})
}

func TestResolveCollisionsGetNumericSuffix(t *testing.T) {
	r := NewResolver(100)
	a := r.Resolve(link("https://x.org/1/report.pdf", "", ""), "out")
	b := r.Resolve(link("https://x.org/2/report.pdf", "", ""), "out")
	c := r.Resolve(link("https://x.org/3/REPORT.pdf", "", ""), "out")

	assert.Equal(t, "report.pdf", a)
	assert.Equal(t, "report_1.pdf", b)
	assert.Equal(t, "REPORT_2.pdf", c)
}

func TestResolveCollisionSuffixFitsMaxLength(t *testing.T) {
	r := NewResolver(8)
	a := r.Resolve(link("https://x.org/1.pdf", "abcdefghijk", ""), "out")
	b := r.Resolve(link("https://x.org/2.pdf", "abcdefghijk", ""), "out")

	assert.Equal(t, "abcdefgh.pdf", a)
	assert.Equal(t, "abcdef_1.pdf", b)
}

func TestResolveIsDeterministicPerURL(t *testing.T) {
	r := NewResolver(100)
	l := link("https://x.org/report.pdf", "", "")
	first := r.Resolve(l, "out")
	second := r.Resolve(l, "out")
	assert.Equal(t, first, second)
	assert.Equal(t, "report.pdf", second)
}

func TestResolveCollisionsAreScopedByDirectory(t *testing.T) {
	r := NewResolver(100)
	a := r.Resolve(link("https://a.org/report.pdf", "", ""), "out/a.org")
	b := r.Resolve(link("https://b.org/report.pdf", "", ""), "out/b.org")
	assert.Equal(t, "report.pdf", a)
	assert.Equal(t, "report.pdf", b)

	// Flat mode shares one namespace across domains.
	flat := NewResolver(100)
	assert.Equal(t, "report.pdf", flat.Resolve(link("https://a.org/report.pdf", "", ""), "out"))
	assert.Equal(t, "report_1.pdf", flat.Resolve(link("https://b.org/report.pdf", "", ""), "out"))
}

func TestSanitizeDomain(t *testing.T) {
	assert.Equal(t, "example.com", SanitizeDomain("example.com"))
	assert.Equal(t, "example.com_8080", SanitizeDomain("example.com:8080"))
	assert.Equal(t, "unknown_host", SanitizeDomain(""))
}
