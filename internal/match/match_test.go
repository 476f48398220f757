// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdfharvest/pkg/types"
)

func TestClassifyDefaults(t *testing.T) {
	m, err := New(types.DefaultPDFPatterns(), types.DefaultExcludePatterns(), false)
	require.NoError(t, err)

	tests := []struct {
		url  string
		want Decision
	}{
		{"https://example.com/doc.pdf", Include},
		{"https://example.com/DOC.PDF", Include},
		{"https://example.com/doc.pdf?ref=1", Include},
		{"https://example.com/b.PDF?ref=1", Include},
		{"https://example.com/page.html", Exclude},
		{"https://example.com/get.php?file=doc.pdf", Exclude},
		{"https://example.com/download.aspx?id=doc.pdf", Exclude},
		{"https://example.com/pdfs/", Exclude},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Classify(tt.url))
		})
	}
}

func TestClassifySearchIsUnanchored(t *testing.T) {
	m, err := New([]string{`report`}, nil, true)
	require.NoError(t, err)

	assert.True(t, m.Match("https://example.com/annual-report-2024.pdf"))
	assert.False(t, m.Match("https://example.com/annual-REPORT-2024.pdf"))
}

func TestClassifyNoPatternsExcludesEverything(t *testing.T) {
	m, err := New(nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, Exclude, m.Classify("https://example.com/a.pdf"))
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	_, err := New([]string{`(`}, nil, false)
	assert.Error(t, err)

	_, err = New(nil, []string{`[z-a]`}, false)
	assert.Error(t, err)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "include", Include.String())
	assert.Equal(t, "exclude", Exclude.String())
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fragment dropped", "https://example.com/a.pdf#page=2", "https://example.com/a.pdf"},
		{"host lowercased", "HTTPS://Example.COM/A.pdf", "https://example.com/A.pdf"},
		{"default port removed", "https://example.com:443/a.pdf", "https://example.com/a.pdf"},
		{"query kept", "https://example.com/a.pdf?x=1", "https://example.com/a.pdf?x=1"},
		{"empty path", "https://example.com", "https://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}
