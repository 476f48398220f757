// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdfharvest/pkg/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeDefaults(t *testing.T) {
	v := New("")
	_, err := Read(v, false)
	require.NoError(t, err)

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadJSONSecondsAndPartialOverride(t *testing.T) {
	path := writeConfig(t, "pdfharvest.json", `{
  "delay_between_downloads": 2.5,
  "max_retries": 5,
  "request_timeout": 60,
  "create_subdirs": false,
  "pdf_patterns": [".*thesis.*\\.pdf"],
  "custom_setting": "ignored"
}`)

	cfg, used, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	assert.Equal(t, 2500*time.Millisecond, cfg.DelayBetweenDownloads)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.CreateSubdirs)
	assert.Equal(t, []string{`.*thesis.*\.pdf`}, cfg.PDFPatterns)

	// Untouched fields keep their defaults.
	assert.Equal(t, types.DefaultDownloadTimeout, cfg.DownloadTimeout)
	assert.Equal(t, types.DefaultExcludePatterns(), cfg.ExcludePatterns)
	assert.True(t, cfg.VerifyPDFContent)
}

func TestLoadYAMLDurationStrings(t *testing.T) {
	path := writeConfig(t, "pdfharvest.yaml", `
download_timeout: 2m
delay_between_downloads: 0
filename_max_length: 80
verify_pdf_content: false
link_selectors:
  - a.document
`)

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.DownloadTimeout)
	assert.Zero(t, cfg.DelayBetweenDownloads)
	assert.Equal(t, 80, cfg.FilenameMaxLength)
	assert.False(t, cfg.VerifyPDFContent)
	assert.Equal(t, []string{"a.document"}, cfg.LinkSelectors)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("PDFHARVEST_MAX_RETRIES", "7")
	t.Setenv("PDFHARVEST_REQUEST_TIMEOUT", "45")

	path := writeConfig(t, "pdfharvest.yaml", "max_retries: 2\n")
	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
}

func TestLoadUnparsableFile(t *testing.T) {
	path := writeConfig(t, "pdfharvest.json", `{"max_retries": `)
	_, _, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad regex", `pdf_patterns: ["("]`},
		{"bad selector", `link_selectors: ["a[href"]`},
		{"negative retries", `max_retries: -1`},
		{"zero timeout", `request_timeout: 0`},
		{"negative delay", `delay_between_downloads: -1`},
		{"zero filename length", `filename_max_length: 0`},
		{"garbage duration", `download_timeout: soon`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "pdfharvest.yaml", tt.content+"\n")
			_, _, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"0", 0},
		{" 2 ", 2 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"1m30s", 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeconds(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "soon", "NaN", "Inf", "1.5 s"} {
		_, err := ParseSeconds(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Validate(types.DefaultConfig()))
}
