// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestVerifyAcceptsPDF(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/out/a.pdf", "%PDF-1.4\n%âãÏÓ\n")

	v := New(fs, true, true)
	assert.NoError(t, v.Verify("/out/a.pdf"))
}

func TestVerifyRejectsHTMLAndDeletes(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/out/a.pdf", "<html><body>Not found</body></html>")

	v := New(fs, true, true)
	err := v.Verify("/out/a.pdf")
	assert.ErrorIs(t, err, ErrNotPDF)

	exists, err := afero.Exists(fs, "/out/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists, "invalid file should be removed")
}

func TestVerifyRejectsButKeepsWhenDeleteDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/out/a.pdf", "<html>")

	v := New(fs, true, false)
	assert.ErrorIs(t, v.Verify("/out/a.pdf"), ErrNotPDF)

	exists, err := afero.Exists(fs, "/out/a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestVerifyShortAndEmptyFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/out/short.pdf", "%PD")
	writeFile(t, fs, "/out/empty.pdf", "")

	v := New(fs, true, false)
	assert.ErrorIs(t, v.Verify("/out/short.pdf"), ErrNotPDF)
	assert.ErrorIs(t, v.Verify("/out/empty.pdf"), ErrNotPDF)
}

func TestVerifyDisabledAcceptsAnything(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/out/a.pdf", "<html>")

	v := New(fs, false, true)
	assert.NoError(t, v.Verify("/out/a.pdf"))
	assert.False(t, v.Enabled())

	exists, _ := afero.Exists(fs, "/out/a.pdf")
	assert.True(t, exists)
}

func TestVerifyMissingFile(t *testing.T) {
	v := New(afero.NewMemMapFs(), true, true)
	err := v.Verify("/out/missing.pdf")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPDF)
}

func TestIsPDFIgnoresEnabledFlag(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/out/a.pdf", "%PDF-1.7")
	writeFile(t, fs, "/out/b.pdf", "GIF89a")

	v := New(fs, false, false)
	ok, err := v.IsPDF("/out/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.IsPDF("/out/b.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}
