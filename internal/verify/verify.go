// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify confirms that downloaded files are genuine PDFs by
// checking their leading signature.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Signature is the magic prefix of every PDF file.
var Signature = []byte("%PDF-")

// ErrNotPDF reports a file that does not start with Signature.
var ErrNotPDF = errors.New("not a valid PDF")

// Verifier checks downloaded files. A disabled Verifier accepts everything.
type Verifier struct {
	fs            afero.Fs
	enabled       bool
	deleteInvalid bool
}

// New creates a Verifier over fs.
func New(fs afero.Fs, enabled, deleteInvalid bool) *Verifier {
	return &Verifier{fs: fs, enabled: enabled, deleteInvalid: deleteInvalid}
}

// Enabled reports whether verification is switched on.
func (v *Verifier) Enabled() bool {
	return v.enabled
}

// Verify returns nil when verification is disabled or the file at path
// starts with the PDF signature. On a mismatch it returns an error
// wrapping ErrNotPDF and, if configured, removes the file.
func (v *Verifier) Verify(path string) error {
	if !v.enabled {
		return nil
	}

	ok, head, err := v.check(path)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if v.deleteInvalid {
		if rmErr := v.fs.Remove(path); rmErr != nil {
			return fmt.Errorf("%w (starts with %q); removing: %v", ErrNotPDF, head, rmErr)
		}
	}
	return fmt.Errorf("%w (starts with %q)", ErrNotPDF, head)
}

// IsPDF reports whether the file at path starts with the PDF signature,
// regardless of whether verification is enabled.
func (v *Verifier) IsPDF(path string) (bool, error) {
	ok, _, err := v.check(path)
	return ok, err
}

func (v *Verifier) check(path string) (bool, []byte, error) {
	f, err := v.fs.Open(path)
	if err != nil {
		return false, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, len(Signature))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	head = head[:n]
	return bytes.Equal(head, Signature), head, nil
}
