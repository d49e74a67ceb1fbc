// Package pdfcheck rejects files that are not readable PDFs before they are uploaded.
package pdfcheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

var (
	// ErrNotPDF indicates the file does not start with a PDF header.
	ErrNotPDF = errors.New("not a PDF file")

	// ErrUnreadable indicates the PDF structure could not be parsed.
	ErrUnreadable = errors.New("unreadable PDF")

	// ErrNoPages indicates the PDF parsed but contains no pages.
	ErrNoPages = errors.New("PDF has no pages")
)

var pdfMagic = []byte("%PDF-")

// Validator checks the header and page tree of each file.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

var _ paperledger.Validator = (*Validator)(nil)

// Validate returns nil when path is a PDF with at least one page.
func (v *Validator) Validate(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}

	pages, err := numPages(f, info.Size())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	if pages < 1 {
		return fmt.Errorf("%w: %s", ErrNoPages, path)
	}
	return nil
}

// numPages parses the document trailer. The parser panics on some malformed
// cross-reference tables.
func numPages(r io.ReaderAt, size int64) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parse: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
