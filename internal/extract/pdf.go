// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF is returned for uploads whose name does not end in .pdf.
	ErrNotPDF = errors.New("only PDF files are supported")
	// ErrInvalidPDF wraps failures to open or decode the document.
	ErrInvalidPDF = errors.New("invalid PDF document")
	// ErrEmptyDocument is returned for zero-byte uploads.
	ErrEmptyDocument = errors.New("document is empty")
)

// IsPDF reports whether filename carries a .pdf extension, ignoring case.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// PDF extracts the text of every page of a PDF, in page order.
type PDF struct{}

// Text reads the whole of r and returns the concatenated page text. Pages are
// joined without a separator.
func (PDF) Text(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return TextFromBytes(data)
}

// TextFromBytes is Text for an in-memory document.
func TextFromBytes(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	// The decoder panics on some malformed inputs instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrInvalidPDF, i, err)
		}
		sb.WriteString(pageText)
	}

	return sb.String(), nil
}
