// Package report renders a finished quiz and its score as a PDF.
package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Filename is the name every report is offered under. Each new report of a
// session replaces the previous one.
const Filename = "quiz_result.pdf"

// ContentType is the MIME type of the rendered report.
const ContentType = "application/pdf"

var nonASCII = regexp.MustCompile(`[^\x00-\x7F]+`)

// StripNonASCII removes every run of non-ASCII characters. The core PDF fonts
// cannot encode them.
func StripNonASCII(s string) string {
	return nonASCII.ReplaceAllString(s, "")
}

// Write renders quizText followed by a blank line and scoreText, one cell per
// line, and returns the PDF bytes.
func Write(quizText, scoreText string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Arial", "", 12)

	clean := StripNonASCII(quizText + "\n\n" + scoreText)
	for _, line := range strings.Split(clean, "\n") {
		doc.CellFormat(200, 10, line, "", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
