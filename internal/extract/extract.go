// Package extract turns uploaded files into plain text or HTML for the
// summarization pipeline. PDFs go through a remote OCR service, docx
// files are converted locally, and videos are transcoded and sent to a
// speech transcription service.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/gebo/internal/apperr"
)

// Extractor dispatches on file extension to the right backend.
type Extractor struct {
	pdf         *PDFClient
	transcriber *Transcriber
}

// New creates an extractor. Either client may be nil when the
// corresponding file type is not configured; extraction of that type
// then fails with a descriptive error.
func New(pdf *PDFClient, transcriber *Transcriber) *Extractor {
	return &Extractor{pdf: pdf, transcriber: transcriber}
}

// Supported reports whether the filename's extension can be extracted.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".mp4":
		return true
	}
	return false
}

// Extract produces the text content of the file. isHTML is true when
// the output is an HTML fragment rather than plain text (docx).
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (text string, isHTML bool, err error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		if e.pdf == nil {
			return "", false, fmt.Errorf("extract: pdf client not configured")
		}
		text, err = e.pdf.ExtractText(ctx, data)
		return text, false, err
	case ".docx":
		text, err = ConvertToHTML(data)
		return text, true, err
	case ".mp4":
		if e.transcriber == nil {
			return "", false, fmt.Errorf("extract: transcriber not configured")
		}
		text, err = e.transcriber.Transcribe(ctx, data)
		return text, false, err
	default:
		return "", false, fmt.Errorf("extract: %s: %w", filename, apperr.ErrUnsupportedType)
	}
}
