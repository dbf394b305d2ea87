package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/config"
)

// ErrNoText is returned when a PDF has no extractable text layer
// (typically a scanned bid without OCR).
var ErrNoText = eris.New("ocr: no text layer")

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) Extractor {
	return NewPdfToText(cfg.PdfToTextPath)
}

// Pages splits extracted text on form feeds into pages, dropping blank ones.
func Pages(text string) []string {
	var pages []string
	for _, p := range strings.Split(text, "\f") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		pages = append(pages, strings.TrimRight(p, "\n"))
	}
	return pages
}
