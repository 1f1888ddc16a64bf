package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/models"
)

// PageExtractor turns raw PDF bytes into per-page text.
type PageExtractor interface {
	ExtractPages(ctx context.Context, content []byte) ([]models.Page, error)
}

// PDFExtractor reads text with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages returns one Page per readable page, numbered from 1.
// Pages that fail to decode are logged and returned with empty text so that
// numbering keeps matching the source document.
func (e *PDFExtractor) ExtractPages(ctx context.Context, content []byte) (pages []models.Page, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	total := reader.NumPage()
	pages = make([]models.Page, 0, total)
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract page text", "page", i, "error", err)
			text = ""
		}
		pages = append(pages, models.Page{Number: i, Text: text})
	}

	return pages, nil
}
