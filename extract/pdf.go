package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoPDFContent is returned when no page of a PDF yields text, which is
// typical for scanned documents without a text layer.
var ErrNoPDFContent = errors.New("no text content found in PDF")

// PDFConfig controls PDF extraction.
type PDFConfig struct {
	// PageSeparator is inserted between pages. Defaults to "\n\n".
	PageSeparator string

	// MaxPages limits extraction to the first N pages, 0 for all.
	MaxPages int
}

// PDFExtractor reads the text layer of PDF documents page by page.
type PDFExtractor struct {
	cfg PDFConfig
}

func NewPDFExtractor(cfg PDFConfig) *PDFExtractor {
	if cfg.PageSeparator == "" {
		cfg.PageSeparator = "\n\n"
	}
	return &PDFExtractor{cfg: cfg}
}

// PDFResult carries the text and page statistics of one document.
type PDFResult struct {
	Text           string
	TotalPages     int
	ExtractedPages int
	SkippedPages   int

	// PageErrors collects pages that failed; the rest are still used.
	PageErrors []error
}

// Extract parses an in-memory PDF.
func (e *PDFExtractor) Extract(data []byte) (res *PDFResult, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	// ledongthuc/pdf panics on some malformed cross reference tables.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return e.extractFromReader(r)
}

func (e *PDFExtractor) extractFromReader(r *pdf.Reader) (*PDFResult, error) {
	total := r.NumPage()
	res := &PDFResult{TotalPages: total}

	pages := total
	if e.cfg.MaxPages > 0 && e.cfg.MaxPages < total {
		pages = e.cfg.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		text, err := extractPage(r, i)
		if err != nil {
			res.PageErrors = append(res.PageErrors, fmt.Errorf("page %d: %w", i, err))
			res.SkippedPages++
			continue
		}
		if text == "" {
			res.SkippedPages++
			continue
		}
		if b.Len() > 0 {
			b.WriteString(e.cfg.PageSeparator)
		}
		b.WriteString(text)
		res.ExtractedPages++
	}

	res.Text = b.String()
	if res.Text == "" {
		if len(res.PageErrors) > 0 {
			return res, fmt.Errorf("%w: %v", ErrNoPDFContent, errors.Join(res.PageErrors...))
		}
		return res, ErrNoPDFContent
	}
	return res, nil
}

func extractPage(r *pdf.Reader, n int) (string, error) {
	p := r.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
