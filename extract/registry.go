package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyFile is returned for zero-length uploads.
var ErrEmptyFile = errors.New("file is empty")

// ErrUnsupported is returned for formats without an extractor.
var ErrUnsupported = errors.New("unsupported document format")

// Defaults for Registry.
const (
	DefaultSeparator      = "\n\n"
	DefaultMinUsefulChars = 50
)

// Extractor turns raw document bytes of a known kind into text.
type Extractor interface {
	Extract(data []byte, kind Kind) (string, error)
}

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Document is the text extracted from one File.
type Document struct {
	Name  string
	Kind  Kind
	Text  string
	Chars int
}

// Warning is a non-fatal extraction problem for a single file. The batch
// carries on without (or with little of) that file's text.
type Warning struct {
	File   string
	Reason string
	Err    error
}

func (w *Warning) Error() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s: %v", w.File, w.Reason, w.Err)
	}
	return fmt.Sprintf("%s: %s", w.File, w.Reason)
}

func (w *Warning) Unwrap() error { return w.Err }

// Batch is the outcome of extracting a set of uploads.
type Batch struct {
	Documents []Document
	Warnings  []*Warning

	// Context is the text of all documents joined with the separator.
	Context string
}

// Registry dispatches by Kind to the PDF and DOCX extractors.
type Registry struct {
	pdf  *PDFExtractor
	docx *DOCXExtractor

	// MaxFileSize skips larger files with a warning. 0 disables the check.
	MaxFileSize int64

	// MinUsefulChars below which a file is reported as yielding little text.
	MinUsefulChars int

	Separator string
}

// NewRegistry returns a Registry with default settings.
func NewRegistry() *Registry {
	return &Registry{
		pdf:            NewPDFExtractor(PDFConfig{}),
		docx:           NewDOCXExtractor(),
		MinUsefulChars: DefaultMinUsefulChars,
		Separator:      DefaultSeparator,
	}
}

// Extract implements Extractor.
func (r *Registry) Extract(data []byte, kind Kind) (string, error) {
	switch kind {
	case KindPDF:
		res, err := r.pdf.Extract(data)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	case KindDOCX:
		return r.docx.Extract(data)
	case KindDOC:
		return "", fmt.Errorf("%w: legacy .doc, please save as .docx", ErrUnsupported)
	default:
		return "", ErrUnsupported
	}
}

// ExtractAll extracts every file in order. Files are never fatal: each
// problem becomes a Warning. The context is checked between files so a
// cancelled request stops early.
func (r *Registry) ExtractAll(ctx context.Context, files []File) (*Batch, error) {
	batch := &Batch{}
	sep := r.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	var texts []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		if len(f.Data) == 0 {
			batch.Warnings = append(batch.Warnings, &Warning{File: f.Name, Reason: "file is empty", Err: ErrEmptyFile})
			continue
		}
		if r.MaxFileSize > 0 && int64(len(f.Data)) > r.MaxFileSize {
			batch.Warnings = append(batch.Warnings, &Warning{
				File:   f.Name,
				Reason: fmt.Sprintf("file exceeds the size limit of %d bytes", r.MaxFileSize),
			})
			continue
		}

		kind := DetectKind(f.Name, f.Data)
		text, err := r.Extract(f.Data, kind)
		text = strings.TrimSpace(text)
		if err != nil {
			batch.Warnings = append(batch.Warnings, &Warning{File: f.Name, Reason: "text could not be extracted", Err: err})
			if text == "" {
				continue
			}
		}

		chars := utf8.RuneCountInString(text)
		if err == nil && chars < r.MinUsefulChars {
			batch.Warnings = append(batch.Warnings, &Warning{
				File:   f.Name,
				Reason: fmt.Sprintf("only %d characters of text found", chars),
			})
		}
		if text == "" {
			continue
		}

		batch.Documents = append(batch.Documents, Document{Name: f.Name, Kind: kind, Text: text, Chars: chars})
		texts = append(texts, text)
	}

	batch.Context = strings.Join(texts, sep)
	return batch, nil
}
