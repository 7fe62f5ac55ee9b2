// Package extract turns uploaded PDF and Word documents into plain text.
//
// Extraction is best effort: a file that cannot be read, or that yields
// almost no text, produces a Warning instead of failing the batch.
package extract

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Kind is a supported document format.
type Kind string

const (
	KindUnknown Kind = ""
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	// KindDOC is the binary Word 97-2003 format. It is recognised so the
	// user gets a clear warning, but it is not extracted.
	KindDOC Kind = "doc"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectKind decides the format from the file extension and falls back to
// the leading magic bytes when the extension is missing or unknown.
func DetectKind(filename string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".doc":
		return KindDOC
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return KindPDF
	case bytes.HasPrefix(data, zipMagic) && bytes.Contains(data, []byte("word/")):
		return KindDOCX
	case bytes.HasPrefix(data, oleMagic):
		return KindDOC
	}
	return KindUnknown
}

// AcceptedExtensions lists the extensions offered in the upload form.
func AcceptedExtensions() []string {
	return []string{".pdf", ".docx"}
}
