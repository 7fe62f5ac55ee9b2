package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// ContentType is the MIME type of the generated file.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ErrEmptyBody is returned when there is nothing to export.
var ErrEmptyBody = errors.New("document body is empty")

// Document is the content of one export.
type Document struct {
	Title    string
	Subtitle string
	Body     string

	// Notes are appended in a smaller style after the body, e.g. which
	// source documents were used.
	Notes []string

	Author      string
	GeneratedAt time.Time
}

// Render returns the DOCX bytes for doc.
func Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDOCX(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDOCX writes doc as an Office Open XML package.
func WriteDOCX(w io.Writer, doc Document) error {
	if strings.TrimSpace(doc.Body) == "" {
		return ErrEmptyBody
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"docProps/core.xml", corePropsXML(doc)},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", documentXML(doc)},
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(fw, p.content); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish docx: %w", err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// FileName derives a download name such as
// "Volkswirtschaftliche_Prognose_2026-10-19.docx".
func FileName(title string, at time.Time) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(title, "_"), "_")
	if base == "" {
		base = "Prognose"
	}
	if r := []rune(base); len(r) > 60 {
		base = strings.TrimRight(string(r[:60]), "_")
	}
	return fmt.Sprintf("%s_%s.docx", base, at.Format("2006-01-02"))
}

func documentXML(doc Document) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	if doc.Title != "" {
		writeParagraph(&b, "Title", "", []Run{{Text: doc.Title}})
	}
	subtitle := doc.Subtitle
	if subtitle == "" {
		subtitle = "Erstellt am " + doc.GeneratedAt.Format("02.01.2006 15:04")
	}
	writeParagraph(&b, "Subtitle", "", []Run{{Text: subtitle}})

	for _, blk := range ParseBlocks(doc.Body) {
		switch blk.Kind {
		case BlockHeading:
			writeParagraph(&b, fmt.Sprintf("Heading%d", blk.Level), "", []Run{{Text: blk.Text}})
		case BlockNumbered:
			writeParagraph(&b, "ListParagraph", blk.Marker+"\t", ParseRuns(blk.Text))
		case BlockBullet:
			writeParagraph(&b, "ListParagraph", "•\t", ParseRuns(blk.Text))
		default:
			writeParagraph(&b, "", "", ParseRuns(blk.Text))
		}
	}

	for _, n := range doc.Notes {
		writeParagraph(&b, "Note", "", []Run{{Text: n}})
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1417" w:right="1417" w:bottom="1134" w:left="1417" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return b.String()
}

// writeParagraph emits one w:p. prefix is written as a plain run before
// the content runs; a tab inside it becomes w:tab.
func writeParagraph(b *strings.Builder, style, prefix string, runs []Run) {
	b.WriteString("<w:p>")
	if style != "" {
		fmt.Fprintf(b, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	}
	if prefix != "" {
		writeRun(b, Run{Text: prefix})
	}
	for _, r := range runs {
		writeRun(b, r)
	}
	b.WriteString("</w:p>")
}

func writeRun(b *strings.Builder, r Run) {
	b.WriteString("<w:r>")
	if r.Bold {
		b.WriteString("<w:rPr><w:b/></w:rPr>")
	}
	for i, seg := range strings.Split(r.Text, "\t") {
		if i > 0 {
			b.WriteString("<w:tab/>")
		}
		if seg == "" {
			continue
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		escape(b, seg)
		b.WriteString("</w:t>")
	}
	b.WriteString("</w:r>")
}

func escape(b *strings.Builder, s string) {
	// xml.EscapeText only fails on writer errors, which a Builder never returns.
	_ = xml.EscapeText(b, []byte(s))
}

func corePropsXML(doc Document) string {
	var title, author strings.Builder
	escape(&title, doc.Title)
	escape(&author, doc.Author)
	ts := doc.GeneratedAt.UTC().Format(time.RFC3339)

	return xml.Header +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + title.String() + `</dc:title>` +
		`<dc:creator>` + author.String() + `</dc:creator>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + ts + `</dcterms:created>` +
		`</cp:coreProperties>`
}
