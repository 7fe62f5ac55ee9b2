package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotDOCX is returned for zip archives without a Word main document.
var ErrNotDOCX = errors.New("file is not a Word document")

const docxMainPart = "word/document.xml"

// maxDocumentXML caps the decompressed main part against zip bombs.
const maxDocumentXML = 64 << 20

// DOCXExtractor reads paragraph text from Office Open XML documents.
type DOCXExtractor struct{}

func NewDOCXExtractor() *DOCXExtractor { return &DOCXExtractor{} }

// Extract returns one line per paragraph. Tabs and explicit line breaks
// inside a paragraph are kept; formatting is dropped.
func (e *DOCXExtractor) Extract(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	var main *zip.File
	for _, f := range zr.File {
		if f.Name == docxMainPart {
			main = f
			break
		}
	}
	if main == nil {
		return "", ErrNotDOCX
	}

	rc, err := main.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxMainPart, err)
	}
	defer rc.Close()

	return paragraphsFromXML(io.LimitReader(rc, maxDocumentXML))
}

// paragraphsFromXML walks WordprocessingML tokens. Only the local element
// names matter: w:p ends a paragraph, w:t carries text, w:tab and w:br
// become whitespace.
func paragraphsFromXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out    strings.Builder
		para   strings.Builder
		inText bool
		inTabs bool
	)
	flush := func() {
		line := strings.TrimRight(para.String(), " \t")
		para.Reset()
		if strings.TrimSpace(line) == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxMainPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				inTabs = true
			case "tab":
				// w:tabs holds tab stop definitions, not tab characters
				if !inTabs {
					para.WriteByte('\t')
				}
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabs = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flush()
	return out.String(), nil
}
