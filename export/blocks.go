// Package export writes generated outlooks as Word documents.
//
// The model answers in light Markdown. Lines are classified into headings,
// list items and paragraphs; inline **bold** spans become bold runs.
// Everything else is kept as plain text.
package export

import (
	"regexp"
	"strings"
)

// BlockKind classifies one line of the generated text.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockNumbered
)

// Block is a paragraph-level element.
type Block struct {
	Kind BlockKind

	// Level is 1-3 for headings.
	Level int

	// Marker is the original list number, e.g. "3." for numbered items.
	Marker string

	Text string
}

// Run is a piece of inline text.
type Run struct {
	Text string
	Bold bool
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	numberedRe = regexp.MustCompile(`^(\d{1,3}[.)])\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`^[-*•]\s+(.*)$`)
	// A line that is bold as a whole is treated as a sub-heading.
	boldLineRe = regexp.MustCompile(`^\*\*([^*]+)\*\*:?$`)
)

// ParseBlocks splits text into blocks. Blank lines separate paragraphs and
// are not emitted; consecutive plain lines are joined into one paragraph.
func ParseBlocks(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		blocks []Block
		para   []string
	)
	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: strings.Join(para, " ")})
			para = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line == "---" || line == "***" {
			flush()
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			if level > 3 {
				level = 3
			}
			blocks = append(blocks, Block{Kind: BlockHeading, Level: level, Text: stripEmphasis(m[2])})
			continue
		}
		if m := boldLineRe.FindStringSubmatch(line); m != nil {
			flush()
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 3, Text: strings.TrimSuffix(strings.TrimSpace(m[1]), ":")})
			continue
		}
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			flush()
			blocks = append(blocks, Block{Kind: BlockNumbered, Marker: m[1], Text: m[2]})
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			flush()
			blocks = append(blocks, Block{Kind: BlockBullet, Text: m[1]})
			continue
		}
		para = append(para, line)
	}
	flush()
	return blocks
}

// ParseRuns splits text on ** markers. An unmatched marker is kept literally.
func ParseRuns(text string) []Run {
	parts := strings.Split(text, "**")
	if len(parts)%2 == 0 {
		// odd number of markers: rejoin the dangling one
		last := len(parts) - 1
		parts[last-1] = parts[last-1] + "**" + parts[last]
		parts = parts[:last]
	}

	runs := make([]Run, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		runs = append(runs, Run{Text: p, Bold: i%2 == 1})
	}
	return runs
}

func stripEmphasis(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}
