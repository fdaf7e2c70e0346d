// Package dom holds the normalized, format-independent document model the
// query, replace, diff, and scoring engines operate on. A Document is built
// fresh per request and treated as immutable once built; writes go back
// through the dal as mutation commands, never through this tree.
package dom

import "strings"

// BlockKind tags the Block variants.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindHeading
	KindTable
	KindImage
)

func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// ParseBlockKind maps a kind name back to its tag. Returns ok=false for
// unknown names.
func ParseBlockKind(s string) (BlockKind, bool) {
	switch strings.ToLower(s) {
	case "paragraph":
		return KindParagraph, true
	case "heading":
		return KindHeading, true
	case "table":
		return KindTable, true
	case "image":
		return KindImage, true
	}
	return 0, false
}

// Format is the formatting descriptor attached to a text run.
type Format struct {
	Bold      bool
	Italic    bool
	Underline bool
	Font      string
	Size      float64
	Color     string
}

// TextRun is a contiguous span of identically formatted text. The
// concatenation of a paragraph's runs is its plain text.
type TextRun struct {
	Text   string
	Format Format
}

// Cell is a block container inside a table row. Cells hold paragraphs only;
// nested tables are flattened at build time.
type Cell struct {
	Paragraphs []*Block
}

// Text joins the cell's paragraph text with newlines.
func (c *Cell) Text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// Block is one structural unit of a document. Fields are populated
// according to Kind; Pos is the 0-based position index assigned at build
// time and never reused across rebuilds.
type Block struct {
	Kind BlockKind
	Pos  int

	// Heading and Paragraph.
	Level   int // heading level 1..9
	Runs    []TextRun
	Style   string // nominal style name from the source
	Align   string
	Spacing float64 // line spacing multiple, 0 when unset

	// Table.
	Rows [][]Cell

	// Image.
	ImageRef string
	Caption  string
}

// Text returns the block's plain text: run concatenation for paragraphs and
// headings, row-major tab/newline-joined cells for tables, the caption for
// images.
func (b *Block) Text() string {
	switch b.Kind {
	case KindParagraph, KindHeading:
		var sb strings.Builder
		for _, r := range b.Runs {
			sb.WriteString(r.Text)
		}
		return sb.String()
	case KindTable:
		var rows []string
		for _, row := range b.Rows {
			cells := make([]string, 0, len(row))
			for i := range row {
				cells = append(cells, row[i].Text())
			}
			rows = append(rows, strings.Join(cells, "\t"))
		}
		return strings.Join(rows, "\n")
	case KindImage:
		return b.Caption
	}
	return ""
}

// FirstFormat returns the format of the block's first run, or the zero
// Format when the block has none.
func (b *Block) FirstFormat() Format {
	if len(b.Runs) > 0 {
		return b.Runs[0].Format
	}
	return Format{}
}

// Document is the root entity: an ordered block sequence owned by the tree.
type Document struct {
	ID     string // source path or logical id
	Blocks []*Block
}

// Counts reports the number of blocks per variant.
func (d *Document) Counts() (paragraphs, headings, tables, images int) {
	for _, b := range d.Blocks {
		switch b.Kind {
		case KindParagraph:
			paragraphs++
		case KindHeading:
			headings++
		case KindTable:
			tables++
		case KindImage:
			images++
		}
	}
	return
}

// PlainText joins all block text in position order.
func (d *Document) PlainText() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if t := b.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
