package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docsense/docsense/internal/dal"
)

// ErrMalformedContent reports a structurally invalid raw block sequence
// from the access layer, e.g. a cell outside any table.
var ErrMalformedContent = errors.New("malformed content")

// Build turns a raw block sequence into a Document. Source order is
// preserved exactly; position indices are assigned monotonically from 0.
// The transform is pure: the raw slice is never modified.
func Build(id string, raw []dal.RawBlock) (*Document, error) {
	doc := &Document{ID: id}
	for i := range raw {
		b, err := buildBlock(&raw[i])
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		b.Pos = len(doc.Blocks)
		doc.Blocks = append(doc.Blocks, b)
	}
	return doc, nil
}

func buildBlock(rb *dal.RawBlock) (*Block, error) {
	switch rb.Kind {
	case dal.RawParagraph:
		return buildParagraph(rb), nil
	case dal.RawTable:
		return buildTable(rb)
	case dal.RawImage:
		return &Block{Kind: KindImage, ImageRef: rb.ImageRef, Caption: rb.Caption}, nil
	case dal.RawCell:
		return nil, fmt.Errorf("%w: cell outside any table", ErrMalformedContent)
	}
	return nil, fmt.Errorf("%w: unknown raw kind %d", ErrMalformedContent, rb.Kind)
}

func buildParagraph(rb *dal.RawBlock) *Block {
	b := &Block{
		Kind:    KindParagraph,
		Style:   rb.StyleName,
		Align:   rb.Align,
		Spacing: rb.Spacing,
		Runs:    buildRuns(rb.Runs),
	}
	if level := HeadingLevel(rb.StyleName); level > 0 {
		b.Kind = KindHeading
		b.Level = level
	}
	return b
}

func buildTable(rb *dal.RawBlock) (*Block, error) {
	b := &Block{Kind: KindTable}
	for ri, rawRow := range rb.Rows {
		var row []Cell
		for ci := range rawRow {
			rawCell := &rawRow[ci]
			if rawCell.Kind != dal.RawCell {
				return nil, fmt.Errorf("%w: row %d holds a %s, not a cell", ErrMalformedContent, ri, rawCell.Kind)
			}
			cell := Cell{}
			for pi := range rawCell.Blocks {
				inner := &rawCell.Blocks[pi]
				switch inner.Kind {
				case dal.RawParagraph:
					p := buildParagraph(inner)
					// Headings make no sense inside cells; keep the text
					// but demote the variant.
					p.Kind = KindParagraph
					p.Level = 0
					cell.Paragraphs = append(cell.Paragraphs, p)
				case dal.RawTable:
					return nil, fmt.Errorf("%w: nested table in row %d", ErrMalformedContent, ri)
				default:
					return nil, fmt.Errorf("%w: %s inside cell", ErrMalformedContent, inner.Kind)
				}
			}
			row = append(row, cell)
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}

func buildRuns(raw []dal.RawRun) []TextRun {
	runs := make([]TextRun, 0, len(raw))
	for _, r := range raw {
		runs = append(runs, TextRun{
			Text: r.Text,
			Format: Format{
				Bold:      r.Bold,
				Italic:    r.Italic,
				Underline: r.Underline,
				Font:      r.Font,
				Size:      r.Size,
				Color:     r.Color,
			},
		})
	}
	return runs
}

// HeadingLevel extracts a heading level from a paragraph style name.
// "Heading1", "heading 2", "Titre3", "Title" and "Subtitle" are all
// recognized; unknown styles return 0 and stay plain paragraphs.
func HeadingLevel(style string) int {
	lower := strings.ToLower(strings.TrimSpace(style))
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := strings.TrimSpace(lower[len(prefix):])
		if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
			return int(rest[0] - '0')
		}
	}
	return 0
}

// ToRawRuns converts DOM runs back to the access layer's run form, used by
// the replace engine when it emits mutation commands.
func ToRawRuns(runs []TextRun) []dal.RawRun {
	out := make([]dal.RawRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, dal.RawRun{
			Text:      r.Text,
			Bold:      r.Format.Bold,
			Italic:    r.Format.Italic,
			Underline: r.Format.Underline,
			Font:      r.Format.Font,
			Size:      r.Format.Size,
			Color:     r.Format.Color,
		})
	}
	return out
}
