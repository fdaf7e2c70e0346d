package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/docsense/docsense/internal/dom"
)

// Section names accepted by BuildInfo.
const (
	SectionParagraphs = "paragraphs"
	SectionTables     = "tables"
	SectionImages     = "images"
	SectionHeadings   = "headings"
	SectionKeywords   = "keywords"
)

// AllSections is the default extraction selection.
var AllSections = []string{
	SectionParagraphs, SectionTables, SectionImages, SectionHeadings, SectionKeywords,
}

// ParagraphInfo is one extracted paragraph with its position index, so the
// original block order can be reconstructed from the output.
type ParagraphInfo struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	Style    string `json:"style,omitempty"`
}

// TableInfo is one extracted table as a cell-text grid.
type TableInfo struct {
	Position int        `json:"position"`
	Cells    [][]string `json:"cells"`
}

// ImageInfo is one extracted image reference.
type ImageInfo struct {
	Position int    `json:"position"`
	Ref      string `json:"ref"`
	Caption  string `json:"caption,omitempty"`
}

// HeadingInfo is one extracted heading.
type HeadingInfo struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	Level    int    `json:"level"`
}

// Info is the serialized extraction view of one document.
type Info struct {
	Paragraphs []ParagraphInfo `json:"paragraphs,omitempty"`
	Tables     []TableInfo     `json:"tables,omitempty"`
	Images     []ImageInfo     `json:"images,omitempty"`
	Headings   []HeadingInfo   `json:"headings,omitempty"`
	Outline    []*HeadingNode  `json:"outline,omitempty"`
	Keywords   []Keyword       `json:"keywords,omitempty"`
	WordCount  int             `json:"word_count"`
}

// BuildInfo extracts the requested sections from a document. An empty
// section list means everything.
func BuildInfo(doc *dom.Document, topN int, sections []string) *Info {
	if len(sections) == 0 {
		sections = AllSections
	}
	want := make(map[string]bool, len(sections))
	for _, s := range sections {
		want[strings.ToLower(s)] = true
	}

	info := &Info{}
	for _, b := range doc.Blocks {
		switch b.Kind {
		case dom.KindParagraph:
			if want[SectionParagraphs] {
				info.Paragraphs = append(info.Paragraphs, ParagraphInfo{
					Position: b.Pos, Text: b.Text(), Style: b.Style,
				})
			}
		case dom.KindHeading:
			if want[SectionHeadings] {
				info.Headings = append(info.Headings, HeadingInfo{
					Position: b.Pos, Text: b.Text(), Level: b.Level,
				})
			}
		case dom.KindTable:
			if want[SectionTables] {
				ti := TableInfo{Position: b.Pos}
				for _, row := range b.Rows {
					cells := make([]string, 0, len(row))
					for i := range row {
						cells = append(cells, row[i].Text())
					}
					ti.Cells = append(ti.Cells, cells)
				}
				info.Tables = append(info.Tables, ti)
			}
		case dom.KindImage:
			if want[SectionImages] {
				info.Images = append(info.Images, ImageInfo{
					Position: b.Pos, Ref: b.ImageRef, Caption: b.Caption,
				})
			}
		}
	}

	if want[SectionHeadings] {
		info.Outline = Outline(doc)
	}
	if want[SectionKeywords] {
		info.Keywords = Keywords(doc, topN)
	}
	info.WordCount = CountWords(doc.PlainText())
	return info
}

// Rows flattens the info into the row form: one row per extracted element,
// columns type, position, content, style_summary, ordered by position.
func (i *Info) Rows() [][]string {
	type row struct {
		pos  int
		cols []string
	}
	var rows []row

	for _, p := range i.Paragraphs {
		rows = append(rows, row{p.Position, []string{
			"paragraph", strconv.Itoa(p.Position), p.Text, p.Style,
		}})
	}
	for _, h := range i.Headings {
		rows = append(rows, row{h.Position, []string{
			"heading", strconv.Itoa(h.Position), h.Text, fmt.Sprintf("level %d", h.Level),
		}})
	}
	for _, t := range i.Tables {
		var parts []string
		for _, r := range t.Cells {
			parts = append(parts, strings.Join(r, "\t"))
		}
		dims := ""
		if len(t.Cells) > 0 {
			dims = fmt.Sprintf("%dx%d", len(t.Cells), len(t.Cells[0]))
		}
		rows = append(rows, row{t.Position, []string{
			"table", strconv.Itoa(t.Position), strings.Join(parts, "\n"), dims,
		}})
	}
	for _, img := range i.Images {
		rows = append(rows, row{img.Position, []string{
			"image", strconv.Itoa(img.Position), img.Ref, img.Caption,
		}})
	}

	sort.Slice(rows, func(a, b int) bool { return rows[a].pos < rows[b].pos })

	out := [][]string{{"type", "position", "content", "style_summary"}}
	for _, r := range rows {
		out = append(out, r.cols)
	}
	return out
}

// WriteCSV writes the flat row form, then one keyword row per term under a
// separate header.
func (i *Info) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(i.Rows()); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if len(i.Keywords) > 0 {
		if err := cw.Write([]string{"term", "score", "count"}); err != nil {
			return fmt.Errorf("write keyword header: %w", err)
		}
		for _, k := range i.Keywords {
			rec := []string{k.Term, strconv.FormatFloat(k.Score, 'f', 6, 64), strconv.Itoa(k.Count)}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write keyword: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
