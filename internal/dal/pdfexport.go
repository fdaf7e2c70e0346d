package dal

import (
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ExportPDF renders a raw block sequence to a simple PDF layout:
// headings bold and larger, paragraphs as wrapped cells, tables as a
// bordered grid, images as their caption or reference line.
func ExportPDF(blocks []RawBlock, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	for _, b := range blocks {
		switch b.Kind {
		case RawParagraph:
			text := tr(b.Text())
			if text == "" {
				pdf.Ln(5)
				continue
			}
			if lvl := headingDepth(b.StyleName); lvl > 0 {
				size := 16.0 - 2.0*float64(lvl-1)
				if size < 12 {
					size = 12
				}
				pdf.SetFont("Helvetica", "B", size)
				pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
				pdf.SetFont("Helvetica", "", 11)
				continue
			}
			align := "L"
			switch b.Align {
			case "center":
				align = "C"
			case "right":
				align = "R"
			}
			pdf.MultiCell(0, 5, text, "", align, false)
			pdf.Ln(2)
		case RawTable:
			writeTableGrid(pdf, tr, &b)
			pdf.Ln(3)
		case RawImage:
			label := b.Caption
			if label == "" {
				label = b.ImageRef
			}
			pdf.SetFont("Helvetica", "I", 10)
			pdf.CellFormat(0, 6, tr("[image: "+label+"]"), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
		}
	}
	return pdf.OutputFileAndClose(outPath)
}

func writeTableGrid(pdf *gofpdf.Fpdf, tr func(string) string, b *RawBlock) {
	cols := 0
	for _, row := range b.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	cellW := (pageW - left - right) / float64(cols)

	for _, row := range b.Rows {
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(row) {
				text = row[c].Text()
			}
			pdf.CellFormat(cellW, 7, tr(text), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// headingDepth parses a "Heading N" or "Title" style name; 0 means not
// a heading.
func headingDepth(style string) int {
	s := strings.TrimSpace(style)
	if strings.EqualFold(s, "Title") {
		return 1
	}
	if strings.EqualFold(s, "Subtitle") {
		return 2
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "heading") {
		return 0
	}
	rest := strings.TrimSpace(s[len("heading"):])
	if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
		return int(rest[0] - '0')
	}
	return 0
}
