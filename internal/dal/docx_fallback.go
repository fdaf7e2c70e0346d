package dal

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// readDocxPlain is the fallback .docx read path for archives whose body the
// native codec cannot walk. It loses run formatting and tables but still
// yields paragraph text and heading styles.
func readDocxPlain(filePath string) ([]RawBlock, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []RawBlock
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		blocks = append(blocks, RawBlock{
			Kind:      RawParagraph,
			StyleName: paragraphStyle(para),
			Runs:      []RawRun{{Text: text}},
		})
	}
	return blocks, nil
}

func paragraphStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
