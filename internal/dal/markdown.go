package dal

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownBackend reads Markdown files using goldmark. Headings carry a
// synthetic "Heading N" style so the DOM builder levels them the same way
// it levels Word styles.
type MarkdownBackend struct{}

func (b *MarkdownBackend) ReadFile(path string) ([]RawBlock, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open markdown: %w", err)
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []RawBlock
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			if title == "" {
				continue
			}
			blocks = append(blocks, RawBlock{
				Kind:      RawParagraph,
				StyleName: fmt.Sprintf("Heading %d", node.Level),
				Runs:      []RawRun{{Text: title}},
			})
		case *ast.Image:
			blocks = append(blocks, RawBlock{
				Kind:     RawImage,
				ImageRef: string(node.Destination),
			})
		default:
			t := mdText(n, src)
			if t != "" {
				blocks = append(blocks, RawBlock{
					Kind: RawParagraph,
					Runs: []RawRun{{Text: t}},
				})
			}
		}
	}
	return blocks, nil
}

// mdText gets the text content of a goldmark AST node.
func mdText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.FirstChild() == nil && n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(mdText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
