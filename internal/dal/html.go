package dal

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// HTMLBackend reads HTML files: h1..h6 become styled paragraphs, tables
// become table blocks, img elements become image references.
type HTMLBackend struct{}

func (b *HTMLBackend) ReadFile(path string) ([]RawBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []RawBlock

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				t := textContent(n)
				if t != "" {
					blocks = append(blocks, RawBlock{
						Kind:      RawParagraph,
						StyleName: fmt.Sprintf("Heading %d", level),
						Runs:      []RawRun{{Text: t}},
					})
				}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "table":
				if tbl := htmlTable(n); len(tbl.Rows) > 0 {
					blocks = append(blocks, tbl)
				}
				return
			case "img":
				src := attr(n, "src")
				if src != "" {
					blocks = append(blocks, RawBlock{
						Kind:     RawImage,
						ImageRef: src,
						Caption:  attr(n, "alt"),
					})
				}
				return
			case "p", "li", "blockquote":
				t := textContent(n)
				if t != "" {
					blocks = append(blocks, RawBlock{
						Kind: RawParagraph,
						Runs: []RawRun{{Text: t}},
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return blocks, nil
}

func htmlTable(table *html.Node) RawBlock {
	tbl := RawBlock{Kind: RawTable}

	var rows func(*html.Node)
	rows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []RawBlock
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, RawBlock{
						Kind: RawCell,
						Blocks: []RawBlock{{
							Kind: RawParagraph,
							Runs: []RawRun{{Text: textContent(c), Bold: c.Data == "th"}},
						}},
					})
				}
			}
			if len(cells) > 0 {
				tbl.Rows = append(tbl.Rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rows(c)
		}
	}
	rows(table)
	return tbl
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
