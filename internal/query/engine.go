package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docsense/docsense/internal/dom"
)

// Match is one element handle produced by a query: a block, or a single
// table cell (Row/Col >= 0). Matches come out in position-index order,
// cells row-major within their table.
type Match struct {
	Block   *dom.Block `json:"-"`
	Pos     int        `json:"position"`
	Type    string     `json:"type"`
	Row     int        `json:"row"`
	Col     int        `json:"col"`
	Snippet string     `json:"text_snippet"`
	Matched []string   `json:"matches,omitempty"`
}

// Run evaluates a compiled predicate over a document. The result is a pure
// function of (doc, predicate): re-running yields an identical sequence.
// An empty result is valid, not an error.
func Run(doc *dom.Document, c *Compiled) []Match {
	var out []Match
	for _, b := range doc.Blocks {
		if b.Kind == dom.KindTable {
			for ri, row := range b.Rows {
				for ci := range row {
					t := target{block: b, row: ri, col: ci, text: row[ci].Text()}
					if eval(c.root, &t) {
						out = append(out, newMatch(&t))
					}
				}
			}
			continue
		}
		t := target{block: b, row: -1, col: -1, text: b.Text()}
		if eval(c.root, &t) {
			out = append(out, newMatch(&t))
		}
	}
	return out
}

type target struct {
	block    *dom.Block
	row, col int
	text     string
}

func (t *target) format() dom.Format {
	if t.row >= 0 {
		cell := &t.block.Rows[t.row][t.col]
		if len(cell.Paragraphs) > 0 {
			return cell.Paragraphs[0].FirstFormat()
		}
		return dom.Format{}
	}
	return t.block.FirstFormat()
}

func eval(c *compiled, t *target) bool {
	switch c.p.op {
	case opAnd:
		for _, k := range c.kids {
			if !eval(k, t) {
				return false
			}
		}
		return true
	case opOr:
		for _, k := range c.kids {
			if eval(k, t) {
				return true
			}
		}
		return false
	case opNot:
		return !eval(c.kids[0], t)
	}

	switch c.p.kind {
	case atomText:
		return len(c.matcher.Find(t.text)) > 0
	case atomBlockType:
		return t.block.Kind == c.p.blockKind
	case atomPosition:
		return t.block.Pos >= c.p.lo && t.block.Pos <= c.p.hi
	case atomTableCell:
		return t.row == c.p.row && t.col == c.p.col && len(c.matcher.Find(t.text)) > 0
	case atomStyle:
		return styleMatches(c.p.attr, c.p.value, t)
	}
	return false
}

func styleMatches(attr, value string, t *target) bool {
	f := t.format()
	switch attr {
	case "bold":
		return f.Bold == (value == "true")
	case "italic":
		return f.Italic == (value == "true")
	case "underline":
		return f.Underline == (value == "true")
	case "font":
		return strings.EqualFold(f.Font, value)
	case "color":
		return strings.EqualFold(f.Color, value)
	case "size":
		want, err := strconv.ParseFloat(value, 64)
		return err == nil && f.Size == want
	case "align":
		return strings.EqualFold(t.block.Align, value)
	case "style":
		return strings.EqualFold(t.block.Style, value)
	}
	return false
}

func newMatch(t *target) Match {
	m := Match{
		Block:   t.block,
		Pos:     t.block.Pos,
		Type:    t.block.Kind.String(),
		Row:     t.row,
		Col:     t.col,
		Snippet: snippet(t.text),
	}
	return m
}

// CollectMatched records, for every text atom in the predicate, the
// substrings it matched in each result. Used by the string-query surface
// to report match lists.
func CollectMatched(c *Compiled, matches []Match) {
	for i := range matches {
		var text string
		m := &matches[i]
		if m.Row >= 0 {
			text = m.Block.Rows[m.Row][m.Col].Text()
		} else {
			text = m.Block.Text()
		}
		m.Matched = collectMatched(c.root, text, nil)
	}
}

func collectMatched(c *compiled, text string, acc []string) []string {
	if c.p.op == opAtom {
		if (c.p.kind == atomText || c.p.kind == atomTableCell) && c.matcher != nil {
			acc = append(acc, c.matcher.FindStrings(text)...)
		}
		return acc
	}
	for _, k := range c.kids {
		acc = collectMatched(k, text, acc)
	}
	return acc
}

// snippet truncates long text to 50 runes.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:50]) + "..."
}

// Count kinds handled by the string syntax without a predicate.
const (
	CountParagraphs = "paragraphs"
	CountTables     = "tables"
	CountImages     = "images"
)

// ParseExpr parses the compact query syntax:
//
//	regex:pattern     regular expression match
//	keyword:text      whole-word match
//	contains:text     substring match
//	paragraphs        count paragraphs
//	tables            count tables
//	images            count images
//
// Text matching defaults to case-insensitive. For count queries the
// returned predicate is nil and the count kind is set.
func ParseExpr(expr string) (*Predicate, string, error) {
	switch expr {
	case CountParagraphs, CountTables, CountImages:
		return nil, expr, nil
	}
	kind, rest, ok := strings.Cut(expr, ":")
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported query %q", ErrInvalidPattern, expr)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "regex":
		return TextMatches(rest, Regex, false), "", nil
	case "keyword":
		return TextMatches(rest, WholeWord, false), "", nil
	case "contains":
		return TextMatches(rest, Literal, false), "", nil
	}
	return nil, "", fmt.Errorf("%w: unsupported query type %q", ErrInvalidPattern, kind)
}
