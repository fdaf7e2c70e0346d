// Package query evaluates composable boolean predicates over a document
// model, returning matches in position-index order.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/docsense/docsense/internal/dom"
)

// ErrInvalidPattern reports a malformed regular expression in a predicate.
var ErrInvalidPattern = errors.New("invalid pattern")

// MatchMode selects how a text pattern is interpreted.
type MatchMode int

const (
	// Literal matches the pattern as a substring.
	Literal MatchMode = iota
	// Regex matches the pattern as a regular expression.
	Regex
	// WholeWord matches the pattern as a full word (literal with word
	// boundaries).
	WholeWord
)

type predOp int

const (
	opAtom predOp = iota
	opAnd
	opOr
	opNot
)

type atomKind int

const (
	atomText atomKind = iota
	atomBlockType
	atomStyle
	atomPosition
	atomTableCell
)

// Predicate is a node of the boolean expression tree. Build predicates with
// the constructors; the zero value is not valid.
type Predicate struct {
	op   predOp
	kids []*Predicate

	kind          atomKind
	pattern       string
	mode          MatchMode
	caseSensitive bool
	blockKind     dom.BlockKind
	attr, value   string
	lo, hi        int
	row, col      int
}

// TextMatches matches blocks (or cells) whose plain text contains the
// pattern under the given mode.
func TextMatches(pattern string, mode MatchMode, caseSensitive bool) *Predicate {
	return &Predicate{op: opAtom, kind: atomText, pattern: pattern, mode: mode, caseSensitive: caseSensitive}
}

// BlockType matches blocks of one variant.
func BlockType(kind dom.BlockKind) *Predicate {
	return &Predicate{op: opAtom, kind: atomBlockType, blockKind: kind}
}

// StyleEquals matches on a formatting attribute: bold, italic, underline,
// font, size, color, align, or style.
func StyleEquals(attr, value string) *Predicate {
	return &Predicate{op: opAtom, kind: atomStyle, attr: strings.ToLower(attr), value: value}
}

// PositionIn matches blocks whose position index lies in [lo, hi].
func PositionIn(lo, hi int) *Predicate {
	return &Predicate{op: opAtom, kind: atomPosition, lo: lo, hi: hi}
}

// TableCellMatches matches the cell at (row, col) of a table when its text
// contains the pattern (literal, case-insensitive).
func TableCellMatches(row, col int, pattern string) *Predicate {
	return &Predicate{op: opAtom, kind: atomTableCell, row: row, col: col, pattern: pattern}
}

// And matches when every child matches.
func And(kids ...*Predicate) *Predicate { return &Predicate{op: opAnd, kids: kids} }

// Or matches when at least one child matches.
func Or(kids ...*Predicate) *Predicate { return &Predicate{op: opOr, kids: kids} }

// Not inverts a predicate.
func Not(kid *Predicate) *Predicate { return &Predicate{op: opNot, kids: []*Predicate{kid}} }

// Matcher is a compiled text pattern.
type Matcher struct {
	re *regexp.Regexp
}

// CompileMatcher builds the matcher for one text pattern. Literal and
// whole-word patterns are regexp-quoted; malformed regular expressions
// surface ErrInvalidPattern.
func CompileMatcher(pattern string, mode MatchMode, caseSensitive bool) (*Matcher, error) {
	expr := pattern
	switch mode {
	case Literal:
		expr = regexp.QuoteMeta(pattern)
	case WholeWord:
		expr = `\b` + regexp.QuoteMeta(pattern) + `\b`
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &Matcher{re: re}, nil
}

// Find returns all non-overlapping match spans in text.
func (m *Matcher) Find(text string) [][]int {
	return m.re.FindAllStringIndex(text, -1)
}

// FindStrings returns all non-overlapping matched substrings.
func (m *Matcher) FindStrings(text string) []string {
	return m.re.FindAllString(text, -1)
}

// FindSubmatches returns all non-overlapping match spans including capture
// group indices, as FindAllStringSubmatchIndex does.
func (m *Matcher) FindSubmatches(text string) [][]int {
	return m.re.FindAllStringSubmatchIndex(text, -1)
}

// Expand resolves $1-style references in template against one submatch
// span of text.
func (m *Matcher) Expand(text, template string, match []int) string {
	return string(m.re.ExpandString(nil, template, text, match))
}

type compiled struct {
	p        *Predicate
	matcher  *Matcher // atomText / atomTableCell
	kids     []*compiled
	hasCells bool // subtree contains a table_cell_matches atom
}

// Compile validates a predicate tree and compiles its patterns. It fails
// with ErrInvalidPattern before any evaluation starts.
func Compile(p *Predicate) (*Compiled, error) {
	c, err := compileNode(p)
	if err != nil {
		return nil, err
	}
	return &Compiled{root: c}, nil
}

func compileNode(p *Predicate) (*compiled, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil predicate", ErrInvalidPattern)
	}
	c := &compiled{p: p}
	switch p.op {
	case opAtom:
		switch p.kind {
		case atomText:
			m, err := CompileMatcher(p.pattern, p.mode, p.caseSensitive)
			if err != nil {
				return nil, err
			}
			c.matcher = m
		case atomTableCell:
			m, err := CompileMatcher(p.pattern, Literal, false)
			if err != nil {
				return nil, err
			}
			c.matcher = m
			c.hasCells = true
		}
	default:
		for _, k := range p.kids {
			kc, err := compileNode(k)
			if err != nil {
				return nil, err
			}
			c.kids = append(c.kids, kc)
			c.hasCells = c.hasCells || kc.hasCells
		}
	}
	return c, nil
}

// Compiled is a validated, reusable predicate. Evaluating it never fails
// and always yields the same ordered sequence for the same document.
type Compiled struct {
	root *compiled
}
