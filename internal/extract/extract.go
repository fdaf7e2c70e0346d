// Package extract derives heading outlines, keyword signatures and the
// serialized info view from a document model.
package extract

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	"github.com/docsense/docsense/internal/dom"
)

// DefaultTopKeywords is the keyword count returned when the caller does not
// pick one.
const DefaultTopKeywords = 20

var englishStopWords analysis.TokenMap

func init() {
	englishStopWords = analysis.NewTokenMap()
	// The embedded word list always parses.
	_ = englishStopWords.LoadBytes(en.EnglishStopWords)
}

// HeadingNode is one entry of the heading outline. A level-N heading nests
// under the nearest preceding heading of a lower level.
type HeadingNode struct {
	Text     string         `json:"text"`
	Level    int            `json:"level"`
	Position int            `json:"position"`
	Children []*HeadingNode `json:"children,omitempty"`
}

// Outline builds the heading tree for a document. Headings with no
// preceding lower-level heading become roots.
func Outline(doc *dom.Document) []*HeadingNode {
	var roots []*HeadingNode
	var stack []*HeadingNode

	for _, b := range doc.Blocks {
		if b.Kind != dom.KindHeading {
			continue
		}
		node := &HeadingNode{Text: b.Text(), Level: b.Level, Position: b.Pos}
		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}
	return roots
}

// Keyword is one ranked term of a document's topic signature.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

type termStat struct {
	count int
	first int // token order of first occurrence, for tie-breaking
}

// Keywords tokenizes paragraph and heading text, drops English stop words,
// and ranks terms by a length-damped term frequency: count/total scaled by
// 1+ln(total/count), bounded in (0,1]. Ties break by first occurrence.
// The result is recomputed per call, never cached.
func Keywords(doc *dom.Document, topN int) []Keyword {
	if topN <= 0 {
		topN = DefaultTopKeywords
	}

	var sb strings.Builder
	for _, b := range doc.Blocks {
		switch b.Kind {
		case dom.KindParagraph, dom.KindHeading:
			sb.WriteString(b.Text())
			sb.WriteString("\n")
		case dom.KindTable:
			sb.WriteString(b.Text())
			sb.WriteString("\n")
		}
	}

	terms := analyze(sb.String())
	if len(terms) == 0 {
		return nil
	}

	stats := make(map[string]*termStat)
	for i, term := range terms {
		st, ok := stats[term]
		if !ok {
			st = &termStat{first: i}
			stats[term] = st
		}
		st.count++
	}

	total := float64(len(terms))
	type ranked struct {
		term string
		stat *termStat
	}
	all := make([]ranked, 0, len(stats))
	for term, st := range stats {
		all = append(all, ranked{term, st})
	}
	sort.Slice(all, func(i, j int) bool {
		si := score(all[i].stat.count, total)
		sj := score(all[j].stat.count, total)
		if si != sj {
			return si > sj
		}
		return all[i].stat.first < all[j].stat.first
	})

	if len(all) > topN {
		all = all[:topN]
	}
	out := make([]Keyword, 0, len(all))
	for _, r := range all {
		out = append(out, Keyword{
			Term:  r.term,
			Score: score(r.stat.count, total),
			Count: r.stat.count,
		})
	}
	return out
}

func score(count int, total float64) float64 {
	c := float64(count)
	return c * (1 + math.Log(total/c)) / total
}

// analyze runs the bleve analysis chain: unicode segmentation, lowercasing,
// English stop-word removal. Token order is preserved.
func analyze(text string) []string {
	tokenizer := unicodetok.NewUnicodeTokenizer()
	stream := tokenizer.Tokenize([]byte(text))
	stream = lowercase.NewLowerCaseFilter().Filter(stream)
	stream = stop.NewStopTokensFilter(englishStopWords).Filter(stream)

	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// CountWords counts words in mixed text: whitespace-separated words for
// alphabetic scripts, one word per ideograph for Han text.
func CountWords(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		han := 0
		other := false
		for _, r := range field {
			if unicode.Is(unicode.Han, r) {
				han++
			} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
				other = true
			}
		}
		count += han
		if other || (han == 0 && field != "") {
			count++
		}
	}
	return count
}
