// Package replace locates text through the query engine and turns each hit
// into a scoped mutation command for the access layer. The document model
// itself is never modified; after the commands are applied a fresh model
// must be built for further queries.
package replace

import (
	"errors"
	"fmt"

	"github.com/docsense/docsense/internal/dal"
	"github.com/docsense/docsense/internal/dom"
	"github.com/docsense/docsense/internal/query"
)

// ErrReplacementConflict reports that the deterministic run-splitting rule
// could not produce a consistent run sequence. It is a fatal invariant
// breach, not an expected condition.
var ErrReplacementConflict = errors.New("replacement conflict")

// Scope limits how many matches are rewritten.
type Scope int

const (
	// All rewrites every match in position order.
	All Scope = iota
	// First rewrites only the first match by position index.
	First
)

// Request describes one replacement operation.
type Request struct {
	Find          string
	Mode          query.MatchMode
	CaseSensitive bool
	// Filter optionally restricts which blocks are considered, on top of
	// the text match itself.
	Filter      *query.Predicate
	Replacement string
	// Format, when set, replaces the formatting descriptor of rewritten
	// spans. Otherwise the span keeps the format of the run the match
	// started in.
	Format *dom.Format
	// KeepText leaves the matched text in place, making the request a
	// formatting-only rewrite. Replacement is ignored.
	KeepText bool
	Scope    Scope
}

// Result reports the emitted commands. ZeroMatches is informational, not
// an error: the predicate simply matched nothing.
type Result struct {
	Mutations    []dal.Mutation
	ReplaceCount int
	ZeroMatches  bool
}

// Apply computes the mutation commands for a replacement without touching
// the document model. Any pattern error surfaces before a single command
// is produced, so a failed request leaves nothing half-applied.
func Apply(doc *dom.Document, req Request) (*Result, error) {
	matcher, err := query.CompileMatcher(req.Find, req.Mode, req.CaseSensitive)
	if err != nil {
		return nil, err
	}

	pred := query.TextMatches(req.Find, req.Mode, req.CaseSensitive)
	if req.Filter != nil {
		pred = query.And(req.Filter, pred)
	}
	compiled, err := query.Compile(pred)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, m := range query.Run(doc, compiled) {
		if err := rewriteMatch(m, matcher, req, res); err != nil {
			return nil, err
		}
		if req.Scope == First && res.ReplaceCount > 0 {
			break
		}
	}
	res.ZeroMatches = res.ReplaceCount == 0
	return res, nil
}

// rewriteMatch emits MutSetRuns commands for the paragraphs behind one
// query match: the block itself, or every paragraph of a matched cell.
func rewriteMatch(m query.Match, matcher *query.Matcher, req Request, res *Result) error {
	if m.Row >= 0 {
		cell := &m.Block.Rows[m.Row][m.Col]
		for pi, p := range cell.Paragraphs {
			done, err := rewritePara(p, matcher, req, res, dal.Mutation{
				Kind:     dal.MutSetRuns,
				BlockPos: m.Pos,
				Row:      m.Row,
				Col:      m.Col,
				Para:     pi,
			})
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		return nil
	}

	if m.Block.Kind != dom.KindParagraph && m.Block.Kind != dom.KindHeading {
		return nil
	}
	mut := dal.NewMutation(dal.MutSetRuns, m.Pos)
	_, err := rewritePara(m.Block, matcher, req, res, mut)
	return err
}

// rewritePara rewrites one paragraph's matched spans. Returns done=true
// when scope=first and a replacement happened.
func rewritePara(p *dom.Block, matcher *query.Matcher, req Request, res *Result, mut dal.Mutation) (bool, error) {
	text := p.Text()
	spans := matcher.FindSubmatches(text)
	if len(spans) == 0 {
		return false, nil
	}
	if req.Scope == First {
		spans = spans[:1]
	}

	newRuns, count, err := spliceRuns(p.Runs, text, spans, matcher, req)
	if err != nil {
		return false, err
	}
	mut.Runs = dom.ToRawRuns(newRuns)
	res.Mutations = append(res.Mutations, mut)
	res.ReplaceCount += count
	return req.Scope == First, nil
}

// spliceRuns rebuilds a run sequence with the given spans replaced. Runs
// are split deterministically at span boundaries: text before a span keeps
// its run's format, the replacement takes the format of the run the span
// starts in (unless the request overrides it), and adjacent runs with
// identical formats are re-merged so no overlapping or redundant runs
// remain.
func spliceRuns(runs []dom.TextRun, text string, spans [][]int, matcher *query.Matcher, req Request) ([]dom.TextRun, int, error) {
	var out []dom.TextRun
	cursor := 0
	count := 0

	for _, span := range spans {
		start, end := span[0], span[1]
		if start < cursor {
			return nil, 0, fmt.Errorf("%w: overlapping spans at %d", ErrReplacementConflict, start)
		}
		out = appendSlice(out, runs, text, cursor, start)

		repl := req.Replacement
		switch {
		case req.KeepText:
			repl = text[start:end]
		case req.Mode == query.Regex:
			repl = matcher.Expand(text, req.Replacement, span)
		}
		format := formatAt(runs, start)
		if req.Format != nil {
			format = *req.Format
		}
		if repl != "" {
			out = append(out, dom.TextRun{Text: repl, Format: format})
		}
		cursor = end
		count++
	}
	out = appendSlice(out, runs, text, cursor, len(text))
	return mergeRuns(out), count, nil
}

// appendSlice copies the [from, to) byte range of the paragraph text into
// the output, preserving per-run formatting.
func appendSlice(out []dom.TextRun, runs []dom.TextRun, text string, from, to int) []dom.TextRun {
	if from >= to {
		return out
	}
	offset := 0
	for _, r := range runs {
		runEnd := offset + len(r.Text)
		lo := max(from, offset)
		hi := min(to, runEnd)
		if lo < hi {
			out = append(out, dom.TextRun{Text: text[lo:hi], Format: r.Format})
		}
		offset = runEnd
		if offset >= to {
			break
		}
	}
	return out
}

// formatAt returns the format of the run covering byte offset pos.
func formatAt(runs []dom.TextRun, pos int) dom.Format {
	offset := 0
	for _, r := range runs {
		if pos < offset+len(r.Text) {
			return r.Format
		}
		offset += len(r.Text)
	}
	if len(runs) > 0 {
		return runs[len(runs)-1].Format
	}
	return dom.Format{}
}

func mergeRuns(runs []dom.TextRun) []dom.TextRun {
	var out []dom.TextRun
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Format == r.Format {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}
