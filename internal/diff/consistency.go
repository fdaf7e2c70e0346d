package diff

import (
	"fmt"

	"github.com/docsense/docsense/internal/dom"
)

// Finding reports one value that diverges between a document and the
// comparison reference.
type Finding struct {
	Kind   string `json:"kind"`
	DocID  string `json:"doc_id"`
	RefPos int    `json:"ref_pos"`
	DocPos int    `json:"doc_pos"`
	Detail string `json:"detail"`
}

// MultiReport is the result of comparing several documents against the
// first one.
type MultiReport struct {
	ReferenceID string       `json:"reference_id"`
	Diffs       []*ChangeSet `json:"diffs"`
	Findings    []Finding    `json:"consistency_findings"`
}

// CompareAll diffs every document after the first against the first.
// Each pairwise diff also feeds the consistency check: blocks the diff
// aligned as the same content are inspected for formatting and cell
// value drift.
func CompareAll(docs []*dom.Document, threshold float64) *MultiReport {
	if len(docs) == 0 {
		return &MultiReport{}
	}
	ref := docs[0]
	rep := &MultiReport{ReferenceID: ref.ID}
	for _, d := range docs[1:] {
		cs := Compare(ref, d, threshold)
		rep.Diffs = append(rep.Diffs, cs)
		rep.Findings = append(rep.Findings, inspectPair(ref, d, cs)...)
	}
	return rep
}

// inspectPair walks the aligned entries of one pairwise diff and flags
// values the alignment considers equal but that actually differ in a
// way the block key ignores.
func inspectPair(ref, other *dom.Document, cs *ChangeSet) []Finding {
	var out []Finding
	for _, c := range cs.Changes {
		switch c.Kind {
		case Unchanged, Moved:
			rb, ob := ref.Blocks[c.OldPos], other.Blocks[c.NewPos]
			if rb.Kind == dom.KindHeading && rb.FirstFormat() != ob.FirstFormat() {
				out = append(out, Finding{
					Kind:   "heading_format_mismatch",
					DocID:  other.ID,
					RefPos: c.OldPos,
					DocPos: c.NewPos,
					Detail: fmt.Sprintf("heading %q formatted differently than in %s", rb.Text(), ref.ID),
				})
			}
			if rb.Kind == dom.KindParagraph && rb.Style != "" && rb.Style == ob.Style && rb.FirstFormat() != ob.FirstFormat() {
				out = append(out, Finding{
					Kind:   "style_format_mismatch",
					DocID:  other.ID,
					RefPos: c.OldPos,
					DocPos: c.NewPos,
					Detail: fmt.Sprintf("style %q formatted differently than in %s", rb.Style, ref.ID),
				})
			}
		case Modified:
			rb := ref.Blocks[c.OldPos]
			if rb.Kind == dom.KindTable {
				out = append(out, Finding{
					Kind:   "table_cell_mismatch",
					DocID:  other.ID,
					RefPos: c.OldPos,
					DocPos: c.NewPos,
					Detail: fmt.Sprintf("table at position %d has differing cell values", c.OldPos),
				})
			}
			if rb.Kind == dom.KindHeading {
				out = append(out, Finding{
					Kind:   "heading_text_mismatch",
					DocID:  other.ID,
					RefPos: c.OldPos,
					DocPos: c.NewPos,
					Detail: fmt.Sprintf("heading %q reads %q in %s", rb.Text(), other.Blocks[c.NewPos].Text(), other.ID),
				})
			}
		}
	}
	return out
}
