// Package diff compares document trees block by block. It anchors on
// the longest common subsequence of equal blocks, pairs the leftovers
// into modifications when their text is close enough, and reports
// everything else as additions and removals.
package diff

import (
	"fmt"
	"strings"

	"github.com/docsense/docsense/internal/dom"
)

// DefaultThreshold is the largest normalized edit distance at which two
// blocks still count as the same block modified rather than a removal
// plus an addition.
const DefaultThreshold = 0.4

// ChangeKind classifies one entry of a ChangeSet.
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Modified
	Added
	Removed
	Moved
)

func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Moved:
		return "moved"
	}
	return fmt.Sprintf("changekind(%d)", int(k))
}

// TextDelta narrows a modification down to the span that actually
// changed, after trimming the common prefix and suffix.
type TextDelta struct {
	Prefix  string `json:"prefix,omitempty"`
	OldSpan string `json:"old_span"`
	NewSpan string `json:"new_span"`
	Suffix  string `json:"suffix,omitempty"`
}

// Change describes the fate of one block. OldPos is -1 for additions,
// NewPos is -1 for removals; every other kind carries both.
type Change struct {
	Kind       ChangeKind `json:"kind"`
	OldPos     int        `json:"old_pos"`
	NewPos     int        `json:"new_pos"`
	BlockType  string     `json:"block_type"`
	OldText    string     `json:"old_text,omitempty"`
	NewText    string     `json:"new_text,omitempty"`
	Similarity float64    `json:"similarity,omitempty"`
	Delta      *TextDelta `json:"delta,omitempty"`
}

// ChangeSet is the full comparison of two documents. Every block of
// both inputs is accounted for by exactly one Change.
type ChangeSet struct {
	OldID   string   `json:"old_id"`
	NewID   string   `json:"new_id"`
	Changes []Change `json:"changes"`

	UnchangedCount int `json:"unchanged"`
	ModifiedCount  int `json:"modified"`
	AddedCount     int `json:"added"`
	RemovedCount   int `json:"removed"`
	MovedCount     int `json:"moved"`

	// Score summarizes how alike the documents are: 1 for identical
	// block sequences, 0 for nothing in common.
	Score float64 `json:"score"`
}

// Compare diffs old against new. A threshold outside (0,1] falls back
// to DefaultThreshold.
func Compare(oldDoc, newDoc *dom.Document, threshold float64) *ChangeSet {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	oldKeys := blockKeys(oldDoc.Blocks)
	newKeys := blockKeys(newDoc.Blocks)

	pairs := lcsPairs(oldKeys, newKeys)

	cs := &ChangeSet{OldID: oldDoc.ID, NewID: newDoc.ID}
	usedOld := make([]bool, len(oldKeys))
	usedNew := make([]bool, len(newKeys))
	for _, p := range pairs {
		usedOld[p.oldIdx], usedNew[p.newIdx] = true, true
		kind := Unchanged
		if p.oldIdx != p.newIdx {
			kind = Moved
		}
		b := oldDoc.Blocks[p.oldIdx]
		cs.add(Change{
			Kind:      kind,
			OldPos:    p.oldIdx,
			NewPos:    p.newIdx,
			BlockType: b.Kind.String(),
			OldText:   b.Text(),
			NewText:   b.Text(),
		})
	}

	// Walk the gaps between anchors and pair close blocks of the same
	// kind into modifications, in order.
	oi, ni := 0, 0
	for oi < len(oldKeys) || ni < len(newKeys) {
		if oi < len(oldKeys) && usedOld[oi] {
			oi++
			continue
		}
		if ni < len(newKeys) && usedNew[ni] {
			ni++
			continue
		}
		if oi < len(oldKeys) && ni < len(newKeys) {
			ob, nb := oldDoc.Blocks[oi], newDoc.Blocks[ni]
			ot, nt := ob.Text(), nb.Text()
			if oldKeys[oi] == newKeys[ni] {
				kind := Moved
				if oi == ni {
					kind = Unchanged
				}
				cs.add(Change{
					Kind:      kind,
					OldPos:    oi,
					NewPos:    ni,
					BlockType: ob.Kind.String(),
					OldText:   ot,
					NewText:   nt,
				})
				usedOld[oi], usedNew[ni] = true, true
				oi++
				ni++
				continue
			}
			if ob.Kind == nb.Kind && normDistance(ot, nt) <= threshold {
				cs.add(Change{
					Kind:       Modified,
					OldPos:     oi,
					NewPos:     ni,
					BlockType:  ob.Kind.String(),
					OldText:    ot,
					NewText:    nt,
					Similarity: similarity(ot, nt),
					Delta:      textDelta(ot, nt),
				})
				usedOld[oi], usedNew[ni] = true, true
				oi++
				ni++
				continue
			}
		}
		// No pairing possible: drain the side that is behind.
		if oi < len(oldKeys) && (ni >= len(newKeys) || oi <= ni) {
			b := oldDoc.Blocks[oi]
			cs.add(Change{
				Kind: Removed, OldPos: oi, NewPos: -1,
				BlockType: b.Kind.String(), OldText: b.Text(),
			})
			usedOld[oi] = true
			oi++
		} else {
			b := newDoc.Blocks[ni]
			cs.add(Change{
				Kind: Added, OldPos: -1, NewPos: ni,
				BlockType: b.Kind.String(), NewText: b.Text(),
			})
			usedNew[ni] = true
			ni++
		}
	}

	sortChanges(cs.Changes)
	cs.Score = score(cs, len(oldKeys), len(newKeys))
	return cs
}

func (cs *ChangeSet) add(c Change) {
	cs.Changes = append(cs.Changes, c)
	switch c.Kind {
	case Unchanged:
		cs.UnchangedCount++
	case Modified:
		cs.ModifiedCount++
	case Added:
		cs.AddedCount++
	case Removed:
		cs.RemovedCount++
	case Moved:
		cs.MovedCount++
	}
}

func score(cs *ChangeSet, oldLen, newLen int) float64 {
	longest := max(oldLen, newLen)
	if longest == 0 {
		return 1
	}
	kept := float64(cs.UnchangedCount+cs.MovedCount) + 0.5*float64(cs.ModifiedCount)
	return kept / float64(longest)
}

// sortChanges orders by old position, additions slotted in by their new
// position against the modified side.
func sortChanges(changes []Change) {
	key := func(c Change) (int, int) {
		if c.Kind == Added {
			return c.NewPos, 1
		}
		return c.OldPos, 0
	}
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0; j-- {
			ap, at := key(changes[j-1])
			bp, bt := key(changes[j])
			if ap < bp || (ap == bp && at <= bt) {
				break
			}
			changes[j-1], changes[j] = changes[j], changes[j-1]
		}
	}
}

func blockKeys(blocks []*dom.Block) []string {
	keys := make([]string, len(blocks))
	for i, b := range blocks {
		if b.Kind == dom.KindImage {
			keys[i] = fmt.Sprintf("%s\x00%s", b.Kind, b.ImageRef)
			continue
		}
		keys[i] = fmt.Sprintf("%s\x00%d\x00%s", b.Kind, b.Level, b.Text())
	}
	return keys
}

func normDistance(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return float64(levenshtein(a, b)) / float64(longest)
}

// textDelta trims the shared prefix and suffix so a modification can be
// reported as the small span that moved.
func textDelta(oldText, newText string) *TextDelta {
	or, nr := []rune(oldText), []rune(newText)
	p := 0
	for p < len(or) && p < len(nr) && or[p] == nr[p] {
		p++
	}
	s := 0
	for s < len(or)-p && s < len(nr)-p && or[len(or)-1-s] == nr[len(nr)-1-s] {
		s++
	}
	return &TextDelta{
		Prefix:  string(or[:p]),
		OldSpan: string(or[p : len(or)-s]),
		NewSpan: string(nr[p : len(nr)-s]),
		Suffix:  string(or[len(or)-s:]),
	}
}

type pair struct{ oldIdx, newIdx int }

// lcsPairs computes the longest common subsequence of the two key
// slices and returns the matched index pairs in order.
func lcsPairs(a, b []string) []pair {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else {
				table[i][j] = max(table[i+1][j], table[i][j+1])
			}
		}
	}
	var pairs []pair
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, pair{i, j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

// Summary renders a one-line human summary of the comparison.
func (cs *ChangeSet) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d unchanged, %d modified, %d added, %d removed",
		cs.UnchangedCount, cs.ModifiedCount, cs.AddedCount, cs.RemovedCount)
	if cs.MovedCount > 0 {
		fmt.Fprintf(&sb, ", %d moved", cs.MovedCount)
	}
	fmt.Fprintf(&sb, " (score %.2f)", cs.Score)
	return sb.String()
}
