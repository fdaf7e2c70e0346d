package diff

import (
	"testing"

	"github.com/docsense/docsense/internal/dom"
)

func doc(id string, blocks ...*dom.Block) *dom.Document {
	d := &dom.Document{ID: id}
	for i, b := range blocks {
		b.Pos = i
		d.Blocks = append(d.Blocks, b)
	}
	return d
}

func para(text string) *dom.Block {
	return &dom.Block{Kind: dom.KindParagraph, Runs: []dom.TextRun{{Text: text}}}
}

func heading(level int, text string) *dom.Block {
	return &dom.Block{Kind: dom.KindHeading, Level: level, Runs: []dom.TextRun{{Text: text}}}
}

func image(ref string) *dom.Block {
	return &dom.Block{Kind: dom.KindImage, ImageRef: ref}
}

func TestCompare_Identical(t *testing.T) {
	a := doc("a", heading(1, "Intro"), para("Hello world."))
	b := doc("b", heading(1, "Intro"), para("Hello world."))
	cs := Compare(a, b, 0)
	if cs.UnchangedCount != 2 || cs.ModifiedCount+cs.AddedCount+cs.RemovedCount+cs.MovedCount != 0 {
		t.Fatalf("expected 2 unchanged only, got %s", cs.Summary())
	}
	if cs.Score != 1 {
		t.Errorf("expected score 1, got %v", cs.Score)
	}
}

func TestCompare_SmallEditIsModified(t *testing.T) {
	a := doc("a", heading(1, "Intro"), para("Hello world."))
	b := doc("b", heading(1, "Intro"), para("Hello there, world."))
	cs := Compare(a, b, 0)
	if cs.UnchangedCount != 1 || cs.ModifiedCount != 1 {
		t.Fatalf("expected 1 unchanged + 1 modified, got %s", cs.Summary())
	}
	var mod *Change
	for i := range cs.Changes {
		if cs.Changes[i].Kind == Modified {
			mod = &cs.Changes[i]
		}
	}
	if mod == nil {
		t.Fatal("no modified entry")
	}
	if mod.OldPos != 1 || mod.NewPos != 1 {
		t.Errorf("expected positions (1,1), got (%d,%d)", mod.OldPos, mod.NewPos)
	}
	if mod.Delta == nil {
		t.Fatal("expected a text delta")
	}
	if mod.Delta.Prefix != "Hello " || mod.Delta.NewSpan != "there, " || mod.Delta.OldSpan != "" {
		t.Errorf("unexpected delta: %+v", *mod.Delta)
	}
}

func TestCompare_RewriteIsRemovedPlusAdded(t *testing.T) {
	a := doc("a", para("quarterly revenue grew"))
	b := doc("b", para("unrelated text entirely"))
	cs := Compare(a, b, 0)
	if cs.RemovedCount != 1 || cs.AddedCount != 1 || cs.ModifiedCount != 0 {
		t.Fatalf("expected removed+added, got %s", cs.Summary())
	}
}

func TestCompare_Moved(t *testing.T) {
	a := doc("a", para("first"), para("second"), para("third"))
	b := doc("b", para("second"), para("third"), para("first"))
	cs := Compare(a, b, 0)
	if cs.MovedCount == 0 {
		t.Fatalf("expected a moved entry, got %s", cs.Summary())
	}
	if cs.AddedCount != 0 || cs.RemovedCount != 0 {
		t.Errorf("reorder must not add or remove blocks: %s", cs.Summary())
	}
}

func TestCompare_ImagesByReference(t *testing.T) {
	a := doc("a", image("media/image1.png"))
	b := doc("b", image("media/image2.png"))
	cs := Compare(a, b, 0)
	if cs.UnchangedCount != 0 {
		t.Fatalf("different image refs must not be unchanged: %s", cs.Summary())
	}
}

func TestCompare_Totality(t *testing.T) {
	a := doc("a",
		heading(1, "Overview"),
		para("alpha beta"),
		para("gamma delta"),
		para("will be dropped"),
	)
	b := doc("b",
		heading(1, "Overview"),
		para("alpha beta!"),
		para("brand new paragraph"),
		para("gamma delta"),
	)
	cs := Compare(a, b, 0)

	oldSeen := make(map[int]int)
	newSeen := make(map[int]int)
	for _, c := range cs.Changes {
		if c.OldPos >= 0 {
			oldSeen[c.OldPos]++
		}
		if c.NewPos >= 0 {
			newSeen[c.NewPos]++
		}
	}
	for i := range a.Blocks {
		if oldSeen[i] != 1 {
			t.Errorf("old block %d appears %d times", i, oldSeen[i])
		}
	}
	for i := range b.Blocks {
		if newSeen[i] != 1 {
			t.Errorf("new block %d appears %d times", i, newSeen[i])
		}
	}
}

func TestCompare_SymmetryOfClassification(t *testing.T) {
	a := doc("a", para("shared"), para("only in a"))
	b := doc("b", para("shared"), para("completely different content"))
	ab := Compare(a, b, 0)
	ba := Compare(b, a, 0)
	if ab.AddedCount != ba.RemovedCount || ab.RemovedCount != ba.AddedCount {
		t.Errorf("added/removed must swap roles: ab=%s ba=%s", ab.Summary(), ba.Summary())
	}
	if ab.UnchangedCount != ba.UnchangedCount {
		t.Errorf("unchanged count must agree: %d vs %d", ab.UnchangedCount, ba.UnchangedCount)
	}
}

func TestCompare_BadThresholdFallsBack(t *testing.T) {
	a := doc("a", para("Hello world."))
	b := doc("b", para("Hello there, world."))
	cs := Compare(a, b, -3)
	if cs.ModifiedCount != 1 {
		t.Fatalf("expected default threshold behavior, got %s", cs.Summary())
	}
}

func TestCompareAll_HeadingFormatFinding(t *testing.T) {
	ref := doc("ref", &dom.Block{
		Kind: dom.KindHeading, Level: 1,
		Runs: []dom.TextRun{{Text: "Intro", Format: dom.Format{Bold: true}}},
	})
	other := doc("other", &dom.Block{
		Kind: dom.KindHeading, Level: 1,
		Runs: []dom.TextRun{{Text: "Intro"}},
	})
	rep := CompareAll([]*dom.Document{ref, other}, 0)
	if rep.ReferenceID != "ref" {
		t.Fatalf("expected first document as reference, got %q", rep.ReferenceID)
	}
	if len(rep.Diffs) != 1 {
		t.Fatalf("expected 1 pairwise diff, got %d", len(rep.Diffs))
	}
	if len(rep.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(rep.Findings), rep.Findings)
	}
	f := rep.Findings[0]
	if f.Kind != "heading_format_mismatch" || f.DocID != "other" {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestCompareAll_TableCellFinding(t *testing.T) {
	cell := func(text string) dom.Cell {
		return dom.Cell{Paragraphs: []*dom.Block{para(text)}}
	}
	refTbl := &dom.Block{Kind: dom.KindTable, Rows: [][]dom.Cell{{cell("Name"), cell("42")}}}
	othTbl := &dom.Block{Kind: dom.KindTable, Rows: [][]dom.Cell{{cell("Name"), cell("43")}}}
	rep := CompareAll([]*dom.Document{doc("ref", refTbl), doc("other", othTbl)}, 0)
	if len(rep.Findings) != 1 || rep.Findings[0].Kind != "table_cell_mismatch" {
		t.Fatalf("expected table_cell_mismatch, got %+v", rep.Findings)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"héllo", "hello", 1},
		{"same", "same", 0},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
