package extract

import (
	"strconv"
	"testing"

	"github.com/docsense/docsense/internal/dom"
)

func doc(blocks ...*dom.Block) *dom.Document {
	d := &dom.Document{ID: "test"}
	for i, b := range blocks {
		b.Pos = i
		d.Blocks = append(d.Blocks, b)
	}
	return d
}

func heading(level int, text string) *dom.Block {
	return &dom.Block{Kind: dom.KindHeading, Level: level, Runs: []dom.TextRun{{Text: text}}}
}

func paragraph(text string) *dom.Block {
	return &dom.Block{Kind: dom.KindParagraph, Runs: []dom.TextRun{{Text: text}}}
}

func TestOutline_Nesting(t *testing.T) {
	d := doc(
		heading(1, "One"),
		paragraph("body"),
		heading(2, "One.A"),
		heading(2, "One.B"),
		heading(1, "Two"),
	)
	roots := Outline(d)
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].Text != "One" || roots[1].Text != "Two" {
		t.Errorf("unexpected roots: %q, %q", roots[0].Text, roots[1].Text)
	}
	if len(roots[0].Children) != 2 {
		t.Fatalf("expected 2 children under One, got %d", len(roots[0].Children))
	}
	if roots[0].Children[1].Text != "One.B" {
		t.Errorf("expected One.B, got %q", roots[0].Children[1].Text)
	}
}

func TestOutline_OrphanHighLevelBecomesRoot(t *testing.T) {
	d := doc(heading(3, "Deep"), heading(1, "Top"))
	roots := Outline(d)
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].Level != 3 {
		t.Errorf("expected orphan level-3 root, got level %d", roots[0].Level)
	}
}

func TestKeywords_RankingAndStopWords(t *testing.T) {
	d := doc(
		paragraph("The engine parses the document. The engine scores the document."),
		paragraph("Parsing is fast."),
	)
	kws := Keywords(d, 5)
	if len(kws) == 0 {
		t.Fatal("expected keywords")
	}
	if kws[0].Term != "engine" && kws[0].Term != "document" {
		t.Errorf("expected a top term of engine/document, got %q", kws[0].Term)
	}
	for _, k := range kws {
		if k.Term == "the" || k.Term == "is" {
			t.Errorf("stop word %q leaked into keywords", k.Term)
		}
		if k.Score <= 0 || k.Score > 1 {
			t.Errorf("score for %q out of (0,1]: %f", k.Term, k.Score)
		}
	}
}

func TestKeywords_TieBreakByFirstOccurrence(t *testing.T) {
	d := doc(paragraph("zebra apple zebra apple"))
	kws := Keywords(d, 2)
	if len(kws) != 2 {
		t.Fatalf("expected 2 keywords, got %d", len(kws))
	}
	if kws[0].Term != "zebra" {
		t.Errorf("tie should break by first occurrence, got %q first", kws[0].Term)
	}
}

func TestKeywords_Deterministic(t *testing.T) {
	d := doc(
		paragraph("alpha beta gamma delta alpha beta gamma"),
		paragraph("epsilon zeta alpha"),
	)
	a := Keywords(d, 10)
	b := Keywords(d, 10)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestKeywords_EmptyDocument(t *testing.T) {
	if kws := Keywords(doc(), 10); kws != nil {
		t.Errorf("expected nil for empty document, got %v", kws)
	}
}

func TestBuildInfo_RoundTripPositions(t *testing.T) {
	d := doc(
		heading(1, "Intro"),
		paragraph("First."),
		&dom.Block{Kind: dom.KindTable, Rows: [][]dom.Cell{{
			{Paragraphs: []*dom.Block{paragraph("a")}},
		}}},
		&dom.Block{Kind: dom.KindImage, ImageRef: "image1.png"},
		paragraph("Last."),
	)
	info := BuildInfo(d, 10, nil)
	rows := info.Rows()
	if len(rows) != 6 { // header + 5 elements
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	for i, row := range rows[1:] {
		pos, err := strconv.Atoi(row[1])
		if err != nil {
			t.Fatalf("row %d: bad position %q", i, row[1])
		}
		if pos != i {
			t.Errorf("row %d: expected position %d, got %d", i, i, pos)
		}
	}
}

func TestBuildInfo_SectionSelection(t *testing.T) {
	d := doc(heading(1, "Intro"), paragraph("Body text here."))
	info := BuildInfo(d, 10, []string{SectionHeadings})
	if len(info.Paragraphs) != 0 {
		t.Errorf("expected no paragraphs, got %d", len(info.Paragraphs))
	}
	if len(info.Headings) != 1 {
		t.Errorf("expected 1 heading, got %d", len(info.Headings))
	}
	if len(info.Outline) != 1 {
		t.Errorf("expected outline, got %d roots", len(info.Outline))
	}
}

func TestCountWords_MixedScripts(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"hello world", 2},
		{"", 0},
		{"one", 1},
		{"中文文档", 4},
		{"mixed 中文 words", 4},
	}
	for _, tc := range cases {
		if got := CountWords(tc.text); got != tc.want {
			t.Errorf("CountWords(%q): expected %d, got %d", tc.text, tc.want, got)
		}
	}
}
