package quality

import (
	"errors"
	"strings"
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

func para(text string) *dom.Block {
	return &dom.Block{Kind: dom.KindParagraph, Runs: []dom.TextRun{{Text: text}}}
}

func heading(level int, text string) *dom.Block {
	return &dom.Block{Kind: dom.KindHeading, Level: level, Runs: []dom.TextRun{{Text: text}}}
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"One. Two. Three.", []string{"One.", "Two.", "Three."}},
		{"Dr. Smith arrived. He left.", []string{"Dr. Smith arrived.", "He left."}},
		{"Pi is roughly 3.14 in value.", []string{"Pi is roughly 3.14 in value."}},
		{"Really?! Yes.", []string{"Really?!", "Yes."}},
		{"Wait... done.", []string{"Wait...", "done."}},
		{"J. Smith wrote it.", []string{"J. Smith wrote it."}},
		{"See fig. 3 for details. Then stop.", []string{"See fig. 3 for details.", "Then stop."}},
		{"No terminal here", []string{"No terminal here"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitSentences(c.in)
		if len(got) != len(c.want) {
			t.Errorf("splitSentences(%q) = %q, want %q", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitSentences(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestCountSyllables(t *testing.T) {
	cases := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"hello", 2},
		{"window", 2},
		{"quality", 3},
		{"make", 1},
		{"the", 1},
		{"score", 1},
		{"xyzzy", 2},
		{"123", 1},
		{"", 1},
	}
	for _, c := range cases {
		if got := countSyllables(c.word); got != c.want {
			t.Errorf("countSyllables(%q) = %d, want %d", c.word, got, c.want)
		}
	}
}

func TestAssess_SimpleText(t *testing.T) {
	rep, err := Assess(doc(para("The cat sat. The dog ran.")), Thresholds{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.SentenceCount != 2 || rep.WordCount != 6 {
		t.Fatalf("expected 2 sentences / 6 words, got %d / %d", rep.SentenceCount, rep.WordCount)
	}
	// Short monosyllabic sentences clamp to the top of the scale.
	if rep.ReadabilityScore != 100 {
		t.Errorf("expected score 100, got %v", rep.ReadabilityScore)
	}
	if len(rep.Flagged) != 0 {
		t.Errorf("expected no flags, got %+v", rep.Flagged)
	}
}

func TestAssess_EmptyDocumentScoresZero(t *testing.T) {
	rep, err := Assess(doc(heading(1, "Only a heading")), Thresholds{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.ReadabilityScore != 0 || rep.SentenceCount != 0 {
		t.Errorf("expected zero report, got %+v", rep)
	}
}

func TestAssess_FlagsLongSentence(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 26)) + "."
	rep, err := Assess(doc(para("Short one."), para(long)), Thresholds{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Flagged) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(rep.Flagged))
	}
	f := rep.Flagged[0]
	if f.BlockPos != 1 || f.Words != 26 {
		t.Errorf("unexpected flag: %+v", f)
	}
	if !strings.Contains(f.Reason, "26 words") {
		t.Errorf("reason should name the word count: %q", f.Reason)
	}
}

func TestAssess_FlagsBelowFloor(t *testing.T) {
	dense := "Incomprehensibility characterization internationalization."
	rep, err := Assess(doc(para(dense)), Thresholds{ReadabilityFloor: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Flagged) != 1 {
		t.Fatalf("expected 1 flag, got %+v", rep.Flagged)
	}
	if !strings.Contains(rep.Flagged[0].Reason, "below floor") {
		t.Errorf("unexpected reason: %q", rep.Flagged[0].Reason)
	}
}

func TestAssess_InvalidThresholds(t *testing.T) {
	var tce *ThresholdConfigError
	_, err := Assess(doc(), Thresholds{MaxSentenceWords: -1})
	if !errors.As(err, &tce) {
		t.Fatalf("expected ThresholdConfigError, got %v", err)
	}
	_, err = Assess(doc(), Thresholds{ReadabilityFloor: 120})
	if !errors.As(err, &tce) {
		t.Fatalf("expected ThresholdConfigError, got %v", err)
	}
}

func TestAssess_Deterministic(t *testing.T) {
	d := doc(para("First thought here. Second thought there."), para("Third one."))
	a, err := Assess(d, Thresholds{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Assess(d, Thresholds{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ReadabilityScore != b.ReadabilityScore || a.SyllableCount != b.SyllableCount {
		t.Errorf("scoring must be deterministic: %+v vs %+v", a, b)
	}
}

func TestConsistency_HeadingLevelJump(t *testing.T) {
	d := doc(heading(1, "Top"), heading(3, "Too deep"), heading(4, "Fine"))
	findings := consistency(d)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %+v", findings)
	}
	f := findings[0]
	if f.Kind != "heading_level_jump" || len(f.Positions) != 1 || f.Positions[0] != 1 {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestConsistency_FontMismatchWithinStyle(t *testing.T) {
	mk := func(font string) *dom.Block {
		return &dom.Block{
			Kind: dom.KindParagraph, Style: "Normal",
			Runs: []dom.TextRun{{Text: "text", Format: dom.Format{Font: font}}},
		}
	}
	d := doc(mk("Arial"), mk("Times New Roman"), mk("Arial"))
	findings := consistency(d)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %+v", findings)
	}
	f := findings[0]
	if f.Kind != "font_mismatch" {
		t.Fatalf("unexpected kind %q", f.Kind)
	}
	if len(f.Positions) != 1 || f.Positions[0] != 1 {
		t.Errorf("expected deviating position [1], got %v", f.Positions)
	}
}

func TestConsistency_UniformDocumentIsClean(t *testing.T) {
	d := doc(heading(1, "Title"), heading(2, "Sub"), para("Body text here."))
	if findings := consistency(d); len(findings) != 0 {
		t.Errorf("expected no findings, got %+v", findings)
	}
}
