package dom

import (
	"errors"
	"testing"

	"github.com/docsense/docsense/internal/dal"
)

func para(text string) dal.RawBlock {
	return dal.RawBlock{Kind: dal.RawParagraph, Runs: []dal.RawRun{{Text: text}}}
}

func TestBuild_PositionIndices(t *testing.T) {
	raw := []dal.RawBlock{
		{Kind: dal.RawParagraph, StyleName: "Heading 1", Runs: []dal.RawRun{{Text: "Intro"}}},
		para("First."),
		{Kind: dal.RawImage, ImageRef: "image1.png"},
		para("Second."),
	}
	doc, err := Build("test.docx", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(doc.Blocks))
	}
	for i, b := range doc.Blocks {
		if b.Pos != i {
			t.Errorf("block %d: expected pos %d, got %d", i, i, b.Pos)
		}
	}
	if doc.Blocks[0].Kind != KindHeading || doc.Blocks[0].Level != 1 {
		t.Errorf("expected level-1 heading, got %v level %d", doc.Blocks[0].Kind, doc.Blocks[0].Level)
	}
	if doc.Blocks[2].Kind != KindImage {
		t.Errorf("expected image at pos 2, got %v", doc.Blocks[2].Kind)
	}
}

func TestBuild_RunConcatenationIsPlainText(t *testing.T) {
	raw := []dal.RawBlock{{
		Kind: dal.RawParagraph,
		Runs: []dal.RawRun{
			{Text: "Hello ", Bold: true},
			{Text: "world", Italic: true},
			{Text: "."},
		},
	}}
	doc, err := Build("runs.docx", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.Blocks[0].Text(); got != "Hello world." {
		t.Errorf("expected %q, got %q", "Hello world.", got)
	}
	if !doc.Blocks[0].Runs[0].Format.Bold {
		t.Error("expected first run bold")
	}
}

func TestBuild_CellOutsideTableIsMalformed(t *testing.T) {
	raw := []dal.RawBlock{
		para("ok"),
		{Kind: dal.RawCell},
	}
	_, err := Build("bad.docx", raw)
	if !errors.Is(err, ErrMalformedContent) {
		t.Fatalf("expected ErrMalformedContent, got %v", err)
	}
}

func TestBuild_NestedTableIsMalformed(t *testing.T) {
	raw := []dal.RawBlock{{
		Kind: dal.RawTable,
		Rows: [][]dal.RawBlock{{
			{Kind: dal.RawCell, Blocks: []dal.RawBlock{{Kind: dal.RawTable}}},
		}},
	}}
	_, err := Build("nested.docx", raw)
	if !errors.Is(err, ErrMalformedContent) {
		t.Fatalf("expected ErrMalformedContent, got %v", err)
	}
}

func TestBuild_TableCells(t *testing.T) {
	raw := []dal.RawBlock{{
		Kind: dal.RawTable,
		Rows: [][]dal.RawBlock{
			{
				{Kind: dal.RawCell, Blocks: []dal.RawBlock{para("a")}},
				{Kind: dal.RawCell, Blocks: []dal.RawBlock{para("b")}},
			},
			{
				{Kind: dal.RawCell, Blocks: []dal.RawBlock{para("c")}},
				{Kind: dal.RawCell, Blocks: []dal.RawBlock{para("d")}},
			},
		},
	}}
	doc, err := Build("table.docx", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl := doc.Blocks[0]
	if tbl.Kind != KindTable {
		t.Fatalf("expected table, got %v", tbl.Kind)
	}
	if got := tbl.Rows[1][0].Text(); got != "c" {
		t.Errorf("cell (1,0): expected %q, got %q", "c", got)
	}
	if got := tbl.Text(); got != "a\tb\nc\td" {
		t.Errorf("table text: got %q", got)
	}
}

func TestHeadingLevel(t *testing.T) {
	cases := []struct {
		style string
		want  int
	}{
		{"Heading 1", 1},
		{"Heading3", 3},
		{"heading 9", 9},
		{"Title", 1},
		{"Subtitle", 2},
		{"Normal", 0},
		{"", 0},
		{"Heading 10", 0},
	}
	for _, tc := range cases {
		if got := HeadingLevel(tc.style); got != tc.want {
			t.Errorf("HeadingLevel(%q): expected %d, got %d", tc.style, tc.want, got)
		}
	}
}
