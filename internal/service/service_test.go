package service

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docsense/docsense/internal/config"
	"github.com/docsense/docsense/internal/dal"
	"github.com/docsense/docsense/internal/query"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		BasePath:            dir,
		TopKeywords:         20,
		SimilarityThreshold: 0.4,
		MaxSentenceWords:    25,
		ReadabilityFloor:    30,
		StatsWindow:         time.Hour,
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(dal.NewStore(dir, false), log, cfg), dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCreateAndAddText(t *testing.T) {
	svc, dir := newTestService(t)
	if err := svc.Create("notes.txt"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddText("notes.txt", "First paragraph here.", "", -1); err != nil {
		t.Fatalf("add text: %v", err)
	}
	if err := svc.AddText("notes.txt", "Second paragraph here.", "", -1); err != nil {
		t.Fatalf("add text: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "First paragraph here.\n\nSecond paragraph here.") {
		t.Errorf("unexpected content: %q", string(data))
	}

	// Positional insert is a write operation plain text cannot do.
	err = svc.AddText("notes.txt", "x", "", 0)
	if !errors.Is(err, dal.ErrReadOnlyFormat) {
		t.Errorf("expected ErrReadOnlyFormat, got %v", err)
	}
}

func TestQuery_TextFile(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "The cat sat here.\n\nA dog ran past.\n\nOne cat met another cat.\n")

	res, err := svc.Query("doc.txt", "contains:cat")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// Two matching paragraphs, three occurrences: total counts occurrences.
	if res.Total != 3 {
		t.Fatalf("expected 3 occurrences, got %d", res.Total)
	}
	if len(res.Details) != 2 || res.Details[0].Pos != 0 || res.Details[1].Pos != 2 {
		t.Errorf("unexpected positions: %+v", res.Details)
	}

	count, err := svc.Query("doc.txt", "paragraphs")
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count.Total != 3 || count.CountOf != query.CountParagraphs {
		t.Errorf("expected 3 paragraphs, got %+v", count)
	}
}

func TestQuery_InvalidExpr(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "content\n")
	_, err := svc.Query("doc.txt", "nonsense")
	if !errors.Is(err, query.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestReplace_ReadOnlyFormatFails(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "the cat sat\n")
	_, err := svc.Replace("doc.txt", "contains:cat=dog", "")
	if !errors.Is(err, dal.ErrReadOnlyFormat) {
		t.Fatalf("expected ErrReadOnlyFormat for .txt, got %v", err)
	}
}

func TestReplace_ZeroMatchesWritesNothing(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "nothing relevant\n")
	res, err := svc.Replace("doc.txt", "contains:absent=x", "")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !res.ZeroMatches || res.OutputPath != "" {
		t.Errorf("expected zero-match result, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc_modified.txt")); !os.IsNotExist(err) {
		t.Error("zero-match replace must not write an output file")
	}
}

func TestParseReplaceExpr(t *testing.T) {
	cases := []struct {
		expr    string
		mode    query.MatchMode
		old     string
		repl    string
		wantErr bool
	}{
		{expr: "contains:cat=dog", mode: query.Literal, old: "cat", repl: "dog"},
		{expr: "keyword:old=new", mode: query.WholeWord, old: "old", repl: "new"},
		{expr: `regex:v(\d+)=rel-$1`, mode: query.Regex, old: `v(\d+)`, repl: "rel-$1"},
		{expr: "contains:a=b=c", mode: query.Literal, old: "a", repl: "b=c"},
		// No recognized type prefix: plain substring replacement.
		{expr: "cat=dog", mode: query.Literal, old: "cat", repl: "dog"},
		{expr: "http://a=http://b", mode: query.Literal, old: "http://a", repl: "http://b"},
		{expr: "contains:nodelim", wantErr: true},
		{expr: "nodelim", wantErr: true},
	}
	for _, c := range cases {
		mode, old, repl, err := parseReplaceExpr(c.expr)
		if c.wantErr {
			if !errors.Is(err, query.ErrInvalidPattern) {
				t.Errorf("parseReplaceExpr(%q): expected ErrInvalidPattern, got %v", c.expr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseReplaceExpr(%q): %v", c.expr, err)
			continue
		}
		if mode != c.mode || old != c.old || repl != c.repl {
			t.Errorf("parseReplaceExpr(%q) = (%v,%q,%q)", c.expr, mode, old, repl)
		}
	}
}

func TestCompare_TextFiles(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "a.txt", "Shared paragraph.\n\nOnly in the first.\n")
	writeFile(t, dir, "b.txt", "Shared paragraph.\n\nCompletely unrelated text.\n")

	rep, err := svc.Compare([]string{"a.txt", "b.txt"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(rep.Diffs) != 1 {
		t.Fatalf("expected 1 diff, got %d", len(rep.Diffs))
	}
	cs := rep.Diffs[0]
	if cs.UnchangedCount != 1 || cs.AddedCount != 1 || cs.RemovedCount != 1 {
		t.Errorf("unexpected change-set: %s", cs.Summary())
	}

	if _, err := svc.Compare([]string{"a.txt"}); err == nil {
		t.Error("compare with one document must fail")
	}
}

func TestAssess_TextFile(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "This is fine. This also reads well.\n")
	rep, err := svc.Assess("doc.txt", 0, 0)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if rep.SentenceCount != 2 {
		t.Errorf("expected 2 sentences, got %d", rep.SentenceCount)
	}
}

func TestStat(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "one two three\n\nfour five\n")
	st, err := svc.Stat("doc.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Format != "txt" || st.Paragraphs != 2 || st.WordCount != 5 {
		t.Errorf("unexpected stat: %+v", st)
	}
	if st.SizeBytes == 0 {
		t.Error("expected a non-zero file size")
	}
}

func TestFormatText(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Create("doc.docx"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddText("doc.docx", "The cat sat on the cat mat.", "", -1); err != nil {
		t.Fatalf("add text: %v", err)
	}
	res, err := svc.FormatText("doc.docx", "cat", false, false, FormatOptions{Bold: true}, "")
	if err != nil {
		t.Fatalf("format text: %v", err)
	}
	if res.ReplaceCount != 2 {
		t.Errorf("expected 2 formatted occurrences, got %d", res.ReplaceCount)
	}

	out, err := svc.store.Open(res.OutputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	var text string
	bold := 0
	for _, rb := range svc.store.Read(out) {
		for _, r := range rb.Runs {
			text += r.Text
			if r.Bold {
				if r.Text != "cat" {
					t.Errorf("bold run spans %q, want only the match", r.Text)
				}
				bold++
			}
		}
	}
	if text != "The cat sat on the cat mat." {
		t.Errorf("formatting changed the text: %q", text)
	}
	if bold != 2 {
		t.Errorf("expected 2 bold runs, got %d", bold)
	}
}

func TestSaveAsConvertsToDocx(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "notes.txt", "First paragraph.\n\nSecond paragraph.\n")
	if err := svc.SaveAs("notes.txt", "notes.docx"); err != nil {
		t.Fatalf("save as docx: %v", err)
	}
	st, err := svc.Stat("notes.docx")
	if err != nil {
		t.Fatalf("stat converted file: %v", err)
	}
	if st.Format != "docx" || st.Paragraphs != 2 {
		t.Errorf("unexpected converted document: %+v", st)
	}
}

func TestExtractCSV(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "doc.txt", "Document analysis pipeline content.\n")
	var buf bytes.Buffer
	if err := svc.ExtractCSV("doc.txt", 5, []string{"paragraphs"}, &buf); err != nil {
		t.Fatalf("extract csv: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "type,position,content,style_summary") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "paragraph,0,") {
		t.Errorf("missing paragraph row: %q", out)
	}
}

func TestOpStats(t *testing.T) {
	s := NewOpStats(time.Hour)
	for i := 0; i < 10; i++ {
		s.Record("query", time.Duration(i+1)*time.Millisecond)
	}
	snap := s.Snapshot()
	q, ok := snap["query"]
	if !ok {
		t.Fatal("missing query stats")
	}
	if q.Count != 10 || q.MinMs != 1 || q.MaxMs != 10 {
		t.Errorf("unexpected snapshot: %+v", q)
	}
	if q.P50Ms < float64(q.MinMs) || q.P99Ms > float64(q.MaxMs) {
		t.Errorf("percentiles out of range: %+v", q)
	}
}
