// Package service orchestrates the document engines behind a single
// operation surface: build a fresh model per request, run the requested
// algorithm, translate write operations into mutation commands, and
// save through the access layer. Nothing persists across calls.
package service

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docsense/docsense/internal/config"
	"github.com/docsense/docsense/internal/dal"
	"github.com/docsense/docsense/internal/diff"
	"github.com/docsense/docsense/internal/dom"
	"github.com/docsense/docsense/internal/extract"
	"github.com/docsense/docsense/internal/quality"
	"github.com/docsense/docsense/internal/query"
	"github.com/docsense/docsense/internal/replace"
)

// Service wires the engines to the document access layer.
type Service struct {
	store *dal.Store
	log   *slog.Logger
	cfg   config.Config
	Stats *OpStats
}

func New(store *dal.Store, log *slog.Logger, cfg config.Config) *Service {
	return &Service{
		store: store,
		log:   log,
		cfg:   cfg,
		Stats: NewOpStats(cfg.StatsWindow),
	}
}

// track records one operation's latency under its name.
func (s *Service) track(op string, start time.Time) {
	s.Stats.Record(op, time.Since(start))
}

// load opens a document and builds its model.
func (s *Service) load(path string) (*dal.Handle, *dom.Document, error) {
	h, err := s.store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := dom.Build(h.Path, s.store.Read(h))
	if err != nil {
		return nil, nil, err
	}
	return h, doc, nil
}

// --- extraction ---

// ExtractInfo builds the extraction view of a document: paragraphs,
// tables, images, headings, outline, keywords. An empty section list
// means everything; topN 0 uses the configured keyword count.
func (s *Service) ExtractInfo(path string, topN int, sections []string) (*extract.Info, error) {
	defer s.track("extract_info", time.Now())
	if topN <= 0 {
		topN = s.cfg.TopKeywords
	}
	_, doc, err := s.load(path)
	if err != nil {
		return nil, err
	}
	info := extract.BuildInfo(doc, topN, sections)
	s.log.Info("extracted", "path", path, "words", info.WordCount)
	return info, nil
}

// ExtractCSV writes the extraction view as flat rows.
func (s *Service) ExtractCSV(path string, topN int, sections []string, w io.Writer) error {
	info, err := s.ExtractInfo(path, topN, sections)
	if err != nil {
		return err
	}
	return info.WriteCSV(w)
}

// --- query ---

// QueryResult is the answer to one query expression.
type QueryResult struct {
	Query   string        `json:"query"`
	Total   int           `json:"total"`
	CountOf string        `json:"count_of,omitempty"`
	Details []query.Match `json:"details,omitempty"`
}

// Query evaluates a compact query expression (regex:, keyword:,
// contains:, or a raw count of paragraphs/tables/images).
func (s *Service) Query(path, expr string) (*QueryResult, error) {
	defer s.track("query", time.Now())
	pred, countKind, err := query.ParseExpr(expr)
	if err != nil {
		return nil, err
	}
	_, doc, err := s.load(path)
	if err != nil {
		return nil, err
	}

	if countKind != "" {
		paragraphs, _, tables, images := doc.Counts()
		n := 0
		switch countKind {
		case query.CountParagraphs:
			n = paragraphs
		case query.CountTables:
			n = tables
		case query.CountImages:
			n = images
		}
		return &QueryResult{Query: expr, Total: n, CountOf: countKind}, nil
	}

	c, err := query.Compile(pred)
	if err != nil {
		return nil, err
	}
	matches := query.Run(doc, c)
	query.CollectMatched(c, matches)

	// Total counts occurrences, not matched blocks: two hits in one
	// paragraph are two.
	total := 0
	for _, m := range matches {
		if n := len(m.Matched); n > 0 {
			total += n
		} else {
			total++
		}
	}
	s.log.Info("query", "path", path, "expr", expr, "total", total)
	return &QueryResult{Query: expr, Total: total, Details: matches}, nil
}

// --- replace ---

// ReplaceResult reports one replacement run.
type ReplaceResult struct {
	ReplaceCount int    `json:"replace_count"`
	ZeroMatches  bool   `json:"zero_matches"`
	OutputPath   string `json:"output_path,omitempty"`
}

// Replace runs a compact replace expression of the form type:old=new
// (type is regex, keyword, or contains). The result is written to
// outPath, or to <base>_modified.<ext> when outPath is empty. The
// source file is never modified.
func (s *Service) Replace(path, expr, outPath string) (*ReplaceResult, error) {
	defer s.track("replace", time.Now())
	mode, find, repl, err := parseReplaceExpr(expr)
	if err != nil {
		return nil, err
	}
	return s.replace(path, replace.Request{
		Find:        find,
		Mode:        mode,
		Replacement: repl,
		Scope:       replace.All,
	}, outPath)
}

// FindAndReplace is the plain find/replace with match-case and
// whole-word switches.
func (s *Service) FindAndReplace(path, find, replacement string, matchCase, wholeWord bool, outPath string) (*ReplaceResult, error) {
	defer s.track("find_and_replace", time.Now())
	mode := query.Literal
	if wholeWord {
		mode = query.WholeWord
	}
	return s.replace(path, replace.Request{
		Find:          find,
		Mode:          mode,
		CaseSensitive: matchCase,
		Replacement:   replacement,
		Scope:         replace.All,
	}, outPath)
}

// FormatOptions names the run attributes a formatting rewrite sets. The
// matched span's format becomes exactly this descriptor.
type FormatOptions struct {
	Bold      bool
	Italic    bool
	Underline bool
	Font      string
	Size      float64
	Color     string
}

// FormatText applies formatting to every occurrence of find without
// changing the text itself.
func (s *Service) FormatText(path, find string, matchCase, wholeWord bool, opts FormatOptions, outPath string) (*ReplaceResult, error) {
	defer s.track("format_text", time.Now())
	mode := query.Literal
	if wholeWord {
		mode = query.WholeWord
	}
	return s.replace(path, replace.Request{
		Find:          find,
		Mode:          mode,
		CaseSensitive: matchCase,
		KeepText:      true,
		Format: &dom.Format{
			Bold:      opts.Bold,
			Italic:    opts.Italic,
			Underline: opts.Underline,
			Font:      opts.Font,
			Size:      opts.Size,
			Color:     opts.Color,
		},
		Scope: replace.All,
	}, outPath)
}

func (s *Service) replace(path string, req replace.Request, outPath string) (*ReplaceResult, error) {
	h, doc, err := s.load(path)
	if err != nil {
		return nil, err
	}
	res, err := replace.Apply(doc, req)
	if err != nil {
		return nil, err
	}
	if res.ZeroMatches {
		return &ReplaceResult{ZeroMatches: true}, nil
	}
	if err := s.store.ApplyMutations(h, res.Mutations); err != nil {
		return nil, err
	}
	if outPath == "" {
		outPath = dal.ModifiedPath(h.Path)
	}
	if err := s.store.SaveAs(h, outPath); err != nil {
		return nil, err
	}
	s.log.Info("replaced", "path", path, "count", res.ReplaceCount, "out", outPath)
	return &ReplaceResult{ReplaceCount: res.ReplaceCount, OutputPath: outPath}, nil
}

// parseReplaceExpr splits [type:]old=new into its parts. Expressions
// without a recognized type prefix are plain substring replacements,
// and the first '=' after the prefix divides old from new, so
// replacement text may itself contain '='.
func parseReplaceExpr(expr string) (query.MatchMode, string, string, error) {
	mode := query.Literal
	rest := expr
	if kind, after, ok := strings.Cut(expr, ":"); ok {
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "regex":
			mode, rest = query.Regex, after
		case "keyword":
			mode, rest = query.WholeWord, after
		case "contains":
			mode, rest = query.Literal, after
		}
	}
	old, repl, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, "", "", fmt.Errorf("%w: replace expression needs [type:]old=new", query.ErrInvalidPattern)
	}
	return mode, old, repl, nil
}

// --- compare ---

// Compare diffs the given documents against the first one and reports
// change-sets plus cross-document consistency findings.
func (s *Service) Compare(paths []string) (*diff.MultiReport, error) {
	defer s.track("compare", time.Now())
	if len(paths) < 2 {
		return nil, fmt.Errorf("compare needs at least two documents")
	}
	docs := make([]*dom.Document, 0, len(paths))
	for _, p := range paths {
		_, doc, err := s.load(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		docs = append(docs, doc)
	}
	rep := diff.CompareAll(docs, s.cfg.SimilarityThreshold)
	s.log.Info("compared", "reference", rep.ReferenceID, "documents", len(paths))
	return rep, nil
}

// --- quality ---

// Assess scores a document. Zero thresholds fall back to the configured
// defaults.
func (s *Service) Assess(path string, maxSentenceWords int, readabilityFloor float64) (*quality.Report, error) {
	defer s.track("assess", time.Now())
	if maxSentenceWords == 0 {
		maxSentenceWords = s.cfg.MaxSentenceWords
	}
	if readabilityFloor == 0 {
		readabilityFloor = s.cfg.ReadabilityFloor
	}
	_, doc, err := s.load(path)
	if err != nil {
		return nil, err
	}
	return quality.Assess(doc, quality.Thresholds{
		MaxSentenceWords: maxSentenceWords,
		ReadabilityFloor: readabilityFloor,
	})
}

// --- direct document operations ---

// Create writes a new empty document (.docx or .txt).
func (s *Service) Create(path string) error {
	defer s.track("create", time.Now())
	return s.store.Create(path)
}

// AddText appends (pos < 0) or inserts a paragraph. Style may name a
// heading style like "Heading 1". Plain text files only support
// appending.
func (s *Service) AddText(path, text, style string, pos int) error {
	defer s.track("add_text", time.Now())
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		if pos >= 0 {
			return fmt.Errorf("%w: text files only support appending", dal.ErrReadOnlyFormat)
		}
		return s.store.AppendText(path, text)
	}
	m := dal.NewMutation(dal.MutInsertParagraph, pos)
	m.Runs = []dal.RawRun{{Text: text}}
	m.Style = style
	return s.mutateAndSave(path, m)
}

// InsertTable inserts a table of plain text cells at pos (-1 appends).
func (s *Service) InsertTable(path string, pos int, rows [][]string) error {
	defer s.track("insert_table", time.Now())
	if len(rows) == 0 {
		return fmt.Errorf("table needs at least one row")
	}
	m := dal.NewMutation(dal.MutInsertTable, pos)
	m.Table = rows
	return s.mutateAndSave(path, m)
}

// InsertImage embeds the image file at imagePath into the document.
func (s *Service) InsertImage(path string, pos int, imagePath string) error {
	defer s.track("insert_image", time.Now())
	m := dal.NewMutation(dal.MutInsertImage, pos)
	m.ImageSrc = s.store.Resolve(imagePath)
	return s.mutateAndSave(path, m)
}

// EditTableCell replaces the text of one cell, addressed by the table's
// block position and row/column.
func (s *Service) EditTableCell(path string, tablePos, row, col int, text string) error {
	defer s.track("edit_table_cell", time.Now())
	m := dal.Mutation{
		Kind:     dal.MutSetRuns,
		BlockPos: tablePos,
		Row:      row,
		Col:      col,
		Para:     0,
		Runs:     []dal.RawRun{{Text: text}},
	}
	return s.mutateAndSave(path, m)
}

// EditParagraph replaces the full text of the paragraph at pos.
func (s *Service) EditParagraph(path string, pos int, text string) error {
	defer s.track("edit_paragraph", time.Now())
	m := dal.NewMutation(dal.MutSetRuns, pos)
	m.Runs = []dal.RawRun{{Text: text}}
	return s.mutateAndSave(path, m)
}

// DeleteParagraph removes the block at pos.
func (s *Service) DeleteParagraph(path string, pos int) error {
	defer s.track("delete_paragraph", time.Now())
	return s.mutateAndSave(path, dal.NewMutation(dal.MutDeleteBlock, pos))
}

// SetSpacing updates line spacing and/or alignment of the paragraph at
// pos. Zero values leave the attribute untouched.
func (s *Service) SetSpacing(path string, pos int, spacing float64, align string) error {
	defer s.track("set_spacing", time.Now())
	m := dal.NewMutation(dal.MutSetSpacing, pos)
	m.Spacing = spacing
	m.Align = align
	return s.mutateAndSave(path, m)
}

func (s *Service) mutateAndSave(path string, muts ...dal.Mutation) error {
	h, err := s.store.Open(path)
	if err != nil {
		return err
	}
	if err := s.store.ApplyMutations(h, muts); err != nil {
		return err
	}
	return s.store.Close(h, true)
}

// Merge appends the content of every document after the first to a copy
// of the first, written to outPath. Tables carry cell text only; images
// carry over when their source file is reachable.
func (s *Service) Merge(paths []string, outPath string) error {
	defer s.track("merge", time.Now())
	if len(paths) < 2 {
		return fmt.Errorf("merge needs at least two documents")
	}
	if outPath == "" {
		return fmt.Errorf("merge needs an output path")
	}

	base, err := s.store.Open(paths[0])
	if err != nil {
		return err
	}
	var muts []dal.Mutation
	for _, p := range paths[1:] {
		h, err := s.store.Open(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		muts = append(muts, appendMutations(s.store.Read(h))...)
	}
	if err := s.store.ApplyMutations(base, muts); err != nil {
		return err
	}
	if err := s.store.SaveAs(base, outPath); err != nil {
		return err
	}
	s.log.Info("merged", "documents", len(paths), "out", outPath)
	return nil
}

// appendMutations turns a block sequence into append mutations, so one
// document's content can be replayed onto another.
func appendMutations(blocks []dal.RawBlock) []dal.Mutation {
	var muts []dal.Mutation
	for _, rb := range blocks {
		switch rb.Kind {
		case dal.RawParagraph:
			m := dal.NewMutation(dal.MutInsertParagraph, -1)
			m.Runs = append([]dal.RawRun(nil), rb.Runs...)
			m.Style = rb.StyleName
			m.Align = rb.Align
			muts = append(muts, m)
		case dal.RawTable:
			m := dal.NewMutation(dal.MutInsertTable, -1)
			for _, row := range rb.Rows {
				var cells []string
				for _, cell := range row {
					var texts []string
					for _, pb := range cell.Blocks {
						texts = append(texts, pb.Text())
					}
					cells = append(cells, strings.Join(texts, "\n"))
				}
				m.Table = append(m.Table, cells)
			}
			muts = append(muts, m)
		}
	}
	return muts
}

// SaveAs writes the document to outPath in the format implied by the
// extension: .docx saves the package (read-only formats are converted
// to a new one), .pdf exports a rendered copy, .txt writes the plain
// text.
func (s *Service) SaveAs(path, outPath string) error {
	defer s.track("save_as", time.Now())
	h, err := s.store.Open(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".docx":
		if h.Format == "docx" {
			return s.store.SaveAs(h, outPath)
		}
		return s.convertToDocx(h, outPath)
	case ".pdf":
		return dal.ExportPDF(s.store.Read(h), s.store.Resolve(outPath))
	case ".txt":
		_, doc, err := s.load(path)
		if err != nil {
			return err
		}
		return os.WriteFile(s.store.Resolve(outPath), []byte(doc.PlainText()+"\n"), 0o644)
	}
	return fmt.Errorf("%w: save supports .docx, .pdf, .txt", dal.ErrUnsupportedFormat)
}

// convertToDocx replays a read-only document's blocks into a fresh
// docx package at outPath.
func (s *Service) convertToDocx(h *dal.Handle, outPath string) error {
	if err := s.store.Create(outPath); err != nil {
		return err
	}
	out, err := s.store.Open(outPath)
	if err != nil {
		return err
	}
	if err := s.store.ApplyMutations(out, appendMutations(s.store.Read(h))); err != nil {
		return err
	}
	return s.store.Close(out, true)
}

// StatResult summarizes a document file.
type StatResult struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	SizeBytes  int64  `json:"size_bytes"`
	Paragraphs int    `json:"paragraphs"`
	Headings   int    `json:"headings"`
	Tables     int    `json:"tables"`
	Images     int    `json:"images"`
	WordCount  int    `json:"word_count"`
}

// Stat reports structural counts and file metadata.
func (s *Service) Stat(path string) (*StatResult, error) {
	defer s.track("stat", time.Now())
	h, doc, err := s.load(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(h.Path)
	if err != nil {
		return nil, err
	}
	paragraphs, headings, tables, images := doc.Counts()
	return &StatResult{
		Path:       h.Path,
		Format:     h.Format,
		SizeBytes:  info.Size(),
		Paragraphs: paragraphs,
		Headings:   headings,
		Tables:     tables,
		Images:     images,
		WordCount:  extract.CountWords(doc.PlainText()),
	}, nil
}
