// Package mcptools registers every document operation as a tool on an
// MCP server: one typed request struct, one register function, and one
// endpoint per tool.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docsense/docsense/internal/service"
)

// Tools exposes a Service over MCP.
type Tools struct {
	svc *service.Service
}

func New(svc *service.Service) *Tools {
	return &Tools{svc: svc}
}

// Register adds every tool to the server.
func (t *Tools) Register(srv *mcp.Server) {
	t.registerCreate(srv)
	t.registerStat(srv)
	t.registerAddText(srv)
	t.registerEditParagraph(srv)
	t.registerDeleteParagraph(srv)
	t.registerSetSpacing(srv)
	t.registerInsertTable(srv)
	t.registerEditTableCell(srv)
	t.registerInsertImage(srv)
	t.registerFindReplace(srv)
	t.registerFormatText(srv)
	t.registerComplexQuery(srv)
	t.registerComplexReplace(srv)
	t.registerExtractInfo(srv)
	t.registerCompare(srv)
	t.registerAssess(srv)
	t.registerMerge(srv)
	t.registerSaveAs(srv)
}

type endpoint func(ctx context.Context, req any) (any, error)

// register wires one tool handler: decode arguments, run the endpoint,
// marshal the response as JSON text content. Endpoint errors become
// tool errors, not protocol errors.
func register(srv *mcp.Server, tool *mcp.Tool, ep endpoint, decode func(*mcp.CallToolRequest) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := ep(ctx, decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func decodeInto[T any](req *mcp.CallToolRequest) (any, error) {
	var r T
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func posOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

var pathProp = map[string]any{"type": "string", "description": "Document file path; relative paths resolve against the base directory"}

type okResult struct {
	OK   bool   `json:"ok"`
	Path string `json:"path,omitempty"`
}

// --- create_document ---

type createReq struct {
	Path string `json:"path"`
}

func (t *Tools) registerCreate(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "create_document",
		Description: "Create a new empty document (.docx or .txt).",
		InputSchema: inputSchema(map[string]any{"path": pathProp}, []string{"path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*createReq)
		if err := t.svc.Create(r.Path); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[createReq])
}

// --- document_stat ---

type statReq struct {
	Path string `json:"path"`
}

func (t *Tools) registerStat(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "document_stat",
		Description: "Report structural counts (paragraphs, headings, tables, images), word count, file size and format.",
		InputSchema: inputSchema(map[string]any{"path": pathProp}, []string{"path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*statReq)
		return t.svc.Stat(r.Path)
	}
	register(srv, tool, ep, decodeInto[statReq])
}

// --- add_text ---

type addTextReq struct {
	Path     string `json:"path"`
	Text     string `json:"text"`
	Style    string `json:"style"`
	Position *int   `json:"position"`
}

func (t *Tools) registerAddText(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "add_text",
		Description: "Append or insert a paragraph. Style may name a heading style such as 'Heading 1'.",
		InputSchema: inputSchema(map[string]any{
			"path":     pathProp,
			"text":     map[string]any{"type": "string"},
			"style":    map[string]any{"type": "string", "description": "Paragraph style name; empty for body text"},
			"position": map[string]any{"type": "integer", "description": "0-based insert position; omit to append"},
		}, []string{"path", "text"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*addTextReq)
		if err := t.svc.AddText(r.Path, r.Text, r.Style, posOr(r.Position, -1)); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[addTextReq])
}

// --- edit_paragraph ---

type editParaReq struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

func (t *Tools) registerEditParagraph(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "edit_paragraph",
		Description: "Replace the full text of the paragraph at a position.",
		InputSchema: inputSchema(map[string]any{
			"path":     pathProp,
			"position": map[string]any{"type": "integer"},
			"text":     map[string]any{"type": "string"},
		}, []string{"path", "position", "text"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*editParaReq)
		if err := t.svc.EditParagraph(r.Path, r.Position, r.Text); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[editParaReq])
}

// --- delete_paragraph ---

type deleteParaReq struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
}

func (t *Tools) registerDeleteParagraph(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "delete_paragraph",
		Description: "Delete the block at a position.",
		InputSchema: inputSchema(map[string]any{
			"path":     pathProp,
			"position": map[string]any{"type": "integer"},
		}, []string{"path", "position"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*deleteParaReq)
		if err := t.svc.DeleteParagraph(r.Path, r.Position); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[deleteParaReq])
}

// --- set_paragraph_spacing ---

type spacingReq struct {
	Path     string  `json:"path"`
	Position int     `json:"position"`
	Spacing  float64 `json:"spacing"`
	Align    string  `json:"align"`
}

func (t *Tools) registerSetSpacing(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "set_paragraph_spacing",
		Description: "Set line spacing and/or alignment (left, center, right, justify) of a paragraph.",
		InputSchema: inputSchema(map[string]any{
			"path":     pathProp,
			"position": map[string]any{"type": "integer"},
			"spacing":  map[string]any{"type": "number", "description": "Line spacing multiple, e.g. 1.5"},
			"align":    map[string]any{"type": "string"},
		}, []string{"path", "position"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*spacingReq)
		if err := t.svc.SetSpacing(r.Path, r.Position, r.Spacing, r.Align); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[spacingReq])
}

// --- insert_table ---

type insertTableReq struct {
	Path     string     `json:"path"`
	Position *int       `json:"position"`
	Rows     [][]string `json:"rows"`
}

func (t *Tools) registerInsertTable(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "insert_table",
		Description: "Insert a table of plain text cells.",
		InputSchema: inputSchema(map[string]any{
			"path":     pathProp,
			"position": map[string]any{"type": "integer", "description": "0-based insert position; omit to append"},
			"rows": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		}, []string{"path", "rows"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*insertTableReq)
		if err := t.svc.InsertTable(r.Path, posOr(r.Position, -1), r.Rows); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[insertTableReq])
}

// --- edit_table_cell ---

type editCellReq struct {
	Path          string `json:"path"`
	TablePosition int    `json:"table_position"`
	Row           int    `json:"row"`
	Col           int    `json:"col"`
	Text          string `json:"text"`
}

func (t *Tools) registerEditTableCell(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "edit_table_cell",
		Description: "Replace the text of one table cell, addressed by the table's block position and row/column.",
		InputSchema: inputSchema(map[string]any{
			"path":           pathProp,
			"table_position": map[string]any{"type": "integer", "description": "Block position of the table"},
			"row":            map[string]any{"type": "integer"},
			"col":            map[string]any{"type": "integer"},
			"text":           map[string]any{"type": "string"},
		}, []string{"path", "table_position", "row", "col", "text"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*editCellReq)
		if err := t.svc.EditTableCell(r.Path, r.TablePosition, r.Row, r.Col, r.Text); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[editCellReq])
}

// --- insert_image ---

type insertImageReq struct {
	Path      string `json:"path"`
	Position  *int   `json:"position"`
	ImagePath string `json:"image_path"`
}

func (t *Tools) registerInsertImage(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "insert_image",
		Description: "Embed an image file into the document.",
		InputSchema: inputSchema(map[string]any{
			"path":       pathProp,
			"position":   map[string]any{"type": "integer", "description": "0-based insert position; omit to append"},
			"image_path": map[string]any{"type": "string"},
		}, []string{"path", "image_path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*insertImageReq)
		if err := t.svc.InsertImage(r.Path, posOr(r.Position, -1), r.ImagePath); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.Path}, nil
	}
	register(srv, tool, ep, decodeInto[insertImageReq])
}

// --- find_and_replace ---

type findReplaceReq struct {
	Path           string `json:"path"`
	Find           string `json:"find"`
	Replace        string `json:"replace"`
	MatchCase      bool   `json:"match_case"`
	MatchWholeWord bool   `json:"match_whole_word"`
	OutputPath     string `json:"output_path"`
}

func (t *Tools) registerFindReplace(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "find_and_replace",
		Description: "Find and replace text throughout the document, including tables. Writes <base>_modified by default.",
		InputSchema: inputSchema(map[string]any{
			"path":             pathProp,
			"find":             map[string]any{"type": "string"},
			"replace":          map[string]any{"type": "string"},
			"match_case":       map[string]any{"type": "boolean"},
			"match_whole_word": map[string]any{"type": "boolean"},
			"output_path":      map[string]any{"type": "string"},
		}, []string{"path", "find", "replace"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*findReplaceReq)
		return t.svc.FindAndReplace(r.Path, r.Find, r.Replace, r.MatchCase, r.MatchWholeWord, r.OutputPath)
	}
	register(srv, tool, ep, decodeInto[findReplaceReq])
}

// --- format_text ---

type formatTextReq struct {
	Path           string  `json:"path"`
	Find           string  `json:"find"`
	MatchCase      bool    `json:"match_case"`
	MatchWholeWord bool    `json:"match_whole_word"`
	Bold           bool    `json:"bold"`
	Italic         bool    `json:"italic"`
	Underline      bool    `json:"underline"`
	Font           string  `json:"font"`
	Size           float64 `json:"size"`
	Color          string  `json:"color"`
	OutputPath     string  `json:"output_path"`
}

func (t *Tools) registerFormatText(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "format_text",
		Description: "Apply formatting to every occurrence of a text, leaving the text itself unchanged. Writes <base>_modified by default.",
		InputSchema: inputSchema(map[string]any{
			"path":             pathProp,
			"find":             map[string]any{"type": "string"},
			"match_case":       map[string]any{"type": "boolean"},
			"match_whole_word": map[string]any{"type": "boolean"},
			"bold":             map[string]any{"type": "boolean"},
			"italic":           map[string]any{"type": "boolean"},
			"underline":        map[string]any{"type": "boolean"},
			"font":             map[string]any{"type": "string", "description": "Font family name"},
			"size":             map[string]any{"type": "number", "description": "Font size in points"},
			"color":            map[string]any{"type": "string", "description": "Hex color like FF0000"},
			"output_path":      map[string]any{"type": "string"},
		}, []string{"path", "find"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*formatTextReq)
		opts := service.FormatOptions{
			Bold:      r.Bold,
			Italic:    r.Italic,
			Underline: r.Underline,
			Font:      r.Font,
			Size:      r.Size,
			Color:     r.Color,
		}
		return t.svc.FormatText(r.Path, r.Find, r.MatchCase, r.MatchWholeWord, opts, r.OutputPath)
	}
	register(srv, tool, ep, decodeInto[formatTextReq])
}

// --- complex_query ---

type complexQueryReq struct {
	Path  string `json:"path"`
	Query string `json:"query"`
}

func (t *Tools) registerComplexQuery(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "complex_query",
		Description: "Query document content: regex:pattern, keyword:word, contains:text, or a raw count (paragraphs, tables, images).",
		InputSchema: inputSchema(map[string]any{
			"path":  pathProp,
			"query": map[string]any{"type": "string"},
		}, []string{"path", "query"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*complexQueryReq)
		return t.svc.Query(r.Path, r.Query)
	}
	register(srv, tool, ep, decodeInto[complexQueryReq])
}

// --- complex_replace ---

type complexReplaceReq struct {
	Path       string `json:"path"`
	Expression string `json:"expression"`
	OutputPath string `json:"output_path"`
}

func (t *Tools) registerComplexReplace(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "complex_replace",
		Description: "Replace by expression type:old=new (type is regex, keyword, or contains). Writes <base>_modified by default.",
		InputSchema: inputSchema(map[string]any{
			"path":        pathProp,
			"expression":  map[string]any{"type": "string"},
			"output_path": map[string]any{"type": "string"},
		}, []string{"path", "expression"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*complexReplaceReq)
		return t.svc.Replace(r.Path, r.Expression, r.OutputPath)
	}
	register(srv, tool, ep, decodeInto[complexReplaceReq])
}

// --- extract_document_info ---

type extractReq struct {
	Path        string   `json:"path"`
	TopKeywords int      `json:"top_keywords"`
	Sections    []string `json:"sections"`
}

func (t *Tools) registerExtractInfo(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extract_document_info",
		Description: "Extract paragraphs, tables, images, headings, outline and keywords from a document.",
		InputSchema: inputSchema(map[string]any{
			"path":         pathProp,
			"top_keywords": map[string]any{"type": "integer", "description": "How many keywords to return"},
			"sections": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Subset of paragraphs, tables, images, headings, keywords; omit for everything",
			},
		}, []string{"path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*extractReq)
		return t.svc.ExtractInfo(r.Path, r.TopKeywords, r.Sections)
	}
	register(srv, tool, ep, decodeInto[extractReq])
}

// --- compare_documents ---

type compareReq struct {
	Paths []string `json:"paths"`
}

func (t *Tools) registerCompare(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compare_documents",
		Description: "Diff documents against the first one: added/removed/modified/moved blocks plus cross-document consistency findings.",
		InputSchema: inputSchema(map[string]any{
			"paths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Two or more document paths; the first is the reference",
			},
		}, []string{"paths"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*compareReq)
		return t.svc.Compare(r.Paths)
	}
	register(srv, tool, ep, decodeInto[compareReq])
}

// --- assess_document_quality ---

type assessReq struct {
	Path             string  `json:"path"`
	MaxSentenceWords int     `json:"max_sentence_words"`
	ReadabilityFloor float64 `json:"readability_floor"`
}

func (t *Tools) registerAssess(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "assess_document_quality",
		Description: "Score readability (Flesch reading ease), flag hard sentences, and report formatting consistency findings.",
		InputSchema: inputSchema(map[string]any{
			"path":               pathProp,
			"max_sentence_words": map[string]any{"type": "integer", "description": "Flag sentences longer than this; default 25"},
			"readability_floor":  map[string]any{"type": "number", "description": "Flag sentences scoring below this; default 30"},
		}, []string{"path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*assessReq)
		return t.svc.Assess(r.Path, r.MaxSentenceWords, r.ReadabilityFloor)
	}
	register(srv, tool, ep, decodeInto[assessReq])
}

// --- merge_documents ---

type mergeReq struct {
	Paths      []string `json:"paths"`
	OutputPath string   `json:"output_path"`
}

func (t *Tools) registerMerge(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "merge_documents",
		Description: "Append the content of every document after the first to a copy of the first.",
		InputSchema: inputSchema(map[string]any{
			"paths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"output_path": map[string]any{"type": "string"},
		}, []string{"paths", "output_path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*mergeReq)
		if err := t.svc.Merge(r.Paths, r.OutputPath); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.OutputPath}, nil
	}
	register(srv, tool, ep, decodeInto[mergeReq])
}

// --- save_document_as ---

type saveAsReq struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

func (t *Tools) registerSaveAs(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "save_document_as",
		Description: "Save a document to another path or format: .docx, .pdf, or .txt by output extension.",
		InputSchema: inputSchema(map[string]any{
			"path":        pathProp,
			"output_path": map[string]any{"type": "string"},
		}, []string{"path", "output_path"}),
	}
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*saveAsReq)
		if err := t.svc.SaveAs(r.Path, r.OutputPath); err != nil {
			return nil, err
		}
		return okResult{OK: true, Path: r.OutputPath}, nil
	}
	register(srv, tool, ep, decodeInto[saveAsReq])
}
