package dal

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// docxFile is an in-memory .docx package: the parsed body of
// word/document.xml plus every other archive entry kept verbatim so a save
// round-trips styles, themes and settings untouched.
type docxFile struct {
	entries map[string][]byte
	order   []string
	blocks  []docxBlock
	rels    map[string]string // rId -> target, from word/_rels/document.xml.rels
	relMax  int
	media   map[string][]byte // pending media keyed by source path
}

type docxBlock struct {
	kind RawKind
	para docxPara     // RawParagraph
	rows [][]docxCell // RawTable
	ref  string       // RawImage: relationship id
}

type docxPara struct {
	style   string
	align   string
	spacing float64 // line spacing multiple
	runs    []RawRun
}

type docxCell struct {
	paras []docxPara
}

func openDocx(filePath string) (*docxFile, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	df := &docxFile{
		entries: make(map[string][]byte),
		rels:    make(map[string]string),
		media:   make(map[string][]byte),
	}

	var docXML []byte
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if f.Name == "word/document.xml" {
			docXML = data
			continue
		}
		df.entries[f.Name] = data
		df.order = append(df.order, f.Name)
	}
	if docXML == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	df.parseRels()

	if err := df.parseBody(docXML); err != nil {
		// Exotic body layouts fall back to a plain-paragraph read.
		blocks, ferr := readDocxPlain(filePath)
		if ferr != nil {
			return nil, err
		}
		df.blocks = fallbackBlocks(blocks)
	}
	return df, nil
}

// fallbackBlocks lifts a plain paragraph read into body form, so mutations
// and saves keep working over fallback-parsed files.
func fallbackBlocks(raw []RawBlock) []docxBlock {
	out := make([]docxBlock, 0, len(raw))
	for _, rb := range raw {
		out = append(out, docxBlock{kind: RawParagraph, para: docxPara{
			style: rb.StyleName,
			align: rb.Align,
			runs:  append([]RawRun(nil), rb.Runs...),
		}})
	}
	return out
}

func (df *docxFile) parseRels() {
	data, ok := df.entries["word/_rels/document.xml.rels"]
	if !ok {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" {
			df.rels[id] = target
			// rIdN — track the highest N for new relationships.
			if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > df.relMax {
				df.relMax = n
			}
		}
	}
}

// parseBody token-walks word/document.xml, collecting paragraphs, tables
// and inline images in source order.
func (df *docxFile) parseBody(docXML []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	inBody := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse document.xml: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "body":
			inBody = true
		case "p":
			if !inBody {
				continue
			}
			para, imgRef, err := parseParagraph(dec)
			if err != nil {
				return err
			}
			if imgRef != "" {
				df.blocks = append(df.blocks, docxBlock{kind: RawImage, ref: imgRef})
			} else {
				df.blocks = append(df.blocks, docxBlock{kind: RawParagraph, para: para})
			}
		case "tbl":
			if !inBody {
				continue
			}
			rows, err := parseTable(dec)
			if err != nil {
				return err
			}
			df.blocks = append(df.blocks, docxBlock{kind: RawTable, rows: rows})
		}
	}
	return nil
}

// parseParagraph consumes tokens until the matching </p>. It returns the
// paragraph content, or a relationship id when the paragraph is an inline
// image container.
func parseParagraph(dec *xml.Decoder) (docxPara, string, error) {
	var p docxPara
	var imgRef string
	depth := 1
	var run *RawRun
	inText := false
	inRunProps := false

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return p, "", fmt.Errorf("paragraph truncated: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				p.style = attrVal(t, "val")
			case "jc":
				p.align = attrVal(t, "val")
			case "spacing":
				if line := attrVal(t, "line"); line != "" {
					if n, err := strconv.ParseFloat(line, 64); err == nil {
						p.spacing = n / 240.0
					}
				}
			case "r":
				run = &RawRun{}
			case "rPr":
				if run != nil {
					inRunProps = true
				}
			case "b":
				if inRunProps && boolAttr(t) {
					run.Bold = true
				}
			case "i":
				if inRunProps && boolAttr(t) {
					run.Italic = true
				}
			case "u":
				if inRunProps && attrVal(t, "val") != "none" {
					run.Underline = true
				}
			case "rFonts":
				if inRunProps {
					run.Font = attrVal(t, "ascii")
				}
			case "sz":
				if inRunProps {
					if n, err := strconv.ParseFloat(attrVal(t, "val"), 64); err == nil {
						run.Size = n / 2.0
					}
				}
			case "color":
				if inRunProps {
					run.Color = attrVal(t, "val")
				}
			case "t":
				inText = true
			case "blip":
				if ref := attrVal(t, "embed"); ref != "" {
					imgRef = ref
				}
			}
		case xml.CharData:
			if inText && run != nil {
				run.Text += string(t)
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				inRunProps = false
			case "r":
				if run != nil && run.Text != "" {
					p.runs = append(p.runs, *run)
				}
				run = nil
			}
		}
	}
	return p, imgRef, nil
}

// parseTable consumes tokens until the matching </tbl>, collecting rows of
// cells. Nested tables inside a cell are flattened into the cell's
// paragraphs, cell by cell.
func parseTable(dec *xml.Decoder) ([][]docxCell, error) {
	var rows [][]docxCell
	var row []docxCell
	var cell *docxCell
	depth := 1
	cellDepth := 0

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("table truncated: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "tr":
				if cell == nil {
					row = nil
				}
			case "tc":
				if cell == nil {
					cell = &docxCell{}
					cellDepth = depth
				}
			case "p":
				depth--
				para, _, err := parseParagraph(dec)
				if err != nil {
					return nil, err
				}
				if cell != nil {
					cell.paras = append(cell.paras, para)
				}
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "tc":
				if cell != nil && depth < cellDepth {
					row = append(row, *cell)
					cell = nil
				}
			case "tr":
				if cell == nil && len(row) > 0 {
					rows = append(rows, row)
					row = nil
				}
			}
		}
	}
	return rows, nil
}

func attrVal(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// boolAttr reads an OOXML on/off property: present without val means on.
func boolAttr(se xml.StartElement) bool {
	v := attrVal(se, "val")
	return v == "" || v == "1" || v == "true" || v == "on"
}

// rawBlocks converts the parsed body into the DAL's raw block form.
func (df *docxFile) rawBlocks() []RawBlock {
	out := make([]RawBlock, 0, len(df.blocks))
	for _, b := range df.blocks {
		switch b.kind {
		case RawParagraph:
			out = append(out, rawFromPara(b.para))
		case RawTable:
			rb := RawBlock{Kind: RawTable}
			for _, row := range b.rows {
				var cells []RawBlock
				for _, c := range row {
					cb := RawBlock{Kind: RawCell}
					for _, p := range c.paras {
						cb.Blocks = append(cb.Blocks, rawFromPara(p))
					}
					cells = append(cells, cb)
				}
				rb.Rows = append(rb.Rows, cells)
			}
			out = append(out, rb)
		case RawImage:
			ref := b.ref
			if target, ok := df.rels[b.ref]; ok {
				ref = path.Base(target)
			}
			out = append(out, RawBlock{Kind: RawImage, ImageRef: ref})
		}
	}
	return out
}

func rawFromPara(p docxPara) RawBlock {
	return RawBlock{
		Kind:      RawParagraph,
		StyleName: p.style,
		Align:     p.align,
		Spacing:   p.spacing,
		Runs:      append([]RawRun(nil), p.runs...),
	}
}

func createEmptyFile(filePath string) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filePath, err)
	}
	return f.Close()
}
