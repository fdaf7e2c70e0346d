package dal

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const docxNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
	`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"`

// validate checks a mutation against the current body without applying it.
// For image inserts the media bytes are loaded here so a later apply cannot
// fail halfway through a batch.
func (df *docxFile) validate(m Mutation) error {
	switch m.Kind {
	case MutSetRuns, MutSetSpacing:
		if m.BlockPos < 0 || m.BlockPos >= len(df.blocks) {
			return fmt.Errorf("block position %d out of range", m.BlockPos)
		}
		b := df.blocks[m.BlockPos]
		if m.Row < 0 {
			if b.kind != RawParagraph {
				return fmt.Errorf("block %d is a %s, not a paragraph", m.BlockPos, b.kind)
			}
			return nil
		}
		if b.kind != RawTable {
			return fmt.Errorf("block %d is a %s, not a table", m.BlockPos, b.kind)
		}
		if m.Row >= len(b.rows) {
			return fmt.Errorf("row %d out of range", m.Row)
		}
		if m.Col < 0 || m.Col >= len(b.rows[m.Row]) {
			return fmt.Errorf("column %d out of range", m.Col)
		}
		if m.Para < 0 || m.Para >= len(b.rows[m.Row][m.Col].paras) {
			return fmt.Errorf("cell paragraph %d out of range", m.Para)
		}
		return nil
	case MutInsertParagraph, MutInsertTable, MutInsertImage:
		if m.BlockPos > len(df.blocks) {
			return fmt.Errorf("insert position %d out of range", m.BlockPos)
		}
		if m.Kind == MutInsertImage {
			data, err := os.ReadFile(m.ImageSrc)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			df.media[m.ImageSrc] = data
		}
		return nil
	case MutDeleteBlock:
		if m.BlockPos < 0 || m.BlockPos >= len(df.blocks) {
			return fmt.Errorf("block position %d out of range", m.BlockPos)
		}
		return nil
	}
	return fmt.Errorf("unknown mutation kind %d", m.Kind)
}

// apply executes a previously validated mutation.
func (df *docxFile) apply(m Mutation) {
	switch m.Kind {
	case MutSetRuns:
		p := df.paraAt(m)
		p.runs = append([]RawRun(nil), m.Runs...)
	case MutSetSpacing:
		p := df.paraAt(m)
		if m.Align != "" {
			p.align = m.Align
		}
		if m.Spacing > 0 {
			p.spacing = m.Spacing
		}
		if m.Style != "" {
			p.style = m.Style
		}
	case MutInsertParagraph:
		blk := docxBlock{kind: RawParagraph, para: docxPara{
			style: m.Style,
			align: m.Align,
			runs:  append([]RawRun(nil), m.Runs...),
		}}
		df.insertBlock(m.BlockPos, blk)
	case MutInsertTable:
		var rows [][]docxCell
		for _, r := range m.Table {
			var row []docxCell
			for _, text := range r {
				row = append(row, docxCell{paras: []docxPara{{runs: []RawRun{{Text: text}}}}})
			}
			rows = append(rows, row)
		}
		df.insertBlock(m.BlockPos, docxBlock{kind: RawTable, rows: rows})
	case MutInsertImage:
		ref := df.addImage(m.ImageSrc)
		df.insertBlock(m.BlockPos, docxBlock{kind: RawImage, ref: ref})
	case MutDeleteBlock:
		df.blocks = append(df.blocks[:m.BlockPos], df.blocks[m.BlockPos+1:]...)
	}
}

func (df *docxFile) paraAt(m Mutation) *docxPara {
	b := &df.blocks[m.BlockPos]
	if m.Row < 0 {
		return &b.para
	}
	return &b.rows[m.Row][m.Col].paras[m.Para]
}

func (df *docxFile) insertBlock(pos int, blk docxBlock) {
	if pos < 0 || pos >= len(df.blocks) {
		df.blocks = append(df.blocks, blk)
		return
	}
	df.blocks = append(df.blocks[:pos], append([]docxBlock{blk}, df.blocks[pos:]...)...)
}

// addImage registers media bytes (loaded during validate) under word/media
// and returns the new relationship id.
func (df *docxFile) addImage(src string) string {
	data := df.media[src]
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(src)), ".")
	if ext == "" {
		ext = "png"
	}

	n := 1
	for {
		name := fmt.Sprintf("word/media/image%d.%s", n, ext)
		if _, exists := df.entries[name]; !exists {
			df.entries[name] = data
			df.order = append(df.order, name)
			break
		}
		n++
	}
	mediaName := fmt.Sprintf("image%d.%s", n, ext)

	df.relMax++
	rid := "rId" + strconv.Itoa(df.relMax)
	df.rels[rid] = "media/" + mediaName
	df.patchRels(rid, "media/"+mediaName)
	df.patchContentTypes(ext)
	return rid
}

func (df *docxFile) patchRels(rid, target string) {
	name := "word/_rels/document.xml.rels"
	data, ok := df.entries[name]
	if !ok {
		data = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`)
		df.order = append(df.order, name)
	}
	rel := fmt.Sprintf(`<Relationship Id=%q Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target=%q/>`, rid, target)
	df.entries[name] = bytes.Replace(data, []byte("</Relationships>"), []byte(rel+"</Relationships>"), 1)
}

func (df *docxFile) patchContentTypes(ext string) {
	name := "[Content_Types].xml"
	data, ok := df.entries[name]
	if !ok {
		return
	}
	marker := fmt.Sprintf(`Extension="%s"`, ext)
	if bytes.Contains(data, []byte(marker)) {
		return
	}
	ct := "image/" + ext
	if ext == "jpg" {
		ct = "image/jpeg"
	}
	def := fmt.Sprintf(`<Default Extension=%q ContentType=%q/>`, ext, ct)
	df.entries[name] = bytes.Replace(data, []byte("</Types>"), []byte(def+"</Types>"), 1)
}

// save rebuilds word/document.xml from the body model and writes the
// package. Every other archive entry is copied verbatim.
func (df *docxFile) save(outPath string) error {
	var out bytes.Buffer
	w := zip.NewWriter(&out)

	doc, err := w.Create("word/document.xml")
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if _, err := doc.Write(df.marshalBody()); err != nil {
		return fmt.Errorf("write document.xml: %w", err)
	}

	for _, name := range df.order {
		e, err := w.Create(name)
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := e.Write(df.entries[name]); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}

func (df *docxFile) marshalBody() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString("\n<w:document " + docxNamespaces + "><w:body>")
	for _, blk := range df.blocks {
		switch blk.kind {
		case RawParagraph:
			writePara(&b, blk.para)
		case RawTable:
			b.WriteString("<w:tbl><w:tblPr><w:tblBorders>" +
				`<w:top w:val="single"/><w:left w:val="single"/><w:bottom w:val="single"/>` +
				`<w:right w:val="single"/><w:insideH w:val="single"/><w:insideV w:val="single"/>` +
				"</w:tblBorders></w:tblPr>")
			for _, row := range blk.rows {
				b.WriteString("<w:tr>")
				for _, cell := range row {
					b.WriteString("<w:tc>")
					if len(cell.paras) == 0 {
						b.WriteString("<w:p/>")
					}
					for _, p := range cell.paras {
						writePara(&b, p)
					}
					b.WriteString("</w:tc>")
				}
				b.WriteString("</w:tr>")
			}
			b.WriteString("</w:tbl>")
		case RawImage:
			writeImage(&b, blk.ref)
		}
	}
	b.WriteString("<w:sectPr/></w:body></w:document>")
	return b.Bytes()
}

func writePara(b *bytes.Buffer, p docxPara) {
	b.WriteString("<w:p>")
	if p.style != "" || p.align != "" || p.spacing > 0 {
		b.WriteString("<w:pPr>")
		if p.style != "" {
			fmt.Fprintf(b, `<w:pStyle w:val=%q/>`, p.style)
		}
		if p.align != "" {
			fmt.Fprintf(b, `<w:jc w:val=%q/>`, p.align)
		}
		if p.spacing > 0 {
			fmt.Fprintf(b, `<w:spacing w:line="%d" w:lineRule="auto"/>`, int(p.spacing*240))
		}
		b.WriteString("</w:pPr>")
	}
	for _, r := range p.runs {
		b.WriteString("<w:r>")
		writeRunProps(b, r)
		b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(b, []byte(r.Text))
		b.WriteString("</w:t></w:r>")
	}
	b.WriteString("</w:p>")
}

func writeRunProps(b *bytes.Buffer, r RawRun) {
	if !r.Bold && !r.Italic && !r.Underline && r.Font == "" && r.Size == 0 && r.Color == "" {
		return
	}
	b.WriteString("<w:rPr>")
	if r.Font != "" {
		fmt.Fprintf(b, `<w:rFonts w:ascii=%q w:hAnsi=%q/>`, r.Font, r.Font)
	}
	if r.Bold {
		b.WriteString("<w:b/>")
	}
	if r.Italic {
		b.WriteString("<w:i/>")
	}
	if r.Underline {
		b.WriteString(`<w:u w:val="single"/>`)
	}
	if r.Size > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/>`, int(r.Size*2))
	}
	if r.Color != "" {
		fmt.Fprintf(b, `<w:color w:val=%q/>`, r.Color)
	}
	b.WriteString("</w:rPr>")
}

// writeImage emits an inline drawing sized 4x3 inches referencing rid.
func writeImage(b *bytes.Buffer, rid string) {
	const cx, cy = 3657600, 2743200 // EMU
	fmt.Fprintf(b, `<w:p><w:r><w:drawing><wp:inline>`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="1" name="Picture"/>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="0" name="Picture"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed=%q/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, rid, cx, cy)
}

const emptyContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const emptyRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const emptyDocRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

// createEmptyDocx writes a minimal valid .docx package with an empty body.
func createEmptyDocx(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("%s already exists", filePath)
	}
	df := &docxFile{
		entries: map[string][]byte{
			"[Content_Types].xml":          []byte(emptyContentTypes),
			"_rels/.rels":                  []byte(emptyRootRels),
			"word/_rels/document.xml.rels": []byte(emptyDocRels),
		},
		order: []string{"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels"},
		rels:  make(map[string]string),
		media: make(map[string][]byte),
	}
	return df.save(filePath)
}
