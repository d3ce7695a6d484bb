package docx

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
)

// namespaces
const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsW15 = "http://schemas.microsoft.com/office/word/2012/wordml"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsCP  = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	nsDC  = "http://purl.org/dc/elements/1.1/"
	nsDCT = "http://purl.org/dc/terms/"
	nsXSI = "http://www.w3.org/2001/XMLSchema-instance"

	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"

	ctMain      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	ctSettings  = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	ctCore      = "application/vnd.openxmlformats-package.core-properties+xml"
	ctRels      = "application/vnd.openxmlformats-package.relationships+xml"
)

// EMU per point
const emuPerPoint = 12700

func newPart() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func twips(pt float64) string {
	return strconv.Itoa(int(math.Round(pt * 20)))
}

func writeHalfPoints(parent *etree.Element, tag string, pt float64) {
	parent.CreateElement(tag).CreateAttr("w:val", strconv.Itoa(int(math.Round(pt*2))))
}

func dropEmpty(parent, el *etree.Element) {
	if len(el.ChildElements()) == 0 && len(el.Attr) == 0 {
		parent.RemoveChild(el)
	}
}

func writeBorder(parent *etree.Element, tag string, b *Border) {
	if b == nil {
		return
	}
	el := parent.CreateElement(tag)
	el.CreateAttr("w:val", b.Style)
	el.CreateAttr("w:sz", strconv.Itoa(b.Size))
	el.CreateAttr("w:space", strconv.Itoa(b.Space))
	color := b.Color
	if color == "" {
		color = "auto"
	}
	el.CreateAttr("w:color", color)
}

// writeBorders writes border sides in schema order, inside borders repeat
// top and left sides.
func writeBorders(parent *etree.Element, tag string, b Borders, inside bool) {
	if b.Empty() {
		return
	}
	el := parent.CreateElement(tag)
	writeBorder(el, "w:top", b.Top)
	writeBorder(el, "w:left", b.Left)
	writeBorder(el, "w:bottom", b.Bottom)
	writeBorder(el, "w:right", b.Right)
	if inside {
		writeBorder(el, "w:insideH", b.Top)
		writeBorder(el, "w:insideV", b.Left)
	}
}

func writeShading(parent *etree.Element, fill string) {
	if fill == "" {
		return
	}
	shd := parent.CreateElement("w:shd")
	shd.CreateAttr("w:val", "clear")
	shd.CreateAttr("w:color", "auto")
	shd.CreateAttr("w:fill", fill)
}

func writeParagraphProps(parent *etree.Element, p *ParagraphProps, inStyle bool) {
	ppr := parent.CreateElement("w:pPr")
	defer dropEmpty(parent, ppr)

	if p.Style != "" && !inStyle {
		ppr.CreateElement("w:pStyle").CreateAttr("w:val", p.Style)
	}
	if p.KeepNext {
		ppr.CreateElement("w:keepNext")
	}
	if p.PageBreakBefore {
		ppr.CreateElement("w:pageBreakBefore")
	}
	if p.NumID > 0 {
		num := ppr.CreateElement("w:numPr")
		num.CreateElement("w:ilvl").CreateAttr("w:val", strconv.Itoa(p.Level))
		num.CreateElement("w:numId").CreateAttr("w:val", strconv.Itoa(p.NumID))
	}
	writeBorders(ppr, "w:pBdr", p.Borders, false)
	writeShading(ppr, p.Shading)

	if p.SpaceBefore != nil || p.SpaceAfter != nil || p.LineMultiple > 0 || p.LineExact > 0 {
		sp := ppr.CreateElement("w:spacing")
		if p.SpaceBefore != nil {
			sp.CreateAttr("w:before", twips(*p.SpaceBefore))
		}
		if p.SpaceAfter != nil {
			sp.CreateAttr("w:after", twips(*p.SpaceAfter))
		}
		switch {
		case p.LineExact > 0:
			sp.CreateAttr("w:line", twips(p.LineExact))
			sp.CreateAttr("w:lineRule", "exact")
		case p.LineMultiple > 0:
			sp.CreateAttr("w:line", strconv.Itoa(int(math.Round(p.LineMultiple*240))))
			sp.CreateAttr("w:lineRule", "auto")
		}
	}

	if p.IndentLeft != nil || p.IndentRight != nil || p.FirstLine != nil {
		ind := ppr.CreateElement("w:ind")
		if p.IndentLeft != nil {
			ind.CreateAttr("w:left", twips(*p.IndentLeft))
		}
		if p.IndentRight != nil {
			ind.CreateAttr("w:right", twips(*p.IndentRight))
		}
		if p.FirstLine != nil {
			if *p.FirstLine < 0 {
				ind.CreateAttr("w:hanging", twips(-*p.FirstLine))
			} else {
				ind.CreateAttr("w:firstLine", twips(*p.FirstLine))
			}
		}
	}
	if p.Align != AlignNone {
		ppr.CreateElement("w:jc").CreateAttr("w:val", string(p.Align))
	}
}

func writeRunProps(parent *etree.Element, r *RunProps) {
	rpr := parent.CreateElement("w:rPr")
	defer dropEmpty(parent, rpr)

	if r.Style != "" {
		rpr.CreateElement("w:rStyle").CreateAttr("w:val", r.Style)
	}
	if r.Font != "" {
		fonts := rpr.CreateElement("w:rFonts")
		fonts.CreateAttr("w:ascii", r.Font)
		fonts.CreateAttr("w:hAnsi", r.Font)
		fonts.CreateAttr("w:cs", r.Font)
	}
	if r.Bold {
		rpr.CreateElement("w:b")
	}
	if r.Italic {
		rpr.CreateElement("w:i")
	}
	if r.Caps {
		rpr.CreateElement("w:caps")
	}
	if r.SmallCaps {
		rpr.CreateElement("w:smallCaps")
	}
	if r.Strike {
		rpr.CreateElement("w:strike")
	}
	if r.Color != "" {
		rpr.CreateElement("w:color").CreateAttr("w:val", r.Color)
	}
	if r.Size > 0 {
		writeHalfPoints(rpr, "w:sz", r.Size)
		writeHalfPoints(rpr, "w:szCs", r.Size)
	}
	if r.Highlight != "" {
		rpr.CreateElement("w:highlight").CreateAttr("w:val", r.Highlight)
	}
	if r.Underline != "" {
		u := rpr.CreateElement("w:u")
		u.CreateAttr("w:val", r.Underline)
		if r.UColor != "" {
			u.CreateAttr("w:color", r.UColor)
		}
	}
	writeShading(rpr, r.Shading)
	if r.VertAlign != "" {
		rpr.CreateElement("w:vertAlign").CreateAttr("w:val", r.VertAlign)
	}
}

func (d *Document) documentXML() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)
	root.CreateAttr("xmlns:wp", nsWP)
	root.CreateAttr("xmlns:a", nsA)
	root.CreateAttr("xmlns:pic", nsPic)

	body := root.CreateElement("w:body")
	d.writeBlocks(body, d.blocks, d.PrintableWidth())

	sect := body.CreateElement("w:sectPr")
	pgSz := sect.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", twips(PageWidth))
	pgSz.CreateAttr("w:h", twips(PageHeight))
	mar := sect.CreateElement("w:pgMar")
	for _, side := range []string{"w:top", "w:right", "w:bottom", "w:left"} {
		mar.CreateAttr(side, twips(PageMargin))
	}
	mar.CreateAttr("w:header", twips(PageMargin/2))
	mar.CreateAttr("w:footer", twips(PageMargin/2))
	mar.CreateAttr("w:gutter", "0")
	return doc
}

func (d *Document) writeBlocks(parent *etree.Element, blocks []block, width float64) {
	for _, b := range blocks {
		switch v := b.(type) {
		case *Paragraph:
			d.writeParagraph(parent, v)
		case *Table:
			d.writeTable(parent, v, width)
		}
	}
}

func (d *Document) writeParagraph(parent *etree.Element, p *Paragraph) {
	el := parent.CreateElement("w:p")
	writeParagraphProps(el, &p.Props, false)
	for _, c := range p.content {
		switch v := c.(type) {
		case *Run:
			d.writeRun(el, v)
		case *Hyperlink:
			h := el.CreateElement("w:hyperlink")
			if v.External {
				h.CreateAttr("r:id", v.relID)
			} else {
				h.CreateAttr("w:anchor", v.Target)
			}
			if v.Tooltip != "" {
				h.CreateAttr("w:tooltip", v.Tooltip)
			}
			h.CreateAttr("w:history", "1")
			for _, r := range v.runs {
				d.writeRun(h, r)
			}
		case *bookmark:
			start := el.CreateElement("w:bookmarkStart")
			start.CreateAttr("w:id", strconv.Itoa(v.id))
			start.CreateAttr("w:name", v.name)
			el.CreateElement("w:bookmarkEnd").CreateAttr("w:id", strconv.Itoa(v.id))
		}
	}
}

func (d *Document) writeRun(parent *etree.Element, r *Run) {
	el := parent.CreateElement("w:r")
	writeRunProps(el, &r.Props)
	for _, part := range r.parts {
		switch part.kind {
		case partText:
			t := el.CreateElement("w:t")
			t.CreateAttr("xml:space", "preserve")
			t.SetText(part.text)
		case partBreak:
			el.CreateElement("w:br")
		case partPageBreak:
			el.CreateElement("w:br").CreateAttr("w:type", "page")
		case partTab:
			el.CreateElement("w:tab")
		}
	}
	if r.picture != nil {
		writeDrawing(el.CreateElement("w:drawing"), r.picture)
	}
}

func writeDrawing(parent *etree.Element, p *Picture) {
	cx := strconv.FormatInt(int64(math.Round(p.Width*emuPerPoint)), 10)
	cy := strconv.FormatInt(int64(math.Round(p.Height*emuPerPoint)), 10)
	id := strconv.Itoa(p.id)

	inline := parent.CreateElement("wp:inline")
	for _, a := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(a, "0")
	}
	ext := inline.CreateElement("wp:extent")
	ext.CreateAttr("cx", cx)
	ext.CreateAttr("cy", cy)
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", id)
	docPr.CreateAttr("name", p.Name)
	inline.CreateElement("wp:cNvGraphicFramePr").CreateElement("a:graphicFrameLocks").CreateAttr("noChangeAspect", "1")

	data := inline.CreateElement("a:graphic").CreateElement("a:graphicData")
	data.CreateAttr("uri", nsPic)
	pic := data.CreateElement("pic:pic")
	nv := pic.CreateElement("pic:nvPicPr")
	cnv := nv.CreateElement("pic:cNvPr")
	cnv.CreateAttr("id", "0")
	cnv.CreateAttr("name", filepath.Base(p.target))
	nv.CreateElement("pic:cNvPicPr")

	fill := pic.CreateElement("pic:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", p.relID)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	aext := xfrm.CreateElement("a:ext")
	aext.CreateAttr("cx", cx)
	aext.CreateAttr("cy", cy)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
}

func (d *Document) writeTable(parent *etree.Element, t *Table, avail float64) {
	el := parent.CreateElement("w:tbl")
	tblPr := el.CreateElement("w:tblPr")
	if t.Style != "" {
		tblPr.CreateElement("w:tblStyle").CreateAttr("w:val", t.Style)
	}
	tblW := tblPr.CreateElement("w:tblW")
	if t.Width > 0 {
		tblW.CreateAttr("w:w", twips(t.Width))
		tblW.CreateAttr("w:type", "dxa")
	} else {
		tblW.CreateAttr("w:w", "0")
		tblW.CreateAttr("w:type", "auto")
	}
	if t.Align != AlignNone {
		tblPr.CreateElement("w:jc").CreateAttr("w:val", string(t.Align))
	}
	if t.Indent != nil {
		ind := tblPr.CreateElement("w:tblInd")
		ind.CreateAttr("w:w", twips(*t.Indent))
		ind.CreateAttr("w:type", "dxa")
	}

	width := avail
	if t.Width > 0 {
		width = t.Width
	}
	colW := 0.0
	if t.cols > 0 {
		colW = width / float64(t.cols)
	}
	grid := el.CreateElement("w:tblGrid")
	for range t.cols {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", twips(colW))
	}

	for _, row := range t.rows {
		tr := el.CreateElement("w:tr")
		if row.Height > 0 || row.Header {
			trPr := tr.CreateElement("w:trPr")
			if row.Header {
				trPr.CreateElement("w:tblHeader")
			}
			if row.Height > 0 {
				h := trPr.CreateElement("w:trHeight")
				h.CreateAttr("w:val", twips(row.Height))
				h.CreateAttr("w:hRule", "atLeast")
			}
		}
		for _, cell := range row.cells {
			if cell.covered {
				continue
			}
			d.writeCell(tr, cell, colW)
		}
	}
}

func (d *Document) writeCell(parent *etree.Element, c *Cell, colW float64) {
	tc := parent.CreateElement("w:tc")
	tcPr := tc.CreateElement("w:tcPr")
	tcW := tcPr.CreateElement("w:tcW")
	width := c.Props.Width
	if width <= 0 {
		width = colW * float64(c.span)
	}
	tcW.CreateAttr("w:w", twips(width))
	tcW.CreateAttr("w:type", "dxa")
	if c.span > 1 {
		tcPr.CreateElement("w:gridSpan").CreateAttr("w:val", strconv.Itoa(c.span))
	}
	switch c.vmerge {
	case vMergeRestart:
		tcPr.CreateElement("w:vMerge").CreateAttr("w:val", "restart")
	case vMergeContinue:
		tcPr.CreateElement("w:vMerge")
	}
	writeBorders(tcPr, "w:tcBorders", c.Props.Borders, false)
	writeShading(tcPr, c.Props.Background)
	if c.Props.VAlign != "" {
		tcPr.CreateElement("w:vAlign").CreateAttr("w:val", c.Props.VAlign)
	}

	d.writeBlocks(tc, c.blocks, width)
	// cell must end with a paragraph
	if n := len(c.blocks); n == 0 {
		tc.CreateElement("w:p")
	} else if _, ok := c.blocks[n-1].(*Table); ok {
		tc.CreateElement("w:p")
	}
}

func (d *Document) relsXML() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRel)
	for _, r := range d.rels {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", r.id)
		el.CreateAttr("Type", r.typ)
		el.CreateAttr("Target", r.target)
		if r.external {
			el.CreateAttr("TargetMode", "External")
		}
	}
	return doc
}

func packageRelsXML() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRel)
	for i, r := range [][2]string{{relOfficeDocument, "word/document.xml"}, {relCoreProps, "docProps/core.xml"}} {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", "rId"+strconv.Itoa(i+1))
		el.CreateAttr("Type", r[0])
		el.CreateAttr("Target", r[1])
	}
	return doc
}

func (d *Document) contentTypesXML() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("Types")
	root.CreateAttr("xmlns", nsCT)

	addDefault := func(ext, ct string) {
		el := root.CreateElement("Default")
		el.CreateAttr("Extension", ext)
		el.CreateAttr("ContentType", ct)
	}
	addDefault("rels", ctRels)
	addDefault("xml", "application/xml")
	seen := map[string]bool{"rels": true, "xml": true}
	for _, p := range d.pictures {
		if !seen[p.image.Ext] {
			seen[p.image.Ext] = true
			addDefault(p.image.Ext, p.image.ContentType)
		}
	}

	for _, o := range [][2]string{
		{"/word/document.xml", ctMain},
		{"/word/styles.xml", ctStyles},
		{"/word/numbering.xml", ctNumbering},
		{"/word/settings.xml", ctSettings},
		{"/docProps/core.xml", ctCore},
	} {
		el := root.CreateElement("Override")
		el.CreateAttr("PartName", o[0])
		el.CreateAttr("ContentType", o[1])
	}
	return doc
}

func (d *Document) settingsXML() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("w:settings")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:w15", nsW15)
	root.CreateElement("w:defaultTabStop").CreateAttr("w:val", "720")
	root.CreateElement("w:characterSpacingControl").CreateAttr("w:val", "doNotCompress")
	root.CreateElement("w15:docId").CreateAttr("w15:val", "{"+strings.ToUpper(d.id.String())+"}")
	return doc
}

func (d *Document) coreXML(now time.Time) *etree.Document {
	doc := newPart()
	root := doc.CreateElement("cp:coreProperties")
	root.CreateAttr("xmlns:cp", nsCP)
	root.CreateAttr("xmlns:dc", nsDC)
	root.CreateAttr("xmlns:dcterms", nsDCT)
	root.CreateAttr("xmlns:xsi", nsXSI)
	if d.Title != "" {
		root.CreateElement("dc:title").SetText(d.Title)
	}
	if d.Lang != "" {
		root.CreateElement("dc:language").SetText(d.Lang)
	}
	root.CreateElement("dc:identifier").SetText("urn:uuid:" + d.id.String())
	for _, tag := range []string{"dcterms:created", "dcterms:modified"} {
		el := root.CreateElement(tag)
		el.CreateAttr("xsi:type", "dcterms:W3CDTF")
		el.SetText(now.UTC().Format(time.RFC3339))
	}
	return doc
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes document as DOCX package.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	parts := []struct {
		name string
		doc  *etree.Document
	}{
		{"[Content_Types].xml", d.contentTypesXML()},
		{"_rels/.rels", packageRelsXML()},
		{"docProps/core.xml", d.coreXML(time.Now())},
		{"word/document.xml", d.documentXML()},
		{"word/_rels/document.xml.rels", d.relsXML()},
		{"word/styles.xml", d.stylesXML()},
		{"word/numbering.xml", d.numbering.xml()},
		{"word/settings.xml", d.settingsXML()},
	}
	for _, p := range parts {
		if err := writeXMLToZip(zw, p.name, p.doc); err != nil {
			return cw.n, err
		}
	}
	for _, p := range d.pictures {
		fw, err := zw.Create("word/" + p.target)
		if err != nil {
			return cw.n, err
		}
		if _, err := fw.Write(p.image.Data); err != nil {
			return cw.n, fmt.Errorf("unable to write %s: %w", p.target, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("unable to close archive: %w", err)
	}
	return cw.n, nil
}

// Save writes document to path. With fixZip the archive is rewritten
// without data descriptors, some readers fail on them.
func (d *Document) Save(ctx context.Context, path string, fixZip bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".hdx-*.docx")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := d.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}

	d.log.Debug("Document written", zap.String("file", path), zap.Int("pictures", len(d.pictures)), zap.Bool("fix_zip", fixZip))
	if fixZip {
		return copyZipWithoutDataDescriptors(tmpName, path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("unable to move output file: %w", err)
	}
	return nil
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to finalize target file (%s): %w", to, err)
	}
	return out.Close()
}
