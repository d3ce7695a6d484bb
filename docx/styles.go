package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// StyleType is kind of named style.
type StyleType string

const (
	StyleParagraph StyleType = "paragraph"
	StyleCharacter StyleType = "character"
	StyleTable     StyleType = "table"
)

// Style is named style definition. Only properties needed for built-in
// styles are supported.
type Style struct {
	ID       string
	Name     string
	Type     StyleType
	BasedOn  string
	Next     string
	Default  bool
	Para     ParagraphProps
	Run      RunProps
	Borders  Borders // table borders, table styles only
	numStyle string  // numbering abstract key, list styles only
}

// DefaultFont and DefaultFontSize are used for document defaults.
const (
	DefaultFont     = "Calibri"
	DefaultFontSize = 11.0
)

func ptr(v float64) *float64 { return &v }

func styleID(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

func builtinStyles() []*Style {
	styles := []*Style{
		{Name: "Normal", Type: StyleParagraph, Default: true, Para: ParagraphProps{SpaceAfter: ptr(8), LineMultiple: 1.08}},
		{Name: "Title", Type: StyleParagraph, BasedOn: "Normal", Next: "Normal", Run: RunProps{Size: 28}},
		{Name: "Subtitle", Type: StyleParagraph, BasedOn: "Normal", Next: "Normal", Run: RunProps{Size: 14, Italic: true, Color: "5A5A5A"}},
		{Name: "No Spacing", Type: StyleParagraph, BasedOn: "Normal", Para: ParagraphProps{SpaceAfter: ptr(0), LineMultiple: 1}},
		{Name: "Quote", Type: StyleParagraph, BasedOn: "Normal", Next: "Normal", Run: RunProps{Italic: true, Color: "404040"},
			Para: ParagraphProps{IndentLeft: ptr(43.2), IndentRight: ptr(43.2), Align: AlignCenter}},
		{Name: "Intense Quote", Type: StyleParagraph, BasedOn: "Normal", Next: "Normal", Run: RunProps{Italic: true, Color: "2F5496"},
			Para: ParagraphProps{IndentLeft: ptr(43.2), IndentRight: ptr(43.2), Align: AlignCenter}},
		{Name: "List Paragraph", Type: StyleParagraph, BasedOn: "Normal", Para: ParagraphProps{IndentLeft: ptr(36)}},
		{Name: "Caption", Type: StyleParagraph, BasedOn: "Normal", Next: "Normal", Run: RunProps{Italic: true, Size: 9, Color: "44546A"}},
		{Name: "HTML Preformatted", Type: StyleParagraph, BasedOn: "Normal", Para: ParagraphProps{SpaceAfter: ptr(0), LineMultiple: 1}, Run: RunProps{Font: "Courier New", Size: 10}},
		{Name: "Body Text", Type: StyleParagraph, BasedOn: "Normal", Para: ParagraphProps{SpaceAfter: ptr(6)}},
		{Name: "Hyperlink", Type: StyleCharacter, Run: RunProps{Color: "0563C1", Underline: "single"}},
		{Name: "Strong", Type: StyleCharacter, Run: RunProps{Bold: true}},
		{Name: "Emphasis", Type: StyleCharacter, Run: RunProps{Italic: true}},
		{Name: "HTML Code", Type: StyleCharacter, Run: RunProps{Font: "Courier New", Size: 10}},
		{Name: "Normal Table", Type: StyleTable, Default: true},
		{Name: "Table Grid", Type: StyleTable, BasedOn: "Normal Table", Borders: gridBorders("000000")},
		{Name: "Light Grid", Type: StyleTable, BasedOn: "Normal Table", Borders: gridBorders("BFBFBF")},
	}

	headingSizes := []float64{16, 13, 12, 11, 11, 11, 11, 10.5, 10.5}
	for i, size := range headingSizes {
		lvl := i + 1
		st := &Style{
			Name:    "Heading " + strconv.Itoa(lvl),
			Type:    StyleParagraph,
			BasedOn: "Normal",
			Next:    "Normal",
			Para:    ParagraphProps{SpaceBefore: ptr(12 - float64(min(i, 3))*2), SpaceAfter: ptr(0), KeepNext: true},
			Run:     RunProps{Size: size, Color: "2F5496", Bold: lvl <= 2},
		}
		if lvl > 3 {
			st.Run.Italic = lvl%2 == 0
		}
		styles = append(styles, st)
	}

	for _, kind := range []string{"List Bullet", "List Number"} {
		for depth := 1; depth <= 3; depth++ {
			name := kind
			if depth > 1 {
				name += " " + strconv.Itoa(depth)
			}
			st := &Style{
				Name:     name,
				Type:     StyleParagraph,
				BasedOn:  "Normal",
				Para:     ParagraphProps{Level: depth - 1},
				numStyle: kind,
			}
			styles = append(styles, st)
		}
	}

	for _, st := range styles {
		st.ID = styleID(st.Name)
		if st.BasedOn != "" {
			st.BasedOn = styleID(st.BasedOn)
		}
		if st.Next != "" {
			st.Next = styleID(st.Next)
		}
	}
	return styles
}

func gridBorders(color string) Borders {
	b := &Border{Style: "single", Size: 4, Color: color}
	return Borders{Top: b, Left: b, Bottom: b, Right: b}
}

// LookupStyle finds style by name or id. Name comparison is case
// insensitive and ignores spaces so "TableGrid" and "table grid" both find
// "Table Grid".
func (d *Document) LookupStyle(name string, typ StyleType) (*Style, bool) {
	key := strings.ToLower(styleID(strings.TrimSpace(name)))
	if key == "" {
		return nil, false
	}
	for _, st := range d.styles {
		if st.Type == typ && strings.ToLower(st.ID) == key {
			return st, true
		}
	}
	return nil, false
}

// HasStyle reports whether paragraph style exists.
func (d *Document) HasStyle(name string) bool {
	_, ok := d.LookupStyle(name, StyleParagraph)
	return ok
}

// Styles returns style names of type in definition order.
func (d *Document) Styles(typ StyleType) []string {
	var out []string
	for _, st := range d.styles {
		if st.Type == typ {
			out = append(out, st.Name)
		}
	}
	return out
}

func (d *Document) stylesXML() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsW)

	defaults := root.CreateElement("w:docDefaults")
	rpr := defaults.CreateElement("w:rPrDefault").CreateElement("w:rPr")
	fonts := rpr.CreateElement("w:rFonts")
	for _, a := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
		fonts.CreateAttr(a, DefaultFont)
	}
	writeHalfPoints(rpr, "w:sz", DefaultFontSize)
	writeHalfPoints(rpr, "w:szCs", DefaultFontSize)
	if d.Lang != "" {
		rpr.CreateElement("w:lang").CreateAttr("w:val", d.Lang)
	}
	defaults.CreateElement("w:pPrDefault")

	for _, st := range d.styles {
		el := root.CreateElement("w:style")
		el.CreateAttr("w:type", string(st.Type))
		if st.Default {
			el.CreateAttr("w:default", "1")
		}
		el.CreateAttr("w:styleId", st.ID)
		el.CreateElement("w:name").CreateAttr("w:val", st.Name)
		if st.BasedOn != "" {
			el.CreateElement("w:basedOn").CreateAttr("w:val", st.BasedOn)
		}
		if st.Next != "" {
			el.CreateElement("w:next").CreateAttr("w:val", st.Next)
		}
		el.CreateElement("w:qFormat")

		switch st.Type {
		case StyleParagraph:
			props := st.Para
			if st.numStyle != "" {
				props.NumID = d.numbering.baseNum(st.numStyle)
				props.IndentLeft = ptr(listIndent * float64(props.Level+1))
				props.FirstLine = ptr(-listHanging)
			}
			writeParagraphProps(el, &props, true)
			writeRunProps(el, &st.Run)
		case StyleCharacter:
			writeRunProps(el, &st.Run)
		case StyleTable:
			tblPr := el.CreateElement("w:tblPr")
			if !st.Borders.Empty() {
				b := st.Borders
				writeBorders(tblPr, "w:tblBorders", b, true)
			}
			mar := tblPr.CreateElement("w:tblCellMar")
			for _, side := range []string{"w:left", "w:right"} {
				m := mar.CreateElement(side)
				m.CreateAttr("w:w", "108")
				m.CreateAttr("w:type", "dxa")
			}
		}
	}
	return doc
}
