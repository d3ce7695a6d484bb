// Package docx is an in-memory WordprocessingML document model and writer.
// Measurements in the model are in points, conversion to twips and EMU
// happens when document is written.
package docx

import (
	"strings"
)

// Alignment is paragraph justification.
type Alignment string

const (
	AlignNone    Alignment = ""
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "both"
)

// Border is a single side of paragraph or cell border.
type Border struct {
	Style string // WordprocessingML border type ("single", "dotted", ...)
	Size  int    // eighths of a point
	Space int    // points
	Color string // "RRGGBB" or "auto"
}

// Borders holds optional sides, nil side is not written.
type Borders struct {
	Top, Left, Bottom, Right *Border
}

// Empty reports whether no side is set.
func (b Borders) Empty() bool {
	return b.Top == nil && b.Left == nil && b.Bottom == nil && b.Right == nil
}

// block is body level content: *Paragraph or *Table.
type block interface {
	isBlock()
}

// container is shared implementation of document body and table cell.
type container struct {
	doc    *Document
	blocks []block
}

// AddParagraph appends empty paragraph.
func (c *container) AddParagraph() *Paragraph {
	p := &Paragraph{doc: c.doc}
	c.blocks = append(c.blocks, p)
	return p
}

// AddTable appends table of rows x cols empty cells.
func (c *container) AddTable(rows, cols int) *Table {
	t := newTable(c.doc, rows, cols)
	c.blocks = append(c.blocks, t)
	return t
}

// Paragraphs returns top level paragraphs in order.
func (c *container) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, b := range c.blocks {
		if p, ok := b.(*Paragraph); ok {
			out = append(out, p)
		}
	}
	return out
}

// Tables returns top level tables in order.
func (c *container) Tables() []*Table {
	var out []*Table
	for _, b := range c.blocks {
		if t, ok := b.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// Len returns number of blocks.
func (c *container) Len() int {
	return len(c.blocks)
}

// ParagraphProps are direct paragraph formatting properties. Nil pointers
// mean "inherit from style".
type ParagraphProps struct {
	Style           string // style id
	Align           Alignment
	IndentLeft      *float64
	IndentRight     *float64
	FirstLine       *float64 // negative value is hanging indent
	SpaceBefore     *float64
	SpaceAfter      *float64
	LineMultiple    float64 // line spacing as multiple of single line
	LineExact       float64 // line spacing in points, wins over LineMultiple
	Shading         string
	Borders         Borders
	PageBreakBefore bool
	KeepNext        bool
	NumID           int
	Level           int
}

// Paragraph is a block of runs, hyperlinks and bookmarks.
type Paragraph struct {
	doc     *Document
	Props   ParagraphProps
	content []inline
}

func (*Paragraph) isBlock() {}

// inline is paragraph content: *Run, *Hyperlink or *bookmark.
type inline interface {
	isInline()
}

type bookmark struct {
	id   int
	name string
}

func (*bookmark) isInline() {}

// AddRun appends run with text.
func (p *Paragraph) AddRun(text string) *Run {
	r := &Run{doc: p.doc}
	if text != "" {
		r.AddText(text)
	}
	p.content = append(p.content, r)
	return r
}

// AddHyperlink appends hyperlink. External links point to target URL,
// internal ones to bookmark named target.
func (p *Paragraph) AddHyperlink(target, tooltip string, external bool) *Hyperlink {
	h := &Hyperlink{doc: p.doc, Target: target, Tooltip: tooltip, External: external}
	if external {
		h.relID = p.doc.relate(relHyperlink, target, true)
	}
	p.content = append(p.content, h)
	return h
}

// AddBookmark places empty bookmark with name at current position.
func (p *Paragraph) AddBookmark(name string) {
	p.doc.bookmarks++
	p.content = append(p.content, &bookmark{id: p.doc.bookmarks, name: name})
}

// AddPageBreak appends run with page break.
func (p *Paragraph) AddPageBreak() {
	p.AddRun("").AddBreak(BreakPage)
}

// ApplyStyle sets named paragraph style. Unknown style names are reported by
// returning false and paragraph keeps its style.
func (p *Paragraph) ApplyStyle(name string) bool {
	st, ok := p.doc.LookupStyle(name, StyleParagraph)
	if !ok {
		return false
	}
	p.Props.Style = st.ID
	return true
}

// StyleName returns name of applied style, empty for default.
func (p *Paragraph) StyleName() string {
	if st, ok := p.doc.styleByID[p.Props.Style]; ok {
		return st.Name
	}
	return ""
}

// SetNumbering attaches paragraph to numbering instance.
func (p *Paragraph) SetNumbering(numID, level int) {
	p.Props.NumID, p.Props.Level = numID, level
}

// Runs returns all runs including those inside hyperlinks.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for _, c := range p.content {
		switch v := c.(type) {
		case *Run:
			out = append(out, v)
		case *Hyperlink:
			out = append(out, v.runs...)
		}
	}
	return out
}

// Hyperlinks returns paragraph hyperlinks.
func (p *Paragraph) Hyperlinks() []*Hyperlink {
	var out []*Hyperlink
	for _, c := range p.content {
		if h, ok := c.(*Hyperlink); ok {
			out = append(out, h)
		}
	}
	return out
}

// Bookmarks returns names of paragraph bookmarks.
func (p *Paragraph) Bookmarks() []string {
	var out []string
	for _, c := range p.content {
		if b, ok := c.(*bookmark); ok {
			out = append(out, b.name)
		}
	}
	return out
}

// Text returns paragraph text, breaks are returned as new lines.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// Hyperlink groups runs pointing to the same target.
type Hyperlink struct {
	Target   string
	Tooltip  string
	External bool

	doc   *Document
	relID string
	runs  []*Run
}

func (*Hyperlink) isInline() {}

// AddRun appends run with text to hyperlink.
func (h *Hyperlink) AddRun(text string) *Run {
	r := &Run{doc: h.doc}
	if text != "" {
		r.AddText(text)
	}
	h.runs = append(h.runs, r)
	return r
}

// Runs returns hyperlink runs.
func (h *Hyperlink) Runs() []*Run {
	return h.runs
}

// BreakType is kind of break inside run.
type BreakType int

const (
	BreakLine BreakType = iota
	BreakPage
)

// RunProps are direct character formatting properties.
type RunProps struct {
	Style     string // character style id
	Bold      bool
	Italic    bool
	Underline string // WordprocessingML underline type, empty for none
	UColor    string // underline color
	Strike    bool
	Size      float64 // points
	Color     string  // "RRGGBB"
	Font      string
	Highlight string // named highlight color
	Shading   string // background fill "RRGGBB"
	Caps      bool
	SmallCaps bool
	VertAlign string // "superscript", "subscript"
}

type runPartKind int

const (
	partText runPartKind = iota
	partBreak
	partPageBreak
	partTab
)

type runPart struct {
	kind runPartKind
	text string
}

// Run is a span of uniformly formatted text or a picture.
type Run struct {
	Props   RunProps
	doc     *Document
	parts   []runPart
	picture *Picture
}

func (*Run) isInline() {}

// AddText appends text. Tabs and new lines become tab and break elements.
func (r *Run) AddText(text string) {
	for len(text) > 0 {
		i := strings.IndexAny(text, "\t\n")
		if i < 0 {
			r.appendText(text)
			return
		}
		r.appendText(text[:i])
		if text[i] == '\t' {
			r.parts = append(r.parts, runPart{kind: partTab})
		} else {
			r.parts = append(r.parts, runPart{kind: partBreak})
		}
		text = text[i+1:]
	}
}

func (r *Run) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(r.parts); n > 0 && r.parts[n-1].kind == partText {
		r.parts[n-1].text += s
		return
	}
	r.parts = append(r.parts, runPart{kind: partText, text: s})
}

// AddBreak appends line or page break.
func (r *Run) AddBreak(t BreakType) {
	if t == BreakPage {
		r.parts = append(r.parts, runPart{kind: partPageBreak})
		return
	}
	r.parts = append(r.parts, runPart{kind: partBreak})
}

// Text returns run text with breaks as new lines and tabs as tabs.
func (r *Run) Text() string {
	var sb strings.Builder
	for _, p := range r.parts {
		switch p.kind {
		case partText:
			sb.WriteString(p.text)
		case partBreak:
			sb.WriteByte('\n')
		case partTab:
			sb.WriteByte('\t')
		}
	}
	return sb.String()
}

// Picture returns inline picture of the run, if any.
func (r *Run) Picture() *Picture {
	return r.picture
}

// Empty reports whether run has neither text nor picture.
func (r *Run) Empty() bool {
	return len(r.parts) == 0 && r.picture == nil
}
