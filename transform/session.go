package transform

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"hdx/content"
	"hdx/css"
	"hdx/docx"
	"hdx/numbering"
)

// blockContainer is where session appends paragraphs and tables: document
// body or table cell.
type blockContainer interface {
	AddParagraph() *docx.Paragraph
	AddTable(rows, cols int) *docx.Table
	Len() int
}

type elementKind int

const (
	kindInline elementKind = iota
	kindParagraph
	kindList
	kindItem
	kindContainer
	kindRoot
	kindBreak
	kindRule
	kindImage
	kindTable
)

var skipTags = map[string]bool{
	"head": true, "script": true, "style": true, "title": true, "template": true, "noscript": true,
	"svg": true, "math": true, "iframe": true, "object": true, "canvas": true, "colgroup": true,
}

var elementKinds = map[string]elementKind{
	"html": kindRoot, "body": kindRoot,
	"p": kindParagraph, "div": kindParagraph, "pre": kindParagraph, "blockquote": kindParagraph,
	"address": kindParagraph, "center": kindParagraph, "section": kindParagraph, "article": kindParagraph,
	"header": kindParagraph, "footer": kindParagraph, "nav": kindParagraph, "aside": kindParagraph,
	"main": kindParagraph, "figure": kindParagraph, "figcaption": kindParagraph, "dt": kindParagraph,
	"dd": kindParagraph, "details": kindParagraph, "summary": kindParagraph, "fieldset": kindParagraph,
	"legend": kindParagraph, "hgroup": kindParagraph, "form": kindParagraph, "caption": kindParagraph,
	"td": kindParagraph, "th": kindParagraph,
	"h1": kindParagraph, "h2": kindParagraph, "h3": kindParagraph,
	"h4": kindParagraph, "h5": kindParagraph, "h6": kindParagraph,
	"ul": kindList, "ol": kindList, "menu": kindList, "dir": kindList, "li": kindItem,
	"br": kindBreak, "hr": kindRule, "img": kindImage, "table": kindTable,
	"dl": kindContainer, "thead": kindContainer, "tbody": kindContainer, "tfoot": kindContainer, "tr": kindContainer,
}

func kindOf(tag string) elementKind {
	if k, ok := elementKinds[tag]; ok {
		return k
	}
	return kindInline
}

// elementContext is open element on tag stack.
type elementContext struct {
	node              *html.Node
	tag               string
	kind              elementKind
	el                css.Element
	normal, important *css.Style
	resolved          *css.Style

	opens      bool            // element starts its own paragraph
	inItem     bool            // block inside list item, continues item paragraphs
	para       *docx.Paragraph // paragraph opened by element
	childBlock bool            // nested block produced paragraphs
	breakAfter bool
	cell       bool // td/th, box properties belong to the cell
	list       *listState
	link       *linkContext
}

type tagStack []*elementContext

func (st *tagStack) push(ec *elementContext) {
	*st = append(*st, ec)
}

func (st *tagStack) pop() *elementContext {
	if len(*st) == 0 {
		return nil
	}
	ec := (*st)[len(*st)-1]
	*st = (*st)[:len(*st)-1]
	return ec
}

// opener returns innermost element which opens paragraphs.
func (st tagStack) opener() *elementContext {
	for i := len(st) - 1; i >= 0; i-- {
		if st[i].opens || st[i].kind == kindItem {
			return st[i]
		}
	}
	return nil
}

type listState struct {
	kind  numbering.Kind
	id    numbering.Identity
	depth int
}

type linkContext struct {
	target   string
	tooltip  string
	external bool

	para      *docx.Paragraph
	hyperlink *docx.Hyperlink
	prev      *linkContext
}

// session converts one tree into one block container. Table cells are
// converted by their own sessions.
type session struct {
	ctx       context.Context
	t         *Transformer
	out       blockContainer
	inherited []*styleScope // run formatting of elements outside session tree

	stack  tagStack
	skip   skipState
	scopes []*styleScope
	lists  []*listState
	items  int // open list items
	pre    int
	link   *linkContext

	para         *docx.Paragraph
	lineStart    bool
	pendingSpace bool
	runProps     *docx.RunProps // cached run formatting of current scopes
	transform    string         // text-transform of current scopes
}

func (t *Transformer) newSession(ctx context.Context, out blockContainer, inherited []*styleScope) *session {
	return &session{ctx: ctx, t: t, out: out, inherited: inherited}
}

func (s *session) log() *zap.Logger {
	return s.t.log
}

// newContext resolves cascade for element. Presentational attributes are
// weakest, stylesheet and inline style go on top of them.
func (s *session) newContext(n *html.Node) *elementContext {
	tag := tagOf(n)
	ec := &elementContext{node: n, tag: tag, kind: kindOf(tag), el: css.NewElement(n)}

	var inline *css.Style
	if s.t.settings.Styles {
		if v := content.Attr(n, "style"); strings.TrimSpace(v) != "" {
			inline = s.t.parser.ParseInline(v)
		}
	}
	normal, important := s.t.sheet.EffectiveStyles(ec.el, inline)
	if hints := presentationalHints(n, tag); hints.Len() > 0 {
		hints.Merge(normal)
		normal = hints
	}
	ec.normal, ec.important = normal, important
	ec.resolved = css.Resolved(normal, important)
	ec.cell = tag == "td" || tag == "th"

	for name := range ec.resolved.All() {
		if !knownProperty(name) {
			s.t.warn("css property %q is not supported", name)
		}
	}
	return ec
}

func (s *session) start(n *html.Node) error {
	tag := tagOf(n)
	switch {
	case skipTags[tag],
		tag == "img" && !s.t.settings.Images,
		tag == "table" && !s.t.settings.Tables:
		s.log().Debug("Skipping element", zap.String("tag", tag))
		s.skip.begin(tag)
		return nil
	}

	ec := s.newContext(n)
	switch ec.kind {
	case kindTable:
		if err := s.table(ec); err != nil {
			return err
		}
		// subtree is consumed, its events are not needed
		s.skip.begin(tag)
		return nil
	case kindParagraph:
		s.openBlock(ec)
	case kindList:
		s.openList(ec)
	case kindItem:
		s.openItem(ec)
	case kindContainer:
		if s.items == 0 {
			s.flowBreak()
		}
	case kindRule:
		s.rule(ec)
	}

	s.stack.push(ec)
	s.pushScope(ec)

	switch ec.kind {
	case kindBreak:
		s.lineBreak()
	case kindImage:
		s.image(ec)
	case kindInline:
		s.openInline(ec)
	case kindParagraph:
		if ec.el.ID != "" && !ec.opens {
			s.paragraph().AddBookmark(ec.el.ID)
		}
	}
	if ec.tag == "pre" {
		s.pre++
	}
	return nil
}

func (s *session) end(n *html.Node) {
	ec := s.stack.pop()
	if ec == nil || ec.node != n {
		// walker always produces balanced events
		s.log().Debug("Unbalanced end event", zap.String("tag", tagOf(n)))
		if ec != nil {
			s.stack.push(ec)
		}
		return
	}
	s.popScope()

	if ec.tag == "pre" {
		s.pre--
	}

	switch ec.kind {
	case kindParagraph:
		s.closeBlock(ec)
	case kindList:
		s.closeList(ec)
	case kindItem:
		s.items--
		s.endParagraph()
	case kindContainer:
		if s.items == 0 {
			s.endParagraph()
		}
	case kindInline:
		if ec.link != nil {
			s.link = ec.link.prev
		}
	}
}

// finish completes session output.
func (s *session) finish() {
	s.endParagraph()
}

// flowBreak ends current paragraph because block content follows.
func (s *session) flowBreak() {
	s.endParagraph()
	if op := s.stack.opener(); op != nil {
		op.childBlock = true
	}
}

func (s *session) endParagraph() {
	s.para = nil
	s.pendingSpace = false
}

func (s *session) newParagraph() *docx.Paragraph {
	p := s.out.AddParagraph()
	s.para = p
	s.lineStart = true
	s.pendingSpace = false
	return p
}

func (s *session) openBlock(ec *elementContext) {
	if s.items > 0 {
		// list item keeps its paragraph until there is text to separate
		ec.inItem = true
		if s.para != nil && !s.lineStart {
			s.flowBreak()
		}
		return
	}
	s.flowBreak()
	ec.opens = true
	ec.breakAfter = pageBreakAfter(ec.resolved)
}

func (s *session) closeBlock(ec *elementContext) {
	if ec.inItem {
		// following text goes to continuation paragraph
		s.flowBreak()
		return
	}
	if !ec.opens {
		return
	}
	if ec.para == nil && !ec.childBlock {
		// empty block still takes vertical space
		s.materialize(ec)
	}
	if ec.breakAfter {
		if p := s.para; p != nil {
			p.AddPageBreak()
		} else if ec.para != nil {
			ec.para.AddPageBreak()
		}
	}
	s.endParagraph()
}

// paragraph returns paragraph text goes to, creating one when necessary.
func (s *session) paragraph() *docx.Paragraph {
	if s.para != nil {
		return s.para
	}

	op := s.stack.opener()
	switch {
	case op == nil:
		p := s.newParagraph()
		s.applyNamedStyle(p, "")
		return p
	case op.para == nil && op.opens:
		return s.materialize(op)
	case op.para == nil:
		// list item paragraph is created when item starts
		p := s.newParagraph()
		s.applyNamedStyle(p, "")
		return p
	}

	// text after nested block continues element in new paragraph
	p := s.newParagraph()
	p.Props = op.para.Props
	p.Props.PageBreakBefore = false
	p.Props.Borders = docx.Borders{}
	if op.kind == kindItem {
		p.Props.NumID, p.Props.Level = 0, 0
		if !p.ApplyStyle("List Paragraph") {
			s.applyNamedStyle(p, "")
		}
	}
	return p
}

// materialize creates paragraph of block element.
func (s *session) materialize(ec *elementContext) *docx.Paragraph {
	p := s.newParagraph()
	s.applyNamedStyle(p, s.paragraphStyleName(ec, ""))
	s.applyParagraphStyle(p, ec)
	if ec.el.ID != "" {
		p.AddBookmark(ec.el.ID)
	}
	ec.para = p
	return p
}

var defaultParagraphStyles = map[string]string{
	"h1": "Heading 1", "h2": "Heading 2", "h3": "Heading 3",
	"h4": "Heading 4", "h5": "Heading 5", "h6": "Heading 6",
	"pre":     "HTML Preformatted",
	"caption": "Caption",
}

// paragraphStyleName picks named style: class from style map beats tag
// override which beats built-in tag style.
func (s *session) paragraphStyleName(ec *elementContext, fallback string) string {
	name := fallback
	if def, ok := defaultParagraphStyles[ec.tag]; ok {
		name = def
	}
	if over, ok := s.t.settings.TagOverride[ec.tag]; ok && over != "" {
		name = over
	}
	for _, class := range ec.el.Classes {
		if mapped, ok := s.t.settings.StyleMap[class]; ok && mapped != "" {
			name = mapped
			break
		}
	}
	return name
}

// applyNamedStyle applies style falling back to default one.
func (s *session) applyNamedStyle(p *docx.Paragraph, name string) {
	def := s.t.settings.DefaultStyle
	if name == "" {
		name = def
	}
	if p.ApplyStyle(name) {
		return
	}
	if name != def {
		s.t.warn("paragraph style %q not found, using %q", name, def)
		if p.ApplyStyle(def) {
			return
		}
	}
	s.t.warn("default paragraph style %q not found", def)
}

func (s *session) openList(ec *elementContext) {
	s.flowBreak()
	ls := &listState{kind: numbering.KindOf(ec.tag), depth: len(s.lists) + 1}
	if ls.kind == numbering.Number {
		ls.id = s.t.lists.Open()
	}
	ec.list = ls
	s.lists = append(s.lists, ls)
}

func (s *session) closeList(ec *elementContext) {
	if n := len(s.lists); n > 0 {
		s.lists = s.lists[:n-1]
	}
	if ec.list != nil && ec.list.id != numbering.NoList {
		s.t.lists.Close(ec.list.id)
	}
	s.endParagraph()
}

func (s *session) openItem(ec *elementContext) {
	s.flowBreak()

	kind, depth, id := numbering.Bullet, 1, numbering.NoList
	if n := len(s.lists); n > 0 {
		ls := s.lists[n-1]
		kind, depth, id = ls.kind, ls.depth, ls.id
	}
	style := numbering.StyleName(kind, depth)

	p := s.newParagraph()
	s.applyNamedStyle(p, s.paragraphStyleName(ec, style))
	if kind == numbering.Number {
		if id == numbering.NoList {
			// stray item inside ordered context without list
			id = s.t.lists.Open()
		}
		p.SetNumbering(s.t.lists.NumberingFor(id, style), min(depth, numbering.MaxDepth)-1)
	}
	s.applyParagraphStyle(p, ec)
	if ec.el.ID != "" {
		p.AddBookmark(ec.el.ID)
	}
	ec.para = p
	s.items++
}

func (s *session) openInline(ec *elementContext) {
	if ec.el.ID != "" {
		s.paragraph().AddBookmark(ec.el.ID)
	}
	if ec.tag != "a" {
		return
	}
	if name := strings.TrimSpace(content.Attr(ec.node, "name")); name != "" && name != ec.el.ID {
		s.paragraph().AddBookmark(name)
	}
	href := strings.TrimSpace(content.Attr(ec.node, "href"))
	if href == "" {
		return
	}
	lc := &linkContext{
		tooltip: content.Attr(ec.node, "title"),
		prev:    s.link,
	}
	if strings.HasPrefix(strings.ToLower(href), "http") {
		lc.target, lc.external = href, true
	} else {
		lc.target = strings.TrimPrefix(href, "#")
	}
	ec.link = lc
	s.link = lc
}

// addRun appends run at current position, inside hyperlink when link is
// open, and formats it from open scopes.
func (s *session) addRun() *docx.Run {
	p := s.paragraph()
	var r *docx.Run
	if lc := s.link; lc != nil {
		if lc.hyperlink == nil || lc.para != p {
			lc.hyperlink = p.AddHyperlink(lc.target, lc.tooltip, lc.external)
			lc.para = p
		}
		r = lc.hyperlink.AddRun("")
	} else {
		r = p.AddRun("")
	}
	r.Props = s.currentRunProps()
	return r
}

func (s *session) text(data string) {
	if s.pre > 0 {
		if data == "" {
			return
		}
		r := s.addRun()
		r.AddText(s.applyTextTransform(data))
		s.lineStart = strings.HasSuffix(data, "\n")
		return
	}

	data = collapseSpace(data)
	lead := strings.HasPrefix(data, " ")
	trail := strings.HasSuffix(data, " ")
	data = strings.Trim(data, " ")
	if data == "" {
		if s.para != nil && !s.lineStart && lead {
			s.pendingSpace = true
		}
		return
	}

	space := lead || s.pendingSpace
	r := s.addRun()
	if space && !s.lineStart {
		data = " " + data
	}
	r.AddText(s.applyTextTransform(data))
	s.lineStart = false
	s.pendingSpace = trail
}

// collapseSpace replaces runs of ASCII white space with single space, non
// breaking spaces are kept.
func collapseSpace(data string) string {
	var sb strings.Builder
	sb.Grow(len(data))
	space := false
	for _, r := range data {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

func (s *session) lineBreak() {
	s.addRun().AddBreak(docx.BreakLine)
	s.lineStart = true
	s.pendingSpace = false
}

// rule emits paragraph with bottom border only.
func (s *session) rule(ec *elementContext) {
	s.flowBreak()
	p := s.newParagraph()
	s.applyNamedStyle(p, s.paragraphStyleName(ec, ""))
	p.Props.Borders = docx.Borders{Bottom: &docx.Border{Style: "single", Size: 6, Space: 1, Color: "auto"}}
	if ec.el.ID != "" {
		p.AddBookmark(ec.el.ID)
	}
	s.endParagraph()
}

func (s *session) comment(data string) {
	if !s.t.settings.HTMLComments {
		return
	}
	data = strings.TrimSpace(data)
	if data == "" {
		return
	}
	s.flowBreak()
	p := s.newParagraph()
	s.applyNamedStyle(p, "")
	r := p.AddRun("# " + data)
	r.Props.Italic = true
	r.Props.Color = "008000"
	s.endParagraph()
}
