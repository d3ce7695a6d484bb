package transform

import (
	"iter"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"

	"hdx/content"
	"hdx/css"
	"hdx/docx"
)

// styleScope is formatting open element contributes to runs created while
// it is open.
type styleScope struct {
	tag               string
	inline            bool
	normal, important *css.Style
}

// properties which describe the box of block element and never reach runs
var boxOnly = map[string]bool{
	"background-color": true,
	"background":       true,
	"vertical-align":   true,
}

func runLevel(name string) bool {
	switch name {
	case "color", "font-size", "font-weight", "font-style", "font-family", "font-variant",
		"text-decoration", "text-decoration-line", "text-transform",
		"background-color", "background", "vertical-align":
		return true
	}
	return false
}

func runDeclarations(st *css.Style, inline bool) *css.Style {
	out := css.NewStyle()
	for name, d := range st.All() {
		if runLevel(name) && (inline || !boxOnly[name]) {
			out.Set(d)
		}
	}
	return out
}

func scopeOf(ec *elementContext) *styleScope {
	inline := ec.kind == kindInline
	return &styleScope{
		tag:       ec.tag,
		inline:    inline,
		normal:    runDeclarations(ec.normal, inline),
		important: runDeclarations(ec.important, inline),
	}
}

func (s *session) pushScope(ec *elementContext) {
	s.scopes = append(s.scopes, scopeOf(ec))
	s.runProps = nil
}

// openScopes iterates inherited scopes and then own ones, outer first.
func (s *session) openScopes() iter.Seq[*styleScope] {
	return func(yield func(*styleScope) bool) {
		for _, sc := range s.inherited {
			if !yield(sc) {
				return
			}
		}
		for _, sc := range s.scopes {
			if !yield(sc) {
				return
			}
		}
	}
}

func (s *session) popScope() {
	if n := len(s.scopes); n > 0 {
		s.scopes = s.scopes[:n-1]
	}
	s.runProps = nil
}

// runStyle folds open scopes: block cascade, then span cascade, then
// important declarations in the same order. Inner scope wins within each
// pass and outer important declaration is never overridden by inner
// normal one.
func (s *session) runStyle() *css.Style {
	out := css.NewStyle()
	for _, pass := range []struct {
		inline, important bool
	}{{false, false}, {true, false}, {false, true}, {true, true}} {
		for sc := range s.openScopes() {
			if sc.inline != pass.inline {
				continue
			}
			if pass.important {
				out.Merge(sc.important)
			} else {
				out.Merge(sc.normal)
			}
		}
	}
	return out
}

// currentRunProps returns formatting for new run: tag defaults of every open
// element and then cascade on top of them.
func (s *session) currentRunProps() docx.RunProps {
	if s.runProps == nil {
		var rp docx.RunProps
		for sc := range s.openScopes() {
			applyTagDefaults(&rp, sc.tag)
		}
		if s.link != nil {
			if st, ok := s.t.doc.LookupStyle("Hyperlink", docx.StyleCharacter); ok {
				rp.Style = st.ID
			}
		}
		style := s.runStyle()
		s.applyRunStyle(&rp, style)
		s.runProps = &rp
		s.transform = strings.ToLower(strings.TrimSpace(style.Value("text-transform")))
	}
	return *s.runProps
}

func applyTagDefaults(rp *docx.RunProps, tag string) {
	switch tag {
	case "b", "strong", "th":
		rp.Bold = true
	case "i", "em", "cite", "dfn", "var":
		rp.Italic = true
	case "u", "ins":
		rp.Underline = "single"
	case "s", "strike", "del":
		rp.Strike = true
	case "sup":
		rp.VertAlign = "superscript"
	case "sub":
		rp.VertAlign = "subscript"
	case "code", "pre", "kbd", "samp", "tt":
		rp.Font = "Courier"
	case "mark":
		rp.Highlight = "yellow"
	}
}

var genericFonts = map[string]string{
	"monospace":  "Courier New",
	"serif":      "Times New Roman",
	"sans-serif": "Arial",
	"cursive":    "Comic Sans MS",
}

func (s *session) applyRunStyle(rp *docx.RunProps, st *css.Style) {
	for name, d := range st.All() {
		value := strings.TrimSpace(d.Value)
		lower := strings.ToLower(value)
		switch name {
		case "color":
			if c, ok := css.LookupColor(value); ok {
				rp.Color = c.Hex()
			} else {
				s.t.warn("invalid color %q", value)
			}
		case "font-size":
			if size, ok := css.FontSize(value); ok && size > 0 {
				rp.Size = size
			} else {
				s.t.warn("unsupported font-size %q", value)
			}
		case "font-weight":
			switch lower {
			case "bold", "bolder", "600", "700", "800", "900":
				rp.Bold = true
			case "normal", "lighter", "100", "200", "300", "400", "500":
				rp.Bold = false
			default:
				s.t.warn("unsupported font-weight %q", value)
			}
		case "font-style":
			rp.Italic = lower == "italic" || lower == "oblique"
		case "font-variant":
			rp.SmallCaps = lower == "small-caps"
		case "font-family":
			if font := firstFontFamily(value); font != "" {
				rp.Font = font
			}
		case "text-decoration", "text-decoration-line":
			td := css.ParseTextDecoration(value)
			for _, w := range td.Warnings {
				s.t.warn("%s", w)
			}
			switch td.Line {
			case css.LineUnderline:
				rp.Underline = td.Style
				if td.Color != nil {
					rp.UColor = td.Color.Hex()
				}
			case css.LineThrough:
				rp.Strike = true
			case css.LineNone:
				rp.Underline, rp.UColor, rp.Strike = "", "", false
			}
		case "background-color", "background":
			if lower == "transparent" || lower == "none" || lower == "inherit" {
				rp.Shading = ""
				continue
			}
			if c, ok := backgroundColor(value); ok {
				rp.Shading = c.Hex()
			}
		case "vertical-align":
			switch lower {
			case "super", "top", "text-top":
				rp.VertAlign = "superscript"
			case "sub", "bottom", "text-bottom":
				rp.VertAlign = "subscript"
			case "baseline":
				rp.VertAlign = ""
			}
		}
	}
}

// firstFontFamily returns first family of the list, generic families are
// replaced with common fonts.
func firstFontFamily(value string) string {
	first, _, _ := strings.Cut(value, ",")
	first = strings.TrimSpace(css.Unquote(strings.TrimSpace(first)))
	if font, ok := genericFonts[strings.ToLower(first)]; ok {
		return font
	}
	return first
}

// backgroundColor finds color in background or background-color value.
func backgroundColor(value string) (css.RGB, bool) {
	if c, ok := css.LookupColor(value); ok {
		return c, true
	}
	for _, tok := range strings.Fields(value) {
		if css.IsColor(tok) {
			if c, ok := css.LookupColor(tok); ok {
				return c, true
			}
		}
	}
	return css.RGB{}, false
}

func (s *session) applyTextTransform(text string) string {
	s.currentRunProps()
	switch s.transform {
	case "uppercase":
		return cases.Upper(s.t.lang).String(text)
	case "lowercase":
		return cases.Lower(s.t.lang).String(text)
	case "capitalize":
		return cases.Title(s.t.lang, cases.NoLower).String(text)
	}
	return text
}

// box collects four sides of margin or padding following declaration order.
type box struct {
	top, right, bottom, left string
}

func boxOf(st *css.Style, prop string) box {
	var b box
	for name, d := range st.All() {
		switch name {
		case prop:
			if t, r, bt, l, ok := css.ExpandBox(d.Value); ok {
				b = box{t, r, bt, l}
			}
		case prop + "-top":
			b.top = d.Value
		case prop + "-right":
			b.right = d.Value
		case prop + "-bottom":
			b.bottom = d.Value
		case prop + "-left":
			b.left = d.Value
		}
	}
	return b
}

// length converts CSS length to points, percentages are relative to base.
// Result is clamped to configured maximum.
func (s *session) length(value string, base float64) (float64, bool) {
	num, unit, ok := css.SplitLength(value)
	if !ok {
		return 0, false
	}
	var pt float64
	if unit == "%" {
		pt = num * base / 100
	} else if pt, ok = css.ConvertUnitMax(value, 0); !ok {
		return 0, false
	}
	return min(pt, s.t.settings.MaxLength), true
}

func isAuto(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "auto")
}

// applyParagraphStyle sets paragraph level properties of element. Box
// properties of table cells belong to the cell.
func (s *session) applyParagraphStyle(p *docx.Paragraph, ec *elementContext) {
	st := ec.resolved
	pp := &p.Props
	width := s.t.doc.PrintableWidth()

	switch ec.tag {
	case "center":
		pp.Align = docx.AlignCenter
	}
	if v := strings.ToLower(strings.TrimSpace(st.Value("text-align"))); v != "" {
		switch v {
		case "left", "start":
			pp.Align = docx.AlignLeft
		case "center":
			pp.Align = docx.AlignCenter
		case "right", "end":
			pp.Align = docx.AlignRight
		case "justify":
			pp.Align = docx.AlignJustify
		default:
			s.t.warn("unsupported text-align %q", v)
		}
	}

	if v := st.Value("text-indent"); v != "" {
		if pt, ok := s.length(v, width); ok && pt >= 0 {
			pp.FirstLine = &pt
		}
	}

	if v := strings.TrimSpace(st.Value("line-height")); v != "" && !strings.EqualFold(v, "normal") {
		num, unit, ok := css.SplitLength(v)
		switch {
		case !ok:
			s.t.warn("unsupported line-height %q", v)
		case unit == "":
			pp.LineMultiple = num
		case unit == "%":
			pp.LineMultiple = num / 100
		default:
			if pt, ok := css.ConvertUnitMax(v, 0); ok {
				pp.LineExact = pt
			}
		}
	}

	if pageBreakBefore(st) {
		pp.PageBreakBefore = true
	}

	if ec.cell {
		return
	}

	margin := boxOf(st, "margin")
	if isAuto(margin.left) && isAuto(margin.right) {
		pp.Align = docx.AlignCenter
	}
	if pt, ok := s.length(margin.left, width); ok && pt >= 0 {
		pp.IndentLeft = &pt
	}
	if pt, ok := s.length(margin.right, width); ok && pt >= 0 {
		pp.IndentRight = &pt
	}
	if pt, ok := s.length(margin.top, width); ok && pt >= 0 {
		pp.SpaceBefore = &pt
	}
	if pt, ok := s.length(margin.bottom, width); ok && pt >= 0 {
		pp.SpaceAfter = &pt
	}
	if pt, ok := s.length(boxOf(st, "padding").left, width); ok && pt > 0 {
		left := pt
		if pp.IndentLeft != nil {
			left += *pp.IndentLeft
		}
		left = min(left, s.t.settings.MaxLength)
		pp.IndentLeft = &left
	}

	if v := st.Value("background-color"); v != "" {
		if c, ok := backgroundColor(v); ok {
			pp.Shading = c.Hex()
		}
	} else if v := st.Value("background"); v != "" {
		if c, ok := backgroundColor(v); ok {
			pp.Shading = c.Hex()
		}
	}

	if b := css.ResolveBorder(st); b.Any() {
		pp.Borders = documentBorders(b)
	}
}

// documentBorders converts visible sides.
func documentBorders(b css.Border) docx.Borders {
	side := func(s css.BorderSide) *docx.Border {
		if !s.Visible() {
			return nil
		}
		return &docx.Border{Style: string(s.Style), Size: max(s.Eighths(), 2), Space: 1, Color: s.Color.Hex()}
	}
	return docx.Borders{Top: side(b.Top), Left: side(b.Left), Bottom: side(b.Bottom), Right: side(b.Right)}
}

func pageBreakBefore(st *css.Style) bool {
	return strings.EqualFold(strings.TrimSpace(st.Value("page-break-before")), "always") ||
		strings.EqualFold(strings.TrimSpace(st.Value("break-before")), "page")
}

func pageBreakAfter(st *css.Style) bool {
	return strings.EqualFold(strings.TrimSpace(st.Value("page-break-after")), "always") ||
		strings.EqualFold(strings.TrimSpace(st.Value("break-after")), "page")
}

var knownProperties = map[string]bool{
	"text-align": true, "text-indent": true, "line-height": true,
	"page-break-before": true, "page-break-after": true, "break-before": true, "break-after": true,
	"page-break-inside": true, "break-inside": true,
	"width": true, "height": true, "max-width": true, "min-width": true, "max-height": true, "min-height": true,
	"float": true, "display": true, "white-space": true, "text-decoration-style": true, "text-decoration-color": true,
	"border-collapse": true, "border-spacing": true, "list-style": true, "list-style-type": true,
	"letter-spacing": true, "word-spacing": true, "font": true, "visibility": true, "overflow": true,
}

// knownProperty reports whether property is converted or deliberately
// ignored, everything else is reported as unsupported.
func knownProperty(name string) bool {
	if knownProperties[name] || runLevel(name) {
		return true
	}
	for _, prefix := range []string{"margin", "padding", "border", "-webkit-", "-moz-", "-ms-"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// html font sizes 1..7
var fontSizes = []string{"x-small", "small", "medium", "large", "x-large", "xx-large", "36pt"}

// presentationalHints turns legacy formatting attributes into declarations.
func presentationalHints(n *html.Node, tag string) *css.Style {
	hints := css.NewStyle()
	set := func(prop, value string) {
		if value = strings.TrimSpace(value); value != "" {
			hints.Set(css.Declaration{Property: prop, Value: value})
		}
	}
	length := func(v string) string {
		v = strings.TrimSpace(v)
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v + "px"
		}
		return v
	}

	switch tag {
	case "font":
		set("color", content.Attr(n, "color"))
		set("font-family", content.Attr(n, "face"))
		if size := strings.TrimSpace(content.Attr(n, "size")); size != "" {
			set("font-size", htmlFontSize(size))
		}
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "td", "th", "tr", "caption":
		set("text-align", content.Attr(n, "align"))
	}

	switch tag {
	case "body", "table", "tr", "td", "th":
		set("background-color", content.Attr(n, "bgcolor"))
	}

	switch tag {
	case "td", "th", "tr":
		set("vertical-align", content.Attr(n, "valign"))
	}

	switch tag {
	case "td", "th", "table", "img":
		set("width", length(content.Attr(n, "width")))
	}
	switch tag {
	case "td", "th", "tr", "img":
		set("height", length(content.Attr(n, "height")))
	}
	return hints
}

func htmlFontSize(v string) string {
	base := 3
	rel := strings.HasPrefix(v, "+") || strings.HasPrefix(v, "-")
	n, err := strconv.Atoi(v)
	if err != nil {
		return ""
	}
	if rel {
		n += base
	}
	n = min(max(n, 1), len(fontSizes))
	return fontSizes[n-1]
}
