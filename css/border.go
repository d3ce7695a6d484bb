package css

import (
	"strings"
)

// BorderStyle is line style in WordprocessingML terms.
type BorderStyle string

const (
	BorderNone   BorderStyle = "none"
	BorderSingle BorderStyle = "single"
	BorderDotted BorderStyle = "dotted"
	BorderDashed BorderStyle = "dashed"
	BorderDouble BorderStyle = "double"
	BorderInset  BorderStyle = "inset"
	BorderOutset BorderStyle = "outset"
)

var borderStyles = map[string]BorderStyle{
	"none":    BorderNone,
	"hidden":  BorderNone,
	"initial": BorderNone,
	"solid":   BorderSingle,
	"dotted":  BorderDotted,
	"dashed":  BorderDashed,
	"double":  BorderDouble,
	"inset":   BorderInset,
	"outset":  BorderOutset,
}

var borderWidthKeywords = map[string]string{
	"thin":   "1px",
	"medium": "3px",
	"thick":  "5px",
	"0":      "0px",
}

// defaultBorderSize is used when style or color were given without width.
const defaultBorderSize = 1.0

// BorderSide describes one side of a box. Size is in points, side with zero
// size must not be emitted.
type BorderSide struct {
	Size  float64
	Style BorderStyle
	Color RGB
}

// Visible reports whether side should be written to the document.
func (s BorderSide) Visible() bool {
	return s.Size > 0 && s.Style != BorderNone
}

// Eighths returns size in eighths of a point as WordprocessingML expects.
func (s BorderSide) Eighths() int {
	return int(s.Size*8 + 0.5)
}

func defaultBorderSide() BorderSide {
	return BorderSide{Style: BorderSingle, Color: Black}
}

// Border is per-side border specification.
type Border struct {
	Top, Right, Bottom, Left BorderSide
}

// NewBorder returns all-invisible border.
func NewBorder() Border {
	d := defaultBorderSide()
	return Border{Top: d, Right: d, Bottom: d, Left: d}
}

// Any reports whether at least one side is visible.
func (b Border) Any() bool {
	return b.Top.Visible() || b.Right.Visible() || b.Bottom.Visible() || b.Left.Visible()
}

// Sides returns pointers to sides in top, right, bottom, left order.
func (b *Border) Sides() []*BorderSide {
	return []*BorderSide{&b.Top, &b.Right, &b.Bottom, &b.Left}
}

func (b *Border) side(name string) *BorderSide {
	switch name {
	case "top":
		return &b.Top
	case "right":
		return &b.Right
	case "bottom":
		return &b.Bottom
	case "left":
		return &b.Left
	}
	return nil
}

// ParseBorderStyle maps CSS border-style keyword, unknown keywords give
// BorderNone.
func ParseBorderStyle(value string) BorderStyle {
	if s, ok := borderStyles[strings.ToLower(strings.TrimSpace(value))]; ok {
		return s
	}
	return BorderNone
}

// ParseBorderWidth converts border width (including thin/medium/thick) to
// points.
func ParseBorderWidth(value string) (float64, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if kw, ok := borderWidthKeywords[value]; ok {
		value = kw
	}
	if strings.HasSuffix(value, "%") {
		return 0, false
	}
	pt, ok := ConvertUnit(value)
	if !ok || pt < 0 {
		return 0, false
	}
	return pt, true
}

// ParseBorderValue parses "<size> <style> <color>" with parts in any order.
// When only style or color is present size defaults to 1pt so border stays
// visible. Empty value and "none" give invisible side.
func ParseBorderValue(value string) BorderSide {
	side := defaultBorderSide()

	tokens := splitValueTokens(stripImportant(value))
	if len(tokens) == 0 {
		return side
	}
	if len(tokens) == 1 && strings.EqualFold(tokens[0], "none") {
		side.Style = BorderNone
		return side
	}

	var haveSize, haveOther bool
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if size, ok := ParseBorderWidth(lower); ok {
			side.Size, haveSize = size, true
			continue
		}
		if st, ok := borderStyles[lower]; ok {
			side.Style, haveOther = st, true
			continue
		}
		if c, ok := LookupColor(lower); ok {
			side.Color, haveOther = c, true
		}
	}
	if !haveSize && haveOther && side.Style != BorderNone {
		side.Size = defaultBorderSize
	}
	return side
}

// ResolveBorder builds per-side border from all border related properties
// of style, later declarations override earlier ones property by property.
func ResolveBorder(style *Style) Border {
	b := NewBorder()
	for name, prop := range style.All() {
		if strings.HasPrefix(name, "border") {
			b.Apply(name, prop.Value)
		}
	}
	return b
}

// Apply applies single border declaration.
func (b *Border) Apply(property, value string) {
	value = strings.TrimSpace(stripImportant(value))

	switch property {
	case "border":
		b.applyShorthand(value)
		return
	case "border-width":
		b.fanOut(value, func(s *BorderSide, tok string) {
			if size, ok := ParseBorderWidth(tok); ok {
				s.Size = size
			}
		})
		return
	case "border-style":
		b.fanOut(value, func(s *BorderSide, tok string) {
			s.Style = ParseBorderStyle(tok)
			if s.Size == 0 && s.Style != BorderNone {
				s.Size = defaultBorderSize
			}
		})
		return
	case "border-color":
		b.fanOut(value, func(s *BorderSide, tok string) {
			s.Color = ParseColor(tok)
		})
		return
	}

	// border-<side>[-<prop>]
	rest, ok := strings.CutPrefix(property, "border-")
	if !ok {
		return
	}
	sideName, prop, _ := strings.Cut(rest, "-")
	s := b.side(sideName)
	if s == nil {
		return
	}
	switch prop {
	case "":
		*s = ParseBorderValue(value)
	case "width":
		if size, ok := ParseBorderWidth(value); ok {
			s.Size = size
		}
	case "style":
		s.Style = ParseBorderStyle(value)
		if s.Size == 0 && s.Style != BorderNone {
			s.Size = defaultBorderSize
		}
	case "color":
		s.Color = ParseColor(value)
	}
}

// applyShorthand handles "border". One or three tokens describe every side,
// two tokens are top/bottom and left/right, four tokens go clockwise from top.
func (b *Border) applyShorthand(value string) {
	tokens := splitValueTokens(value)
	switch len(tokens) {
	case 2:
		v, h := ParseBorderValue(tokens[0]), ParseBorderValue(tokens[1])
		b.Top, b.Bottom, b.Left, b.Right = v, v, h, h
	case 4:
		b.Top = ParseBorderValue(tokens[0])
		b.Right = ParseBorderValue(tokens[1])
		b.Bottom = ParseBorderValue(tokens[2])
		b.Left = ParseBorderValue(tokens[3])
	default:
		side := ParseBorderValue(value)
		b.Top, b.Right, b.Bottom, b.Left = side, side, side, side
	}
}

// fanOut distributes 1-4 box values over sides using CSS clockwise rules.
func (b *Border) fanOut(value string, set func(*BorderSide, string)) {
	tokens := splitValueTokens(value)
	top, right, bottom, left, ok := expandBox(tokens)
	if !ok {
		return
	}
	set(&b.Top, top)
	set(&b.Right, right)
	set(&b.Bottom, bottom)
	set(&b.Left, left)
}

// expandBox expands 1-4 values into top, right, bottom, left.
func expandBox(tokens []string) (top, right, bottom, left string, ok bool) {
	switch len(tokens) {
	case 1:
		return tokens[0], tokens[0], tokens[0], tokens[0], true
	case 2:
		return tokens[0], tokens[1], tokens[0], tokens[1], true
	case 3:
		return tokens[0], tokens[1], tokens[2], tokens[1], true
	case 4:
		return tokens[0], tokens[1], tokens[2], tokens[3], true
	}
	return "", "", "", "", false
}

// ExpandBox is exported form of expandBox for margin and padding shorthands.
func ExpandBox(value string) (top, right, bottom, left string, ok bool) {
	return expandBox(splitValueTokens(stripImportant(value)))
}

// splitValueTokens splits value on whitespace keeping function arguments
// ("rgb(1, 2, 3)") together.
func splitValueTokens(value string) []string {
	var (
		tokens []string
		cur    strings.Builder
		depth  int
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range value {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case (r == ' ' || r == '\t' || r == '\n' || r == '\r') && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
