package css

import (
	"strings"
)

// DecorationLine is kind of text decoration line.
type DecorationLine int

const (
	LineUnset DecorationLine = iota
	LineNone
	LineUnderline
	LineThrough
)

// underline styles in WordprocessingML terms
var decorationStyles = map[string]string{
	"solid":  "single",
	"double": "double",
	"dotted": "dotted",
	"dashed": "dash",
	"wavy":   "wave",
}

// TextDecoration is parsed "text-decoration" value.
type TextDecoration struct {
	Line  DecorationLine
	Style string // WordprocessingML underline value, "single" by default
	Color *RGB
	// Warnings describes parts of the value which cannot be represented.
	Warnings []string
}

// ParseTextDecoration parses text-decoration shorthand. Parts may come in
// any order. Overline and blink are not supported and are reported in
// Warnings, as is the color of line-through.
func ParseTextDecoration(value string) TextDecoration {
	td := TextDecoration{Style: "single"}

	for _, tok := range splitValueTokens(stripImportant(value)) {
		lower := strings.ToLower(tok)
		switch lower {
		case "underline":
			td.Line = LineUnderline
			continue
		case "line-through":
			td.Line = LineThrough
			continue
		case "none":
			td.Line = LineNone
			continue
		case "overline", "blink":
			td.Warnings = append(td.Warnings, "text-decoration "+lower+" is not supported")
			continue
		}
		if st, ok := decorationStyles[lower]; ok {
			td.Style = st
			continue
		}
		if IsColor(lower) {
			if c, ok := LookupColor(lower); ok {
				td.Color = &c
			}
		}
	}

	if td.Line == LineThrough && td.Color != nil {
		td.Warnings = append(td.Warnings, "colored line-through is not supported, color "+td.Color.String()+" ignored")
		td.Color = nil
	}
	return td
}
