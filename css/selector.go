package css

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// UnsupportedSelectorError is returned for selectors which cannot be
// compiled or never match document elements.
type UnsupportedSelectorError struct {
	Selector string
	Reason   string
}

func (e *UnsupportedSelectorError) Error() string {
	return fmt.Sprintf("unsupported %s selector: %s", e.Reason, e.Selector)
}

// ParseSelector compiles single (not grouped) selector.
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, &UnsupportedSelectorError{Selector: raw, Reason: "empty"}
	}
	sel, err := cascadia.ParseWithPseudoElement(raw)
	if err != nil {
		return Selector{}, &UnsupportedSelectorError{Selector: raw, Reason: "malformed (" + err.Error() + ")"}
	}
	if pe := sel.PseudoElement(); pe != "" {
		return Selector{}, &UnsupportedSelectorError{Selector: raw, Reason: "pseudo-element ::" + pe}
	}

	out := Selector{Raw: raw, sel: sel}
	out.Element, out.ID, out.Classes = subject(raw)
	return out, nil
}

// subject extracts tag, id and classes of the rightmost compound selector.
// Anything inside attribute brackets and pseudo-class arguments is ignored,
// so keys found are always required by the selector.
func subject(raw string) (tag, id string, classes []string) {
	compound := raw[lastCombinator(raw):]

	var (
		kind  byte // 0 - tag, '.' - class, '#' - id, 'x' - skipped
		depth int
		cur   strings.Builder
	)
	flush := func() {
		name := cur.String()
		cur.Reset()
		if name == "" {
			return
		}
		switch kind {
		case 0:
			if name != "*" && !strings.Contains(name, "|") {
				tag = strings.ToLower(name)
			}
		case '.':
			classes = append(classes, name)
		case '#':
			id = name
		}
	}

	for i := 0; i < len(compound); i++ {
		ch := compound[i]
		switch {
		case depth > 0:
			switch ch {
			case '[', '(':
				depth++
			case ']', ')':
				depth--
			}
		case ch == '\\':
			if i+1 < len(compound) {
				i++
				cur.WriteByte(compound[i])
			}
		case ch == '.' || ch == '#':
			flush()
			kind = ch
		case ch == '[' || ch == '(':
			flush()
			kind = 'x'
			depth++
		case ch == ':':
			flush()
			kind = 'x'
		default:
			if kind != 'x' {
				cur.WriteByte(ch)
			}
		}
	}
	flush()
	return tag, id, classes
}

// lastCombinator returns start of the rightmost compound selector.
func lastCombinator(raw string) int {
	start, depth := 0, 0
	var quote byte
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\\':
			i++
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[' || ch == '(':
			depth++
		case ch == ']' || ch == ')':
			depth--
		case depth == 0 && strings.IndexByte(" \t\n\r\f>+~", ch) >= 0:
			start = i + 1
		}
	}
	return start
}
