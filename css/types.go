package css

import (
	"iter"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Declaration is a single "property: value" pair. Property name is always
// lower-cased, value keeps its raw text without "!important" marker.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// String returns declaration in CSS syntax.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Style is an ordered set of declarations keyed by property name. Setting
// property which is already present moves it to the end, so iteration order
// reflects which declaration was applied last. Nil *Style is a valid empty
// style for reading.
type Style struct {
	names []string
	decls map[string]Declaration
}

// NewStyle returns empty style.
func NewStyle() *Style {
	return &Style{decls: make(map[string]Declaration)}
}

// Set stores declaration unconditionally.
func (s *Style) Set(d Declaration) {
	if s.decls == nil {
		s.decls = make(map[string]Declaration)
	}
	if _, exists := s.decls[d.Property]; exists {
		s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == d.Property })
	}
	s.names = append(s.names, d.Property)
	s.decls[d.Property] = d
}

// Declare stores declaration unless it would replace an important one with
// a normal one.
func (s *Style) Declare(d Declaration) {
	if old, ok := s.Get(d.Property); ok && old.Important && !d.Important {
		return
	}
	s.Set(d)
}

// Get returns declaration for property.
func (s *Style) Get(name string) (Declaration, bool) {
	if s == nil {
		return Declaration{}, false
	}
	d, ok := s.decls[name]
	return d, ok
}

// Value returns property value or empty string.
func (s *Style) Value(name string) string {
	d, _ := s.Get(name)
	return d.Value
}

// Has reports whether property is set.
func (s *Style) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Delete removes property.
func (s *Style) Delete(name string) {
	if s == nil {
		return
	}
	if _, ok := s.decls[name]; !ok {
		return
	}
	delete(s.decls, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
}

// Len returns number of properties.
func (s *Style) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// All iterates properties in application order.
func (s *Style) All() iter.Seq2[string, Declaration] {
	return func(yield func(string, Declaration) bool) {
		if s == nil {
			return
		}
		for _, n := range s.names {
			if !yield(n, s.decls[n]) {
				return
			}
		}
	}
}

// Clone returns independent copy.
func (s *Style) Clone() *Style {
	c := NewStyle()
	for _, d := range s.All() {
		c.Set(d)
	}
	return c
}

// Merge sets every declaration of other on s, other wins.
func (s *Style) Merge(other *Style) {
	for _, d := range other.All() {
		s.Set(d)
	}
}

// String returns style in inline attribute form.
func (s *Style) String() string {
	parts := make([]string, 0, s.Len())
	for _, d := range s.All() {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "; ")
}

// SelectorKind names lookup index of the stylesheet.
type SelectorKind int

const (
	KindTag SelectorKind = iota
	KindClass
	KindID
)

func (k SelectorKind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindClass:
		return "class"
	case KindID:
		return "id"
	}
	return "unknown"
}

// Selector is compiled selector. Element, Classes and ID describe the
// rightmost compound (the subject) and serve as index keys, matching is done
// by the compiled form.
type Selector struct {
	Raw     string
	Element string // lower-cased tag name, empty for "*" or class/id only
	Classes []string
	ID      string

	sel cascadia.Sel
}

// Specificity is 100 per id, 10 per class, attribute or pseudo-class and 1
// per tag summed over the whole selector.
func (s *Selector) Specificity() int {
	if s.sel == nil {
		return 0
	}
	spec := s.sel.Specificity()
	return int(spec[0])*100 + int(spec[1])*10 + int(spec[2])
}

// Universal reports whether subject of selector has no index key.
func (s *Selector) Universal() bool {
	return s.Element == "" && s.ID == "" && len(s.Classes) == 0
}

// Rule is stylesheet entry for one selector. Grouped selectors produce
// separate rules sharing the declarations.
type Rule struct {
	Selector     Selector
	Specificity  int
	Order        int
	Declarations *Style
}

// MediaQuery is a single (comma separated part) @media condition.
type MediaQuery struct {
	Raw      string
	Type     string
	Negated  bool
	Features []string
}

// Evaluate reports whether rules inside the query apply to a paged
// document. Only media types are understood, queries with features never
// match.
func (mq MediaQuery) Evaluate() bool {
	var matches bool
	switch mq.Type {
	case "", "all", "print", "screen":
		matches = len(mq.Features) == 0
	}
	if mq.Negated {
		return !matches
	}
	return matches
}

// MediaQueryList is comma separated list of queries, any of which may match.
type MediaQueryList []MediaQuery

// Evaluate reports whether any query matches. Empty list matches.
func (l MediaQueryList) Evaluate() bool {
	if len(l) == 0 {
		return true
	}
	for _, mq := range l {
		if mq.Evaluate() {
			return true
		}
	}
	return false
}

// stripImportant removes trailing "!important" marker from raw value.
func stripImportant(value string) string {
	value = strings.TrimSpace(value)
	idx := strings.LastIndexByte(value, '!')
	if idx < 0 {
		return value
	}
	if strings.EqualFold(strings.TrimSpace(value[idx+1:]), "important") {
		return strings.TrimSpace(value[:idx])
	}
	return value
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// Unquote removes surrounding quotes, used for font family names.
func Unquote(s string) string {
	return unquote(s)
}
