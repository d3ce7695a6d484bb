package css

import (
	"strings"
)

type usedKey struct {
	kind SelectorKind
	name string
}

// Stylesheet holds rules of all style sources of a single document indexed
// by the rightmost compound selector. It is built once per conversion and is
// read-only afterwards.
type Stylesheet struct {
	Rules    []*Rule
	Imports  []string
	Warnings []string

	byTag     map[string][]*Rule
	byClass   map[string][]*Rule
	byID      map[string][]*Rule
	universal []*Rule
	used      map[usedKey]struct{}
}

// NewStylesheet returns empty stylesheet.
func NewStylesheet() *Stylesheet {
	return &Stylesheet{
		byTag:   make(map[string][]*Rule),
		byClass: make(map[string][]*Rule),
		byID:    make(map[string][]*Rule),
		used:    make(map[usedKey]struct{}),
	}
}

// MarkUsed registers tag, class or id present in the document. Used
// registrations drive selective loading of external stylesheets.
func (s *Stylesheet) MarkUsed(kind SelectorKind, name string) {
	if name == "" {
		return
	}
	if kind == KindTag {
		name = strings.ToLower(name)
	}
	s.used[usedKey{kind, name}] = struct{}{}
}

// IsUsed reports whether name was registered with MarkUsed.
func (s *Stylesheet) IsUsed(kind SelectorKind, name string) bool {
	_, ok := s.used[usedKey{kind, name}]
	return ok
}

// selectorUsed reports whether selector references anything registered as
// used. Universal selectors are always kept.
func (s *Stylesheet) selectorUsed(sel *Selector) bool {
	if sel.Universal() {
		return true
	}
	if sel.ID != "" && s.IsUsed(KindID, sel.ID) {
		return true
	}
	for _, c := range sel.Classes {
		if s.IsUsed(KindClass, c) {
			return true
		}
	}
	return sel.Element != "" && s.IsUsed(KindTag, sel.Element)
}

// Add appends rule for selector and indexes it. Declarations are shared, not
// copied.
func (s *Stylesheet) Add(sel Selector, decls *Style) *Rule {
	r := &Rule{
		Selector:     sel,
		Specificity:  sel.Specificity(),
		Order:        len(s.Rules),
		Declarations: decls,
	}
	s.Rules = append(s.Rules, r)

	switch {
	case sel.ID != "":
		s.byID[sel.ID] = append(s.byID[sel.ID], r)
	case len(sel.Classes) > 0:
		s.byClass[sel.Classes[0]] = append(s.byClass[sel.Classes[0]], r)
	case sel.Element != "":
		s.byTag[sel.Element] = append(s.byTag[sel.Element], r)
	default:
		s.universal = append(s.universal, r)
	}
	return r
}

// Len returns number of rules.
func (s *Stylesheet) Len() int {
	return len(s.Rules)
}

// Warn records a problem found while loading styles.
func (s *Stylesheet) Warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// candidates returns rules which may apply to element, without verifying
// full selectors. Each rule is returned once.
func (s *Stylesheet) candidates(el *Element) []*Rule {
	seen := make(map[*Rule]struct{})
	var out []*Rule
	add := func(rules []*Rule) {
		for _, r := range rules {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	add(s.byTag[el.Tag])
	for _, c := range el.Classes {
		add(s.byClass[c])
	}
	if el.ID != "" {
		add(s.byID[el.ID])
	}
	add(s.universal)
	return out
}
