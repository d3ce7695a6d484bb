package css

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Element is document node taking part in the cascade. Tag, ID and Classes
// select candidate rules, Node is what selectors are matched against, its
// parents are the ancestor chain.
type Element struct {
	Tag     string
	ID      string
	Classes []string
	Node    *html.Node
}

// NewElement builds element from node and its id and class attributes.
func NewElement(n *html.Node) Element {
	el := Element{Tag: strings.ToLower(n.Data), Node: n}
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		switch a.Key {
		case "id":
			el.ID = strings.TrimSpace(a.Val)
		case "class":
			el.Classes = strings.Fields(a.Val)
		}
	}
	return el
}

// HasClass reports whether element has class name.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes, name)
}

// Matches reports whether selector applies to element.
func (s *Selector) Matches(el *Element) bool {
	if s.sel == nil || el.Node == nil {
		return false
	}
	return s.sel.Match(el.Node)
}

// MatchingRules returns rules applying to element in cascade order:
// ascending specificity, then source order.
func (s *Stylesheet) MatchingRules(el *Element) []*Rule {
	if s == nil {
		return nil
	}
	var rules []*Rule
	for _, r := range s.candidates(el) {
		if r.Selector.Matches(el) {
			rules = append(rules, r)
		}
	}
	slices.SortStableFunc(rules, func(a, b *Rule) int {
		if a.Specificity != b.Specificity {
			return a.Specificity - b.Specificity
		}
		return a.Order - b.Order
	})
	return rules
}

// EffectiveStyles computes cascade result for element split by importance.
// Inline normal declarations override cascade normal ones, inline important
// declarations override cascade important ones. Consumers apply normal style
// first and important style on top of it.
func (s *Stylesheet) EffectiveStyles(el Element, inline *Style) (normal, important *Style) {
	normal, important = NewStyle(), NewStyle()
	for _, r := range s.MatchingRules(&el) {
		for _, d := range r.Declarations.All() {
			if d.Important {
				important.Set(d)
			} else {
				normal.Set(d)
			}
		}
	}
	for _, d := range inline.All() {
		if d.Important {
			important.Set(d)
		} else {
			normal.Set(d)
		}
	}
	return normal, important
}

// Resolved folds normal and important styles into single style where
// important declarations win.
func Resolved(normal, important *Style) *Style {
	out := normal.Clone()
	out.Merge(important)
	return out
}
