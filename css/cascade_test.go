package css_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"hdx/css"
)

// element parses markup and returns element carrying data-x attribute.
func element(t *testing.T, markup string) css.Element {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse markup: %v", err)
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for _, a := range n.Attr {
			if a.Key == "data-x" && found == nil {
				found = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == nil {
		t.Fatalf("no data-x element in %q", markup)
	}
	return css.NewElement(found)
}

func TestNewElement(t *testing.T) {
	el := element(t, `<p data-x id=" s " class="a  b">x</p>`)
	if el.Tag != "p" || el.ID != "s" || strings.Join(el.Classes, ",") != "a,b" {
		t.Errorf("unexpected element %+v", el)
	}
	if !el.HasClass("b") || el.HasClass("c") {
		t.Error("HasClass mismatch")
	}
}

func TestEffectiveStyles_Precedence(t *testing.T) {
	sheet := parse(t, `
		#s { color: red }
		.hl { color: blue }
		p { color: black; font-size: 10pt }`)

	normal, important := sheet.EffectiveStyles(element(t, `<p data-x id="s" class="hl">x</p>`), nil)
	if got := normal.Value("color"); got != "red" {
		t.Errorf("expected id rule to win, got %q", got)
	}
	if got := normal.Value("font-size"); got != "10pt" {
		t.Errorf("expected tag rule to contribute font-size, got %q", got)
	}
	if important.Len() != 0 {
		t.Errorf("expected no important declarations, got %s", important)
	}
}

func TestEffectiveStyles_Important(t *testing.T) {
	sheet := parse(t, `
		p { color: green !important }
		#s { color: red }
		.a { font-weight: bold !important }
		.b { font-weight: normal !important }`)

	tests := []struct {
		name       string
		markup     string
		inline     string
		wantColor  string
		wantWeight string
	}{
		{
			name:      "important beats higher specificity",
			markup:    `<p data-x id="s">x</p>`,
			wantColor: "green",
		},
		{
			name:       "later important wins at same specificity",
			markup:     `<p data-x class="a b">x</p>`,
			wantColor:  "green",
			wantWeight: "normal",
		},
		{
			name:      "inline normal does not beat cascade important",
			markup:    `<p data-x>x</p>`,
			inline:    "color: blue",
			wantColor: "green",
		},
		{
			name:      "inline important beats cascade important",
			markup:    `<p data-x>x</p>`,
			inline:    "color: blue !important",
			wantColor: "blue",
		},
	}

	p := css.NewParser(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normal, important := sheet.EffectiveStyles(element(t, tt.markup), p.ParseInline(tt.inline))
			resolved := css.Resolved(normal, important)
			if got := resolved.Value("color"); got != tt.wantColor {
				t.Errorf("color: expected %q, got %q", tt.wantColor, got)
			}
			if got := resolved.Value("font-weight"); got != tt.wantWeight {
				t.Errorf("font-weight: expected %q, got %q", tt.wantWeight, got)
			}
		})
	}
}

func TestEffectiveStyles_InlineOverridesNormal(t *testing.T) {
	sheet := parse(t, `#s { color: red }`)
	inline := css.NewParser(zap.NewNop()).ParseInline("color: #00ff00")

	normal, _ := sheet.EffectiveStyles(element(t, `<p data-x id="s">x</p>`), inline)
	if got := normal.Value("color"); got != "#00ff00" {
		t.Errorf("expected inline to override id rule, got %q", got)
	}
}

func TestEffectiveStyles_SourceOrderTieBreak(t *testing.T) {
	sheet := parse(t, `.a { color: red } .b { color: blue }`)

	normal, _ := sheet.EffectiveStyles(element(t, `<span data-x class="b a">x</span>`), nil)
	if got := normal.Value("color"); got != "blue" {
		t.Errorf("expected later rule to win, got %q", got)
	}
}

func TestEffectiveStyles_Combinators(t *testing.T) {
	sheet := parse(t, `
		div.note p { color: red }
		table p { color: blue }
		p { color: black }
		section > p { font-size: 8pt }
		h2 + p { font-style: italic }
		p[title] { font-weight: bold }
		li:first-child p { margin: 0 }`)

	tests := []struct {
		name   string
		markup string
		prop   string
		want   string
	}{
		{"no ancestors", `<p data-x>x</p>`, "color", "black"},
		{"direct parent", `<div class="note"><p data-x>x</p></div>`, "color", "red"},
		{"distant ancestor", `<div class="note"><section><p data-x>x</p></section></div>`, "color", "red"},
		{"class missing", `<div><p data-x>x</p></div>`, "color", "black"},
		{"both match, higher specificity wins", `<table><tr><td><div class="note"><p data-x>x</p></div></td></tr></table>`, "color", "red"},
		{"child", `<section><p data-x>x</p></section>`, "font-size", "8pt"},
		{"not a child", `<section><div><p data-x>x</p></div></section>`, "font-size", ""},
		{"adjacent sibling", `<h2>t</h2><p data-x>x</p>`, "font-style", "italic"},
		{"attribute", `<p data-x title="t">x</p>`, "font-weight", "bold"},
		{"pseudo-class", `<ul><li><p data-x>x</p></li><li>y</li></ul>`, "margin", "0"},
		{"pseudo-class mismatch", `<ul><li>y</li><li><p data-x>x</p></li></ul>`, "margin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normal, _ := sheet.EffectiveStyles(element(t, tt.markup), nil)
			if got := normal.Value(tt.prop); got != tt.want {
				t.Errorf("%s: expected %q, got %q", tt.prop, tt.want, got)
			}
		})
	}
}

func TestEffectiveStyles_Universal(t *testing.T) {
	sheet := parse(t, `* { margin: 0 } .x { margin: 1em }`)

	normal, _ := sheet.EffectiveStyles(element(t, `<h1 data-x>x</h1>`), nil)
	if got := normal.Value("margin"); got != "0" {
		t.Errorf("expected universal rule to apply, got %q", got)
	}
	normal, _ = sheet.EffectiveStyles(element(t, `<h1 data-x class="x">x</h1>`), nil)
	if got := normal.Value("margin"); got != "1em" {
		t.Errorf("expected class rule to override universal, got %q", got)
	}
}

func TestEffectiveStyles_NilSheet(t *testing.T) {
	var sheet *css.Stylesheet
	inline := css.NewParser(zap.NewNop()).ParseInline("color: red")

	normal, important := sheet.EffectiveStyles(element(t, `<p data-x>x</p>`), inline)
	if normal.Value("color") != "red" || important.Len() != 0 {
		t.Errorf("unexpected result %s / %s", normal, important)
	}
}
