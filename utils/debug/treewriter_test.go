package debug

import (
	"testing"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "table", nil, "table\n"},
		{"depth 2", 2, "row", nil, "    row\n"},
		{"formatting", 1, "cols: %d", []any{3}, "  cols: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Node(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		attrs []Attr
		want  string
	}{
		{"bare", 0, "paragraph", nil, "paragraph\n"},
		{"attrs", 1, "run", []Attr{A("bold", true), A("size", 12.5)}, "  run bold=true size=12.5\n"},
		{"empty skipped", 0, "run", []Attr{A("bold", false), A("size", 0), A("color", "")}, "run\n"},
		{"quoted", 0, "paragraph", []Attr{A("style", "Heading 1")}, "paragraph style=\"Heading 1\"\n"},
		{"int", 2, "cell", []Attr{A("span", 2)}, "    cell span=2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Node(tt.depth, tt.label, tt.attrs...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Node() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{"empty value", 0, "text", "", "text: \n"},
		{"value", 1, "text", "Hello", "  text: \"Hello\"\n"},
		{"newline", 0, "text", "a\nb", "text: \"a\\nb\"\n"},
		{"tab", 0, "text", "a\tb", "text: \"a\\tb\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Tree(t *testing.T) {
	tw := NewTreeWriter()
	tw.Node(0, "document", A("lang", "en-US"))
	tw.Node(1, "table", A("rows", 2), A("cols", 2))
	tw.Node(2, "cell", A("row", 0), A("col", 1))
	tw.TextBlock(3, "text", "Hello")

	want := "document lang=en-US\n  table rows=2 cols=2\n    cell col=1\n      text: \"Hello\"\n"
	if got := tw.String(); got != want {
		t.Errorf("tree:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
