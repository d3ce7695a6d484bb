package content

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/net/html"

	"hdx/utils/debug"
)

// String returns readable tree of the document and summary of collected
// styles. It exists solely for debugging.
func (c *Content) String() string {
	if c == nil {
		return "<nil Content>"
	}

	tw := debug.NewTreeWriter()
	tw.Node(0, "content", debug.A("source", c.SrcName), debug.A("format", c.Format.String()),
		debug.A("title", c.Title), debug.A("lang", c.Lang.String()))
	dumpNode(tw, 1, c.Body())

	if c.Sheet != nil {
		tw.Node(0, "stylesheet", debug.A("rules", c.Sheet.Len()), debug.A("imports", len(c.Sheet.Imports)),
			debug.A("warnings", len(c.Sheet.Warnings)))
		selectors := make([]string, 0, len(c.Sheet.Rules))
		for _, r := range c.Sheet.Rules {
			selectors = append(selectors, r.Selector.Raw)
		}
		sort.Sort(natural.StringSlice(selectors))
		for _, s := range selectors {
			tw.Line(1, "%s", s)
		}
		for _, w := range c.Sheet.Warnings {
			tw.TextBlock(1, "warning", w)
		}
	}
	return tw.String()
}

func dumpNode(tw *debug.TreeWriter, depth int, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		attrs := make([]debug.Attr, 0, len(n.Attr))
		for _, a := range n.Attr {
			attrs = append(attrs, debug.A(a.Key, a.Val))
		}
		tw.Node(depth, n.Data, attrs...)
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			tw.TextBlock(depth, "text", n.Data)
		}
		return
	case html.CommentNode:
		tw.TextBlock(depth, "comment", n.Data)
		return
	case html.DocumentNode:
		tw.Node(depth, "fragment")
	default:
		return
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		dumpNode(tw, depth+1, ch)
	}
}
