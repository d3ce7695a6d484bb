package docx

import (
	"hdx/utils/debug"
)

// Dump returns indented text representation of document model for debug
// reports.
func (d *Document) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Node(0, "document", debug.A("id", d.id.String()), debug.A("lang", d.Lang), debug.A("title", d.Title),
		debug.A("numbering", len(d.numbering.nums)), debug.A("pictures", len(d.pictures)))
	dumpBlocks(tw, 1, d.blocks)
	return tw.String()
}

func dumpBlocks(tw *debug.TreeWriter, depth int, blocks []block) {
	for _, b := range blocks {
		switch v := b.(type) {
		case *Paragraph:
			dumpParagraph(tw, depth, v)
		case *Table:
			dumpTable(tw, depth, v)
		}
	}
}

func dumpParagraph(tw *debug.TreeWriter, depth int, p *Paragraph) {
	pp := &p.Props
	tw.Node(depth, "paragraph",
		debug.A("style", p.Props.Style),
		debug.A("align", string(pp.Align)),
		debug.A("num", pp.NumID),
		debug.A("level", pp.Level),
		debug.A("shading", pp.Shading),
		debug.A("borders", !pp.Borders.Empty()),
		debug.A("page-break", pp.PageBreakBefore),
	)
	for _, c := range p.content {
		switch v := c.(type) {
		case *Run:
			dumpRun(tw, depth+1, v)
		case *Hyperlink:
			tw.Node(depth+1, "hyperlink", debug.A("target", v.Target), debug.A("external", v.External), debug.A("tooltip", v.Tooltip))
			for _, r := range v.runs {
				dumpRun(tw, depth+2, r)
			}
		case *bookmark:
			tw.Node(depth+1, "bookmark", debug.A("id", v.id), debug.A("name", v.name))
		}
	}
}

func dumpRun(tw *debug.TreeWriter, depth int, r *Run) {
	rp := &r.Props
	tw.Node(depth, "run",
		debug.A("style", rp.Style),
		debug.A("bold", rp.Bold),
		debug.A("italic", rp.Italic),
		debug.A("underline", rp.Underline),
		debug.A("strike", rp.Strike),
		debug.A("size", rp.Size),
		debug.A("color", rp.Color),
		debug.A("font", rp.Font),
		debug.A("highlight", rp.Highlight),
		debug.A("shading", rp.Shading),
		debug.A("valign", rp.VertAlign),
	)
	if text := r.Text(); text != "" {
		tw.TextBlock(depth+1, "text", text)
	}
	if p := r.picture; p != nil {
		tw.Node(depth+1, "picture", debug.A("target", p.target), debug.A("width", p.Width), debug.A("height", p.Height))
	}
}

func dumpTable(tw *debug.TreeWriter, depth int, t *Table) {
	tw.Node(depth, "table", debug.A("style", t.Style), debug.A("rows", len(t.rows)), debug.A("cols", t.cols))
	for i, row := range t.rows {
		tw.Node(depth+1, "row", debug.A("index", i), debug.A("header", row.Header), debug.A("height", row.Height))
		for j, c := range row.cells {
			if c.covered {
				continue
			}
			merge := ""
			switch c.vmerge {
			case vMergeRestart:
				merge = "restart"
			case vMergeContinue:
				merge = "continue"
			}
			tw.Node(depth+2, "cell", debug.A("col", j), debug.A("span", c.span), debug.A("vmerge", merge),
				debug.A("background", c.Props.Background))
			dumpBlocks(tw, depth+3, c.blocks)
		}
	}
}
