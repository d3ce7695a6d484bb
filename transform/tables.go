package transform

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"hdx/content"
	"hdx/css"
	"hdx/docx"
	"hdx/table"
)

// span attributes above these are treated as garbage
const (
	maxColSpan = 1000
	maxRowSpan = 65534
)

type sourceRow struct {
	node   *html.Node
	header bool
	cells  []*html.Node
}

// tableRows collects rows of table in document order, rows of nested tables
// are not included.
func tableRows(tbl *html.Node) (rows []sourceRow, caption *html.Node) {
	addRow := func(tr *html.Node, header bool) {
		row := sourceRow{node: tr, header: header}
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (tagOf(c) == "td" || tagOf(c) == "th") {
				row.cells = append(row.cells, c)
			}
		}
		rows = append(rows, row)
	}
	for c := tbl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch tagOf(c) {
		case "caption":
			if caption == nil {
				caption = c
			}
		case "tr":
			addRow(c, false)
		case "thead", "tbody", "tfoot":
			header := tagOf(c) == "thead"
			for tr := c.FirstChild; tr != nil; tr = tr.NextSibling {
				if tr.Type == html.ElementNode && tagOf(tr) == "tr" {
					addRow(tr, header)
				}
			}
		}
	}
	return rows, caption
}

func spanAttr(n *html.Node, key string, limit int) int {
	v, err := strconv.Atoi(strings.TrimSpace(content.Attr(n, key)))
	if err != nil || v < 1 {
		return 1
	}
	return min(v, limit)
}

// table converts whole table element. Geometry is resolved first, then
// every source cell is converted by its own session into the grid slot it
// was placed at and merged over its footprint.
func (s *session) table(ec *elementContext) error {
	rows, caption := tableRows(ec.node)

	spans := make([][]table.Span, len(rows))
	for i, row := range rows {
		spans[i] = make([]table.Span, len(row.cells))
		for j, cell := range row.cells {
			spans[i][j] = table.Span{
				Rows: spanAttr(cell, "rowspan", maxRowSpan),
				Cols: spanAttr(cell, "colspan", maxColSpan),
			}
		}
	}
	geom, err := table.Compute(spans)
	if err != nil {
		return fmt.Errorf("unable to lay out table: %w", err)
	}
	placements, err := geom.Place()
	if err != nil {
		return fmt.Errorf("unable to lay out table: %w", err)
	}
	s.log().Debug("Table geometry", zap.Int("rows", geom.Rows), zap.Int("cols", geom.Cols), zap.Stringer("grid", geom))
	if geom.Rows == 0 || geom.Cols == 0 {
		return nil
	}

	s.flowBreak()
	inherited := s.inheritedScopes(ec)

	if caption != nil {
		if err := s.sub(s.out, inherited, caption); err != nil {
			return err
		}
	}

	t := s.out.AddTable(geom.Rows, geom.Cols)
	s.t.result.Tables++
	if name := s.t.settings.TableStyle; name != "" && !t.ApplyStyle(name) {
		s.t.warn("table style %q not found", name)
	}
	s.applyTableStyle(t, ec)

	for i, row := range rows {
		t.Row(i).Header = row.header
	}

	// row groups and rows are shared by cells
	between := make(map[*html.Node]*styleScope)
	for _, pl := range placements {
		row := rows[pl.SrcRow]
		node := row.cells[pl.SrcCell]
		cell := t.Cell(pl.Row, pl.Col)

		cs := s.cellStyle(node, row.node)
		s.applyCellStyle(t, pl, cell, cs)

		cellScopes := slices.Clone(inherited)
		for _, p := range ancestorsBetween(ec.node, node) {
			sc, ok := between[p]
			if !ok {
				sc = scopeOf(s.newContext(p))
				between[p] = sc
			}
			cellScopes = append(cellScopes, sc)
		}
		if err := s.sub(cell, cellScopes, node); err != nil {
			return err
		}
		if cell.Len() == 0 {
			cell.AddParagraph()
		}
		if pl.Merged() {
			if _, err := t.Merge(pl.Row, pl.Col, pl.LastRow(), pl.LastCol()); err != nil {
				return fmt.Errorf("unable to merge table cells: %w", err)
			}
		}
	}

	// slots not claimed by any source cell
	for r := range geom.Rows {
		for c := range geom.Cols {
			if !geom.Occupied(r, c) {
				t.Cell(r, c).AddParagraph()
			}
		}
	}
	return nil
}

// inheritedScopes snapshots run formatting in effect at the table for
// sessions converting its content.
func (s *session) inheritedScopes(tbl *elementContext) []*styleScope {
	out := make([]*styleScope, 0, len(s.inherited)+len(s.scopes)+1)
	out = append(out, s.inherited...)
	out = append(out, s.scopes...)
	return append(out, scopeOf(tbl))
}

// sub converts node into out with fresh session sharing transformer.
func (s *session) sub(out blockContainer, inherited []*styleScope, node *html.Node) error {
	cs := s.t.newSession(s.ctx, out, inherited)
	if err := cs.emit(node); err != nil {
		return err
	}
	cs.finish()
	return nil
}

// ancestorsBetween returns elements strictly between table and cell, outer
// first.
func ancestorsBetween(tbl, cell *html.Node) []*html.Node {
	var out []*html.Node
	for p := cell.Parent; p != nil && p != tbl; p = p.Parent {
		if p.Type == html.ElementNode {
			out = append([]*html.Node{p}, out...)
		}
	}
	return out
}

type cellStyles struct {
	cell, row *css.Style
}

func (s *session) cellStyle(cell, tr *html.Node) cellStyles {
	resolve := func(n *html.Node) *css.Style {
		var inline *css.Style
		if s.t.settings.Styles {
			if v := content.Attr(n, "style"); strings.TrimSpace(v) != "" {
				inline = s.t.parser.ParseInline(v)
			}
		}
		normal, important := s.t.sheet.EffectiveStyles(css.NewElement(n), inline)
		hints := presentationalHints(n, tagOf(n))
		hints.Merge(normal)
		return css.Resolved(hints, important)
	}
	return cellStyles{
		cell: resolve(cell),
		row:  resolve(tr),
	}
}

func (s *session) applyCellStyle(t *docx.Table, pl table.Placement, cell *docx.Cell, cs cellStyles) {
	width := s.t.doc.PrintableWidth()

	for _, st := range []*css.Style{cs.row, cs.cell} {
		for _, prop := range []string{"background", "background-color"} {
			if v := st.Value(prop); v != "" {
				if c, ok := backgroundColor(v); ok {
					cell.Props.Background = c.Hex()
				}
			}
		}
		if v := strings.ToLower(strings.TrimSpace(st.Value("vertical-align"))); v != "" {
			switch v {
			case "top":
				cell.Props.VAlign = "top"
			case "middle", "center":
				cell.Props.VAlign = "center"
			case "bottom":
				cell.Props.VAlign = "bottom"
			}
		}
		if v := st.Value("height"); v != "" {
			if h, ok := s.length(v, 0); ok && h > 0 {
				row := t.Row(pl.Row)
				row.Height = max(row.Height, h/float64(pl.Rows))
			}
		}
	}

	if v := cs.cell.Value("width"); v != "" {
		if w, ok := s.length(v, width); ok && w > 0 {
			cell.Props.Width = w
		}
	}
	if b := css.ResolveBorder(cs.cell); b.Any() {
		cell.Props.Borders = documentBorders(b)
	}
}

// applyTableStyle handles width and alignment of table box.
func (s *session) applyTableStyle(t *docx.Table, ec *elementContext) {
	st := ec.resolved
	width := s.t.doc.PrintableWidth()

	if v := st.Value("width"); v != "" {
		num, unit, ok := css.SplitLength(v)
		switch {
		case ok && unit == "%":
			t.Width = min(num, 100) * width / 100
		case ok:
			if w, ok := css.ConvertUnitMax(v, width); ok && w > 0 {
				t.Width = w
			}
		}
	}

	margin := boxOf(st, "margin")
	switch {
	case isAuto(margin.left) && isAuto(margin.right):
		t.Align = docx.AlignCenter
	case isAuto(margin.left):
		t.Align = docx.AlignRight
	}
	switch strings.ToLower(strings.TrimSpace(content.Attr(ec.node, "align"))) {
	case "center":
		t.Align = docx.AlignCenter
	case "right":
		t.Align = docx.AlignRight
	case "left":
		t.Align = docx.AlignLeft
	}
	if pt, ok := s.length(margin.left, width); ok && pt > 0 {
		t.Indent = &pt
	}
}
