package docx

import (
	"fmt"
)

// vertical merge state of a cell
type vMerge int

const (
	vMergeNone vMerge = iota
	vMergeRestart
	vMergeContinue
)

// Table is rectangular grid of cells. Merged cells keep their slots in the
// grid, covered slots are not written.
type Table struct {
	doc *Document

	Style  string // table style id
	Align  Alignment
	Indent *float64
	Width  float64 // preferred width in points, 0 - auto

	rows []*Row
	cols int
}

func (*Table) isBlock() {}

// Row is table row.
type Row struct {
	Height float64 // minimal height in points, 0 - auto
	Header bool
	cells  []*Cell
}

// CellProps are cell formatting properties.
type CellProps struct {
	Background string // "RRGGBB"
	Width      float64
	VAlign     string // "top", "center", "bottom"
	Borders    Borders
}

// Cell is table cell, it is a container of blocks like document body.
type Cell struct {
	container
	Props CellProps

	span    int  // number of grid columns, anchor only
	covered bool // slot belongs to horizontally merged anchor
	vmerge  vMerge
}

func newTable(doc *Document, rows, cols int) *Table {
	t := &Table{doc: doc, cols: cols}
	for range rows {
		t.addRow()
	}
	return t
}

func (t *Table) addRow() *Row {
	r := &Row{cells: make([]*Cell, t.cols)}
	for i := range r.cells {
		r.cells[i] = &Cell{container: container{doc: t.doc}, span: 1}
	}
	t.rows = append(t.rows, r)
	return r
}

// Rows returns number of rows.
func (t *Table) Rows() int { return len(t.rows) }

// Cols returns number of grid columns.
func (t *Table) Cols() int { return t.cols }

// Row returns row by index.
func (t *Table) Row(i int) *Row { return t.rows[i] }

// Cell returns cell in grid slot. It panics when slot is outside of grid.
func (t *Table) Cell(row, col int) *Cell {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= t.cols {
		panic(fmt.Sprintf("docx: cell (%d,%d) outside of %dx%d table", row, col, len(t.rows), t.cols))
	}
	return t.rows[row].cells[col]
}

// ApplyStyle sets named table style, unknown names are reported by returning
// false.
func (t *Table) ApplyStyle(name string) bool {
	st, ok := t.doc.LookupStyle(name, StyleTable)
	if !ok {
		return false
	}
	t.Style = st.ID
	return true
}

// Merge merges rectangle between two grid slots (inclusive) into its top
// left cell. Content of covered cells is appended to the anchor.
func (t *Table) Merge(row1, col1, row2, col2 int) (*Cell, error) {
	if row1 > row2 {
		row1, row2 = row2, row1
	}
	if col1 > col2 {
		col1, col2 = col2, col1
	}
	if row1 < 0 || col1 < 0 || row2 >= len(t.rows) || col2 >= t.cols {
		return nil, fmt.Errorf("merge range (%d,%d)-(%d,%d) outside of %dx%d table", row1, col1, row2, col2, len(t.rows), t.cols)
	}
	for r := row1; r <= row2; r++ {
		for c := col1; c <= col2; c++ {
			cell := t.rows[r].cells[c]
			if cell.covered || cell.vmerge != vMergeNone || cell.span > 1 {
				return nil, fmt.Errorf("cell (%d,%d) is already merged", r, c)
			}
		}
	}

	anchor := t.rows[row1].cells[col1]
	for r := row1; r <= row2; r++ {
		first := t.rows[r].cells[col1]
		first.span = col2 - col1 + 1
		if row2 > row1 {
			if r == row1 {
				first.vmerge = vMergeRestart
			} else {
				first.vmerge = vMergeContinue
			}
		}
		for c := col1; c <= col2; c++ {
			cell := t.rows[r].cells[c]
			if c > col1 {
				cell.covered = true
			}
			if cell != anchor {
				anchor.blocks = append(anchor.blocks, cell.blocks...)
				cell.blocks = nil
			}
		}
	}
	return anchor, nil
}

// Covered reports whether cell is hidden by a merge.
func (c *Cell) Covered() bool {
	return c.covered || c.vmerge == vMergeContinue
}

// Span returns number of grid columns occupied by cell.
func (c *Cell) Span() int {
	return c.span
}

// Text returns text of all cell paragraphs separated by new lines.
func (c *Cell) Text() string {
	var s string
	for i, p := range c.Paragraphs() {
		if i > 0 {
			s += "\n"
		}
		s += p.Text()
	}
	return s
}
