// Package table resolves layout of HTML tables with row and column spans
// into a rectangular grid of document table cells.
package table

import (
	"fmt"
	"strings"
)

// Span is rowspan and colspan of a single source cell. Values below one
// are treated as one.
type Span struct {
	Rows, Cols int
}

// Placement is the grid rectangle claimed by a source cell.
type Placement struct {
	SrcRow, SrcCell int // position in source rows
	Row, Col        int // anchor (top left) in grid
	Rows, Cols      int // footprint
}

// LastRow returns index of the last grid row covered by placement.
func (p Placement) LastRow() int { return p.Row + p.Rows - 1 }

// LastCol returns index of the last grid column covered by placement.
func (p Placement) LastCol() int { return p.Col + p.Cols - 1 }

// Merged reports whether placement covers more than one grid cell.
func (p Placement) Merged() bool { return p.Rows > 1 || p.Cols > 1 }

// ConflictError is returned when a cell claims grid slot already taken by
// another cell.
type ConflictError struct {
	Row, Col        int // conflicting grid slot
	SrcRow, SrcCell int // source cell which failed to place
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("table cell %d in row %d overlaps occupied grid slot (%d,%d)", e.SrcCell, e.SrcRow, e.Row, e.Col)
}

// MaxCells limits size of the grid, spans of a few source cells may
// otherwise ask for arbitrary amount of memory.
const MaxCells = 1 << 18

// SizeError is returned when grid would have more than MaxCells slots.
type SizeError struct {
	Rows, Cols int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("table grid %dx%d exceeds %d cells", e.Rows, e.Cols, MaxCells)
}

// Geometry is occupancy grid of a table.
type Geometry struct {
	Rows, Cols int

	spans     [][]Span
	occupancy [][]bool
	placed    []Placement
}

// Compute normalizes spans and sizes the grid: number of columns is the
// widest row (sum of colspans), number of rows accounts for rowspans
// reaching below the last source row. Grids larger than MaxCells are
// refused with *SizeError.
func Compute(rows [][]Span) (*Geometry, error) {
	g := &Geometry{spans: make([][]Span, len(rows))}

	g.Rows = len(rows)
	for i, row := range rows {
		width := 0
		g.spans[i] = make([]Span, len(row))
		for j, s := range row {
			s.Rows, s.Cols = max(s.Rows, 1), max(s.Cols, 1)
			g.spans[i][j] = s
			width += s.Cols
			g.Rows = max(g.Rows, i+s.Rows)
		}
		g.Cols = max(g.Cols, width)
	}
	if err := checkSize(g.Rows, g.Cols); err != nil {
		return nil, err
	}

	g.occupancy = make([][]bool, g.Rows)
	for i := range g.occupancy {
		g.occupancy[i] = make([]bool, g.Cols)
	}
	return g, nil
}

func checkSize(rows, cols int) error {
	if rows > 0 && cols > MaxCells/rows {
		return &SizeError{Rows: rows, Cols: cols}
	}
	return nil
}

// Place walks source rows in order and assigns grid rectangles. The column
// cursor skips slots taken by rowspans from previous rows, in which case
// grid may grow wider than initially computed. Place never overwrites a
// claimed slot and returns *ConflictError instead.
func (g *Geometry) Place() ([]Placement, error) {
	g.placed = g.placed[:0]
	for i := range g.occupancy {
		clear(g.occupancy[i])
	}

	for i, row := range g.spans {
		col := 0
		for j, s := range row {
			for col < g.Cols && g.occupancy[i][col] {
				col++
			}
			if err := g.grow(col + s.Cols); err != nil {
				return nil, err
			}

			for r := i; r < i+s.Rows; r++ {
				for c := col; c < col+s.Cols; c++ {
					if g.occupancy[r][c] {
						return nil, &ConflictError{Row: r, Col: c, SrcRow: i, SrcCell: j}
					}
					g.occupancy[r][c] = true
				}
			}
			g.placed = append(g.placed, Placement{
				SrcRow: i, SrcCell: j,
				Row: i, Col: col,
				Rows: s.Rows, Cols: s.Cols,
			})
			col += s.Cols
		}
	}
	return g.placed, nil
}

// grow widens the grid to at least cols columns.
func (g *Geometry) grow(cols int) error {
	if cols <= g.Cols {
		return nil
	}
	if err := checkSize(g.Rows, cols); err != nil {
		return err
	}
	for i := range g.occupancy {
		ext := make([]bool, cols)
		copy(ext, g.occupancy[i])
		g.occupancy[i] = ext
	}
	g.Cols = cols
	return nil
}

// Occupied reports whether grid slot was claimed by Place.
func (g *Geometry) Occupied(row, col int) bool {
	if row < 0 || row >= len(g.occupancy) || col < 0 || col >= len(g.occupancy[row]) {
		return false
	}
	return g.occupancy[row][col]
}

// String draws occupancy grid, used in debug logs.
func (g *Geometry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d\n", g.Rows, g.Cols)
	for _, row := range g.occupancy {
		for _, taken := range row {
			if taken {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
