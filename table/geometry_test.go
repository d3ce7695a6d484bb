package table

import (
	"errors"
	"testing"
)

func spans(rows ...[]Span) [][]Span { return rows }

func cells(n int) []Span {
	out := make([]Span, n)
	for i := range out {
		out[i] = Span{Rows: 1, Cols: 1}
	}
	return out
}

// checkInvariant verifies there are no overlaps and every placement is
// inside the grid.
func checkInvariant(t *testing.T, g *Geometry, placed []Placement) {
	t.Helper()
	seen := make(map[[2]int]int)
	for i, p := range placed {
		for r := p.Row; r <= p.LastRow(); r++ {
			for c := p.Col; c <= p.LastCol(); c++ {
				if prev, ok := seen[[2]int{r, c}]; ok {
					t.Fatalf("placements %d and %d overlap at (%d,%d)", prev, i, r, c)
				}
				seen[[2]int{r, c}] = i
				if r >= g.Rows || c >= g.Cols {
					t.Fatalf("placement %d outside of %dx%d grid", i, g.Rows, g.Cols)
				}
			}
		}
	}
	for key := range seen {
		if !g.Occupied(key[0], key[1]) {
			t.Fatalf("slot %v is not marked as occupied", key)
		}
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]Span
		wantRows int
		wantCols int
	}{
		{"empty", nil, 0, 0},
		{"unbalanced", spans(cells(1), cells(2)), 2, 2},
		{"colspan", spans([]Span{{1, 3}}, cells(2)), 2, 3},
		{"rowspan below last row", spans([]Span{{3, 1}, {1, 1}}), 3, 2},
		{"zero spans normalized", spans([]Span{{0, 0}, {-1, 2}}), 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compute(tt.rows)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.Rows != tt.wantRows || g.Cols != tt.wantCols {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantRows, tt.wantCols, g.Rows, g.Cols)
			}
		})
	}
}

func TestPlace(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]Span
		want     []Placement
		wantCols int
	}{
		{
			name: "unbalanced rows",
			rows: spans(cells(1), cells(2)),
			want: []Placement{
				{SrcRow: 0, SrcCell: 0, Row: 0, Col: 0, Rows: 1, Cols: 1},
				{SrcRow: 1, SrcCell: 0, Row: 1, Col: 0, Rows: 1, Cols: 1},
				{SrcRow: 1, SrcCell: 1, Row: 1, Col: 1, Rows: 1, Cols: 1},
			},
			wantCols: 2,
		},
		{
			name: "rowspan pushes next row",
			rows: spans([]Span{{2, 1}, {1, 1}}, cells(1)),
			want: []Placement{
				{SrcRow: 0, SrcCell: 0, Row: 0, Col: 0, Rows: 2, Cols: 1},
				{SrcRow: 0, SrcCell: 1, Row: 0, Col: 1, Rows: 1, Cols: 1},
				{SrcRow: 1, SrcCell: 0, Row: 1, Col: 1, Rows: 1, Cols: 1},
			},
			wantCols: 2,
		},
		{
			name: "rowspan grows grid",
			rows: spans([]Span{{2, 1}, {1, 1}}, cells(2)),
			want: []Placement{
				{SrcRow: 0, SrcCell: 0, Row: 0, Col: 0, Rows: 2, Cols: 1},
				{SrcRow: 0, SrcCell: 1, Row: 0, Col: 1, Rows: 1, Cols: 1},
				{SrcRow: 1, SrcCell: 0, Row: 1, Col: 1, Rows: 1, Cols: 1},
				{SrcRow: 1, SrcCell: 1, Row: 1, Col: 2, Rows: 1, Cols: 1},
			},
			wantCols: 3,
		},
		{
			name: "colspan and rowspan",
			rows: spans([]Span{{1, 2}, {2, 1}}, cells(2), cells(3)),
			want: []Placement{
				{SrcRow: 0, SrcCell: 0, Row: 0, Col: 0, Rows: 1, Cols: 2},
				{SrcRow: 0, SrcCell: 1, Row: 0, Col: 2, Rows: 2, Cols: 1},
				{SrcRow: 1, SrcCell: 0, Row: 1, Col: 0, Rows: 1, Cols: 1},
				{SrcRow: 1, SrcCell: 1, Row: 1, Col: 1, Rows: 1, Cols: 1},
				{SrcRow: 2, SrcCell: 0, Row: 2, Col: 0, Rows: 1, Cols: 1},
				{SrcRow: 2, SrcCell: 1, Row: 2, Col: 1, Rows: 1, Cols: 1},
				{SrcRow: 2, SrcCell: 2, Row: 2, Col: 2, Rows: 1, Cols: 1},
			},
			wantCols: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compute(tt.rows)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			placed, err := g.Place()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(placed) != len(tt.want) {
				t.Fatalf("expected %d placements, got %d", len(tt.want), len(placed))
			}
			for i := range placed {
				if placed[i] != tt.want[i] {
					t.Errorf("placement %d: expected %+v, got %+v", i, tt.want[i], placed[i])
				}
			}
			if g.Cols != tt.wantCols {
				t.Errorf("expected %d columns, got %d\n%s", tt.wantCols, g.Cols, g)
			}
			checkInvariant(t, g, placed)
		})
	}
}

func TestPlace_Conflict(t *testing.T) {
	g, err := Compute(spans([]Span{{1, 1}, {2, 1}}, []Span{{1, 2}}))
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.Place()
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.Row != 1 || ce.Col != 1 || ce.SrcRow != 1 || ce.SrcCell != 0 {
		t.Errorf("unexpected conflict %+v", ce)
	}
}

func TestPlace_Repeatable(t *testing.T) {
	g, err := Compute(spans([]Span{{2, 1}}, cells(1)))
	if err != nil {
		t.Fatal(err)
	}
	first, err := g.Place()
	if err != nil {
		t.Fatal(err)
	}
	n := len(first)
	second, err := g.Place()
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != n {
		t.Errorf("expected %d placements on second call, got %d", n, len(second))
	}
}

func TestCompute_TooLarge(t *testing.T) {
	tests := []struct {
		name string
		rows [][]Span
	}{
		{"huge spans", spans([]Span{{65534, 1000}})},
		{"many rows", spans([]Span{{MaxCells + 1, 1}})},
		{"wide row", spans([]Span{{1, MaxCells}, {1, 1}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compute(tt.rows)
			var se *SizeError
			if !errors.As(err, &se) {
				t.Fatalf("expected SizeError, got %v", err)
			}
			if g != nil {
				t.Error("geometry must not be returned")
			}
		})
	}

	// fits the limit exactly
	if _, err := Compute(spans([]Span{{2, MaxCells / 2}})); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPlace_GrowTooLarge(t *testing.T) {
	g, err := Compute(spans([]Span{{2, 1}}, []Span{{1, MaxCells / 2}}))
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Place()
	var se *SizeError
	if !errors.As(err, &se) {
		t.Fatalf("expected SizeError, got %v", err)
	}
	if se.Rows != 2 || se.Cols != MaxCells/2+1 {
		t.Errorf("unexpected error %+v", se)
	}
}
