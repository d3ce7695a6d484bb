package transform

import (
	"errors"
	"testing"

	"hdx/table"
)

func TestTable_Spans(t *testing.T) {
	doc, _ := convertHTML(t, `<table>`+
		`<tr><td rowspan="2">A</td><td>B</td></tr><tr><td>C</td></tr>`+
		`<tr><td colspan="2">X</td></tr>`+
		`</table>`, "")

	tbl := doc.Tables()[0]
	if tbl.Rows() != 3 || tbl.Cols() != 2 {
		t.Fatalf("geometry = %dx%d", tbl.Rows(), tbl.Cols())
	}
	if got := tbl.Cell(0, 0).Text(); got != "A" {
		t.Errorf("anchor text = %q", got)
	}
	if !tbl.Cell(1, 0).Covered() {
		t.Error("slot below rowspan must be covered")
	}
	if got := tbl.Cell(1, 1).Text(); got != "C" {
		t.Errorf("cell (1,1) = %q", got)
	}
	if tbl.Cell(2, 0).Span() != 2 || !tbl.Cell(2, 1).Covered() {
		t.Error("colspan is not merged")
	}
}

func TestTable_SpanOverflow(t *testing.T) {
	// colspan beyond other rows widens the grid
	doc, _ := convertHTML(t, `<table><tr><td colspan="3">a</td></tr><tr><td>b</td></tr></table>`, "")
	tbl := doc.Tables()[0]
	if tbl.Cols() != 3 {
		t.Fatalf("cols = %d", tbl.Cols())
	}
	for c := range 3 {
		if tbl.Cell(1, c).Len() == 0 {
			t.Errorf("cell (1,%d) has no paragraph", c)
		}
	}
}

func TestTable_Conflict(t *testing.T) {
	_, _, err := convertWith(t, `<table><tr><td>a</td><td rowspan="2">b</td></tr><tr><td colspan="2">c</td></tr></table>`, convertOptions{})
	var ce *table.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestTable_TooLarge(t *testing.T) {
	_, _, err := convertWith(t, `<table><tr><td rowspan="4000" colspan="1000">x</td></tr></table>`, convertOptions{})
	var se *table.SizeError
	if !errors.As(err, &se) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestTable_Nested(t *testing.T) {
	doc, res := convertHTML(t, `<table><tr><td>outer<table><tr><td>inner</td></tr></table>tail</td></tr></table>`, "")

	if len(doc.Tables()) != 1 || res.Tables != 2 {
		t.Fatalf("tables = %d, counted %d", len(doc.Tables()), res.Tables)
	}
	cell := doc.Tables()[0].Cell(0, 0)
	inner := cell.Tables()
	if len(inner) != 1 || inner[0].Cell(0, 0).Text() != "inner" {
		t.Fatalf("inner table is missing")
	}
	if got := cell.Text(); got != "outer\ntail" {
		t.Errorf("outer cell text = %q", got)
	}
}

func TestTable_HeaderAndCaption(t *testing.T) {
	doc, _ := convertHTML(t, `<table><caption>Cap</caption>`+
		`<thead><tr><th>H</th></tr></thead><tbody><tr><td>d</td></tr></tbody></table>`, "")

	ps := doc.Paragraphs()
	if len(ps) != 1 || ps[0].Text() != "Cap" || ps[0].StyleName() != "Caption" {
		t.Fatalf("caption paragraph = %q", paragraphTexts(doc))
	}
	tbl := doc.Tables()[0]
	if !tbl.Row(0).Header || tbl.Row(1).Header {
		t.Error("only thead rows repeat as header")
	}
	if !tbl.Cell(0, 0).Paragraphs()[0].Runs()[0].Props.Bold {
		t.Error("header cell must be bold")
	}
}

func TestTable_CellStyle(t *testing.T) {
	doc, _ := convertHTML(t, `<table style="width: 50%; margin: 0 auto">`+
		`<tr style="height: 30pt" valign="bottom"><td class="c">x</td><td bgcolor="#0000ff" width="96">y</td></tr></table>`,
		`td.c { background-color: #00ff00; vertical-align: middle; width: 72pt; border: 1pt solid red; text-align: right }`)

	tbl := doc.Tables()[0]
	if tbl.Width != 234 || tbl.Align != "center" {
		t.Errorf("table width %v align %q", tbl.Width, tbl.Align)
	}
	if tbl.Row(0).Height != 30 {
		t.Errorf("row height = %v", tbl.Row(0).Height)
	}

	c := tbl.Cell(0, 0)
	if c.Props.Background != "00FF00" || c.Props.VAlign != "center" || c.Props.Width != 72 {
		t.Errorf("cell props = %+v", c.Props)
	}
	if b := c.Props.Borders.Top; b == nil || b.Color != "FF0000" || b.Size != 8 || b.Style != "single" {
		t.Errorf("cell border = %+v", b)
	}
	if p := c.Paragraphs()[0]; p.Props.Align != "right" || !p.Props.Borders.Empty() {
		t.Errorf("cell paragraph props = %+v", p.Props)
	}

	c = tbl.Cell(0, 1)
	if c.Props.Background != "0000FF" || c.Props.VAlign != "bottom" || c.Props.Width != 72 {
		t.Errorf("attribute cell props = %+v", c.Props)
	}
}

func TestTable_DescendantSelectors(t *testing.T) {
	doc, _ := convertHTML(t, `<div class="wrap"><table><tr><td><p>x</p></td></tr></table></div>`,
		`.wrap table p { color: red } tbody tr td p { font-weight: bold }`)

	r := doc.Tables()[0].Cell(0, 0).Paragraphs()[0].Runs()[0]
	if r.Props.Color != "FF0000" || !r.Props.Bold {
		t.Errorf("run props = %+v", r.Props)
	}
}

func TestTable_ChildSelectors(t *testing.T) {
	doc, _ := convertHTML(t, `<table><tr><td><p>a</p><div><p>b</p></div></td></tr></table>`,
		`td > p { color: red } tr:first-child td p { font-weight: bold }`)

	ps := doc.Tables()[0].Cell(0, 0).Paragraphs()
	if len(ps) != 2 {
		t.Fatalf("paragraphs = %d", len(ps))
	}
	if r := ps[0].Runs()[0]; r.Props.Color != "FF0000" || !r.Props.Bold {
		t.Errorf("child run props = %+v", r.Props)
	}
	if r := ps[1].Runs()[0]; r.Props.Color != "" || !r.Props.Bold {
		t.Errorf("grandchild run props = %+v", r.Props)
	}
}

func TestTable_InheritedRunStyle(t *testing.T) {
	doc, _ := convertHTML(t, `<div style="color:red"><table style="font-style:italic">`+
		`<tr style="font-weight:bold"><td>x</td><td style="color:blue">y</td></tr></table><p>z</p></div>`,
		`body { font-family: Arial }`)

	cell := doc.Tables()[0].Cell(0, 0).Paragraphs()[0].Runs()[0]
	if cell.Props.Color != "FF0000" || cell.Props.Font != "Arial" || !cell.Props.Italic || !cell.Props.Bold {
		t.Errorf("inherited run props = %+v", cell.Props)
	}
	own := doc.Tables()[0].Cell(0, 1).Paragraphs()[0].Runs()[0]
	if own.Props.Color != "0000FF" || own.Props.Font != "Arial" {
		t.Errorf("cell run props = %+v", own.Props)
	}
	outside := doc.Paragraphs()[0].Runs()[0]
	if outside.Props.Color != "FF0000" || outside.Props.Italic || outside.Props.Bold {
		t.Errorf("run after table = %+v", outside.Props)
	}
}

func TestTable_Disabled(t *testing.T) {
	settings := defaultSettings()
	settings.Tables = false
	doc, res, err := convertWith(t, `<table><tr><td>x</td></tr></table><p>y</p>`, convertOptions{settings: &settings})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Tables()) != 0 || res.Tables != 0 {
		t.Error("tables must be skipped")
	}
	if got := paragraphTexts(doc); len(got) != 1 || got[0] != "y" {
		t.Errorf("paragraphs = %q", got)
	}
}

func TestTable_UnknownStyle(t *testing.T) {
	settings := defaultSettings()
	settings.TableStyle = "Fancy Grid"
	doc, res, err := convertWith(t, `<table><tr><td>x</td></tr></table>`, convertOptions{settings: &settings})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Tables()[0].Style != "" || !hasWarning(res, "Fancy Grid") {
		t.Errorf("style %q, warnings %v", doc.Tables()[0].Style, res.Warnings)
	}
}

func TestTable_EmptyIgnored(t *testing.T) {
	doc, _ := convertHTML(t, `<table></table><p>x</p>`, "")
	if len(doc.Tables()) != 0 {
		t.Error("table without rows must not be emitted")
	}
}

func TestTable_InsideList(t *testing.T) {
	doc, _ := convertHTML(t, `<ul><li>a<table><tr><td>t</td></tr></table>b</li></ul>`, "")
	if len(doc.Tables()) != 1 {
		t.Fatal("table is missing")
	}
	ps := doc.Paragraphs()
	if len(ps) != 2 || ps[0].StyleName() != "List Bullet" || ps[1].StyleName() != "List Paragraph" {
		t.Errorf("paragraphs = %q", paragraphTexts(doc))
	}
}
