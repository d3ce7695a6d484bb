package docx

import (
	"strconv"

	"github.com/beevik/etree"
)

// list indentation in points
const (
	listIndent  = 36
	listHanging = 18
	levels      = 9
)

type abstractNum struct {
	id      int
	formats []string // per level, cycled
	texts   []string // per level, cycled
}

type numInstance struct {
	id       int
	abstract int
	restart  bool
}

// numberingPart holds numbering definitions. There is one abstract numbering
// per list kind and one base instance used by list styles, RequestNumbering
// adds instances restarting the count.
type numberingPart struct {
	abstracts []*abstractNum
	nums      []*numInstance
	byStyle   map[string]int // list style kind -> base instance id
}

func newNumbering() *numberingPart {
	n := &numberingPart{byStyle: make(map[string]int)}
	n.abstracts = []*abstractNum{
		{id: 0, formats: []string{"bullet"}, texts: []string{"•", "◦", "▪"}},
		{id: 1, formats: []string{"decimal", "lowerLetter", "lowerRoman"}},
	}
	n.byStyle["List Bullet"] = n.add(0, false)
	n.byStyle["List Number"] = n.add(1, false)
	return n
}

func (n *numberingPart) add(abstract int, restart bool) int {
	id := len(n.nums) + 1
	n.nums = append(n.nums, &numInstance{id: id, abstract: abstract, restart: restart})
	return id
}

func (n *numberingPart) baseNum(kind string) int {
	return n.byStyle[kind]
}

func (n *numberingPart) instance(id int) *numInstance {
	if id <= 0 || id > len(n.nums) {
		return nil
	}
	return n.nums[id-1]
}

// RequestNumbering creates numbering instance sharing definition with named
// list style. Unknown or non-list styles fall back to numbered list
// definition.
func (d *Document) RequestNumbering(base string, restart bool) int {
	abstract := 1
	if st, ok := d.LookupStyle(base, StyleParagraph); ok && st.numStyle != "" {
		if inst := d.numbering.instance(d.numbering.baseNum(st.numStyle)); inst != nil {
			abstract = inst.abstract
		}
	}
	return d.numbering.add(abstract, restart)
}

// NumberingRestarts reports whether numbering instance restarts its count,
// false for unknown ids.
func (d *Document) NumberingRestarts(numID int) bool {
	inst := d.numbering.instance(numID)
	return inst != nil && inst.restart
}

// NumberingInstances returns number of numbering instances.
func (d *Document) NumberingInstances() int {
	return len(d.numbering.nums)
}

func (n *numberingPart) xml() *etree.Document {
	doc := newPart()
	root := doc.CreateElement("w:numbering")
	root.CreateAttr("xmlns:w", nsW)

	for _, an := range n.abstracts {
		el := root.CreateElement("w:abstractNum")
		el.CreateAttr("w:abstractNumId", strconv.Itoa(an.id))
		el.CreateElement("w:multiLevelType").CreateAttr("w:val", "hybridMultilevel")
		for lvl := range levels {
			l := el.CreateElement("w:lvl")
			l.CreateAttr("w:ilvl", strconv.Itoa(lvl))
			l.CreateElement("w:start").CreateAttr("w:val", "1")
			l.CreateElement("w:numFmt").CreateAttr("w:val", an.formats[lvl%len(an.formats)])
			text := "%" + strconv.Itoa(lvl+1) + "."
			if len(an.texts) > 0 {
				text = an.texts[lvl%len(an.texts)]
			}
			l.CreateElement("w:lvlText").CreateAttr("w:val", text)
			l.CreateElement("w:lvlJc").CreateAttr("w:val", "left")
			ind := l.CreateElement("w:pPr").CreateElement("w:ind")
			ind.CreateAttr("w:left", twips(listIndent*float64(lvl+1)))
			ind.CreateAttr("w:hanging", twips(listHanging))
		}
	}

	for _, inst := range n.nums {
		el := root.CreateElement("w:num")
		el.CreateAttr("w:numId", strconv.Itoa(inst.id))
		el.CreateElement("w:abstractNumId").CreateAttr("w:val", strconv.Itoa(inst.abstract))
		if !inst.restart {
			continue
		}
		for lvl := range 3 {
			o := el.CreateElement("w:lvlOverride")
			o.CreateAttr("w:ilvl", strconv.Itoa(lvl))
			o.CreateElement("w:startOverride").CreateAttr("w:val", "1")
		}
	}
	return doc
}
