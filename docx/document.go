package docx

import (
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// relationship types used by document part
const (
	relStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relNumbering = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	relSettings  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	relHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

type relationship struct {
	id       string
	typ      string
	target   string
	external bool
}

// Page geometry in points, US Letter with one inch margins.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
	PageMargin = 72.0
)

// Document is WordprocessingML document being built. It is not safe for
// concurrent use.
type Document struct {
	container

	// Lang is default run language ("en-US"), empty to omit.
	Lang string
	// Title goes to core properties.
	Title string

	log       *zap.Logger
	id        uuid.UUID
	styles    []*Style
	styleByID map[string]*Style
	numbering *numberingPart
	rels      []relationship
	pictures  []*Picture
	bookmarks int
}

// New creates empty document with built-in styles and list definitions.
func New(log *zap.Logger) *Document {
	d := &Document{
		log:       log.Named("docx"),
		id:        uuid.New(),
		styleByID: make(map[string]*Style),
		numbering: newNumbering(),
	}
	d.container.doc = d
	d.styles = builtinStyles()
	for _, st := range d.styles {
		d.styleByID[st.ID] = st
	}
	d.relate(relStyles, "styles.xml", false)
	d.relate(relNumbering, "numbering.xml", false)
	d.relate(relSettings, "settings.xml", false)
	return d
}

// ID returns unique document identifier written to settings.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// PrintableWidth returns width of text area in points.
func (d *Document) PrintableWidth() float64 {
	return PageWidth - 2*PageMargin
}

// relate registers relationship of document part and returns its id. Same
// external target is registered once.
func (d *Document) relate(typ, target string, external bool) string {
	if external {
		for _, r := range d.rels {
			if r.external && r.typ == typ && r.target == target {
				return r.id
			}
		}
	}
	id := "rId" + strconv.Itoa(len(d.rels)+1)
	d.rels = append(d.rels, relationship{id: id, typ: typ, target: target, external: external})
	return id
}
