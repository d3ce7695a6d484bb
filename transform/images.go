package transform

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"hdx/content"
	"hdx/css"
	"hdx/docx"
)

var errNoFetcher = errors.New("resource loading is not available")

// image inserts picture run, failure to load or decode image is replaced
// with text placeholder.
func (s *session) image(ec *elementContext) {
	src := strings.TrimSpace(content.Attr(ec.node, "src"))

	img, err := s.loadImage(src)
	if err != nil {
		name := src
		if s.t.fetcher != nil && src != "" {
			name = s.t.fetcher.Name(src)
		}
		s.t.warn("unable to insert image %s: %v", name, err)
		s.t.result.Placeholders++
		r := s.addRun()
		r.AddText("<image: " + name + ">")
		s.lineStart = false
		return
	}

	width := s.t.doc.PrintableWidth()
	w, _ := s.imageLength(ec.resolved.Value("width"), width)
	h, _ := s.imageLength(ec.resolved.Value("height"), width)

	p := s.paragraph()
	switch {
	case strings.EqualFold(strings.TrimSpace(ec.resolved.Value("float")), "right"):
		p.Props.Align = docx.AlignRight
	case strings.EqualFold(strings.TrimSpace(ec.resolved.Value("display")), "block"):
		if m := boxOf(ec.resolved, "margin"); isAuto(m.left) && isAuto(m.right) {
			p.Props.Align = docx.AlignCenter
		}
	}

	pic := s.addRun().AddPicture(img, w, h)
	if alt := strings.TrimSpace(content.Attr(ec.node, "alt")); alt != "" {
		pic.Name = alt
	}
	s.t.result.Images++
	s.lineStart = false
	s.log().Debug("Image inserted", zap.String("src", shorten(src)), zap.Float64("width", pic.Width), zap.Float64("height", pic.Height))
}

func (s *session) loadImage(src string) (*docx.Image, error) {
	if src == "" {
		return nil, errors.New("empty source")
	}
	if s.t.fetcher == nil {
		return nil, errNoFetcher
	}
	data, err := s.t.fetcher.Fetch(s.ctx, src)
	if err != nil {
		return nil, err
	}
	return docx.PrepareImage(data, s.t.settings.Image)
}

// imageLength converts picture dimension, plain numbers are pixels and
// percentages are relative to printable width. Zero means "not set".
func (s *session) imageLength(value string, base float64) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || isAuto(value) {
		return 0, false
	}
	num, unit, ok := css.SplitLength(value)
	if !ok || num <= 0 {
		return 0, false
	}
	switch unit {
	case "%":
		return num * base / 100, true
	case "":
		return num * 0.75, true
	}
	pt, ok := css.ConvertUnitMax(value, 0)
	return pt, ok
}

// shorten keeps data URIs out of logs.
func shorten(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
