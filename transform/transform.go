// Package transform converts HTML tree and its stylesheet into document
// model. Tree is replayed as a stream of start, end, text and comment events
// into a session which keeps open elements, style scopes, lists and links on
// stacks and emits paragraphs, runs and tables into the document.
package transform

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"hdx/config"
	"hdx/content"
	"hdx/css"
	"hdx/docx"
	"hdx/numbering"
)

// Settings control what parts of the source are converted.
type Settings struct {
	Images       bool
	Tables       bool
	Styles       bool
	HTMLComments bool

	DefaultStyle string            // paragraph style when nothing else applies
	TableStyle   string            // style of every table
	StyleMap     map[string]string // class -> paragraph style
	TagOverride  map[string]string // tag -> paragraph style

	MaxLength float64 // ceiling for indents and spacing, points
	Image     docx.ImageOptions
}

// NewSettings takes settings from document configuration.
func NewSettings(cfg *config.DocumentConfig) Settings {
	return Settings{
		Images:       cfg.Images,
		Tables:       cfg.Tables,
		Styles:       cfg.Styles,
		HTMLComments: cfg.HTMLComments,
		DefaultStyle: cfg.DefaultStyle,
		TableStyle:   cfg.TableStyle,
		StyleMap:     cfg.StyleMap,
		TagOverride:  cfg.TagOverride,
		MaxLength:    cfg.MaxIndentPoints(),
		Image: docx.ImageOptions{
			MaxWidth:           cfg.ImageProcessing.MaxWidth,
			ConvertUnsupported: cfg.ImageProcessing.ConvertUnsupported,
			SVGScale:           cfg.ImageProcessing.SVGScale,
		},
	}
}

// Fetcher loads image data.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
	// Name returns what placeholder shows for source which failed.
	Name(src string) string
}

// Result describes finished conversion.
type Result struct {
	// Warnings lists every distinct problem which did not stop conversion.
	Warnings     []string
	Images       int
	Placeholders int
	Tables       int
}

// Transformer holds state shared by document session and nested cell
// sessions. It converts single tree and must not be reused.
type Transformer struct {
	doc      *docx.Document
	sheet    *css.Stylesheet
	parser   *css.Parser
	fetcher  Fetcher
	settings Settings
	lists    *numbering.Manager
	lang     language.Tag
	log      *zap.Logger

	result Result
	warned map[string]bool
}

// New creates transformer writing into doc. Nil sheet and nil fetcher are
// allowed: no rules apply and every image becomes a placeholder.
func New(doc *docx.Document, sheet *css.Stylesheet, fetcher Fetcher, settings Settings, log *zap.Logger) *Transformer {
	if settings.DefaultStyle == "" {
		settings.DefaultStyle = "Normal"
	}
	if settings.MaxLength <= 0 {
		settings.MaxLength = css.DefaultMaxLength
	}
	log = log.Named("transform")
	return &Transformer{
		doc:      doc,
		sheet:    sheet,
		parser:   css.NewParser(log),
		fetcher:  fetcher,
		settings: settings,
		lists:    numbering.NewManager(doc),
		lang:     language.Und,
		log:      log,
		warned:   make(map[string]bool),
	}
}

// Transform converts root and everything below it. Ancestors of root take
// part in selector matching but produce no content.
func (t *Transformer) Transform(ctx context.Context, root *html.Node) (*Result, error) {
	s := t.newSession(ctx, t.doc, nil)
	if err := s.emit(root); err != nil {
		return &t.result, err
	}
	s.finish()

	t.log.Debug("Transformation done",
		zap.Int("blocks", t.doc.Len()),
		zap.Int("tables", t.result.Tables),
		zap.Int("images", t.result.Images),
		zap.Int("open_lists", t.lists.Active()),
		zap.Int("warnings", len(t.result.Warnings)))
	return &t.result, nil
}

// Convert transforms loaded content into doc.
func Convert(ctx context.Context, c *content.Content, doc *docx.Document, settings Settings, log *zap.Logger) (*Result, error) {
	doc.Title = c.Title
	if c.Lang != language.Und {
		doc.Lang = c.Lang.String()
	}

	var fetcher Fetcher
	if c.Fetcher != nil {
		fetcher = c.Fetcher
	}
	t := New(doc, c.Sheet, fetcher, settings, log)
	t.lang = c.Lang

	res, err := t.Transform(ctx, c.Body())
	if err != nil {
		return res, fmt.Errorf("unable to convert %s: %w", c.SrcName, err)
	}
	return res, nil
}

// warn records problem once and logs it.
func (t *Transformer) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if t.warned[msg] {
		return
	}
	t.warned[msg] = true
	t.result.Warnings = append(t.result.Warnings, msg)
	t.log.Warn(msg)
}

