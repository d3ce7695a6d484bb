// Package content loads source documents: HTML or Markdown is decoded,
// optionally sanitized and parsed into normalized HTML tree, document
// stylesheets are collected into single cascade.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/language"

	"hdx/config"
	"hdx/css"
	"hdx/fetch"
	"hdx/misc"
	"hdx/state"
)

// ErrUnsupportedInput is returned for sources which are neither HTML nor
// Markdown.
var ErrUnsupportedInput = errors.New("unsupported input type")

// Format is kind of source document.
type Format int

const (
	FormatHTML Format = iota
	FormatMarkdown
)

func (f Format) String() string {
	if f == FormatMarkdown {
		return "markdown"
	}
	return "html"
}

// DetectFormat returns format of the source by its file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Base(name))
}

// Content is loaded source document ready for transformation.
type Content struct {
	SrcName string
	Format  Format
	Doc     *html.Node // document node
	Sheet   *css.Stylesheet
	Title   string
	Lang    language.Tag
	Fetcher *fetch.Fetcher
	WorkDir string // debug artifacts, only when report is requested
}

// Body returns body element or document node when fragment was parsed.
func (c *Content) Body() *html.Node {
	if body := findElement(c.Doc, atom.Body); body != nil {
		return body
	}
	return c.Doc
}

// HTML returns normalized markup.
func (c *Content) HTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, c.Doc); err != nil {
		return ""
	}
	return buf.String()
}

// Prepare reads source, converts Markdown to HTML, decodes charset, parses
// markup and builds stylesheet. Document settings come from environment
// configuration. When files is not nil resources referenced by document are
// looked up there rather than on disk, srcName is then path inside files.
func Prepare(ctx context.Context, r io.Reader, srcName string, files fs.FS, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Document

	format, err := DetectFormat(srcName)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatMarkdown:
		src, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("unable to read source: %w", err)
		}
		if data, err = markdownToHTML(ctx, src, &cfg.Markdown); err != nil {
			return nil, err
		}
	default:
		// charset from BOM or <meta>, otherwise guessed from content
		cr, err := charset.NewReader(r, "text/html")
		if err != nil {
			return nil, fmt.Errorf("unable to detect source charset: %w", err)
		}
		if data, err = io.ReadAll(cr); err != nil {
			return nil, fmt.Errorf("unable to read source: %w", err)
		}
	}

	c := &Content{SrcName: srcName, Format: format}

	if env.Rpt != nil {
		if c.WorkDir, err = os.MkdirTemp("", misc.GetAppName()+"-"+filepath.Base(srcName)+"-"); err != nil {
			return nil, fmt.Errorf("unable to create temporary directory: %w", err)
		}
		// batch may hold documents with the same base name
		env.Rpt.Store(filepath.Base(c.WorkDir), c.WorkDir)
		if err := os.WriteFile(filepath.Join(c.WorkDir, "source.html"), data, 0644); err != nil {
			return nil, fmt.Errorf("unable to write source for debugging: %w", err)
		}
	}

	// styles are collected from original markup, sanitizer drops <style>
	// and <link> elements
	original, err := parseMarkup(data, cfg.FixHTML)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", filepath.Base(srcName), err)
	}
	c.Doc = original
	if cfg.Sanitize {
		clean := sanitizePolicy().SanitizeBytes(data)
		if c.Doc, err = parseMarkup(clean, cfg.FixHTML); err != nil {
			return nil, fmt.Errorf("unable to parse sanitized %s: %w", filepath.Base(srcName), err)
		}
	}

	c.Title = strings.TrimSpace(textOf(findElement(original, atom.Title)))
	c.Lang = documentLanguage(original, log)
	opts := fetchOptions(cfg, srcName, baseHref(original))
	if files != nil {
		opts.Files, opts.BaseDir = files, path.Dir(filepath.ToSlash(srcName))
	}
	opts.NoLocal = env.NoLocalFiles
	c.Fetcher = fetch.New(opts, log)

	c.Sheet = css.NewStylesheet()
	if cfg.Styles {
		c.collectStyles(ctx, original, cfg, env.UserStyle, log)
	}

	log.Debug("Content prepared",
		zap.String("source", srcName),
		zap.Stringer("format", c.Format),
		zap.Stringer("lang", c.Lang),
		zap.Int("rules", c.Sheet.Len()),
		zap.Bool("sanitized", cfg.Sanitize))

	if c.WorkDir != "" {
		if err := os.WriteFile(filepath.Join(c.WorkDir, "prepared.html"), []byte(c.HTML()), 0644); err != nil {
			return nil, fmt.Errorf("unable to write prepared document for debugging: %w", err)
		}
		if err := os.WriteFile(filepath.Join(c.WorkDir, "prepared.txt"), []byte(c.String()), 0644); err != nil {
			return nil, fmt.Errorf("unable to write content dump for debugging: %w", err)
		}
	}
	return c, nil
}

// parseMarkup builds tree of complete document or, when fix is false, of
// body fragment kept under bare document node.
func parseMarkup(data []byte, fix bool) (*html.Node, error) {
	if fix {
		return html.Parse(bytes.NewReader(data))
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(data), body)
	if err != nil {
		return nil, err
	}
	doc := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		doc.AppendChild(n)
	}
	return doc, nil
}

// sanitizePolicy keeps user generated content together with presentation
// attributes conversion relies on.
func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowStyling()
	p.AllowAttrs("style", "align", "valign", "bgcolor", "width", "height").Globally()
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowElements("font", "center", "u", "s", "strike", "mark", "caption")
	p.AllowAttrs("color", "face", "size").OnElements("font")
	return p
}

func fetchOptions(cfg *config.DocumentConfig, srcName, base string) fetch.Options {
	opts := fetch.Options{
		Timeout:     cfg.Fetch.Timeout,
		MaxSize:     cfg.Fetch.MaxSize,
		UserAgent:   cfg.Fetch.UserAgent,
		AuthHeader:  string(cfg.Fetch.AuthHeader),
		AllowRemote: cfg.Fetch.AllowRemote,
	}
	if dir, err := filepath.Abs(filepath.Dir(srcName)); err == nil {
		opts.BaseDir = dir
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		opts.BaseURL = base
	}
	return opts
}

func documentLanguage(doc *html.Node, log *zap.Logger) language.Tag {
	root := findElement(doc, atom.Html)
	if root == nil {
		return language.Und
	}
	value := Attr(root, "lang")
	if value == "" {
		value = Attr(root, "xml:lang")
	}
	if value == "" {
		return language.Und
	}
	tag, err := language.Parse(value)
	if err != nil {
		log.Warn("Ignoring malformed document language", zap.String("lang", value), zap.Error(err))
		return language.Und
	}
	return tag
}

func baseHref(doc *html.Node) string {
	if base := findElement(doc, atom.Base); base != nil {
		return Attr(base, "href")
	}
	return ""
}

// Attr returns value of attribute key, names are compared case
// insensitively.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// findElement returns first element with atom in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
