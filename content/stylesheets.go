package content

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"hdx/config"
	"hdx/css"
)

// maxImportDepth limits @import chains.
const maxImportDepth = 8

// collectStyles fills stylesheet in cascade order: <style> blocks and
// linked stylesheets in document order, then user stylesheet. Linked and
// imported sheets are loaded selectively when requested. Load failures are
// logged and recorded as stylesheet warnings.
func (c *Content) collectStyles(ctx context.Context, doc *html.Node, cfg *config.DocumentConfig, user []byte, log *zap.Logger) {
	parser := css.NewParser(log)
	sheet := c.Sheet

	if cfg.SelectiveSheets {
		markUsed(sheet, doc)
	}

	seen := make(map[string]bool)
	var load func(href string, depth int)
	load = func(href string, depth int) {
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		if depth > maxImportDepth {
			sheet.Warn("stylesheet " + href + " skipped, imports are nested too deep")
			return
		}
		data, err := c.Fetcher.FetchStylesheet(ctx, href)
		if err != nil {
			log.Warn("Unable to load stylesheet", zap.String("href", href), zap.Error(err))
			sheet.Warn(err.Error())
			return
		}
		parseWithImports(parser, sheet, data, cfg.SelectiveSheets, href, func(imp string) { load(importTarget(href, imp), depth+1) })
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Style:
				if mediaMatches(n) {
					parseWithImports(parser, sheet, []byte(textOf(n)), false, "<style>", func(imp string) { load(imp, 1) })
				}
				return
			case atom.Link:
				if isStylesheetLink(n) && mediaMatches(n) {
					load(strings.TrimSpace(Attr(n, "href")), 0)
				}
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	if len(user) > 0 {
		parser.Parse(sheet, user, false, "user stylesheet")
	}
}

// parseWithImports loads @import targets declared by data and then parses
// data itself, so imported rules precede rules of the importing sheet.
func parseWithImports(parser *css.Parser, sheet *css.Stylesheet, data []byte, selective bool, source string, load func(string)) {
	for _, imp := range parser.Imports(data) {
		load(imp)
	}
	parser.Parse(sheet, data, selective, source)
}

// importTarget resolves @import reference against URL or path of the
// stylesheet declaring it.
func importTarget(href, imp string) string {
	if u, err := url.Parse(imp); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return imp
	}
	if base, err := url.Parse(href); err == nil && len(base.Scheme) > 1 {
		switch strings.ToLower(base.Scheme) {
		case "http", "https", "file":
			if ref, err := url.Parse(imp); err == nil {
				return base.ResolveReference(ref).String()
			}
			return imp
		}
	}
	if strings.HasPrefix(imp, "/") {
		return imp
	}
	return path.Join(path.Dir(filepath.ToSlash(href)), imp)
}

func isStylesheetLink(n *html.Node) bool {
	for _, rel := range strings.Fields(strings.ToLower(Attr(n, "rel"))) {
		if rel == "stylesheet" {
			return true
		}
	}
	return false
}

// mediaMatches evaluates media attribute of <style> or <link>.
func mediaMatches(n *html.Node) bool {
	media := strings.ToLower(strings.TrimSpace(Attr(n, "media")))
	if media == "" {
		return true
	}
	for _, q := range strings.Split(media, ",") {
		q = strings.TrimSpace(q)
		negated := strings.HasPrefix(q, "not ")
		q = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(q, "not "), "only "))
		mq := css.MediaQuery{Raw: q, Negated: negated}
		mq.Type, _, _ = strings.Cut(q, " ")
		if strings.Contains(q, "(") {
			mq.Features = []string{q}
		}
		if mq.Evaluate() {
			return true
		}
	}
	return false
}

// markUsed registers every tag, class and id of the document for selective
// stylesheet loading.
func markUsed(sheet *css.Stylesheet, n *html.Node) {
	if n.Type == html.ElementNode {
		sheet.MarkUsed(css.KindTag, n.Data)
		for _, class := range strings.Fields(Attr(n, "class")) {
			sheet.MarkUsed(css.KindClass, class)
		}
		sheet.MarkUsed(css.KindID, strings.TrimSpace(Attr(n, "id")))
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		markUsed(sheet, ch)
	}
}
