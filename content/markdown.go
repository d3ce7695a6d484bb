package content

import (
	"bytes"
	"context"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"hdx/config"
)

const markdownPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
</head>
<body>
%s
</body>
</html>`

// newMarkdown returns GFM converter. Code blocks are highlighted with
// inline styles, so colors reach the document through the cascade like any
// other inline style.
func newMarkdown(cfg *config.MarkdownConfig) goldmark.Markdown {
	style := cfg.HighlightStyle
	if styles.Get(style) == styles.Fallback {
		style = "github"
	}

	rendererOpts := []renderer.Option{ghtml.WithUnsafe()}
	if cfg.HardWraps {
		rendererOpts = append(rendererOpts, ghtml.WithHardWraps())
	}

	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)
}

// markdownToHTML renders Markdown source as complete HTML page.
func markdownToHTML(ctx context.Context, src []byte, cfg *config.MarkdownConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))

	var buf bytes.Buffer
	if err := newMarkdown(cfg).Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("unable to convert markdown: %w", err)
	}
	return fmt.Appendf(nil, markdownPage, buf.String()), nil
}
