// Package feed renders markdown-authored campus content (news posts and
// discussion threads) to compact HTML for display.
package feed

import (
	"bytes"
	"html/template"
	"log"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown to minified HTML. Safe for concurrent use.
type Renderer struct {
	md  goldmark.Markdown
	min *minify.M
}

// NewRenderer builds a Renderer with GFM tables, autolinks, strikethrough
// and fenced-code highlighting in the given chroma style.
func NewRenderer(style string) *Renderer {
	if style == "" {
		style = "monokai"
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Linkify,
			extension.Strikethrough,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)

	return &Renderer{md: md, min: m}
}

// Render converts markdown source to minified HTML. Minification failures
// fall back to the unminified output rather than erroring.
func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	out, err := r.min.Bytes("text/html", buf.Bytes())
	if err != nil {
		log.Printf("FEED: minify warning: %v (using original)", err)
		return template.HTML(buf.String()), nil
	}
	return template.HTML(out), nil
}
