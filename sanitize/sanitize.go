// Package sanitize filters user-supplied rich text down to the allow-listed
// markup that is permitted to reach storage, and derives plain-text excerpts.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// ExcerptLen is the maximum excerpt length in runes.
const ExcerptLen = 160

var policy = newPolicy()

// newPolicy builds the storage allow-list: basic text structure, links,
// images, code and quotes. Only http, https and mailto URLs survive;
// relative and scheme-relative URLs are dropped with their attribute.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "em", "i", "strong", "b", "u")
	p.AllowElements("ul", "ol", "li")
	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("code", "pre", "blockquote")
	p.AllowAttrs("href", "rel", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowAttrs("class").Globally()
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// HTML sanitizes raw markup. Pure and idempotent.
func HTML(raw string) string {
	return policy.Sanitize(raw)
}

// Markdown renders markdown to HTML and sanitizes the result.
func Markdown(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	opts := mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank}
	rendered := markdown.Render(doc, mdhtml.NewRenderer(opts))

	return policy.Sanitize(string(rendered))
}

var tags = regexp.MustCompile(`<[^>]*>`)

// Excerpt strips markup from content and truncates to ExcerptLen runes.
func Excerpt(content string) string {
	text := strings.TrimSpace(tags.ReplaceAllString(content, ""))
	runes := []rune(text)
	if len(runes) > ExcerptLen {
		runes = runes[:ExcerptLen]
	}
	return string(runes)
}
