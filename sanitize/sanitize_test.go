package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLStripsScripts(t *testing.T) {
	t.Parallel()

	got := HTML("<script>alert(1)</script><p>hi</p>")
	assert.Equal(t, "<p>hi</p>", got)
}

func TestHTMLKeepsAllowedMarkup(t *testing.T) {
	t.Parallel()

	in := `<h2>Title</h2><p class="lead">Some <strong>bold</strong> and <em>italic</em> text.</p><ul><li>one</li><li>two</li></ul><blockquote>quoted</blockquote><pre><code>x := 1</code></pre>`
	assert.Equal(t, in, HTML(in))
}

func TestHTMLDropsUnsafeAttributes(t *testing.T) {
	t.Parallel()

	got := HTML(`<p onclick="alert(1)" style="color:red">hi</p>`)
	assert.Equal(t, "<p>hi</p>", got)

	got = HTML(`<img src="https://example.com/a.png" alt="a" onerror="alert(1)">`)
	assert.NotContains(t, got, "onerror")
	assert.Contains(t, got, `src="https://example.com/a.png"`)
}

func TestHTMLURLSchemes(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{
		`<a href="https://example.com">x</a>`,
		`<a href="http://example.com">x</a>`,
		`<a href="mailto:a@example.com">x</a>`,
	} {
		assert.Contains(t, HTML(ok), "href=", "should keep %s", ok)
	}

	for _, bad := range []string{
		`<a href="javascript:alert(1)">x</a>`,
		`<a href="data:text/html;base64,PGI+">x</a>`,
		`<a href="//evil.example.com/x">x</a>`,
		`<a href="/relative/path">x</a>`,
	} {
		got := HTML(bad)
		assert.NotContains(t, got, "href=", "should drop href in %s, got %s", bad, got)
	}
}

func TestHTMLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<script>alert(1)</script><p>hi</p>",
		`<p class="x">text</p><img src="https://e.com/i.png" alt="i">`,
		"plain text with <unknown>tags</unknown>",
		`<a href="https://e.com" target="_blank" rel="nofollow">link</a>`,
	}
	for _, in := range inputs {
		once := HTML(in)
		assert.Equal(t, once, HTML(once), "sanitize not idempotent for %q", in)
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	got := Markdown("# Heading\n\nSome **bold** text with a [link](https://example.com).")
	assert.Contains(t, got, "<h1")
	assert.Contains(t, got, "<strong>bold</strong>")
	assert.Contains(t, got, `href="https://example.com"`)

	got = Markdown("evil <script>alert(1)</script> inline")
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "alert(1)")
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hi there", Excerpt("<p>hi <strong>there</strong></p>"))
	assert.Equal(t, "", Excerpt(""))
	assert.Equal(t, "", Excerpt("<p></p>"))

	long := strings.Repeat("abcde ", 100)
	got := Excerpt("<p>" + long + "</p>")
	assert.Len(t, []rune(got), ExcerptLen)
	assert.NotContains(t, got, "<")

	// rune-safe truncation
	wide := strings.Repeat("ё", 200)
	got = Excerpt(wide)
	assert.Equal(t, strings.Repeat("ё", ExcerptLen), got)
}
