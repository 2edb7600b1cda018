package htmlx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextStripsCommentsScriptsStyleAndTags(t *testing.T) {
	html := `<html><!-- a comment --><head><style>body{color:red}</style>
<script type="text/javascript">alert('hi')</script></head>
<body><p>Hello&nbsp;World &amp; Friends</p></body></html>`
	assert.Equal(t, "Hello World & Friends", ExtractText(html))
}

func TestExtractTextUnmatchedCommentTruncates(t *testing.T) {
	html := `<p>keep this</p><!-- never closed <p>drop this</p>`
	assert.Equal(t, "keep this", ExtractText(html))
}

func TestExtractTextUnmatchedScriptTruncates(t *testing.T) {
	html := `<p>keep this</p><script>var x = 1;`
	assert.Equal(t, "keep this", ExtractText(html))
}

func TestExtractTextDecodesEntities(t *testing.T) {
	html := `<p>&lt;tag&gt; &quot;quoted&quot; &amp;amp;</p>`
	assert.Equal(t, `<tag> "quoted" &amp;`, ExtractText(html))
}

func TestExtractTextIsIdempotent(t *testing.T) {
	html := `<div>Some <b>bold</b> text &amp; more</div>`
	once := ExtractText(html)
	twice := ExtractText(once)
	assert.Equal(t, once, twice)
}

func TestGetTitle(t *testing.T) {
	assert.Equal(t, "Hello", GetTitle("<html><head><title>Hello</title></head></html>"))
	assert.Equal(t, "", GetTitle("<html><head></head></html>"))
	assert.Equal(t, "", GetTitle("<html><head><title>Unclosed"))
}

func TestExtractLinksResolution(t *testing.T) {
	html := `<a href="/x">abs path</a><a href="x">relative</a><a href="https://other.test/y">absolute</a><a href="#frag">skip</a><a href="">skip</a>`
	links := ExtractLinks(html, "https://h.test/a/b")
	assert.Equal(t, []string{
		"https://h.test/x",
		"https://h.test/a/x",
		"https://other.test/y",
	}, links)
}

func TestExtractWordsFilters(t *testing.T) {
	words := ExtractWords("Foo bar1 ab ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJKLMNOP 123 f00bar")
	// "ab" too short (len<3), the long run exceeds 32 chars, "123" is 0% alpha,
	// "bar1" is 75% alpha (kept), "f00bar" is 66% alpha (rejected).
	assert.Equal(t, []string{"foo", "bar1"}, words)
}

func TestExtractWordsLowercases(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, ExtractWords("HELLO World"))
}
