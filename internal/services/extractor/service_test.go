package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lustro/internal/common"
)

const samplePage = `<html>
<head>
	<title>  Sample   Page </title>
	<meta property="og:title" content="OG Sample">
	<script>var tracking = true;</script>
	<style>body { color: red; }</style>
</head>
<body>
	<nav><a href="/nav">Navigation</a></nav>
	<main>
		<h1>Welcome</h1>
		<p>First   paragraph with	 spaces.</p>
		<p>Second paragraph.</p>
		<ul><li>One</li><li>Two</li></ul>
		<table><tr><th>Name</th><td>Value</td></tr></table>
		<a href="/relative">Relative</a>
		<a href="http://other.test/abs">Absolute</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:a@b.test">Mail</a>
		<a href="#top">Fragment</a>
	</main>
	<footer>Footer junk</footer>
</body>
</html>`

func newTestService() *Service {
	return NewService(common.GetLogger())
}

func TestExtractTextStripsBoilerplate(t *testing.T) {
	svc := newTestService()

	text, err := svc.ExtractText(samplePage)
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph with spaces.")
	assert.Contains(t, text, "Second paragraph.")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer junk")
	// Whitespace runs are collapsed
	assert.NotContains(t, text, "  ")
}

func TestExtractStructured(t *testing.T) {
	svc := newTestService()

	structured, err := svc.ExtractStructured(samplePage)
	require.NoError(t, err)

	require.Len(t, structured.Headings, 1)
	assert.Equal(t, 1, structured.Headings[0].Level)
	assert.Equal(t, "Welcome", structured.Headings[0].Text)
	assert.Len(t, structured.Paragraphs, 2)
	assert.Equal(t, []string{"One", "Two"}, structured.ListItems)
	assert.Equal(t, []string{"Name", "Value"}, structured.TableCells)
}

func TestExtractStructuredEmptyInput(t *testing.T) {
	svc := newTestService()

	structured, err := svc.ExtractStructured("")
	require.NoError(t, err)
	assert.Empty(t, structured.Headings)
	assert.True(t, structured.Fingerprint().IsZero())
}

func TestExtractTitleFallbacks(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name string
		html string
		want string
	}{
		{"title tag", samplePage, "Sample Page"},
		{"og title", `<html><head><meta property="og:title" content="From OG"></head><body></body></html>`, "From OG"},
		{"h1", `<html><body><h1>From H1</h1></body></html>`, "From H1"},
		{"twitter", `<html><head><meta name="twitter:title" content="From Twitter"></head><body></body></html>`, "From Twitter"},
		{"none", `<html><body><p>no title here</p></body></html>`, "Untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.ExtractTitle(tt.html))
		})
	}
}

func TestExtractLinks(t *testing.T) {
	svc := newTestService()

	links, err := svc.ExtractLinks(samplePage, "http://a.test/dir/page")
	require.NoError(t, err)

	assert.Contains(t, links, "http://a.test/nav")
	assert.Contains(t, links, "http://a.test/relative")
	assert.Contains(t, links, "http://other.test/abs")
	for _, link := range links {
		assert.NotContains(t, link, "javascript:")
		assert.NotContains(t, link, "mailto:")
		assert.NotContains(t, link, "#top")
	}
}

func TestExtractLinksDeduplicates(t *testing.T) {
	svc := newTestService()

	html := `<body><a href="/x">one</a><a href="/x">two</a></body>`
	links, err := svc.ExtractLinks(html, "http://a.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test/x"}, links)
}

func TestDeriveMarkdown(t *testing.T) {
	svc := newTestService()

	markdown, err := svc.DeriveMarkdown(samplePage)
	require.NoError(t, err)

	assert.Contains(t, markdown, "# Welcome")
	assert.Contains(t, markdown, "First paragraph")
	assert.NotContains(t, markdown, "tracking")
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\tb   c  "))
	assert.Equal(t, "", CollapseWhitespace("   \n\t "))
}
