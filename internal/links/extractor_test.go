package links

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
)

const fixturePage = `<html><head><title>Acme</title></head><body>
<header><nav>
  <a href="/">Home</a>
  <a href="HTTPS://Example.com/pricing/">Pricing</a>
  <a href="/blog/post-1">Post One</a>
  <a href="https://www.example.com/about">About</a>
</nav></header>
<main>
  <p>Start with <a href="/blog/post-2">our second post on caching</a> if you are new to the topic.</p>
  <p>Compare <a href="https://example.com/pricing#plans">detailed pricing plans for teams</a> before you buy anything.</p>
  <p>Grab the <a href="/files/report.PDF">annual report</a> or read the <a href="https://other.org/docs/manual.pdf">vendor manual</a>.</p>
  <a href="https://other.org/page">Partner</a>
  <a href="https://other.org/docs">Partner docs</a>
  <a href="mailto:hi@example.com">Email us</a>
  <a href="javascript:void(0)">Open</a>
  <a href="#top">Top</a>
</main>
<footer>
  <a href="/legal/terms">Terms</a>
  <a href="https://twitter.com/acme"><img src="t.png" alt=""></a>
  <a href="https://www.linkedin.com/company/acme">LinkedIn</a>
</footer>
</body></html>`

func byURL(t *testing.T, links []crawler.LinkCandidate) map[string]crawler.LinkCandidate {
	t.Helper()
	out := make(map[string]crawler.LinkCandidate, len(links))
	for _, l := range links {
		_, dup := out[l.URL]
		require.False(t, dup, "duplicate candidate for %s", l.URL)
		out[l.URL] = l
	}
	return out
}

// TestExtractClassifiesByPrecedence ensures each anchor lands in the first matching category.
func TestExtractClassifiesByPrecedence(t *testing.T) {
	t.Parallel()

	links, err := New().Extract(fixturePage, "https://example.com/")
	require.NoError(t, err)
	got := byURL(t, links)

	tests := []struct {
		url      string
		category crawler.LinkCategory
	}{
		{"https://example.com/pricing", crawler.LinkCategoryImportant},
		{"https://example.com/blog/post-1", crawler.LinkCategoryNavigation},
		{"https://www.example.com/about", crawler.LinkCategoryImportant},
		{"https://example.com/blog/post-2", crawler.LinkCategoryContent},
		{"https://example.com/files/report.PDF", crawler.LinkCategoryDownload},
		{"https://other.org/docs/manual.pdf", crawler.LinkCategoryDownload},
		{"https://other.org/page", crawler.LinkCategoryExternal},
		{"https://other.org/docs", crawler.LinkCategoryImportant},
		{"https://example.com/legal/terms", crawler.LinkCategoryFooter},
		{"https://twitter.com/acme", crawler.LinkCategorySocial},
		{"https://www.linkedin.com/company/acme", crawler.LinkCategorySocial},
	}
	for _, tt := range tests {
		l, ok := got[tt.url]
		require.True(t, ok, "missing %s", tt.url)
		require.Equal(t, tt.category, l.Category, tt.url)
	}
	require.Len(t, links, len(tests))
	require.Equal(t, "https://example.com/pricing", links[0].URL)
}

// TestExtractDeduplicatesNormalizedURLs ensures casing, trailing slash and
// fragment variants merge into one candidate carrying the max score.
func TestExtractDeduplicatesNormalizedURLs(t *testing.T) {
	t.Parallel()

	links, err := New().Extract(fixturePage, "https://example.com/")
	require.NoError(t, err)

	var matches []crawler.LinkCandidate
	for _, l := range links {
		if l.URL == "https://example.com/pricing" {
			matches = append(matches, l)
		}
	}
	require.Len(t, matches, 1)
	pricing := matches[0]
	require.Equal(t, "Pricing", pricing.AnchorText)
	require.Equal(t, BaseOther+BonusImportant+BonusDescriptiveText+BonusContext, pricing.PriorityScore)
	require.Empty(t, pricing.Reason)
}

func TestExtractScores(t *testing.T) {
	t.Parallel()

	links, err := New().Extract(fixturePage, "https://example.com/")
	require.NoError(t, err)
	got := byURL(t, links)

	require.Equal(t, BaseNavigation, got["https://example.com/blog/post-1"].PriorityScore)
	post := got["https://example.com/blog/post-2"]
	require.Equal(t, BaseContent+BonusDescriptiveText+BonusContext, post.PriorityScore)
	require.Contains(t, post.Reason, "if you are new to the topic")
	require.Equal(t, BaseFooter, got["https://example.com/legal/terms"].PriorityScore)
	require.Equal(t, BaseOther, got["https://other.org/page"].PriorityScore)
}

// TestExtractMergesReasons ensures distinct reasons are joined once each.
func TestExtractMergesReasons(t *testing.T) {
	t.Parallel()

	page := `<p>First mention of <a href="/guide">the guide</a> in a longer sentence here.</p>
<p>Second mention of <a href="/guide/">the guide</a> with different surrounding words.</p>
<p>First mention of <a href="/guide">the guide</a> in a longer sentence here.</p>`
	links, err := New().Extract(page, "https://example.com")
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t,
		"First mention of the guide in a longer sentence here."+reasonSeparator+
			"Second mention of the guide with different surrounding words.",
		links[0].Reason,
	)
}

func TestExtractScenarioNavigation(t *testing.T) {
	t.Parallel()

	page := `<nav><a href="/">Home</a> <a href="/about">About</a></nav><article><h1>Title</h1><p>Body</p></article>`
	links, err := New().Extract(page, "https://example.com/")
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "About", links[0].AnchorText)
	require.Contains(t,
		[]crawler.LinkCategory{crawler.LinkCategoryImportant, crawler.LinkCategoryNavigation},
		links[0].Category,
	)
	require.True(t, links[0].Category.Crawlable())
}

func TestExtractRejectsRelativeBase(t *testing.T) {
	t.Parallel()

	_, err := New().Extract("<a href='/x'>x</a>", "/relative")
	require.ErrorIs(t, err, crawler.ErrInvalidURL)
}

func TestExtractHonoursBaseElement(t *testing.T) {
	t.Parallel()

	page := `<head><base href="https://cdn.example.com/site/"></head><body><a href="page">Page</a></body>`
	links, err := New().Extract(page, "https://example.com/")
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "https://cdn.example.com/site/page", links[0].URL)
	require.Equal(t, crawler.LinkCategoryExternal, links[0].Category)
}

func TestExtractBaseElementKeepsPageSite(t *testing.T) {
	t.Parallel()

	page := `<head><base href="https://cdn.example.net/assets/"></head><body>
<p>Read <a href="https://example.com/blog/launch-notes">launch notes</a> or <a href="logo">the logo</a>.</p></body>`
	links, err := New().Extract(page, "https://www.example.com/")
	require.NoError(t, err)
	got := byURL(t, links)
	require.Len(t, got, 2)
	require.Equal(t, crawler.LinkCategoryContent, got["https://example.com/blog/launch-notes"].Category,
		"same site as the page even though <base> points elsewhere")
	require.Equal(t, crawler.LinkCategoryExternal, got["https://cdn.example.net/assets/logo"].Category)
}

func TestLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Docs", Label(crawler.LinkCandidate{AnchorText: "Docs", URL: "https://example.com/docs"}))
	require.Equal(t, "Twitter", Label(crawler.LinkCandidate{URL: "https://twitter.com/acme", Category: crawler.LinkCategorySocial}))
	require.Equal(t, "X (Twitter)", Label(crawler.LinkCandidate{URL: "https://x.com/acme", Category: crawler.LinkCategorySocial}))
	require.Equal(t, "PDF file", Label(crawler.LinkCandidate{URL: "https://example.com/a.pdf", Category: crawler.LinkCategoryDownload}))
}
