package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/extractor"
	"github.com/JakeFAU/webextract/internal/hash/xxhash"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubDetector struct {
	code string
	ok   bool
}

func (d stubDetector) Detect(string) (string, bool) { return d.code, d.ok }

func paragraph(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "meaningful"
	}
	return strings.Join(words, " ") + "."
}

func scenarioPage() string {
	return `<html lang="en-GB"><head><title>Scenario Page Title</title></head><body>
<nav><a href="/about">About</a> <a href="/">Home</a></nav>
<article><h1>Title Heading</h1><p>` + paragraph(60) + `</p></article>
</body></html>`
}

func TestProcessScenarioPage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := New(Deps{
		Hasher:   xxhash.New(),
		Clock:    fixedClock{t: now},
		Detector: stubDetector{},
	})

	res, err := p.Process(context.Background(), crawler.PageFetchResult{
		URL:        "https://example.com/",
		FinalURL:   "https://example.com/",
		StatusCode: 200,
		RawHTML:    scenarioPage(),
	}, "")
	require.NoError(t, err)

	require.Equal(t, extractor.StrategySemantic, res.ExtractionMethod)
	require.Contains(t, res.CleanedContent.Text, "Title Heading")
	require.Equal(t, crawler.CountWords(res.CleanedContent.Text), res.CleanedContent.WordCount)
	require.Greater(t, res.Quality.Total, 0)
	require.Equal(t, "en", res.Language)
	require.Len(t, res.ContentHash, 16)
	require.Equal(t, now, res.FetchedAt)
	require.Equal(t, 200, res.StatusCode)
	require.False(t, res.CustomInstructionsApplied)

	var about *crawler.LinkCandidate
	for i := range res.Links {
		if strings.HasSuffix(res.Links[i].URL, "/about") {
			about = &res.Links[i]
		}
	}
	require.NotNil(t, about)
	require.NotEqual(t, crawler.LinkCategoryExternal, about.Category)
	require.Contains(t,
		[]crawler.LinkCategory{crawler.LinkCategoryImportant, crawler.LinkCategoryNavigation},
		about.Category)
}

func TestProcessPrefersDetectedLanguage(t *testing.T) {
	t.Parallel()

	p := New(Deps{Detector: stubDetector{code: "de", ok: true}})
	res, err := p.Process(context.Background(), crawler.PageFetchResult{
		URL:     "https://example.com/",
		RawHTML: scenarioPage(),
	}, "")
	require.NoError(t, err)
	require.Equal(t, "de", res.Language)
	require.Empty(t, res.ContentHash)
}

func TestProcessReturnsFetchError(t *testing.T) {
	t.Parallel()

	fetchErr := &crawler.FetchError{URL: "https://example.com/", StatusCode: 500}
	_, err := New(Deps{}).Process(context.Background(), crawler.PageFetchResult{
		URL: "https://example.com/",
		Err: fetchErr,
	}, "")
	var target *crawler.FetchError
	require.True(t, errors.As(err, &target))
	require.Equal(t, 500, target.StatusCode)
}

func TestProcessRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{}).Process(context.Background(), crawler.PageFetchResult{
		URL:     "/relative",
		RawHTML: "<p>hi</p>",
	}, "")
	require.ErrorIs(t, err, crawler.ErrInvalidURL)
}

func TestProcessEmptyPage(t *testing.T) {
	t.Parallel()

	res, err := New(Deps{}).Process(context.Background(), crawler.PageFetchResult{
		URL:     "https://example.com/empty",
		RawHTML: "<html><body></body></html>",
	}, "")
	require.NoError(t, err)
	require.Equal(t, extractor.StrategyRaw, res.ExtractionMethod)
	require.Equal(t, 0, res.CleanedContent.WordCount)
	require.NotNil(t, res.Links)
	require.Equal(t, "Untitled", res.Title)
}
