package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
)

var scraped = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func completedJob() crawler.Job {
	page := crawler.PageResult{
		URL:              "https://example.com/",
		Title:            "Example Home",
		Description:      "An example page",
		Language:         "en",
		CleanedContent:   crawler.CleanedContent{Text: "Hello, world.\n\nSecond paragraph.", WordCount: 4},
		Quality:          crawler.QualityScore{Total: 42},
		ExtractionMethod: "semantic",
		FetchedAt:        scraped,
		Links: []crawler.LinkCandidate{
			{URL: "https://example.com/about", AnchorText: "About us", Category: crawler.LinkCategoryImportant},
			{URL: "https://example.com/pricing", AnchorText: "Pricing", Category: crawler.LinkCategoryImportant},
			{URL: "https://example.com/blog", AnchorText: "Blog", Category: crawler.LinkCategoryNavigation},
			{URL: "https://other.org/", AnchorText: "Other", Category: crawler.LinkCategoryExternal},
		},
	}
	return crawler.Job{
		ID:         "job-1",
		Status:     crawler.JobStatusCompleted,
		Parameters: crawler.JobParameters{URL: "https://example.com/", MaxPages: 2},
		Failures: []crawler.PageFailure{
			{URL: "https://example.com/broken", Error: "fetch failed: status 500", StatusCode: 500, FailedAt: scraped},
		},
		Result: &crawler.JobResult{
			URL:          "https://example.com/",
			Title:        "Example Home",
			Content:      page.CleanedContent.Text,
			WordCount:    4,
			PagesScraped: 1,
			Pages:        []crawler.PageResult{page},
		},
	}
}

func TestCSV(t *testing.T) {
	t.Parallel()

	data, err := CSV(completedJob())
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, Header, rows[0])

	page := rows[1]
	require.Equal(t, "https://example.com/", page[0])
	require.Equal(t, "Hello, world.\n\nSecond paragraph.", page[3])
	require.Equal(t, "4", page[4])
	require.Equal(t, "42", page[6])
	require.Equal(t, "About us (https://example.com/about); Pricing (https://example.com/pricing)", page[8])
	require.Equal(t, "Blog (https://example.com/blog)", page[9])
	require.Equal(t, "Other (https://other.org/)", page[10])
	require.Equal(t, "true", page[12])
	require.Equal(t, "2024-03-10T09:30:00Z", page[14])

	failure := rows[2]
	require.Equal(t, "https://example.com/broken", failure[0])
	require.Equal(t, "false", failure[12])
	require.Equal(t, "fetch failed: status 500", failure[13])
}

func TestJSON(t *testing.T) {
	t.Parallel()

	data, err := JSON(completedJob(), scraped, true)
	require.NoError(t, err)
	require.Contains(t, string(data), "\n  \"job_id\": \"job-1\"")

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "job-1", doc.JobID)
	require.Equal(t, 1, doc.Result.PagesScraped)
	require.Len(t, doc.Failures, 1)

	compact, err := JSON(completedJob(), scraped, false)
	require.NoError(t, err)
	require.NotContains(t, string(compact), "\n")
}

func TestExportRequiresCompletedJob(t *testing.T) {
	t.Parallel()

	running := crawler.Job{ID: "job-2", Status: crawler.JobStatusRunning}
	_, err := CSV(running)
	require.ErrorIs(t, err, crawler.ErrJobNotCompleted)
	_, err = JSON(running, scraped, false)
	require.ErrorIs(t, err, crawler.ErrJobNotCompleted)
}

func TestFileName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "scrape_results_abc.csv", FileName("abc", "csv"))
}
