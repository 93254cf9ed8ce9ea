package worker

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/webextract/internal/crawler"
)

const defaultMaxImportantLinks = 20

// Aggregate builds the job-level result from the recorded pages. pages[0] is
// the root page.
func Aggregate(
	params crawler.JobParameters,
	pages []crawler.PageResult,
	failures []crawler.PageFailure,
	scrapedAt time.Time,
	maxImportantLinks int,
) *crawler.JobResult {
	if maxImportantLinks <= 0 {
		maxImportantLinks = defaultMaxImportantLinks
	}
	result := &crawler.JobResult{
		URL:            params.URL,
		Pages:          append([]crawler.PageResult(nil), pages...),
		PagesScraped:   len(pages),
		ImportantLinks: importantLinks(pages, maxImportantLinks),
		Metadata: crawler.ResultMetadata{
			ScrapedAt:         scrapedAt,
			TotalPages:        len(pages) + len(failures),
			SuccessfulPages:   len(pages),
			FailedPages:       len(failures),
			ExtractionMethods: make(map[string]int),
		},
	}
	if len(pages) > 0 {
		result.Title = pages[0].Title
		result.Description = pages[0].Description
	}

	var (
		quality  int
		sections []string
	)
	for _, page := range pages {
		result.WordCount += page.CleanedContent.WordCount
		quality += page.Quality.Total
		result.Metadata.ExtractionMethods[page.ExtractionMethod]++
		if page.CustomInstructionsApplied {
			result.CustomInstructionsApplied = true
		}
		if page.CleanedContent.Text == "" {
			continue
		}
		if len(pages) == 1 {
			sections = append(sections, page.CleanedContent.Text)
			continue
		}
		sections = append(sections, fmt.Sprintf("--- Content from %s ---\n\n%s", page.URL, page.CleanedContent.Text))
	}
	result.Content = strings.Join(sections, "\n\n")
	if len(pages) > 0 {
		result.AverageQuality = math.Round(float64(quality)/float64(len(pages))*10) / 10
	}
	return result
}

// importantLinks merges important links across pages by URL, keeping the
// highest score, and returns the best n.
func importantLinks(pages []crawler.PageResult, n int) []crawler.LinkCandidate {
	var merged []crawler.LinkCandidate
	index := make(map[string]int)
	for _, page := range pages {
		for _, link := range page.LinksByCategory(crawler.LinkCategoryImportant) {
			if i, ok := index[link.URL]; ok {
				if link.PriorityScore > merged[i].PriorityScore {
					merged[i].PriorityScore = link.PriorityScore
				}
				continue
			}
			index[link.URL] = len(merged)
			merged = append(merged, link)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PriorityScore > merged[j].PriorityScore
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	if merged == nil {
		merged = []crawler.LinkCandidate{}
	}
	return merged
}
