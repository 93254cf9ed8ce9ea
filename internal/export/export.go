// Package export renders completed jobs as downloadable JSON and CSV documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/links"
)

// Content types of the two export formats.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// Header is the CSV column order.
var Header = []string{
	"URL", "Title", "Description", "Content", "Word Count", "Extraction Method",
	"Quality Score", "Language", "Important Links", "Navigation Links", "External Links",
	"Custom Instructions Applied", "Success", "Error", "Scraped At",
}

// Document is the structured export of a completed job.
type Document struct {
	JobID      string                `json:"job_id"`
	Parameters crawler.JobParameters `json:"parameters"`
	Result     *crawler.JobResult    `json:"result"`
	Failures   []crawler.PageFailure `json:"failures"`
	ExportedAt time.Time             `json:"exported_at"`
}

// FileName is the attachment name for a job export.
func FileName(jobID, ext string) string {
	return fmt.Sprintf("scrape_results_%s.%s", jobID, ext)
}

// NewDocument builds the structured export. Only completed jobs can be exported.
func NewDocument(job crawler.Job, exportedAt time.Time) (Document, error) {
	if job.Status != crawler.JobStatusCompleted || job.Result == nil {
		return Document{}, fmt.Errorf("%w: job %s is %s", crawler.ErrJobNotCompleted, job.ID, job.Status)
	}
	failures := job.Failures
	if failures == nil {
		failures = []crawler.PageFailure{}
	}
	return Document{
		JobID:      job.ID,
		Parameters: job.Parameters,
		Result:     job.Result,
		Failures:   failures,
		ExportedAt: exportedAt,
	}, nil
}

// JSON encodes the job export, indented when pretty is set.
func JSON(job crawler.Job, exportedAt time.Time, pretty bool) ([]byte, error) {
	doc, err := NewDocument(job, exportedAt)
	if err != nil {
		return nil, err
	}
	var data []byte
	if pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// CSV flattens the job into one row per page followed by one row per failure.
func CSV(job crawler.Job) ([]byte, error) {
	if job.Status != crawler.JobStatusCompleted || job.Result == nil {
		return nil, fmt.Errorf("%w: job %s is %s", crawler.ErrJobNotCompleted, job.ID, job.Status)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, page := range job.Result.Pages {
		if err := w.Write(pageRow(page)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, failure := range job.Failures {
		if err := w.Write(failureRow(failure)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func pageRow(p crawler.PageResult) []string {
	return []string{
		p.URL,
		p.Title,
		p.Description,
		p.CleanedContent.Text,
		strconv.Itoa(p.CleanedContent.WordCount),
		p.ExtractionMethod,
		strconv.Itoa(p.Quality.Total),
		p.Language,
		linkList(p.LinksByCategory(crawler.LinkCategoryImportant)),
		linkList(p.LinksByCategory(crawler.LinkCategoryNavigation)),
		linkList(p.LinksByCategory(crawler.LinkCategoryExternal)),
		strconv.FormatBool(p.CustomInstructionsApplied),
		"true",
		"",
		formatTime(p.FetchedAt),
	}
}

func failureRow(f crawler.PageFailure) []string {
	row := make([]string, len(Header))
	row[0] = f.URL
	row[4] = "0"
	row[6] = "0"
	row[11] = "false"
	row[12] = "false"
	row[13] = f.Error
	row[14] = formatTime(f.FailedAt)
	return row
}

func linkList(candidates []crawler.LinkCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s (%s)", links.Label(c), c.URL))
	}
	return strings.Join(parts, "; ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
