package crawler

import (
	"net/http"
	"time"
)

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values held in the job registry.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// JobParameters captures what the client asked for.
type JobParameters struct {
	URL                string `json:"url"`
	MaxPages           int    `json:"max_pages"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
	SinglePage         bool   `json:"single_page"`
}

// Job is the registry record for one scrape request.
type Job struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Progress   int           `json:"progress"`
	Message    string        `json:"message"`
	Parameters JobParameters `json:"parameters"`
	Pages      []PageResult  `json:"pages"`
	Failures   []PageFailure `json:"failures,omitempty"`
	Result     *JobResult    `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	ExportURI  string        `json:"export_uri,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Clone returns a copy whose slices can be appended to without touching j.
// PageResult values are treated as immutable once recorded.
func (j Job) Clone() Job {
	cp := j
	cp.Pages = append([]PageResult(nil), j.Pages...)
	cp.Failures = append([]PageFailure(nil), j.Failures...)
	return cp
}

// PageFetchResult is the outcome of a single fetch attempt.
type PageFetchResult struct {
	URL        string
	FinalURL   string
	StatusCode int
	RawHTML    string
	Headers    http.Header
	Duration   time.Duration
	Err        error
}

// OK reports whether the fetch produced a usable document.
func (r PageFetchResult) OK() bool {
	return r.Err == nil
}

// ExtractionCandidate is the output of one extraction strategy.
type ExtractionCandidate struct {
	Strategy     string  `json:"strategy"`
	Text         string  `json:"text"`
	ElementCount int     `json:"element_count"`
	DensityScore float64 `json:"density_score"`
	WordCount    int     `json:"word_count"`
}

// Empty reports whether the candidate carries no words.
func (c ExtractionCandidate) Empty() bool {
	return c.WordCount == 0
}

// CleanedContent is the text produced by the cleaning pipeline.
type CleanedContent struct {
	Text          string   `json:"text"`
	StagesApplied []string `json:"stages_applied"`
	WordCount     int      `json:"word_count"`
}

// LinkCategory classifies a discovered link. Categories are mutually exclusive.
type LinkCategory string

// Link categories in the order the classifier considers them.
const (
	LinkCategorySocial     LinkCategory = "social"
	LinkCategoryDownload   LinkCategory = "download"
	LinkCategoryImportant  LinkCategory = "important"
	LinkCategoryExternal   LinkCategory = "external"
	LinkCategoryNavigation LinkCategory = "navigation"
	LinkCategoryFooter     LinkCategory = "footer"
	LinkCategoryContent    LinkCategory = "content"
)

// Crawlable reports whether links of this category may be followed automatically.
func (c LinkCategory) Crawlable() bool {
	switch c {
	case LinkCategoryNavigation, LinkCategoryImportant, LinkCategoryContent:
		return true
	default:
		return false
	}
}

// LinkCandidate is one deduplicated link found on a page.
type LinkCandidate struct {
	URL           string       `json:"url"`
	AnchorText    string       `json:"anchor_text"`
	Category      LinkCategory `json:"category"`
	PriorityScore int          `json:"priority_score"`
	Reason        string       `json:"reason,omitempty"`
}

// QualitySubscores holds the individual 0-100 signals behind a QualityScore.
type QualitySubscores struct {
	Length      int `json:"length"`
	Structure   int `json:"structure"`
	Vocabulary  int `json:"vocabulary"`
	Indicators  int `json:"indicators"`
	Readability int `json:"readability"`
}

// QualityScore is a 0-100 rating of cleaned content.
type QualityScore struct {
	Total     int              `json:"total"`
	Subscores QualitySubscores `json:"subscores"`
}

// KeyInformation lists notable fragments pulled from cleaned text.
type KeyInformation struct {
	Headings     []string `json:"headings,omitempty"`
	BulletPoints []string `json:"bullet_points,omitempty"`
	Numbers      []string `json:"numbers,omitempty"`
	Dates        []string `json:"dates,omitempty"`
}

// PageMetadata is descriptive information read from the document head and body.
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Byline      string `json:"byline,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Language    string `json:"language,omitempty"`
}

// PageResult is recorded for each successfully processed page.
type PageResult struct {
	URL                       string          `json:"url"`
	FinalURL                  string          `json:"final_url,omitempty"`
	StatusCode                int             `json:"status_code"`
	Title                     string          `json:"title"`
	Description               string          `json:"description,omitempty"`
	Byline                    string          `json:"byline,omitempty"`
	SiteName                  string          `json:"site_name,omitempty"`
	Language                  string          `json:"language,omitempty"`
	CleanedContent            CleanedContent  `json:"cleaned_content"`
	Quality                   QualityScore    `json:"quality"`
	Links                     []LinkCandidate `json:"links"`
	ExtractionMethod          string          `json:"extraction_method"`
	CustomInstructionsApplied bool            `json:"custom_instructions_applied"`
	KeyInformation            KeyInformation  `json:"key_information"`
	ContentHash               string          `json:"content_hash,omitempty"`
	FetchedAt                 time.Time       `json:"fetched_at"`
}

// LinksByCategory returns the page links of one category in page order.
func (p PageResult) LinksByCategory(category LinkCategory) []LinkCandidate {
	var out []LinkCandidate
	for _, link := range p.Links {
		if link.Category == category {
			out = append(out, link)
		}
	}
	return out
}

// PageFailure records a page that could not be processed.
type PageFailure struct {
	URL        string    `json:"url"`
	Error      string    `json:"error"`
	StatusCode int       `json:"status_code,omitempty"`
	FailedAt   time.Time `json:"failed_at"`
}

// JobResult is the aggregate view of a completed job.
type JobResult struct {
	URL                       string          `json:"url"`
	Title                     string          `json:"title"`
	Description               string          `json:"description,omitempty"`
	Content                   string          `json:"content"`
	WordCount                 int             `json:"word_count"`
	PagesScraped              int             `json:"pages_scraped"`
	AverageQuality            float64         `json:"average_quality"`
	ImportantLinks            []LinkCandidate `json:"important_links"`
	CustomInstructionsApplied bool            `json:"custom_instructions_applied"`
	Pages                     []PageResult    `json:"pages"`
	Metadata                  ResultMetadata  `json:"metadata"`
}

// ResultMetadata summarizes how a job went.
type ResultMetadata struct {
	ScrapedAt         time.Time      `json:"scraped_at"`
	TotalPages        int            `json:"total_pages"`
	SuccessfulPages   int            `json:"successful_pages"`
	FailedPages       int            `json:"failed_pages"`
	ExtractionMethods map[string]int `json:"extraction_methods"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Submitted int64
}

// Event types published when a job finishes.
const (
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
)

// JobEvent is the payload published when a job reaches a terminal state.
type JobEvent struct {
	Type           string    `json:"type"`
	JobID          string    `json:"job_id"`
	URL            string    `json:"url"`
	Status         JobStatus `json:"status"`
	PagesScraped   int       `json:"pages_scraped"`
	FailedPages    int       `json:"failed_pages"`
	AverageQuality float64   `json:"average_quality"`
	ExportURI      string    `json:"export_uri,omitempty"`
	Error          string    `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}
