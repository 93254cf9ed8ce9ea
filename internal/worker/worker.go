// Package worker runs scrape jobs: it drives the crawl loop for one job at a
// time, records progress in the job store and finalizes the result.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/export"
	"github.com/JakeFAU/webextract/internal/frontier"
	"github.com/JakeFAU/webextract/internal/metrics"
	"github.com/JakeFAU/webextract/internal/policy/ratelimit"
)

// PageProcessor turns a successful fetch into a PageResult.
type PageProcessor interface {
	Process(ctx context.Context, fetched crawler.PageFetchResult, instructions string) (crawler.PageResult, error)
}

// Config controls Worker behavior.
type Config struct {
	// PageDelay is the minimum gap between fetches to one site within a job.
	PageDelay time.Duration
	// MaxRetries bounds additional attempts for timeouts, 429 and 5xx.
	MaxRetries     int
	RetryBaseDelay time.Duration
	// ExportPrefix is the blob path prefix for JSON exports.
	ExportPrefix      string
	MaxImportantLinks int
}

// Deps are the Worker's collaborators. BlobStore, Archive and Publisher are
// optional.
type Deps struct {
	Queue     crawler.Queue
	JobStore  crawler.JobStore
	Fetcher   crawler.Fetcher
	Processor PageProcessor
	BlobStore crawler.BlobStore
	Archive   crawler.ResultArchive
	Publisher crawler.Publisher
	Clock     crawler.Clock
	Logger    *zap.Logger
}

// Worker consumes queue items and executes the crawl.
type Worker struct {
	deps Deps
	cfg  Config
}

// errJobDeleted stops a crawl whose job record disappeared.
var errJobDeleted = errors.New("job deleted")

// New constructs a Worker.
func New(deps Deps, cfg Config) *Worker {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.ExportPrefix == "" {
		cfg.ExportPrefix = "exports"
	}
	if cfg.MaxImportantLinks <= 0 {
		cfg.MaxImportantLinks = defaultMaxImportantLinks
	}
	return &Worker{deps: deps, cfg: cfg}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, crawler.ErrQueueClosed) {
				return
			}
			w.deps.Logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.deps.Logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.ProcessJob(ctx, item)
	}
}

// ProcessJob runs one job to a terminal state. A job deleted before or during
// the crawl is abandoned without further writes.
func (w *Worker) ProcessJob(ctx context.Context, item crawler.QueueItem) {
	logger := w.deps.Logger.With(zap.String("job_id", item.JobID), zap.String("url", item.Params.URL))

	started := w.deps.Clock.Now()
	err := w.deps.JobStore.UpdateJob(ctx, item.JobID, func(job *crawler.Job) error {
		job.Status = crawler.JobStatusRunning
		job.Progress = 0
		job.Message = fmt.Sprintf("Starting scrape of %s", item.Params.URL)
		job.StartedAt = &started
		return nil
	})
	if err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			logger.Info("job deleted before start")
			return
		}
		logger.Error("mark job running failed", zap.Error(err))
		return
	}

	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()
	logger.Info("job started")

	c, err := w.crawl(ctx, item, logger)
	switch {
	case errors.Is(err, errJobDeleted):
		logger.Info("job deleted, crawl stopped", zap.Int("pages", len(c.pages)))
		metrics.ObserveJob("canceled")
	case err != nil:
		w.fail(ctx, item, err.Error(), logger)
	default:
		w.complete(ctx, item, c, logger)
	}
}

// crawlState is owned by one crawl; it mirrors what has been recorded in the
// job store.
type crawlState struct {
	pages    []crawler.PageResult
	failures []crawler.PageFailure
}

func (w *Worker) crawl(ctx context.Context, item crawler.QueueItem, logger *zap.Logger) (c crawlState, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("crawl panicked", zap.Any("panic", r))
			err = fmt.Errorf("internal error while scraping: %v", r)
		}
	}()

	budget := item.Params.MaxPages
	if item.Params.SinglePage || budget < 1 {
		budget = 1
	}
	rootURL, err := crawler.NormalizeURL(item.Params.URL)
	if err != nil {
		return c, fmt.Errorf("invalid url %q: %w", item.Params.URL, err)
	}
	root, err := url.Parse(rootURL)
	if err != nil {
		return c, fmt.Errorf("invalid url %q: %w", item.Params.URL, err)
	}

	limiter := ratelimit.New(ratelimit.Config{Delay: w.cfg.PageDelay})
	front := frontier.New(root, uint(budget)*64)

	page, err := w.visit(ctx, limiter, item.Params.URL, item.Params.CustomInstructions, logger)
	if err != nil {
		if ctx.Err() != nil {
			return c, interrupted(ctx)
		}
		return c, fmt.Errorf("failed to scrape %s: %w", item.Params.URL, err)
	}
	if err := w.recordPage(ctx, item, &c, page, budget); err != nil {
		return c, err
	}
	w.discover(front, page)

	for attempted := 1; attempted < budget; attempted++ {
		if err := w.checkActive(ctx, item.JobID); err != nil {
			return c, err
		}
		next, ok := front.Pop()
		if !ok {
			logger.Debug("frontier exhausted", zap.Int("pages", len(c.pages)))
			break
		}
		page, err := w.visit(ctx, limiter, next.URL, item.Params.CustomInstructions, logger)
		if err != nil {
			if ctx.Err() != nil {
				return c, interrupted(ctx)
			}
			logger.Warn("page failed", zap.String("page_url", next.URL), zap.Error(err))
			if err := w.recordFailure(ctx, item, &c, next.URL, err, attempted+1, budget); err != nil {
				return c, err
			}
			continue
		}
		if err := w.recordPage(ctx, item, &c, page, budget); err != nil {
			return c, err
		}
		w.discover(front, page)
	}
	return c, nil
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("scrape interrupted: %w", ctx.Err())
}

// checkActive is the safe point between pages: shutdown or deletion stops the crawl.
func (w *Worker) checkActive(ctx context.Context, jobID string) error {
	if ctx.Err() != nil {
		return interrupted(ctx)
	}
	if _, err := w.deps.JobStore.GetJob(ctx, jobID); err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			return errJobDeleted
		}
		return fmt.Errorf("load job: %w", err)
	}
	return nil
}

func (w *Worker) discover(front *frontier.Frontier, page crawler.PageResult) {
	if page.FinalURL != "" {
		if final, err := crawler.NormalizeURL(page.FinalURL); err == nil {
			front.MarkSeen(final)
		}
	}
	for _, link := range page.Links {
		front.Push(link)
	}
}

// visit fetches one URL with bounded retries and runs the page pipeline.
func (w *Worker) visit(
	ctx context.Context,
	limiter *ratelimit.Limiter,
	pageURL string,
	instructions string,
	logger *zap.Logger,
) (crawler.PageResult, error) {
	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx, pageURL); err != nil {
			return crawler.PageResult{}, err
		}
		fetched := w.deps.Fetcher.Fetch(ctx, pageURL)
		if fetched.OK() {
			metrics.ObservePage(pageURL, "ok", len(fetched.RawHTML), fetched.Duration)
			return w.deps.Processor.Process(ctx, fetched, instructions)
		}
		metrics.ObservePage(pageURL, "failed", 0, fetched.Duration)
		if attempt >= w.cfg.MaxRetries || !retryable(fetched.Err) || ctx.Err() != nil {
			return crawler.PageResult{}, fetched.Err
		}
		backoff := w.backoff(attempt)
		logger.Debug("retrying fetch",
			zap.String("page_url", pageURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(fetched.Err),
		)
		if err := sleep(ctx, backoff); err != nil {
			return crawler.PageResult{}, fetched.Err
		}
	}
}

func retryable(err error) bool {
	var fetchErr *crawler.FetchError
	return errors.As(err, &fetchErr) && fetchErr.Temporary()
}

// backoff doubles per attempt with up to 50% jitter.
func (w *Worker) backoff(attempt int) time.Duration {
	d := w.cfg.RetryBaseDelay << attempt
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func progressFor(attempted, budget int) int {
	// The last few percent are reserved for finalization.
	return attempted * 95 / budget
}

func (w *Worker) recordPage(ctx context.Context, item crawler.QueueItem, c *crawlState, page crawler.PageResult, budget int) error {
	attempted := len(c.pages) + len(c.failures) + 1
	err := w.deps.JobStore.UpdateJob(ctx, item.JobID, func(job *crawler.Job) error {
		job.Pages = append(job.Pages, page)
		job.Progress = progressFor(attempted, budget)
		job.Message = fmt.Sprintf("Scraped page %d of up to %d: %s", attempted, budget, page.URL)
		return nil
	})
	if err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			return errJobDeleted
		}
		return fmt.Errorf("record page: %w", err)
	}
	c.pages = append(c.pages, page)
	return nil
}

func (w *Worker) recordFailure(
	ctx context.Context,
	item crawler.QueueItem,
	c *crawlState,
	pageURL string,
	cause error,
	attempted int,
	budget int,
) error {
	failure := crawler.PageFailure{
		URL:      pageURL,
		Error:    cause.Error(),
		FailedAt: w.deps.Clock.Now(),
	}
	var fetchErr *crawler.FetchError
	if errors.As(cause, &fetchErr) {
		failure.StatusCode = fetchErr.StatusCode
	}
	err := w.deps.JobStore.UpdateJob(ctx, item.JobID, func(job *crawler.Job) error {
		job.Failures = append(job.Failures, failure)
		job.Progress = progressFor(attempted, budget)
		job.Message = fmt.Sprintf("Skipped page %d of up to %d: %s", attempted, budget, pageURL)
		return nil
	})
	if err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			return errJobDeleted
		}
		return fmt.Errorf("record failure: %w", err)
	}
	c.failures = append(c.failures, failure)
	return nil
}

func (w *Worker) complete(ctx context.Context, item crawler.QueueItem, c crawlState, logger *zap.Logger) {
	finished := w.deps.Clock.Now()
	result := Aggregate(item.Params, c.pages, c.failures, finished, w.cfg.MaxImportantLinks)
	finish := func(job *crawler.Job) {
		job.Status = crawler.JobStatusCompleted
		job.Progress = 100
		job.Message = fmt.Sprintf("Scraped %d page(s) from %s", result.PagesScraped, item.Params.URL)
		job.Result = result
		job.FinishedAt = &finished
	}

	snapshot, err := w.deps.JobStore.GetJob(ctx, item.JobID)
	if err != nil {
		logger.Info("job deleted before completion", zap.Error(err))
		return
	}
	finish(&snapshot)
	exportURI := w.exportJob(ctx, snapshot, logger)
	snapshot.ExportURI = exportURI

	err = w.deps.JobStore.UpdateJob(ctx, item.JobID, func(job *crawler.Job) error {
		finish(job)
		job.ExportURI = exportURI
		return nil
	})
	if err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			logger.Info("job deleted before completion")
			metrics.ObserveJob("canceled")
			return
		}
		logger.Error("mark job completed failed", zap.Error(err))
		return
	}
	metrics.ObserveJob(string(crawler.JobStatusCompleted))
	logger.Info("job completed",
		zap.Int("pages", result.PagesScraped),
		zap.Int("failed_pages", result.Metadata.FailedPages),
		zap.Float64("average_quality", result.AverageQuality),
	)
	w.archive(ctx, snapshot, logger)
	w.publish(ctx, crawler.EventJobCompleted, snapshot, logger)
}

func (w *Worker) fail(ctx context.Context, item crawler.QueueItem, message string, logger *zap.Logger) {
	// The failure must be recorded even when shutdown canceled ctx.
	ctx = context.WithoutCancel(ctx)
	finished := w.deps.Clock.Now()
	err := w.deps.JobStore.UpdateJob(ctx, item.JobID, func(job *crawler.Job) error {
		job.Status = crawler.JobStatusError
		job.Message = message
		job.Error = message
		job.Result = nil
		job.FinishedAt = &finished
		return nil
	})
	if err != nil {
		logger.Error("mark job failed", zap.Error(err))
		return
	}
	metrics.ObserveJob(string(crawler.JobStatusError))
	logger.Warn("job failed", zap.String("error", message))

	snapshot, err := w.deps.JobStore.GetJob(ctx, item.JobID)
	if err != nil {
		return
	}
	w.archive(ctx, snapshot, logger)
	w.publish(ctx, crawler.EventJobFailed, snapshot, logger)
}

func (w *Worker) exportJob(ctx context.Context, job crawler.Job, logger *zap.Logger) string {
	if w.deps.BlobStore == nil {
		return ""
	}
	data, err := export.JSON(job, w.deps.Clock.Now(), false)
	if err != nil {
		logger.Error("encode export failed", zap.Error(err))
		return ""
	}
	path := fmt.Sprintf("%s/%s.json", strings.Trim(w.cfg.ExportPrefix, "/"), job.ID)
	uri, err := w.deps.BlobStore.PutObject(ctx, path, export.ContentTypeJSON, data)
	if err != nil {
		logger.Error("store export failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return uri
}

func (w *Worker) archive(ctx context.Context, job crawler.Job, logger *zap.Logger) {
	if w.deps.Archive == nil {
		return
	}
	if err := w.deps.Archive.SaveJob(ctx, job); err != nil {
		logger.Error("archive job failed", zap.Error(err))
	}
}

func (w *Worker) publish(ctx context.Context, eventType string, job crawler.Job, logger *zap.Logger) {
	if w.deps.Publisher == nil {
		return
	}
	event := crawler.JobEvent{
		Type:      eventType,
		JobID:     job.ID,
		URL:       job.Parameters.URL,
		Status:    job.Status,
		ExportURI: job.ExportURI,
		Error:     job.Error,
	}
	if job.FinishedAt != nil {
		event.FinishedAt = *job.FinishedAt
	}
	if job.Result != nil {
		event.PagesScraped = job.Result.PagesScraped
		event.FailedPages = job.Result.Metadata.FailedPages
		event.AverageQuality = job.Result.AverageQuality
	}
	id, err := w.deps.Publisher.Publish(ctx, eventType, event)
	if err != nil {
		logger.Error("publish event failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	logger.Debug("event published", zap.String("event", eventType), zap.String("message_id", id))
}
