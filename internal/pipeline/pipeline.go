// Package pipeline turns a fetched page into a PageResult by running the
// extractor, cleaner, scorer and link classifier in sequence.
package pipeline

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/webextract/internal/cleaner"
	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/extractor"
	"github.com/JakeFAU/webextract/internal/links"
	"github.com/JakeFAU/webextract/internal/metrics"
	"github.com/JakeFAU/webextract/internal/quality"
)

// Deps are the collaborators a Processor needs. Detector and Hasher are
// optional.
type Deps struct {
	Extractor *extractor.Extractor
	Cleaner   *cleaner.Cleaner
	Scorer    *quality.Scorer
	Links     *links.Extractor
	Detector  crawler.LanguageDetector
	Hasher    crawler.Hasher
	Clock     crawler.Clock
	Logger    *zap.Logger
}

// Processor runs the per-page pipeline.
type Processor struct {
	deps Deps
}

// New builds a Processor, filling nil core components with defaults.
func New(deps Deps) *Processor {
	if deps.Extractor == nil {
		deps.Extractor = extractor.New(extractor.DefaultConfig(), nil, deps.Logger)
	}
	if deps.Cleaner == nil {
		deps.Cleaner = cleaner.New(cleaner.Config{})
	}
	if deps.Scorer == nil {
		deps.Scorer = quality.NewDefault()
	}
	if deps.Links == nil {
		deps.Links = links.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Processor{deps: deps}
}

// Process builds the PageResult for a successful fetch. It fails only when
// the fetch itself failed or the page URL is unusable.
func (p *Processor) Process(ctx context.Context, fetched crawler.PageFetchResult, instructions string) (crawler.PageResult, error) {
	if fetched.Err != nil {
		return crawler.PageResult{}, fetched.Err
	}
	pageURL := fetched.FinalURL
	if pageURL == "" {
		pageURL = fetched.URL
	}
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() {
		return crawler.PageResult{}, fmt.Errorf("%w: page url %q", crawler.ErrInvalidURL, pageURL)
	}
	logger := p.deps.Logger.With(zap.String("url", fetched.URL))

	extracted := p.deps.Extractor.Extract(ctx, fetched.RawHTML, instructions)
	cleaned := p.deps.Cleaner.Clean(extracted.Candidate.Text)
	score := p.deps.Scorer.Score(cleaned)

	pageLinks, err := p.deps.Links.Extract(fetched.RawHTML, pageURL)
	if err != nil {
		logger.Warn("link extraction failed", zap.Error(err))
	}
	if pageLinks == nil {
		pageLinks = []crawler.LinkCandidate{}
	}

	meta := extractor.Metadata(fetched.RawHTML, u)
	result := crawler.PageResult{
		URL:                       fetched.URL,
		FinalURL:                  fetched.FinalURL,
		StatusCode:                fetched.StatusCode,
		Title:                     meta.Title,
		Description:               meta.Description,
		Byline:                    meta.Byline,
		SiteName:                  meta.SiteName,
		Language:                  p.language(cleaned.Text, meta.Language),
		CleanedContent:            cleaned,
		Quality:                   score,
		Links:                     pageLinks,
		ExtractionMethod:          extracted.Candidate.Strategy,
		CustomInstructionsApplied: extracted.InstructionsApplied,
		KeyInformation:            extractor.KeyInformation(extracted.Candidate.Text, cleaned.Text),
	}
	if p.deps.Hasher != nil && cleaned.Text != "" {
		if sum, err := p.deps.Hasher.Hash([]byte(cleaned.Text)); err == nil {
			result.ContentHash = sum
		} else {
			logger.Warn("content hash failed", zap.Error(err))
		}
	}
	if p.deps.Clock != nil {
		result.FetchedAt = p.deps.Clock.Now()
	}

	metrics.ObserveExtraction(result.ExtractionMethod, score.Total)
	logger.Debug("page processed",
		zap.String("strategy", result.ExtractionMethod),
		zap.Int("words", cleaned.WordCount),
		zap.Int("quality", score.Total),
		zap.Int("links", len(pageLinks)),
	)
	return result, nil
}

func (p *Processor) language(text, declared string) string {
	if p.deps.Detector != nil {
		if code, ok := p.deps.Detector.Detect(text); ok {
			return code
		}
	}
	return declared
}
