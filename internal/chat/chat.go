// Package chat answers questions about a finished job using its cleaned page
// content as the only source.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/extractor"
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is required")

const defaultMaxContextChars = 24000

const systemPrompt = `You answer questions about the content of scraped web pages.
Use only the page content provided below. If the answer is not in the content, say so.
Keep answers concise and cite the page URL when it helps.

Question: %s

Page content:
%s`

// Answerer grounds generated answers in a job's cleaned content.
type Answerer struct {
	generator       crawler.TextGenerator
	maxContextChars int
	logger          *zap.Logger
}

// New builds an Answerer. A nil generator makes every call fail with
// crawler.ErrTextGenerationUnavailable.
func New(generator crawler.TextGenerator, maxContextChars int, logger *zap.Logger) *Answerer {
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{generator: generator, maxContextChars: maxContextChars, logger: logger}
}

// Answer asks the generator about a completed job.
func (a *Answerer) Answer(ctx context.Context, job crawler.Job, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if job.Status != crawler.JobStatusCompleted || job.Result == nil {
		return "", fmt.Errorf("%w: job %s is %s", crawler.ErrJobNotCompleted, job.ID, job.Status)
	}
	if a.generator == nil {
		return "", crawler.ErrTextGenerationUnavailable
	}
	prompt := fmt.Sprintf(systemPrompt, question, a.buildContext(job.Result.Pages))
	answer, err := a.generator.Generate(ctx, prompt, "")
	if err != nil {
		a.logger.Warn("chat generation failed", zap.String("job_id", job.ID), zap.Error(err))
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// buildContext concatenates page text under URL headers, stopping once
// maxContextChars runes have been written.
func (a *Answerer) buildContext(pages []crawler.PageResult) string {
	var b strings.Builder
	used := 0
	for _, page := range pages {
		if page.CleanedContent.Text == "" {
			continue
		}
		remaining := a.maxContextChars - used
		if remaining <= 0 {
			break
		}
		section := fmt.Sprintf("--- %s (%s) ---\n%s\n\n", page.Title, page.URL, page.CleanedContent.Text)
		section = extractor.Truncate(section, remaining)
		used += utf8.RuneCountInString(section)
		b.WriteString(section)
	}
	return strings.TrimSpace(b.String())
}
