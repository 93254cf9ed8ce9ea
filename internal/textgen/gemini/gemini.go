// Package gemini implements crawler.TextGenerator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/metrics"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config controls model choice and call bounds.
type Config struct {
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxConcurrency int
	Temperature    float32
}

// contentGenerator is the slice of *genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator sends one prompt per call and bounds concurrent calls.
type Generator struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	temp    float32
	sem     *semaphore.Weighted
}

// New connects to the Gemini API. It returns nil without error when no API
// key is configured so callers can treat generation as unavailable.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGenerator(client.Models, cfg), nil
}

func newGenerator(models contentGenerator, cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	return &Generator{
		models:  models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		temp:    cfg.Temperature,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
	}
}

// Generate runs the system prompt against content and returns the text of
// the first candidate.
func (g *Generator) Generate(ctx context.Context, systemPrompt, content string) (string, error) {
	if g == nil || g.models == nil {
		return "", crawler.ErrTextGenerationUnavailable
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		metrics.ObserveTextGeneration("canceled")
		return "", fmt.Errorf("wait for generation slot: %w", err)
	}
	defer g.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temp := g.temp
	config := &genai.GenerateContentConfig{Temperature: &temp}
	user := content
	if strings.TrimSpace(content) == "" {
		user = systemPrompt
	} else {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	result, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: user}},
		}},
		config,
	)
	if err != nil {
		metrics.ObserveTextGeneration("error")
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil {
		metrics.ObserveTextGeneration("empty")
		return "", errors.New("generate content: empty response")
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		metrics.ObserveTextGeneration("empty")
		return "", errors.New("generate content: no text in response")
	}
	metrics.ObserveTextGeneration("success")
	return text, nil
}
