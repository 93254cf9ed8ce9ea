// Package extractor pulls the main textual content out of an HTML page using
// an ordered list of strategies, falling back to raw text when none qualify.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Config tunes strategy acceptance.
type Config struct {
	MinWords            int
	MinDensity          float64
	ReadabilityTopN     int
	ReadabilityMinScore float64
	DensityThreshold    float64
	DensityTopN         int
	MaxPromptChars      int
	InstructionTimeout  time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinWords:            50,
		MinDensity:          0.1,
		ReadabilityTopN:     10,
		ReadabilityMinScore: 5,
		DensityThreshold:    0.25,
		DensityTopN:         5,
		MaxPromptChars:      12000,
		InstructionTimeout:  30 * time.Second,
	}
}

// Result is the chosen candidate plus everything that was tried.
type Result struct {
	Candidate           crawler.ExtractionCandidate
	Attempts            []crawler.ExtractionCandidate
	InstructionsApplied bool
}

// Extractor runs the strategy ladder and the optional instruction pass.
type Extractor struct {
	cfg       Config
	generator crawler.TextGenerator
	logger    *zap.Logger
}

// New builds an Extractor. generator may be nil, in which case custom
// instructions are never applied.
func New(cfg Config, generator crawler.TextGenerator, logger *zap.Logger) *Extractor {
	def := DefaultConfig()
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	if cfg.MinDensity <= 0 {
		cfg.MinDensity = def.MinDensity
	}
	if cfg.ReadabilityTopN <= 0 {
		cfg.ReadabilityTopN = def.ReadabilityTopN
	}
	if cfg.ReadabilityMinScore <= 0 {
		cfg.ReadabilityMinScore = def.ReadabilityMinScore
	}
	if cfg.DensityThreshold <= 0 {
		cfg.DensityThreshold = def.DensityThreshold
	}
	if cfg.DensityTopN <= 0 {
		cfg.DensityTopN = def.DensityTopN
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = def.MaxPromptChars
	}
	if cfg.InstructionTimeout <= 0 {
		cfg.InstructionTimeout = def.InstructionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, generator: generator, logger: logger}
}

// Extract selects the first qualifying strategy output, or the raw output
// when nothing qualifies, then applies custom instructions if given.
func (e *Extractor) Extract(ctx context.Context, rawHTML string, instructions string) Result {
	var res Result
	for _, s := range strategies {
		c := e.runStrategy(s, rawHTML)
		res.Attempts = append(res.Attempts, c)
		if s.name == StrategyRaw || e.accepts(c) {
			res.Candidate = c
			break
		}
	}

	if strings.TrimSpace(instructions) != "" {
		text, applied := e.applyInstructions(ctx, res.Candidate.Text, instructions)
		if applied {
			res.Candidate.Text = text
			res.Candidate.WordCount = crawler.CountWords(text)
		}
		res.InstructionsApplied = applied
	}
	return res
}

func (e *Extractor) accepts(c crawler.ExtractionCandidate) bool {
	if c.WordCount < e.cfg.MinWords {
		return false
	}
	if c.Strategy == StrategySemantic {
		return c.DensityScore >= e.cfg.MinDensity
	}
	return true
}

// runStrategy parses a fresh document for each strategy because strategies
// prune the tree. Parse failures and panics yield an empty candidate.
func (e *Extractor) runStrategy(s strategy, rawHTML string) (c crawler.ExtractionCandidate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extraction strategy failed",
				zap.String("strategy", s.name),
				zap.Error(fmt.Errorf("panic: %v", r)))
			c = crawler.ExtractionCandidate{Strategy: s.name}
		}
	}()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		e.logger.Warn("parse html", zap.String("strategy", s.name), zap.Error(err))
		return crawler.ExtractionCandidate{Strategy: s.name}
	}
	return s.run(doc, e.cfg)
}
