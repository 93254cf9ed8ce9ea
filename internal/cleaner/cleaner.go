// Package cleaner normalizes extracted page text through a fixed six stage
// pipeline. Every stage is safe to re-run on its own output.
package cleaner

import (
	"strings"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Stage names recorded in CleanedContent.StagesApplied, in execution order.
const (
	StageWhitespace = "whitespace_normalization"
	StageArtifacts  = "web_artifact_removal"
	StageNavigation = "navigation_filtering"
	StageQuality    = "quality_filtering"
	StageStructure  = "structure_improvement"
	StageFinal      = "final_cleanup"
)

const (
	defaultMinLineWords = 4
	defaultNavMaxWords  = 3
	minAlphaRatio       = 0.3
	metadataMaxWords    = 12
)

// Config tunes the line filters.
type Config struct {
	// MinLineWords is the meaningful-word floor for non-heading lines.
	MinLineWords int
	// NavMaxWords is the longest line the navigation filter may drop.
	NavMaxWords int
}

type stage struct {
	name  string
	apply func(string) string
}

// Cleaner runs the cleaning pipeline.
type Cleaner struct {
	cfg    Config
	stages []stage
}

// New builds a Cleaner, filling zero config values with defaults.
func New(cfg Config) *Cleaner {
	if cfg.MinLineWords <= 0 {
		cfg.MinLineWords = defaultMinLineWords
	}
	if cfg.NavMaxWords <= 0 {
		cfg.NavMaxWords = defaultNavMaxWords
	}
	c := &Cleaner{cfg: cfg}
	c.stages = []stage{
		{name: StageWhitespace, apply: normalizeWhitespace},
		{name: StageArtifacts, apply: removeArtifacts},
		{name: StageNavigation, apply: c.filterNavigation},
		{name: StageQuality, apply: c.filterQuality},
		{name: StageStructure, apply: improveStructure},
		{name: StageFinal, apply: finalCleanup},
	}
	return c
}

// Clean applies every stage in order. Empty input passes through each stage
// unchanged but the stage is still recorded.
func (c *Cleaner) Clean(text string) crawler.CleanedContent {
	applied := make([]string, 0, len(c.stages))
	out := text
	for _, st := range c.stages {
		if strings.TrimSpace(out) != "" {
			out = st.apply(out)
		} else {
			out = ""
		}
		applied = append(applied, st.name)
	}
	return crawler.CleanedContent{
		Text:          out,
		StagesApplied: applied,
		WordCount:     crawler.CountWords(out),
	}
}

func (c *Cleaner) filterNavigation(text string) string {
	lines := strings.Split(text, "\n")
	counts := make(map[string]int)
	for _, line := range lines {
		if n := len(strings.Fields(stripStray(line))); n > 0 && n <= c.cfg.NavMaxWords {
			counts[lineKey(line)]++
		}
	}
	out := lines[:0:0]
	for _, line := range lines {
		n := len(strings.Fields(stripStray(line)))
		if n > 0 && n <= c.cfg.NavMaxWords && isNavigationLine(line, counts) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (c *Cleaner) filterQuality(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0:0]
	for _, line := range lines {
		s := stripStray(line)
		if s == "" {
			out = append(out, "")
			continue
		}
		if len(strings.Fields(s)) <= metadataMaxWords && metadataLine.MatchString(s) {
			continue
		}
		if isHeading(s) {
			out = append(out, line)
			continue
		}
		if meaningfulWords(s) < c.cfg.MinLineWords {
			continue
		}
		if alphaRatio(s) < minAlphaRatio {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// improveStructure joins broken lines into paragraphs and separates
// paragraphs, headings and list items with a single blank line.
func improveStructure(text string) string {
	var (
		paragraphs []string
		current    strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			paragraphs = append(paragraphs, current.String())
			current.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case isHeading(stripStray(line)), isListItem(line):
			flush()
			paragraphs = append(paragraphs, line)
		case current.Len() > 0 && !endsSentence(current.String()):
			current.WriteByte(' ')
			current.WriteString(line)
		default:
			flush()
			current.WriteString(line)
		}
	}
	flush()
	return strings.Join(paragraphs, "\n\n")
}

func finalCleanup(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stripStray(line)
	}
	return normalizeWhitespace(strings.Join(lines, "\n"))
}
