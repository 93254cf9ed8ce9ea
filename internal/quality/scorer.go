// Package quality rates cleaned content on a 0-100 scale.
//
// The total is a weighted sum of five independent subscores (length,
// structure, vocabulary, indicators and readability), each itself in
// [0,100]. Scoring is pure: the same content always yields the same score.
package quality

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Weights controls how subscores combine into the total.
type Weights struct {
	Length      float64
	Structure   float64
	Vocabulary  float64
	Indicators  float64
	Readability float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Length:      0.30,
		Structure:   0.25,
		Vocabulary:  0.20,
		Indicators:  0.15,
		Readability: 0.10,
	}
}

// Scorer computes QualityScore values.
type Scorer struct {
	weights Weights
}

// New returns a Scorer using w.
func New(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// NewDefault returns a Scorer using DefaultWeights.
func NewDefault() *Scorer {
	return New(DefaultWeights())
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?…]+(\s|$)`)
	keywordGroups = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(introduction|overview|summary|conclusion|background)\b`),
		regexp.MustCompile(`(?i)\b(important|significant|key|essential|critical)\b`),
		regexp.MustCompile(`(?i)\b(for example|for instance|such as|case study|e\.g\.)`),
		regexp.MustCompile(`(?i)\b(first|second|third|finally|however|therefore|because)\b`),
	}
)

// Score rates content. Empty content scores zero.
func (s *Scorer) Score(content crawler.CleanedContent) crawler.QualityScore {
	text := strings.TrimSpace(content.Text)
	if text == "" {
		return crawler.QualityScore{}
	}
	words := strings.Fields(text)
	sentences := countSentences(text)
	avgSentence := 0.0
	if sentences > 0 {
		avgSentence = float64(len(words)) / float64(sentences)
	}

	sub := crawler.QualitySubscores{
		Length:      lengthScore(len(words)),
		Structure:   structureScore(countParagraphs(text), avgSentence),
		Vocabulary:  vocabularyScore(words),
		Indicators:  indicatorScore(text, words),
		Readability: readabilityScore(avgSentence),
	}
	total := float64(sub.Length)*s.weights.Length +
		float64(sub.Structure)*s.weights.Structure +
		float64(sub.Vocabulary)*s.weights.Vocabulary +
		float64(sub.Indicators)*s.weights.Indicators +
		float64(sub.Readability)*s.weights.Readability

	return crawler.QualityScore{
		Total:     clamp(int(math.Round(total))),
		Subscores: sub,
	}
}

// lengthScore peaks between 100 and 3000 words.
func lengthScore(words int) int {
	switch {
	case words <= 0:
		return 0
	case words < 100:
		return words
	case words <= 3000:
		return 100
	default:
		return clampRange(100-(words-3000)/100, 40, 100)
	}
}

func structureScore(paragraphs int, avgSentence float64) int {
	score := 0
	switch {
	case paragraphs >= 3:
		score += 60
	case paragraphs == 2:
		score += 40
	case paragraphs == 1:
		score += 20
	}
	switch {
	case avgSentence >= 8 && avgSentence <= 25:
		score += 40
	case avgSentence >= 5 && avgSentence <= 35:
		score += 20
	}
	return clamp(score)
}

// vocabularyScore rewards lexical variety with diminishing returns above a
// unique ratio of 0.5.
func vocabularyScore(words []string) int {
	total := 0
	unique := make(map[string]struct{})
	for _, w := range words {
		token := strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if token == "" {
			continue
		}
		total++
		unique[token] = struct{}{}
	}
	if total == 0 {
		return 0
	}
	ratio := float64(len(unique)) / float64(total)
	return clamp(int(math.Round(100 * math.Sqrt(math.Min(1, ratio/0.5)))))
}

func indicatorScore(text string, words []string) int {
	score := 0
	for _, re := range keywordGroups {
		if re.MatchString(text) {
			score += 15
		}
	}
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			score += 20
			break
		}
	}
	if properNouns(text) >= 3 {
		score += 20
	}
	return clamp(score)
}

// readabilityScore penalizes long average sentences.
func readabilityScore(avgSentence float64) int {
	switch {
	case avgSentence <= 0:
		return 0
	case avgSentence <= 20:
		return 100
	case avgSentence <= 30:
		return clamp(int(math.Round(100 - (avgSentence-20)*4)))
	case avgSentence <= 50:
		return clamp(int(math.Round(60 - (avgSentence-30)*2)))
	default:
		return clamp(int(math.Round(20 - (avgSentence - 50))))
	}
}

func countSentences(text string) int {
	n := 0
	for _, piece := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(piece) != "" {
			n++
		}
	}
	return n
}

func countParagraphs(text string) int {
	n := 0
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			n++
		}
	}
	return n
}

// properNouns counts capitalized words that do not start a sentence.
func properNouns(text string) int {
	n := 0
	for _, sentence := range sentenceSplit.Split(text, -1) {
		fields := strings.Fields(sentence)
		for i := 1; i < len(fields); i++ {
			r := []rune(fields[i])
			if len(r) > 1 && unicode.IsUpper(r[0]) && unicode.IsLower(r[1]) {
				n++
			}
		}
	}
	return n
}

func clamp(v int) int {
	return clampRange(v, 0, 100)
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
