package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// variedArticle builds n words in ten-word sentences and ten-sentence
// paragraphs, drawing from a vocabulary of distinct letter-only words.
func variedArticle(n, vocab int) string {
	syllables := []string{"ka", "lo", "mi", "ne", "su", "ta", "ri", "vo", "pe", "du"}
	words := make([]string, vocab)
	for i := range words {
		words[i] = syllables[i%10] + syllables[(i/10)%10] + syllables[(i/100)%10] + "n"
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		w := words[i%vocab]
		switch {
		case i%100 == 0 && i > 0:
			b.WriteString("\n\n")
		case i > 0:
			b.WriteByte(' ')
		}
		if i%10 == 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		b.WriteString(w)
		if i%10 == 9 {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func content(text string) crawler.CleanedContent {
	return crawler.CleanedContent{Text: text, WordCount: crawler.CountWords(text)}
}

// TestScoreEmptyContent ensures empty content scores zero.
func TestScoreEmptyContent(t *testing.T) {
	t.Parallel()

	got := NewDefault().Score(content(""))
	require.Zero(t, got.Total)
	require.Equal(t, crawler.QualitySubscores{}, got.Subscores)

	got = NewDefault().Score(content("  \n\n "))
	require.Zero(t, got.Total)
}

// TestScoreWellStructuredArticle ensures 500 varied words across paragraphs rate highly.
func TestScoreWellStructuredArticle(t *testing.T) {
	t.Parallel()

	text := variedArticle(500, 250)
	require.Equal(t, 500, crawler.CountWords(text))

	got := NewDefault().Score(content(text))
	require.Greater(t, got.Total, 70)
	require.LessOrEqual(t, got.Total, 100)
	require.Equal(t, 100, got.Subscores.Length)
	require.Equal(t, 100, got.Subscores.Structure)
	require.Equal(t, 100, got.Subscores.Readability)
}

// TestScoreIsClampedAndDeterministic ensures every input stays within [0,100].
func TestScoreIsClampedAndDeterministic(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"word",
		strings.Repeat("a ", 6000),
		strings.Repeat("Introduction overview summary important key example first second 2024 Google Amazon Microsoft. ", 400),
		strings.Repeat("no punctuation at all just words flowing ", 60),
		variedArticle(40, 40),
		variedArticle(3500, 900),
	}
	s := NewDefault()
	for i, in := range inputs {
		first := s.Score(content(in))
		require.GreaterOrEqual(t, first.Total, 0, "input %d", i)
		require.LessOrEqual(t, first.Total, 100, "input %d", i)
		for _, sub := range []int{
			first.Subscores.Length, first.Subscores.Structure, first.Subscores.Vocabulary,
			first.Subscores.Indicators, first.Subscores.Readability,
		} {
			require.GreaterOrEqual(t, sub, 0)
			require.LessOrEqual(t, sub, 100)
		}
		require.Equal(t, first, s.Score(content(in)), "input %d", i)
	}
}

func TestScoreRelativeOrdering(t *testing.T) {
	t.Parallel()

	s := NewDefault()
	short := s.Score(content(variedArticle(20, 20)))
	long := s.Score(content(variedArticle(500, 250)))
	repetitive := s.Score(content(variedArticle(500, 5)))
	require.Greater(t, long.Total, short.Total)
	require.Greater(t, long.Subscores.Vocabulary, repetitive.Subscores.Vocabulary)
}

func TestLengthScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		words int
		want  int
	}{
		{0, 0},
		{50, 50},
		{100, 100},
		{3000, 100},
		{4000, 90},
		{100000, 40},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, lengthScore(tt.words), "words=%d", tt.words)
	}
}

func TestReadabilityPenalizesLongSentences(t *testing.T) {
	t.Parallel()

	require.Equal(t, 100, readabilityScore(15))
	require.Equal(t, 60, readabilityScore(30))
	require.Equal(t, 20, readabilityScore(50))
	require.Equal(t, 0, readabilityScore(90))
	require.Greater(t, readabilityScore(22), readabilityScore(28))
}

func TestIndicatorScore(t *testing.T) {
	t.Parallel()

	text := "In this overview we explain why caching is important. For example, Redis served 40% more reads for Netflix and Spotify at Acme. However, costs rose."
	got := indicatorScore(text, strings.Fields(text))
	require.Equal(t, 100, got)
	require.Zero(t, indicatorScore("plain words here", strings.Fields("plain words here")))
}
