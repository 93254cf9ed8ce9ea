package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const instructionPrompt = `You extract content from web pages.
Follow the user's instructions to filter or transform the page text below.
Return only the resulting content as plain text, with paragraphs separated by blank lines.
Do not add commentary, headings about the task, or content that is not supported by the page.

Instructions:
`

// applyInstructions makes one bounded call to the text generator. Any
// failure leaves the text untouched.
func (e *Extractor) applyInstructions(ctx context.Context, text, instructions string) (string, bool) {
	if e.generator == nil || strings.TrimSpace(text) == "" {
		return text, false
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.InstructionTimeout)
	defer cancel()

	out, err := e.generator.Generate(ctx, instructionPrompt+strings.TrimSpace(instructions), Truncate(text, e.cfg.MaxPromptChars))
	if err != nil {
		e.logger.Warn("custom instructions failed", zap.Error(err))
		return text, false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		e.logger.Warn("custom instructions returned no content")
		return text, false
	}
	return out, true
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
