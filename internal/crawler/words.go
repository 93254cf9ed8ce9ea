package crawler

import "strings"

// CountWords returns the number of whitespace separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
