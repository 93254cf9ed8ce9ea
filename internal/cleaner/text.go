package cleaner

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	horizontalSpace = regexp.MustCompile(`[\t\f\v\p{Zs}]+`)
	invisibleRunes  = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}]`)
	numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\p{Lu}`)
	listItem        = regexp.MustCompile(`^([•·▪◦*\-–—]|\d+[.)])\s+\S`)
	listItemMarker  = regexp.MustCompile(`^([•·▪◦*\-–—]|\d+[.)])\s+`)
	metadataLine    = regexp.MustCompile(
		`(?i)^(posted|published|updated|last (updated|modified)|written by|filed under|tagged|tags|categories|category|reading time|min read)\b`,
	)
)

var minorWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "by": {}, "for": {},
	"from": {}, "in": {}, "into": {}, "nor": {}, "of": {}, "on": {}, "or": {}, "per": {},
	"the": {}, "to": {}, "vs": {}, "via": {}, "with": {},
}

// normalizeWhitespace collapses horizontal whitespace inside lines, trims each
// line and leaves at most one blank line between blocks.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = invisibleRunes.ReplaceAllString(text, "")

	var b strings.Builder
	pendingBlank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
		if line == "" {
			pendingBlank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if pendingBlank {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		pendingBlank = false
		b.WriteString(line)
	}
	return b.String()
}

func isStray(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '|', '•', '·', '*', '~', '_', '=', '>', '»', '›', '«', '‹', '-', '–', '—', ',', ';', '/', '\\':
		return true
	}
	return false
}

// stripStray removes separator and bullet debris from both ends of a line.
func stripStray(line string) string {
	return strings.TrimFunc(line, isStray)
}

// lineKey reduces a line to lowercase letters, digits and single spaces.
func lineKey(line string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(line) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

func letterCount(s string) (letters, upper int) {
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters, upper
}

func isAllCaps(line string) bool {
	letters, upper := letterCount(line)
	return letters >= 2 && letters == upper
}

func alphaRatio(line string) float64 {
	total := 0
	letters := 0
	for _, r := range line {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// meaningfulWords counts tokens with at least two letters, or numbers.
func meaningfulWords(line string) int {
	n := 0
	for _, word := range strings.Fields(line) {
		letters, _ := letterCount(word)
		if letters >= 2 || hasDigit(word) {
			n++
		}
	}
	return n
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func endsSentence(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	switch last := []rune(s)[len([]rune(s))-1]; last {
	case '.', '!', '?', '…', '"', '”', '’', ':':
		return true
	}
	return false
}

func hasTerminalPunctuation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	switch last := []rune(s)[len([]rune(s))-1]; last {
	case '.', '!', '?', '…', ',', ';':
		return true
	}
	return false
}

func isTitleCase(words []string) bool {
	seen := 0
	for i, word := range words {
		first, ok := firstLetter(word)
		if !ok {
			continue
		}
		seen++
		if unicode.IsUpper(first) {
			continue
		}
		if _, minor := minorWords[strings.ToLower(word)]; minor && i > 0 {
			continue
		}
		return false
	}
	return seen > 0
}

func firstLetter(word string) (rune, bool) {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return r, true
		}
	}
	return 0, false
}

// isHeading reports whether a line reads like a section title. Headings
// survive the quality filter and are never merged into paragraphs.
func isHeading(line string) bool {
	line = strings.TrimSpace(line)
	words := strings.Fields(line)
	n := len(words)
	switch {
	case n == 0:
		return false
	case strings.HasPrefix(line, "#"):
		return true
	case n > 12:
		return false
	case strings.HasSuffix(line, ":"):
		return true
	case numberedHeading.MatchString(line):
		return true
	case hasTerminalPunctuation(line):
		return false
	case n <= 10 && isTitleCase(words):
		return true
	case n <= 10 && isAllCaps(line):
		return true
	}
	return false
}

func isListItem(line string) bool {
	return listItem.MatchString(strings.TrimSpace(line))
}

// IsHeading reports whether a cleaned line reads like a section title.
func IsHeading(line string) bool {
	return isHeading(stripStray(line))
}

// ListItemText returns the text of a bulleted or numbered line without its
// marker.
func ListItemText(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !isListItem(line) {
		return "", false
	}
	loc := listItemMarker.FindStringIndex(line)
	return strings.TrimSpace(line[loc[1]:]), true
}
