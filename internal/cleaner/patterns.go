package cleaner

import (
	"regexp"
	"strings"
)

// artifactLines match a whole line (after stray punctuation is stripped)
// that carries no content of its own.
var artifactLines = regexp.MustCompile(`(?i)^(` + strings.Join([]string{
	`read more`, `read the full (story|article)`, `continue reading`, `learn more`,
	`click here`, `see more`, `show more`, `load more`, `view all`, `back to top`,
	`skip to (main )?content`, `loading\.*`, `advertisement`, `sponsored( content)?`,
	`related (articles|posts|stories)`, `you (might|may) also like`, `recommended( for you)?`,
	`share( this)?( article| post| page| story)?`, `print( this page)?`, `tweet`,
	`accept( all)?`, `reject( all)?`, `got it`, `ok`, `dismiss`,
}, "|") + `)[.!:…]*$`)

// inlineArtifacts are removed wherever they appear inside a line.
var inlineArtifacts = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(this (web)?site|we) uses? cookies[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)by (continuing to (use|browse)|using) (this|our) (web)?site[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)\b(accept|reject|manage) (all )?cookies\b`),
	regexp.MustCompile(`(?i)\bcookie (policy|settings|preferences|notice)\b`),
	regexp.MustCompile(`(?i)subscribe to (our|the) newsletter[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)sign up for (our|the) newsletter[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)sign up for (updates|our emails)[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)(©|&copy;|\(c\)|copyright)\s*(\d{4}(\s*[-–]\s*\d{4})?)?[^\n]*?all rights reserved\.?`),
	regexp.MustCompile(`(?i)all rights reserved\.?`),
	regexp.MustCompile(`(?i)share (this )?on (facebook|twitter|x|linkedin|pinterest|reddit|whatsapp|email)\b`),
	regexp.MustCompile(`(?i)follow us on (facebook|twitter|x|linkedin|instagram|youtube|tiktok)\b`),
	regexp.MustCompile(`(?i)please enable javascript[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)\bhttps?://\S+`),
	regexp.MustCompile(`(?i)\bwww\.\S+`),
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
}

var navigationLine = regexp.MustCompile(`^(` + strings.Join([]string{
	`home( page)?`, `about( us)?`, `contact( us)?`, `services`, `products`, `solutions`,
	`blog`, `news`, `faq`, `careers`, `pricing`, `support`, `help`,
	`log ?in`, `log ?out`, `register`, `sign (up|in|out)`, `my account`, `cart`,
	`menu`, `main menu`, `open menu`, `close( menu)?`, `toggle navigation`, `navigation`,
	`skip navigation`, `breadcrumbs?`, `search`, `previous`, `next`, `back`, `forward`,
	`more`, `page \d+`, `go to page( \d+)?`, `\d+`,
}, "|") + `)$`)

var doubleSpace = regexp.MustCompile(` {2,}`)

func removeArtifacts(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		if artifactLines.MatchString(stripStray(line)) {
			continue
		}
		cleaned := line
		for _, re := range inlineArtifacts {
			cleaned = re.ReplaceAllString(cleaned, " ")
		}
		cleaned = strings.TrimSpace(doubleSpace.ReplaceAllString(cleaned, " "))
		if stripStray(cleaned) == "" {
			continue
		}
		out = append(out, cleaned)
	}
	return strings.Join(out, "\n")
}

// isNavigationLine reports whether a short line looks like a menu label.
func isNavigationLine(line string, counts map[string]int) bool {
	key := lineKey(line)
	if key == "" {
		return true
	}
	if navigationLine.MatchString(key) {
		return true
	}
	if isAllCaps(line) {
		return true
	}
	return !strings.Contains(key, " ") && counts[key] > 1
}
