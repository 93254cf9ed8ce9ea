package extractor

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/webextract/internal/cleaner"
	"github.com/JakeFAU/webextract/internal/crawler"
)

const maxKeyItems = 10

var (
	numericFact = regexp.MustCompile(`(?i)(?:[$€£¥]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand|[kmb]n?)\b)?` +
		`|\b\d[\d,]*(?:\.\d+)?\s?(?:%|(?:percent|million|billion|thousand|users|customers|people|ms|seconds|minutes|hours|days|weeks|months|years|kb|mb|gb|tb)\b))`)
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.? \d{1,2}(?:st|nd|rd|th)?,? \d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2} (?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?) \d{4}\b`),
	}
)

// KeyInformation lists headings, bullet points, numeric facts and dates.
// Bullets come from the extracted text because cleaning drops list markers;
// everything else comes from the cleaned text.
func KeyInformation(extracted, cleaned string) crawler.KeyInformation {
	var info crawler.KeyInformation
	seen := make(map[string]struct{})
	add := func(list []string, v string) []string {
		v = strings.TrimSpace(v)
		if v == "" || len(list) >= maxKeyItems {
			return list
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			return list
		}
		seen[key] = struct{}{}
		return append(list, v)
	}

	for _, para := range strings.Split(cleaned, "\n\n") {
		if strings.Contains(para, "\n") {
			continue
		}
		if cleaner.IsHeading(para) {
			info.Headings = add(info.Headings, strings.TrimLeft(para, "# "))
		}
	}
	for _, line := range strings.Split(extracted, "\n") {
		if item, ok := cleaner.ListItemText(line); ok && len(strings.Fields(item)) >= 3 {
			info.BulletPoints = add(info.BulletPoints, item)
		}
	}
	for _, m := range numericFact.FindAllString(cleaned, -1) {
		info.Numbers = add(info.Numbers, m)
	}
	for _, re := range datePatterns {
		for _, m := range re.FindAllString(cleaned, -1) {
			info.Dates = add(info.Dates, m)
		}
	}
	return info
}
