// Package links extracts anchors from a page, classifies them through a fixed
// precedence ladder and assigns crawl priority scores.
package links

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Score components.
const (
	BaseNavigation       = 10
	BaseContent          = 5
	BaseFooter           = 3
	BaseOther            = 1
	BonusImportant       = 3
	BonusDescriptiveText = 5
	BonusContext         = 2

	descriptiveMinWords = 3
	descriptiveMaxWords = 8
	maxContextRunes     = 160
	reasonSeparator     = " | "
)

const contextScope = "p, li, td, dd, blockquote, figcaption"

// Extractor turns raw HTML into deduplicated LinkCandidates.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the page links in first-occurrence order. The error is
// non-nil only when baseURL or the markup cannot be parsed.
func (e *Extractor) Extract(rawHTML string, baseURL string) ([]crawler.LinkCandidate, error) {
	page, err := url.Parse(baseURL)
	if err != nil || !page.IsAbs() {
		return nil, fmt.Errorf("%w: base %q", crawler.ErrInvalidURL, baseURL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	// <base> changes how hrefs resolve, not which site the page belongs to.
	base := page
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := page.Parse(href); err == nil {
			base = b
		}
	}
	self, _ := crawler.NormalizeURL(baseURL)

	var (
		order []string
		byURL = make(map[string]*crawler.LinkCandidate)
	)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs, err := crawler.ResolveURL(base, href)
		if err != nil || abs == self {
			return
		}
		target, err := url.Parse(abs)
		if err != nil {
			return
		}
		text := anchorText(sel)
		l := link{target: target, page: page, text: text, sel: sel}
		category := classify(l)
		reason := contextSnippet(sel, text)
		candidate := crawler.LinkCandidate{
			URL:           abs,
			AnchorText:    text,
			Category:      category,
			PriorityScore: score(category, l, reason),
			Reason:        reason,
		}
		existing, seen := byURL[abs]
		if !seen {
			order = append(order, abs)
			byURL[abs] = &candidate
			return
		}
		merge(existing, candidate)
	})

	out := make([]crawler.LinkCandidate, 0, len(order))
	for _, u := range order {
		out = append(out, *byURL[u])
	}
	return out, nil
}

// merge folds a later occurrence into the first one: the first keeps its text,
// category and reason, the score becomes the max, and distinct reasons are
// joined only when both occurrences carry one.
func merge(first *crawler.LinkCandidate, later crawler.LinkCandidate) {
	if later.PriorityScore > first.PriorityScore {
		first.PriorityScore = later.PriorityScore
	}
	if first.Reason != "" && later.Reason != "" && !strings.Contains(first.Reason, later.Reason) {
		first.Reason = first.Reason + reasonSeparator + later.Reason
	}
}

func score(category crawler.LinkCategory, l link, reason string) int {
	s := BaseOther
	switch category {
	case crawler.LinkCategoryNavigation:
		s = BaseNavigation
	case crawler.LinkCategoryContent:
		s = BaseContent
	case crawler.LinkCategoryFooter:
		s = BaseFooter
	}
	if hasImportantKeyword(l) {
		s += BonusImportant
	}
	if n := len(strings.Fields(l.text)); n >= descriptiveMinWords && n <= descriptiveMaxWords {
		s += BonusDescriptiveText
	}
	if reason != "" {
		s += BonusContext
	}
	return s
}

func anchorText(sel *goquery.Selection) string {
	text := strings.Join(strings.Fields(sel.Text()), " ")
	if text != "" {
		return text
	}
	for _, attr := range []string{"aria-label", "title"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.Join(strings.Fields(v), " ")
		}
	}
	if alt, ok := sel.Find("img[alt]").First().Attr("alt"); ok {
		return strings.Join(strings.Fields(alt), " ")
	}
	return ""
}

// contextSnippet returns the text of the enclosing block when it says more
// than the anchor itself.
func contextSnippet(sel *goquery.Selection, text string) string {
	block := sel.Closest(contextScope)
	if block.Length() == 0 {
		return ""
	}
	ctx := strings.Join(strings.Fields(block.Text()), " ")
	if ctx == "" || ctx == text || utf8.RuneCountInString(ctx) <= utf8.RuneCountInString(text)+10 {
		return ""
	}
	if utf8.RuneCountInString(ctx) > maxContextRunes {
		r := []rune(ctx)
		ctx = strings.TrimSpace(string(r[:maxContextRunes])) + "..."
	}
	return ctx
}
