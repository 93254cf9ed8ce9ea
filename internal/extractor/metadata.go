package extractor

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/JakeFAU/webextract/internal/crawler"
)

const (
	untitled          = "Untitled"
	minTitleRunes     = 6
	minParagraphRunes = 21
	maxDescription    = 200
)

var titleSelectors = []string{"h1", "title", ".title", ".page-title", ".post-title", ".article-title"}

// Metadata reads the title, description, byline, site name and declared
// language of a page. pageURL may be nil.
func Metadata(rawHTML string, pageURL *url.URL) crawler.PageMetadata {
	var md crawler.PageMetadata
	article, ok := parseArticle(rawHTML, pageURL)
	if ok {
		md.Byline = squash(article.Byline)
		md.SiteName = squash(article.SiteName)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		md.Title = untitled
		return md
	}

	if ok && usableTitle(article.Title) {
		md.Title = squash(article.Title)
	} else {
		md.Title = titleFromDocument(doc)
	}

	excerpt := ""
	if ok {
		excerpt = article.Excerpt
	}
	md.Description = describe(doc, excerpt)

	if lang, exists := doc.Find("html").First().Attr("lang"); exists {
		md.Language = normalizeLang(lang)
	}
	return md
}

func parseArticle(rawHTML string, pageURL *url.URL) (article readability.Article, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "https", Host: "localhost"}
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return readability.Article{}, false
	}
	return article, true
}

func titleFromDocument(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		title := ""
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := squash(s.Text()); usableTitle(t) {
				title = t
				return false
			}
			return true
		})
		if title != "" {
			return title
		}
	}
	return untitled
}

func usableTitle(t string) bool {
	return utf8.RuneCountInString(squash(t)) >= minTitleRunes
}

func describe(doc *goquery.Document, excerpt string) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`, `meta[name="og:description"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && squash(content) != "" {
			return clip(squash(content))
		}
	}
	if e := squash(excerpt); utf8.RuneCountInString(e) >= minParagraphRunes {
		return clip(e)
	}
	desc := ""
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := squash(s.Text()); utf8.RuneCountInString(t) >= minParagraphRunes {
			desc = clip(t)
			return false
		}
		return true
	})
	return desc
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxDescription {
		return s
	}
	return strings.TrimSpace(Truncate(s, maxDescription)) + "..."
}

// normalizeLang turns "en-US" into "en".
func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
