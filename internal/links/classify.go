package links

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/webextract/internal/crawler"
)

var socialDomains = []string{
	"facebook.com", "fb.com", "twitter.com", "x.com", "linkedin.com", "instagram.com",
	"youtube.com", "youtu.be", "tiktok.com", "pinterest.com", "snapchat.com", "reddit.com",
	"github.com", "gitlab.com", "mastodon.social", "threads.net", "discord.gg", "t.me",
}

var downloadExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".csv": {}, ".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {}, ".tgz": {},
	".exe": {}, ".dmg": {}, ".pkg": {}, ".msi": {}, ".deb": {}, ".rpm": {}, ".apk": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wav": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {},
}

var importantKeyword = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	"about", "about-us", "contact", "contact-us", "services", "products", "pricing", "plans",
	"documentation", "docs", "api", "guide", "guides", "tutorial", "tutorials", "help",
	"support", "faq", "faqs", "download", "get started", "getting-started", "team", "careers",
	"features", "solutions",
}, "|") + `)\b`)

const (
	navigationScope = "nav, header, [role=navigation], [role=banner], .nav, .navbar, .menu, .navigation"
	footerScope     = "footer, [role=contentinfo], .footer, #footer"
)

// rule is one rung of the classification ladder.
type rule struct {
	category crawler.LinkCategory
	match    func(l link) bool
}

// link is the classifier's view of an anchor.
type link struct {
	target *url.URL
	page   *url.URL
	text   string
	sel    *goquery.Selection
}

// ladder is evaluated top to bottom; the first matching rule wins. Content
// is the catch-all for same-site links outside navigation and footer regions.
var ladder = []rule{
	{category: crawler.LinkCategorySocial, match: isSocial},
	{category: crawler.LinkCategoryDownload, match: isDownload},
	{category: crawler.LinkCategoryImportant, match: hasImportantKeyword},
	{category: crawler.LinkCategoryExternal, match: isExternal},
	{category: crawler.LinkCategoryNavigation, match: func(l link) bool { return inScope(l.sel, navigationScope) }},
	{category: crawler.LinkCategoryFooter, match: func(l link) bool { return inScope(l.sel, footerScope) }},
	{category: crawler.LinkCategoryContent, match: func(link) bool { return true }},
}

func classify(l link) crawler.LinkCategory {
	for _, r := range ladder {
		if r.match(l) {
			return r.category
		}
	}
	return crawler.LinkCategoryContent
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func isSocial(l link) bool {
	host := strings.ToLower(l.target.Hostname())
	for _, d := range socialDomains {
		if hostMatches(host, d) {
			return true
		}
	}
	return false
}

func isDownload(l link) bool {
	_, ok := downloadExtensions[strings.ToLower(path.Ext(l.target.Path))]
	return ok
}

func hasImportantKeyword(l link) bool {
	p := strings.NewReplacer("/", " ", "_", " ", ".", " ").Replace(strings.ToLower(l.target.Path))
	return importantKeyword.MatchString(p) || importantKeyword.MatchString(l.text)
}

func isExternal(l link) bool {
	return crawler.SiteKey(l.target.Hostname()) != crawler.SiteKey(l.page.Hostname())
}

func inScope(sel *goquery.Selection, scope string) bool {
	return sel != nil && sel.Closest(scope).Length() > 0
}

// Label returns a display name for a link whose anchor text is empty:
// the platform for social links and the file type for downloads.
func Label(c crawler.LinkCandidate) string {
	if c.AnchorText != "" {
		return c.AnchorText
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return c.URL
	}
	switch c.Category {
	case crawler.LinkCategorySocial:
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		name, _, _ := strings.Cut(host, ".")
		if name == "x" {
			return "X (Twitter)"
		}
		return strings.ToUpper(name[:1]) + name[1:]
	case crawler.LinkCategoryDownload:
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
		return strings.ToUpper(ext) + " file"
	}
	return c.URL
}
