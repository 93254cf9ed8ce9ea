package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Strategy names reported as the extraction method.
const (
	StrategySemantic    = "semantic"
	StrategyReadability = "readability"
	StrategyDensity     = "text_density"
	StrategyRaw         = "raw"
)

const noiseSelectors = "nav, header, footer, aside, form, iframe, script, style, noscript, template, svg, " +
	"[role=navigation], [role=banner], [role=contentinfo], [role=complementary], [aria-hidden=true], " +
	".sidebar, .menu, .navigation, .nav, .navbar, .breadcrumb, .breadcrumbs, .ads, .ad, .advert, " +
	".advertisement, .banner, .social, .share, .sharing, .comments, #comments, .related, .recommended, " +
	".cookie, .cookie-banner, .newsletter, .popup, .modal"

var contentSelectors = []string{
	"article", "main", "[role=main]", ".content", ".post-content", ".entry-content",
	".article-content", ".article-body", "#content", ".main-content", ".page-content", ".post", "section",
}

const inertSelectors = "script, style, noscript, template, svg, iframe"

var (
	qualityPhrases = regexp.MustCompile(`(?i)\b(article|guide|tutorial|introduction|overview|summary|conclusion|in this (post|article|guide)|for example|step \d+)\b`)
	positiveTokens = tagSet("content", "article", "post", "main", "body", "entry", "text", "story", "prose", "blog")
	negativeTokens = tagSet("nav", "navbar", "menu", "sidebar", "ad", "ads", "advert", "advertisement",
		"comment", "comments", "footer", "header", "banner", "social", "share", "related", "promo",
		"widget", "cookie", "popup", "modal", "breadcrumb", "breadcrumbs")
	tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)
	tagScores  = map[string]float64{
		"article": 15, "main": 15, "section": 10, "div": 5, "p": 8,
		"td": 3, "blockquote": 5, "pre": 3, "li": 2,
	}
)

// strategy is one entry in the ordered fallback list.
type strategy struct {
	name string
	run  func(doc *goquery.Document, cfg Config) crawler.ExtractionCandidate
}

var strategies = []strategy{
	{name: StrategySemantic, run: semantic},
	{name: StrategyReadability, run: readabilityBlocks},
	{name: StrategyDensity, run: textDensity},
	{name: StrategyRaw, run: raw},
}

func newCandidate(name, text string, elements int, density float64) crawler.ExtractionCandidate {
	return crawler.ExtractionCandidate{
		Strategy:     name,
		Text:         text,
		ElementCount: elements,
		DensityScore: density,
		WordCount:    crawler.CountWords(text),
	}
}

// semantic reads structural content containers after removing page chrome.
func semantic(doc *goquery.Document, cfg Config) crawler.ExtractionCandidate {
	doc.Find(noiseSelectors).Remove()
	best := crawler.ExtractionCandidate{Strategy: StrategySemantic}
	for _, selector := range contentSelectors {
		top := doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(selector).Length() == 0
		})
		if top.Length() == 0 {
			continue
		}
		c := joinSelections(StrategySemantic, top)
		if c.WordCount >= cfg.MinWords {
			return c
		}
		if c.WordCount > best.WordCount {
			best = c
		}
	}
	return best
}

type scoredBlock struct {
	node  *html.Node
	sel   *goquery.Selection
	index int
	score float64
}

// readabilityBlocks scores block containers and keeps the best few.
func readabilityBlocks(doc *goquery.Document, cfg Config) crawler.ExtractionCandidate {
	doc.Find(inertSelectors).Remove()
	var blocks []scoredBlock
	doc.Find("article, main, section, div, p, td, blockquote, pre, li").Each(func(i int, s *goquery.Selection) {
		text := flatText(s)
		if len(text) < 25 {
			return
		}
		blocks = append(blocks, scoredBlock{node: s.Nodes[0], sel: s, index: i, score: blockScore(s, text)})
	})
	picked := pickTop(blocks, cfg.ReadabilityTopN, func(b scoredBlock) bool { return b.score > cfg.ReadabilityMinScore })
	return joinBlocks(StrategyReadability, picked)
}

func blockScore(s *goquery.Selection, text string) float64 {
	score := tagScores[goquery.NodeName(s)]

	switch words := len(strings.Fields(text)); {
	case words >= 25 && words <= 500:
		score += 10
	case words > 500:
		score += 5
	}

	punct := strings.Count(text, ",") + strings.Count(text, ".")
	score += minFloat(5, float64(punct)*100/float64(len(text)))

	if children := s.Children().Length(); children > 0 {
		score += 10 * float64(s.ChildrenFiltered("p").Length()) / float64(children)
	}
	if qualityPhrases.MatchString(text) {
		score += 5
	}

	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	for _, tok := range tokenSplit.Split(strings.ToLower(class+" "+id), -1) {
		if _, ok := negativeTokens[tok]; ok {
			score -= 10
			break
		}
	}
	for _, tok := range tokenSplit.Split(strings.ToLower(class+" "+id), -1) {
		if _, ok := positiveTokens[tok]; ok {
			score += 5
			break
		}
	}
	if s.ParentsFiltered("nav, footer, aside, header").Length() > 0 {
		score -= 10
	}
	return score
}

// textDensity keeps containers whose text dominates their markup.
func textDensity(doc *goquery.Document, cfg Config) crawler.ExtractionCandidate {
	doc.Find(inertSelectors).Remove()
	var blocks []scoredBlock
	doc.Find("article, main, section, div, td").Each(func(i int, s *goquery.Selection) {
		text := flatText(s)
		if len(text) < 100 {
			return
		}
		markup, err := goquery.OuterHtml(s)
		if err != nil || markup == "" {
			return
		}
		blocks = append(blocks, scoredBlock{
			node:  s.Nodes[0],
			sel:   s,
			index: i,
			score: float64(len(text)) / float64(len(markup)),
		})
	})
	picked := pickTop(blocks, cfg.DensityTopN, func(b scoredBlock) bool { return b.score >= cfg.DensityThreshold })
	return joinBlocks(StrategyDensity, picked)
}

// raw strips every tag. It always produces a candidate, possibly empty.
func raw(doc *goquery.Document, _ Config) crawler.ExtractionCandidate {
	full := blockText(doc.Selection)
	doc.Find("nav, header, footer").Remove()
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	text := blockText(root)
	if text == "" {
		text = full
	}
	return newCandidate(StrategyRaw, text, 1, 0)
}

// pickTop orders blocks by score, drops those nested in or around an earlier
// pick, keeps at most n and returns them in document order.
func pickTop(blocks []scoredBlock, n int, keep func(scoredBlock) bool) []scoredBlock {
	sorted := make([]scoredBlock, 0, len(blocks))
	for _, b := range blocks {
		if keep(b) {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	var picked []scoredBlock
	for _, b := range sorted {
		if len(picked) >= n {
			break
		}
		overlaps := false
		for _, p := range picked {
			if contains(p.node, b.node) || contains(b.node, p.node) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			picked = append(picked, b)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].index < picked[j].index })
	return picked
}

func contains(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func joinBlocks(name string, blocks []scoredBlock) crawler.ExtractionCandidate {
	if len(blocks) == 0 {
		return crawler.ExtractionCandidate{Strategy: name}
	}
	nodes := make([]*html.Node, 0, len(blocks))
	for _, b := range blocks {
		nodes = append(nodes, b.node)
	}
	return joinSelections(name, blocks[0].sel.Slice(0, 0).AddNodes(nodes...))
}

func joinSelections(name string, sel *goquery.Selection) crawler.ExtractionCandidate {
	var (
		parts     []string
		textLen   int
		markupLen int
	)
	sel.Each(func(_ int, s *goquery.Selection) {
		text := blockText(s)
		if text == "" {
			return
		}
		parts = append(parts, text)
		textLen += len(flatText(s))
		if markup, err := goquery.OuterHtml(s); err == nil {
			markupLen += len(markup)
		}
	})
	density := 0.0
	if markupLen > 0 {
		density = float64(textLen) / float64(markupLen)
	}
	return newCandidate(name, strings.Join(parts, "\n\n"), len(parts), density)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
