package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// paragraphTags end a paragraph; lineTags only end a line.
var (
	paragraphTags = tagSet("p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre",
		"table", "ul", "ol", "dl", "section", "article", "main", "header", "footer",
		"aside", "nav", "figure", "figcaption", "address", "hr", "details", "summary")
	lineTags = tagSet("div", "li", "tr", "dt", "dd", "form", "fieldset", "legend", "caption", "option")
	inert    = tagSet("script", "style", "noscript", "template", "svg", "canvas", "iframe",
		"object", "embed", "head", "title", "meta", "link", "button", "select", "input", "textarea")
)

var spaceRun = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)

func tagSet(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}

// blockText renders the selection as plain text, placing block elements on
// their own lines and list items behind a "- " marker.
func blockText(sel *goquery.Selection) string {
	var w textWriter
	for _, n := range sel.Nodes {
		w.node(n)
	}
	return tidy(w.b.String())
}

// textWriter tracks how many line breaks end the output so nested blocks do
// not stack blank lines.
type textWriter struct {
	b       strings.Builder
	breaks  int
	started bool
}

func (w *textWriter) text(s string) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
	if strings.TrimSpace(s) == "" {
		if w.started && w.breaks == 0 {
			w.b.WriteByte(' ')
		}
		return
	}
	w.b.WriteString(s)
	w.breaks = 0
	w.started = true
}

func (w *textWriter) newline(n int) {
	if !w.started {
		return
	}
	for w.breaks < n {
		w.b.WriteByte('\n')
		w.breaks++
	}
}

func (w *textWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.DocumentNode:
		w.children(n)
		return
	case html.ElementNode:
	default:
		return
	}

	if _, skip := inert[n.Data]; skip {
		return
	}
	if n.Data == "br" {
		if w.started {
			w.b.WriteByte('\n')
			w.breaks++
		}
		return
	}
	breaks := 0
	if _, ok := paragraphTags[n.Data]; ok {
		breaks = 2
	} else if _, ok := lineTags[n.Data]; ok {
		breaks = 1
	}
	w.newline(breaks)
	switch n.Data {
	case "li":
		w.text("- ")
	case "td", "th":
		w.text(" ")
	}
	w.children(n)
	w.newline(breaks)
}

func (w *textWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

// tidy collapses spaces within lines and keeps at most one blank line.
func tidy(s string) string {
	var (
		out   []string
		blank bool
	)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line == "" || line == "-" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// flatText is the single-line text of a selection, used for density maths.
func flatText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
