package scrape

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noise elements never contribute content.
var noise = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// strip removes noise elements and comments in place.
func strip(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && noise[c.DataAtom]) {
			n.RemoveChild(c)
		} else {
			strip(c)
		}
		c = next
	}
}

// mainContent picks the first common content container, then the body.
func mainContent(doc *html.Node) *html.Node {
	selectors := []func(*html.Node) bool{
		func(n *html.Node) bool { return isElement(n, "main") },
		func(n *html.Node) bool { return isElement(n, "article") },
		func(n *html.Node) bool { return n.Type == html.ElementNode && hasClass(n, "content") },
		func(n *html.Node) bool { return n.Type == html.ElementNode && hasClass(n, "main-content") },
		func(n *html.Node) bool { return n.Type == html.ElementNode && attr(n, "id") == "content" },
		func(n *html.Node) bool { return n.Type == html.ElementNode && attr(n, "id") == "main" },
		func(n *html.Node) bool { return isElement(n, "body") },
	}
	for _, sel := range selectors {
		if found := find(doc, sel); found != nil {
			return found
		}
	}
	return doc
}

// mdWriter renders a node tree as ATX markdown with "-" bullets.
type mdWriter struct {
	b     strings.Builder
	base  *url.URL
	depth int
	pre   bool
}

func (w *mdWriter) String() string { return w.b.String() }

func (w *mdWriter) block() {
	w.b.WriteString("\n\n")
}

func (w *mdWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.render(c)
	}
}

func (w *mdWriter) resolve(ref string) string {
	if w.base == nil || ref == "" {
		return ref
	}
	u, err := w.base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func (w *mdWriter) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if w.pre {
			w.b.WriteString(n.Data)
			return
		}
		w.b.WriteString(collapseSpace(n.Data))
		return
	case html.DocumentNode:
		w.children(n)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		w.block()
		w.b.WriteString(strings.Repeat("#", level) + " ")
		w.b.WriteString(strings.TrimSpace(collapseSpace(textOf(n))))
		w.block()
	case atom.P, atom.Div, atom.Section, atom.Blockquote:
		w.block()
		w.children(n)
		w.block()
	case atom.Br:
		w.b.WriteString("\n")
	case atom.Hr:
		w.block()
		w.b.WriteString("---")
		w.block()
	case atom.Ul, atom.Ol:
		w.depth++
		w.b.WriteString("\n")
		w.children(n)
		w.depth--
		w.b.WriteString("\n")
	case atom.Li:
		w.b.WriteString("\n" + strings.Repeat("  ", max(w.depth-1, 0)) + "- ")
		w.children(n)
	case atom.Strong, atom.B:
		w.wrap(n, "**")
	case atom.Em, atom.I:
		w.wrap(n, "*")
	case atom.Code:
		if w.pre {
			w.children(n)
			return
		}
		w.wrap(n, "`")
	case atom.Pre:
		w.block()
		w.b.WriteString("```\n")
		w.pre = true
		w.children(n)
		w.pre = false
		w.b.WriteString("\n```")
		w.block()
	case atom.A:
		text := strings.TrimSpace(collapseSpace(textOf(n)))
		href := attr(n, "href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			w.b.WriteString(text)
			return
		}
		w.b.WriteString("[" + text + "](" + w.resolve(href) + ")")
	case atom.Img:
		src := attr(n, "src")
		if src == "" {
			return
		}
		w.b.WriteString("![" + attr(n, "alt") + "](" + w.resolve(src) + ")")
	case atom.Table:
		w.block()
		w.table(n)
		w.block()
	default:
		w.children(n)
	}
}

func (w *mdWriter) wrap(n *html.Node, mark string) {
	text := strings.TrimSpace(collapseSpace(textOf(n)))
	if text == "" {
		return
	}
	w.b.WriteString(mark + text + mark)
}

// table renders rows as a GFM table; the first row is the header.
func (w *mdWriter) table(n *html.Node) {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isElement(n, "tr") {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if isElement(c, "td") || isElement(c, "th") {
					cell := strings.TrimSpace(collapseSpace(textOf(c)))
					cells = append(cells, strings.ReplaceAll(cell, "|", `\|`))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if len(rows) == 0 {
		return
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	line := func(cells []string) {
		padded := make([]string, width)
		copy(padded, cells)
		w.b.WriteString("| " + strings.Join(padded, " | ") + " |\n")
	}
	line(rows[0])
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	line(sep)
	for _, r := range rows[1:] {
		line(r)
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Clean trims every line, collapses runs of blank lines to one and drops
// leading and trailing blank lines.
func Clean(md string) string {
	var out []string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
			continue
		}
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
