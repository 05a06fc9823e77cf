package chunking

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// maxHeaderLevel is the deepest heading that starts a new section.
const maxHeaderLevel = 3

// HeaderKey returns the metadata key recording a heading of the given level.
func HeaderKey(level int) string {
	return "Header " + strconv.Itoa(level)
}

// headerPath is the h1..h3 trail in effect for a section.
type headerPath [maxHeaderLevel]string

func (h headerPath) empty() bool {
	return h == headerPath{}
}

// render prefixes content with the path as markdown headings.
func (h headerPath) render(content string) string {
	var b strings.Builder
	for i, title := range h {
		if title == "" {
			continue
		}
		b.WriteString(strings.Repeat("#", i+1))
		b.WriteString(" ")
		b.WriteString(title)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return content
	}
	return b.String() + content
}

func (h headerPath) metadata() map[string]any {
	meta := map[string]any{}
	for i, title := range h {
		if title != "" {
			meta[HeaderKey(i+1)] = title
		}
	}
	return meta
}

// section is the text between two headings on one page.
type section struct {
	page      int
	headers   headerPath
	content   string
	oversized bool
}

var atxLine = regexp.MustCompile(`^ {0,3}#`)

// splitSections cuts a page at its top-level ATX headings of level 1-3.
// Headings inside code fences or block quotes do not split. With keepHeaders
// the heading line stays at the top of its section, otherwise it is dropped.
// Sections without text are omitted.
func splitSections(md string, page int, keepHeaders bool) []section {
	src := []byte(md)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var (
		out   []section
		path  headerPath
		start int
	)
	emit := func(end int) {
		body := strings.TrimSpace(md[start:end])
		if body != "" {
			out = append(out, section{page: page, headers: path, content: body})
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > maxHeaderLevel || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		lineStart := strings.LastIndexByte(md[:seg.Start], '\n') + 1
		if !atxLine.MatchString(md[lineStart:seg.Start]) {
			continue
		}
		lineEnd := len(md)
		if i := strings.IndexByte(md[seg.Stop:], '\n'); i >= 0 {
			lineEnd = seg.Stop + i
		}

		emit(lineStart)

		path[h.Level-1] = strings.TrimSpace(string(seg.Value(src)))
		for i := h.Level; i < maxHeaderLevel; i++ {
			path[i] = ""
		}
		if keepHeaders {
			start = lineStart
		} else {
			start = lineEnd
		}
	}
	emit(len(md))
	return out
}
