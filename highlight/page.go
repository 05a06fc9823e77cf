package highlight

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/docsift/core"
)

// Glyph is a run of text and its box in top-left page coordinates.
type Glyph struct {
	S string
	X float64
	Y float64
	W float64
	H float64
}

func (g Glyph) rect(page *Page) core.Rect {
	return core.Rect{
		X1:     g.X,
		Y1:     g.Y,
		X2:     g.X + g.W,
		Y2:     g.Y + g.H,
		Width:  page.Width,
		Height: page.Height,
	}
}

// Page is the text layer of one PDF page.
type Page struct {
	Number int
	Width  float64
	Height float64
	Glyphs []Glyph
}

// Document gives page-by-page access to a PDF text layer.
// Pages are numbered from 1.
type Document interface {
	NumPages() int
	Page(n int) (*Page, error)
}

// pageText is the reconstructed text of a page with, for every byte, the
// glyph it came from. Inserted separators map to -1.
type pageText struct {
	text   string
	owners []int
}

// Gaps wider than this fraction of the glyph height become a space.
const wordGap = 0.25

func sameLine(a, b Glyph) bool {
	h := max(a.H, b.H, 1)
	d := a.Y - b.Y
	return d < h/2 && d > -h/2
}

func buildText(page *Page) pageText {
	var (
		b      strings.Builder
		owners []int
		prev   = -1
	)
	for i, g := range page.Glyphs {
		if g.S == "" {
			continue
		}
		if prev >= 0 {
			prev := page.Glyphs[prev]
			last, _ := utf8.DecodeLastRuneInString(b.String())
			first, _ := utf8.DecodeRuneInString(g.S)
			gap := g.X - (prev.X + prev.W)
			if !unicode.IsSpace(last) && !unicode.IsSpace(first) &&
				(!sameLine(prev, g) || gap > wordGap*max(g.H, prev.H)) {
				b.WriteByte(' ')
				owners = append(owners, -1)
			}
		}
		b.WriteString(g.S)
		for range len(g.S) {
			owners = append(owners, i)
		}
		prev = i
	}
	return pageText{text: b.String(), owners: owners}
}

// locate finds every occurrence of needle on the page and returns one rect
// per text line each occurrence spans, ordered top to bottom.
func locate(page *Page, needle string) ([]core.Rect, bool) {
	if needle == "" || len(page.Glyphs) == 0 {
		return nil, false
	}
	pt := buildText(page)

	var rects []core.Rect
	for from := 0; from < len(pt.text); {
		i := strings.Index(pt.text[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		rects = append(rects, lineRects(page, pt.owners[start:start+len(needle)])...)
		from = start + len(needle)
	}
	if len(rects) == 0 {
		return nil, false
	}

	slices.SortStableFunc(rects, func(a, b core.Rect) int {
		return cmp.Compare(a.Y1, b.Y1)
	})
	return rects, true
}

// lineRects unions the glyphs behind one occurrence into a rect per line.
func lineRects(page *Page, owners []int) []core.Rect {
	var glyphs []int
	for _, owner := range owners {
		if owner >= 0 && (len(glyphs) == 0 || glyphs[len(glyphs)-1] != owner) {
			glyphs = append(glyphs, owner)
		}
	}
	if len(glyphs) == 0 {
		return nil
	}

	var (
		rects []core.Rect
		line  = page.Glyphs[glyphs[0]]
		cur   = line.rect(page)
	)
	for _, gi := range glyphs[1:] {
		g := page.Glyphs[gi]
		if sameLine(line, g) {
			cur = cur.Union(g.rect(page))
			continue
		}
		rects = append(rects, cur)
		line = g
		cur = g.rect(page)
	}
	return append(rects, cur)
}
