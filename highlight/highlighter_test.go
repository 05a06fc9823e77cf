package highlight

import (
	"errors"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	pages []*Page
	errs  map[int]error
	reads map[int]int
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) Page(n int) (*Page, error) {
	if d.reads == nil {
		d.reads = map[int]int{}
	}
	d.reads[n]++
	if err := d.errs[n]; err != nil {
		return nil, err
	}
	return d.pages[n-1], nil
}

// line lays text out one glyph per byte, 6pt wide and 12pt tall.
func line(text string, x, y float64) []Glyph {
	glyphs := make([]Glyph, 0, len(text))
	for i := range len(text) {
		glyphs = append(glyphs, Glyph{S: text[i : i+1], X: x + float64(i)*6, Y: y, W: 6, H: 12})
	}
	return glyphs
}

func page(n int, lines ...[]Glyph) *Page {
	p := &Page{Number: n, Width: 612, Height: 792}
	for _, l := range lines {
		p.Glyphs = append(p.Glyphs, l...)
	}
	return p
}

func newDoc() *fakeDoc {
	return &fakeDoc{pages: []*Page{
		page(1, line("Introduction to the proposal", 72, 80)),
		page(2,
			line("Our company delivers fixed price", 72, 100),
			line("maintenance for all sites.", 72, 120)),
		page(3, line("the quick brown fox jumps over the lazy dog", 72, 200)),
	}}
}

func newHighlighter(t *testing.T, opts ...Option) *Highlighter {
	t.Helper()
	h, err := NewHighlighter(opts...)
	require.NoError(t, err)
	return h
}

func TestFind_ExactOnRequestedPage(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "delivers fixed price", []int{2})
	require.True(t, got.Matched)
	assert.Equal(t, 2, got.Position.PageNumber)
	assert.Equal(t, "delivers fixed price", got.Content.Text)

	require.Len(t, got.Position.Rects, 1)
	want := core.Rect{X1: 72 + 12*6, Y1: 100, X2: 72 + 32*6, Y2: 112, Width: 612, Height: 792}
	assert.Equal(t, want, got.Position.Rects[0])
	assert.Equal(t, want, got.Position.BoundingRect)
	assert.False(t, got.Position.BoundingRect.IsZero())
}

func TestFind_SpansLines(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "fixed price maintenance", nil)
	require.True(t, got.Matched)
	assert.Equal(t, 2, got.Position.PageNumber)
	require.Len(t, got.Position.Rects, 2)

	first, second := got.Position.Rects[0], got.Position.Rects[1]
	assert.Equal(t, 100.0, first.Y1)
	assert.Equal(t, 120.0, second.Y1)
	assert.Equal(t, core.Rect{X1: 72, Y1: 100, X2: 72 + 32*6, Y2: 132, Width: 612, Height: 792}, got.Position.BoundingRect)
}

func TestFind_FallsBackToFirstWords(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "the quick brown fox jumps over a sleepy cat", []int{3})
	require.True(t, got.Matched)
	assert.Equal(t, 3, got.Position.PageNumber)
	require.Len(t, got.Position.Rects, 1)
	assert.Equal(t, 72.0, got.Position.BoundingRect.X1)
	assert.Equal(t, 72.0+25*6, got.Position.BoundingRect.X2)
}

func TestFind_UnmatchedSentinel(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "nothing like this exists anywhere", []int{3, 2})
	assert.False(t, got.Matched)
	assert.Equal(t, 3, got.Position.PageNumber)
	assert.True(t, got.Position.BoundingRect.IsZero())
	assert.Equal(t, 612.0, got.Position.BoundingRect.Width)
	assert.Empty(t, got.Position.Rects)
	assert.NotNil(t, got.Position.Rects)

	got = h.Find(newDoc(), "nothing like this exists anywhere", nil)
	assert.False(t, got.Matched)
	assert.Equal(t, 1, got.Position.PageNumber)
}

func TestFind_RestrictsToCandidates(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "Introduction", []int{2, 3})
	assert.False(t, got.Matched)
	assert.Equal(t, 2, got.Position.PageNumber)
}

func TestFind_IgnoresOutOfRangePages(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "lazy dog", []int{0, 99, 3})
	require.True(t, got.Matched)
	assert.Equal(t, 3, got.Position.PageNumber)

	got = h.Find(newDoc(), "lazy dog", []int{99, 42})
	assert.False(t, got.Matched)
	assert.Equal(t, 99, got.Position.PageNumber)
	assert.Equal(t, 0.0, got.Position.BoundingRect.Width)
}

func TestFind_EveryOccurrenceOnPage(t *testing.T) {
	h := newHighlighter(t)
	doc := &fakeDoc{pages: []*Page{
		page(1,
			line("pay net 30 days", 10, 300),
			line("terms net 30 days", 10, 100)),
	}}

	got := h.Find(doc, "net 30 days", nil)
	require.True(t, got.Matched)
	require.Len(t, got.Position.Rects, 2)

	assert.Equal(t, core.Rect{X1: 10 + 6*6, Y1: 100, X2: 10 + 17*6, Y2: 112, Width: 612, Height: 792}, got.Position.Rects[0])
	assert.Equal(t, core.Rect{X1: 10 + 4*6, Y1: 300, X2: 10 + 15*6, Y2: 312, Width: 612, Height: 792}, got.Position.Rects[1])
	assert.Equal(t, 100.0, got.Position.BoundingRect.Y1)
	assert.Equal(t, 312.0, got.Position.BoundingRect.Y2)
}

func TestFindAll_OrdersByPageThenTop(t *testing.T) {
	h := newHighlighter(t)

	got := h.FindAll(newDoc(), []string{
		"lazy dog",
		"maintenance for",
		"Our company",
		"not in the document",
	}, nil)
	require.Len(t, got, 4)

	assert.False(t, got[0].Matched)
	assert.Equal(t, 1, got[0].Position.PageNumber)
	assert.Equal(t, "Our company", got[1].Content.Text)
	assert.Equal(t, "maintenance for", got[2].Content.Text)
	assert.Equal(t, 2, got[2].Position.PageNumber)
	assert.Equal(t, "lazy dog", got[3].Content.Text)
	assert.Equal(t, 3, got[3].Position.PageNumber)
}

func TestFind_SkipsUnreadablePages(t *testing.T) {
	h := newHighlighter(t)
	doc := newDoc()
	doc.errs = map[int]error{1: errors.New("corrupt")}

	got := h.Find(doc, "maintenance", nil)
	require.True(t, got.Matched)
	assert.Equal(t, 2, got.Position.PageNumber)
}

func TestFind_LoadsEachPageOnce(t *testing.T) {
	h := newHighlighter(t)
	doc := newDoc()

	h.Find(doc, "not on any page at all", nil)
	for n, reads := range doc.reads {
		assert.Equal(t, 1, reads, "page %d", n)
	}
}

func TestFind_EmptySnippet(t *testing.T) {
	h := newHighlighter(t)

	got := h.Find(newDoc(), "   ", []int{2})
	assert.False(t, got.Matched)
	assert.Equal(t, 2, got.Position.PageNumber)
}

func TestNewHighlighter_Strategies(t *testing.T) {
	_, err := NewHighlighter(WithStrategies())
	assert.ErrorIs(t, err, ErrNoStrategies)

	h := newHighlighter(t, WithStrategies(Exact{}))
	got := h.Find(newDoc(), "the quick brown fox jumps over a sleepy cat", nil)
	assert.False(t, got.Matched)
}

func TestBuildText_InsertsSeparators(t *testing.T) {
	p := page(1,
		[]Glyph{{S: "Hello", X: 10, Y: 10, W: 30, H: 12}, {S: "world", X: 50, Y: 10, W: 30, H: 12}},
		[]Glyph{{S: "next", X: 10, Y: 30, W: 24, H: 12}},
		[]Glyph{{S: "", X: 40, Y: 30, W: 0, H: 12}, {S: "line", X: 40, Y: 30, W: 24, H: 12}},
	)

	pt := buildText(p)
	assert.Equal(t, "Hello world next line", pt.text)
	assert.Len(t, pt.owners, len(pt.text))
	assert.Equal(t, -1, pt.owners[5])
	assert.Equal(t, 1, pt.owners[6])
}

func TestPrefix_Locate(t *testing.T) {
	p := page(1, line("alpha beta gamma delta", 0, 0))

	rects, ok := Prefix{Words: 2}.Locate("alpha   beta zeta", p)
	require.True(t, ok)
	assert.Equal(t, 10*6.0, rects[0].X2)

	_, ok = Prefix{Words: 0}.Locate("alpha", p)
	assert.False(t, ok)
}
