package chunking

import (
	"fmt"

	"github.com/poiesic/docsift/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker turns per-page markdown into token-budgeted chunks.
type Chunker interface {
	Chunk(pages []core.PageMarkdown) ([]core.PageChunk, error)
}

// HeaderChunker splits pages at h1-h3 headings, strips the heading lines,
// and merges a section into the previous chunk only when it has no heading
// of its own and the result fits the budget. Every chunk is prefixed with
// the heading trail it belongs to. A section that cannot fit the budget on
// its own is cut with a recursive splitter and its pieces are emitted
// unmerged, tagged oversized.
type HeaderChunker struct {
	counter  TokenCounter
	splitter textsplitter.RecursiveCharacter
	settings *settings
}

var _ Chunker = (*HeaderChunker)(nil)

// NewHeaderChunker creates a HeaderChunker with a 500 token default budget.
func NewHeaderChunker(counter TokenCounter, opts ...Option) (*HeaderChunker, error) {
	if counter == nil {
		return nil, ErrCounterRequired
	}
	s, err := newSettings(DefaultHeaderMaxTokens, opts)
	if err != nil {
		return nil, err
	}
	return &HeaderChunker{
		counter: counter,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(s.reSplitTokens),
			textsplitter.WithChunkOverlap(s.reSplitOverlap),
			textsplitter.WithLenFunc(counter.Count),
		),
		settings: s,
	}, nil
}

type fragment struct {
	content   string
	page      int
	headers   headerPath
	own       bool
	oversized bool
}

// Chunk splits and merges pages in the order given. Identical input always
// yields identical chunks.
func (c *HeaderChunker) Chunk(pages []core.PageMarkdown) ([]core.PageChunk, error) {
	frags, err := c.fragments(pages)
	if err != nil {
		return nil, err
	}

	var (
		out []core.PageChunk
		cur *building
	)
	for _, f := range frags {
		if cur != nil && !f.own && !f.oversized && !cur.oversized {
			combined := cur.content + "\n" + f.content
			if c.counter.Count(cur.headers.render(combined)) <= c.settings.maxTokens {
				cur.content = combined
				cur.pages = core.MergePages(cur.pages, []int{f.page})
				continue
			}
		}
		if cur != nil {
			out = append(out, c.finish(cur))
		}
		cur = &building{fragment: f, pages: []int{f.page}}
	}
	if cur != nil {
		out = append(out, c.finish(cur))
	}

	c.settings.logger.Debug("chunked pages", "pages", len(pages), "fragments", len(frags), "chunks", len(out))
	return out, nil
}

// fragments splits every page into sections. A section before the first
// heading of a page continues the heading trail of the previous page.
func (c *HeaderChunker) fragments(pages []core.PageMarkdown) ([]fragment, error) {
	var (
		frags     []fragment
		inherited headerPath
	)
	for _, p := range pages {
		if err := core.ValidatePage(&p); err != nil {
			return nil, err
		}
		for _, s := range splitSections(p.RawText, p.PageNumber, false) {
			own := !s.headers.empty()
			headers := s.headers
			if !own {
				headers = inherited
			}
			inherited = headers

			if c.counter.Count(headers.render(s.content)) <= c.settings.maxTokens {
				frags = append(frags, fragment{content: s.content, page: p.PageNumber, headers: headers, own: own})
				continue
			}

			pieces, err := c.splitter.SplitText(s.content)
			if err != nil {
				return nil, fmt.Errorf("re-splitting page %d: %w", p.PageNumber, err)
			}
			c.settings.logger.Debug("re-split oversized section", "page", p.PageNumber, "pieces", len(pieces))
			for _, piece := range pieces {
				frags = append(frags, fragment{content: piece, page: p.PageNumber, headers: headers, own: own, oversized: true})
			}
		}
	}
	return frags, nil
}

// building is a chunk being grown by merging fragments into its first one.
type building struct {
	fragment
	pages []int
}

func (c *HeaderChunker) finish(b *building) core.PageChunk {
	meta := b.headers.metadata()
	tag(meta, b.content, c.settings)
	if b.oversized {
		meta[MetaOversized] = true
	}
	return core.PageChunk{
		Content:     b.headers.render(b.content),
		PageNumbers: b.pages,
		Metadata:    meta,
	}
}
