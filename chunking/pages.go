package chunking

import (
	"fmt"
	"maps"

	"github.com/poiesic/docsift/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// PageChunker keeps heading lines in the text and merges a section into the
// chunk being built when the section has no heading or sits on the chunk's
// first page, and the result fits the budget. A section carrying a heading
// from a later page always starts a new chunk, so page attribution of
// headed content stays exact. A section that cannot fit the budget on its
// own is cut with a recursive splitter and its pieces are emitted unmerged,
// tagged oversized.
type PageChunker struct {
	counter  TokenCounter
	splitter textsplitter.RecursiveCharacter
	settings *settings
}

var _ Chunker = (*PageChunker)(nil)

// NewPageChunker creates a PageChunker with a 1024 token default budget.
func NewPageChunker(counter TokenCounter, opts ...Option) (*PageChunker, error) {
	if counter == nil {
		return nil, ErrCounterRequired
	}
	s, err := newSettings(DefaultPageMaxTokens, opts)
	if err != nil {
		return nil, err
	}
	return &PageChunker{
		counter: counter,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(s.reSplitTokens),
			textsplitter.WithChunkOverlap(s.reSplitOverlap),
			textsplitter.WithLenFunc(counter.Count),
		),
		settings: s,
	}, nil
}

// Chunk splits and merges pages in the order given. Header metadata of
// merged sections is combined last-writer-wins.
func (c *PageChunker) Chunk(pages []core.PageMarkdown) ([]core.PageChunk, error) {
	var (
		out       []core.PageChunk
		cur       *core.PageChunk
		oversized bool
	)
	for _, p := range pages {
		if err := core.ValidatePage(&p); err != nil {
			return nil, err
		}
		sections, err := c.sections(p)
		if err != nil {
			return nil, err
		}
		for _, s := range sections {
			headed := !s.headers.empty()
			if cur != nil && !oversized && !s.oversized && (!headed || cur.PageNumbers[0] == p.PageNumber) {
				combined := cur.Content + "\n" + s.content
				if c.counter.Count(combined) <= c.settings.maxTokens {
					cur.Content = combined
					cur.AddPages(p.PageNumber)
					maps.Copy(cur.Metadata, s.headers.metadata())
					continue
				}
			}
			if cur != nil {
				out = append(out, c.finish(cur, oversized))
			}
			cur = &core.PageChunk{
				Content:     s.content,
				PageNumbers: []int{p.PageNumber},
				Metadata:    s.headers.metadata(),
			}
			oversized = s.oversized
		}
	}
	if cur != nil {
		out = append(out, c.finish(cur, oversized))
	}

	c.settings.logger.Debug("chunked pages", "pages", len(pages), "chunks", len(out))
	return out, nil
}

func (c *PageChunker) sections(p core.PageMarkdown) ([]section, error) {
	var out []section
	for _, s := range splitSections(p.RawText, p.PageNumber, true) {
		if c.counter.Count(s.content) <= c.settings.maxTokens {
			out = append(out, s)
			continue
		}
		pieces, err := c.splitter.SplitText(s.content)
		if err != nil {
			return nil, fmt.Errorf("re-splitting page %d: %w", p.PageNumber, err)
		}
		c.settings.logger.Debug("re-split oversized section", "page", p.PageNumber, "pieces", len(pieces))
		for i, piece := range pieces {
			cut := section{page: s.page, content: piece, oversized: true}
			if i == 0 {
				cut.headers = s.headers
			}
			out = append(out, cut)
		}
	}
	return out, nil
}

func (c *PageChunker) finish(chunk *core.PageChunk, oversized bool) core.PageChunk {
	tag(chunk.Metadata, chunk.Content, c.settings)
	if oversized || c.counter.Count(chunk.Content) > c.settings.maxTokens {
		chunk.Metadata[MetaOversized] = true
	}
	return *chunk
}
