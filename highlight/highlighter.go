// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package highlight

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/docsift/core"
)

// Highlighter locates answer snippets inside PDFs.
type Highlighter struct {
	strategies []Strategy
	loader     *Loader
	logger     *slog.Logger
}

// Option configures a Highlighter.
type Option func(*Highlighter) error

// WithStrategies replaces DefaultStrategies. Strategies run in order and
// the first hit wins.
func WithStrategies(strategies ...Strategy) Option {
	return func(h *Highlighter) error {
		if len(strategies) == 0 {
			return ErrNoStrategies
		}
		h.strategies = strategies
		return nil
	}
}

// WithLoader sets the loader used by FindInPDF.
func WithLoader(l *Loader) Option {
	return func(h *Highlighter) error {
		h.loader = l
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Highlighter) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger.With("component", "highlighter")
		return nil
	}
}

// NewHighlighter creates a Highlighter.
func NewHighlighter(opts ...Option) (*Highlighter, error) {
	h := &Highlighter{
		strategies: DefaultStrategies(),
		logger:     slog.Default().With("component", "highlighter"),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.loader == nil {
		h.loader = NewLoader()
	}
	return h, nil
}

// FindInPDF loads the PDF at source, a URL or a local path, and runs Find.
// Only loading errors are returned.
func (h *Highlighter) FindInPDF(ctx context.Context, source, snippet string, pages []int) (core.Highlight, error) {
	doc, err := h.loader.Load(ctx, source)
	if err != nil {
		return core.Highlight{}, err
	}
	return h.Find(doc, snippet, pages), nil
}

// Find searches the candidate pages, or every page when pages is empty,
// with each strategy in turn. Unknown page numbers are ignored. When no
// strategy matches, the result is unmatched with a zero rect on the first
// candidate page. If no requested page exists it carries the first requested
// page number, and page 1 when none was requested.
func (h *Highlighter) Find(doc Document, snippet string, pages []int) core.Highlight {
	candidates := candidatePages(doc.NumPages(), pages)

	loaded := map[int]*Page{}
	load := func(n int) *Page {
		if p, ok := loaded[n]; ok {
			return p
		}
		p, err := doc.Page(n)
		if err != nil {
			h.logger.Warn("skipping unreadable page", "page", n, "err", err)
		}
		loaded[n] = p
		return p
	}

	for _, strategy := range h.strategies {
		for _, n := range candidates {
			page := load(n)
			if page == nil {
				continue
			}
			rects, ok := strategy.Locate(snippet, page)
			if !ok {
				continue
			}
			h.logger.Debug("located snippet", "strategy", strategy.Name(), "page", n, "rects", len(rects))
			return matched(snippet, n, rects)
		}
	}

	guess := 1
	switch {
	case len(candidates) > 0:
		guess = candidates[0]
	case len(pages) > 0 && pages[0] >= 1:
		// every requested page was out of range; report the one asked for
		guess = pages[0]
	}
	h.logger.Debug("snippet not found", "page", guess, "candidates", len(candidates))
	var page *Page
	if guess <= doc.NumPages() {
		page = load(guess)
	}
	return unmatched(snippet, guess, page)
}

// FindAllInPDF loads the PDF at source once and runs FindAll.
func (h *Highlighter) FindAllInPDF(ctx context.Context, source string, snippets []string, pages []int) ([]core.Highlight, error) {
	doc, err := h.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return h.FindAll(doc, snippets, pages), nil
}

// FindAll runs Find for every snippet and orders the highlights by page,
// then by the top of their bounding rect. Ties keep snippet order.
func (h *Highlighter) FindAll(doc Document, snippets []string, pages []int) []core.Highlight {
	out := make([]core.Highlight, 0, len(snippets))
	for _, snippet := range snippets {
		out = append(out, h.Find(doc, snippet, pages))
	}
	slices.SortStableFunc(out, func(a, b core.Highlight) int {
		if c := cmp.Compare(a.Position.PageNumber, b.Position.PageNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Position.BoundingRect.Y1, b.Position.BoundingRect.Y1)
	})
	return out
}

func candidatePages(total int, pages []int) []int {
	var out []int
	seen := map[int]bool{}
	for _, n := range pages {
		if n >= 1 && n <= total && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(pages) > 0 {
		// every requested page was out of range
		return nil
	}
	out = make([]int, total)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func matched(snippet string, page int, rects []core.Rect) core.Highlight {
	bounding := rects[0]
	for _, r := range rects[1:] {
		bounding = bounding.Union(r)
	}
	return core.Highlight{
		Content: core.HighlightContent{Text: snippet},
		Position: core.HighlightPosition{
			BoundingRect: bounding,
			Rects:        rects,
			PageNumber:   page,
		},
		Matched: true,
	}
}

func unmatched(snippet string, page int, p *Page) core.Highlight {
	var zero core.Rect
	if p != nil {
		zero.Width = p.Width
		zero.Height = p.Height
	}
	return core.Highlight{
		Content: core.HighlightContent{Text: snippet},
		Position: core.HighlightPosition{
			BoundingRect: zero,
			Rects:        []core.Rect{},
			PageNumber:   page,
		},
	}
}
