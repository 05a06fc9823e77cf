package highlight

import (
	"strings"

	"github.com/poiesic/docsift/core"
)

// Strategy is one way of finding a snippet on a page.
type Strategy interface {
	Name() string
	Locate(snippet string, page *Page) ([]core.Rect, bool)
}

// Exact searches for the snippet verbatim, without any normalization
// beyond trimming its ends.
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) Locate(snippet string, page *Page) ([]core.Rect, bool) {
	return locate(page, strings.TrimSpace(snippet))
}

// Prefix searches for the snippet's first N words joined by single spaces.
// Text reconstruction tends to corrupt long snippets far more often than
// their opening words.
type Prefix struct {
	Words int
}

func (p Prefix) Name() string { return "prefix" }

func (p Prefix) Locate(snippet string, page *Page) ([]core.Rect, bool) {
	words := strings.Fields(snippet)
	if len(words) == 0 || p.Words < 1 {
		return nil, false
	}
	words = words[:min(p.Words, len(words))]
	return locate(page, strings.Join(words, " "))
}

// DefaultStrategies tries an exact match, then the first five words.
func DefaultStrategies() []Strategy {
	return []Strategy{Exact{}, Prefix{Words: 5}}
}
