package enrichment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultContextWindow is how many characters on each side of an image
// reference are handed to the vision model as a hint.
const DefaultContextWindow = 150

var imageRefPattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// ImageContext is the text surrounding an image reference in page markdown.
type ImageContext struct {
	AltText string
	Src     string
	Before  string
	After   string
}

// Hint joins the surrounding text into a single prompt hint.
func (c ImageContext) Hint() string {
	return strings.TrimSpace(c.Before + "\n" + c.After)
}

// FindImageContext locates the first image reference whose source contains
// name and returns up to window characters on each side of it, trimmed.
func FindImageContext(markdown, name string, window int) (ImageContext, bool) {
	for _, loc := range imageRefPattern.FindAllStringSubmatchIndex(markdown, -1) {
		src := markdown[loc[4]:loc[5]]
		if !strings.Contains(src, name) {
			continue
		}
		return ImageContext{
			AltText: markdown[loc[2]:loc[3]],
			Src:     src,
			Before:  strings.TrimSpace(lastRunes(markdown[:loc[0]], window)),
			After:   strings.TrimSpace(firstRunes(markdown[loc[1]:], window)),
		}, true
	}
	return ImageContext{}, false
}

func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
