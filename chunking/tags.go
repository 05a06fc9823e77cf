package chunking

import (
	"regexp"

	"github.com/poiesic/docsift/extraction"
)

var (
	imageRef = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	gfmTable = regexp.MustCompile(`(?m)^\|(?:[ \t]*:?-+:?[ \t]*\|)+[ \t]*$`)
)

func hasImage(content string) bool {
	return imageRef.MatchString(content)
}

func hasTable(content string) bool {
	return len(extraction.ReferencedTables(content)) > 0 || gfmTable.MatchString(content)
}

func tag(meta map[string]any, content string, s *settings) {
	if s.tagImages {
		meta[MetaHasImage] = hasImage(content)
	}
	if s.tagTables {
		meta[MetaHasTable] = hasTable(content)
	}
}
