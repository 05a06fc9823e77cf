package storage

import "github.com/poiesic/docsift/core"

// Files returns the typed view over uploaded file metadata.
func Files(store DocumentStore) *Repository[core.File] {
	return NewRepository(store, CollectionFiles, func(f core.File) string { return f.ID })
}

// Tables returns the typed view over extracted tables.
func Tables(store DocumentStore) *Repository[core.TableRecord] {
	return NewRepository(store, CollectionTables, func(t core.TableRecord) string { return t.ID })
}

// Images returns the typed view over detected images.
func Images(store DocumentStore) *Repository[core.ImageRecord] {
	return NewRepository(store, CollectionImages, func(i core.ImageRecord) string { return i.ID })
}

// TextContents returns the typed view over per-page text records.
func TextContents(store DocumentStore) *Repository[core.TextContent] {
	return NewRepository(store, CollectionTextContent, func(t core.TextContent) string { return t.ID })
}

// CuratedQAs returns the typed view over extracted Q&A pairs.
func CuratedQAs(store DocumentStore) *Repository[core.QAPair] {
	return NewRepository(store, CollectionCuratedQAs, func(q core.QAPair) string { return q.ID })
}

// WebPages returns the typed view over scraped pages, keyed by the
// content ID of their URL.
func WebPages(store DocumentStore) *Repository[core.WebPage] {
	return NewRepository(store, CollectionWebPages, func(p core.WebPage) string {
		return core.IDFromContent(p.URL).String()
	})
}
