package retrieval

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/extraction"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/storage"
)

// References are the stored records a chunk points at through its table
// reference tags and image links.
type References struct {
	Tables []core.TableRecord `json:"tables"`
	Images []core.ImageRecord `json:"images"`
}

// Resolver follows the table tags and image links in retrieved chunk text
// back to the records extracted at ingestion.
type Resolver struct {
	tables      *storage.Repository[core.TableRecord]
	images      *storage.Repository[core.ImageRecord]
	documentKey string
	logger      *slog.Logger
}

// NewResolver creates a Resolver over store. Matches are tied to their
// document through DefaultDocumentKey. A nil logger means slog.Default().
func NewResolver(store storage.DocumentStore, logger *slog.Logger) (*Resolver, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tables:      storage.Tables(store),
		images:      storage.Images(store),
		documentKey: DefaultDocumentKey,
		logger:      logger.With("component", "resolver"),
	}, nil
}

// Resolve returns the records referenced by one match. A match without a
// document ID or without references resolves to empty lists. References
// to records that no longer exist are skipped.
func (r *Resolver) Resolve(ctx context.Context, m indexing.Match) (References, error) {
	refs := References{Tables: []core.TableRecord{}, Images: []core.ImageRecord{}}

	fileID, _ := m.Metadata[r.documentKey].(string)
	if fileID == "" {
		return refs, nil
	}
	text := m.Text()

	if names := unique(extraction.ReferencedTables(text)); len(names) > 0 {
		found, err := r.tables.Query(ctx, storage.Eq("fileId", fileID), storage.In("referenceTag", names...))
		if err != nil {
			return References{}, fmt.Errorf("resolving tables of %s: %w", m.ID, err)
		}
		for _, t := range found {
			refs.Tables = append(refs.Tables, *t)
		}
		if len(found) < len(names) {
			r.logger.Debug("unresolved table references", "match", m.ID, "want", len(names), "found", len(found))
		}
	}

	if names := unique(extraction.ReferencedImages(text)); len(names) > 0 {
		found, err := r.images.Query(ctx, storage.Eq("fileId", fileID), storage.In("name", names...))
		if err != nil {
			return References{}, fmt.Errorf("resolving images of %s: %w", m.ID, err)
		}
		for _, img := range found {
			refs.Images = append(refs.Images, *img)
		}
	}

	slices.SortStableFunc(refs.Tables, func(a, b core.TableRecord) int {
		return compareRef(a.PageNumber, b.PageNumber, a.ReferenceTag, b.ReferenceTag)
	})
	slices.SortStableFunc(refs.Images, func(a, b core.ImageRecord) int {
		return compareRef(a.PageNumber, b.PageNumber, a.Name, b.Name)
	})
	return refs, nil
}

func compareRef(pa, pb int, na, nb string) int {
	if c := cmp.Compare(pa, pb); c != 0 {
		return c
	}
	return strings.Compare(na, nb)
}

func unique(names []string) []string {
	var out []string
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
