package extraction

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"

	"github.com/google/uuid"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/ocr"
)

// PageResult is the structural representation of one page.
type PageResult struct {
	PageNumber int
	Markdown   string
	Tables     []core.TableRecord
	Images     []core.ImageRecord
}

var imageLink = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)

// ReferencedImages lists the file names of markdown images in text, in
// order. The name is the last path segment of the link target, which is
// how image records are named.
func ReferencedImages(text string) []string {
	var names []string
	for _, m := range imageLink.FindAllStringSubmatch(text, -1) {
		names = append(names, path.Base(m[1]))
	}
	return names
}

// ExtractPage extracts tables and image records from a single OCR page.
// Table numbering starts at tableIndex; the next free index is returned.
func ExtractPage(fileID string, page ocr.Page, tableIndex int) (PageResult, int) {
	md, tables, next := ExtractTables(page.Markdown, tableIndex)

	number := page.Number()
	for i := range tables {
		tables[i].FileID = fileID
		tables[i].PageNumber = number
	}

	images := make([]core.ImageRecord, 0, len(page.Images))
	for _, img := range page.Images {
		images = append(images, core.ImageRecord{
			FileID:     fileID,
			PageNumber: number,
			Name:       img.ID,
			ImageURL:   img.Base64,
			BoundingBox: core.BoundingBox{
				TopLeftX:     img.TopLeftX,
				TopLeftY:     img.TopLeftY,
				BottomRightX: img.BottomRightX,
				BottomRightY: img.BottomRightY,
				PageWidth:    page.Width,
				PageHeight:   page.Height,
			},
		})
	}

	return PageResult{
		PageNumber: number,
		Markdown:   md,
		Tables:     tables,
		Images:     images,
	}, next
}

// DocumentResult holds the persisted-shape records for a run of pages.
type DocumentResult struct {
	Texts  []core.TextContent
	Tables []core.TableRecord
	Images []core.ImageRecord
}

// Extractor turns OCR pages into text, table and image records with IDs.
// It keeps the table counter between calls so a document processed in
// several page batches still numbers its tables continuously.
// An Extractor is not safe for concurrent use.
type Extractor struct {
	fileID     string
	tableIndex int
	logger     *slog.Logger
}

// NewExtractor creates an extractor for one document.
func NewExtractor(fileID string) (*Extractor, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id", core.ErrMissingID)
	}
	return &Extractor{
		fileID: fileID,
		logger: slog.Default().With("component", "extractor", "file", fileID),
	}, nil
}

// TableIndex returns the next table index that will be assigned.
func (e *Extractor) TableIndex() int {
	return e.tableIndex
}

// Extract processes a batch of pages. Pages failing validation are skipped.
func (e *Extractor) Extract(pages []ocr.Page) DocumentResult {
	var res DocumentResult
	for _, page := range pages {
		if err := core.ValidatePage(&core.PageMarkdown{PageNumber: page.Number(), RawText: page.Markdown}); err != nil {
			e.logger.Warn("skipping invalid page", "index", page.Index, "err", err)
			continue
		}

		pr, next := ExtractPage(e.fileID, page, e.tableIndex)
		e.tableIndex = next

		text := core.TextContent{
			ID:         uuid.NewString(),
			FileID:     e.fileID,
			PageNumber: pr.PageNumber,
			Markdown:   pr.Markdown,
			TableIDs:   make([]string, 0, len(pr.Tables)),
			ImageIDs:   make([]string, 0, len(pr.Images)),
		}
		for i := range pr.Tables {
			pr.Tables[i].ID = uuid.NewString()
			text.TableIDs = append(text.TableIDs, pr.Tables[i].ID)
		}
		for i := range pr.Images {
			pr.Images[i].ID = uuid.NewString()
			text.ImageIDs = append(text.ImageIDs, pr.Images[i].ID)
		}

		res.Texts = append(res.Texts, text)
		res.Tables = append(res.Tables, pr.Tables...)
		res.Images = append(res.Images, pr.Images...)
	}

	e.logger.Debug("extracted pages",
		"pages", len(res.Texts),
		"tables", len(res.Tables),
		"images", len(res.Images))
	return res
}
