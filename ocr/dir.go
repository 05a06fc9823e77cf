package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrNoPages is returned when a document directory contains no page files.
var ErrNoPages = errors.New("no page files found")

var pageFilePattern = regexp.MustCompile(`^page_(\d+)\.md$`)

// DirService serves OCR results that were produced ahead of time. The
// document URL is a directory holding page_1.md, page_2.md, ... and any
// image files those pages reference by name.
type DirService struct {
	PageWidth  float64
	PageHeight float64
}

var _ Service = (*DirService)(nil)

// NewDirService creates a DirService reporting US Letter page dimensions.
func NewDirService() *DirService {
	return &DirService{PageWidth: 612, PageHeight: 792}
}

// Process reads the page files in documentURL.
func (s *DirService) Process(ctx context.Context, documentURL string) (*Result, error) {
	entries, err := os.ReadDir(documentURL)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", documentURL, err)
	}

	type numbered struct {
		n    int
		name string
	}
	var files []numbered
	for _, e := range entries {
		m := pageFilePattern.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			continue
		}
		files = append(files, numbered{n: n, name: e.Name()})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPages, documentURL)
	}
	slices.SortFunc(files, func(a, b numbered) int { return a.n - b.n })

	result := &Result{Pages: make([]Page, 0, len(files))}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(documentURL, f.name))
		if err != nil {
			return nil, err
		}
		md := string(data)
		page := Page{
			Index:    f.n - 1,
			Markdown: md,
			Width:    s.PageWidth,
			Height:   s.PageHeight,
		}
		for _, name := range referencedImages(md) {
			img, err := os.ReadFile(filepath.Join(documentURL, name))
			if err != nil {
				// referenced but not shipped; the reference stays in the text
				continue
			}
			page.Images = append(page.Images, Image{
				ID:     name,
				Base64: dataURI(name, img),
			})
		}
		result.Pages = append(result.Pages, page)
	}
	return result, nil
}

var imageRefPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

func referencedImages(md string) []string {
	var names []string
	for _, m := range imageRefPattern.FindAllStringSubmatch(md, -1) {
		name := m[1]
		if strings.Contains(name, "://") || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	return names
}

func dataURI(name string, data []byte) string {
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
