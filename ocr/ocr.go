// Package ocr defines the contract with the OCR engine. The engine itself is
// an external service; this package only describes its output and ships a
// directory-backed implementation for local runs.
package ocr

import "context"

// Image is an image crop reported by the OCR engine.
type Image struct {
	// ID is the name the engine used in the page markdown, e.g. "img-0.jpeg".
	ID           string
	TopLeftX     float64
	TopLeftY     float64
	BottomRightX float64
	BottomRightY float64
	// Base64 is a data URI ("data:image/jpeg;base64,...").
	Base64 string
}

// Page is the OCR output for one page. Index is zero-based.
type Page struct {
	Index    int
	Markdown string
	Width    float64
	Height   float64
	Images   []Image
}

// Number returns the one-based page number.
func (p Page) Number() int {
	return p.Index + 1
}

// Result is the full OCR output for a document.
type Result struct {
	Pages []Page
}

// Service submits a document and returns per-page markdown and image crops.
// Implementations must be safe for concurrent use.
type Service interface {
	Process(ctx context.Context, documentURL string) (*Result, error)
}
