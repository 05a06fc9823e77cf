package core

import (
	"encoding/binary"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a deterministic identifier derived from content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as lowercase hex.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// PageMarkdown is the OCR output for a single page.
type PageMarkdown struct {
	PageNumber int    `json:"pageNumber"`
	RawText    string `json:"rawText"`
}

// Column describes one table column. Key is unique within a table,
// Label is the header text as it appeared in the document.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// TableRecord is a normalized table extracted from page markdown.
type TableRecord struct {
	ID           string              `json:"id,omitempty"`
	FileID       string              `json:"fileId"`
	PageNumber   int                 `json:"pageNumber"`
	ReferenceTag string              `json:"referenceTag"`
	Columns      []Column            `json:"columns"`
	Rows         []map[string]string `json:"rows"`
}

// BoundingBox locates an image crop on its page, in page pixels.
type BoundingBox struct {
	TopLeftX     float64 `json:"topLeftX"`
	TopLeftY     float64 `json:"topLeftY"`
	BottomRightX float64 `json:"bottomRightX"`
	BottomRightY float64 `json:"bottomRightY"`
	PageWidth    float64 `json:"pageWidth"`
	PageHeight   float64 `json:"pageHeight"`
}

// ImageRecord is an image crop detected on a page.
type ImageRecord struct {
	ID               string         `json:"id,omitempty"`
	FileID           string         `json:"fileId"`
	PageNumber       int            `json:"pageNumber"`
	Name             string         `json:"name"`
	ImageURL         string         `json:"imageUrl"`
	BoundingBox      BoundingBox    `json:"boundingBox"`
	Summary          string         `json:"summary,omitempty"`
	StructuredOutput *ImageAnalysis `json:"structuredOutput,omitempty"`
}

// TextContent is the per-page text record that references the page's tables and images.
type TextContent struct {
	ID         string   `json:"id"`
	FileID     string   `json:"fileId"`
	PageNumber int      `json:"pageNumber"`
	Markdown   string   `json:"markdown"`
	TableIDs   []string `json:"tableIds"`
	ImageIDs   []string `json:"imageIds"`
}

// ImageType classifies what a vision model saw in an image.
type ImageType string

const (
	ImageTypeChart   ImageType = "chart"
	ImageTypeDiagram ImageType = "diagram"
	ImageTypeText    ImageType = "text"
	ImageTypeTable   ImageType = "table"
	ImageTypeImage   ImageType = "image"
)

// Label is a chart category. Models return either strings or numbers here.
type Label string

// UnmarshalJSON accepts both JSON strings and numbers.
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Label(n.String())
	return nil
}

// DataPoint is a single (label, value) pair in a chart series.
type DataPoint struct {
	Label Label    `json:"label"`
	Value *float64 `json:"value,omitempty"`
}

// ChartSeries is one legend entry of a chart.
type ChartSeries struct {
	Name string      `json:"name,omitempty"`
	Data []DataPoint `json:"data"`
}

// ChartContent is the structured data read off a chart image.
type ChartContent struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title,omitempty"`
	Series     []ChartSeries `json:"series"`
	XAxisLabel string        `json:"xAxisLabel,omitempty"`
	YAxisLabel string        `json:"yAxisLabel,omitempty"`
	Notes      string        `json:"notes,omitempty"`
}

// ImageData carries optional chart or table payloads.
type ImageData struct {
	ChartData []ChartContent    `json:"chartData,omitempty"`
	TableData []map[string]any `json:"tableData,omitempty"`
}

// ImageAnalysis is the structured description returned by a vision model.
type ImageAnalysis struct {
	ImageSummary string    `json:"imageSummary"`
	ImageType    ImageType `json:"imageType"`
	ImageData    ImageData `json:"imageData"`
}

// PageChunk is a token-budgeted unit of text ready for embedding.
type PageChunk struct {
	Content     string         `json:"content"`
	PageNumbers []int          `json:"pageNumbers"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AddPages merges pages into the chunk's page set, keeping it sorted and unique.
func (c *PageChunk) AddPages(pages ...int) {
	c.PageNumbers = MergePages(c.PageNumbers, pages)
}

// MergePages returns the sorted union of two page lists.
func MergePages(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Embedding is a vector ready for upsert into a namespace.
type Embedding struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Rect is an axis-aligned rectangle in page coordinates with a top-left origin.
// Width and Height carry the dimensions of the page the rect lives on.
type Rect struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether the rect has no area.
func (r Rect) IsZero() bool {
	return r.X2-r.X1 <= 0 || r.Y2-r.Y1 <= 0
}

// Union returns the smallest rect covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X1:     min(r.X1, o.X1),
		Y1:     min(r.Y1, o.Y1),
		X2:     max(r.X2, o.X2),
		Y2:     max(r.Y2, o.Y2),
		Width:  max(r.Width, o.Width),
		Height: max(r.Height, o.Height),
	}
}

// HighlightPosition is the on-page geometry of a located snippet.
type HighlightPosition struct {
	BoundingRect Rect   `json:"boundingRect"`
	Rects        []Rect `json:"rects"`
	PageNumber   int    `json:"pageNumber"`
}

// HighlightContent echoes the searched text.
type HighlightContent struct {
	Text string `json:"text"`
}

// Highlight is the result of locating a snippet in a PDF. Matched is false
// when no strategy found the snippet; Position then holds a zero rect.
type Highlight struct {
	Content  HighlightContent  `json:"content"`
	Position HighlightPosition `json:"position"`
	Matched  bool              `json:"matched"`
}

// Status is the lifecycle state of an ingestion item or file.
type Status string

const (
	StatusCreated    Status = "created"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusParsed     Status = "parsed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusParsed || s == StatusFailed
}

// ProgressRecord is the per-item progress state reported to clients.
type ProgressRecord struct {
	Status           Status    `json:"status"`
	Progress         float64   `json:"progress"`
	SubPhaseProgress float64   `json:"subPhaseProgress"`
	SubPhaseCount    int       `json:"subPhaseCount"`
	Error            string    `json:"error,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// File is the metadata record of an uploaded document.
type File struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	DossierID string    `json:"dossierId,omitempty"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url,omitempty"`
	Size      int64     `json:"size"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QAPair is a curated question/answer extracted from a document section.
type QAPair struct {
	ID          string `json:"id,omitempty"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	SourceType  string `json:"sourceType"`
	Reference   string `json:"reference"`
	PageNumbers []int  `json:"pageNumbers"`
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
}

// WebPage is a scraped page converted to markdown.
type WebPage struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}
