package highlight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxBytes caps how much of a PDF is read into memory.
const DefaultMaxBytes = 100 << 20

// Loader fetches PDFs over HTTP(S) or from the local filesystem.
type Loader struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for URLs.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithMaxBytes caps the PDF size.
func WithMaxBytes(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		client:   http.DefaultClient,
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default().With("component", "pdf-loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the PDF at source.
func (l *Loader) Load(ctx context.Context, source string) (*PDF, error) {
	if source == "" {
		return nil, ErrSourceEmpty
	}
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = l.readFile(source)
	}
	if err != nil {
		return nil, err
	}
	return OpenPDF(data)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, url, resp.Status)
	}
	l.logger.Debug("fetched pdf", "url", url, "length", resp.ContentLength)
	return l.readAll(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer f.Close()
	return l.readAll(f)
}

func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.maxBytes)
	}
	return data, nil
}

// PDF is a Document read with ledongthuc/pdf.
type PDF struct {
	reader *pdf.Reader
}

var _ Document = (*PDF)(nil)

// OpenPDF parses an in-memory PDF.
func OpenPDF(data []byte) (*PDF, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	return &PDF{reader: reader}, nil
}

// NumPages returns the page count.
func (d *PDF) NumPages() int {
	return d.reader.NumPage()
}

// Page extracts the text layer of page n. PDF coordinates have their
// origin at the bottom left; glyph boxes are flipped to a top-left origin
// and span one font size above the baseline.
func (d *PDF) Page(n int) (page *Page, err error) {
	if n < 1 || n > d.NumPages() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, d.NumPages())
	}
	// the object resolver and content interpreter panic on malformed input
	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("%w: page %d: %v", ErrInvalidPDF, n, r)
		}
	}()

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d missing", ErrInvalidPDF, n)
	}

	x0, y0, x1, y1 := mediaBox(p.V)
	page = &Page{Number: n, Width: x1 - x0, Height: y1 - y0}
	for _, t := range p.Content().Text {
		page.Glyphs = append(page.Glyphs, Glyph{
			S: t.S,
			X: t.X - x0,
			Y: y1 - (t.Y + t.FontSize),
			W: t.W,
			H: t.FontSize,
		})
	}
	return page, nil
}

// mediaBox returns the page box, looking through parent page nodes and
// falling back to US Letter.
func mediaBox(v pdf.Value) (x0, y0, x1, y1 float64) {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.Len() == 4 {
			return box.Index(0).Float64(), box.Index(1).Float64(),
				box.Index(2).Float64(), box.Index(3).Float64()
		}
	}
	return 0, 0, 612, 792
}
