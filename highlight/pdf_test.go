package highlight

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a one-page PDF with each line set in 12pt Helvetica at a
// fixed 500 unit advance, starting at (72, 700) and stepping down 20pt.
func buildPDF(lines ...string) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n")
	for i, l := range lines {
		if i == 0 {
			content.WriteString("72 700 Td\n")
		} else {
			content.WriteString("0 -20 Td\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", l)
	}
	content.WriteString("ET")
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestOpenPDF_TextLayer(t *testing.T) {
	doc, err := OpenPDF(buildPDF("Scope of work", "Pricing follows"))
	require.NoError(t, err)
	require.Equal(t, 1, doc.NumPages())

	p, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 612.0, p.Width)
	assert.Equal(t, 792.0, p.Height)
	require.NotEmpty(t, p.Glyphs)

	first := p.Glyphs[0]
	assert.Equal(t, "S", first.S)
	assert.InDelta(t, 72, first.X, 1e-6)
	assert.InDelta(t, 80, first.Y, 1e-6)
	assert.InDelta(t, 6, first.W, 1e-6)
	assert.InDelta(t, 12, first.H, 1e-6)

	_, err = doc.Page(2)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestOpenPDF_Invalid(t *testing.T) {
	_, err := OpenPDF([]byte("definitely not a pdf"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestFindInPDF_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfp.pdf")
	require.NoError(t, os.WriteFile(path, buildPDF("Scope of work", "Pricing follows the schedule below"), 0o600))
	h := newHighlighter(t)

	got, err := h.FindInPDF(context.Background(), path, "Pricing follows", []int{1})
	require.NoError(t, err)
	require.True(t, got.Matched)
	assert.Equal(t, 1, got.Position.PageNumber)
	assert.False(t, got.Position.BoundingRect.IsZero())
	assert.InDelta(t, 100, got.Position.BoundingRect.Y1, 1e-6)

	got, err = h.FindInPDF(context.Background(), path, "Pricing follows the schedule below with revisions", nil)
	require.NoError(t, err)
	assert.True(t, got.Matched)
}

func TestLoader_HTTP(t *testing.T) {
	data := buildPDF("Served over http")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/doc.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	doc, err := NewLoader().Load(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.NumPages())

	_, err = NewLoader().Load(context.Background(), srv.URL+"/missing.pdf")
	assert.ErrorIs(t, err, ErrFetchFailed)

	_, err = NewLoader(WithMaxBytes(10)).Load(context.Background(), srv.URL+"/doc.pdf")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoader_Errors(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrSourceEmpty)

	_, err = NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorIs(t, err, ErrFetchFailed)
}
