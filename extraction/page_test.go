package extraction

import (
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractor_RequiresFileID(t *testing.T) {
	_, err := NewExtractor("")
	assert.ErrorIs(t, err, core.ErrMissingID)
}

func TestExtractor_Extract(t *testing.T) {
	ex, err := NewExtractor("file-1")
	require.NoError(t, err)

	pages := []ocr.Page{
		{
			Index:    0,
			Markdown: "Summary\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n![img-0.jpeg](img-0.jpeg)",
			Width:    1000,
			Height:   1400,
			Images: []ocr.Image{{
				ID:           "img-0.jpeg",
				TopLeftX:     10,
				TopLeftY:     20,
				BottomRightX: 110,
				BottomRightY: 220,
				Base64:       "data:image/jpeg;base64,AAAA",
			}},
		},
		{
			Index:    1,
			Markdown: "| c |\n|---|\n| 3 |\n",
		},
	}

	res := ex.Extract(pages)
	require.Len(t, res.Texts, 2)
	require.Len(t, res.Tables, 2)
	require.Len(t, res.Images, 1)

	assert.Equal(t, 1, res.Texts[0].PageNumber)
	assert.Equal(t, 2, res.Texts[1].PageNumber)
	assert.Equal(t, []string{res.Tables[0].ID}, res.Texts[0].TableIDs)
	assert.Equal(t, []string{res.Images[0].ID}, res.Texts[0].ImageIDs)
	assert.Equal(t, []string{res.Tables[1].ID}, res.Texts[1].TableIDs)
	assert.Empty(t, res.Texts[1].ImageIDs)

	assert.Equal(t, "table-0", res.Tables[0].ReferenceTag)
	assert.Equal(t, "table-1", res.Tables[1].ReferenceTag)
	assert.Equal(t, 2, res.Tables[1].PageNumber)
	assert.Equal(t, "file-1", res.Tables[1].FileID)

	img := res.Images[0]
	assert.Equal(t, "img-0.jpeg", img.Name)
	assert.Equal(t, 1000.0, img.BoundingBox.PageWidth)
	assert.Equal(t, 1400.0, img.BoundingBox.PageHeight)
	assert.Equal(t, 110.0, img.BoundingBox.BottomRightX)

	// the counter carries into the next batch
	assert.Equal(t, 2, ex.TableIndex())
	next := ex.Extract([]ocr.Page{{Index: 2, Markdown: "| d |\n|---|\n| 4 |\n"}})
	require.Len(t, next.Tables, 1)
	assert.Equal(t, "table-2", next.Tables[0].ReferenceTag)
}

func TestExtractor_SkipsInvalidPages(t *testing.T) {
	ex, err := NewExtractor("file-1")
	require.NoError(t, err)

	res := ex.Extract([]ocr.Page{{Index: -1, Markdown: "bad"}, {Index: 0, Markdown: "good"}})
	require.Len(t, res.Texts, 1)
	assert.Equal(t, "good", res.Texts[0].Markdown)
}

func TestReferencedImages(t *testing.T) {
	text := "See ![chart](img-0.jpeg) and ![](https://cdn.example.com/a/img-1.png \"fig\").\n![chart](img-0.jpeg)"
	assert.Equal(t, []string{"img-0.jpeg", "img-1.png", "img-0.jpeg"}, ReferencedImages(text))
	assert.Empty(t, ReferencedImages("no images [link](x.png)"))
}
