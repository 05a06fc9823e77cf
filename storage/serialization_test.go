package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFields_UsesJSONNames(t *testing.T) {
	fields, err := ToFields(core.TableRecord{
		ID:           "t1",
		FileID:       "f1",
		PageNumber:   3,
		ReferenceTag: "table-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "f1", fields["fileId"])
	assert.Equal(t, int64(3), fields["pageNumber"], "integers decode loosely as int64")
	assert.Equal(t, "table-1", fields["referenceTag"])
	assert.NotContains(t, fields, "FileID")
}

func TestToFields_OmitEmpty(t *testing.T) {
	fields, err := ToFields(core.ImageRecord{FileID: "f1", Name: "img-1.jpeg"})
	require.NoError(t, err)

	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "summary")
	assert.NotContains(t, fields, "structuredOutput")
}

func TestFromFields_RestoresRecord(t *testing.T) {
	value := 12.5
	original := core.ImageRecord{
		ID:         "i1",
		FileID:     "f1",
		PageNumber: 2,
		Name:       "img-0.jpeg",
		BoundingBox: core.BoundingBox{
			TopLeftX: 10, TopLeftY: 20, BottomRightX: 110, BottomRightY: 220,
			PageWidth: 1200, PageHeight: 1600,
		},
		StructuredOutput: &core.ImageAnalysis{
			ImageSummary: "Revenue by quarter",
			ImageType:    core.ImageTypeChart,
			ImageData: core.ImageData{ChartData: []core.ChartContent{{
				ChartType: "bar",
				Series:    []core.ChartSeries{{Name: "2024", Data: []core.DataPoint{{Label: "Q1", Value: &value}}}},
			}}},
		},
	}

	fields, err := ToFields(original)
	require.NoError(t, err)

	var restored core.ImageRecord
	require.NoError(t, FromFields(fields, &restored))
	assert.Equal(t, original, restored)
}

func TestProgressRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := MarshalProgress(map[string]core.ProgressRecord{
		"a": {Status: core.StatusProcessing, Progress: 50, SubPhaseProgress: 25, SubPhaseCount: 4, UpdatedAt: now},
	})
	require.NoError(t, err)

	records, err := UnmarshalProgress(data)
	require.NoError(t, err)
	rec := records["a"]
	assert.Equal(t, core.StatusProcessing, rec.Status)
	assert.Equal(t, 50.0, rec.Progress)
	assert.Equal(t, 4, rec.SubPhaseCount)
	assert.True(t, now.Equal(rec.UpdatedAt))
}

func TestUnmarshal_Invalid(t *testing.T) {
	var fields Fields
	err := Unmarshal([]byte{0xc1}, &fields)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalProgress(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
