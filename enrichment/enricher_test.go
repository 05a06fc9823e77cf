package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docsift/ai/mock"
	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnricher_RequiresDescriber(t *testing.T) {
	_, err := NewEnricher(nil)
	assert.ErrorIs(t, err, ErrDescriberRequired)
}

func TestEnricher_Enrich(t *testing.T) {
	describer := mock.NewMockImageDescriber()
	var hints []string
	describer.DescribeImageFunc = func(ctx context.Context, url, hint string) (*core.ImageAnalysis, error) {
		hints = append(hints, hint)
		return &core.ImageAnalysis{
			ImageSummary: "Org chart",
			ImageType:    core.ImageTypeDiagram,
		}, nil
	}

	e, err := NewEnricher(describer, WithConcurrency(1))
	require.NoError(t, err)
	defer e.Release()

	texts := []core.TextContent{{
		ID:       "t1",
		Markdown: "Team layout\n\n![img-0.jpeg](img-0.jpeg)\n\nEnd.",
		ImageIDs: []string{"i1"},
	}}
	images := []core.ImageRecord{{ID: "i1", Name: "img-0.jpeg", ImageURL: "https://cdn/x.jpeg"}}

	report := e.Enrich(context.Background(), texts, images)
	assert.Equal(t, Report{Described: 1}, report)
	assert.Equal(t, "Team layout\n\n![img-0.jpeg](img-0.jpeg)\nOrg chart\n\nEnd.", texts[0].Markdown)
	assert.Equal(t, "Org chart", images[0].Summary)
	require.NotNil(t, images[0].StructuredOutput)
	assert.Equal(t, []string{"Team layout\nEnd."}, hints)
}

func TestEnricher_IsolatesFailures(t *testing.T) {
	describer := mock.NewMockImageDescriber()
	describer.DescribeImageFunc = func(ctx context.Context, url, hint string) (*core.ImageAnalysis, error) {
		if url == "bad" {
			return nil, errors.New("model unavailable")
		}
		return &core.ImageAnalysis{ImageSummary: "ok"}, nil
	}

	e, err := NewEnricher(describer, WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	defer e.Release()

	texts := []core.TextContent{
		{Markdown: "![a.png](a.png)", ImageIDs: []string{"a"}},
		{Markdown: "![b.png](b.png)", ImageIDs: []string{"b"}},
	}
	images := []core.ImageRecord{
		{ID: "a", Name: "a.png", ImageURL: "bad"},
		{ID: "b", Name: "b.png", ImageURL: "good"},
	}

	report := e.Enrich(context.Background(), texts, images)
	assert.Equal(t, Report{Described: 1, Failed: 1}, report)
	assert.Equal(t, "![a.png](a.png)", texts[0].Markdown)
	assert.Equal(t, "![b.png](b.png)\nok", texts[1].Markdown)
	// one call for good plus two attempts for bad
	assert.Equal(t, 3, describer.CallCount())
}

func TestEnricher_EmptySummaryLeavesPlaceholder(t *testing.T) {
	describer := mock.NewMockImageDescriber()
	describer.DescribeImageFunc = func(ctx context.Context, url, hint string) (*core.ImageAnalysis, error) {
		return &core.ImageAnalysis{}, nil
	}

	e, err := NewEnricher(describer)
	require.NoError(t, err)
	defer e.Release()

	texts := []core.TextContent{{Markdown: "![a](a)", ImageIDs: []string{"a"}}}
	images := []core.ImageRecord{{ID: "a", Name: "a", ImageURL: "u"}}

	report := e.Enrich(context.Background(), texts, images)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "![a](a)", texts[0].Markdown)
}

func TestEnricher_CompressImages(t *testing.T) {
	e, err := NewEnricher(mock.NewMockImageDescriber(),
		WithPoolSize(2),
		WithCompression(CompressOptions{Threshold: 2000, Quality: 60, Scale: 0.8, MaxResizes: 1}))
	require.NoError(t, err)
	defer e.Release()

	big := noisePNG(t, 100, 100)
	images := []core.ImageRecord{
		{Name: "big", ImageURL: big},
		{Name: "remote", ImageURL: "https://cdn/x.png"},
		{Name: "broken", ImageURL: "data:image/png;base64,AAAA"},
	}
	e.CompressImages(images)

	assert.True(t, IsDataURI(images[0].ImageURL))
	assert.NotEqual(t, big, images[0].ImageURL)
	assert.Equal(t, "https://cdn/x.png", images[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,AAAA", images[2].ImageURL)
}
