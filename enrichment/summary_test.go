package enrichment

import (
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestChartSummary(t *testing.T) {
	charts := []core.ChartContent{
		{
			Title: "Revenue",
			Series: []core.ChartSeries{
				{Name: "2024", Data: []core.DataPoint{{Label: "Q1", Value: ptr(10.5)}, {Label: "Q2"}}},
				{Data: []core.DataPoint{{Value: ptr(3)}}},
			},
		},
		{Series: []core.ChartSeries{{Name: "s", Data: []core.DataPoint{{Label: "x", Value: ptr(1)}}}}},
	}

	want := "**Revenue**:\n- 2024:\n  - Q1: 10.5\n  - Q2: N/A\n  - Unknown: 3\n\nChart Data:\n- s:\n  - x: 1"
	assert.Equal(t, want, ChartSummary(charts))
}

func TestTableSummary(t *testing.T) {
	rows := []map[string]any{
		{"name": "Widget", "price": 10.0},
		{"name": "Gadget", "price": nil, "qty": 2.0},
	}

	want := "**Table Data:**\n- name: Widget, price: 10\n- name: Gadget, price: N/A, qty: 2"
	assert.Equal(t, want, TableSummary(rows))
}

func TestSynopsis(t *testing.T) {
	analysis := &core.ImageAnalysis{
		ImageSummary: "A bar chart.",
		ImageType:    core.ImageTypeChart,
		ImageData: core.ImageData{
			ChartData: []core.ChartContent{{Title: "T", Series: []core.ChartSeries{{Data: []core.DataPoint{{Label: "a", Value: ptr(1)}}}}}},
			TableData: []map[string]any{{"k": "v"}},
		},
	}

	want := "![img-0.jpeg](img-0.jpeg)\nA bar chart.\n\n**T**:\n  - a: 1\n\n**Table Data:**\n- k: v"
	assert.Equal(t, want, Synopsis("img-0.jpeg", analysis))
	assert.Equal(t, "![a](a)", Synopsis("a", nil))
}
