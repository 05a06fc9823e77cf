package enrichment

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/docsift/core"
)

// ImagePlaceholder is the markdown reference OCR leaves where an image sat.
func ImagePlaceholder(name string) string {
	return "![" + name + "](" + name + ")"
}

// Synopsis renders the text that replaces an image placeholder: the
// placeholder itself, the model summary, then chart and table data.
func Synopsis(name string, analysis *core.ImageAnalysis) string {
	var b strings.Builder
	b.WriteString(ImagePlaceholder(name))
	if analysis == nil {
		return b.String()
	}
	if analysis.ImageSummary != "" {
		b.WriteString("\n")
		b.WriteString(analysis.ImageSummary)
	}
	if len(analysis.ImageData.ChartData) > 0 {
		b.WriteString("\n\n")
		b.WriteString(ChartSummary(analysis.ImageData.ChartData))
	}
	if len(analysis.ImageData.TableData) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TableSummary(analysis.ImageData.TableData))
	}
	return b.String()
}

// ChartSummary renders chart data as a nested markdown list.
func ChartSummary(charts []core.ChartContent) string {
	parts := make([]string, 0, len(charts))
	for _, chart := range charts {
		title := "Chart Data"
		if chart.Title != "" {
			title = "**" + chart.Title + "**"
		}
		lines := []string{title + ":"}
		for _, series := range chart.Series {
			if series.Name != "" {
				lines = append(lines, "- "+series.Name+":")
			}
			for _, dp := range series.Data {
				label := string(dp.Label)
				if label == "" {
					label = "Unknown"
				}
				value := "N/A"
				if dp.Value != nil {
					value = strconv.FormatFloat(*dp.Value, 'f', -1, 64)
				}
				lines = append(lines, "  - "+label+": "+value)
			}
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// TableSummary renders table rows as "- key: value, key: value" lines.
// Keys are sorted since row maps carry no column order.
func TableSummary(rows []map[string]any) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "**Table Data:**")
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		cells := make([]string, len(keys))
		for i, k := range keys {
			cells[i] = k + ": " + formatCell(row[k])
		}
		lines = append(lines, "- "+strings.Join(cells, ", "))
	}
	return strings.Join(lines, "\n")
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "N/A"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
