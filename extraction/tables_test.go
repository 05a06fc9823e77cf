package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTables = `# Pricing

Intro paragraph.

| Item | Qty | Price |
|------|:---:|------:|
| Widget | 2 | 10 |
| Gadget | 1 |

Between tables.

|  | Score |
|---|---|
| a | 1 |
| b | 2 | extra |
| c | 3 |
`

func TestExtractTables_CountsAndTags(t *testing.T) {
	md, tables, next := ExtractTables(twoTables, 0)

	require.Len(t, tables, 2)
	assert.Equal(t, 2, next)

	assert.Equal(t, "table-0", tables[0].ReferenceTag)
	assert.Len(t, tables[0].Columns, 3)
	assert.Len(t, tables[0].Rows, 2)

	assert.Equal(t, "table-1", tables[1].ReferenceTag)
	assert.Len(t, tables[1].Columns, 2)
	assert.Len(t, tables[1].Rows, 3)

	assert.Equal(t, []string{"table-0", "table-1"}, ReferencedTables(md))
	assert.Equal(t, 1, strings.Count(md, ReferenceTag("table-0")))
	assert.Equal(t, 1, strings.Count(md, ReferenceTag("table-1")))

	// text around the tables survives
	assert.Contains(t, md, "Intro paragraph.")
	assert.Contains(t, md, "Between tables.")
	assert.Contains(t, md, "| Widget | 2 | 10 |")
}

func TestExtractTables_TagPrecedesTable(t *testing.T) {
	md, _, _ := ExtractTables("| a | b |\n|---|---|\n| 1 | 2 |\n", 4)
	assert.True(t, strings.HasPrefix(md, "<!--TABLE_REFERENCE: table-4-->\n| a | b |"))
}

func TestExtractTables_NormalizesRows(t *testing.T) {
	_, tables, _ := ExtractTables(twoTables, 0)
	require.Len(t, tables, 2)

	// short row padded
	assert.Equal(t, map[string]string{"Item": "Gadget", "Qty": "1", "Price": ""}, tables[0].Rows[1])

	// empty header synthesized, long row truncated
	assert.Equal(t, EmptyColumnPrefix+"0", tables[1].Columns[0].Key)
	assert.Equal(t, "", tables[1].Columns[0].Label)
	assert.Equal(t, "Score", tables[1].Columns[1].Label)
	assert.Equal(t, map[string]string{EmptyColumnPrefix + "0": "b", "Score": "2"}, tables[1].Rows[1])
}

func TestExtractTables_ContinuousIndex(t *testing.T) {
	_, first, next := ExtractTables("| a |\n|---|\n| 1 |\n", 0)
	_, second, next2 := ExtractTables("| b |\n|---|\n| 2 |\n", next)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "table-0", first[0].ReferenceTag)
	assert.Equal(t, "table-1", second[0].ReferenceTag)
	assert.Equal(t, 2, next2)
}

func TestExtractTables_RepeatedHeaderLabels(t *testing.T) {
	in := "| Item | Qty | Item | Qty |\n|---|---|---|---|\n| pen | 2 | ink | 5 |\n\n| x |\n|---|\n| y |\n"
	md, tables, next := ExtractTables(in, 0)

	require.Len(t, tables, 2)
	assert.Equal(t, 2, next)

	first := tables[0]
	assert.Equal(t, "table-0", first.ReferenceTag)
	var keys, labels []string
	for _, col := range first.Columns {
		keys = append(keys, col.Key)
		labels = append(labels, col.Label)
	}
	assert.Equal(t, []string{"Item", "Qty", "Item_1", "Qty_1"}, keys)
	assert.Equal(t, []string{"Item", "Qty", "Item", "Qty"}, labels)
	assert.Equal(t, map[string]string{"Item": "pen", "Qty": "2", "Item_1": "ink", "Qty_1": "5"}, first.Rows[0])

	assert.True(t, strings.HasPrefix(md, ReferenceTag("table-0")+"\n| Item | Qty | Item | Qty |"))
	assert.Contains(t, md, ReferenceTag("table-1")+"\n| x |")
}

func TestExtractTables_NoTables(t *testing.T) {
	md, tables, next := ExtractTables("just text | with a pipe", 3)
	assert.Empty(t, tables)
	assert.Equal(t, 3, next)
	assert.Equal(t, "just text | with a pipe", md)
}

func TestExtractTables_HeaderOnly(t *testing.T) {
	_, tables, _ := ExtractTables("| a | b |\n|---|---|\n", 0)
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].Columns, 2)
	assert.Empty(t, tables[0].Rows)
}

func TestExtractTables_LatexInsideCells(t *testing.T) {
	in := "| Metric | Value |\n|---|---|\n| Growth | $\\mathbf{12}\\%$ |\n| Cost | \\$40 |\n"
	_, tables, _ := ExtractTables(in, 0)

	require.Len(t, tables, 1)
	assert.Equal(t, "12%", tables[0].Rows[0]["Value"])
	assert.Equal(t, "40", tables[0].Rows[1]["Value"])
}

func TestCleanLatex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "escaped dollar", in: `costs \$5`, want: "costs 5"},
		{name: "percent", in: `grew 5\%`, want: "grew 5%"},
		{name: "html tags", in: "a<br>b<sup>2</sup>", want: "ab2"},
		{name: "formatting command", in: `\textbf{bold} and \mathrm{x}`, want: "bold and x"},
		{name: "block math", in: "$$x + y$$", want: "x + y"},
		{name: "inline math", in: "value $42$ here", want: "value 42 here"},
		{name: "bare commands", in: `\alpha beta`, want: "beta"},
		{name: "footnote marker", in: "{1234}^{(1)} total", want: "1234 total"},
		{name: "crlf", in: "a\r\nb", want: "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLatex(tt.in))
		})
	}
}
