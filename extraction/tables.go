package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/docsift/core"
)

const (
	// EmptyColumnPrefix prefixes synthesized keys for blank header cells.
	EmptyColumnPrefix = "__empty_col_"

	// TableReferencePrefix prefixes the per-document table reference tag.
	TableReferencePrefix = "table-"
)

// header rows, a separator row, then zero or more data rows
var tablePattern = regexp.MustCompile(
	`(?m)(?:^\|.*\|[ \t]*\n)+` +
		`^\|(?:[ \t]*:?-+:?[ \t]*\|)+[ \t]*\n` +
		`(?:^\|.*\|[ \t]*\n?)*`,
)

var (
	separatorLine = regexp.MustCompile(`^\|\s*:?-+:?\s*\|`)
	cellSplit     = regexp.MustCompile(`\s*\|\s*`)
	referenceTag  = regexp.MustCompile(`<!--TABLE_REFERENCE: (table-\d+)-->`)
)

// ReferenceTag renders the anchor inserted in front of a table.
func ReferenceTag(name string) string {
	return "<!--TABLE_REFERENCE: " + name + "-->"
}

// ReferencedTables lists the table reference names found in text, in order.
func ReferencedTables(text string) []string {
	var names []string
	for _, m := range referenceTag.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}

// ExtractTables finds GFM tables in markdown and tags each one in place.
//
// The markdown is cleaned of LaTeX artifacts first. Tables are numbered from
// startIndex; the returned next index continues the sequence so numbering
// stays unique across the pages of one document. Returned records carry the
// reference tag, columns and rows but no ID, file or page.
//
// Repeated header labels get suffixed keys (Qty, Qty_1) so the frame stays
// rectangular. A block that still fails validation is left untouched and
// does not consume an index.
func ExtractTables(markdown string, startIndex int) (string, []core.TableRecord, int) {
	cleaned := CleanLatex(markdown)

	var (
		out    strings.Builder
		tables []core.TableRecord
		last   int
		index  = startIndex
	)
	for _, span := range tablePattern.FindAllStringIndex(cleaned, -1) {
		start, end := span[0], span[1]
		raw := cleaned[start:end]

		table, ok := parseTable(raw)
		if !ok {
			continue
		}
		table.ReferenceTag = fmt.Sprintf("%s%d", TableReferencePrefix, index)

		out.WriteString(cleaned[last:start])
		out.WriteString(ReferenceTag(table.ReferenceTag))
		out.WriteString("\n")
		out.WriteString(strings.TrimSpace(raw))
		out.WriteString("\n")
		last = end

		tables = append(tables, table)
		index++
	}
	out.WriteString(cleaned[last:])

	return out.String(), tables, index
}

// parseTable converts a matched table block into a record.
func parseTable(raw string) (core.TableRecord, bool) {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || separatorLine.MatchString(line) {
			continue
		}
		cells := cellSplit.Split(strings.Trim(line, "|"), -1)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return core.TableRecord{}, false
	}

	header := rows[0]
	columns := make([]core.Column, len(header))
	taken := make(map[string]bool, len(header))
	for i, label := range header {
		key := label
		if key == "" {
			key = fmt.Sprintf("%s%d", EmptyColumnPrefix, i)
		}
		// repeated labels keep their text; only the key gets a suffix
		for n, base := 1, key; taken[key]; n++ {
			key = fmt.Sprintf("%s_%d", base, n)
		}
		taken[key] = true
		columns[i] = core.Column{Key: key, Label: label}
	}

	table := core.TableRecord{
		Columns: columns,
		Rows:    make([]map[string]string, 0, len(rows)-1),
	}
	for _, cells := range rows[1:] {
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				row[col.Key] = cells[i]
			} else {
				row[col.Key] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if err := core.ValidateTable(&table); err != nil {
		return core.TableRecord{}, false
	}
	return table, true
}
