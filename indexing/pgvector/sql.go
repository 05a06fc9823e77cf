package pgvector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/docsift/indexing"
)

// whereClause compiles filter into a SQL boolean expression over the
// metadata column, appending its parameters to args. Equality matches a
// scalar field or any element of an array field.
func whereClause(filter indexing.Filter, args []any) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	if len(filter) == 0 {
		return "TRUE", args, nil
	}

	parts := make([]string, 0, len(filter))
	for _, c := range filter {
		var (
			expr string
			err  error
		)
		switch c.Op {
		case indexing.OpEq:
			expr, args, err = equals(c.Field, c.Value, args)
		case indexing.OpIn:
			alts := make([]string, 0, len(c.Values()))
			for _, v := range c.Values() {
				var alt string
				alt, args, err = equals(c.Field, v, args)
				if err != nil {
					break
				}
				alts = append(alts, alt)
			}
			if len(alts) == 0 {
				expr = "FALSE"
			} else {
				expr = "(" + strings.Join(alts, " OR ") + ")"
			}
		case indexing.OpGt, indexing.OpLt:
			op := ">"
			if c.Op == indexing.OpLt {
				op = "<"
			}
			bound, _ := indexing.AsFloat(c.Value)
			args = append(args, c.Field)
			key := len(args)
			args = append(args, bound)
			expr = fmt.Sprintf(
				"(CASE WHEN jsonb_typeof(metadata->$%d) = 'number' THEN (metadata->>$%d)::float8 %s $%d::float8 ELSE FALSE END)",
				key, key, op, len(args))
		}
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, " AND "), args, nil
}

func equals(field string, value any, args []any) (string, []any, error) {
	scalar, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return "", nil, fmt.Errorf("encoding filter value for %q: %w", field, err)
	}
	element, err := json.Marshal(map[string]any{field: []any{value}})
	if err != nil {
		return "", nil, fmt.Errorf("encoding filter value for %q: %w", field, err)
	}
	args = append(args, string(scalar), string(element))
	n := len(args)
	return fmt.Sprintf("(metadata @> $%d::jsonb OR metadata @> $%d::jsonb)", n-1, n), args, nil
}
