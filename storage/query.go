package storage

import (
	"fmt"
	"reflect"
	"slices"
)

// MaxInValues is the largest value list an OpIn condition may carry.
const MaxInValues = 30

// Op is a query comparison.
type Op string

const (
	OpEq Op = "=="
	OpIn Op = "in"
)

// Where is one query condition.
type Where struct {
	Field string
	Op    Op
	Value any
}

// Eq matches documents whose field equals value.
func Eq(field string, value any) Where {
	return Where{Field: field, Op: OpEq, Value: value}
}

// In matches documents whose field equals any of values.
func In[T any](field string, values ...T) Where {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return Where{Field: field, Op: OpIn, Value: list}
}

// Values returns the value list of an OpIn condition.
func (w Where) Values() []any {
	list, _ := w.Value.([]any)
	return list
}

// Validate checks the condition shape.
func (w Where) Validate() error {
	if w.Field == "" {
		return fmt.Errorf("%w: empty field", ErrInvalidQuery)
	}
	switch w.Op {
	case OpEq:
		return nil
	case OpIn:
		if _, ok := w.Value.([]any); !ok {
			return fmt.Errorf("%w: %s in requires a list", ErrInvalidQuery, w.Field)
		}
		if n := len(w.Values()); n > MaxInValues {
			return fmt.Errorf("%w: %s in has %d values, limit is %d", ErrInvalidQuery, w.Field, n, MaxInValues)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, w.Op)
}

// Matches reports whether fields satisfy the condition.
func (w Where) Matches(fields Fields) bool {
	v, ok := fields[w.Field]
	if !ok {
		return false
	}
	switch w.Op {
	case OpEq:
		return equalValues(v, w.Value)
	case OpIn:
		return slices.ContainsFunc(w.Values(), func(candidate any) bool {
			return equalValues(v, candidate)
		})
	}
	return false
}

// MatchesAll reports whether fields satisfy every condition.
func MatchesAll(fields Fields, where []Where) bool {
	for _, w := range where {
		if !w.Matches(fields) {
			return false
		}
	}
	return true
}

// SplitIn expands conditions so that no OpIn list exceeds limit. The result
// is the cross product of the chunked lists; running every returned query
// and merging by document ID equals running the original one.
func SplitIn(where []Where, limit int) [][]Where {
	queries := [][]Where{nil}
	for _, w := range where {
		parts := []Where{w}
		if values := w.Values(); w.Op == OpIn && len(values) > limit {
			parts = parts[:0]
			for chunk := range slices.Chunk(values, limit) {
				parts = append(parts, Where{Field: w.Field, Op: OpIn, Value: chunk})
			}
		}
		next := make([][]Where, 0, len(queries)*len(parts))
		for _, q := range queries {
			for _, p := range parts {
				next = append(next, append(slices.Clone(q), p))
			}
		}
		queries = next
	}
	return queries
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
