package indexing

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Op is a filter operator in the vector store wire grammar.
type Op string

const (
	OpEq Op = "$eq"
	OpIn Op = "$in"
	OpGt Op = "$gt"
	OpLt Op = "$lt"

	opAnd = "$and"
)

// Condition compares one metadata field with a value. For OpIn the value is
// a []any. When the stored field is a list, OpEq and OpIn match if any
// element matches.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Eq matches field == v.
func Eq(field string, v any) Condition {
	return Condition{Field: field, Op: OpEq, Value: v}
}

// In matches field against any of values.
func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

// Gt matches numeric fields greater than v.
func Gt(field string, v any) Condition {
	return Condition{Field: field, Op: OpGt, Value: v}
}

// Lt matches numeric fields less than v.
func Lt(field string, v any) Condition {
	return Condition{Field: field, Op: OpLt, Value: v}
}

// Values returns the value list of an OpIn condition.
func (c Condition) Values() []any {
	values, _ := toList(c.Value)
	return values
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// Validate checks operators and operand shapes.
func (f Filter) Validate() error {
	for _, c := range f {
		if c.Field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidFilter)
		}
		switch c.Op {
		case OpEq:
		case OpIn:
			if _, ok := toList(c.Value); !ok {
				return fmt.Errorf("%w: %s on %q needs a list", ErrInvalidFilter, c.Op, c.Field)
			}
		case OpGt, OpLt:
			if _, ok := AsFloat(c.Value); !ok {
				return fmt.Errorf("%w: %s on %q needs a number", ErrInvalidFilter, c.Op, c.Field)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
		}
	}
	return nil
}

// Map renders the filter in the wire grammar: one condition becomes
// {field: {op: value}}, several are wrapped in $and.
func (f Filter) Map() map[string]any {
	switch len(f) {
	case 0:
		return map[string]any{}
	case 1:
		return f[0].wire()
	}
	clauses := make([]any, len(f))
	for i, c := range f {
		clauses[i] = c.wire()
	}
	return map[string]any{opAnd: clauses}
}

func (c Condition) wire() map[string]any {
	return map[string]any{c.Field: map[string]any{string(c.Op): c.Value}}
}

// Matches evaluates the filter against decoded metadata.
func (f Filter) Matches(meta map[string]any) bool {
	for _, c := range f {
		if !c.matches(meta) {
			return false
		}
	}
	return true
}

func (c Condition) matches(meta map[string]any) bool {
	field, ok := meta[c.Field]
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return containsEqual(field, c.Value)
	case OpIn:
		for _, v := range c.Values() {
			if containsEqual(field, v) {
				return true
			}
		}
		return false
	case OpGt, OpLt:
		a, ok1 := AsFloat(field)
		b, ok2 := AsFloat(c.Value)
		if !ok1 || !ok2 {
			return false
		}
		if c.Op == OpGt {
			return a > b
		}
		return a < b
	}
	return false
}

func containsEqual(field, v any) bool {
	if list, ok := toList(field); ok {
		for _, item := range list {
			if valuesEqual(item, v) {
				return true
			}
		}
		return false
	}
	return valuesEqual(field, v)
}

func valuesEqual(a, b any) bool {
	na, ok1 := AsFloat(a)
	nb, ok2 := AsFloat(b)
	if ok1 && ok2 {
		return na == nb
	}
	return reflect.DeepEqual(a, b)
}

// FilterFromMap parses the loose map form callers send: a scalar becomes
// $eq, a list becomes $in, an operator map is kept and a $and list is
// flattened. Keys are visited in sorted order so the result is stable.
func FilterFromMap(m map[string]any) (Filter, error) {
	var f Filter
	for _, key := range slices.Sorted(maps.Keys(m)) {
		value := m[key]
		if key == opAnd {
			clauses, ok := toList(value)
			if !ok {
				return nil, fmt.Errorf("%w: %s needs a list", ErrInvalidFilter, opAnd)
			}
			for _, clause := range clauses {
				sub, ok := clause.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: %s clause is %T", ErrInvalidFilter, opAnd, clause)
				}
				parsed, err := FilterFromMap(sub)
				if err != nil {
					return nil, err
				}
				f = append(f, parsed...)
			}
			continue
		}

		if ops, ok := value.(map[string]any); ok {
			for _, op := range slices.Sorted(maps.Keys(ops)) {
				c := Condition{Field: key, Op: Op(op), Value: ops[op]}
				if c.Op == OpIn {
					if list, ok := toList(c.Value); ok {
						c.Value = list
					}
				}
				f = append(f, c)
			}
			continue
		}
		if list, ok := toList(value); ok {
			f = append(f, In(key, list...))
			continue
		}
		f = append(f, Eq(key, value))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFilter builds the filter used to purge vectors by metadata:
// booleans compare by equality, everything else by membership.
func DeleteFilter(fields map[string]any) Filter {
	var f Filter
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		value := fields[key]
		if _, ok := value.(bool); ok {
			f = append(f, Eq(key, value))
			continue
		}
		if list, ok := toList(value); ok {
			f = append(f, In(key, list...))
			continue
		}
		f = append(f, In(key, value))
	}
	return f
}

func toList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// AsFloat converts any Go numeric value to float64.
func AsFloat(v any) (float64, bool) {
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
