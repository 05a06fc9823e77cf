package retrieval

import (
	"github.com/poiesic/docsift/indexing"
)

// splitFilter expands every $in condition longer than limit into
// consecutive slices of at most limit values and returns the cross product
// of those slices. Filters within the limit come back unchanged.
func splitFilter(f indexing.Filter, limit int) []indexing.Filter {
	out := []indexing.Filter{nil}
	for _, c := range f {
		values := c.Values()
		if c.Op != indexing.OpIn || len(values) <= limit {
			for i := range out {
				out[i] = append(out[i], c)
			}
			continue
		}

		var parts []indexing.Condition
		for start := 0; start < len(values); start += limit {
			end := min(start+limit, len(values))
			parts = append(parts, indexing.In(c.Field, values[start:end]...))
		}
		next := make([]indexing.Filter, 0, len(out)*len(parts))
		for _, prefix := range out {
			for _, part := range parts {
				sub := make(indexing.Filter, len(prefix), len(prefix)+1)
				copy(sub, prefix)
				next = append(next, append(sub, part))
			}
		}
		out = next
	}
	return out
}
