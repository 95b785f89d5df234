package dsl

import "github.com/kailas-cloud/shelfsearch/internal/domain/search/ordering"

// Sort renders resolved sort fields.
func Sort(fields []ordering.Field) []Query {
	out := make([]Query, len(fields))
	for i, f := range fields {
		out[i] = Query{f.Name: Query{"order": f.Order.Lower()}}
	}
	return out
}
