// Package dsl compiles search requests into document-search engine query bodies.
package dsl

import (
	"time"
)

// Query is a single engine query clause.
type Query map[string]any

// Body is a complete search request body.
type Body struct {
	Query          Query          `json:"query"`
	Sort           []Query        `json:"sort,omitempty"`
	Size           int            `json:"size"`
	From           int            `json:"from,omitempty"`
	SearchAfter    []string       `json:"search_after,omitempty"`
	Highlight      *HighlightSpec `json:"highlight,omitempty"`
	TrackTotalHits bool           `json:"track_total_hits"`
	Source         []string       `json:"_source,omitempty"`
}

// QueryBuilder produces a query body.
type QueryBuilder interface {
	ToQuery() (*Body, error)
}

// Term matches documents whose field equals value exactly.
func Term(field string, value any) Query {
	return Query{"term": Query{field: value}}
}

// Wildcard matches documents whose field matches pattern, ignoring case.
func Wildcard(field, pattern string) Query {
	return Query{"wildcard": Query{field: Query{
		"value":            pattern,
		"case_insensitive": true,
	}}}
}

// Range bounds a date field: gte is inclusive, lt is exclusive.
func Range(field string, gte, lt *time.Time) Query {
	bounds := Query{}
	if gte != nil {
		bounds["gte"] = gte.UTC().Format(time.RFC3339)
	}
	if lt != nil {
		bounds["lt"] = lt.UTC().Format(time.RFC3339)
	}
	return Query{"range": Query{field: bounds}}
}

// MatchAll matches every document.
func MatchAll() Query {
	return Query{"match_all": Query{}}
}

// SimpleQueryString matches text over weighted fields ("title^3").
// text must already be escaped.
func SimpleQueryString(text string, fields []string) Query {
	return Query{"simple_query_string": Query{
		"query":            text,
		"fields":           fields,
		"default_operator": "and",
	}}
}

// AnyOf matches when at least one clause matches.
func AnyOf(clauses ...Query) Query {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return Bool().Should(clauses...).MinimumShouldMatch(1).Build()
}

// BoolBuilder is a fluent builder for bool queries.
type BoolBuilder struct {
	must      []Query
	filter    []Query
	should    []Query
	mustNot   []Query
	minShould int
}

// Bool starts building a bool query.
func Bool() *BoolBuilder {
	return &BoolBuilder{}
}

// Must adds scoring clauses that must match.
func (b *BoolBuilder) Must(q ...Query) *BoolBuilder {
	b.must = append(b.must, q...)
	return b
}

// Filter adds non-scoring clauses that must match.
func (b *BoolBuilder) Filter(q ...Query) *BoolBuilder {
	b.filter = append(b.filter, q...)
	return b
}

// Should adds optional clauses.
func (b *BoolBuilder) Should(q ...Query) *BoolBuilder {
	b.should = append(b.should, q...)
	return b
}

// MustNot adds exclusion clauses.
func (b *BoolBuilder) MustNot(q ...Query) *BoolBuilder {
	b.mustNot = append(b.mustNot, q...)
	return b
}

// MinimumShouldMatch sets how many should clauses must match.
func (b *BoolBuilder) MinimumShouldMatch(n int) *BoolBuilder {
	b.minShould = n
	return b
}

// Empty reports whether no clause was added.
func (b *BoolBuilder) Empty() bool {
	return len(b.must)+len(b.filter)+len(b.should)+len(b.mustNot) == 0
}

// Build returns the bool query, or match_all when empty.
func (b *BoolBuilder) Build() Query {
	if b.Empty() {
		return MatchAll()
	}
	body := Query{}
	if len(b.must) > 0 {
		body["must"] = b.must
	}
	if len(b.filter) > 0 {
		body["filter"] = b.filter
	}
	if len(b.should) > 0 {
		body["should"] = b.should
	}
	if len(b.mustNot) > 0 {
		body["must_not"] = b.mustNot
	}
	if b.minShould > 0 {
		body["minimum_should_match"] = b.minShould
	}
	return Query{"bool": body}
}
