// Package result normalizes engine hits and relational rows into connection
// and page shapes.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
)

// Row is one backend hit before normalization.
type Row[T any] struct {
	Node T
	// SortValues are the stringified sort values of the hit. Empty for relational rows.
	SortValues []string
}

// Edge is a node with its resume cursor.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// PageInfo describes the position of a connection.
type PageInfo struct {
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

// Connection is a cursor-paginated result set. Edge order matches the sort order
// the query was executed with.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
	// TotalCount is exact unless TotalIsLowerBound is set.
	TotalCount        int  `json:"totalCount"`
	TotalIsLowerBound bool `json:"totalIsLowerBound,omitempty"`
}

// Page is an offset-paginated result set.
type Page[T any] struct {
	Entries           []T  `json:"entries"`
	Limit             int  `json:"limit"`
	Offset            int  `json:"offset"`
	TotalCount        int  `json:"totalCount"`
	TotalIsLowerBound bool `json:"totalIsLowerBound,omitempty"`
}

// NewConnection builds a connection from rows using the cursor scheme of eng.
func NewConnection[T any](eng pagination.Engine, p pagination.Params, rows []Row[T], total Total) Connection[T] {
	edges := make([]Edge[T], len(rows))
	for i, r := range rows {
		edges[i] = Edge[T]{Cursor: eng.Cursor(p, i, r.SortValues), Node: r.Node}
	}

	info := eng.PageInfo(p, len(rows), total.Value)
	pi := PageInfo{HasNextPage: info.HasNextPage, HasPreviousPage: info.HasPreviousPage}
	if len(edges) > 0 {
		start, end := edges[0].Cursor, edges[len(edges)-1].Cursor
		pi.StartCursor, pi.EndCursor = &start, &end
	}

	return Connection[T]{
		Edges:             edges,
		PageInfo:          pi,
		TotalCount:        total.Value,
		TotalIsLowerBound: total.IsLowerBound(),
	}
}

// NewPage builds an offset page from rows.
func NewPage[T any](p pagination.Params, rows []Row[T], total Total) Page[T] {
	entries := make([]T, len(rows))
	for i, r := range rows {
		entries[i] = r.Node
	}
	return Page[T]{
		Entries:           entries,
		Limit:             p.Size,
		Offset:            p.From,
		TotalCount:        total.Value,
		TotalIsLowerBound: total.IsLowerBound(),
	}
}

// Empty returns an empty connection with no cursors.
func Empty[T any]() Connection[T] {
	return Connection[T]{Edges: []Edge[T]{}}
}

// Total is a normalized hit count.
type Total struct {
	Value int
	// Relation is "eq" for exact counts and "gte" when the engine stopped counting.
	Relation string
}

// Exact returns an exact total of n.
func Exact(n int) Total { return Total{Value: n, Relation: "eq"} }

// IsLowerBound reports whether Value is only a lower bound.
func (t Total) IsLowerBound() bool {
	return t.Relation != "" && t.Relation != "eq"
}

// UnmarshalJSON accepts a bare integer or a {value, relation} object.
func (t *Total) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Total{}
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("parse total: %w", err)
		}
		*t = Total{Value: obj.Value, Relation: obj.Relation}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("parse total: %w", err)
	}
	*t = Exact(n)
	return nil
}

// ParseTotal normalizes a raw total.
func ParseTotal(raw json.RawMessage) (Total, error) {
	var t Total
	if err := t.UnmarshalJSON(raw); err != nil {
		return Total{}, err
	}
	return t, nil
}
