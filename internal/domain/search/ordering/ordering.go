// Package ordering resolves abstract sort keys into backend sort fields and
// appends a deterministic tie-breaker so page boundaries are reproducible.
package ordering

import (
	"fmt"
	"strings"
)

// Key is an abstract sort key.
type Key string

// Sort keys.
const (
	Relevance   Key = "RELEVANCE"
	CreatedAt   Key = "CREATED_AT"
	TimeToRead  Key = "TIME_TO_READ"
	PublishedAt Key = "PUBLISHED_AT"
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

// Lower returns the direction in the lower-case form used by the engine DSL.
func (o Order) Lower() string { return strings.ToLower(string(o)) }

// defaultOrders holds the documented default direction per key.
var defaultOrders = map[Key]Order{
	Relevance:   Desc,
	CreatedAt:   Desc,
	TimeToRead:  Asc,
	PublishedAt: Desc,
}

// DefaultOrder returns the documented default direction for key.
func DefaultOrder(key Key) Order {
	if o, ok := defaultOrders[key]; ok {
		return o
	}
	return Desc
}

// Spec is the caller's sort request. An empty SortOrder means the key's default.
type Spec struct {
	SortBy    Key
	SortOrder Order
}

// Validate checks that the key and direction are known.
func (s Spec) Validate() error {
	if _, ok := defaultOrders[s.SortBy]; !ok {
		return fmt.Errorf("unknown sort key %q", s.SortBy)
	}
	switch s.SortOrder {
	case "", Asc, Desc:
		return nil
	default:
		return fmt.Errorf("unknown sort order %q", s.SortOrder)
	}
}

// Field is one resolved backend sort field.
type Field struct {
	Name  string
	Order Order
}

// Mapping is a per-backend sort configuration.
type Mapping struct {
	Fields     map[Key]string
	TieBreaker string
}

// Resolve maps spec to backend sort fields. A nil spec sorts by relevance.
// The result always ends with exactly one tie-breaker field in ascending order.
func (m Mapping) Resolve(spec *Spec) ([]Field, error) {
	s := Spec{SortBy: Relevance}
	if spec != nil && spec.SortBy != "" {
		s = *spec
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	name, ok := m.Fields[s.SortBy]
	if !ok {
		return nil, fmt.Errorf("sort key %q is not supported here", s.SortBy)
	}

	order := s.SortOrder
	if order == "" {
		order = DefaultOrder(s.SortBy)
	}

	return []Field{
		{Name: name, Order: order},
		{Name: m.TieBreaker, Order: Asc},
	}, nil
}
