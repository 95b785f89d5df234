package dsl

import (
	"strings"

	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
)

// Predicate is the translated filter of one request.
type Predicate struct {
	Filter  []Query
	MustNot []Query
}

// Apply adds the predicate clauses to b.
func (p Predicate) Apply(b *BoolBuilder) *BoolBuilder {
	return b.Filter(p.Filter...).MustNot(p.MustNot...)
}

// Filters translates f into engine clauses for surface s. The surface's
// always-on clauses are included.
func Filters(s Surface, f filter.Filter) Predicate {
	var p Predicate

	for _, t := range filter.Terms(&f) {
		name := s.Fields.Name(t.Field)
		clauses := make([]Query, len(t.Values))
		for i, v := range t.Values {
			clauses[i] = Term(name, s.Values.Value(t.Field, v))
		}
		p.Filter = append(p.Filter, AnyOf(clauses...))
	}

	if d := filter.NormalizeDomain(f.Domain); d != "" {
		p.Filter = append(p.Filter, Wildcard(s.URLField, "*"+EscapeWildcard(d)+"*"))
	}
	if r := f.PublishedDateRange; r != nil {
		p.Filter = append(p.Filter, Range(s.PublishedField, r.After, r.Before))
	}
	if r := f.AddedDateRange; r != nil {
		p.Filter = append(p.Filter, Range(s.AddedField, r.After, r.Before))
	}
	if f.ExcludeML && s.MLField != "" {
		p.MustNot = append(p.MustNot, Term(s.MLField, s.MLValue))
	}
	if f.ExcludeCollections && s.CollectionType != "" {
		p.MustNot = append(p.MustNot, Term(s.Fields.Name(filter.FieldContentType), s.CollectionType))
	}

	p.Filter = append(p.Filter, s.AlwaysOn...)
	return p
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// EscapeWildcard makes s match literally inside a wildcard pattern.
func EscapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
