package dsl

import (
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
)

// Keyword builds full-text queries. An empty term yields a filter-only query.
type Keyword struct {
	surface      Surface
	req          request.Request
	params       pagination.Params
	defaultScore float64
}

var _ QueryBuilder = (*Keyword)(nil)

// NewKeyword creates a keyword builder for req on surface s.
func NewKeyword(s Surface, req request.Request, p pagination.Params, defaultScore float64) *Keyword {
	return &Keyword{surface: s, req: req, params: p, defaultScore: defaultScore}
}

// Surface returns the surface the builder targets.
func (k *Keyword) Surface() Surface { return k.surface }

// Search returns the escaped free text that remains after tag extraction.
func (k *Keyword) Search() string { return k.req.Values().Search }

// ToQuery implements QueryBuilder.
func (k *Keyword) ToQuery() (*Body, error) {
	b := Filters(k.surface, k.req.EffectiveFilter()).Apply(Bool())
	if text := k.Search(); text != "" {
		b.Must(SimpleQueryString(text, k.surface.TextFields))
	}
	return finish(k.surface, k.req, k.params, b.Build(), k.defaultScore)
}

// finish adds scoring, sort, paging and highlighting shared by both builders.
func finish(s Surface, req request.Request, p pagination.Params, q Query, defaultScore float64) (*Body, error) {
	if boosts := req.Boosts(); len(boosts) > 0 {
		q = FunctionScore(q, boosts, defaultScore)
	}

	fields, err := s.Sort.Resolve(req.Sort())
	if err != nil {
		return nil, fmt.Errorf("%s sort: %w: %w", s.Name, domain.ErrInvalidRequest, err)
	}

	hl, err := Highlights(s, req.Highlights())
	if err != nil {
		return nil, err
	}

	return &Body{
		Query:          q,
		Sort:           Sort(fields),
		Size:           p.Size,
		From:           p.From,
		SearchAfter:    p.SearchAfter,
		Highlight:      hl,
		TrackTotalHits: true,
		Source:         s.Source,
	}, nil
}
