package dsl

import (
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
)

// Semantic builds nearest-neighbour queries from a precomputed query vector.
//
// Filters are applied next to the knn clause, so the engine may return fewer
// than k matches even when more candidates exist. This is accepted behavior.
type Semantic struct {
	surface      Surface
	req          request.Request
	params       pagination.Params
	vector       []float32
	k            int
	defaultScore float64
}

var _ QueryBuilder = (*Semantic)(nil)

// NewSemantic creates a semantic builder. k = first ?? limit ?? defaultK, with
// caller values capped at the clamped page size p.Size.
func NewSemantic(
	s Surface, req request.Request, p pagination.Params,
	vector []float32, defaultK int, defaultScore float64,
) *Semantic {
	return &Semantic{
		surface:      s,
		req:          req,
		params:       p,
		vector:       vector,
		k:            KNNSize(req.Pagination(), defaultK, p.Size),
		defaultScore: defaultScore,
	}
}

// K returns the number of neighbours requested.
func (s *Semantic) K() int { return s.k }

// ToQuery implements QueryBuilder.
func (s *Semantic) ToQuery() (*Body, error) {
	if s.surface.VectorField == "" {
		return nil, fmt.Errorf("%s has no vector field: %w", s.surface.Name, domain.ErrSemanticUnavailable)
	}
	if len(s.vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrSemanticUnavailable)
	}

	knn := Query{"knn": Query{s.surface.VectorField: Query{
		"vector": s.vector,
		"k":      s.k,
	}}}
	b := Filters(s.surface, s.req.EffectiveFilter()).Apply(Bool().Must(knn))

	return finish(s.surface, s.req, s.params, b.Build(), s.defaultScore)
}

// KNNSize returns first ?? limit ?? def. A positive ceiling caps first and limit.
func KNNSize(spec pagination.Spec, def, ceiling int) int {
	for _, v := range []*int{spec.First, spec.Limit} {
		if v != nil && *v > 0 {
			if ceiling > 0 && *v > ceiling {
				return ceiling
			}
			return *v
		}
	}
	return def
}
