package request

import (
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain/search/boost"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/ordering"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/term"
)

// Search parameter limits.
const (
	// MaxTermLength is the maximum allowed raw search term length.
	MaxTermLength      = 4096
	MaxHighlightFields = 8
)

// Request is a validated search request. It is built per call and never persisted.
type Request struct {
	term       string
	filter     filter.Filter
	sort       *ordering.Spec
	pagination pagination.Spec
	highlights []string
	boosts     []boost.Spec
}

// New validates search parameters. An empty term is valid: the query becomes filter-only.
func New(
	rawTerm string,
	f filter.Filter,
	sort *ordering.Spec,
	page pagination.Spec,
	highlights []string,
	boosts []boost.Spec,
) (Request, error) {
	if len(rawTerm) > MaxTermLength {
		return Request{}, fmt.Errorf("term too long (max %d chars)", MaxTermLength)
	}
	if err := f.Validate(); err != nil {
		return Request{}, fmt.Errorf("filter: %w", err)
	}
	if sort != nil {
		if err := sort.Validate(); err != nil {
			return Request{}, fmt.Errorf("sort: %w", err)
		}
	}
	if (page.First != nil && *page.First < 0) || (page.Last != nil && *page.Last < 0) ||
		(page.Limit != nil && *page.Limit < 0) || (page.Offset != nil && *page.Offset < 0) {
		return Request{}, fmt.Errorf("pagination sizes must not be negative")
	}
	if len(highlights) > MaxHighlightFields {
		return Request{}, fmt.Errorf("too many highlight fields (max %d)", MaxHighlightFields)
	}
	for _, h := range highlights {
		if h == "" {
			return Request{}, fmt.Errorf("highlight field name is required")
		}
	}
	if err := boost.ValidateAll(boosts); err != nil {
		return Request{}, err
	}

	return Request{
		term:       rawTerm,
		filter:     f,
		sort:       sort,
		pagination: page,
		highlights: highlights,
		boosts:     boosts,
	}, nil
}

// Term returns the raw search term as typed by the caller.
func (r *Request) Term() string { return r.term }

// Values extracts tags from the term and escapes the remainder.
func (r *Request) Values() term.Values { return term.Extract(r.term) }

// Filter returns the caller's filter without term-derived tags.
func (r *Request) Filter() filter.Filter { return r.filter }

// EffectiveFilter returns the filter with tags extracted from the term added.
func (r *Request) EffectiveFilter() filter.Filter {
	return r.filter.WithTags(r.Values().Tags...)
}

// Sort returns the sort spec (nil means relevance).
func (r *Request) Sort() *ordering.Spec { return r.sort }

// Pagination returns the pagination input.
func (r *Request) Pagination() pagination.Spec { return r.pagination }

// Highlights returns the fields that should be highlighted.
func (r *Request) Highlights() []string { return r.highlights }

// Boosts returns the functional boost rules.
func (r *Request) Boosts() []boost.Spec { return r.boosts }

// WithUser returns a copy of r restricted to userID.
func (r Request) WithUser(userID string) Request {
	r.filter.UserID = userID
	return r
}
