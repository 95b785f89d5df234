package chi

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/boost"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/ordering"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
)

var validate = validator.New()

// SearchRequest is the JSON body of every search route.
type SearchRequest struct {
	Term       string       `json:"term" validate:"max=4096"`
	Language   string       `json:"language,omitempty" validate:"omitempty,max=16"`
	Filter     *FilterInput `json:"filter,omitempty"`
	Sort       *SortInput   `json:"sort,omitempty"`
	Pagination *PageInput   `json:"pagination,omitempty"`
	Highlights []string     `json:"highlights,omitempty" validate:"max=8,dive,required"`
	Boosts     []BoostInput `json:"boosts,omitempty" validate:"max=16,dive"`
}

// FilterInput narrows the searched items.
type FilterInput struct {
	Tags               []string        `json:"tags,omitempty" validate:"max=32"`
	Status             string          `json:"status,omitempty"`
	IsFavorite         *bool           `json:"isFavorite,omitempty"`
	ContentType        []string        `json:"contentType,omitempty" validate:"max=32"`
	Domain             string          `json:"domain,omitempty"`
	Author             string          `json:"author,omitempty"`
	Publisher          string          `json:"publisher,omitempty"`
	Topic              []string        `json:"topic,omitempty" validate:"max=32"`
	PublishedDateRange *DateRangeInput `json:"publishedDateRange,omitempty"`
	AddedDateRange     *DateRangeInput `json:"addedDateRange,omitempty"`
	ExcludeML          bool            `json:"excludeMl,omitempty"`
	ExcludeCollections bool            `json:"excludeCollections,omitempty"`
}

// DateRangeInput is a half-open [after, before) interval.
type DateRangeInput struct {
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// SortInput selects the sort key and direction.
type SortInput struct {
	SortBy    string `json:"sortBy" validate:"required,oneof=RELEVANCE CREATED_AT TIME_TO_READ PUBLISHED_AT"`
	SortOrder string `json:"sortOrder,omitempty" validate:"omitempty,oneof=ASC DESC"`
}

// PageInput carries either cursor or offset pagination.
type PageInput struct {
	First  *int   `json:"first,omitempty" validate:"omitempty,min=0"`
	After  string `json:"after,omitempty"`
	Last   *int   `json:"last,omitempty" validate:"omitempty,min=0"`
	Before string `json:"before,omitempty"`
	Limit  *int   `json:"limit,omitempty" validate:"omitempty,min=0"`
	Offset *int   `json:"offset,omitempty" validate:"omitempty,min=0"`
}

// BoostInput adjusts the score of documents where field equals value.
type BoostInput struct {
	Field     string  `json:"field" validate:"required"`
	Value     any     `json:"value"`
	Operation string  `json:"operation" validate:"required,oneof=ADD MULTIPLY"`
	Factor    float64 `json:"factor"`
}

// ToRequest validates the body and builds a search request.
func (in *SearchRequest) ToRequest() (request.Request, error) {
	if err := validateStruct(in); err != nil {
		return request.Request{}, err
	}

	f, err := in.Filter.toFilter()
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	var sort *ordering.Spec
	if in.Sort != nil {
		sort = &ordering.Spec{
			SortBy:    ordering.Key(in.Sort.SortBy),
			SortOrder: ordering.Order(in.Sort.SortOrder),
		}
	}

	var page pagination.Spec
	if p := in.Pagination; p != nil {
		page = pagination.Spec{
			First: p.First, After: p.After,
			Last: p.Last, Before: p.Before,
			Limit: p.Limit, Offset: p.Offset,
		}
	}

	boosts := make([]boost.Spec, len(in.Boosts))
	for i, b := range in.Boosts {
		boosts[i] = boost.Spec{
			Field:     b.Field,
			Value:     b.Value,
			Operation: boost.Operation(b.Operation),
			Factor:    b.Factor,
		}
	}

	req, err := request.New(in.Term, f, sort, page, in.Highlights, boosts)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return req, nil
}

func (in *FilterInput) toFilter() (filter.Filter, error) {
	if in == nil {
		return filter.Filter{}, nil
	}
	published, err := in.PublishedDateRange.toRange()
	if err != nil {
		return filter.Filter{}, fmt.Errorf("publishedDateRange: %w", err)
	}
	added, err := in.AddedDateRange.toRange()
	if err != nil {
		return filter.Filter{}, fmt.Errorf("addedDateRange: %w", err)
	}
	return filter.Filter{
		Tags:               in.Tags,
		Status:             in.Status,
		Favorite:           in.IsFavorite,
		ContentType:        in.ContentType,
		Domain:             in.Domain,
		Author:             in.Author,
		Publisher:          in.Publisher,
		Topic:              in.Topic,
		PublishedDateRange: published,
		AddedDateRange:     added,
		ExcludeML:          in.ExcludeML,
		ExcludeCollections: in.ExcludeCollections,
	}, nil
}

func (in *DateRangeInput) toRange() (*filter.DateRange, error) {
	if in == nil {
		return nil, nil
	}
	r, err := filter.NewDateRange(in.After, in.Before)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// validateStruct runs struct tags and reports the failing fields.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	fields := make([]string, len(ve))
	for i, e := range ve {
		fields[i] = fmt.Sprintf("%s %s", e.Namespace(), e.ActualTag())
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(fields, "; "))
}
