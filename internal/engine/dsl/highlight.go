package dsl

import (
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
)

// Long field fragment settings.
const (
	longFragmentSize      = 150
	longNumberOfFragments = 3
)

// HighlightSpec is the highlight section of a body.
type HighlightSpec struct {
	PreTags  []string                  `json:"pre_tags"`
	PostTags []string                  `json:"post_tags"`
	Fields   map[string]HighlightField `json:"fields"`
}

// HighlightField configures one highlighted field.
type HighlightField struct {
	NumberOfFragments int    `json:"number_of_fragments"`
	FragmentSize      int    `json:"fragment_size,omitempty"`
	Order             string `json:"order,omitempty"`
}

// Highlights builds the highlight section for the requested fields of s.
// Returns nil when no field is requested.
func Highlights(s Surface, fields []string) (*HighlightSpec, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	spec := &HighlightSpec{
		PreTags:  []string{"<em>"},
		PostTags: []string{"</em>"},
		Fields:   make(map[string]HighlightField, len(fields)),
	}
	for _, name := range fields {
		kind, ok := s.Highlights[name]
		if !ok {
			return nil, fmt.Errorf("field %q cannot be highlighted on %s: %w", name, s.Name, domain.ErrInvalidRequest)
		}
		switch kind {
		case Long:
			spec.Fields[name] = HighlightField{
				NumberOfFragments: longNumberOfFragments,
				FragmentSize:      longFragmentSize,
				Order:             "score",
			}
		default:
			spec.Fields[name] = HighlightField{NumberOfFragments: 0}
		}
	}
	return spec, nil
}
