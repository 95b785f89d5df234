package dsl

import (
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/ordering"
)

// HighlightKind selects the highlight style of a field.
type HighlightKind int

// Highlight kinds.
const (
	// Short fields are highlighted whole.
	Short HighlightKind = iota
	// Long fields return several score-ordered fragments.
	Long
)

// Surface is the static per-index configuration of a searchable document set.
type Surface struct {
	Name   string
	Fields filter.FieldMap
	Values filter.ValueMap
	// URLField receives the domain wildcard filter.
	URLField       string
	PublishedField string
	AddedField     string
	// MLField and MLValue identify machine-curated documents for excludeML.
	MLField string
	MLValue string
	// CollectionType is the content type value of collection documents.
	CollectionType string
	// AlwaysOn clauses are applied to every query on this surface.
	AlwaysOn []Query
	Sort     ordering.Mapping
	// TextFields are the weighted full-text fields.
	TextFields  []string
	Highlights  map[string]HighlightKind
	VectorField string
	Source      []string
}

// Library is the per-user saved item index.
var Library = Surface{
	Name: "library",
	Fields: filter.FieldMap{
		filter.FieldUserID:      "user_id",
		filter.FieldStatus:      "status",
		filter.FieldFavorite:    "favorite",
		filter.FieldContentType: "content_type",
		filter.FieldTags:        "tags.keyword",
		filter.FieldAuthor:      "authors.keyword",
		filter.FieldPublisher:   "publisher.keyword",
		filter.FieldTopic:       "topic",
	},
	URLField:       "url",
	PublishedField: "date_published",
	AddedField:     "date_added",
	MLField:        "curation_source",
	MLValue:        "ML",
	CollectionType: "collection",
	Sort: ordering.Mapping{
		Fields: map[ordering.Key]string{
			ordering.Relevance:   "_score",
			ordering.CreatedAt:   "date_added",
			ordering.TimeToRead:  "word_count",
			ordering.PublishedAt: "date_published",
		},
		TieBreaker: "item_id",
	},
	TextFields: []string{"title^3", "url^2", "full_text"},
	Highlights: map[string]HighlightKind{
		"title":     Short,
		"url":       Short,
		"full_text": Long,
	},
	Source: []string{
		"item_id", "user_id", "title", "url", "excerpt", "status", "favorite",
		"content_type", "tags", "word_count", "date_added", "date_published",
	},
}

// Corpus is the curated content index. Collection documents are visible only
// once published or recommended; other documents are unaffected.
var Corpus = Surface{
	Name: "corpus",
	Fields: filter.FieldMap{
		filter.FieldStatus:      "status",
		filter.FieldContentType: "content_type",
		filter.FieldTags:        "tags.keyword",
		filter.FieldAuthor:      "authors.keyword",
		filter.FieldPublisher:   "publisher.keyword",
		filter.FieldTopic:       "topic",
	},
	URLField:       "url",
	PublishedField: "published_at",
	AddedField:     "created_at",
	MLField:        "curation_source",
	MLValue:        "ML",
	CollectionType: "collection",
	AlwaysOn: []Query{
		collectionVisibility("content_type", "collection", "moderation_status", "published", "recommendation"),
	},
	Sort: ordering.Mapping{
		Fields: map[ordering.Key]string{
			ordering.Relevance:   "_score",
			ordering.CreatedAt:   "created_at",
			ordering.TimeToRead:  "time_to_read",
			ordering.PublishedAt: "published_at",
		},
		TieBreaker: "corpus_id",
	},
	TextFields: []string{"title^3", "excerpt^2", "publisher", "extracted_content"},
	Highlights: map[string]HighlightKind{
		"title":             Short,
		"excerpt":           Short,
		"publisher":         Short,
		"extracted_content": Long,
	},
	VectorField: "passage_embedding",
	Source: []string{
		"corpus_id", "url", "title", "excerpt", "publisher", "authors", "language",
		"topic", "content_type", "image_url", "time_to_read", "published_at", "created_at",
	},
}

// collectionVisibility keeps non-collection documents and collection documents
// in one of the visible states.
func collectionVisibility(typeField, collection, stateField string, states ...string) Query {
	visible := make([]any, len(states))
	for i, s := range states {
		visible[i] = s
	}
	return Bool().Should(
		Bool().MustNot(Term(typeField, collection)).Build(),
		Bool().Filter(
			Term(typeField, collection),
			Query{"terms": Query{stateField: visible}},
		).Build(),
	).MinimumShouldMatch(1).Build()
}
