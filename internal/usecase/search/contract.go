package search

import (
	"context"

	"github.com/kailas-cloud/shelfsearch/internal/db/opensearch"
	"github.com/kailas-cloud/shelfsearch/internal/db/postgres"
	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
)

// Engine executes compiled query bodies against the document-search engine.
type Engine interface {
	Search(ctx context.Context, index string, body *dsl.Body, routing string) (*opensearch.Response, error)
}

// Relational executes free-tier substring searches.
type Relational interface {
	Search(ctx context.Context, q *postgres.Search) ([]domain.LibraryItem, int, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Flags evaluates feature flags per caller.
type Flags interface {
	IsEnabled(name string, caller domain.Caller) bool
}
