package search

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/db/opensearch"
	"github.com/kailas-cloud/shelfsearch/internal/db/postgres"
	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/result"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
)

// --- Mocks ---

type engineCall struct {
	index   string
	body    *dsl.Body
	routing string
}

type mockEngine struct {
	searchFn func(index string, body *dsl.Body) (*opensearch.Response, error)
	calls    []engineCall
}

func (m *mockEngine) Search(_ context.Context, index string, body *dsl.Body, routing string) (*opensearch.Response, error) {
	m.calls = append(m.calls, engineCall{index: index, body: body, routing: routing})
	if m.searchFn == nil {
		return &opensearch.Response{}, nil
	}
	return m.searchFn(index, body)
}

func (m *mockEngine) last(t *testing.T) engineCall {
	t.Helper()
	if len(m.calls) == 0 {
		t.Fatal("engine was not called")
	}
	return m.calls[len(m.calls)-1]
}

type mockRelational struct {
	items []domain.LibraryItem
	total int
	err   error
	last  *postgres.Search
}

func (m *mockRelational) Search(_ context.Context, q *postgres.Search) ([]domain.LibraryItem, int, error) {
	m.last = q
	return m.items, m.total, m.err
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
	text   string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called = true
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockFlags struct {
	on bool
}

func (m mockFlags) IsEnabled(string, domain.Caller) bool { return m.on }

// indexedDoc is a stored corpus document with its engine sort tuple.
type indexedDoc struct {
	item domain.CorpusItem
	sort []string
}

// fakeIndex serves search_after pages over docs, which are in sort order.
// Topic terms found in the body restrict the docs to any of those topics.
func fakeIndex(t *testing.T, docs []indexedDoc) func(string, *dsl.Body) (*opensearch.Response, error) {
	t.Helper()
	return func(_ string, body *dsl.Body) (*opensearch.Response, error) {
		raw, err := json.Marshal(body.Query)
		if err != nil {
			t.Fatalf("marshal query: %v", err)
		}
		var matched []indexedDoc
		for _, d := range docs {
			if strings.Contains(string(raw), `"topic"`) &&
				!strings.Contains(string(raw), `{"term":{"topic":"`+d.item.Topic+`"}}`) {
				continue
			}
			matched = append(matched, d)
		}

		start := 0
		if body.SearchAfter != nil {
			for i, d := range matched {
				if slices.Equal(d.sort, body.SearchAfter) {
					start = i + 1
				}
			}
		}
		start = max(start, body.From)
		end := min(len(matched), start+body.Size)

		resp := &opensearch.Response{}
		resp.Hits.Total = result.Exact(len(matched))
		for _, d := range matched[min(start, end):end] {
			src, err := json.Marshal(d.item)
			if err != nil {
				t.Fatalf("marshal source: %v", err)
			}
			sortRaw := make([]json.RawMessage, len(d.sort))
			for i, v := range d.sort {
				if _, err := strconv.ParseFloat(v, 64); err == nil {
					sortRaw[i] = json.RawMessage(v)
					continue
				}
				sortRaw[i], _ = json.Marshal(v)
			}
			resp.Hits.Hits = append(resp.Hits.Hits, opensearch.Hit{
				ID:     d.item.CorpusID,
				Source: src,
				Sort:   sortRaw,
			})
		}
		return resp, nil
	}
}

// --- Helpers ---

func intPtr(n int) *int { return &n }

func newTestRequest(t *testing.T, term string, f filter.Filter, p pagination.Spec, highlights ...string) request.Request {
	t.Helper()
	r, err := request.New(term, f, nil, p, highlights, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func testRouterConfig() RouterConfig {
	return RouterConfig{
		Languages: map[string]Language{
			"en": {Index: "corpus_en", Embeddings: true},
			"de": {Index: "corpus_de"},
		},
		DefaultLanguage: "en",
		SemanticFlag:    "corpus.semantic",
		DefaultK:        30,
		DefaultScore:    1,
	}
}

func newTestService(engine Engine, relational Relational, router *Router) *Service {
	return New(Config{
		LibraryIndex: "list",
		Limits:       pagination.Limits{DefaultSize: 30, MaxSize: 100},
		DefaultScore: 1,
	}, engine, relational, router, zap.NewNop())
}
