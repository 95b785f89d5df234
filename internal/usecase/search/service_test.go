package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/db/opensearch"
	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
)

var premium = domain.Caller{UserID: "7", Tier: domain.TierPremium}

func corpusDocs() []indexedDoc {
	return []indexedDoc{
		{item: domain.CorpusItem{CorpusID: "a", Title: "A", Topic: "EDUCATION"}, sort: []string{"1.5", "a"}},
		{item: domain.CorpusItem{CorpusID: "b", Title: "B", Topic: "POLITICS"}, sort: []string{"1.2", "b"}},
		{item: domain.CorpusItem{CorpusID: "c", Title: "C", Topic: "SPORTS"}, sort: []string{"1.2", "c"}},
		{item: domain.CorpusItem{CorpusID: "d", Title: "D", Topic: "EDUCATION"}, sort: []string{"0.9", "d"}},
	}
}

func newCorpusService(t *testing.T, docs []indexedDoc) (*Service, *mockEngine) {
	t.Helper()
	engine := &mockEngine{searchFn: fakeIndex(t, docs)}
	router := NewRouter(testRouterConfig(), &mockEmbedder{}, mockFlags{}, zap.NewNop())
	return newTestService(engine, &mockRelational{}, router), engine
}

func TestSearchCorpus_CursorPagination(t *testing.T) {
	svc, _ := newCorpusService(t, corpusDocs())
	ctx := context.Background()

	first, err := svc.SearchCorpus(ctx, premium, "en",
		newTestRequest(t, "news", filter.Filter{}, pagination.Spec{First: intPtr(3)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Edges) != 3 || first.TotalCount != 4 {
		t.Fatalf("page 1: %d edges, total %d", len(first.Edges), first.TotalCount)
	}
	if !first.PageInfo.HasNextPage || first.PageInfo.HasPreviousPage {
		t.Errorf("page 1 info = %+v", first.PageInfo)
	}

	second, err := svc.SearchCorpus(ctx, premium, "en",
		newTestRequest(t, "news", filter.Filter{}, pagination.Spec{First: intPtr(3), After: *first.PageInfo.EndCursor}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Edges) != 1 || second.TotalCount != 4 {
		t.Fatalf("page 2: %d edges, total %d", len(second.Edges), second.TotalCount)
	}
	if second.PageInfo.HasNextPage {
		t.Error("last page must not report a next page")
	}

	seen := map[string]int{}
	for _, e := range append(first.Edges, second.Edges...) {
		seen[e.Node.Item.CorpusID]++
	}
	for _, d := range corpusDocs() {
		if seen[d.item.CorpusID] != 1 {
			t.Errorf("doc %s seen %d times", d.item.CorpusID, seen[d.item.CorpusID])
		}
	}
	if first.Route != mode.Keyword {
		t.Errorf("route = %s", first.Route)
	}
}

func TestSearchCorpus_FullLastPage(t *testing.T) {
	docs := append(corpusDocs(),
		indexedDoc{item: domain.CorpusItem{CorpusID: "e", Title: "E", Topic: "SPORTS"}, sort: []string{"0.7", "e"}},
		indexedDoc{item: domain.CorpusItem{CorpusID: "f", Title: "F", Topic: "SCIENCE"}, sort: []string{"0.4", "f"}},
	)
	svc, _ := newCorpusService(t, docs)
	ctx := context.Background()

	first, err := svc.SearchCorpus(ctx, premium, "en",
		newTestRequest(t, "news", filter.Filter{}, pagination.Spec{First: intPtr(3)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.PageInfo.HasNextPage {
		t.Fatalf("page 1 info = %+v", first.PageInfo)
	}

	second, err := svc.SearchCorpus(ctx, premium, "en",
		newTestRequest(t, "news", filter.Filter{}, pagination.Spec{First: intPtr(3), After: *first.PageInfo.EndCursor}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Edges) != 3 || second.TotalCount != 6 {
		t.Fatalf("page 2: %d edges, total %d", len(second.Edges), second.TotalCount)
	}
	if second.PageInfo.HasNextPage {
		t.Error("a full last page must not report a next page")
	}
	if !second.PageInfo.HasPreviousPage {
		t.Error("page 2 must report a previous page")
	}
	if second.Edges[0].Node.Item.CorpusID != "d" {
		t.Errorf("page 2 starts at %s, want d", second.Edges[0].Node.Item.CorpusID)
	}
}

func TestSearchCorpus_TopicUnion(t *testing.T) {
	svc, _ := newCorpusService(t, corpusDocs())

	conn, err := svc.SearchCorpus(context.Background(), premium, "en",
		newTestRequest(t, "", filter.Filter{Topic: []string{"EDUCATION", "POLITICS"}}, pagination.Spec{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, e := range conn.Edges {
		ids = append(ids, e.Node.Item.CorpusID)
	}
	if strings.Join(ids, ",") != "a,b,d" {
		t.Errorf("ids = %v, want a,b,d", ids)
	}
}

func TestSearchCorpus_SemanticRoute(t *testing.T) {
	engine := &mockEngine{searchFn: fakeIndex(t, corpusDocs())}
	router := NewRouter(testRouterConfig(), &mockEmbedder{vec: []float32{0.5}}, mockFlags{on: true}, zap.NewNop())
	svc := newTestService(engine, &mockRelational{}, router)

	conn, err := svc.SearchCorpus(context.Background(), premium, "en",
		newTestRequest(t, "vampire", filter.Filter{}, pagination.Spec{First: intPtr(2)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.Route != mode.Semantic {
		t.Errorf("route = %s", conn.Route)
	}
	body, _ := json.Marshal(engine.last(t).body.Query)
	if !strings.Contains(string(body), `"knn":{"passage_embedding":{"k":2,"vector":[0.5]}}`) {
		t.Errorf("query = %s", body)
	}
}

func TestSearchCorpus_MalformedQueryDegrades(t *testing.T) {
	engine := &mockEngine{searchFn: func(string, *dsl.Body) (*opensearch.Response, error) {
		return nil, &opensearch.Error{Status: 400, Type: "search_phase_execution_exception", RootCause: "query_shard_exception"}
	}}
	router := NewRouter(testRouterConfig(), nil, nil, zap.NewNop())
	svc := newTestService(engine, &mockRelational{}, router)

	conn, err := svc.SearchCorpus(context.Background(), premium, "en",
		newTestRequest(t, `"unbalanced`, filter.Filter{}, pagination.Spec{}))
	if err != nil {
		t.Fatalf("malformed keyword query must degrade: %v", err)
	}
	if len(conn.Edges) != 0 || conn.TotalCount != 0 {
		t.Errorf("expected empty result, got %d edges", len(conn.Edges))
	}
	if conn.PageInfo.EndCursor != nil {
		t.Error("empty result must not carry cursors")
	}
}

func TestSearchCorpus_SemanticMalformedPropagates(t *testing.T) {
	engine := &mockEngine{searchFn: func(string, *dsl.Body) (*opensearch.Response, error) {
		return nil, &opensearch.Error{Status: 400, Type: "parse_exception"}
	}}
	router := NewRouter(testRouterConfig(), &mockEmbedder{vec: []float32{1}}, mockFlags{on: true}, zap.NewNop())
	svc := newTestService(engine, &mockRelational{}, router)

	_, err := svc.SearchCorpus(context.Background(), premium, "en",
		newTestRequest(t, "vampire", filter.Filter{}, pagination.Spec{}))
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Fatalf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestSearchCorpus_EngineFailurePropagates(t *testing.T) {
	engine := &mockEngine{searchFn: func(string, *dsl.Body) (*opensearch.Response, error) {
		return nil, &opensearch.Error{Status: 503, Type: "cluster_block_exception"}
	}}
	svc := newTestService(engine, &mockRelational{}, NewRouter(testRouterConfig(), nil, nil, zap.NewNop()))

	_, err := svc.SearchCorpus(context.Background(), premium, "en",
		newTestRequest(t, "vampire", filter.Filter{}, pagination.Spec{}))
	if !errors.Is(err, domain.ErrEngineFailure) {
		t.Fatalf("expected ErrEngineFailure, got %v", err)
	}
}

func TestSearchCorpus_InvalidLanguage(t *testing.T) {
	svc, engine := newCorpusService(t, corpusDocs())

	conn, err := svc.SearchCorpus(context.Background(), premium, "xx",
		newTestRequest(t, "vampire", filter.Filter{}, pagination.Spec{}))
	if !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
	if conn.Route != mode.InvalidLanguage {
		t.Errorf("route = %s", conn.Route)
	}
	if len(engine.calls) != 0 {
		t.Error("engine must not be called")
	}
}

func TestSearchCorpus_RejectsBackwardPagination(t *testing.T) {
	svc, engine := newCorpusService(t, corpusDocs())

	for _, spec := range []pagination.Spec{
		{Last: intPtr(2), Before: "MQ=="},
		{Before: "MQ=="},
	} {
		_, err := svc.SearchCorpus(context.Background(), premium, "en",
			newTestRequest(t, "x", filter.Filter{}, spec))
		if !errors.Is(err, domain.ErrInvalidPagination) {
			t.Errorf("spec %+v: expected ErrInvalidPagination, got %v", spec, err)
		}
	}
	if len(engine.calls) != 0 {
		t.Error("engine must not be called")
	}
}

func TestSearchCorpusPage_Offset(t *testing.T) {
	svc, engine := newCorpusService(t, corpusDocs())

	page, err := svc.SearchCorpusPage(context.Background(), premium, "en",
		newTestRequest(t, "x", filter.Filter{}, pagination.Spec{Limit: intPtr(2), Offset: intPtr(2)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.last(t).body.From != 2 {
		t.Errorf("from = %d", engine.last(t).body.From)
	}
	if len(page.Entries) != 2 || page.Entries[0].Item.CorpusID != "c" {
		t.Errorf("entries = %+v", page.Entries)
	}
	if page.Limit != 2 || page.Offset != 2 || page.TotalCount != 4 {
		t.Errorf("page = %d/%d/%d", page.Limit, page.Offset, page.TotalCount)
	}
}

func TestSearchCorpus_Highlights(t *testing.T) {
	engine := &mockEngine{searchFn: func(string, *dsl.Body) (*opensearch.Response, error) {
		resp := &opensearch.Response{}
		resp.Hits.Hits = []opensearch.Hit{{
			ID:        "a",
			Source:    json.RawMessage(`{"corpus_id":"a","title":"Go"}`),
			Highlight: map[string][]string{"title": {"<em>Go</em>"}},
		}}
		return resp, nil
	}}
	svc := newTestService(engine, &mockRelational{}, NewRouter(testRouterConfig(), nil, nil, zap.NewNop()))

	conn, err := svc.SearchCorpus(context.Background(), premium, "en",
		newTestRequest(t, "go", filter.Filter{}, pagination.Spec{}, "title", "excerpt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hl := conn.Edges[0].Node.Highlight
	if got := hl["title"]; len(got) != 1 || got[0] != "<em>Go</em>" {
		t.Errorf("title highlight = %v", got)
	}
	if v, ok := hl["excerpt"]; !ok || v != nil {
		t.Errorf("missing highlight must be present and nil, got %v (present %v)", v, ok)
	}
	if engine.last(t).body.Highlight == nil {
		t.Error("highlight spec must be sent")
	}
}

func TestSearchLibrary_FreeTierUsesRelational(t *testing.T) {
	rel := &mockRelational{items: []domain.LibraryItem{{ItemID: "1"}, {ItemID: "2"}}, total: 5}
	engine := &mockEngine{}
	svc := newTestService(engine, rel, nil)

	conn, err := svc.SearchLibrary(context.Background(), domain.Caller{UserID: "7", Tier: domain.TierFree},
		newTestRequest(t, "vampire", filter.Filter{}, pagination.Spec{First: intPtr(2)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engine.calls) != 0 {
		t.Error("free tier must not call the engine")
	}
	if rel.last == nil || rel.last.Params.Size != 2 {
		t.Fatalf("relational params = %+v", rel.last)
	}
	if !strings.Contains(rel.last.Rows.SQL, "ILIKE") {
		t.Errorf("rows sql = %s", rel.last.Rows.SQL)
	}

	end := *conn.PageInfo.EndCursor
	if n, err := (pagination.OffsetCodec{}).Decode(end); err != nil || n != 1 {
		t.Errorf("end cursor = %q (%d, %v), want offset 1", end, n, err)
	}
	if !conn.PageInfo.HasNextPage || conn.TotalCount != 5 {
		t.Errorf("info = %+v total %d", conn.PageInfo, conn.TotalCount)
	}
}

func TestSearchLibrary_FreeTierSupportsBefore(t *testing.T) {
	rel := &mockRelational{items: []domain.LibraryItem{{ItemID: "3"}, {ItemID: "4"}}, total: 10}
	svc := newTestService(&mockEngine{}, rel, nil)

	before := (pagination.OffsetCodec{}).Encode(5)
	_, err := svc.SearchLibrary(context.Background(), domain.Caller{UserID: "7"},
		newTestRequest(t, "", filter.Filter{}, pagination.Spec{Last: intPtr(2), Before: before}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel.last.Params.From != 3 || rel.last.Params.Size != 2 {
		t.Errorf("params = %+v, want from 3 size 2", rel.last.Params)
	}
}

func TestSearchLibrary_PremiumUsesEngine(t *testing.T) {
	engine := &mockEngine{}
	rel := &mockRelational{}
	svc := newTestService(engine, rel, nil)

	_, err := svc.SearchLibrary(context.Background(), premium,
		newTestRequest(t, "vampire", filter.Filter{UserID: "someone-else"}, pagination.Spec{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel.last != nil {
		t.Error("premium tier must not query the relational store")
	}
	call := engine.last(t)
	if call.index != "list" || call.routing != "7" {
		t.Errorf("call = %s routing %q", call.index, call.routing)
	}
	q, _ := json.Marshal(call.body.Query)
	if !strings.Contains(string(q), `{"term":{"user_id":"7"}}`) {
		t.Errorf("query must be scoped to the caller: %s", q)
	}
}

func TestSearchLibrary_Errors(t *testing.T) {
	tests := []struct {
		name    string
		caller  domain.Caller
		spec    pagination.Spec
		relErr  error
		wantErr error
	}{
		{"no user", domain.Caller{Tier: domain.TierPremium}, pagination.Spec{}, nil, domain.ErrInvalidRequest},
		{"premium before", premium, pagination.Spec{Before: "MQ=="}, nil, domain.ErrInvalidPagination},
		{"free last without before", domain.Caller{UserID: "7"}, pagination.Spec{Last: intPtr(2)}, nil, domain.ErrInvalidPagination},
		{"bad cursor", domain.Caller{UserID: "7"}, pagination.Spec{After: "!!"}, nil, domain.ErrInvalidCursor},
		{"store failure", domain.Caller{UserID: "7"}, pagination.Spec{}, domain.ErrRelationalFailure, domain.ErrRelationalFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockEngine{}, &mockRelational{err: tt.relErr}, nil)
			_, err := svc.SearchLibrary(context.Background(), tt.caller,
				newTestRequest(t, "x", filter.Filter{}, tt.spec))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSearchLibraryPage(t *testing.T) {
	t.Run("free tier", func(t *testing.T) {
		rel := &mockRelational{items: []domain.LibraryItem{{ItemID: "1"}}, total: 21}
		svc := newTestService(&mockEngine{}, rel, nil)

		page, err := svc.SearchLibraryPage(context.Background(), domain.Caller{UserID: "7"},
			newTestRequest(t, "x", filter.Filter{}, pagination.Spec{Limit: intPtr(10), Offset: intPtr(20)}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(rel.last.Rows.SQL, "OFFSET 20") {
			t.Errorf("rows sql = %s", rel.last.Rows.SQL)
		}
		if page.Offset != 20 || page.Limit != 10 || page.TotalCount != 21 || len(page.Entries) != 1 {
			t.Errorf("page = %+v", page)
		}
	})

	t.Run("premium", func(t *testing.T) {
		engine := &mockEngine{}
		svc := newTestService(engine, &mockRelational{}, nil)

		_, err := svc.SearchLibraryPage(context.Background(), premium,
			newTestRequest(t, "x", filter.Filter{}, pagination.Spec{Limit: intPtr(10), Offset: intPtr(20)}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		body := engine.last(t).body
		if body.From != 20 || body.Size != 10 || body.SearchAfter != nil {
			t.Errorf("body from=%d size=%d after=%v", body.From, body.Size, body.SearchAfter)
		}
	})
}
