// Package search serves library and corpus searches. Library search runs on
// the relational store for free callers and on the engine for premium callers.
// Corpus search always runs on the engine, routed by language.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/db/opensearch"
	"github.com/kailas-cloud/shelfsearch/internal/db/postgres"
	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/result"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
	"github.com/kailas-cloud/shelfsearch/internal/logger"
	"github.com/kailas-cloud/shelfsearch/internal/metrics"
)

// Hit types returned by the service.
type (
	LibraryHit = result.Hit[domain.LibraryItem]
	CorpusHit  = result.Hit[domain.CorpusItem]
)

// CorpusConnection is a corpus connection with its routing outcome.
type CorpusConnection struct {
	result.Connection[CorpusHit]
	Route           mode.Mode `json:"route"`
	InvalidLanguage bool      `json:"invalidLanguage,omitempty"`
}

// CorpusPage is a corpus page with its routing outcome.
type CorpusPage struct {
	result.Page[CorpusHit]
	Route           mode.Mode `json:"route"`
	InvalidLanguage bool      `json:"invalidLanguage,omitempty"`
}

// Config configures the service.
type Config struct {
	LibraryIndex string
	Limits       pagination.Limits
	DefaultScore float64
}

// Service executes searches.
type Service struct {
	cfg        Config
	engine     Engine
	relational Relational
	router     *Router
	tuple      pagination.SortTuple
	offset     pagination.Offset
	logger     *zap.Logger
}

// New creates a search service.
func New(cfg Config, engine Engine, relational Relational, router *Router, logger *zap.Logger) *Service {
	return &Service{
		cfg:        cfg,
		engine:     engine,
		relational: relational,
		router:     router,
		tuple:      pagination.SortTuple{Limits: cfg.Limits},
		offset:     pagination.Offset{Limits: cfg.Limits},
		logger:     logger,
	}
}

// SearchLibrary searches the caller's library with cursor pagination.
func (s *Service) SearchLibrary(
	ctx context.Context, caller domain.Caller, req request.Request,
) (conn result.Connection[LibraryHit], err error) {
	if caller.UserID == "" {
		return conn, fmt.Errorf("library search requires a user: %w", domain.ErrInvalidRequest)
	}
	req = req.WithUser(caller.UserID)

	var eng pagination.Engine = s.tuple
	route := mode.Keyword
	if !caller.IsPremium() {
		eng, route = s.offset, mode.Relational
	}
	defer func() { observe("library", route, err) }()

	var p pagination.Params
	if route == mode.Relational {
		p, err = s.offset.Params(req.Pagination())
	} else {
		p, err = s.tupleParams(req.Pagination())
	}
	if err != nil {
		return conn, err
	}

	var (
		rows  []result.Row[LibraryHit]
		total result.Total
	)
	if route == mode.Relational {
		rows, total, err = s.searchRelational(ctx, req, p)
	} else {
		rows, total, err = s.searchLibraryEngine(ctx, caller, req, p)
	}
	if err != nil {
		return conn, err
	}
	return result.NewConnection(eng, p, rows, total), nil
}

// SearchLibraryPage searches the caller's library with offset pagination.
func (s *Service) SearchLibraryPage(
	ctx context.Context, caller domain.Caller, req request.Request,
) (page result.Page[LibraryHit], err error) {
	if caller.UserID == "" {
		return page, fmt.Errorf("library search requires a user: %w", domain.ErrInvalidRequest)
	}
	req = req.WithUser(caller.UserID)

	route := mode.Keyword
	if !caller.IsPremium() {
		route = mode.Relational
	}
	defer func() { observe("library", route, err) }()

	p, err := s.offset.Params(req.Pagination())
	if err != nil {
		return page, err
	}

	var (
		rows  []result.Row[LibraryHit]
		total result.Total
	)
	if route == mode.Relational {
		rows, total, err = s.searchRelational(ctx, req, p)
	} else {
		rows, total, err = s.searchLibraryEngine(ctx, caller, req, p)
	}
	if err != nil {
		return page, err
	}
	return result.NewPage(p, rows, total), nil
}

// SearchCorpus searches the corpus index of language with cursor pagination.
func (s *Service) SearchCorpus(
	ctx context.Context, caller domain.Caller, language string, req request.Request,
) (CorpusConnection, error) {
	p, err := s.tupleParams(req.Pagination())
	if err != nil {
		observe("corpus", mode.Keyword, err)
		return CorpusConnection{}, err
	}
	route, rows, total, err := s.searchCorpus(ctx, caller, language, req, p)
	observe("corpus", route.Mode, err)
	if err != nil {
		return CorpusConnection{Route: route.Mode}, err
	}
	return CorpusConnection{
		Connection:      result.NewConnection(s.tuple, p, rows, total),
		Route:           route.Mode,
		InvalidLanguage: route.InvalidLanguage,
	}, nil
}

// SearchCorpusPage searches the corpus index of language with offset pagination.
func (s *Service) SearchCorpusPage(
	ctx context.Context, caller domain.Caller, language string, req request.Request,
) (CorpusPage, error) {
	p, err := s.offset.Params(req.Pagination())
	if err != nil {
		observe("corpus", mode.Keyword, err)
		return CorpusPage{}, err
	}
	route, rows, total, err := s.searchCorpus(ctx, caller, language, req, p)
	observe("corpus", route.Mode, err)
	if err != nil {
		return CorpusPage{Route: route.Mode}, err
	}
	return CorpusPage{
		Page:            result.NewPage(p, rows, total),
		Route:           route.Mode,
		InvalidLanguage: route.InvalidLanguage,
	}, nil
}

// tupleParams rejects backward pagination, which search_after cannot serve.
func (s *Service) tupleParams(spec pagination.Spec) (pagination.Params, error) {
	if spec.Before != "" || spec.Last != nil {
		return pagination.Params{}, fmt.Errorf("before/last are not supported here: %w", domain.ErrInvalidPagination)
	}
	return s.tuple.Params(spec)
}

func (s *Service) searchRelational(
	ctx context.Context, req request.Request, p pagination.Params,
) ([]result.Row[LibraryHit], result.Total, error) {
	if s.relational == nil {
		return nil, result.Total{}, fmt.Errorf("relational store not configured: %w", domain.ErrRelationalFailure)
	}
	q, err := postgres.Build(req, p)
	if err != nil {
		return nil, result.Total{}, err
	}
	items, total, err := s.relational.Search(ctx, q)
	if err != nil {
		return nil, result.Total{}, fmt.Errorf("relational search: %w", err)
	}
	rows := make([]result.Row[LibraryHit], len(items))
	for i, item := range items {
		rows[i] = result.Row[LibraryHit]{Node: LibraryHit{Item: item}}
	}
	return rows, result.Exact(total), nil
}

func (s *Service) searchLibraryEngine(
	ctx context.Context, caller domain.Caller, req request.Request, p pagination.Params,
) ([]result.Row[LibraryHit], result.Total, error) {
	b := dsl.NewKeyword(dsl.Library, req, p, s.cfg.DefaultScore)
	return execute[domain.LibraryItem](ctx, s, s.cfg.LibraryIndex, b, caller.UserID, req)
}

func (s *Service) searchCorpus(
	ctx context.Context, caller domain.Caller, language string, req request.Request, p pagination.Params,
) (Route, []result.Row[CorpusHit], result.Total, error) {
	route, err := s.router.Route(ctx, caller, language, req, p)
	if err != nil {
		return route, nil, result.Total{}, err
	}
	rows, total, err := execute[domain.CorpusItem](ctx, s, route.Index, route.Builder, "", req)
	return route, rows, total, err
}

// execute compiles b, runs it and normalizes the hits. Only keyword queries
// degrade a malformed query to an empty result.
func execute[T any](
	ctx context.Context, s *Service, index string, b dsl.QueryBuilder, routing string, req request.Request,
) ([]result.Row[result.Hit[T]], result.Total, error) {
	body, err := b.ToQuery()
	if err != nil {
		return nil, result.Total{}, err
	}

	resp, err := s.engine.Search(ctx, index, body, routing)
	if err != nil {
		if _, keyword := b.(*dsl.Keyword); keyword && errors.Is(err, domain.ErrMalformedQuery) {
			logger.FromContext(ctx, s.logger).Warn("malformed query degraded to empty result",
				zap.String("index", index),
				zap.String("term", req.Term()),
			)
			return []result.Row[result.Hit[T]]{}, result.Exact(0), nil
		}
		return nil, result.Total{}, fmt.Errorf("engine search %s: %w", index, err)
	}

	rows, err := normalize[T](resp.Hits.Hits, req.Highlights())
	if err != nil {
		return nil, result.Total{}, err
	}
	return rows, resp.Hits.Total, nil
}

// normalize decodes hit sources and extracts the requested highlights.
func normalize[T any](hits []opensearch.Hit, highlights []string) ([]result.Row[result.Hit[T]], error) {
	rows := make([]result.Row[result.Hit[T]], len(hits))
	for i := range hits {
		h := &hits[i]
		var item T
		if len(h.Source) > 0 {
			if err := json.Unmarshal(h.Source, &item); err != nil {
				return nil, fmt.Errorf("decode hit %s: %w: %w", h.ID, domain.ErrEngineFailure, err)
			}
		}
		rows[i] = result.Row[result.Hit[T]]{
			Node: result.Hit[T]{
				Item:      item,
				Highlight: result.ExtractHighlight(highlights, h.Highlight),
				Score:     h.Score,
			},
			SortValues: h.SortValues(),
		}
	}
	return rows, nil
}

func observe(surface string, route mode.Mode, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidLanguage):
		status = "invalid_language"
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidPagination),
		errors.Is(err, domain.ErrInvalidCursor):
		status = "invalid"
	default:
		status = "error"
	}
	if route == "" {
		route = mode.InvalidLanguage
	}
	metrics.SearchRequestsTotal.WithLabelValues(surface, string(route), status).Inc()
}
