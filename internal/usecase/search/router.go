package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
	"github.com/kailas-cloud/shelfsearch/internal/logger"
	"github.com/kailas-cloud/shelfsearch/internal/metrics"
)

// Fallback reasons reported in logs and metrics.
const (
	reasonEmbedError   = "embed_error"
	reasonEmptyVector  = "empty_vector"
	reasonFlagDisabled = "flag_disabled"
	reasonNoEmbeddings = "language_without_embeddings"
	reasonEmptyTerm    = "empty_term"
)

// Language is the corpus index serving one language.
type Language struct {
	Index      string
	Embeddings bool
}

// RouterConfig configures corpus routing.
type RouterConfig struct {
	// Languages is keyed by lower-case language code.
	Languages map[string]Language
	// DefaultLanguage is used when the request names none.
	DefaultLanguage string
	// FallbackIndex serves keyword search for unknown languages. Empty means
	// unknown languages fail.
	FallbackIndex string
	SemanticFlag  string
	// DisableFallback turns a failed embedding into ErrSemanticUnavailable
	// instead of a keyword search.
	DisableFallback bool
	DefaultK        int
	DefaultScore    float64
}

// Route is the routing decision for one corpus request.
type Route struct {
	Mode    mode.Mode
	Index   string
	Builder dsl.QueryBuilder
	// InvalidLanguage is set when the language had no mapping and the
	// fallback index serves the request.
	InvalidLanguage bool
}

// Router picks the keyword or semantic builder for corpus requests.
type Router struct {
	cfg    RouterConfig
	embed  Embedder
	flags  Flags
	logger *zap.Logger
}

// NewRouter creates a router. embed and flags may be nil, which disables
// semantic search.
func NewRouter(cfg RouterConfig, embed Embedder, flags Flags, logger *zap.Logger) *Router {
	return &Router{cfg: cfg, embed: embed, flags: flags, logger: logger}
}

// Route decides how req is served. The builder is chosen once: a keyword
// builder selected after a failed embedding is final for the request.
func (r *Router) Route(
	ctx context.Context, caller domain.Caller, language string,
	req request.Request, p pagination.Params,
) (Route, error) {
	log := logger.FromContext(ctx, r.logger)

	code := strings.ToLower(strings.TrimSpace(language))
	if code == "" {
		code = strings.ToLower(r.cfg.DefaultLanguage)
	}
	lang, ok := r.cfg.Languages[code]
	if !ok {
		log.Warn("invalid corpus language",
			zap.String("language", language),
			zap.String("index", r.cfg.FallbackIndex),
		)
		if r.cfg.FallbackIndex == "" {
			return Route{Mode: mode.InvalidLanguage}, fmt.Errorf("language %q: %w", language, domain.ErrInvalidLanguage)
		}
		return Route{
			Mode:            mode.Keyword,
			Index:           r.cfg.FallbackIndex,
			Builder:         r.keyword(req, p),
			InvalidLanguage: true,
		}, nil
	}

	keyword := Route{Mode: mode.Keyword, Index: lang.Index, Builder: r.keyword(req, p)}
	if reason := r.skipSemantic(lang, caller, req); reason != "" {
		log.Debug("semantic search skipped", zap.String("reason", reason))
		return keyword, nil
	}

	vector, reason := r.vector(ctx, log, req.Values().Plain)
	if reason != "" {
		metrics.SemanticFallbacksTotal.WithLabelValues(reason).Inc()
		if r.cfg.DisableFallback {
			return Route{Mode: mode.Semantic, Index: lang.Index}, fmt.Errorf("%s: %w", reason, domain.ErrSemanticUnavailable)
		}
		log.Info("semantic fallback to keyword", zap.String("reason", reason))
		return keyword, nil
	}

	return Route{
		Mode:    mode.Semantic,
		Index:   lang.Index,
		Builder: dsl.NewSemantic(dsl.Corpus, req, p, vector, r.cfg.DefaultK, r.cfg.DefaultScore),
	}, nil
}

func (r *Router) keyword(req request.Request, p pagination.Params) *dsl.Keyword {
	return dsl.NewKeyword(dsl.Corpus, req, p, r.cfg.DefaultScore)
}

// skipSemantic returns why semantic search is not attempted, or "".
func (r *Router) skipSemantic(lang Language, caller domain.Caller, req request.Request) string {
	switch {
	case !lang.Embeddings || r.embed == nil:
		return reasonNoEmbeddings
	case r.flags == nil || !r.flags.IsEnabled(r.cfg.SemanticFlag, caller):
		return reasonFlagDisabled
	case req.Values().Plain == "":
		return reasonEmptyTerm
	default:
		return ""
	}
}

// vector embeds text. Failures never surface as errors; they return a reason.
func (r *Router) vector(ctx context.Context, log *zap.Logger, text string) ([]float32, string) {
	res, err := r.embed.Embed(ctx, text)
	if err != nil {
		log.Warn("query embedding failed", zap.Error(err))
		return nil, reasonEmbedError
	}
	if len(res.Embedding) == 0 {
		return nil, reasonEmptyVector
	}
	return res.Embedding, ""
}
