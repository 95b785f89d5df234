package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding activity of one HTTP request. The handler
// installs it, the embedder chain records into it and the handler reports it
// in response headers. A request embeds at most once, so it is not locked.
type EmbeddingUsage struct {
	PromptTokens int
	TotalTokens  int
	// Calls counts embeddings, cache hits included.
	Calls     int
	CacheHits int
}

// NewContextWithUsage returns a context with an empty usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector of ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record adds one embedding result. Safe on a nil collector.
func (u *EmbeddingUsage) Record(res EmbeddingResult) {
	if u == nil {
		return
	}
	u.Calls++
	u.PromptTokens += res.PromptTokens
	u.TotalTokens += res.TotalTokens
	if res.Cached {
		u.CacheHits++
	}
}

// Used reports whether anything was embedded.
func (u *EmbeddingUsage) Used() bool { return u != nil && u.Calls > 0 }
