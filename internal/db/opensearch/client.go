// Package opensearch executes compiled search bodies against the document-search engine.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	osgo "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/domain/search/result"
	"github.com/kailas-cloud/shelfsearch/internal/engine/dsl"
	"github.com/kailas-cloud/shelfsearch/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// Config holds engine connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client executes search bodies against the engine.
type Client struct {
	client  *osgo.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an engine client.
func New(cfg *Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid engine url %q", cfg.URL)
	}

	client, err := osgo.NewClient(osgo.Config{
		Addresses: []string{u.String()},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{client: client, timeout: timeout, logger: logger}, nil
}

// Response is a search response.
type Response struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     Hits `json:"hits"`
}

// Hits is the hits section of a response.
type Hits struct {
	Total result.Total `json:"total"`
	Hits  []Hit        `json:"hits"`
}

// Hit is one matched document.
type Hit struct {
	Index     string              `json:"_index"`
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Sort      []json.RawMessage   `json:"sort"`
	Highlight map[string][]string `json:"highlight"`
}

// SortValues returns the sort values as strings for sort-tuple cursors.
// Numbers keep their exact JSON text.
func (h *Hit) SortValues() []string {
	out := make([]string, len(h.Sort))
	for i, raw := range h.Sort {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[i] = s
			continue
		}
		out[i] = string(raw)
	}
	return out
}

// Search executes body against index. routing may be empty.
func (c *Client) Search(ctx context.Context, index string, body *dsl.Body, routing string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req := &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    bytes.NewReader(payload),
	}
	if routing != "" {
		req.Params.Routing = []string{routing}
	}

	start := time.Now()
	var resp Response
	err = c.do(ctx, req, &resp)
	outcome := "success"
	if err != nil {
		outcome = "error"
		var engErr *Error
		if errors.As(err, &engErr) && engErr.Malformed() {
			outcome = "malformed"
		}
	}
	metrics.EngineRequestDuration.WithLabelValues(index, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Error("engine search failed",
			zap.String("index", index),
			zap.ByteString("query_body", payload),
			zap.Error(err),
		)
		return nil, err
	}
	return &resp, nil
}

// Ping checks that the engine answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, &opensearchapi.PingReq{}, nil)
}

// do performs req and decodes a successful body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req osgo.Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.Do(ctx, req, out)
	if res != nil && res.Body != nil {
		defer res.Body.Close()
	}
	switch {
	case res != nil && res.IsError():
		return decodeError(res)
	case err != nil && res != nil:
		return &Error{Status: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	case err != nil:
		return &Error{Err: err}
	}

	if out == nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
	}
	return nil
}

func decodeError(res *osgo.Response) error {
	e := &Error{Status: res.StatusCode}

	var raw []byte
	if res.Body != nil {
		raw, _ = io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	}

	var parsed osgo.StructError
	if json.Unmarshal(raw, &parsed) == nil && parsed.Err.Type != "" {
		e.Type = parsed.Err.Type
		e.Reason = parsed.Err.Reason
		if len(parsed.Err.RootCause) > 0 {
			e.RootCause = parsed.Err.RootCause[0].Type
		}
		return e
	}
	e.Type = http.StatusText(res.StatusCode)
	e.Reason = strings.TrimSpace(string(raw))
	return e
}
