package opensearch

import (
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
)

// malformedTypes are engine error types caused by the query text itself.
var malformedTypes = map[string]struct{}{
	"parse_exception":                  {},
	"query_shard_exception":            {},
	"query_parsing_exception":          {},
	"x_content_parse_exception":        {},
	"search_phase_execution_exception": {},
}

// Error is an engine failure. It unwraps to domain.ErrMalformedQuery when the
// engine rejected the query syntax and to domain.ErrEngineFailure otherwise.
type Error struct {
	Status int
	Type   string
	Reason string
	// RootCause is the type of the first root cause, if any.
	RootCause string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: %v", e.Err)
	}
	return fmt.Sprintf("engine %d %s: %s", e.Status, e.Type, e.Reason)
}

// Malformed reports whether the engine rejected the query as unparsable.
func (e *Error) Malformed() bool {
	if e.Status != 400 {
		return false
	}
	if _, ok := malformedTypes[e.RootCause]; ok {
		return true
	}
	_, ok := malformedTypes[e.Type]
	return ok && e.RootCause == ""
}

func (e *Error) Unwrap() []error {
	kind := domain.ErrEngineFailure
	if e.Malformed() {
		kind = domain.ErrMalformedQuery
	}
	if e.Err != nil {
		return []error{kind, e.Err}
	}
	return []error{kind}
}
