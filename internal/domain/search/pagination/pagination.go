// Package pagination computes engine and relational pagination parameters from
// relay-style (first/after, last/before) or offset-style (limit/offset) input.
//
// Two cursor schemes exist and are not mutually parseable: sort-tuple cursors
// for engine search_after paging and bare-offset cursors for relational paging.
// A cursor is only meaningful when replayed with the filter and sort of the
// request that produced it; nothing here can verify that.
package pagination

import (
	"fmt"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
)

// Spec is the caller's pagination input. Empty cursor strings mean "absent".
type Spec struct {
	First  *int
	After  string
	Last   *int
	Before string
	Limit  *int
	Offset *int
}

// IsOffsetStyle reports whether only limit/offset fields are set.
func (s Spec) IsOffsetStyle() bool {
	cursorStyle := s.First != nil || s.Last != nil || s.After != "" || s.Before != ""
	return !cursorStyle && (s.Limit != nil || s.Offset != nil)
}

// Params are the computed pagination parameters for one query.
type Params struct {
	Size int
	// From is the absolute offset of the first row. Zero when SearchAfter is set.
	From int
	// SearchAfter holds the decoded sort tuple of the previous page's last hit.
	SearchAfter []string
	// Consumed is the number of hits before this page when SearchAfter is set.
	Consumed int
}

// PageInfo reports the position of a returned page.
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
}

// Engine computes pagination parameters and edge cursors for one cursor scheme.
type Engine interface {
	// Params computes size and position from spec.
	Params(spec Spec) (Params, error)
	// Cursor returns the cursor of the edge at index i of the returned page.
	Cursor(p Params, i int, sortValues []string) string
	// PageInfo derives next/previous flags from the returned count and total.
	PageInfo(p Params, returned, total int) PageInfo
}

// Limits bound page sizes. Callers cannot exceed MaxSize.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

func (l Limits) clamp(size int) int {
	if size <= 0 {
		size = l.DefaultSize
	}
	if l.MaxSize > 0 && size > l.MaxSize {
		size = l.MaxSize
	}
	return size
}

// firstDefined returns the first non-nil positive value.
func firstDefined(values ...*int) int {
	for _, v := range values {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

// SortTuple pages with engine search_after tuples.
//
// It is permissive: conflicting fields are not rejected here. Request types that
// disallow before/last must reject them before calling Params.
type SortTuple struct {
	Limits Limits
	Codec  TupleCodec
}

var _ Engine = SortTuple{}

// Params implements Engine. size = first ?? limit ?? last ?? default.
func (e SortTuple) Params(spec Spec) (Params, error) {
	p := Params{Size: e.Limits.clamp(firstDefined(spec.First, spec.Limit, spec.Last))}

	switch {
	case spec.After != "":
		consumed, values, err := e.Codec.Decode(spec.After)
		if err != nil {
			return Params{}, err
		}
		p.SearchAfter, p.Consumed = values, consumed
	case spec.Offset != nil && *spec.Offset > 0:
		p.From = *spec.Offset
	}
	return p, nil
}

// Cursor implements Engine.
func (e SortTuple) Cursor(p Params, i int, sortValues []string) string {
	return e.Codec.Encode(p.From+p.Consumed+i+1, sortValues)
}

// PageInfo implements Engine. The cursor carries the consumed count, so the
// position of a search_after page is known.
func (e SortTuple) PageInfo(p Params, returned, total int) PageInfo {
	if p.SearchAfter == nil {
		return offsetPageInfo(p, returned, total)
	}
	return PageInfo{
		HasNextPage:     p.Consumed+returned < total,
		HasPreviousPage: true,
	}
}

// Offset pages with bare-offset cursors.
type Offset struct {
	Limits Limits
	Codec  OffsetCodec
}

var _ Engine = Offset{}

// Params implements Engine.
func (e Offset) Params(spec Spec) (Params, error) {
	size := e.Limits.clamp(firstDefined(spec.First, spec.Last, spec.Limit))

	from, err := e.CalculateOffset(spec, size)
	if err != nil {
		return Params{}, err
	}
	size, err = e.CalculateSize(spec, size)
	if err != nil {
		return Params{}, err
	}
	return Params{Size: size, From: from}, nil
}

// CalculateOffset returns the absolute offset of the first requested row.
func (e Offset) CalculateOffset(spec Spec, size int) (int, error) {
	if spec.Before != "" && spec.After != "" {
		return 0, fmt.Errorf("before and after are mutually exclusive: %w", domain.ErrInvalidPagination)
	}
	if spec.Last != nil && spec.Before == "" {
		return 0, fmt.Errorf("last requires before: %w", domain.ErrInvalidPagination)
	}

	switch {
	case spec.After != "":
		n, err := e.Codec.Decode(spec.After)
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	case spec.Before != "":
		n, err := e.Codec.Decode(spec.Before)
		if err != nil {
			return 0, err
		}
		return max(0, n-size), nil
	case spec.Offset != nil:
		return max(0, *spec.Offset), nil
	default:
		return 0, nil
	}
}

// CalculateSize returns the effective page size. Paging backwards never
// requests rows at or past the before anchor.
func (e Offset) CalculateSize(spec Spec, size int) (int, error) {
	if spec.Before != "" && spec.After != "" {
		return 0, fmt.Errorf("before and after are mutually exclusive: %w", domain.ErrInvalidPagination)
	}
	if spec.Before != "" {
		n, err := e.Codec.Decode(spec.Before)
		if err != nil {
			return 0, err
		}
		return min(size, n), nil
	}
	return size, nil
}

// Cursor implements Engine.
func (e Offset) Cursor(p Params, i int, _ []string) string {
	return e.Codec.Encode(p.From + i)
}

// PageInfo implements Engine.
func (e Offset) PageInfo(p Params, returned, total int) PageInfo {
	return offsetPageInfo(p, returned, total)
}

func offsetPageInfo(p Params, returned, total int) PageInfo {
	return PageInfo{
		HasNextPage:     p.From+returned < total,
		HasPreviousPage: p.From > 0,
	}
}
