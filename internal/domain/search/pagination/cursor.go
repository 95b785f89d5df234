package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
)

// TupleSeparator joins the fields of a sort-tuple cursor.
const TupleSeparator = "|~|"

// TupleCodec encodes search_after cursors: the number of hits consumed up to and
// including the edge, followed by that hit's sort values.
type TupleCodec struct{}

// Encode returns base64(join([consumed, values...], TupleSeparator)).
func (TupleCodec) Encode(consumed int, values []string) string {
	fields := append([]string{strconv.Itoa(consumed)}, values...)
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(fields, TupleSeparator)))
}

// Decode is the inverse of Encode.
func (TupleCodec) Decode(cursor string) (int, []string, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, nil, fmt.Errorf("decode sort cursor: %w: %w", domain.ErrInvalidCursor, err)
	}
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("empty sort cursor: %w", domain.ErrInvalidCursor)
	}
	fields := strings.Split(string(raw), TupleSeparator)
	if len(fields) < 2 {
		return 0, nil, fmt.Errorf("sort cursor has no sort values: %w", domain.ErrInvalidCursor)
	}
	consumed, err := strconv.Atoi(fields[0])
	if err != nil || consumed < 1 {
		return 0, nil, fmt.Errorf("sort cursor position %q: %w", fields[0], domain.ErrInvalidCursor)
	}
	return consumed, fields[1:], nil
}

// OffsetCodec encodes a bare result offset (relational and legacy cursors).
type OffsetCodec struct{}

// Encode returns base64 of the decimal offset.
func (OffsetCodec) Encode(n int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(n)))
}

// Decode parses an offset cursor back to an integer.
func (OffsetCodec) Decode(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("decode offset cursor: %w: %w", domain.ErrInvalidCursor, err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse offset cursor %q: %w: %w", raw, domain.ErrInvalidCursor, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative offset cursor: %w", domain.ErrInvalidCursor)
	}
	return n, nil
}
