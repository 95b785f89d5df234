package filter

import (
	"fmt"
	"strings"
	"time"
)

// MaxValuesPerField is the maximum number of values in a multi-valued predicate.
const MaxValuesPerField = 32

// Field is a backend-neutral filter field name.
type Field string

// Filter fields. Backends map them to column or document field names via FieldMap.
const (
	FieldUserID      Field = "userId"
	FieldStatus      Field = "status"
	FieldFavorite    Field = "favorite"
	FieldContentType Field = "contentType"
	FieldTags        Field = "tags"
	FieldAuthor      Field = "author"
	FieldPublisher   Field = "publisher"
	FieldTopic       Field = "topic"
	FieldDomain      Field = "domain"
	FieldPublishedAt Field = "publishedAt"
	FieldAddedAt     Field = "addedAt"
)

// Status vocabulary accepted from callers (case-insensitive).
var knownStatuses = map[string]struct{}{
	"unread":   {},
	"archived": {},
}

// DateRange bounds a timestamp: After is inclusive, Before is exclusive.
type DateRange struct {
	After  *time.Time
	Before *time.Time
}

// NewDateRange validates that at least one bound is set and that the bounds are ordered.
func NewDateRange(after, before *time.Time) (DateRange, error) {
	if after == nil && before == nil {
		return DateRange{}, fmt.Errorf("date range requires before or after")
	}
	if after != nil && before != nil && !after.Before(*before) {
		return DateRange{}, fmt.Errorf("date range after must be earlier than before")
	}
	return DateRange{After: after, Before: before}, nil
}

// Filter is the abstract filter of a search request. Distinct fields combine
// with AND; the values of a multi-valued field combine with OR.
// A nil Favorite means "not filtered"; a false Favorite must still apply.
type Filter struct {
	UserID             string
	Tags               []string
	Status             string
	Favorite           *bool
	ContentType        []string
	Domain             string
	Author             string
	Publisher          string
	Topic              []string
	PublishedDateRange *DateRange
	AddedDateRange     *DateRange
	ExcludeML          bool
	ExcludeCollections bool
}

// Validate checks value vocabularies and multi-value limits.
func (f *Filter) Validate() error {
	if f.Status != "" {
		if _, ok := knownStatuses[strings.ToLower(f.Status)]; !ok {
			return fmt.Errorf("unknown status %q", f.Status)
		}
	}
	multi := []struct {
		field  Field
		values []string
	}{
		{FieldTags, f.Tags},
		{FieldContentType, f.ContentType},
		{FieldTopic, f.Topic},
	}
	for _, m := range multi {
		if len(m.values) > MaxValuesPerField {
			return fmt.Errorf("too many %s values (max %d)", m.field, MaxValuesPerField)
		}
	}
	return nil
}

// WithTags returns a copy of f whose tag set also contains extra (OR semantics).
func (f Filter) WithTags(extra ...string) Filter {
	if len(extra) == 0 {
		return f
	}
	tags := make([]string, 0, len(f.Tags)+len(extra))
	tags = append(tags, f.Tags...)
	tags = append(tags, extra...)
	f.Tags = tags
	return f
}

// Term is a single equality predicate over one field. A term with several
// values matches when any of them matches.
type Term struct {
	Field  Field
	Values []any
}

// Terms returns the equality predicates of f in a stable field order.
// Empty strings and nil values are skipped; boolean false is kept.
func Terms(f *Filter) []Term {
	var terms []Term
	add := func(field Field, values ...any) {
		kept := make([]any, 0, len(values))
		for _, v := range values {
			if !isPresent(v) {
				continue
			}
			if s, ok := v.(string); ok {
				v = FormatValue(field, s)
			}
			kept = append(kept, v)
		}
		if len(kept) > 0 {
			terms = append(terms, Term{Field: field, Values: kept})
		}
	}

	add(FieldUserID, f.UserID)
	add(FieldStatus, f.Status)
	if f.Favorite != nil {
		add(FieldFavorite, *f.Favorite)
	}
	add(FieldContentType, toAny(f.ContentType)...)
	add(FieldTags, toAny(f.Tags)...)
	add(FieldAuthor, f.Author)
	add(FieldPublisher, f.Publisher)
	add(FieldTopic, toAny(f.Topic)...)

	return terms
}

// FormatValues normalizes values into the backend vocabulary for field.
func FormatValues(field Field, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, FormatValue(field, v))
	}
	return out
}

// FormatValue normalizes a single value. Status is case-folded to lower case.
func FormatValue(field Field, value string) string {
	if field == FieldStatus {
		return strings.ToLower(value)
	}
	return value
}

// NormalizeDomain strips the protocol and a leading "www." from a domain filter.
func NormalizeDomain(domain string) string {
	d := strings.TrimSpace(strings.ToLower(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimRight(d, "/")
}

func isPresent(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return true
	default:
		return true
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// FieldMap maps neutral fields to backend field names.
type FieldMap map[Field]string

// Name returns the backend name for field, defaulting to the neutral name.
func (m FieldMap) Name(field Field) string {
	if name, ok := m[field]; ok {
		return name
	}
	return string(field)
}

// ValueMap remaps neutral values into a backend vocabulary, e.g. status
// strings into integer codes. Unmapped values pass through unchanged.
type ValueMap map[Field]map[string]any

// Value returns the backend value for v of field.
func (m ValueMap) Value(field Field, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if mapped, ok := m[field][s]; ok {
		return mapped
	}
	return v
}
