package filter

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func findTerm(terms []Term, f Field) (Term, bool) {
	for _, t := range terms {
		if t.Field == f {
			return t, true
		}
	}
	return Term{}, false
}

func TestTerms_FavoriteFalseKeptEmptyDropped(t *testing.T) {
	terms := Terms(&Filter{
		UserID:      "1",
		Favorite:    boolPtr(false),
		ContentType: []string{""},
	})

	fav, ok := findTerm(terms, FieldFavorite)
	if !ok {
		t.Fatal("expected favorite term")
	}
	if len(fav.Values) != 1 || fav.Values[0] != false {
		t.Errorf("favorite values = %v, want [false]", fav.Values)
	}
	if _, ok := findTerm(terms, FieldContentType); ok {
		t.Error("empty contentType must not produce a term")
	}
	user, ok := findTerm(terms, FieldUserID)
	if !ok || user.Values[0] != "1" {
		t.Errorf("userId term = %+v", user)
	}
}

func TestTerms_NilFavoriteSkipped(t *testing.T) {
	terms := Terms(&Filter{UserID: "1"})
	if _, ok := findTerm(terms, FieldFavorite); ok {
		t.Error("nil favorite must be skipped")
	}
	if len(terms) != 1 {
		t.Errorf("expected 1 term, got %d", len(terms))
	}
}

func TestTerms_MultiValue(t *testing.T) {
	terms := Terms(&Filter{Topic: []string{"EDUCATION", "POLITICS"}})
	topic, ok := findTerm(terms, FieldTopic)
	if !ok {
		t.Fatal("expected topic term")
	}
	if len(topic.Values) != 2 {
		t.Errorf("topic values = %v, want 2 values", topic.Values)
	}
}

func TestTerms_StatusLowercased(t *testing.T) {
	terms := Terms(&Filter{Status: "ARCHIVED"})
	st, ok := findTerm(terms, FieldStatus)
	if !ok || st.Values[0] != "archived" {
		t.Errorf("status term = %+v", st)
	}
}

func TestTerms_StableOrder(t *testing.T) {
	terms := Terms(&Filter{
		UserID: "u", Status: "unread", Favorite: boolPtr(true),
		ContentType: []string{"article"}, Tags: []string{"go"},
		Author: "a", Publisher: "p", Topic: []string{"t"},
	})
	var got []Field
	for _, term := range terms {
		got = append(got, term.Field)
	}
	want := []Field{
		FieldUserID, FieldStatus, FieldFavorite, FieldContentType,
		FieldTags, FieldAuthor, FieldPublisher, FieldTopic,
	}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestFormatValues(t *testing.T) {
	got := FormatValues(FieldStatus, []string{"ARCHIVED"})
	if !slices.Equal(got, []string{"archived"}) {
		t.Errorf("FormatValues(status) = %v", got)
	}
	got = FormatValues(FieldTags, []string{"GoLang", ""})
	if !slices.Equal(got, []string{"GoLang"}) {
		t.Errorf("FormatValues(tags) = %v", got)
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.example.com", "example.com"},
		{"http://example.com/", "example.com"},
		{"www.nytimes.com", "nytimes.com"},
		{"Blog.Example.COM", "blog.example.com"},
		{"wwwfoo.com", "wwwfoo.com"},
	}
	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDateRange(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	if _, err := NewDateRange(nil, nil); err == nil {
		t.Error("expected error for empty range")
	}
	if _, err := NewDateRange(&now, &earlier); err == nil {
		t.Error("expected error for inverted range")
	}
	r, err := NewDateRange(&earlier, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.After == nil || r.Before != nil {
		t.Errorf("range = %+v", r)
	}
}

func TestFilter_Validate(t *testing.T) {
	f := Filter{Status: "Deleted"}
	if err := f.Validate(); err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Errorf("err = %v", err)
	}

	f = Filter{Tags: make([]string, MaxValuesPerField+1)}
	if err := f.Validate(); err == nil || !strings.Contains(err.Error(), "too many tags") {
		t.Errorf("err = %v", err)
	}

	f = Filter{Status: "ARCHIVED", Tags: []string{"a"}}
	if err := f.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFilter_WithTags(t *testing.T) {
	base := Filter{Tags: []string{"a"}}
	got := base.WithTags("b", "c")
	if !slices.Equal(got.Tags, []string{"a", "b", "c"}) {
		t.Errorf("tags = %v", got.Tags)
	}
	if len(base.Tags) != 1 {
		t.Error("WithTags must not mutate the receiver")
	}
}

func TestFieldMap_Name(t *testing.T) {
	m := FieldMap{FieldUserID: "user_id"}
	if m.Name(FieldUserID) != "user_id" {
		t.Error("mapped name")
	}
	if m.Name(FieldTopic) != "topic" {
		t.Error("fallback name")
	}
}

func TestValueMap(t *testing.T) {
	m := ValueMap{FieldStatus: {"unread": 0, "archived": 1}}

	if got := m.Value(FieldStatus, "archived"); got != 1 {
		t.Errorf("status archived = %v, want 1", got)
	}
	if got := m.Value(FieldStatus, "other"); got != "other" {
		t.Errorf("unmapped = %v, want passthrough", got)
	}
	if got := m.Value(FieldFavorite, false); got != false {
		t.Errorf("bool = %v, want false", got)
	}
	var empty ValueMap
	if got := empty.Value(FieldTags, "go"); got != "go" {
		t.Errorf("nil map = %v", got)
	}
}
