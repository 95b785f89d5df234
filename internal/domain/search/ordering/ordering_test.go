package ordering

import (
	"strings"
	"testing"
)

var testMapping = Mapping{
	Fields: map[Key]string{
		Relevance:  "_score",
		CreatedAt:  "date_added",
		TimeToRead: "word_count",
	},
	TieBreaker: "item_id",
}

func TestResolve_DefaultsToRelevance(t *testing.T) {
	fields, err := testMapping.Resolve(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0] != (Field{Name: "_score", Order: Desc}) {
		t.Errorf("primary = %+v", fields[0])
	}
	if fields[1] != (Field{Name: "item_id", Order: Asc}) {
		t.Errorf("tie-breaker = %+v", fields[1])
	}
}

func TestResolve_PerKeyDefaultDirection(t *testing.T) {
	tests := []struct {
		key  Key
		name string
		want Order
	}{
		{Relevance, "_score", Desc},
		{CreatedAt, "date_added", Desc},
		{TimeToRead, "word_count", Asc},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			fields, err := testMapping.Resolve(&Spec{SortBy: tt.key})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fields[0].Name != tt.name || fields[0].Order != tt.want {
				t.Errorf("primary = %+v, want %s %s", fields[0], tt.name, tt.want)
			}
		})
	}
}

func TestResolve_ExplicitDirection(t *testing.T) {
	fields, err := testMapping.Resolve(&Spec{SortBy: TimeToRead, SortOrder: Desc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields[0].Order != Desc {
		t.Errorf("order = %s, want DESC", fields[0].Order)
	}
	if fields[1].Order != Asc {
		t.Error("tie-breaker must stay ascending")
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr string
	}{
		{"unknown key", Spec{SortBy: "POPULARITY"}, "unknown sort key"},
		{"unknown order", Spec{SortBy: CreatedAt, SortOrder: "UP"}, "unknown sort order"},
		{"unmapped key", Spec{SortBy: PublishedAt}, "not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testMapping.Resolve(&tt.spec)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOrder_Lower(t *testing.T) {
	if Desc.Lower() != "desc" || Asc.Lower() != "asc" {
		t.Error("unexpected lower-case form")
	}
}
