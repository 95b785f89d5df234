// Package postgres implements free-tier library search as case-insensitive
// substring matching over the relational item store.
package postgres

import (
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/ordering"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/request"
)

// Tables and columns of the item store.
const (
	itemsTable = "list"
	tagsTable  = "item_tags"

	colItemID         = "item_id"
	colUserID         = "user_id"
	colTitle          = "title"
	colGivenURL       = "given_url"
	colResolvedURL    = "resolved_url"
	colExcerpt        = "excerpt"
	colStatus         = "status"
	colFavorite       = "favorite"
	colContentType    = "content_type"
	colWordCount      = "word_count"
	colTimeAdded      = "time_added"
	colPublishedAt    = "published_at"
	colCurationSource = "curation_source"
	colTag            = "tag"
)

// Item status codes. Deleted rows are never returned.
const (
	statusUnread   = 0
	statusArchived = 1
	statusDeleted  = 2
)

// Columns maps neutral filter fields to item columns.
var Columns = filter.FieldMap{
	filter.FieldUserID:      colUserID,
	filter.FieldStatus:      colStatus,
	filter.FieldFavorite:    colFavorite,
	filter.FieldContentType: colContentType,
	filter.FieldAuthor:      "author",
	filter.FieldPublisher:   "publisher",
	filter.FieldTopic:       "topic",
}

// Values maps neutral values to column values.
var Values = filter.ValueMap{
	filter.FieldStatus: {"unread": statusUnread, "archived": statusArchived},
}

// Sort maps sort keys to columns. Substring matching has no relevance score,
// so relevance orders by time added.
var Sort = ordering.Mapping{
	Fields: map[ordering.Key]string{
		ordering.Relevance:   colTimeAdded,
		ordering.CreatedAt:   colTimeAdded,
		ordering.TimeToRead:  colWordCount,
		ordering.PublishedAt: colPublishedAt,
	},
	TieBreaker: colItemID,
}

// selectColumns are scanned by scanItem in this order.
var selectColumns = []string{
	colItemID, colUserID, colTitle, colGivenURL, colResolvedURL, colExcerpt,
	colStatus, colFavorite, colContentType, colWordCount, colTimeAdded, colPublishedAt,
}

// Query is a rendered SQL statement.
type Query struct {
	SQL  string
	Args []any
}

// Search holds the row and count statements of one free-tier search.
type Search struct {
	Rows   Query
	Count  Query
	Params pagination.Params
}

// Build compiles req into row and count statements paged by p.
func Build(req request.Request, p pagination.Params) (*Search, error) {
	order, err := Sort.Resolve(req.Sort())
	if err != nil {
		return nil, fmt.Errorf("relational sort: %w: %w", domain.ErrInvalidRequest, err)
	}

	b := entsql.Dialect(dialect.Postgres)
	text := req.Values().Plain
	f := req.EffectiveFilter()

	t := b.Table(itemsTable)
	cols := make([]string, len(selectColumns))
	for i, c := range selectColumns {
		cols[i] = t.C(c)
	}
	rows := b.Select(cols...).From(t).Where(where(b, t, text, f))
	for _, o := range order {
		rows.OrderBy(t.C(o.Name) + " " + string(o.Order))
	}
	rows.Limit(p.Size)
	if p.From > 0 {
		rows.Offset(p.From)
	}
	rowsSQL, rowsArgs := rows.Query()

	ct := b.Table(itemsTable)
	count := b.Select(entsql.Count("*")).From(ct).Where(where(b, ct, text, f))
	countSQL, countArgs := count.Query()

	return &Search{
		Rows:   Query{SQL: rowsSQL, Args: rowsArgs},
		Count:  Query{SQL: countSQL, Args: countArgs},
		Params: p,
	}, nil
}

// where builds the shared predicate. It is rebuilt per statement because
// predicates accumulate placeholder state.
func where(b *entsql.DialectBuilder, t *entsql.SelectTable, text string, f filter.Filter) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.NEQ(t.C(colStatus), statusDeleted)}

	if text != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold(t.C(colTitle), text),
			entsql.ContainsFold(t.C(colGivenURL), text),
			entsql.ContainsFold(t.C(colResolvedURL), text),
		))
	}

	for _, term := range filter.Terms(&f) {
		if term.Field == filter.FieldTags {
			preds = append(preds, tagged(b, t, f.UserID, term.Values))
			continue
		}
		col := t.C(Columns.Name(term.Field))
		eqs := make([]*entsql.Predicate, len(term.Values))
		for i, v := range term.Values {
			eqs[i] = entsql.EQ(col, Values.Value(term.Field, v))
		}
		if len(eqs) == 1 {
			preds = append(preds, eqs[0])
		} else {
			preds = append(preds, entsql.Or(eqs...))
		}
	}

	if d := filter.NormalizeDomain(f.Domain); d != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold(t.C(colGivenURL), d),
			entsql.ContainsFold(t.C(colResolvedURL), d),
		))
	}
	preds = appendRange(preds, t.C(colPublishedAt), f.PublishedDateRange)
	preds = appendRange(preds, t.C(colTimeAdded), f.AddedDateRange)

	if f.ExcludeML {
		col := t.C(colCurationSource)
		preds = append(preds, entsql.Or(entsql.IsNull(col), entsql.NEQ(col, "ML")))
	}
	if f.ExcludeCollections {
		col := t.C(colContentType)
		preds = append(preds, entsql.Or(entsql.IsNull(col), entsql.NEQ(col, "collection")))
	}

	return entsql.And(preds...)
}

// tagged matches items carrying any of tags. Tag rows are keyed by user.
func tagged(b *entsql.DialectBuilder, t *entsql.SelectTable, userID string, tags []any) *entsql.Predicate {
	tt := b.Table(tagsTable)
	match := entsql.In(tt.C(colTag), tags...)
	if userID != "" {
		match = entsql.And(entsql.EQ(tt.C(colUserID), userID), match)
	}
	sub := b.Select(tt.C(colItemID)).From(tt).Where(match)
	return entsql.In(t.C(colItemID), sub)
}

func appendRange(preds []*entsql.Predicate, col string, r *filter.DateRange) []*entsql.Predicate {
	if r == nil {
		return preds
	}
	if r.After != nil {
		preds = append(preds, entsql.GTE(col, *r.After))
	}
	if r.Before != nil {
		preds = append(preds, entsql.LT(col, *r.Before))
	}
	return preds
}
