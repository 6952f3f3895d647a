package igdb

import (
	"strconv"
	"strings"
)

// Query builds catalog A query text:
//
//	fields name,cover.image_id; search "zelda"; where id = (1,2); sort total_rating desc; limit 10; offset 0;
type Query struct {
	fields []string
	search string
	where  []string
	sort   string
	limit  int
	offset int
}

// NewQuery starts a query selecting fields.
func NewQuery(fields ...string) *Query {
	return &Query{fields: fields}
}

// Search sets the full-text search term.
func (q *Query) Search(term string) *Query {
	q.search = strings.TrimSpace(term)
	return q
}

// Where appends a filter clause; multiple clauses are joined with "&".
func (q *Query) Where(clause string) *Query {
	if clause = strings.TrimSpace(clause); clause != "" {
		q.where = append(q.where, clause)
	}
	return q
}

// WhereIDs filters to the given IDs.
func (q *Query) WhereIDs(ids []int64) *Query {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return q.Where("id = (" + strings.Join(parts, ",") + ")")
}

// Sort sets the sort clause, e.g. "total_rating desc".
func (q *Query) Sort(clause string) *Query {
	q.sort = strings.TrimSpace(clause)
	return q
}

// Limit sets the page size.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset sets the number of records to skip.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// String renders the query text.
func (q *Query) String() string {
	var b strings.Builder
	if len(q.fields) > 0 {
		b.WriteString("fields ")
		b.WriteString(strings.Join(q.fields, ","))
		b.WriteString("; ")
	}
	if q.search != "" {
		b.WriteString("search ")
		b.WriteString(quote(q.search))
		b.WriteString("; ")
	}
	if len(q.where) > 0 {
		b.WriteString("where ")
		b.WriteString(strings.Join(q.where, " & "))
		b.WriteString("; ")
	}
	if q.sort != "" {
		b.WriteString("sort ")
		b.WriteString(q.sort)
		b.WriteString("; ")
	}
	if q.limit > 0 {
		b.WriteString("limit ")
		b.WriteString(strconv.Itoa(q.limit))
		b.WriteString("; ")
	}
	if q.offset > 0 {
		b.WriteString("offset ")
		b.WriteString(strconv.Itoa(q.offset))
		b.WriteString("; ")
	}
	return strings.TrimSpace(b.String())
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(value string) string {
	return `"` + quoteReplacer.Replace(value) + `"`
}
