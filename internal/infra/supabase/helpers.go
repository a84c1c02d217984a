package supabase

import (
	"net/url"
	"strings"
	"time"
)

// ============================================================
// PostgREST query and row helpers
// ============================================================

// query builds a PostgREST path. Filter values are escaped; column
// expressions are written as-is since they carry PostgREST syntax.
type query struct {
	table  string
	params []string
}

func newQuery(table, selectExpr string) *query {
	return &query{table: table, params: []string{"select=" + selectExpr}}
}

// eq adds column=eq.value. Empty values are skipped.
func (q *query) eq(column, value string) *query {
	if value == "" {
		return q
	}
	q.params = append(q.params, column+"=eq."+url.QueryEscape(value))
	return q
}

// in adds column=in.(v1,v2).
func (q *query) in(column string, values []string) *query {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = url.QueryEscape(v)
	}
	q.params = append(q.params, column+"=in.("+strings.Join(escaped, ",")+")")
	return q
}

func (q *query) order(expr string) *query {
	q.params = append(q.params, "order="+expr)
	return q
}

func (q *query) String() string {
	return q.table + "?" + strings.Join(q.params, "&")
}

// dateLayouts covers what PostgREST renders for date, timestamp and
// timestamptz columns, plus the space-separated form other clients write.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseDate accepts the layouts above. Anything else that still starts with
// a YYYY-MM-DD date followed by a time part is read by that date alone.
// ok is false for non-empty values with no leading date.
func parseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalize upper-cases enum-like columns written by different clients.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
