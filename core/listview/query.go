// Package listview turns an in-memory collection plus a Query into the slice a list page shows
// and the counts it displays next to it. Every function is pure: no I/O, no shared state.
package listview

import (
	"strconv"

	"github.com/volatiletech/null/v8"
)

// All is the filter value meaning "no constraint on this field".
const All = "all"

// Field reads one string field of a record. An invalid (null) result is treated as an empty string
// when searching and never satisfies a filter.
type Field[T any] func(T) null.String

// String wraps a plain getter into a Field.
func String[T any](get func(T) string) Field[T] {
	return func(rec T) null.String { return null.StringFrom(get(rec)) }
}

// Nullable wraps a getter of an optional value into a Field.
func Nullable[T any](get func(T) *string) Field[T] {
	return func(rec T) null.String { return null.StringFromPtr(get(rec)) }
}

// Query is the search, filter and pagination state of one list page.
type Query struct {
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func NewQuery(pageSize int) Query {
	return Query{Filters: map[string]string{}, Page: 1, PageSize: pageSize}
}

// WithSearch returns a copy of q searching for term. The page goes back to 1 when the term changes.
func (q Query) WithSearch(term string) Query {
	if term != q.Search {
		q.Search = term
		q.Page = 1
	}
	return q
}

// WithFilter returns a copy of q with field constrained to value (All clears it).
// The page goes back to 1 when the filter changes.
func (q Query) WithFilter(field, value string) Query {
	if value == "" {
		value = All
	}
	if q.filterValue(field) == value {
		return q
	}
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	filters[field] = value
	q.Filters = filters
	q.Page = 1
	return q
}

// WithPageSize returns a copy of q showing size records per page, back on page 1.
func (q Query) WithPageSize(size int) Query {
	if size != q.PageSize {
		q.PageSize = size
		q.Page = 1
	}
	return q
}

func (q Query) filterValue(field string) string {
	if v, ok := q.Filters[field]; ok {
		return v
	}
	return All
}

// Key returns a render key for rec: its RecordID when it has one, else a positional key.
// Positional keys are not stable across re-fetches.
func Key(rec interface{}, index int) string {
	if r, ok := rec.(interface{ RecordID() string }); ok {
		if id := r.RecordID(); id != "" {
			return id
		}
	}
	return "idx-" + strconv.Itoa(index)
}
