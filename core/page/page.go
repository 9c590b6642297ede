// Package page holds the state of mounted list pages: the fetched collection, the query
// the user is driving and the lifecycle of the fetch.
package page

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/listview"
)

// State of a list page.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

var stateNames = map[State]string{
	Loading: "LOADING",
	Ready:   "READY",
	Failed:  "ERROR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Page is a mounted list page, whatever its record type.
type Page interface {
	// Update applies a query change.
	Update(u Update) error
	// Render returns what the page shows for its current query.
	Render() interface{}
	// Wait blocks until the pending fetch has ended, or ctx is done.
	Wait(ctx context.Context) error
	// Unmount discards the page. Fetch results arriving afterwards are dropped.
	Unmount()
}

// View is a rendered list page.
type View[T any] struct {
	State   State             `json:"state"`
	Error   string            `json:"error,omitempty"`
	Search  string            `json:"search"`
	Filters map[string]string `json:"filters"`
	listview.Result[T]
}

// Update is a query change. Nil fields are left untouched.
type Update struct {
	Search   *string           `json:"search"`
	Filters  map[string]string `json:"filters"`
	Page     *int              `json:"page"`
	PageSize *int              `json:"page_size"`
}

// Apply returns q changed by u. A change of search, filters or page size sends the query back
// to page 1, in which case u.Page is ignored.
func (u Update) Apply(q listview.Query, hasFilter func(string) bool) (listview.Query, error) {
	if err := u.validate(hasFilter); err != nil {
		return q, err
	}

	before := q
	if u.Search != nil {
		q = q.WithSearch(*u.Search)
	}
	for field, value := range u.Filters {
		q = q.WithFilter(field, value)
	}
	if u.PageSize != nil {
		q = q.WithPageSize(*u.PageSize)
	}

	if u.Page != nil && sameCriteria(before, q) {
		q.Page = *u.Page
	}
	return q, nil
}

func (u Update) validate(hasFilter func(string) bool) error {
	var fields []core.FieldError
	if u.PageSize != nil && *u.PageSize <= 0 {
		fields = append(fields, core.FieldError{Field: "page_size", Error: "must be greater than 0"})
	}
	for field := range u.Filters {
		if hasFilter != nil && !hasFilter(field) {
			fields = append(fields, core.FieldError{Field: "filter." + field, Error: "unknown filter"})
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError(errors.New("invalid list query"), fields...)
	}
	return nil
}

func sameCriteria(a, b listview.Query) bool {
	if a.Search != b.Search || a.PageSize != b.PageSize || len(a.Filters) != len(b.Filters) {
		return false
	}
	for k, v := range a.Filters {
		if w, ok := b.Filters[k]; !ok || w != v {
			return false
		}
	}
	return true
}
