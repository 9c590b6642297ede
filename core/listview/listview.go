package listview

import (
	"strings"

	"github.com/kat-co/vala"
)

// ApplySearch returns the records where at least one of fields contains term, ignoring case.
// An empty term returns collection as is.
func ApplySearch[T any](collection []T, term string, fields ...Field[T]) []T {
	if term == "" {
		return collection
	}
	needle := strings.ToLower(term)

	matches := make([]T, 0, len(collection))
	for _, rec := range collection {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(rec).String), needle) {
				matches = append(matches, rec)
				break
			}
		}
	}
	return matches
}

// ApplyFilters keeps the records whose fields equal every non-All value of filters (exact match).
// fields maps filter names to their accessor; a name without accessor reads as null.
// Order is preserved.
func ApplyFilters[T any](collection []T, filters map[string]string, fields map[string]Field[T]) []T {
	active := make(map[string]string, len(filters))
	for name, value := range filters {
		if value != All {
			active[name] = value
		}
	}
	if len(active) == 0 {
		return collection
	}

	matches := make([]T, 0, len(collection))
	for _, rec := range collection {
		if matchesAll(rec, active, fields) {
			matches = append(matches, rec)
		}
	}
	return matches
}

func matchesAll[T any](rec T, filters map[string]string, fields map[string]Field[T]) bool {
	for name, want := range filters {
		field, ok := fields[name]
		if !ok {
			return false
		}
		got := field(rec)
		if !got.Valid || got.String != want {
			return false
		}
	}
	return true
}

// Window is one page of a filtered collection.
type Window[T any] struct {
	Visible    []T
	TotalPages int
	Page       int // the requested page, clamped into [1, TotalPages]
}

// TotalPages is ceil(n / pageSize), and never less than 1.
func TotalPages(n, pageSize int) int {
	pages := (n + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate slices page out of filtered. Out of range pages are clamped, the last page may be short.
// pageSize must be positive: anything else is a programming error and panics.
func Paginate[T any](filtered []T, page, pageSize int) Window[T] {
	vala.BeginValidation().Validate(
		vala.GreaterThan(pageSize, 0, "pageSize"),
	).CheckAndPanic()

	totalPages := TotalPages(len(filtered), pageSize)
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	visible := make([]T, 0, end-start)
	visible = append(visible, filtered[start:end]...)

	return Window[T]{Visible: visible, TotalPages: totalPages, Page: page}
}

// DistinctValues lists the values of field observed in collection, in first-seen order,
// preceded by the All sentinel. Null and empty values are skipped.
func DistinctValues[T any](collection []T, field Field[T]) []string {
	values := []string{All}
	seen := map[string]bool{All: true}
	for _, rec := range collection {
		v := field(rec)
		if !v.Valid || v.String == "" || seen[v.String] {
			continue
		}
		seen[v.String] = true
		values = append(values, v.String)
	}
	return values
}

// Stats are the counts shown around a list.
type Stats struct {
	Total         int                 `json:"total"`
	FilteredCount int                 `json:"filtered_count"`
	FilterOptions map[string][]string `json:"filter_options"`
}

// DeriveStats counts collection and filtered, and lists the filter options of every source field.
// Options are taken from the whole collection so that narrowing one filter keeps the others selectable.
func DeriveStats[T any](collection, filtered []T, sources map[string]Field[T]) Stats {
	options := make(map[string][]string, len(sources))
	for name, field := range sources {
		options[name] = DistinctValues(collection, field)
	}
	return Stats{
		Total:         len(collection),
		FilteredCount: len(filtered),
		FilterOptions: options,
	}
}
