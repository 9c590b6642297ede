package listview

// Engine is the list configuration of one kind of record.
type Engine[T any] struct {
	// Search are the fields matched by the free-text search.
	Search []Field[T]
	// Filters are the fields a Query may constrain, by filter name.
	Filters map[string]Field[T]
	// Sources names the Filters whose distinct values populate the filter options.
	Sources []string
}

// Result is what a list page renders.
type Result[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Stats
}

// Run searches, filters and paginates collection. Result.Page is the clamped page:
// callers holding the query must store it back.
func (e Engine[T]) Run(collection []T, q Query) Result[T] {
	filtered := ApplyFilters(ApplySearch(collection, q.Search, e.Search...), q.Filters, e.Filters)
	win := Paginate(filtered, q.Page, q.PageSize)

	return Result[T]{
		Items:      win.Visible,
		Page:       win.Page,
		PageSize:   q.PageSize,
		TotalPages: win.TotalPages,
		Stats:      DeriveStats(collection, filtered, e.sources()),
	}
}

func (e Engine[T]) sources() map[string]Field[T] {
	sources := make(map[string]Field[T], len(e.Sources))
	for _, name := range e.Sources {
		if field, ok := e.Filters[name]; ok {
			sources[name] = field
		}
	}
	return sources
}

// HasFilter reports whether name is a filter of e.
func (e Engine[T]) HasFilter(name string) bool {
	_, ok := e.Filters[name]
	return ok
}
