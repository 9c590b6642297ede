package page

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core/listview"
)

// FetchFunc fetches the whole collection of a page.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// ListPage is a client-side paged list: the collection is fetched once per mount and
// every query change is answered from memory.
type ListPage[T any] struct {
	engine listview.Engine[T]

	mu         sync.Mutex
	state      State
	err        error
	collection []T
	query      listview.Query
	mounted    bool
	generation int
	cancel     context.CancelFunc
	done       chan struct{}
}

var _ Page = (*ListPage[struct{}])(nil)

func NewListPage[T any](engine listview.Engine[T], pageSize int) *ListPage[T] {
	done := make(chan struct{})
	close(done)
	return &ListPage[T]{
		engine: engine,
		query:  listview.NewQuery(pageSize),
		done:   done,
	}
}

// Mount starts the single fetch of the page and returns immediately.
// The page is LOADING until the fetch ends; Done is closed then.
func (p *ListPage[T]) Mount(ctx context.Context, fetch FetchFunc[T]) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	p.generation++
	gen := p.generation
	p.mounted = true
	p.state = Loading
	p.err = nil
	p.collection = nil
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		records, err := fetch(ctx)
		p.settle(gen, records, err)
	}()
}

// Load mounts the page and waits for its fetch to end.
func (p *ListPage[T]) Load(ctx context.Context, fetch FetchFunc[T]) error {
	p.Mount(ctx, fetch)
	if err := p.Wait(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// settle applies a fetch result, unless the page was unmounted or remounted meanwhile.
func (p *ListPage[T]) settle(gen int, records []T, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || gen != p.generation {
		return
	}

	if err != nil {
		p.state = Failed
		p.err = err
		p.collection = []T{}
		return
	}
	if records == nil {
		records = []T{}
	}
	p.state = Ready
	p.collection = records
	p.clamp()
}

// clamp brings the stored page into [1, totalPages] of the current criteria.
// A loading page keeps the requested page until its collection arrives.
func (p *ListPage[T]) clamp() {
	if p.state == Loading {
		return
	}
	filtered := listview.ApplyFilters(listview.ApplySearch(p.collection, p.query.Search, p.engine.Search...), p.query.Filters, p.engine.Filters)
	totalPages := listview.TotalPages(len(filtered), p.query.PageSize)
	if p.query.Page > totalPages {
		p.query.Page = totalPages
	}
	if p.query.Page < 1 {
		p.query.Page = 1
	}
}

// Done is closed when the current fetch has ended.
func (p *ListPage[T]) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait blocks until the current fetch has ended, or ctx is done.
func (p *ListPage[T]) Wait(ctx context.Context) error {
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ListPage[T]) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *ListPage[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Query returns the current query.
func (p *ListPage[T]) Query() listview.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Collection returns the fetched collection (empty while loading or after a failure).
func (p *ListPage[T]) Collection() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collection
}

func (p *ListPage[T]) Update(u Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := u.Apply(p.query, p.engine.HasFilter)
	if err != nil {
		return err
	}
	p.query = q
	p.clamp()
	return nil
}

func (p *ListPage[T]) SetSearch(term string) {
	_ = p.Update(Update{Search: &term})
}

func (p *ListPage[T]) SetFilter(field, value string) error {
	return p.Update(Update{Filters: map[string]string{field: value}})
}

func (p *ListPage[T]) SetPage(page int) {
	_ = p.Update(Update{Page: &page})
}

func (p *ListPage[T]) SetPageSize(size int) error {
	return p.Update(Update{PageSize: &size})
}

// View runs the engine over the collection and stores the clamped page back into the query.
func (p *ListPage[T]) View() View[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.engine.Run(p.collection, p.query)
	p.query.Page = res.Page
	view := View[T]{
		State:   p.state,
		Search:  p.query.Search,
		Filters: copyFilters(p.query.Filters),
		Result:  res,
	}
	if p.err != nil {
		view.Error = p.err.Error()
	}
	return view
}

func (p *ListPage[T]) Render() interface{} {
	return p.View()
}

func copyFilters(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		out[k] = v
	}
	return out
}
