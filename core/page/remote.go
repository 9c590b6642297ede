package page

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/romdo/go-debounce"

	"github.com/trezcool/academia/core/listview"
)

// RemoteFetchFunc fetches one page of a server-paged collection and returns it with the
// server-side total.
type RemoteFetchFunc[T any] func(ctx context.Context, params url.Values) ([]T, int, error)

// Params are the query parameters of a server-paged fetch.
func Params(q listview.Query) url.Values {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	for field, value := range q.Filters {
		if value != listview.All {
			params.Set(field, value)
		}
	}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.PageSize))
	return params
}

// RemotePage is a server-side paged list. Search changes are debounced, other query changes
// refetch immediately. Only the result of the latest fetch is ever applied.
type RemotePage[T any] struct {
	fetch   RemoteFetchFunc[T]
	filters map[string]bool
	sources []string

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	state      State
	err        error
	items      []T
	total      int
	query      listview.Query
	mounted    bool
	generation int
	inflight   sync.WaitGroup

	debounced      func()
	cancelDebounce func()
}

var _ Page = (*RemotePage[struct{}])(nil)

// NewRemotePage creates a server-paged list. filters names the query parameters the backend
// accepts as filters.
func NewRemotePage[T any](fetch RemoteFetchFunc[T], pageSize int, delay time.Duration, filters ...string) *RemotePage[T] {
	p := &RemotePage[T]{
		fetch:   fetch,
		filters: make(map[string]bool, len(filters)),
		query:   listview.NewQuery(pageSize),
		items:   []T{},
	}
	for _, f := range filters {
		p.filters[f] = true
	}
	p.debounced, p.cancelDebounce = debounce.NewWithMaxWait(delay, 4*delay, p.refetch)
	return p
}

// Mount fetches the first page and returns immediately.
func (p *RemotePage[T]) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mounted = true
	p.state = Loading
	p.mu.Unlock()

	p.refetch()
}

// Wait blocks until every started fetch has ended, or ctx is done.
func (p *RemotePage[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RemotePage[T]) refetch() {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return
	}
	if p.state == Ready {
		p.query.Page = clampPage(p.query.Page, p.total, p.query.PageSize)
	}
	p.generation++
	gen := p.generation
	ctx := p.ctx
	params := Params(p.query)
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()
		items, total, err := p.fetch(ctx, params)
		if p.settle(gen, items, total, err) {
			p.refetch()
		}
	}()
}

// settle applies the result of fetch gen. It reports whether the requested page lies past
// the last page of total, in which case the clamped page is stored and must be fetched.
func (p *RemotePage[T]) settle(gen int, items []T, total int, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || gen != p.generation {
		return false
	}

	if err != nil {
		p.state = Failed
		p.err = err
		p.items = []T{}
		p.total = 0
		return false
	}
	if items == nil {
		items = []T{}
	}
	if total < len(items) {
		total = len(items)
	}
	p.total = total
	if page := clampPage(p.query.Page, total, p.query.PageSize); page != p.query.Page {
		p.query.Page = page
		return true
	}
	p.state = Ready
	p.err = nil
	p.items = items
	return false
}

func clampPage(page, total, pageSize int) int {
	if totalPages := listview.TotalPages(total, pageSize); page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

func (p *RemotePage[T]) Update(u Update) error {
	p.mu.Lock()
	before := p.query
	q, err := u.Apply(p.query, func(f string) bool { return p.filters[f] })
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.query = q
	p.mu.Unlock()

	switch {
	case q.Search != before.Search && sameCriteria(before, q.WithSearch(before.Search)):
		p.debounced()
	case !sameCriteria(before, q) || q.Page != before.Page:
		p.refetch()
	}
	return nil
}

func (p *RemotePage[T]) View() View[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	totalPages := listview.TotalPages(p.total, p.query.PageSize)
	page := clampPage(p.query.Page, p.total, p.query.PageSize)
	p.query.Page = page

	view := View[T]{
		State:   p.state,
		Search:  p.query.Search,
		Filters: copyFilters(p.query.Filters),
		Result: listview.Result[T]{
			Items:      p.items,
			Page:       page,
			PageSize:   p.query.PageSize,
			TotalPages: totalPages,
			Stats: listview.Stats{
				Total:         p.total,
				FilteredCount: p.total,
				FilterOptions: map[string][]string{},
			},
		},
	}
	if p.err != nil {
		view.Error = p.err.Error()
	}
	return view
}

func (p *RemotePage[T]) Render() interface{} {
	return p.View()
}

func (p *RemotePage[T]) Unmount() {
	p.cancelDebounce()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
