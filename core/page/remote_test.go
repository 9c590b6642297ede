package page

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/listview"
)

type fakeFeed struct {
	mu    sync.Mutex
	calls []url.Values
	total int
	err   error
}

func (f *fakeFeed) fetch(ctx context.Context, params url.Values) ([]course, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, 0, f.err
	}
	return makeCourses(3), f.total, nil
}

func (f *fakeFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFeed) last() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestParams(t *testing.T) {
	q := listview.NewQuery(20).WithSearch("gala").WithFilter("category", "SPORTS").WithFilter("status", listview.All)
	params := Params(q)
	assert.Equal(t, "gala", params.Get("search"))
	assert.Equal(t, "SPORTS", params.Get("category"))
	assert.Equal(t, "1", params.Get("page"))
	assert.Equal(t, "20", params.Get("limit"))
	assert.NotContains(t, params, "status")

	assert.NotContains(t, Params(listview.NewQuery(5)), "search")
}

func TestRemotePage(t *testing.T) {
	feed := &fakeFeed{total: 42}
	p := NewRemotePage(feed.fetch, 10, 30*time.Millisecond, "category")
	defer p.Unmount()

	p.Mount(context.Background())
	require.NoError(t, p.Wait(context.Background()))
	require.Equal(t, 1, feed.count())

	view := p.View()
	assert.Equal(t, Ready, view.State)
	assert.Equal(t, 5, view.TotalPages)
	assert.Equal(t, 42, view.Total)
	assert.Len(t, view.Items, 3)

	t.Run("page changes refetch immediately", func(t *testing.T) {
		require.NoError(t, p.Update(Update{Page: intPtr(3)}))
		require.NoError(t, p.Wait(context.Background()))
		assert.Equal(t, 2, feed.count())
		assert.Equal(t, "3", feed.last().Get("page"))
		assert.Equal(t, 3, p.View().Page)
	})

	t.Run("search keystrokes are debounced", func(t *testing.T) {
		before := feed.count()
		for _, term := range []string{"g", "ga", "gal", "gala"} {
			require.NoError(t, p.Update(Update{Search: strPtr(term)}))
		}
		eventually(t, func() bool { return feed.count() == before+1 })
		require.NoError(t, p.Wait(context.Background()))
		assert.Equal(t, "gala", feed.last().Get("search"))
		assert.Equal(t, "1", feed.last().Get("page"))

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, before+1, feed.count(), "a burst of keystrokes issues a single fetch")
	})

	t.Run("unknown filters are rejected", func(t *testing.T) {
		assert.Error(t, p.Update(Update{Filters: map[string]string{"venue": "hall"}}))
	})

	t.Run("no-op updates do not refetch", func(t *testing.T) {
		before := feed.count()
		require.NoError(t, p.Update(Update{}))
		require.NoError(t, p.Wait(context.Background()))
		assert.Equal(t, before, feed.count())
	})
}

func TestRemotePage_error(t *testing.T) {
	feed := &fakeFeed{err: errors.New("timeout")}
	p := NewRemotePage(feed.fetch, 10, 10*time.Millisecond)
	defer p.Unmount()

	p.Mount(context.Background())
	require.NoError(t, p.Wait(context.Background()))

	view := p.View()
	assert.Equal(t, Failed, view.State)
	assert.Equal(t, "timeout", view.Error)
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, view.TotalPages)
}

func TestRemotePage_latestWins(t *testing.T) {
	slow := make(chan struct{})
	fetch := func(ctx context.Context, params url.Values) ([]course, int, error) {
		if params.Get("limit") == "10" {
			<-slow
			return makeCourses(1), 1, nil
		}
		return makeCourses(3), 3, nil
	}

	p := NewRemotePage(fetch, 10, 10*time.Millisecond)
	defer p.Unmount()
	p.Mount(context.Background())
	require.NoError(t, p.Update(Update{PageSize: intPtr(20)}))

	eventually(t, func() bool { return p.View().Total == 3 })
	close(slow)
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 3, p.View().Total, "a late answer of an older fetch is dropped")
}

// pager serves total records, pageSize at a time, the way the backend pages.
func pager(total int) (RemoteFetchFunc[course], *fakeFeed) {
	feed := &fakeFeed{}
	all := makeCourses(total)
	return func(ctx context.Context, params url.Values) ([]course, int, error) {
		feed.mu.Lock()
		feed.calls = append(feed.calls, params)
		feed.mu.Unlock()

		page, _ := strconv.Atoi(params.Get("page"))
		limit, _ := strconv.Atoi(params.Get("limit"))
		start := (page - 1) * limit
		if start >= len(all) {
			return []course{}, total, nil
		}
		end := start + limit
		if end > len(all) {
			end = len(all)
		}
		return all[start:end], total, nil
	}, feed
}

func TestRemotePage_pageClamp(t *testing.T) {
	t.Run("known total clamps before fetching", func(t *testing.T) {
		fetch, feed := pager(25)
		p := NewRemotePage(fetch, 10, 10*time.Millisecond)
		defer p.Unmount()
		p.Mount(context.Background())
		require.NoError(t, p.Wait(context.Background()))

		require.NoError(t, p.Update(Update{Page: intPtr(9)}))
		require.NoError(t, p.Wait(context.Background()))

		assert.Equal(t, "3", feed.last().Get("page"))
		view := p.View()
		assert.Equal(t, 3, view.Page)
		assert.Equal(t, 3, view.TotalPages)
		assert.Equal(t, []string{"c21", "c22", "c23", "c24", "c25"}, ids(view.Items))
	})

	t.Run("a shrunk total refetches the last page", func(t *testing.T) {
		total := 45
		var mu sync.Mutex
		feed := &fakeFeed{}
		fetch := func(ctx context.Context, params url.Values) ([]course, int, error) {
			mu.Lock()
			defer mu.Unlock()
			feed.mu.Lock()
			feed.calls = append(feed.calls, params)
			feed.mu.Unlock()
			inner, _ := pager(total)
			return inner(ctx, params)
		}
		p := NewRemotePage(fetch, 10, 10*time.Millisecond)
		defer p.Unmount()
		p.Mount(context.Background())
		require.NoError(t, p.Wait(context.Background()))

		mu.Lock()
		total = 25
		mu.Unlock()
		require.NoError(t, p.Update(Update{Page: intPtr(5)}))
		require.NoError(t, p.Wait(context.Background()))

		assert.Equal(t, 3, feed.count())
		assert.Equal(t, "3", feed.last().Get("page"))
		view := p.View()
		assert.Equal(t, Ready, view.State)
		assert.Equal(t, 3, view.Page)
		assert.Equal(t, 25, view.Total)
		assert.Len(t, view.Items, 5, "never an empty page past the end")
	})
}

func TestRemotePage_unmount(t *testing.T) {
	feed := &fakeFeed{total: 3}
	p := NewRemotePage(feed.fetch, 10, 10*time.Millisecond)
	p.Unmount()
	require.NoError(t, p.Update(Update{Page: intPtr(2)}))
	require.NoError(t, p.Wait(context.Background()))
	assert.Zero(t, feed.count(), "an unmounted page never fetches")
}
