package page

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// errors
	ErrNotFound = errors.New("page not found")
)

type entry struct {
	owner string
	kind  string
	page  Page
}

// Registry holds the mounted pages of every session.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{pages: make(map[string]entry)}
}

// Add registers p on behalf of owner and returns its id.
func (r *Registry) Add(owner, kind string, p Page) string {
	id := uuid.New().String()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[id] = entry{owner: owner, kind: kind, page: p}
	return id
}

// Get returns the page id mounted by owner. Pages of other owners are reported as ErrNotFound.
func (r *Registry) Get(owner, id string) (Page, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.pages[id]
	if !ok || e.owner != owner {
		return nil, "", ErrNotFound
	}
	return e.page, e.kind, nil
}

// Remove unmounts and forgets the page id of owner.
func (r *Registry) Remove(owner, id string) error {
	r.mu.Lock()
	e, ok := r.pages[id]
	if !ok || e.owner != owner {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.pages, id)
	r.mu.Unlock()

	e.page.Unmount()
	return nil
}

// RemoveOwner unmounts every page of owner, e.g. on logout. It returns how many were removed.
func (r *Registry) RemoveOwner(owner string) int {
	r.mu.Lock()
	var removed []Page
	for id, e := range r.pages {
		if e.owner == owner {
			removed = append(removed, e.page)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, p := range removed {
		p.Unmount()
	}
	return len(removed)
}

// Owners lists the distinct owners with at least one mounted page.
func (r *Registry) Owners() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var owners []string
	for _, e := range r.pages {
		if !seen[e.owner] {
			seen[e.owner] = true
			owners = append(owners, e.owner)
		}
	}
	return owners
}

// Len is the number of mounted pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}
