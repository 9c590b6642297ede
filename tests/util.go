// Package testutil provides a fake school backend for HTTP tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/trezcool/academia/core/user"
)

// Record is a backend resource.
type Record map[string]interface{}

// Call is a request received by the Backend.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Token  string
	Body   Record
}

type account struct {
	password string
	profile  user.User
}

// Backend is an in-memory school backend: collections are served as {data, total}, events and news
// are paged with search, page and limit, and single resources can be read, patched and deleted.
type Backend struct {
	URL string

	mu          sync.Mutex
	accounts    map[string]account // username -> account
	tokens      map[string]string  // token -> username
	collections map[string][]Record
	failures    map[string]int // "METHOD /path" -> status
	calls       []Call
}

// public endpoints, by method
var public = map[string]bool{
	"POST /auth/login": true,
	"POST /admissions": true,
	"GET /events":      true,
	"GET /news":        true,
}

// paged collections filter and slice server-side
var paged = map[string]bool{"events": true, "news": true}

func NewBackend(t *testing.T) *Backend {
	b := &Backend{
		accounts:    make(map[string]account),
		tokens:      make(map[string]string),
		collections: make(map[string][]Record),
		failures:    make(map[string]int),
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	b.URL = srv.URL
	return b
}

// AddUser registers an account. Its backend token is "token-<username>".
func (b *Backend) AddUser(username, password string, profile user.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[username] = account{password: password, profile: profile}
}

func (b *Backend) SetCollection(entity string, records ...Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[entity] = records
}

// Fail makes the backend answer method path with status.
func (b *Backend) Fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = status
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo lists the calls received for method path.
func (b *Backend) CallsTo(method, path string) []Call {
	var calls []Call
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			calls = append(calls, c)
		}
	}
	return calls
}

// Find returns the record of entity with id, or nil.
func (b *Backend) Find(entity, id string) Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(entity, id); i >= 0 {
		return b.collections[entity][i]
	}
	return nil
}

func (b *Backend) index(entity, id string) int {
	for i, rec := range b.collections[entity] {
		if rec["id"] == id {
			return i
		}
	}
	return -1
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Token:  strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
	}
	_ = json.NewDecoder(r.Body).Decode(&call.Body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)

	route := r.Method + " " + r.URL.Path
	if status, ok := b.failures[route]; ok {
		writeJSON(w, status, Record{"message": "backend failure"})
		return
	}

	switch route {
	case "POST /auth/login":
		b.login(w, call)
		return
	case "POST /admissions":
		writeJSON(w, http.StatusCreated, Record{"reference": "ADM-2026-0001"})
		return
	}
	if _, ok := b.tokens[call.Token]; !ok && !public[route] {
		writeJSON(w, http.StatusUnauthorized, Record{"message": "invalid token"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	entity := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		b.list(w, entity, call.Query)
	case len(parts) == 2:
		b.detail(w, r.Method, entity, parts[1], call.Body)
	case len(parts) == 3 && r.Method == http.MethodPost && entity == "applications":
		b.decide(w, parts[1], parts[2])
	default:
		writeJSON(w, http.StatusNotFound, Record{"message": "no such route"})
	}
}

func (b *Backend) login(w http.ResponseWriter, call Call) {
	username, _ := call.Body["username"].(string)
	password, _ := call.Body["password"].(string)
	acc, ok := b.accounts[username]
	if !ok || acc.password != password {
		writeJSON(w, http.StatusUnauthorized, Record{"message": "invalid credentials"})
		return
	}
	token := "token-" + username
	b.tokens[token] = username
	writeJSON(w, http.StatusOK, Record{"token": token, "user": acc.profile})
}

func (b *Backend) list(w http.ResponseWriter, entity string, query url.Values) {
	records, ok := b.collections[entity]
	if !ok {
		writeJSON(w, http.StatusNotFound, Record{"message": "no such collection"})
		return
	}
	if !paged[entity] {
		writeJSON(w, http.StatusOK, Record{"data": records, "total": len(records)})
		return
	}

	matches := make([]Record, 0, len(records))
	search := strings.ToLower(query.Get("search"))
	for _, rec := range records {
		title, _ := rec["title"].(string)
		if search != "" && !strings.Contains(strings.ToLower(title), search) {
			continue
		}
		if !matchesQuery(rec, query) {
			continue
		}
		matches = append(matches, rec)
	}

	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = len(matches) + 1
	}
	start := (page - 1) * limit
	if start > len(matches) {
		start = len(matches)
	}
	end := start + limit
	if end > len(matches) {
		end = len(matches)
	}
	writeJSON(w, http.StatusOK, Record{"data": matches[start:end], "total": len(matches)})
}

// matchesQuery checks the filter parameters: every parameter but search, page and limit.
func matchesQuery(rec Record, query url.Values) bool {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case "search", "page", "limit":
			continue
		}
		if v, _ := rec[k].(string); v != query.Get(k) {
			return false
		}
	}
	return true
}

func (b *Backend) detail(w http.ResponseWriter, method, entity, id string, body Record) {
	i := b.index(entity, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, Record{"message": "not found"})
		return
	}
	switch method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, Record{"data": b.collections[entity][i]})
	case http.MethodPatch:
		rec := b.collections[entity][i]
		for k, v := range body {
			rec[k] = v
		}
		writeJSON(w, http.StatusOK, Record{"data": rec})
	case http.MethodDelete:
		b.collections[entity] = append(b.collections[entity][:i:i], b.collections[entity][i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, Record{"message": "method not allowed"})
	}
}

func (b *Backend) decide(w http.ResponseWriter, id, decision string) {
	statuses := map[string]string{"approve": "APPROVED", "reject": "REJECTED"}
	i := b.index("applications", id)
	status, ok := statuses[decision]
	if i < 0 || !ok {
		writeJSON(w, http.StatusNotFound, Record{"message": "not found"})
		return
	}
	b.collections["applications"][i]["status"] = status
	writeJSON(w, http.StatusOK, Record{"data": b.collections["applications"][i]})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
