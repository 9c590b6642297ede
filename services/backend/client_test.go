package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

type recorded struct {
	method string
	path   string
	query  url.Values
	auth   string
	body   map[string]interface{}
}

func newBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.Query(), auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second), &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_FetchList(t *testing.T) {
	client, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"id":"c1","title":"Algebra"}],"total":1}`)
	})

	sess := &session.Session{AccessToken: "tok"}
	courses, err := FetchAll[course](context.Background(), client, sess, "/courses", url.Values{"search": {"alg"}})
	require.NoError(t, err)
	assert.Equal(t, []course{{ID: "c1", Title: "Algebra"}}, courses)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/courses", call.path)
	assert.Equal(t, "alg", call.query.Get("search"))
	assert.Equal(t, "Bearer tok", call.auth)

	// public fetch: no session, no header
	_, err = client.FetchList(context.Background(), nil, "/news", nil)
	require.NoError(t, err)
	assert.Empty(t, (*calls)[1].auth)
}

func TestClient_FetchList_errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		client, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, `{"message":"maintenance"}`)
		})
		_, err := client.FetchList(context.Background(), nil, "/courses", nil)
		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, http.StatusServiceUnavailable, serr.Status)
		assert.Equal(t, "maintenance", serr.Message)
		assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	})

	t.Run("status without message", func(t *testing.T) {
		client, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := client.FetchList(context.Background(), nil, "/courses", nil)
		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "Not Found", serr.Message)
	})

	t.Run("malformed", func(t *testing.T) {
		client, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":[`)
		})
		_, err := client.FetchList(context.Background(), nil, "/courses", nil)
		var derr *DecodeError
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		_, err := New(srv.URL, time.Second).FetchList(context.Background(), nil, "/courses", nil)
		require.Error(t, err)
		_, isStatus := errors.Cause(err).(*StatusError)
		assert.False(t, isStatus)
	})
}

func TestClient_Login(t *testing.T) {
	client, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"access_token":"tok-1","user":{"id":"u1","name":"Tshala","roles":["admin:owner"]}}`)
	})

	token, profile, err := client.Login(context.Background(), "tshala", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "Tshala", profile.Name)
	assert.True(t, profile.IsAdmin())

	require.Len(t, *calls, 1)
	assert.Equal(t, "/auth/login", (*calls)[0].path)
	assert.Equal(t, "tshala", (*calls)[0].body["username"])
}

func TestClient_Login_rejected(t *testing.T) {
	client, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid credentials"}`)
	})
	_, _, err := client.Login(context.Background(), "x", "y")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestClient_mutations(t *testing.T) {
	client, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusOK, `{"id":"s1","status":"SUSPENDED"}`)
		}
	})
	ctx := context.Background()
	sess := &session.Session{AccessToken: "tok"}

	var updated struct {
		Status string `json:"status"`
	}
	require.NoError(t, client.Patch(ctx, sess, "/students/s1", map[string]string{"status": "SUSPENDED"}, &updated))
	assert.Equal(t, "SUSPENDED", updated.Status)
	require.NoError(t, client.Post(ctx, sess, "/applications/a1/approve", nil, nil))
	require.NoError(t, client.Delete(ctx, sess, "/courses/c1"))

	require.Len(t, *calls, 3)
	assert.Equal(t, http.MethodPatch, (*calls)[0].method)
	assert.Equal(t, "SUSPENDED", (*calls)[0].body["status"])
	assert.Equal(t, http.MethodPost, (*calls)[1].method)
	assert.Equal(t, http.MethodDelete, (*calls)[2].method)
	for _, call := range *calls {
		assert.Equal(t, "Bearer tok", call.auth)
	}
}

func TestClient_mutations_withoutToken(t *testing.T) {
	client, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	for _, sess := range []*session.Session{nil, {}} {
		assert.Equal(t, core.ErrNotAuthenticated, client.Patch(ctx, sess, "/students/s1", nil, nil))
		assert.Equal(t, core.ErrNotAuthenticated, client.Post(ctx, sess, "/applications/a1/reject", nil, nil))
		assert.Equal(t, core.ErrNotAuthenticated, client.Delete(ctx, sess, "/courses/c1"))
	}
	assert.Empty(t, *calls, "no request may be issued without a token")

	require.NoError(t, client.PostPublic(ctx, "/admissions", map[string]string{"first_name": "Amani"}, nil))
	assert.Len(t, *calls, 1)
}

func TestClient_Get(t *testing.T) {
	client, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/courses/c1" {
			writeJSON(w, http.StatusOK, `{"data":{"id":"c1","title":"Algebra"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"c2","title":"Biology"}`)
	})
	sess := &session.Session{AccessToken: "tok"}

	var wrapped, bare course
	require.NoError(t, client.Get(context.Background(), sess, "/courses/c1", &wrapped))
	require.NoError(t, client.Get(context.Background(), sess, "/courses/c2", &bare))
	assert.Equal(t, course{ID: "c1", Title: "Algebra"}, wrapped)
	assert.Equal(t, course{ID: "c2", Title: "Biology"}, bare)
	assert.Equal(t, "Bearer tok", (*calls)[0].auth)

	err := client.Get(context.Background(), &session.Session{}, "/courses/c1", &bare)
	assert.Equal(t, core.ErrNotAuthenticated, err)
	assert.Len(t, *calls, 2)
}
