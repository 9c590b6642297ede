package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/admission"
)

func Test_publicApi_feeds(t *testing.T) {
	app := setup(t)

	t.Run("events", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/public/events?search=open&page=2&page_size=4", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view viewData
		decode(t, rec, &view)
		assert.Len(t, view.Items, 2)
		assert.Equal(t, 6, view.Total)
		assert.Equal(t, 2, view.TotalPages)
		assert.Equal(t, 2, view.Page)

		calls := app.backend.CallsTo(http.MethodGet, "/events")
		require.Len(t, calls, 1)
		assert.Equal(t, "open", calls[0].Query.Get("search"))
		assert.Equal(t, "2", calls[0].Query.Get("page"))
		assert.Equal(t, "4", calls[0].Query.Get("limit"))
		assert.Empty(t, calls[0].Token)
	})

	t.Run("news", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/public/news", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view viewData
		decode(t, rec, &view)
		assert.Equal(t, []string{"n1"}, view.ids())
		assert.Equal(t, 9, view.PageSize)
	})

	t.Run("page past the end serves the last page", func(t *testing.T) {
		before := len(app.backend.CallsTo(http.MethodGet, "/events"))
		rec := app.do(http.MethodGet, "/v1/public/events?page=9&page_size=4", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view viewData
		decode(t, rec, &view)
		assert.Equal(t, 4, view.Page)
		assert.Equal(t, 4, view.TotalPages)
		assert.Equal(t, 15, view.Total)
		assert.Equal(t, []string{"Sports daya", "Sports dayb", "Sports dayc"}, view.ids())

		calls := app.backend.CallsTo(http.MethodGet, "/events")[before:]
		require.Len(t, calls, 2)
		assert.Equal(t, "9", calls[0].Query.Get("page"))
		assert.Equal(t, "4", calls[1].Query.Get("page"))
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "unknown filter",
			method:   http.MethodGet,
			path:     "/v1/public/news?filter.status=x",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"filter.status":"unknown filter"}`),
		},
		{
			name:     "page size",
			method:   http.MethodGet,
			path:     "/v1/public/events?page_size=0",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"page_size":"must be between 1 and 50"}`),
		},
	})
}

func Test_publicApi_admissions(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/public/admissions", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var draft admission.Draft
	decode(t, rec, &draft)
	assert.Equal(t, admission.StepPersonal, draft.Step)
	path := "/v1/public/admissions/" + draft.ID

	steps := []httpTest{
		{
			name:     "invalid personal data",
			method:   http.MethodPut,
			path:     path + "/personal",
			body:     []byte(`{"first_name":"Paul","last_name":"Tshala","email":"nope","phone":"+243 812 345 678","birth_date":"2001-02-30"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"email must be a valid email address","birth_date":"enter a valid date (YYYY-MM-DD)"}`),
		},
		{
			name:     "locked step",
			method:   http.MethodPut,
			path:     path + "/academic",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "personal",
			method:   http.MethodPut,
			path:     path + "/personal",
			body:     []byte(`{"first_name":"Paul","last_name":"Tshala","email":"paul@test.cd","phone":"+243 812 345 678","birth_date":"2001-02-03"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "academic",
			method:   http.MethodPut,
			path:     path + "/academic",
			body:     []byte(`{"previous_school":"Institut Boboto","diploma":"Diplome d'Etat","graduation_year":2020}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "back",
			method:   http.MethodPost,
			path:     path + "/back",
			wantCode: http.StatusOK,
		},
		{
			name:     "academic again",
			method:   http.MethodPut,
			path:     path + "/academic",
			body:     []byte(`{"previous_school":"Institut Boboto","diploma":"Diplome d'Etat","graduation_year":2020}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "program",
			method:   http.MethodPut,
			path:     path + "/program",
			body:     []byte(`{"program_id":"p1","start_term":"FALL"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "submit without accepting the terms",
			method:   http.MethodPost,
			path:     path + "/submit",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"review.accept_terms":"this field is required"}`),
		},
		{
			name:     "review",
			method:   http.MethodPut,
			path:     path + "/review",
			body:     []byte(`{"accept_terms":true}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "submit",
			method:   http.MethodPost,
			path:     path + "/submit",
			wantCode: http.StatusOK,
		},
		{
			name:     "submitted drafts are read-only",
			method:   http.MethodPost,
			path:     path + "/back",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown draft",
			method:   http.MethodGet,
			path:     "/v1/public/admissions/lol",
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: admission.ErrNotFound.Error()}),
		},
	}
	runHTTPTests(t, app, steps)

	rec = app.do(http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &draft)
	assert.True(t, draft.Submitted)
	assert.Equal(t, "ADM-2026-0001", draft.Reference)

	require.Len(t, app.backend.CallsTo(http.MethodPost, "/admissions"), 1)
	msgs := app.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "paul@test.cd", msgs[0].To[0].Address)
}
