package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/backend"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/admission/inmem"
	sessionstore "github.com/trezcool/academia/storage/session/inmem"
	"github.com/trezcool/academia/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errUnauthorized = httpErr{Error: "user not authenticated"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}

	admin   = user.User{ID: "u1", Name: "Admin", Username: "admin", Email: "admin@test.cd", Roles: []string{user.RoleAdmin}}
	teacher = user.User{ID: "u2", Name: "Teacher", Username: "teacher", Email: "teacher@test.cd", Roles: []string{user.RoleTeacher}}
	student = user.User{ID: "u3", Name: "Student", Username: "student", Email: "student@test.cd", Roles: []string{user.RoleStudent}}
	naughty = user.User{ID: "u4", Name: "N Dog", Username: "ndog", Email: "ndog@test.cd", Roles: []string{user.RoleStudent}, IsActive: boolPtr(false)} // 😂
)

const password = "passw0rd"

type testApp struct {
	Server
	conf     *core.Config
	backend  *testutil.Backend
	pages    *page.Registry
	sessions *session.Manager
	mailer   *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testApp {
	fake := testutil.NewBackend(t)
	for _, usr := range []user.User{admin, teacher, student, naughty} {
		fake.AddUser(usr.Username, password, usr)
	}
	seed(fake)

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Academia",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			MountWait:          2 * time.Second,
		},
		ListView: core.ListViewConfig{DefaultPageSize: 10, MaxPageSize: 50, DebounceDelay: 20 * time.Millisecond},
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	client := backend.New(fake.URL, 5*time.Second)
	mailer := emailsvc.NewConsoleServiceMock(conf)
	sessions := session.NewManager(sessionstore.NewStore(), time.Hour)
	pages := page.NewRegistry()
	rlog := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	rlog.Enable(false)

	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         rlog,
		Backend:        client,
		Sessions:       sessions,
		Pages:          pages,
		Catalog:        school.NewCatalog(conf.ListView.DebounceDelay),
		Admissions:     admission.NewService(inmem.NewStore(), client, mailer, validate, translator),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &testApp{Server: srv, conf: conf, backend: fake, pages: pages, sessions: sessions, mailer: mailer}
}

func seed(b *testutil.Backend) {
	b.SetCollection("departments",
		testutil.Record{"id": "d1", "name": "Sciences", "code": "SCI", "head": "Dr. Mbuyi"},
		testutil.Record{"id": "d2", "name": "Law", "code": "LAW", "head": nil},
	)
	b.SetCollection("programs",
		testutil.Record{"id": "p1", "name": "Computer Science", "code": "CS", "department_id": "d1", "department_name": "Sciences", "level": "BACHELOR", "status": "ACTIVE"},
		testutil.Record{"id": "p2", "name": "Mathematics", "code": "MATH", "department_id": "d1", "department_name": "Sciences", "level": "MASTER", "status": "ACTIVE"},
		testutil.Record{"id": "p3", "name": "Business Law", "code": "BL", "department_id": "d2", "department_name": "Law", "level": "BACHELOR", "status": "ACTIVE"},
	)
	b.SetCollection("students",
		testutil.Record{"id": "s1", "student_number": "2026-001", "first_name": "Jane", "last_name": "Smith", "program_id": "p1", "program_name": "Computer Science", "year": 1, "status": "ACTIVE"},
		testutil.Record{"id": "s2", "student_number": "2026-002", "first_name": "John", "last_name": "Kabila", "program_id": "p1", "program_name": "Computer Science", "year": 2, "status": "SUSPENDED"},
		testutil.Record{"id": "s3", "student_number": "2026-003", "first_name": "Grace", "last_name": "Ilunga", "program_id": "p3", "program_name": "Business Law", "year": 1, "status": "ACTIVE"},
	)
	b.SetCollection("courses",
		testutil.Record{"id": "c1", "code": "CS101", "title": "Algorithms", "program_id": "p1", "program_name": "Computer Science", "semester": "S1", "credits": 6, "status": "ACTIVE"},
	)
	b.SetCollection("applications",
		testutil.Record{"id": "a1", "reference": "ADM-001", "first_name": "Paul", "last_name": "Tshala", "email": "paul@test.cd", "program_id": "p1", "program_name": "Computer Science", "status": "PENDING"},
		testutil.Record{"id": "a2", "reference": "ADM-002", "first_name": "Marie", "last_name": "Kasa", "email": "marie@test.cd", "program_id": "p3", "program_name": "Business Law", "status": "APPROVED"},
	)
	b.SetCollection("users")
	events := make([]testutil.Record, 0, 15)
	for i, title := range []string{"Open day", "Graduation", "Open lab", "Hackathon", "Sports day"} {
		for j := 0; j < 3; j++ {
			events = append(events, testutil.Record{
				"id":       title + string(rune('a'+j)),
				"title":    title,
				"category": []string{"academic", "social", "sports"}[i%3],
				"status":   "SCHEDULED",
			})
		}
	}
	b.SetCollection("events", events...)
	b.SetCollection("news",
		testutil.Record{"id": "n1", "title": "Campus reopens", "category": "campus"},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func boolPtr(b bool) *bool { return &b }

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves one request and returns the recorder.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

// login logs usr in through the API and returns the API token.
func (app *testApp) login(t *testing.T, usr user.User) string {
	rec := app.do(http.MethodPost, "/v1/auth/login", "", marshalObj(t, LoginRequest{Username: usr.Username, Password: password}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
