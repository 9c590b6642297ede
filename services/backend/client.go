// Package backend is the client of the remote school REST backend.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

// StatusError is a non-2xx answer of the backend.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, status int) bool {
	serr, ok := errors.Cause(err).(*StatusError)
	return ok && serr.Status == status
}

type Client struct {
	http *resty.Client
}

func NewClient(conf *core.Config) *Client {
	return New(conf.Backend.BaseURL, conf.Backend.Timeout)
}

func New(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: client}
}

// FetchList GETs a collection endpoint. sess may be nil for public endpoints.
func (c *Client) FetchList(ctx context.Context, sess *session.Session, endpoint string, params url.Values) (Collection, error) {
	req := c.request(ctx, sess.Token())
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}

	resp, err := req.Get(endpoint)
	if err != nil {
		return Collection{}, errors.Wrapf(err, "fetching %s", endpoint)
	}
	if err = checkResponse(resp); err != nil {
		return Collection{}, err
	}
	return DecodeCollection(resp.Body())
}

// FetchAll fetches and decodes a collection endpoint.
func FetchAll[T any](ctx context.Context, c *Client, sess *session.Session, endpoint string, params url.Values) ([]T, error) {
	col, err := c.FetchList(ctx, sess, endpoint, params)
	if err != nil {
		return nil, err
	}
	return DecodeItems[T](col)
}

// Login exchanges credentials for a bearer token and the user profile.
func (c *Client) Login(ctx context.Context, username, password string) (string, user.User, error) {
	var profile user.User
	resp, err := c.request(ctx, "").
		SetBody(map[string]string{"username": username, "password": password}).
		Post("/auth/login")
	if err != nil {
		return "", profile, errors.Wrap(err, "logging in")
	}
	if err = checkResponse(resp); err != nil {
		return "", profile, err
	}

	body := gjson.ParseBytes(resp.Body())
	token := body.Get("token").String()
	if token == "" {
		token = body.Get("access_token").String()
	}
	if token == "" {
		return "", profile, errors.New("login response carries no token")
	}
	if raw := body.Get("user"); raw.IsObject() {
		if err = json.Unmarshal([]byte(raw.Raw), &profile); err != nil {
			return "", profile, errors.Wrap(err, "decoding user profile")
		}
	}
	return token, profile, nil
}

// Get reads a single resource on behalf of sess into result. The resource may be wrapped in a `data` object.
func (c *Client) Get(ctx context.Context, sess *session.Session, path string, result interface{}) error {
	var body json.RawMessage
	if err := c.mutate(ctx, sess, http.MethodGet, path, nil, &body); err != nil {
		return err
	}
	return DecodeRecord(body, result)
}

// Post creates a resource on behalf of sess and decodes the answer into result (when not nil).
func (c *Client) Post(ctx context.Context, sess *session.Session, path string, body, result interface{}) error {
	return c.mutate(ctx, sess, http.MethodPost, path, body, result)
}

func (c *Client) Patch(ctx context.Context, sess *session.Session, path string, body, result interface{}) error {
	return c.mutate(ctx, sess, http.MethodPatch, path, body, result)
}

func (c *Client) Delete(ctx context.Context, sess *session.Session, path string) error {
	return c.mutate(ctx, sess, http.MethodDelete, path, nil, nil)
}

// PostPublic posts to an endpoint that needs no session (e.g. admission applications).
func (c *Client) PostPublic(ctx context.Context, path string, body, result interface{}) error {
	return c.send(ctx, "", http.MethodPost, path, body, result)
}

// mutate short-circuits with core.ErrNotAuthenticated when sess holds no token: no request is issued.
// Authenticated reads go through it too.
func (c *Client) mutate(ctx context.Context, sess *session.Session, method, path string, body, result interface{}) error {
	if !sess.Authenticated() {
		return core.ErrNotAuthenticated
	}
	return c.send(ctx, sess.Token(), method, path, body, result)
}

func (c *Client) send(ctx context.Context, token, method, path string, body, result interface{}) error {
	req := c.request(ctx, token)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if err = checkResponse(resp); err != nil {
		return err
	}
	if result != nil && len(resp.Body()) > 0 {
		if err = json.Unmarshal(resp.Body(), result); err != nil {
			return errors.Wrapf(err, "decoding %s %s", method, path)
		}
	}
	return nil
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	return &StatusError{
		Method:  resp.Request.Method,
		Path:    resp.Request.URL,
		Status:  resp.StatusCode(),
		Message: errorMessage(resp),
	}
}

// errorMessage reads the backend's message from the usual error properties, else the status text.
func errorMessage(resp *resty.Response) string {
	body := resp.Body()
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error", "detail", "error.message"} {
			if msg := gjson.GetBytes(body, path); msg.Type == gjson.String && msg.String() != "" {
				return msg.String()
			}
		}
	}
	return http.StatusText(resp.StatusCode())
}
