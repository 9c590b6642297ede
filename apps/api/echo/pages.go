package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/services/backend"
)

type pageApi struct {
	baseCtx     context.Context
	backend     *backend.Client
	pages       *page.Registry
	catalog     school.Catalog
	validate    *validator.Validate
	maxPageSize int
	wait        time.Duration
}

func registerPageAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *server) {
	api := pageApi{
		baseCtx:     s.baseCtx,
		backend:     s.deps.Backend,
		pages:       s.deps.Pages,
		catalog:     s.deps.Catalog,
		validate:    s.deps.Validate,
		maxPageSize: s.deps.Conf.ListView.MaxPageSize,
		wait:        s.deps.Conf.Server.MountWait,
	}

	// echo keeps the param names of the first route registered on a node: all three share :id
	pg := g.Group("/pages", authed...)
	pg.POST("/:id", api.mount)
	pg.GET("/:id", api.view)
	pg.DELETE("/:id", api.unmount)
}

// Handlers

// mount creates a list page of the entity named by the :id segment and starts its fetch.
// The response waits for the fetch up to the configured mount wait, after which the view is still LOADING.
func (api *pageApi) mount(ctx echo.Context) error {
	list, ok := api.catalog[ctx.Param("id")]
	if !ok {
		return errHttpNotFound
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if !list.Allowed(sess.User()) {
		return errHttpForbidden
	}

	var data MountRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MountRequest")
	}
	if err = data.Validate(api.validate, api.maxPageSize); err != nil {
		return err
	}

	p := list.Mount(api.baseCtx, api.backend, sess, data.PageSize)
	id := api.pages.Add(sess.ID, list.Entity(), p)
	api.settle(ctx, p)

	return ctx.JSON(http.StatusCreated, MountResponse{
		ID:      id,
		Entity:  list.Entity(),
		Columns: list.Columns(),
		View:    p.Render(),
	})
}

// view applies the query change of the query string and renders the page.
func (api *pageApi) view(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	p, entity, err := api.pages.Get(sess.ID, ctx.Param("id"))
	if err != nil {
		return err
	}

	var query ListQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}
	if err = query.Validate(api.validate, api.maxPageSize); err != nil {
		return err
	}
	if err = p.Update(query.Update); err != nil {
		return err
	}
	api.settle(ctx, p)

	return ctx.JSON(http.StatusOK, ViewResponse{
		ID:     ctx.Param("id"),
		Entity: entity,
		View:   p.Render(),
	})
}

func (api *pageApi) unmount(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.pages.Remove(sess.ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// settle waits for the pending fetch of p, if any, within the mount wait.
func (api *pageApi) settle(ctx echo.Context, p page.Page) {
	waitCtx, cancel := context.WithTimeout(ctx.Request().Context(), api.wait)
	defer cancel()
	_ = p.Wait(waitCtx) // a page still loading renders as such
}

// Requests & Responses

type (
	MountRequest struct {
		PageSize int `json:"page_size"`
	}

	MountResponse struct {
		ID      string      `json:"id"`
		Entity  string      `json:"entity"`
		Columns []string    `json:"columns"`
		View    interface{} `json:"view"`
	}

	ViewResponse struct {
		ID     string      `json:"id"`
		Entity string      `json:"entity"`
		View   interface{} `json:"view"`
	}
)

// Validate checks the page size; 0 selects the default page size of the list.
func (mr *MountRequest) Validate(validate *validator.Validate, maxPageSize int) error {
	if mr.PageSize == 0 {
		return nil
	}
	return validatePageSize(validate, mr.PageSize, maxPageSize)
}
