package echoapi

import (
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/listview"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/services/backend"
)

type publicApi struct {
	backend     *backend.Client
	admissions  *admission.Service
	validate    *validator.Validate
	maxPageSize int
}

func registerPublicAPI(g *echo.Group, s *server) {
	api := publicApi{
		backend:     s.deps.Backend,
		admissions:  s.deps.Admissions,
		validate:    s.deps.Validate,
		maxPageSize: s.deps.Conf.ListView.MaxPageSize,
	}

	pg := g.Group("/public")

	// feeds
	pg.GET("/events", feed(&api, school.Events))
	pg.GET("/news", feed(&api, school.News))

	// admission wizard
	ag := pg.Group("/admissions")
	ag.POST("", api.startAdmission)
	ag.GET("/:id", api.getAdmission)
	ag.PUT("/:id/:step", api.saveAdmissionStep)
	ag.POST("/:id/back", api.admissionBack)
	ag.POST("/:id/submit", api.submitAdmission)
}

// Handlers

// feed serves one server-side page of list. The query string is forwarded as
// search, filter, page and limit parameters.
func feed[T any](api *publicApi, list school.List[T]) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var query ListQuery
		if err := query.Bind(ctx); err != nil {
			return err
		}
		if err := query.Validate(api.validate, api.maxPageSize); err != nil {
			return err
		}
		q, err := query.Query(list.PageSize, list.Engine.HasFilter)
		if err != nil {
			return err
		}

		fetch := list.FetchPage(api.backend, nil)
		items, total, err := fetch(ctx.Request().Context(), page.Params(q))
		if err != nil {
			return errors.Wrapf(err, "fetching %s", list.Name)
		}
		if total < len(items) {
			total = len(items)
		}
		// past the last page: serve the last page instead
		if last := listview.TotalPages(total, q.PageSize); q.Page > last {
			q.Page = last
			if items, _, err = fetch(ctx.Request().Context(), page.Params(q)); err != nil {
				return errors.Wrapf(err, "fetching %s", list.Name)
			}
		}
		return ctx.JSON(http.StatusOK, listview.Result[T]{
			Items:      items,
			Page:       q.Page,
			PageSize:   q.PageSize,
			TotalPages: listview.TotalPages(total, q.PageSize),
			Stats: listview.Stats{
				Total:         total,
				FilteredCount: total,
				FilterOptions: map[string][]string{},
			},
		})
	}
}

func (api *publicApi) startAdmission(ctx echo.Context) error {
	draft, err := api.admissions.Start(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "starting admission")
	}
	return ctx.JSON(http.StatusCreated, draft)
}

func (api *publicApi) getAdmission(ctx echo.Context) error {
	draft, err := api.admissions.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting admission")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *publicApi) saveAdmissionStep(ctx echo.Context) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading body")
	}
	draft, err := api.admissions.SaveStep(ctx.Request().Context(), ctx.Param("id"), ctx.Param("step"), raw)
	if err != nil {
		return errors.Wrap(err, "saving admission step")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *publicApi) admissionBack(ctx echo.Context) error {
	draft, err := api.admissions.Back(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "going back")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *publicApi) submitAdmission(ctx echo.Context) error {
	draft, err := api.admissions.Submit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "submitting admission")
	}
	return ctx.JSON(http.StatusOK, draft)
}
