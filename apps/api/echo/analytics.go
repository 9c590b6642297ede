package echoapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/services/backend"
)

type analyticsApi struct {
	backend *backend.Client
	charts  map[string]analytics.Chart
}

func registerAnalyticsAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *server) {
	api := analyticsApi{
		backend: s.deps.Backend,
		charts:  analytics.Charts,
	}

	ag := g.Group("/analytics", append(authed, adminMiddleware())...)
	ag.GET("", api.list)
	ag.GET("/:chart", api.compute)
}

// Handlers

func (api *analyticsApi) list(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	charts := make([]ChartResponse, 0, len(api.charts))
	for _, c := range api.charts {
		if c.Allowed(sess.User()) {
			charts = append(charts, ChartResponse{Name: c.Name, Title: c.Title, Entity: c.Entity})
		}
	}
	sort.Slice(charts, func(i, j int) bool { return charts[i].Name < charts[j].Name })
	return ctx.JSON(http.StatusOK, charts)
}

func (api *analyticsApi) compute(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	c, ok := api.charts[ctx.Param("chart")]
	if !ok {
		return errHttpNotFound
	}
	if !c.Allowed(sess.User()) {
		return errHttpForbidden
	}

	series, err := c.Compute(ctx.Request().Context(), api.backend, sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, series)
}

// Responses

type ChartResponse struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Entity string `json:"entity"`
}
