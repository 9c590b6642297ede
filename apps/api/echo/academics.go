package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/listview"
	"github.com/trezcool/academia/core/mutation"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/services/backend"
)

type academicsApi struct {
	backend     *backend.Client
	catalog     school.Catalog
	validate    *validator.Validate
	maxPageSize int
}

func registerAcademicsAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *server) {
	api := academicsApi{
		backend:     s.deps.Backend,
		catalog:     s.deps.Catalog,
		validate:    s.deps.Validate,
		maxPageSize: s.deps.Conf.ListView.MaxPageSize,
	}

	ag := g.Group("", authed...)

	// drill-down
	ag.GET("/departments/:id/programs", api.departmentPrograms)
	ag.GET("/programs/:id/students", api.programStudents)

	// actions
	ag.POST("/applications/:id/:decision", api.reviewApplication, adminMiddleware())
	ag.PATCH("/students/:id/status", api.setStudentStatus, adminMiddleware())
	for _, entity := range api.catalog.Names() {
		ag.DELETE("/"+entity+"/:id", api.destroy(entity), adminMiddleware())
	}
}

// Handlers

func (api *academicsApi) departmentPrograms(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if !school.Programs.Allowed(sess.User()) {
		return errHttpForbidden
	}
	q, err := api.bindQuery(ctx, school.Programs.PageSize, school.Programs.Engine.HasFilter)
	if err != nil {
		return err
	}

	programs, err := school.Programs.FetchAll(api.backend, sess)(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "fetching programs")
	}
	programs = school.ProgramsOf(programs, ctx.Param("id"))
	return ctx.JSON(http.StatusOK, school.Programs.Engine.Run(programs, q))
}

func (api *academicsApi) programStudents(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if !school.Students.Allowed(sess.User()) {
		return errHttpForbidden
	}
	q, err := api.bindQuery(ctx, school.Students.PageSize, school.Students.Engine.HasFilter)
	if err != nil {
		return err
	}

	students, err := school.Students.FetchAll(api.backend, sess)(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "fetching students")
	}
	students = school.StudentsOf(students, ctx.Param("id"))
	return ctx.JSON(http.StatusOK, school.Students.Engine.Run(students, q))
}

// reviewApplication approves or rejects a pending application.
// The new status is only shown once the backend has accepted the decision.
func (api *academicsApi) reviewApplication(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	decision, err := school.ParseDecision(ctx.Param("decision"))
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	path := "/applications/" + ctx.Param("id")
	var app school.Application
	if err = api.backend.Get(reqCtx, sess, path, &app); err != nil {
		return errors.Wrap(err, "getting application")
	}
	reviewed, err := school.Review(app, decision)
	if err != nil {
		return err
	}

	m := mutation.Begin(app, reviewed)
	if err = api.backend.Post(reqCtx, sess, path+"/"+string(decision), nil, nil); err != nil {
		m.Rollback(err)
		return errors.Wrapf(err, "%s application", decision)
	}
	m.Confirm()
	return ctx.JSON(http.StatusOK, MutationResponse{State: m.State(), Record: m.Current()})
}

func (api *academicsApi) setStudentStatus(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data StatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	path := "/students/" + ctx.Param("id")
	var student school.Student
	if err = api.backend.Get(reqCtx, sess, path, &student); err != nil {
		return errors.Wrap(err, "getting student")
	}
	changed := student
	changed.Status = data.Status

	current, err := mutation.Run(reqCtx, student, changed, func(ctx context.Context) error {
		return api.backend.Patch(ctx, sess, path, StatusRequest{Status: data.Status}, nil)
	})
	if err != nil {
		return errors.Wrap(err, "updating student status")
	}
	return ctx.JSON(http.StatusOK, MutationResponse{State: mutation.Confirmed, Record: current})
}

// destroy deletes records of entity. Entities that cannot be deleted answer 403.
func (api *academicsApi) destroy(entity string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := getContextSession(ctx)
		if err != nil {
			return err
		}
		if !school.Deletable(entity) {
			return errHttpForbidden
		}

		if err = api.backend.Delete(ctx.Request().Context(), sess, "/"+entity+"/"+ctx.Param("id")); err != nil {
			return errors.Wrapf(err, "deleting from %s", entity)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

// bindQuery reads the list query of a drill-down list from the query string.
func (api *academicsApi) bindQuery(ctx echo.Context, pageSize int, hasFilter func(string) bool) (listview.Query, error) {
	var query ListQuery
	if err := query.Bind(ctx); err != nil {
		return listview.Query{}, err
	}
	if err := query.Validate(api.validate, api.maxPageSize); err != nil {
		return listview.Query{}, err
	}
	return query.Query(pageSize, hasFilter)
}

// Requests & Responses

type (
	StatusRequest struct {
		Status string `json:"status" validate:"required"`
	}

	MutationResponse struct {
		State  mutation.State `json:"state"`
		Record interface{}    `json:"record"`
	}
)

func (sr *StatusRequest) Validate(validate *validator.Validate) error {
	sr.Status = core.CleanString(sr.Status)
	if err := validate.Struct(sr); err != nil {
		return err
	}
	return school.ValidateStudentStatus(sr.Status)
}
