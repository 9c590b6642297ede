package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/menu"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/backend"
)

type authApi struct {
	conf     *core.Config
	backend  *backend.Client
	sessions *session.Manager
	pages    *page.Registry
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *server) {
	api := authApi{
		conf:     s.deps.Conf,
		backend:  s.deps.Backend,
		sessions: s.deps.Sessions,
		pages:    s.deps.Pages,
		validate: s.deps.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/logout", api.logout, authed...)
	ag.GET("/me", api.me, authed...)
	g.GET("/menu", api.menu, authed...)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	accessToken, profile, err := api.backend.Login(reqCtx, data.Username, data.Password)
	if err != nil {
		if backend.IsStatus(err, http.StatusUnauthorized) || backend.IsStatus(err, http.StatusBadRequest) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "logging in")
	}
	if !profile.Active() {
		return errAccountDeactivated
	}

	sess, err := api.sessions.Open(reqCtx, accessToken, profile)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	token, err := GenerateToken(api.conf, GetSessionClaims(api.conf, sess))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: profile})
}

func (api *authApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	api.pages.RemoveOwner(sess.ID)
	if err = api.sessions.Close(ctx.Request().Context(), sess.ID); err != nil {
		return errors.Wrap(err, "closing session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.User())
}

func (api *authApi) menu(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, menu.For(sess.User()))
}

// Requests & Responses

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
