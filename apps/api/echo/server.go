package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/services/backend"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Backend        *backend.Client
		Sessions       *session.Manager
		Pages          *page.Registry
		Catalog        school.Catalog
		Admissions     *admission.Service
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps      ServerDeps
		app       *echo.Echo
		jwtConfig middleware.JWTConfig
		// pages outlive the request that mounts them
		baseCtx  context.Context
		cancel   context.CancelFunc
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &server{
		deps:     deps,
		app:      echo.New(),
		baseCtx:  baseCtx,
		cancel:   cancel,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.jwtConfig = newJWTConfig(conf)
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(s.jwtConfig),
		sessionMiddleware(s.deps.Sessions, s.deps.Pages),
	}

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	registerAuthAPI(v1, authed, s)
	registerPageAPI(v1, authed, s)
	registerAcademicsAPI(v1, authed, s)
	registerAnalyticsAPI(v1, authed, s)
	registerPublicAPI(v1, s)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown stops the server gracefully and unmounts every page.
func (s *server) Shutdown(ctx context.Context) error {
	defer s.cancel()
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	defer s.cancel()
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Academia API!")
}
