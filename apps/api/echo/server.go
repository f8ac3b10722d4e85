package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/notice"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/setup"
	"github.com/trezcool/educonnect/core/user"
)

type (
	// Deps holds the services the API is built upon.
	Deps struct {
		Conf        *core.Config
		Logger      core.Logger
		Validator   *core.Validator
		UserSvc     *user.Service
		ProfileSvc  *profile.Service
		DocumentSvc *document.Service
		AdviceSvc   *advice.Service
		NoticeSvc   *notice.Service
		GradeSvc    *grade.Service
		SetupSvc    *setup.Service
		Authorizer  *access.Authorizer
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
		deps     *Deps
		address  string
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer returns an API Server listening on address.
// shutdown receives the OS signals that stop the server; it is also signaled on fatal app errors.
func NewServer(address string, shutdown chan os.Signal, deps *Deps) Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &server{
		deps:     deps,
		address:  address,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(metricsMiddleware())
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := newAuthenticator(conf, s.deps.UserSvc)
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(auth.jwtConfig()),
		userMiddleware(s.deps.UserSvc),
	}

	v1 := s.app.Group("/v1")
	registerSetupAPI(v1, authed, s.deps.SetupSvc)
	registerUserAPI(v1, authed, auth, s.deps.UserSvc, s.deps.Authorizer, s.deps.Validator, s.deps.Logger)
	registerProfileAPI(v1, authed, s.deps.ProfileSvc, s.deps.Authorizer)
	registerDocumentAPI(v1, authed, s.deps.DocumentSvc, s.deps.Authorizer)
	registerNoticeAPI(v1, authed, s.deps.NoticeSvc, s.deps.Authorizer)
	registerGradeAPI(v1, authed, s.deps.GradeSvc, s.deps.Authorizer)
	registerAdviceAPI(v1, authed, s.deps.AdviceSvc, s.deps.GradeSvc, s.deps.Validator)
	registerReportAPI(v1, authed, s.deps.UserSvc, s.deps.DocumentSvc, s.deps.Authorizer)
}

func (s *server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// signalShutdown asks for a graceful shutdown, unless one is already pending.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
