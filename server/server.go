package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/newsroomhq/newsdesk/internal/profile"
	apiv1 "github.com/newsroomhq/newsdesk/server/router/api/v1"
	"github.com/newsroomhq/newsdesk/server/service/preferences"
	"github.com/newsroomhq/newsdesk/server/service/privilege"
	"github.com/newsroomhq/newsdesk/store"
)

// Server is the HTTP server for the preferences API.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	logger     *slog.Logger
}

// NewServer creates the echo server, wires the preference and privilege
// registries, and registers the v1 routes.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
		logger:  logger,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			logger.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			)
			return nil
		},
	}))
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.TimeoutWithConfig(echomiddleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))

	// Registries are built during this single-threaded setup phase and are
	// read-only once the server starts serving.
	registry := preferences.NewDefaultRegistry()
	actions := privilege.NewDefaultActionRegistry()
	resolver := privilege.NewResolver(store, actions)
	preferencesService := preferences.NewService(store, registry, resolver)

	apiV1Service := apiv1.NewAPIV1Service(profile, store, preferencesService, logger)
	apiV1Service.RegisterRoutes(echoServer)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	s.echoServer = echoServer
	return s, nil
}

// Start begins serving on the configured address. It blocks until the server
// stops.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started", slog.String("address", address), slog.String("version", s.Profile.Version))
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start echo server")
	}
	return nil
}

// Shutdown gracefully stops the server and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", slog.String("error", err.Error()))
	}

	s.logger.Info("server stopped")
}
