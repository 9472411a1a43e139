package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/newsroomhq/newsdesk/internal/profile"
	"github.com/newsroomhq/newsdesk/server/middleware"
	"github.com/newsroomhq/newsdesk/server/service/preferences"
	"github.com/newsroomhq/newsdesk/store"
)

// APIV1Service bundles the handlers for the v1 REST API.
type APIV1Service struct {
	Profile            *profile.Profile
	Store              *store.Store
	PreferencesService *preferences.Service

	logger      *slog.Logger
	rateLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates a new APIV1Service.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, preferencesService *preferences.Service, logger *slog.Logger) *APIV1Service {
	return &APIV1Service{
		Profile:            profile,
		Store:              store,
		PreferencesService: preferencesService,
		logger:             logger,
		rateLimiter:        middleware.NewRateLimiter(),
	}
}

// RegisterRoutes registers the v1 routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	g := echoServer.Group("/api/v1")
	g.Use(middleware.CallerContext(s.Profile.CallerHeader))

	g.GET("/preferences/:sessionID", s.GetPreferences)
	g.PATCH("/preferences/:sessionID", s.UpdatePreferences, middleware.RateLimit(s.rateLimiter))

	g.POST("/sessions", s.CreateSession)
}
