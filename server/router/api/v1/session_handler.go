package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	svcerrors "github.com/newsroomhq/newsdesk/server/internal/errors"
	"github.com/newsroomhq/newsdesk/server/internal/observability"
	"github.com/newsroomhq/newsdesk/server/middleware"
	"github.com/newsroomhq/newsdesk/store"
)

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

type createSessionResponse struct {
	ID     string `json:"_id"`
	UserID string `json:"user"`
}

// CreateSession registers a session for a user and initializes its preference
// state. It is called by the auth layer once per login; the full session
// lifecycle (expiry, refresh, logout) lives there, not here.
func (s *APIV1Service) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	callerID, _ := middleware.CallerIDFromContext(ctx)

	req := &createSessionRequest{}
	if err := c.Bind(req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code:    string(svcerrors.ErrCodeInvalidArgument),
			Message: "user_id is required",
		})
	}

	session, err := s.Store.CreateSession(ctx, &store.Session{
		ID:     uuid.New().String(),
		UserID: req.UserID,
	})
	if err != nil {
		reqCtx := observability.NewRequestContext(s.logger, "", callerID)
		return s.renderError(c, reqCtx, "failed to create session", err)
	}

	if err := s.PreferencesService.SetSessionBasedPrefs(ctx, session.ID, session.UserID); err != nil {
		reqCtx := observability.NewRequestContext(s.logger, session.ID, callerID)
		return s.renderError(c, reqCtx, "failed to initialize session preferences", err)
	}

	return c.JSON(http.StatusCreated, createSessionResponse{ID: session.ID, UserID: session.UserID})
}
