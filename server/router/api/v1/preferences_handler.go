package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	svcerrors "github.com/newsroomhq/newsdesk/server/internal/errors"
	"github.com/newsroomhq/newsdesk/server/internal/observability"
	"github.com/newsroomhq/newsdesk/server/middleware"
	"github.com/newsroomhq/newsdesk/server/service/preferences"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetPreferences returns the merged preference document for a session.
func (s *APIV1Service) GetPreferences(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("sessionID")
	callerID, _ := middleware.CallerIDFromContext(ctx)
	reqCtx := observability.NewRequestContext(s.logger, sessionID, callerID)

	doc, err := s.PreferencesService.FindOne(ctx, sessionID)
	if err != nil {
		return s.renderError(c, reqCtx, "failed to fetch preferences", err)
	}

	reqCtx.Debug("fetched preferences", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, doc)
}

// UpdatePreferences applies a partial preference update for a session. Only
// the session's owner may update it.
func (s *APIV1Service) UpdatePreferences(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("sessionID")
	callerID, ok := middleware.CallerIDFromContext(ctx)
	reqCtx := observability.NewRequestContext(s.logger, sessionID, callerID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Code:    string(svcerrors.ErrCodePermissionDenied),
			Message: "authentication required",
		})
	}

	authorized, err := s.PreferencesService.IsAuthorized(ctx, callerID, sessionID)
	if err != nil {
		return s.renderError(c, reqCtx, "failed to check session ownership", err)
	}
	if !authorized {
		reqCtx.Warn("caller does not own session")
		return c.JSON(http.StatusForbidden, errorResponse{
			Code:    string(svcerrors.ErrCodePermissionDenied),
			Message: "cannot update another user's session preferences",
		})
	}

	req := &preferences.UpdateRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code:    string(svcerrors.ErrCodeInvalidArgument),
			Message: "malformed request body",
		})
	}

	doc, err := s.PreferencesService.Update(ctx, sessionID, req)
	if err != nil {
		return s.renderError(c, reqCtx, "failed to update preferences", err)
	}

	reqCtx.Info("updated preferences", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, doc)
}

// renderError maps service error codes onto HTTP statuses.
func (s *APIV1Service) renderError(c echo.Context, reqCtx *observability.RequestContext, msg string, err error) error {
	code := svcerrors.GetCodeFromError(err, svcerrors.ErrCodeInternal)

	status := http.StatusInternalServerError
	switch code {
	case svcerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case svcerrors.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	case svcerrors.ErrCodePermissionDenied:
		status = http.StatusForbidden
	case svcerrors.ErrCodeConflict:
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		reqCtx.Error(msg, err)
	} else {
		reqCtx.Debug(msg, slog.String(observability.LogFieldErrorCode, string(code)))
	}

	message := msg
	if svcErr, ok := err.(*svcerrors.ServiceError); ok {
		message = svcErr.Message
	}
	return c.JSON(status, errorResponse{Code: string(code), Message: message})
}
