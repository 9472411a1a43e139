// Package middleware carries the echo middleware shared by API routes:
// caller identity extraction, request logging, and per-caller rate limiting.
package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
)

type callerIDKey struct{}

// WithCallerID returns a context carrying the authenticated caller's user id.
func WithCallerID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerIDKey{}, userID)
}

// CallerIDFromContext returns the authenticated caller's user id, if any.
func CallerIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(callerIDKey{}).(string)
	return userID, ok && userID != ""
}

// CallerContext folds the caller identity asserted by the upstream auth
// layer (via the configured header) into the request context. Authentication
// itself happens upstream; this module only consumes the result.
func CallerContext(header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID := c.Request().Header.Get(header); userID != "" {
				ctx := WithCallerID(c.Request().Context(), userID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
