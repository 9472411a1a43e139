package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallerContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Newsdesk-User", "user1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID string
	var gotOK bool
	handler := CallerContext("X-Newsdesk-User")(func(c echo.Context) error {
		gotID, gotOK = CallerIDFromContext(c.Request().Context())
		return nil
	})

	require.NoError(t, handler(c))
	assert.True(t, gotOK)
	assert.Equal(t, "user1", gotID)
}

func TestCallerContextMissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := CallerContext("X-Newsdesk-User")(func(c echo.Context) error {
		_, ok := CallerIDFromContext(c.Request().Context())
		assert.False(t, ok)
		return nil
	})

	require.NoError(t, handler(c))
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter()
	handler := RateLimit(rl)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	var lastErr error
	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodPatch, "/", nil)
		req = req.WithContext(WithCallerID(req.Context(), "user1"))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := handler(c); err != nil {
			lastErr = err
		}
	}

	require.Error(t, lastErr)
	httpErr, ok := lastErr.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}
