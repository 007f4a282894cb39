package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

// Recovery converts panics into 500 responses, logging the request id and
// acting user so a crash can be tied back to a single workflow call.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					evt := logger.Error().
						Str("panic", fmt.Sprintf("%v", r)).
						Str("method", c.Request().Method).
						Str("path", c.Request().URL.Path).
						Str("stack", string(stack[:n]))
					if rid, ok := c.Get("request_id").(string); ok && rid != "" {
						evt = evt.Str("request_id", rid)
					}
					if actor := auth.UserIDFromContext(c.Request().Context()); actor != "" {
						evt = evt.Str("actor", actor)
					}
					evt.Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}
