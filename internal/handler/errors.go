package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// NewHTTPErrorHandler returns the server-wide echo error handler. Unknown
// routes answer a JSON 404 naming the path, echo errors keep their status, and
// anything else is logged and answered with a generic 500.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		req := c.Request()

		if c.Response().Committed {
			logger.Error("error after response started",
				"err", err,
				"method", req.Method,
				"url", req.URL.Path,
			)
			return
		}

		code := http.StatusInternalServerError
		var body any

		var he *echo.HTTPError
		switch {
		case errors.As(err, &he) && he.Code == http.StatusNotFound:
			code = he.Code
			body = map[string]string{
				"error": "Not found",
				"path":  req.URL.Path,
			}
		case errors.As(err, &he):
			code = he.Code
			body = map[string]string{
				"error":   http.StatusText(he.Code),
				"message": fmt.Sprint(he.Message),
			}
		default:
			logger.Error("unhandled error",
				"err", err,
				"method", req.Method,
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", req.UserAgent(),
			)
			body = map[string]string{
				"error":   "Internal server error",
				"message": "An unexpected error occurred",
			}
		}

		var werr error
		if req.Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, body)
		}
		if werr != nil {
			logger.Error("writing error response", "err", werr)
		}
	}
}
