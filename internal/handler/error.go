package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/simplestock/backend/internal/apperror"
)

// NewHTTPErrorHandler maps errors onto the stable {status, message} envelope.
// Typed apperror values carry their own status; anything else is a 500.
// Causes are exposed under "details" only outside production.
func NewHTTPErrorHandler(env string) echo.HTTPErrorHandler {
	dev := env != "prod"
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := echo.Map{"status": "error", "message": "Internal Server Error"}

		var ae *apperror.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = ae.Status
			body["message"] = ae.Message
			if dev && ae.Unwrap() != nil {
				body["details"] = ae.Unwrap().Error()
			}
		case errors.As(err, &he):
			status = he.Code
			body["message"] = fmt.Sprint(he.Message)
		default:
			if dev {
				body["details"] = err.Error()
			}
		}

		if status >= http.StatusInternalServerError {
			c.Logger().Error(err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
