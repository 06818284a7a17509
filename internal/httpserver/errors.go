package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/transport"
)

const internalErrorMessage = "Internal server error"

// NewErrorHandler renders every failure as {"message": ...}. In production the
// text of unexpected errors is replaced with a generic message.
func NewErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := internalErrorMessage

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = clampStatus(he.Code)
			msg = httpErrorMessage(he)
		} else if !production && err != nil && err.Error() != "" {
			msg = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, transport.MessageResponse{Message: msg})
		}
		if werr != nil {
			c.Logger().Error(werr)
		}
	}
}

// clampStatus folds everything into 400, 401, 403, 404 and 500.
func clampStatus(code int) int {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusInternalServerError:
		return code
	}
	if code >= 400 && code < 500 {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}

// publicMessage drops the sentinel suffix from a wrapped service error.
func publicMessage(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}
