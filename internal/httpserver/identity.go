package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/device_store/pkg/middleware/auth"
	"github.com/Skotchmaster/device_store/pkg/tokens"
)

func currentUser(c echo.Context) (*tokens.Claims, error) {
	claims, ok := authmw.UserFromContext(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, authmw.MsgNoIdentity)
	}
	return claims, nil
}

func parseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 0)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
