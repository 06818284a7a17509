package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/pkg/logging"
	"github.com/Skotchmaster/device_store/pkg/tokens"
)

const userKey = "user"

const (
	MsgHeaderMalformed = "user is not authorized (malformed Authorization header)"
	MsgTokenMissing    = "user is not authorized (token missing)"
	MsgTokenInvalid    = "user is not authorized (invalid token)"
	MsgTokenExpired    = "user is not authorized (token expired)"
	MsgTokenIncomplete = "user is not authorized (incomplete token data)"
	MsgTokenFailed     = "user is not authorized (token processing failed)"
	MsgNoIdentity      = "user data or role missing"
	MsgForbidden       = "access denied: insufficient permissions"
)

type ClaimsParser interface {
	ClaimsFromToken(token string) (*tokens.Claims, error)
}

type Gate struct {
	Tokens ClaimsParser
}

func NewGate(p ClaimsParser) *Gate {
	return &Gate{Tokens: p}
}

// Authenticate verifies the bearer token and stores the caller identity on the context.
func (g *Gate) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}
		l := logging.FromContext(c.Request().Context()).With("mw", "authenticate")

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			l.Warn("auth_failed", "status", 401, "reason", "malformed header")
			return echo.NewHTTPError(http.StatusUnauthorized, MsgHeaderMalformed)
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if raw == "" {
			l.Warn("auth_failed", "status", 401, "reason", "token missing")
			return echo.NewHTTPError(http.StatusUnauthorized, MsgTokenMissing)
		}

		claims, err := g.Tokens.ClaimsFromToken(raw)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "error", err)
			switch {
			case errors.Is(err, tokens.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, MsgTokenExpired)
			case errors.Is(err, tokens.ErrMissingRole):
				return echo.NewHTTPError(http.StatusUnauthorized, MsgTokenIncomplete)
			case errors.Is(err, tokens.ErrTokenInvalid):
				return echo.NewHTTPError(http.StatusUnauthorized, MsgTokenInvalid)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, MsgTokenFailed)
			}
		}

		setUserContext(c, claims)
		return next(c)
	}
}

// Authorize admits only callers whose role equals role exactly.
func Authorize(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}
			l := logging.FromContext(c.Request().Context()).With("mw", "authorize")

			claims, ok := UserFromContext(c)
			if !ok || claims.Role == "" {
				l.Warn("authorize_failed", "status", 401, "reason", "no identity")
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNoIdentity)
			}
			if claims.Role != role {
				l.Warn("authorize_failed", "status", 403, "required", role, "got", claims.Role, "user_id", claims.ID)
				return echo.NewHTTPError(http.StatusForbidden, MsgForbidden)
			}
			return next(c)
		}
	}
}

func UserFromContext(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(userKey).(*tokens.Claims)
	return claims, ok && claims != nil
}

func setUserContext(c echo.Context, claims *tokens.Claims) {
	c.Set(userKey, claims)
}
