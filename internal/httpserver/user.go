package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/service"
	"github.com/Skotchmaster/device_store/internal/transport"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

const msgBadCredentials = "invalid email or password"

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) Registration(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.registration")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("registration_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	token, err := h.Svc.Register(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("registration_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		case errors.Is(err, service.ErrConflict):
			l.Warn("registration_failed", "status", 400, "reason", "email taken")
			return echo.NewHTTPError(http.StatusBadRequest, "user with this email already exists")
		}
		l.Error("registration_failed", "status", 500, "error", err)
		return err
	}

	l.Info("registration_success")
	return c.JSON(http.StatusOK, transport.TokenResponse{Token: token})
}

func (h *UserHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	token, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("login_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		case errors.Is(err, service.ErrUnauthorized):
			l.Warn("login_failed", "status", 401, "reason", "bad credentials")
			return echo.NewHTTPError(http.StatusUnauthorized, msgBadCredentials)
		}
		l.Error("login_failed", "status", 500, "error", err)
		return err
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{Token: token})
}

func (h *UserHTTP) Check(c echo.Context) error {
	ctx := c.Request().Context()

	claims, err := currentUser(c)
	if err != nil {
		return err
	}

	token, err := h.Svc.Check(ctx, claims)
	if err != nil {
		l := logging.FromContext(ctx).With("handler", "user.check")
		if errors.Is(err, service.ErrUnauthorized) {
			l.Warn("check_failed", "status", 401, "user_id", claims.ID, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
		}
		l.Error("check_failed", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, transport.TokenResponse{Token: token})
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete")

	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("delete_user_failed", "status", 400, "reason", "bad id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("delete_user_failed", "status", 404, "user_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("delete_user_failed", "status", 500, "user_id", id, "error", err)
		return err
	}

	l.Info("delete_user_success", "user_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "user deleted"})
}
