package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/service"
	"github.com/Skotchmaster/device_store/internal/transport"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

const msgBasketMissing = "user basket not found"

type BasketHTTP struct {
	Svc *service.BasketService
}

func (h *BasketHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "basket.add_item")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.AddBasketItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.DeviceID.ID() == 0 {
		l.Warn("add_item_failed", "status", 400, "reason", "deviceId missing")
		return echo.NewHTTPError(http.StatusBadRequest, "deviceId is required")
	}

	item, err := h.Svc.AddItem(ctx, user.ID, req.DeviceID.ID())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("add_item_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		case errors.Is(err, service.ErrBasketMissing):
			l.Error("add_item_failed", "status", 500, "user_id", user.ID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, msgBasketMissing)
		}
		l.Error("add_item_failed", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *BasketHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "basket.get")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	basket, err := h.Svc.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrBasketMissing) {
			l.Error("get_basket_failed", "status", 500, "user_id", user.ID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, msgBasketMissing)
		}
		l.Error("get_basket_failed", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, transport.NewBasketView(basket))
}

func (h *BasketHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "basket.remove_item")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	deviceID, ok := parseID(c.Param("deviceId"))
	if !ok {
		l.Warn("remove_item_failed", "status", 400, "reason", "bad deviceId", "device_id", c.Param("deviceId"))
		return echo.NewHTTPError(http.StatusBadRequest, "deviceId is required")
	}

	if err := h.Svc.RemoveItem(ctx, user.ID, deviceID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("remove_item_failed", "status", 404, "device_id", deviceID)
			return echo.NewHTTPError(http.StatusNotFound, "device not found in user basket")
		case errors.Is(err, service.ErrBasketMissing):
			l.Error("remove_item_failed", "status", 500, "user_id", user.ID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, msgBasketMissing)
		}
		l.Error("remove_item_failed", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "item removed from basket"})
}
