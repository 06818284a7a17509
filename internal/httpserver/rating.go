package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/service"
	"github.com/Skotchmaster/device_store/internal/transport"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

type RatingHTTP struct {
	Svc *service.RatingService
}

func (h *RatingHTTP) SetRating(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "rating.set")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.SetRatingRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("rating_set_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.DeviceID.ID() == 0 || !req.Rate.Set {
		l.Warn("rating_set_failed", "status", 400, "reason", "deviceId or rate missing")
		return echo.NewHTTPError(http.StatusBadRequest, "deviceId and rate are required")
	}
	if req.Rate.Value < service.MinRate || req.Rate.Value > service.MaxRate {
		l.Warn("rating_set_failed", "status", 400, "reason", "rate out of range", "rate", req.Rate.Value)
		return echo.NewHTTPError(http.StatusBadRequest, "rate must be a number from 1 to 5")
	}

	res, err := h.Svc.SetRating(ctx, user.ID, req.DeviceID.ID(), int(req.Rate.Value))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("rating_set_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		case errors.Is(err, service.ErrNotFound):
			l.Warn("rating_set_failed", "status", 404, "device_id", req.DeviceID.Value)
			return echo.NewHTTPError(http.StatusNotFound, "device not found")
		}
		l.Error("rating_set_failed", "status", 500, "error", err)
		return err
	}

	return c.JSON(http.StatusOK, transport.SetRatingResponse{
		Rating:              res.Rating,
		AverageDeviceRating: res.Average,
	})
}

func (h *RatingHTTP) DeviceRatings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "rating.list")

	deviceID, ok := parseID(c.Param("deviceId"))
	if !ok {
		l.Warn("rating_list_failed", "status", 400, "reason", "bad deviceId", "device_id", c.Param("deviceId"))
		return echo.NewHTTPError(http.StatusBadRequest, "deviceId is required")
	}

	ratings, err := h.Svc.DeviceRatings(ctx, deviceID)
	if err != nil {
		l.Error("rating_list_failed", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, transport.NewRatingViews(ratings))
}
