package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/service"
	"github.com/Skotchmaster/device_store/internal/util"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) CreateDevice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "device.create")

	price, _ := strconv.Atoi(c.FormValue("price"))
	in := service.CreateDeviceInput{
		Name:    c.FormValue("name"),
		Price:   price,
		BrandID: util.ParseUintDefault(c.FormValue("brandId"), 0),
		TypeID:  util.ParseUintDefault(c.FormValue("typeId"), 0),
		Info:    c.FormValue("info"),
	}

	fh, err := c.FormFile("img")
	if err != nil {
		l.Warn("create_device_failed", "status", 400, "reason", "img file missing", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "img file is required")
	}
	f, err := fh.Open()
	if err != nil {
		l.Error("create_device_failed", "status", 500, "reason", "cannot open upload", "error", err)
		return err
	}
	defer f.Close()
	in.Image = f
	in.ImageSize = fh.Size

	device, err := h.Svc.CreateDevice(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("create_device_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		case errors.Is(err, service.ErrConflict):
			l.Warn("create_device_failed", "status", 400, "reason", "duplicate name", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "device with this name already exists")
		}
		l.Error("create_device_failed", "status", 500, "error", err)
		return err
	}

	l.Info("create_device_success", "device_id", device.ID)
	return c.JSON(http.StatusOK, device)
}

func (h *CatalogHTTP) ListDevices(c echo.Context) error {
	ctx := c.Request().Context()

	brandID := util.ParseUintDefault(c.QueryParam("brandId"), 0)
	typeID := util.ParseUintDefault(c.QueryParam("typeId"), 0)
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	limit := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)

	res, err := h.Svc.ListDevices(ctx, brandID, typeID, page, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_devices_failed", "handler", "device.list", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CatalogHTTP) GetDevice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "device.get")

	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("get_device_failed", "status", 400, "reason", "bad id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, "device id must be a positive integer")
	}

	device, err := h.Svc.GetDevice(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_device_failed", "status", 404, "device_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "device not found")
		}
		l.Error("get_device_failed", "status", 500, "device_id", id, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, device)
}
