package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/service"
	"github.com/Skotchmaster/device_store/internal/transport"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

func (h *CatalogHTTP) CreateBrand(c echo.Context) error {
	return h.createNamed(c, "brand", func(ctx context.Context, name string) (any, error) {
		return h.Svc.CreateBrand(ctx, name)
	})
}

func (h *CatalogHTTP) ListBrands(c echo.Context) error {
	brands, err := h.Svc.ListBrands(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brands)
}

func (h *CatalogHTTP) DeleteBrand(c echo.Context) error {
	return h.deleteNamed(c, "brand", h.Svc.DeleteBrand)
}

func (h *CatalogHTTP) CreateType(c echo.Context) error {
	return h.createNamed(c, "type", func(ctx context.Context, name string) (any, error) {
		return h.Svc.CreateType(ctx, name)
	})
}

func (h *CatalogHTTP) ListTypes(c echo.Context) error {
	types, err := h.Svc.ListTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types)
}

func (h *CatalogHTTP) DeleteType(c echo.Context) error {
	return h.deleteNamed(c, "type", h.Svc.DeleteType)
}

func (h *CatalogHTTP) createNamed(c echo.Context, kind string, create func(context.Context, string) (any, error)) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", kind+".create")

	var req transport.NameRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	out, err := create(ctx, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("create_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		case errors.Is(err, service.ErrConflict):
			l.Warn("create_failed", "status", 400, "reason", "duplicate name", "name", req.Name)
			return echo.NewHTTPError(http.StatusBadRequest, kind+" with this name already exists")
		}
		l.Error("create_failed", "status", 500, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHTTP) deleteNamed(c echo.Context, kind string, del func(context.Context, uint) error) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", kind+".delete")

	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("delete_failed", "status", 400, "reason", "bad id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, kind+" id must be a positive integer")
	}

	if err := del(ctx, id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("delete_failed", "status", 404, "id", id)
			return echo.NewHTTPError(http.StatusNotFound, kind+" not found")
		case errors.Is(err, service.ErrValidation):
			l.Warn("delete_failed", "status", 400, "id", id, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, publicMessage(err, service.ErrValidation))
		}
		l.Error("delete_failed", "status", 500, "id", id, "error", err)
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: kind + " deleted"})
}
