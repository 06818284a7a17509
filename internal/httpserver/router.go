package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/device_store/internal/models"
	authmw "github.com/Skotchmaster/device_store/pkg/middleware/auth"
)

type Deps struct {
	Users   *UserHTTP
	Catalog *CatalogHTTP
	Basket  *BasketHTTP
	Ratings *RatingHTTP
	Gate    *authmw.Gate

	// StaticDir is served under /static when images are kept on local disk.
	StaticDir string
	Ready     func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})

	if d.StaticDir != "" {
		e.Static("/static", d.StaticDir)
	}

	api := e.Group("/api")
	adminOnly := authmw.Authorize(string(models.RoleAdmin))

	user := api.Group("/user")
	user.POST("/registration", d.Users.Registration)
	user.POST("/login", d.Users.Login)
	user.GET("/auth", d.Users.Check, d.Gate.Authenticate)
	user.DELETE("/:id", d.Users.Delete, d.Gate.Authenticate, adminOnly)

	device := api.Group("/device")
	device.POST("", d.Catalog.CreateDevice, d.Gate.Authenticate, adminOnly)
	device.GET("", d.Catalog.ListDevices)
	device.GET("/:id", d.Catalog.GetDevice)

	brand := api.Group("/brand")
	brand.POST("", d.Catalog.CreateBrand)
	brand.GET("", d.Catalog.ListBrands)
	brand.DELETE("/:id", d.Catalog.DeleteBrand)

	typ := api.Group("/type")
	typ.POST("", d.Catalog.CreateType)
	typ.GET("", d.Catalog.ListTypes)
	typ.DELETE("/:id", d.Catalog.DeleteType)

	basket := api.Group("/basket", d.Gate.Authenticate)
	basket.POST("/item", d.Basket.AddItem)
	basket.GET("", d.Basket.Get)
	basket.DELETE("/:deviceId", d.Basket.RemoveItem)

	rating := api.Group("/rating")
	rating.POST("", d.Ratings.SetRating, d.Gate.Authenticate)
	rating.GET("/:deviceId", d.Ratings.DeviceRatings)
}
