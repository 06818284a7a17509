package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/device_store/internal/cache"
	"github.com/Skotchmaster/device_store/internal/config"
	"github.com/Skotchmaster/device_store/internal/httpserver"
	"github.com/Skotchmaster/device_store/internal/mykafka"
	"github.com/Skotchmaster/device_store/internal/repo"
	"github.com/Skotchmaster/device_store/internal/service"
	"github.com/Skotchmaster/device_store/internal/storage"
	pkgdb "github.com/Skotchmaster/device_store/pkg/db"
	"github.com/Skotchmaster/device_store/pkg/logging"
	authmw "github.com/Skotchmaster/device_store/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/device_store/pkg/middleware/logging"
	"github.com/Skotchmaster/device_store/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	db, err := pkgdb.Open(startCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db handle: %v", err)
	}

	r := &repo.GormRepo{DB: db}
	if err := r.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	tm, err := tokens.NewManager(cfg.SecretKey)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	var images storage.ImageStore
	staticDir := ""
	switch cfg.Storage.Driver {
	case "minio":
		images, err = storage.NewMinioStore(startCtx, storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
	default:
		images, err = storage.NewLocalStore(cfg.Storage.StaticDir)
		staticDir = cfg.Storage.StaticDir
	}
	if err != nil {
		log.Fatalf("image storage: %v", err)
	}

	var (
		deviceCache cache.DeviceCache = cache.Nop{}
		rdb         *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(startCtx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		deviceCache = cache.NewRedisDeviceCache(rdb, cfg.Redis.CacheTTL)
	}

	var (
		events mykafka.Publisher = mykafka.Nop{}
		prod   *mykafka.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		prod = mykafka.NewProducer(cfg.Kafka.Brokers)
		events = prod
	}

	logger.Info("starting",
		"addr", cfg.Addr(),
		"env", cfg.AppEnv,
		"db_driver", cfg.DBDriver,
		"storage", cfg.Storage.Driver,
		"cache", rdb != nil,
		"kafka", prod != nil,
	)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.NewErrorHandler(cfg.Production())
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.CORS())

	deps := httpserver.Deps{
		Users:   &httpserver.UserHTTP{Svc: &service.UserService{Repo: r, Tokens: tm, Cache: deviceCache, Events: events}},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r, Images: images, Cache: deviceCache, Events: events}},
		Basket:  &httpserver.BasketHTTP{Svc: &service.BasketService{Repo: r, Events: events}},
		Ratings: &httpserver.RatingHTTP{Svc: &service.RatingService{Repo: r, Cache: deviceCache, Events: events}},
		Gate:    authmw.NewGate(tm),

		StaticDir: staticDir,
		Ready:     sqlDB.PingContext,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("db close error", "error", err)
	}

	logger.Info("shutdown complete")
}
