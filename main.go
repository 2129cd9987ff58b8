package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/padraicbc/tennisapi/cache"
	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/feed"
	"github.com/padraicbc/tennisapi/handlers"
	"github.com/padraicbc/tennisapi/ingest"
	applog "github.com/padraicbc/tennisapi/logger"
	mw "github.com/padraicbc/tennisapi/middleware"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg)
	defer bdb.Close()

	if err := db.CreateTables(context.Background(), bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}
	store := db.NewStore(bdb)

	responses := newCache(cfg, logger)

	runner := ingest.NewRunner(ingest.RunnerConfig{
		Fetcher:    feed.NewFetcher(cfg.FeedTimeout, logger.Named("feed")),
		Ingester:   ingest.NewIngester(store, cfg.OddsFloor, logger.Named("ingest")),
		FeedURL:    cfg.FeedURL,
		AfterWrite: responses.Purge,
		Logger:     logger.Named("runner"),
	})
	defer runner.Close()

	if cfg.IngestCron != "" {
		if err := runner.Schedule(cfg.IngestCron, cfg.FeedSeason); err != nil {
			logger.Fatal("schedule ingestion failed", zap.Error(err))
		}
		logger.Info("ingestion scheduled", zap.String("cron", cfg.IngestCron), zap.String("season", cfg.FeedSeason))
	}

	h := handlers.New(store, runner, responses, cfg, logger.Named("http"))

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*", "Authorization"},
	}))

	h.Register(e, mw.JWT(cfg.JWTKey()))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}

// newCache connects to Redis when REDIS_URL is set and falls back to an
// in-process store otherwise.
func newCache(cfg *config.Config, logger *zap.Logger) cache.Store {
	if cfg.RedisURL == "" {
		logger.Info("response cache in process")
		return cache.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rs, err := cache.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis cache unavailable", zap.Error(err))
	}
	logger.Info("response cache in redis")
	return rs
}
