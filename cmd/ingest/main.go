// cmd/ingest/main.go
// Downloads one season of results and loads it into PostgreSQL, then exits.
//
// Usage:
//
//	go run ./cmd/ingest -season 2013
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/cache"
	"github.com/padraicbc/tennisapi/config"
	"github.com/padraicbc/tennisapi/db"
	"github.com/padraicbc/tennisapi/feed"
	"github.com/padraicbc/tennisapi/ingest"
	applog "github.com/padraicbc/tennisapi/logger"
)

func main() {
	cfg := config.Load()
	season := flag.String("season", cfg.FeedSeason, "season year to ingest")
	flag.Parse()
	if !config.ValidSeason(*season) {
		log.Fatalf("season must be a year, got %q", *season)
	}

	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bdb := db.Setup(cfg)
	defer bdb.Close()
	if err := db.CreateTables(ctx, bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	runner := ingest.NewRunner(ingest.RunnerConfig{
		Fetcher:  feed.NewFetcher(cfg.FeedTimeout, logger.Named("feed")),
		Ingester: ingest.NewIngester(db.NewStore(bdb), cfg.OddsFloor, logger.Named("ingest")),
		FeedURL:  cfg.FeedURL,
		Logger:   logger,
	})
	defer runner.Close()

	sum, err := runner.Run(ctx, *season)
	// Rows commit one by one, so even a failed run may leave cached responses stale.
	if sum.Rows > 0 && cfg.RedisURL != "" {
		purge(cfg.RedisURL, logger)
	}
	if err != nil {
		logger.Fatal("ingestion failed", zap.String("season", *season), zap.Error(err), zap.Int("rows", sum.Rows))
	}
	logger.Info("ingestion finished",
		zap.String("season", *season),
		zap.Int("rows", sum.Rows),
		zap.Int("sets", sum.Sets),
		zap.Int("defaulted", sum.Defaulted),
		zap.Duration("took", sum.Took),
	)
}

// purge drops the responses the API cached before this run.
func purge(redisURL string, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rs, err := cache.NewRedisStore(ctx, redisURL)
	if err != nil {
		logger.Warn("cache not purged", zap.Error(err))
		return
	}
	defer rs.Close()
	if err := rs.Purge(ctx); err != nil {
		logger.Warn("cache not purged", zap.Error(err))
	}
}
