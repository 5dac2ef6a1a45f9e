package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/pm25-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pm25-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/pm25-forecast-service/internal/adapter/openmeteo"
	redisadapter "github.com/couchcryptid/pm25-forecast-service/internal/adapter/redis"
	"github.com/couchcryptid/pm25-forecast-service/internal/config"
	"github.com/couchcryptid/pm25-forecast-service/internal/forecast"
	"github.com/couchcryptid/pm25-forecast-service/internal/model"
	"github.com/couchcryptid/pm25-forecast-service/internal/observability"
	"github.com/couchcryptid/pm25-forecast-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	forecaster, err := forecast.New(newModel(cfg, logger),
		forecast.WithHorizon(cfg.ForecastHours),
		forecast.WithLookback(cfg.HistoryHours),
		forecast.WithLogger(logger),
		forecast.WithMetrics(metrics),
	)
	if err != nil {
		logger.Error("failed to initialize forecaster", "error", err)
		os.Exit(1)
	}

	client := openmeteo.NewClient(cfg.OpenMeteoTimeout, metrics, logger,
		openmeteo.WithRateLimit(cfg.OpenMeteoRateLimit, cfg.OpenMeteoBurst))
	geocoder := openmeteo.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(geocoder, client, forecaster, cfg.HistoryDays, logger, metrics)

	// The latest-forecast store is optional (REDIS_ADDR).
	loaders := pipeline.Loaders{writer}
	var store httpadapter.ForecastStore
	var redisStore *redisadapter.Store
	if cfg.RedisEnabled() {
		rdb := redisadapter.NewClient(cfg)
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}()
		redisStore = redisadapter.NewStore(rdb, cfg.ForecastTTL, logger)
		loaders = append(loaders, redisStore)
		store = redisStore
		logger.Info("latest-forecast store enabled", "addr", cfg.RedisAddr, "ttl", cfg.ForecastTTL)
	} else {
		logger.Info("latest-forecast store disabled")
	}

	p := pipeline.New(reader, transformer, loaders, logger, metrics, cfg.BatchSize)

	ready := httpadapter.AllReady{p}
	if redisStore != nil {
		ready = append(ready, redisStore)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	logger.Info("shutdown complete")
}

// newModel prefers a remote inference endpoint and falls back to the
// in-process forest export.
func newModel(cfg *config.Config, logger *slog.Logger) forecast.Model {
	if cfg.ModelEndpoint != "" {
		logger.Info("using remote model", "endpoint", cfg.ModelEndpoint, "timeout", cfg.ModelTimeout,
			"declared_features", len(cfg.ModelFeatures))
		return model.NewRemote(cfg.ModelEndpoint, cfg.ModelTimeout, model.WithFeatures(cfg.ModelFeatures))
	}
	logger.Info("using local forest model", "path", cfg.ModelPath)
	return model.NewShared(cfg.ModelPath)
}
