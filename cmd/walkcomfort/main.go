package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/walk-comfort-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/walk-comfort-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/walk-comfort-service/internal/adapter/kafka"
	"github.com/couchcryptid/walk-comfort-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/walk-comfort-service/internal/adapter/sqlite"
	"github.com/couchcryptid/walk-comfort-service/internal/config"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
	"github.com/couchcryptid/walk-comfort-service/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Weather: Open-Meteo behind a TTL cache, fallback observation on failure.
	weatherClient := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.WeatherLatitude, cfg.WeatherLongitude, cfg.WeatherTimeout, metrics, logger)
	weather := openmeteo.NewCachedSource(weatherClient, cfg.WeatherCacheTTL, metrics, logger)

	opts := []httpadapter.APIOption{httpadapter.WithCity(cfg.CityName, cfg.DensityZones)}

	// Advisor (feature-flagged via ADVISOR_ENABLED / ADVISOR_API_KEY).
	if cfg.AdvisorEnabled {
		advisor := gemini.NewClient(cfg.AdvisorBaseURL, cfg.AdvisorAPIKey, cfg.AdvisorModel, cfg.AdvisorTimeout, metrics, logger)
		opts = append(opts, httpadapter.WithAdvisor(advisor))
		metrics.AdvisorEnabled.Set(1)
		logger.Info("route advisor enabled", "model", cfg.AdvisorModel, "timeout", cfg.AdvisorTimeout)
	} else {
		logger.Info("route advisor disabled, serving fallback routes")
	}

	var history *sqlite.Store
	if cfg.HistoryDBPath != "" {
		history, err = sqlite.Open(cfg.HistoryDBPath)
		if err != nil {
			logger.Error("failed to open history store", "path", cfg.HistoryDBPath, "error", err)
			os.Exit(1)
		}
		opts = append(opts, httpadapter.WithHistory(history))
		logger.Info("report history enabled", "path", cfg.HistoryDBPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ready  sharedobs.ReadinessChecker
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	pipelineDone := make(chan struct{})
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)

		var loader pipeline.BatchLoader = writer
		if history != nil {
			loader = pipeline.NewFanOut(writer, history)
		}
		p := pipeline.New(reader, pipeline.NewTransformer(metrics, logger), loader, logger, metrics, cfg.BatchSize)
		ready = p

		go func() {
			defer close(pipelineDone)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		close(pipelineDone)
		logger.Info("kafka pipeline disabled")
	}

	api := httpadapter.NewAPI(weather, cfg.Fallback, metrics, logger, opts...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if history != nil {
		if err := history.Close(); err != nil {
			logger.Error("history store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
