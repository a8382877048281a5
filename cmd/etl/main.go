package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/city-weather-etl/internal/adapter/file"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/city-weather-etl/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/city-weather-etl/internal/adapter/mqtt"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/openweather"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/source"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/city-weather-etl/internal/config"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/couchcryptid/city-weather-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	runID := observability.NewRunID()
	logger := observability.NewLogger(os.Stdout, cfg.LogFormat, level, runID)
	metrics := observability.NewMetrics()

	client := openweather.NewClient(cfg.WeatherKey, openweather.Options{
		BaseURL:         cfg.WeatherBaseURL,
		Units:           cfg.WeatherUnits,
		Timeout:         cfg.WeatherTimeout,
		BreakerFailures: cfg.WeatherBreakerFailures,
	}, logger, metrics)
	provider := openweather.NewCachedProvider(client, cfg.WeatherCacheSize, metrics)

	fetcher := source.NewFetcher(cfg.SourceTimeout, logger)
	loader := source.NewLoader(fetcher, cfg.CovidSource, cfg.CitiesSource, cfg.CitySchema, logger, metrics)

	selector := pipeline.NewCitySelector(domain.Criteria{
		Countries:    cfg.TargetCountries,
		CapitalsOnly: cfg.CapitalsOnly,
		PerCountry:   cfg.CitiesPerCountry,
	}, cfg.TopCountriesByDeaths, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, closers, err := buildSinks(ctx, cfg, runID, logger)
	defer closeAll(closers, logger)
	if err != nil {
		logger.Error("failed to set up sinks", "error", err)
		return 1
	}

	var drops pipeline.DropRecorder
	if cfg.HasFormat(config.FormatCSV) || cfg.HasFormat(config.FormatXLSX) || cfg.HasFormat(config.FormatParquet) {
		drops = file.NewDropList(cfg.OutputDir, cfg.OutputTable)
	}

	p := pipeline.New(loader, selector, domain.NewResolver(provider, logger),
		domain.JoinOptions{Key: cfg.JoinKey, Type: cfg.JoinType},
		sinks, drops, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	_, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics textfile error", "error", err)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	logger.Info("run complete")
	return 0
}

// buildSinks creates one sink per configured output format, in the
// configured order. Closers are returned even on error so partial setup can
// be released.
func buildSinks(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) ([]pipeline.Sink, []io.Closer, error) {
	var (
		sinks   []pipeline.Sink
		closers []io.Closer
	)
	for _, format := range cfg.OutputFormats {
		switch format {
		case config.FormatCSV:
			sinks = append(sinks, file.NewCSVSink(cfg.OutputDir, cfg.OutputTable))
		case config.FormatXLSX:
			sinks = append(sinks, file.NewExcelSink(cfg.OutputDir, cfg.OutputTable))
		case config.FormatParquet:
			sinks = append(sinks, file.NewParquetSink(cfg.OutputDir, cfg.OutputTable))
		case config.FormatSQLite:
			db, err := sqlite.Open(cfg.SQLitePath)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, db)
			sinks = append(sinks, sqlite.NewSink(db, cfg.OutputTable, logger))
		case config.FormatKafka:
			w := kafkaadapter.NewWriter(cfg, runID, logger)
			closers = append(closers, w)
			sinks = append(sinks, w)
		case config.FormatMQTT:
			pub, err := mqttadapter.NewPublisher(ctx, cfg, logger)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, pub)
			sinks = append(sinks, pub)
		}
	}
	return sinks, closers, nil
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}
}
