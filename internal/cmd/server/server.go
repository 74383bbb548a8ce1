// Package server parses service configuration and launches the engine.
package server

import (
	"context"
	"flag"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/splitsignal/splitsignal/internal/experiment/service"
	"github.com/splitsignal/splitsignal/internal/experiment/sink"
	sqlitestore "github.com/splitsignal/splitsignal/internal/experiment/storage/sqlite"
	httpapi "github.com/splitsignal/splitsignal/internal/http"
	"github.com/splitsignal/splitsignal/internal/platform/config"
	"github.com/splitsignal/splitsignal/internal/platform/otel"
	"go.uber.org/zap"
)

const serviceName = "splitsignal"

// Config holds server command configuration.
type Config struct {
	HTTPAddr    string `env:"SPLITSIGNAL_HTTP_ADDR" envDefault:":8080"`
	DBPath      string `env:"SPLITSIGNAL_DB_PATH" envDefault:"splitsignal.db"`
	NATSURL     string `env:"SPLITSIGNAL_NATS_URL"`
	SampleCount int    `env:"SPLITSIGNAL_SAMPLE_COUNT" envDefault:"10000"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.NATSURL, "nats", cfg.NATSURL, "NATS URL for the event sink (optional)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run wires the store, sink, service, and HTTP API, then serves until the
// context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := otel.Setup(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("close store", zap.Error(closeErr))
		}
	}()

	var events sink.Sink = sink.Noop{}
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(serviceName))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Close()
		events, err = sink.NewNATS(conn, logger)
		if err != nil {
			return fmt.Errorf("build nats sink: %w", err)
		}
		logger.Info("event sink enabled", zap.String("url", cfg.NATSURL))
	}

	svc, err := service.New(store,
		service.WithSink(events),
		service.WithLogger(logger),
		service.WithSampleCount(cfg.SampleCount),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	server, err := httpapi.NewServer(svc, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	logger.Info("serving", zap.String("addr", cfg.HTTPAddr), zap.String("db", cfg.DBPath))
	return server.Start(ctx, cfg.HTTPAddr)
}
