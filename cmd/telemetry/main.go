package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/shared/logger"
	"kickshift/backend/internal/telemetry"
)

func main() {
	cfg, err := config.Load(".", "./config")
	if err != nil {
		boot := logger.New("telemetry")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	out, closeLog, err := logger.Setup(logger.Config{
		Level:          cfg.Logging.Level,
		GraylogAddress: cfg.Logging.GraylogAddress,
	})
	log := logger.With(out, "telemetry")
	if err != nil {
		log.Error().Err(err).Msg("graylog disabled")
	}
	defer closeLog()

	store, err := telemetry.Open(cfg.Telemetry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	h := &handler{store: store, log: log}
	if cfg.Telemetry.Influx.Enabled {
		influx := telemetry.NewInfluxSink(cfg.Telemetry.Influx, log)
		defer influx.Close()
		h.points = influx
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Telemetry.Addr,
		Handler:           h.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Telemetry.Addr).Msg("telemetry listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
	}
}
