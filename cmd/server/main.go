package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/logfile"
	"github.com/wadjakorntonsri/go-beacon/pkg/config"
	"github.com/wadjakorntonsri/go-beacon/pkg/core/services"
	"github.com/wadjakorntonsri/go-beacon/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	loc, _ := cfg.Location()

	// Initialize Sink
	sink, err := logfile.NewSink(cfg.LogFile, logfile.WithFileMode(cfg.LogFileMode))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open visit log")
	}
	if err := sink.Healthy(); err != nil {
		log.Warn().Err(err).Msg("visit log directory is not writable, pixels will still be served")
	}

	// Initialize Service
	service := services.NewBeaconService(sink, services.WithLocation(loc))

	// Initialize Router
	mux := handler.NewRouter(cfg, service, sink, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.AppEnv).
			Str("log_file", sink.Path()).
			Bool("metrics", cfg.MetricsEnabled).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
