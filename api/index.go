package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/logfile"
	"github.com/wadjakorntonsri/go-beacon/pkg/config"
	"github.com/wadjakorntonsri/go-beacon/pkg/core/services"
	"github.com/wadjakorntonsri/go-beacon/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, "json")

	// Note: On Vercel only /tmp is writable and it does not outlive the
	// instance, so point BEACON_LOG_FILE at durable storage in real use.
	if _, ok := os.LookupEnv("BEACON_LOG_FILE"); !ok {
		cfg.LogFile = filepath.Join(os.TempDir(), "tracking.log")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Msg("invalid timezone, using local time")
	}

	var health handler.HealthChecker
	var service *services.BeaconService

	sink, err := logfile.NewSink(cfg.LogFile, logfile.WithFileMode(cfg.LogFileMode))
	if err != nil {
		// Keep serving the pixel; every hit reports the missing sink.
		log.Error().Err(err).Msg("visit log unavailable")
		health = unavailable{path: cfg.LogFile, err: err}
		service = services.NewBeaconService(nil, services.WithLocation(loc))
	} else {
		health = sink
		service = services.NewBeaconService(sink, services.WithLocation(loc))
	}

	mux = handler.NewRouter(cfg, service, health, log)
}

type unavailable struct {
	path string
	err  error
}

func (u unavailable) Healthy() error { return u.err }
func (u unavailable) Path() string   { return u.path }

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
