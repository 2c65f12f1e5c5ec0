package handler

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/wadjakorntonsri/go-beacon/pkg/config"
	"github.com/wadjakorntonsri/go-beacon/pkg/metrics"
	"github.com/wadjakorntonsri/go-beacon/pkg/ports"
)

// BeaconRoutes are the paths that serve the tracking pixel.
var BeaconRoutes = []string{"/beacon", "/pixel.gif", "/tracker.php"}

// NewRouter creates and configures the main application router.
// sink may be nil when no health information is available.
func NewRouter(cfg *config.Config, service ports.BeaconService, sink HealthChecker, log zerolog.Logger) http.Handler {
	h := NewHTTPHandler(service, log)
	mw := NewMiddleware(log)

	mux := http.NewServeMux()

	for _, route := range BeaconRoutes {
		mux.HandleFunc("GET "+route, h.Beacon)
	}

	mux.HandleFunc("GET /healthz", Health(sink, log))

	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var handler http.Handler = mw.Recoverer(mux)
	handler = mw.RequestLogger(handler)
	if cfg.TrustProxyHeaders {
		handler = chimw.RealIP(handler)
	}
	handler = mw.RequestID(handler)

	return handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
