package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/logfile"
	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
	"github.com/wadjakorntonsri/go-beacon/pkg/metrics"
	"github.com/wadjakorntonsri/go-beacon/pkg/ports"
)

type HTTPHandler struct {
	service ports.BeaconService
	log     zerolog.Logger
}

func NewHTTPHandler(service ports.BeaconService, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

// Beacon records the visit and always answers with the tracking pixel.
func (h *HTTPHandler) Beacon(w http.ResponseWriter, r *http.Request) {
	h.record(r)

	metrics.RecordHit(r.Pattern)

	hdr := w.Header()
	hdr.Set("Content-Type", "image/gif")
	hdr.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	hdr.Set("Pragma", "no-cache")
	hdr.Set("Expires", "0")
	hdr.Set("Content-Length", strconv.Itoa(len(pixelGIF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixelGIF)
}

// record appends the visit. Failures, panics included, only go to the
// operational log and metrics; the response path never sees them.
func (h *HTTPHandler) record(r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordLogWrite(time.Since(start))
		if rec := recover(); rec != nil {
			h.reportFailure(r, fmt.Errorf("panic while recording visit: %v", rec))
		}
	}()

	hit := domain.Hit{
		RemoteAddr: r.RemoteAddr,
		URL:        r.URL.Query().Get("url"),
		Referrer:   r.Header.Get("Referer"),
		UserAgent:  r.Header.Get("User-Agent"),
	}

	// The write is short and must not be cut off by a client disconnect.
	ctx := context.WithoutCancel(r.Context())
	if _, err := h.service.Record(ctx, hit); err != nil {
		h.reportFailure(r, err)
	}
}

func (h *HTTPHandler) reportFailure(r *http.Request, err error) {
	reason := "other"
	var werr *logfile.WriteError
	if errors.As(err, &werr) {
		reason = werr.Reason()
	}
	metrics.RecordLogWriteFailure(reason)

	h.log.Warn().
		Err(err).
		Str("reason", reason).
		Str("path", r.URL.Path).
		Str("request_id", GetRequestID(r.Context())).
		Msg("visit_log_write_failed")
}

// HealthChecker is implemented by sinks that can report their own state.
type HealthChecker interface {
	Healthy() error
	Path() string
}

// Health reports whether the log sink can still accept visits. Failure
// details stay in the operational log.
func Health(sink HealthChecker, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sink == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		if err := sink.Healthy(); err != nil {
			log.Warn().
				Err(err).
				Str("log_file", sink.Path()).
				Str("request_id", GetRequestID(r.Context())).
				Msg("health_check_degraded")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"log_file": sink.Path(),
		})
	}
}
