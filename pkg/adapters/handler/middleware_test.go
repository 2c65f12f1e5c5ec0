package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestIDMiddleware(t *testing.T) {
	mw := NewMiddleware(zerolog.Nop())

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{
			name:     "No Header",
			incoming: "",
			wantSame: false,
		},
		{
			name:     "Upstream Header",
			incoming: "lb-1234",
			wantSame: true,
		},
		{
			name:     "Oversized Header",
			incoming: strings.Repeat("x", 200),
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/beacon", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}

			var seen string
			rr := httptest.NewRecorder()
			handler := mw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("response is missing the request id header")
			}
			if got != seen {
				t.Errorf("context id %q does not match header %q", seen, got)
			}
			if tt.wantSame && got != tt.incoming {
				t.Errorf("expected upstream id %q, got %q", tt.incoming, got)
			}
			if !tt.wantSame && got == tt.incoming {
				t.Errorf("expected a generated id, got %q", got)
			}
		})
	}
}

func TestRecovererMiddleware(t *testing.T) {
	var buf bytes.Buffer
	mw := NewMiddleware(zerolog.New(&buf))

	handler := mw.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(buf.String(), "panic_recovered") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"OK", http.StatusOK, `"level":"debug"`},
		{"Client Error", http.StatusNotFound, `"level":"warn"`},
		{"Server Error", http.StatusServiceUnavailable, `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := NewMiddleware(zerolog.New(&buf).Level(zerolog.DebugLevel))

			handler := mw.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("GET", "/beacon", nil))

			out := buf.String()
			if !strings.Contains(out, `"message":"http_request"`) {
				t.Fatalf("missing request log entry: %q", out)
			}
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("expected %s in %q", tt.wantLevel, out)
			}
		})
	}
}
