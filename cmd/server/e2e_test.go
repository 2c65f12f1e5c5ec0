package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/logfile"
	"github.com/wadjakorntonsri/go-beacon/pkg/config"
	"github.com/wadjakorntonsri/go-beacon/pkg/core/services"
)

func TestIntegration(t *testing.T) {
	// 1. Setup Sink
	logPath := filepath.Join(t.TempDir(), "tracking.log")
	sink, err := logfile.NewSink(logPath)
	if err != nil {
		t.Fatalf("Failed to init sink: %v", err)
	}

	// 2. Setup Service
	clock := func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	service := services.NewBeaconService(sink, services.WithClock(clock), services.WithLocation(time.UTC))

	// 3. Setup Router
	cfg := &config.Config{MetricsEnabled: true}
	server := httptest.NewServer(handler.NewRouter(cfg, service, sink, zerolog.Nop()))
	defer server.Close()

	client := server.Client()
	pixel := handler.Pixel()

	// TEST 1: Beacon with all inputs
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/beacon?url=/pricing", nil)
	req.Header.Set("Referer", "https://example.com")
	req.Header.Set("User-Agent", "TestAgent/1.0")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if !bytes.Equal(body, pixel) {
		t.Errorf("Body is not the 43-byte pixel: %d bytes", len(body))
	}
	for header, want := range map[string]string{
		"Content-Type":  "image/gif",
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
		"Expires":       "0",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	// TEST 2: Beacon without optional inputs
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/pixel.gif", nil)
	req.Header.Set("User-Agent", "")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// TEST 3: Concurrent beacons
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(server.URL + "/tracker.php?url=/concurrent")
			if err != nil {
				t.Error(err)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	// TEST 4: Verify the log
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 22 {
		t.Fatalf("Expected 22 log lines, got %d", len(lines))
	}

	// httptest servers listen on 127.0.0.1
	want := "2024-01-01 12:00:00 | IP: 127.0.0.0 | URL: /pricing | Referrer: https://example.com | UA: TestAgent/1.0"
	if lines[0] != want {
		t.Errorf("Line 1 mismatch:\n got %q\nwant %q", lines[0], want)
	}
	want = "2024-01-01 12:00:00 | IP: 127.0.0.0 | URL: Unknown | Referrer: Direct | UA: Unknown"
	if lines[1] != want {
		t.Errorf("Line 2 mismatch:\n got %q\nwant %q", lines[1], want)
	}

	res, err := logfile.ReadFile(logPath, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if res.Malformed != 0 {
		t.Errorf("Expected no malformed lines, got %d", res.Malformed)
	}

	// TEST 5: Health
	resp, err = client.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health expected 200, got %d", resp.StatusCode)
	}

	// TEST 6: Metrics
	resp, err = client.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "beacon_hits_total") {
		t.Error("Metrics missing beacon_hits_total")
	}
}

func TestIntegrationLogFailureKeepsServing(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "tracking.log")
	sink, err := logfile.NewSink(logPath)
	if err != nil {
		t.Fatal(err)
	}
	// Make every append fail by occupying the path with a directory.
	if err := os.Mkdir(logPath, 0o755); err != nil {
		t.Fatal(err)
	}

	service := services.NewBeaconService(sink)
	server := httptest.NewServer(handler.NewRouter(&config.Config{}, service, sink, zerolog.Nop()))
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/beacon?url=/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 despite log failure, got %d", resp.StatusCode)
	}
	if len(body) != 43 {
		t.Errorf("Expected 43-byte pixel, got %d bytes", len(body))
	}
}
