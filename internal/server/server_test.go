package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"transitdb/internal/config"
	"transitdb/internal/handler"
	"transitdb/internal/metrics"
	"transitdb/internal/schedule"
	"transitdb/internal/storage"
)

func TestServerRoutes(t *testing.T) {
	db, err := storage.Create(filepath.Join(t.TempDir(), "transit.db"), discard())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := metrics.NewCollector()
	h := handler.New(schedule.New(db, time.UTC), nil, discard(), handler.Options{Metrics: m})
	s := New(config.Defaults(), h, m, discard(), false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return resp, string(b)
	}

	if resp, _ := get("/stops"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("before ready: /stops = %d, want 503", resp.StatusCode)
	}
	if resp, _ := get("/healthz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("empty store: /healthz = %d, want 503", resp.StatusCode)
	}

	s.SetReady()
	s.SetReady()

	if resp, body := get("/stops"); resp.StatusCode != http.StatusOK || strings.TrimSpace(body) != "[]" {
		t.Errorf("/stops = %d %q", resp.StatusCode, body)
	}
	if resp, body := get("/no/such/route"); resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "not_found") {
		t.Errorf("unknown route = %d %q", resp.StatusCode, body)
	}
	if resp, body := get("/metrics"); resp.StatusCode != http.StatusOK || !strings.Contains(body, "transitdb_http_requests_total") {
		t.Errorf("/metrics = %d", resp.StatusCode)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	db, err := storage.Create(filepath.Join(t.TempDir(), "transit.db"), discard())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := config.Defaults()
	cfg.Port = 0
	m := metrics.NewCollector()
	s := New(cfg, handler.New(schedule.New(db, time.UTC), nil, discard(), handler.Options{}), m, discard(), true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
