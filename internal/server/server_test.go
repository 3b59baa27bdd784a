package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		Upload: config.UploadConfig{MaxBytes: 1 << 20, ParseTimeout: time.Second},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	dashboard := services.NewDashboard(store.NewMemory(4, time.Hour), cfg, logger, metrics)
	return NewServer(dashboard, cfg, logger, metrics)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/admin/stats", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/datasets/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/datasets/unknown/report", http.StatusNotFound},
		{http.MethodGet, "/api/datasets/unknown/branches", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPut, "/api/datasets", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestUploadThenReportThroughRoutes(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "ventas.csv")
	_, _ = io.WriteString(part, "Sucursal,Producto,Año,Mes,Unidades_vendidas,Ingreso_total,Costo_total\nNorte,Widget,2024,1,10,100,40\n")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d", w.Code)
	}
	location := w.Header().Get("Location")
	id := strings.TrimPrefix(location, "/datasets/")

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, location, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/report?branch=Norte", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"product":"Widget"`) {
		t.Fatalf("report status = %d body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "salesdash_rows_ingested_total 1") {
		t.Errorf("expected ingested rows metric, got:\n%s", w.Body.String())
	}
}

func TestGracefulServer_RunsHooksOnCancel(t *testing.T) {
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, logger, cfg)

	var ran atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if ran.Load() != 2 {
		t.Errorf("hooks ran %d times, want 2", ran.Load())
	}
}

func TestGracefulServer_HookErrorsAreReturned(t *testing.T) {
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gs := NewGracefulServer(&http.Server{Addr: "127.0.0.1:0"}, logger, cfg)

	boom := errors.New("close store")
	gs.RegisterShutdownHook(func(ctx context.Context) error { return boom })

	err := gs.shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("shutdown() error = %v, want %v", err, boom)
	}
}
