package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/store"
)

const testCSV = `Sucursal,Producto,Año,Mes,Unidades_vendidas,Ingreso_total,Costo_total
North,Widget,2023,1,100,1000,600
North,Widget,2023,2,120,1200,720
North,Widget,2024,1,150,1650,1000
North,Widget,2024,2,180,1980,1200
South,Gadget,2024,1,0,50,10
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDashboard(t *testing.T) *services.Dashboard {
	t.Helper()
	cfg := &config.Config{
		Upload: config.UploadConfig{ParseTimeout: 5 * time.Second},
	}
	return services.NewDashboard(store.NewMemory(8, time.Hour), cfg, testLogger(), nil)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return env
}

func uploadDataset(t *testing.T, h *APIHandlers) string {
	t.Helper()
	body, ct := multipartBody(t, "file", "ventas.csv", testCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.HandleUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	env := decode(t, w)
	var info struct {
		ID       string   `json:"id"`
		Rows     int      `json:"rows"`
		Branches []string `json:"branches"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.Rows != 5 {
		t.Errorf("rows = %d, want 5", info.Rows)
	}
	if len(info.Branches) != 2 {
		t.Errorf("branches = %v", info.Branches)
	}
	if w.Header().Get("Location") != "/api/datasets/"+info.ID {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	return info.ID
}

func TestAPIHandlers_UploadAndReport(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)
	id := uploadDataset(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/report?branch=North", nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()

	h.HandleReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected cache-control 'no-store', got %q", cc)
	}

	var report struct {
		Branch  string `json:"branch"`
		Results []struct {
			Product string `json:"product"`
			Summary struct {
				UnitsSold  float64 `json:"units_sold"`
				Comparison struct {
					Delta struct {
						UnitsSold *float64 `json:"units_sold"`
					} `json:"delta"`
				} `json:"comparison"`
			} `json:"summary"`
		} `json:"results"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Branch != "North" || len(report.Results) != 1 {
		t.Fatalf("report = %+v", report)
	}
	widget := report.Results[0].Summary
	if widget.UnitsSold != 550 {
		t.Errorf("units = %v, want 550", widget.UnitsSold)
	}
	if d := widget.Comparison.Delta.UnitsSold; d == nil || *d != 50 {
		t.Errorf("units delta = %v, want 50", d)
	}
}

func TestAPIHandlers_ReportViolationsAndNullFigures(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)
	id := uploadDataset(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/report?branch=South", nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()

	h.HandleReport(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `"rule":"non_positive_units"`) {
		t.Errorf("expected Gadget violation in %s", body)
	}
	if !strings.Contains(body, `"overall_price":null`) {
		t.Errorf("expected n/a overall price to be null in %s", body)
	}
}

func TestAPIHandlers_ReportWithoutBranchCoversAllBranches(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)
	id := uploadDataset(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/report", nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()

	h.HandleReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var report struct {
		Branch   string            `json:"branch"`
		RowCount int               `json:"row_count"`
		Results  []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Branch != "Todas" || report.RowCount != 5 || len(report.Results) != 2 {
		t.Errorf("report = %+v, want every branch", report)
	}
}

func TestAPIHandlers_UploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		maxBytes int64
		status   int
		code     string
	}{
		{"missing columns", "ventas.csv", "Sucursal,Producto\nNorth,Widget\n", 1 << 20, http.StatusBadRequest, "MISSING_COLUMN"},
		{"invalid month", "ventas.csv", "Sucursal,Producto,Año,Mes,Unidades_vendidas,Ingreso_total,Costo_total\nN,W,2024,13,1,1,1\n", 1 << 20, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unsupported", "ventas.pdf", "%PDF-1.4", 1 << 20, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"too large", "ventas.csv", strings.Repeat("x", 4096), 512, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIHandlers(newTestDashboard(t), testLogger(), tt.maxBytes)
			body, ct := multipartBody(t, "file", tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()

			h.HandleUpload(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			env := decode(t, w)
			if env.Success {
				t.Error("expected success=false")
			}
			if env.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.code)
			}
		})
	}
}

func TestAPIHandlers_MissingFileField(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)
	body, ct := multipartBody(t, "other", "ventas.csv", testCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.HandleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestAPIHandlers_UnknownDataset(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)

	for _, handler := range []http.HandlerFunc{h.HandleReport, h.HandleBranches} {
		req := httptest.NewRequest(http.MethodGet, "/api/datasets/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
		if env := decode(t, w); env.Error.Code != "NOT_FOUND" {
			t.Errorf("code = %q", env.Error.Code)
		}
	}
}

func TestAPIHandlers_BranchesAndDelete(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)
	id := uploadDataset(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/branches", nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.HandleBranches(w, req)

	var data struct {
		Branches []string `json:"branches"`
		Default  string   `json:"default"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatal(err)
	}
	if strings.Join(data.Branches, ",") != "Todas,North,South" || data.Default != "Todas" {
		t.Errorf("branches = %+v", data)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/datasets/"+id, nil)
	req.SetPathValue("id", id)
	w = httptest.NewRecorder()
	h.HandleDelete(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/branches", nil)
	req.SetPathValue("id", id)
	w = httptest.NewRecorder()
	h.HandleBranches(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	var health map[string]string
	if err := json.Unmarshal(decode(t, w).Data, &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", health["status"])
	}
	if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
		t.Errorf("invalid timestamp format: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h := NewAPIHandlers(newTestDashboard(t), testLogger(), 1<<20)
	uploadDataset(t, h)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	var stats map[string]any
	if err := json.Unmarshal(decode(t, w).Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats["uploads"] != float64(1) {
		t.Errorf("uploads = %v, want 1", stats["uploads"])
	}
}

func sseRequest(id, branch string) *http.Request {
	signals := url.QueryEscape(`{"branch":"` + branch + `"}`)
	req := httptest.NewRequest(http.MethodGet, "/sse/datasets/"+id+"/report?datastar="+signals, nil)
	req.SetPathValue("id", id)
	return req
}

func TestSSEHandlers_HandleReport(t *testing.T) {
	dashboard := newTestDashboard(t)
	id := uploadDataset(t, NewAPIHandlers(dashboard, testLogger(), 1<<20))
	h := NewSSEHandlers(dashboard, testLogger())

	w := httptest.NewRecorder()
	h.HandleReport(w, sseRequest(id, "North"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}

	body := w.Body.String()
	for _, want := range []string{
		"datastar-patch-elements",
		`<div id="report">`,
		"Widget",
		"+50.00%",
		"datastar-patch-signals",
		"reportSummary",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected SSE stream to contain %q", want)
		}
	}
	if strings.Contains(body, "Gadget") {
		t.Error("South products must not appear in the North report")
	}
}

func TestSSEHandlers_UnknownBranchShowsNoData(t *testing.T) {
	dashboard := newTestDashboard(t)
	id := uploadDataset(t, NewAPIHandlers(dashboard, testLogger(), 1<<20))
	h := NewSSEHandlers(dashboard, testLogger())

	w := httptest.NewRecorder()
	h.HandleReport(w, sseRequest(id, "East"))

	if !strings.Contains(w.Body.String(), "no data") {
		t.Error("expected 'no data' for a branch without rows")
	}
}

func TestSSEHandlers_UnknownDataset(t *testing.T) {
	h := NewSSEHandlers(newTestDashboard(t), testLogger())

	w := httptest.NewRecorder()
	h.HandleReport(w, sseRequest("missing", "Todas"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestSSEHandlers_BadSignals(t *testing.T) {
	h := NewSSEHandlers(newTestDashboard(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/datasets/x/report?datastar=%7Bnot-json", nil)
	req.SetPathValue("id", "x")
	w := httptest.NewRecorder()
	h.HandleReport(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestPageHandlers_UploadRedirects(t *testing.T) {
	dashboard := newTestDashboard(t)
	h := NewPageHandlers(dashboard, testLogger(), 1<<20)

	body, ct := multipartBody(t, "file", "ventas.csv", testCSV)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.HandleUpload(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "/datasets/") {
		t.Fatalf("Location = %q", location)
	}

	id := strings.TrimPrefix(location, "/datasets/")
	req = httptest.NewRequest(http.MethodGet, location, nil)
	req.SetPathValue("id", id)
	w = httptest.NewRecorder()
	h.HandleDataset(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	page := w.Body.String()
	for _, want := range []string{"ventas.csv", `<option value="North">`, `id="report"`, "/sse/datasets/"} {
		if !strings.Contains(page, want) {
			t.Errorf("expected dashboard page to contain %q", want)
		}
	}
}

func TestPageHandlers_UploadFailureShowsReason(t *testing.T) {
	h := NewPageHandlers(newTestDashboard(t), testLogger(), 1<<20)

	body, ct := multipartBody(t, "file", "ventas.csv", "Sucursal,Producto\nN,W\n")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.HandleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Año, Mes") {
		t.Errorf("expected missing columns in page, got %s", w.Body.String())
	}
}

func TestPageHandlers_IndexAndMissingDataset(t *testing.T) {
	h := NewPageHandlers(newTestDashboard(t), testLogger(), 1<<20)

	w := httptest.NewRecorder()
	h.HandleIndex(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "multipart/form-data") {
		t.Errorf("index status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/datasets/missing", nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	h.HandleDataset(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not found or expired") {
		t.Error("expected not found message")
	}
}
