package handlers

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	uploadField     = "file"
	multipartMemory = 8 << 20
)

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
	maxBytes  int64
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger, maxBytes int64) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
		maxBytes:  maxBytes,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(r.Context()))
}

// HandleUpload accepts a multipart upload and answers 201 with the dataset
// info.
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := openUpload(w, r, h.maxBytes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()

	ds, err := h.dashboard.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteCreated(w, ds.Info(), "/api/datasets/"+ds.ID)
}

func (h *APIHandlers) HandleBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.dashboard.Branches(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, map[string]any{
		"branches": branches,
		"default":  branches[0],
	}, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.dashboard.Report(r.Context(), r.PathValue("id"), selectedBranch(r.URL.Query().Get("branch")))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, report, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.dashboard.Forget(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, map[string]string{"id": id})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, stats)
}

// openUpload caps the request body and returns the uploaded file part.
func openUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if appErr := appError(err); appErr != err {
			return nil, nil, appErr
		}
		return nil, nil, errors.BadRequestWrap(err, "Expected a multipart form upload")
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, nil, errors.BadRequestWrap(err, `Missing "file" form field`)
	}
	return file, header, nil
}
