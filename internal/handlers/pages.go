package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const noStore = "no-store"

type PageHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
	maxBytes  int64
}

func NewPageHandlers(dashboard *services.Dashboard, logger *slog.Logger, maxBytes int64) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		logger:    logger,
		maxBytes:  maxBytes,
	}
}

func (h *PageHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderUpload(w, r, http.StatusOK, "")
}

// HandleUpload ingests a form upload and redirects to its dashboard. On
// failure the upload page is shown again with the reason.
func (h *PageHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := openUpload(w, r, h.maxBytes)
	if err != nil {
		status, msg := userMessage(err)
		h.renderUpload(w, r, status, msg)
		return
	}
	defer file.Close()

	ds, err := h.dashboard.Upload(r.Context(), header.Filename, file)
	if err != nil {
		status, msg := userMessage(err)
		h.renderUpload(w, r, status, msg)
		return
	}

	http.Redirect(w, r, "/datasets/"+ds.ID, http.StatusSeeOther)
}

func (h *PageHandlers) HandleDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	branch := selectedBranch(r.URL.Query().Get("branch"))

	ds, err := h.dashboard.Dataset(r.Context(), id)
	if err != nil {
		status, msg := userMessage(err)
		h.renderUpload(w, r, status, msg)
		return
	}

	report, err := h.dashboard.Report(r.Context(), id, branch)
	if err != nil {
		status, msg := userMessage(err)
		h.renderUpload(w, r, status, msg)
		return
	}

	view := templates.DashboardView{
		Dataset:  ds.Info(),
		Branches: sales.SelectorOptions(ds.Branches),
		Selected: branch,
		Report:   report,
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", noStore)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.DashboardPage(view).Render(ctx, w); err != nil {
		h.logger.Error("render dashboard", "error", err, "request_id", observability.GetRequestID(r.Context()))
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (h *PageHandlers) renderUpload(w http.ResponseWriter, r *http.Request, status int, msg string) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	page := templates.UploadPage(templates.UploadView{
		Error:    msg,
		MaxBytes: h.maxBytes,
	})
	templ.Handler(page,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			h.logger.Error("render upload page", "error", err, "request_id", observability.GetRequestID(r.Context()))
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "render error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r.WithContext(ctx))
}

// selectedBranch maps an absent branch selection to every branch.
func selectedBranch(branch string) string {
	if branch == "" {
		return sales.AllBranches
	}
	return branch
}
