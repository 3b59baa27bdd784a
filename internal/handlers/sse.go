package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// reportSignals are the datastar signals sent by the branch selector.
type reportSignals struct {
	Branch string `json:"branch"`
}

// HandleReport recomputes the report for the selected branch and patches
// the #report element and the reportSummary signal.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var signals reportSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Invalid datastar signals"), requestID)
		return
	}

	report, err := h.dashboard.Report(r.Context(), r.PathValue("id"), selectedBranch(signals.Branch))
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	html, err := templates.RenderString(ctx, templates.Report(report))
	if err != nil {
		h.logger.Error("render report", "error", err, "request_id", requestID)
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to render report"), requestID)
		return
	}

	summary, err := json.Marshal(map[string]any{
		"reportSummary": templates.Summary(report),
	})
	if err != nil {
		h.logger.Error("marshal report summary", "error", err, "request_id", requestID)
		return
	}

	sse := datastar.NewSSE(w, r)

	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch report", "error", err, "request_id", requestID)
		return
	}
	if err := sse.PatchSignals(summary); err != nil {
		h.logger.Warn("patch report summary", "error", err, "request_id", requestID)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
