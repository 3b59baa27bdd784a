package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/store"
)

const defaultParseTimeout = 30 * time.Second

// Dashboard ties ingestion, the session dataset store and the sales
// aggregator together. It is safe for concurrent use.
type Dashboard struct {
	store        store.Store
	logger       *slog.Logger
	metrics      *observability.Metrics
	report       config.ReportConfig
	parseTimeout time.Duration
	now          func() time.Time

	uploads      atomic.Int64
	rejected     atomic.Int64
	reports      atomic.Int64
	rowsIngested atomic.Int64

	mu         sync.RWMutex
	lastUpload time.Time
}

func NewDashboard(st store.Store, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	parseTimeout := cfg.Upload.ParseTimeout
	if parseTimeout <= 0 {
		parseTimeout = defaultParseTimeout
	}
	return &Dashboard{
		store:        st,
		logger:       logger,
		metrics:      metrics,
		report:       cfg.Report,
		parseTimeout: parseTimeout,
		now:          time.Now,
	}
}

// Upload parses a CSV or XLSX file and keeps it in the session store.
func (d *Dashboard) Upload(ctx context.Context, filename string, r io.Reader) (models.Dataset, error) {
	ctx, span := observability.StartSpan(ctx, "dashboard.upload")
	defer span.Finish(d.logger)
	span.SetTag("filename", filename)

	logger := observability.LoggerFrom(ctx, d.logger)

	ctx, cancel := context.WithTimeout(ctx, d.parseTimeout)
	defer cancel()

	start := time.Now()
	rows, err := ingest.Read(ctx, filename, r)
	if err != nil {
		d.rejected.Add(1)
		d.metrics.UploadRejected()
		span.SetError(err)
		logger.Warn("upload rejected", "filename", filename, "error", err)
		return models.Dataset{}, fmt.Errorf("ingest %s: %w", filename, err)
	}

	ds := models.Dataset{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(filename),
		UploadedAt: d.now().UTC(),
		Branches:   sales.Branches(rows),
		Rows:       rows,
	}

	if err := d.store.Put(ctx, ds); err != nil {
		span.SetError(err)
		return models.Dataset{}, fmt.Errorf("store dataset: %w", err)
	}

	d.uploads.Add(1)
	d.rowsIngested.Add(int64(len(rows)))
	d.metrics.UploadAccepted(len(rows))

	d.mu.Lock()
	d.lastUpload = ds.UploadedAt
	d.mu.Unlock()

	span.SetTag("dataset_id", ds.ID)
	logger.Info("dataset uploaded",
		"dataset_id", ds.ID,
		"filename", ds.Filename,
		"rows", len(rows),
		"branches", len(ds.Branches),
		"duration", time.Since(start),
	)
	return ds, nil
}

func (d *Dashboard) Dataset(ctx context.Context, id string) (models.Dataset, error) {
	ds, err := d.store.Get(ctx, id)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("load dataset %s: %w", id, err)
	}
	return ds, nil
}

// Branches returns the selector options of a dataset, sentinel first.
func (d *Dashboard) Branches(ctx context.Context, id string) ([]string, error) {
	ds, err := d.Dataset(ctx, id)
	if err != nil {
		return nil, err
	}
	return sales.SelectorOptions(ds.Branches), nil
}

// Report rebuilds the sales report of a dataset for one branch selection.
// An unknown branch is not an error: it yields an empty report.
func (d *Dashboard) Report(ctx context.Context, id, branch string) (models.Report, error) {
	ctx, span := observability.StartSpan(ctx, "dashboard.report")
	defer span.Finish(d.logger)
	span.SetTag("dataset_id", id)
	span.SetTag("branch", branch)

	ds, err := d.Dataset(ctx, id)
	if err != nil {
		span.SetError(err)
		return models.Report{}, err
	}

	start := time.Now()
	report := sales.Aggregate(ds.Rows, sales.Options{
		Branch:      branch,
		CurrentYear: d.report.CurrentYear,
		PriorYear:   d.report.PriorYear,
	})
	elapsed := time.Since(start)

	violations := report.Violations()
	for _, v := range violations {
		d.metrics.Violation(string(v.Rule))
	}
	d.reports.Add(1)
	d.metrics.ReportComputed(elapsed)

	observability.LoggerFrom(ctx, d.logger).Info("report computed",
		"dataset_id", id,
		"branch", report.Branch,
		"rows", report.RowCount,
		"products", len(report.Results),
		"violations", len(violations),
		"duration", elapsed,
	)
	return report, nil
}

// Forget drops a dataset before its TTL runs out.
func (d *Dashboard) Forget(ctx context.Context, id string) error {
	if err := d.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	return nil
}

func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	last := d.lastUpload
	d.mu.RUnlock()

	stats := map[string]any{
		"uploads":          d.uploads.Load(),
		"rejected_uploads": d.rejected.Load(),
		"rows_ingested":    d.rowsIngested.Load(),
		"reports_served":   d.reports.Load(),
	}
	if !last.IsZero() {
		stats["last_upload"] = last
	}
	return stats
}
