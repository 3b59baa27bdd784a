package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/store"
)

const widgetCSV = `Sucursal,Producto,Año,Mes,Unidades_vendidas,Ingreso_total,Costo_total
North,Widget,2023,1,100,1000,600
North,Widget,2023,2,120,1200,720
North,Widget,2024,1,150,1650,1000
North,Widget,2024,2,180,1980,1200
South,Gadget,2024,1,10,-5,1
`

func newTestDashboard(t *testing.T) (*Dashboard, *observability.Metrics) {
	t.Helper()
	cfg := &config.Config{
		Upload: config.UploadConfig{ParseTimeout: 5 * time.Second},
	}
	metrics := observability.NewMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDashboard(store.NewMemory(8, time.Hour), cfg, logger, metrics)
	d.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return d, metrics
}

// seriesCount returns how many label sets a metric family has gathered.
func seriesCount(t *testing.T, m *observability.Metrics, name string) int {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestDashboard_UploadAndReport(t *testing.T) {
	ctx := context.Background()
	d, metrics := newTestDashboard(t)

	ds, err := d.Upload(ctx, "/tmp/ventas.csv", strings.NewReader(widgetCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "ventas.csv", ds.Filename)
	assert.Equal(t, []string{"North", "South"}, ds.Branches)
	assert.Len(t, ds.Rows, 5)

	report, err := d.Report(ctx, ds.ID, "North")
	require.NoError(t, err)
	assert.Equal(t, 2024, report.CurrentYear)
	assert.Equal(t, 2023, report.PriorYear)

	summaries := report.Summaries()
	require.Len(t, summaries, 1)
	widget := summaries[0]
	assert.Equal(t, 550.0, widget.UnitsSold)

	delta, ok := widget.Comparison.Delta.UnitsSold.Value()
	require.True(t, ok)
	assert.InDelta(t, 50.0, delta, 1e-9)

	assert.Equal(t, 1, seriesCount(t, metrics, "salesdash_reports_total"))
	assert.Equal(t, 1, seriesCount(t, metrics, "salesdash_uploads_total"))
}

func TestDashboard_ReportAllBranchesFlagsViolations(t *testing.T) {
	ctx := context.Background()
	d, metrics := newTestDashboard(t)

	ds, err := d.Upload(ctx, "ventas.csv", strings.NewReader(widgetCSV))
	require.NoError(t, err)

	report, err := d.Report(ctx, ds.ID, "Todas")
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	violations := report.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, models.NegativeRevenue, violations[0].Rule)
	assert.Equal(t, `product "Gadget" has negative values in total revenue`, violations[0].Message)

	assert.Equal(t, 1, seriesCount(t, metrics, "salesdash_product_violations_total"))
}

func TestDashboard_UnknownBranchIsEmpty(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDashboard(t)

	ds, err := d.Upload(ctx, "ventas.csv", strings.NewReader(widgetCSV))
	require.NoError(t, err)

	report, err := d.Report(ctx, ds.ID, "East")
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Empty(t, report.Results)
}

func TestDashboard_UploadRejected(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDashboard(t)

	_, err := d.Upload(ctx, "ventas.csv", strings.NewReader("Sucursal,Producto\nNorth,Widget\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrMissingColumn)

	stats := d.Stats()
	assert.Equal(t, int64(0), stats["uploads"])
	assert.Equal(t, int64(1), stats["rejected_uploads"])
	assert.NotContains(t, stats, "last_upload")
}

func TestDashboard_MissingDataset(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDashboard(t)

	_, err := d.Report(ctx, "nope", "Todas")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = d.Branches(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDashboard_BranchesAndForget(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDashboard(t)

	ds, err := d.Upload(ctx, "ventas.csv", strings.NewReader(widgetCSV))
	require.NoError(t, err)

	branches, err := d.Branches(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Todas", "North", "South"}, branches)

	require.NoError(t, d.Forget(ctx, ds.ID))
	require.NoError(t, d.Forget(ctx, ds.ID))
	_, err = d.Dataset(ctx, ds.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDashboard_Stats(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDashboard(t)

	ds, err := d.Upload(ctx, "ventas.csv", strings.NewReader(widgetCSV))
	require.NoError(t, err)
	_, err = d.Report(ctx, ds.ID, "North")
	require.NoError(t, err)

	stats := d.Stats()
	assert.Equal(t, int64(1), stats["uploads"])
	assert.Equal(t, int64(5), stats["rows_ingested"])
	assert.Equal(t, int64(1), stats["reports_served"])
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), stats["last_upload"])
}

func TestDashboard_ConfiguredYears(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDashboard(t)
	d.report.CurrentYear = 2023
	d.report.PriorYear = 2022

	ds, err := d.Upload(ctx, "ventas.csv", strings.NewReader(widgetCSV))
	require.NoError(t, err)

	report, err := d.Report(ctx, ds.ID, "North")
	require.NoError(t, err)
	assert.Equal(t, 2023, report.CurrentYear)

	widget := report.Summaries()[0]
	assert.False(t, widget.Comparison.Delta.UnitsSold.Applicable(), "no 2022 units to compare against")
}
