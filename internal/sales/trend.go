package sales

import (
	"cmp"
	"slices"

	"sales-dashboard/internal/models"
)

type Series struct {
	Points []models.MonthlyPoint
	Trend  models.Trend
}

// MonthlySeriesWithTrend sums units per (year, month), sorts the points
// chronologically and fits units = slope*i + intercept over the zero-based
// point index i. The fit runs over calendar months, not over rows: rows
// sharing a month (one per branch under AllBranches) become a single point,
// so the slope differs from a per-row fit whenever months repeat. With
// fewer than two points the trend is marked insufficient instead of being
// fitted.
func MonthlySeriesWithTrend(rows []models.Transaction) Series {
	type key struct{ year, month int }
	sums := make(map[key]float64)
	for _, tx := range rows {
		sums[key{tx.Year, tx.Month}] += tx.Units()
	}

	points := make([]models.MonthlyPoint, 0, len(sums))
	for k, units := range sums {
		points = append(points, models.MonthlyPoint{Year: k.year, Month: k.month, UnitsSold: units})
	}
	slices.SortFunc(points, func(a, b models.MonthlyPoint) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})

	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.UnitsSold
	}
	return Series{Points: points, Trend: FitTrend(ys)}
}

// FitTrend runs an ordinary least-squares regression of ys against their
// index.
func FitTrend(ys []float64) models.Trend {
	n := len(ys)
	if n < 2 {
		return models.Trend{Sufficient: false}
	}

	meanX := float64(n-1) / 2
	var meanY float64
	for _, y := range ys {
		meanY += y
	}
	meanY /= float64(n)

	var sxx, sxy float64
	for i, y := range ys {
		dx := float64(i) - meanX
		sxx += dx * dx
		sxy += dx * (y - meanY)
	}

	slope := sxy / sxx
	return models.Trend{
		Sufficient: true,
		Slope:      slope,
		Intercept:  meanY - slope*meanX,
	}
}
