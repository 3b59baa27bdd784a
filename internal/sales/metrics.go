package sales

import "sales-dashboard/internal/models"

type Metric int

const (
	AveragePrice Metric = iota
	AverageMargin
	UnitsSold
)

func (m Metric) String() string {
	switch m {
	case AveragePrice:
		return "average_price"
	case AverageMargin:
		return "average_margin"
	case UnitsSold:
		return "units_sold"
	default:
		return "unknown"
	}
}

type Totals struct {
	Units         float64
	Revenue       float64
	Cost          float64
	AveragePrice  models.Figure
	AverageMargin models.Figure
}

// SummarizeProduct sums units, revenue and cost and derives the average
// unit price and margin percentage. Either average is NotApplicable when its
// denominator sums to zero.
func SummarizeProduct(rows []models.Transaction) Totals {
	var t Totals
	for _, tx := range rows {
		t.Units += tx.Units()
		t.Revenue += tx.Revenue()
		t.Cost += tx.Cost()
	}
	t.AveragePrice = models.Ratio(t.Revenue, t.Units)
	t.AverageMargin = margin(t.Revenue, t.Cost)
	return t
}

func margin(revenue, cost float64) models.Figure {
	if revenue == 0 {
		return models.NotApplicable
	}
	return models.Known((revenue - cost) / revenue * 100)
}

// YearlySubsetMetric computes metric over the rows of a single year. Units
// of an empty year are zero; price and margin are NotApplicable when their
// denominator is zero.
func YearlySubsetMetric(rows []models.Transaction, year int, metric Metric) models.Figure {
	subset := make([]models.Transaction, 0, len(rows))
	for _, tx := range rows {
		if tx.Year == year {
			subset = append(subset, tx)
		}
	}
	t := SummarizeProduct(subset)
	switch metric {
	case AveragePrice:
		return t.AveragePrice
	case AverageMargin:
		return t.AverageMargin
	case UnitsSold:
		return models.Known(t.Units)
	default:
		return models.NotApplicable
	}
}

// YearOverYearDelta is the percentage change from prior to current. It is
// NotApplicable when either side is, or when prior is zero.
func YearOverYearDelta(current, prior models.Figure) models.Figure {
	p, ok := prior.Value()
	if !ok || p == 0 {
		return models.NotApplicable
	}
	c, ok := current.Value()
	if !ok {
		return models.NotApplicable
	}
	return models.Known((c/p - 1) * 100)
}

func compareYears(rows []models.Transaction, current, prior int) models.YearComparison {
	cmp := models.YearComparison{CurrentYear: current, PriorYear: prior}
	cmp.Current = metricSet(rows, current)
	cmp.Prior = metricSet(rows, prior)
	cmp.Delta = models.MetricSet{
		AveragePrice:  YearOverYearDelta(cmp.Current.AveragePrice, cmp.Prior.AveragePrice),
		AverageMargin: YearOverYearDelta(cmp.Current.AverageMargin, cmp.Prior.AverageMargin),
		UnitsSold:     YearOverYearDelta(cmp.Current.UnitsSold, cmp.Prior.UnitsSold),
	}
	return cmp
}

func metricSet(rows []models.Transaction, year int) models.MetricSet {
	return models.MetricSet{
		AveragePrice:  YearlySubsetMetric(rows, year, AveragePrice),
		AverageMargin: YearlySubsetMetric(rows, year, AverageMargin),
		UnitsSold:     YearlySubsetMetric(rows, year, UnitsSold),
	}
}
