package sales

import "sales-dashboard/internal/models"

type Options struct {
	Branch string
	// CurrentYear and PriorYear select the year-over-year comparison. Zero
	// means: the latest year present after filtering, and the year before it.
	CurrentYear int
	PriorYear   int
}

// Aggregate runs the full pipeline over an uploaded table: branch filter,
// grouping by product, validation, per-product summaries and trends.
// Products are evaluated one after another and reported in first-seen order.
func Aggregate(rows []models.Transaction, opts Options) models.Report {
	filtered := FilterByBranch(rows, opts.Branch)
	current, prior := CompareYears(filtered, opts.CurrentYear, opts.PriorYear)

	overall := SummarizeProduct(filtered)
	report := models.Report{
		Branch:       opts.Branch,
		CurrentYear:  current,
		PriorYear:    prior,
		RowCount:     len(filtered),
		OverallPrice: models.Ratio(overall.Revenue, overall.Units),
	}

	groups := GroupByProduct(filtered)
	results := make([]models.ProductResult, len(groups))
	for i, group := range groups {
		results[i] = evaluate(group, current, prior, report.OverallPrice)
	}

	report.Results = results
	return report
}

// CompareYears resolves the comparison years, filling zero values from the
// rows.
func CompareYears(rows []models.Transaction, current, prior int) (int, int) {
	if current == 0 {
		for _, tx := range rows {
			current = max(current, tx.Year)
		}
	}
	if prior == 0 && current != 0 {
		prior = current - 1
	}
	return current, prior
}

func evaluate(group Group, current, prior int, overallPrice models.Figure) models.ProductResult {
	if v := ValidateProductGroup(group.Rows); v != models.Valid {
		return models.ProductResult{
			Product: group.Product,
			Violation: &models.ProductViolation{
				Product: group.Product,
				Rule:    v,
				Message: v.Message(group.Product),
			},
		}
	}

	totals := SummarizeProduct(group.Rows)
	series := MonthlySeriesWithTrend(group.Rows)

	priceVsOverall := models.NotApplicable
	if p, ok := totals.AveragePrice.Value(); ok {
		if o, ok := overallPrice.Value(); ok {
			priceVsOverall = models.Known(p - o)
		}
	}

	return models.ProductResult{
		Product: group.Product,
		Summary: &models.ProductSummary{
			Product:        group.Product,
			UnitsSold:      totals.Units,
			TotalRevenue:   totals.Revenue,
			TotalCost:      totals.Cost,
			AveragePrice:   totals.AveragePrice,
			AverageMargin:  totals.AverageMargin,
			PriceVsOverall: priceVsOverall,
			Comparison:     compareYears(group.Rows, current, prior),
			Series:         series.Points,
			Trend:          series.Trend,
		},
	}
}
