package models

import "fmt"

// Violation identifies why a product group was rejected. Valid means none.
type Violation string

const (
	Valid            Violation = "valid"
	NullValues       Violation = "null_values"
	NegativeRevenue  Violation = "negative_revenue"
	NonPositiveUnits Violation = "non_positive_units"
)

// Message is the human-readable form shown next to the rejected product.
func (v Violation) Message(product string) string {
	switch v {
	case NullValues:
		return fmt.Sprintf("product %q has null values", product)
	case NegativeRevenue:
		return fmt.Sprintf("product %q has negative values in total revenue", product)
	case NonPositiveUnits:
		return fmt.Sprintf("product %q has non-positive values in units sold", product)
	default:
		return ""
	}
}

type MonthlyPoint struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	UnitsSold float64 `json:"units_sold"`
}

func (p MonthlyPoint) Label() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Trend is an ordinary least-squares fit of units against the ordinal
// position of each monthly point. Sufficient is false when the series has
// fewer than two points; Slope and Intercept are then meaningless.
type Trend struct {
	Sufficient bool    `json:"sufficient"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
}

// At evaluates the fitted line at ordinal position i.
func (t Trend) At(i int) float64 {
	return t.Slope*float64(i) + t.Intercept
}

type MetricSet struct {
	AveragePrice  Figure `json:"average_price"`
	AverageMargin Figure `json:"average_margin"`
	UnitsSold     Figure `json:"units_sold"`
}

type YearComparison struct {
	CurrentYear int       `json:"current_year"`
	PriorYear   int       `json:"prior_year"`
	Current     MetricSet `json:"current"`
	Prior       MetricSet `json:"prior"`
	Delta       MetricSet `json:"delta"`
}

type ProductSummary struct {
	Product        string         `json:"product"`
	UnitsSold      float64        `json:"units_sold"`
	TotalRevenue   float64        `json:"total_revenue"`
	TotalCost      float64        `json:"total_cost"`
	AveragePrice   Figure         `json:"average_price"`
	AverageMargin  Figure         `json:"average_margin"`
	PriceVsOverall Figure         `json:"price_vs_overall"`
	Comparison     YearComparison `json:"comparison"`
	Series         []MonthlyPoint `json:"series"`
	Trend          Trend          `json:"trend"`
}

type ProductViolation struct {
	Product string    `json:"product"`
	Rule    Violation `json:"rule"`
	Message string    `json:"message"`
}

// ProductResult holds either a summary or the violation that excluded the
// product.
type ProductResult struct {
	Product   string            `json:"product"`
	Summary   *ProductSummary   `json:"summary,omitempty"`
	Violation *ProductViolation `json:"violation,omitempty"`
}

type Report struct {
	Branch       string          `json:"branch"`
	CurrentYear  int             `json:"current_year"`
	PriorYear    int             `json:"prior_year"`
	RowCount     int             `json:"row_count"`
	OverallPrice Figure          `json:"overall_price"`
	Results      []ProductResult `json:"results"`
}

// Empty reports whether the branch filter left no rows.
func (r Report) Empty() bool {
	return r.RowCount == 0
}

func (r Report) Summaries() []ProductSummary {
	out := make([]ProductSummary, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Summary != nil {
			out = append(out, *res.Summary)
		}
	}
	return out
}

func (r Report) Violations() []ProductViolation {
	var out []ProductViolation
	for _, res := range r.Results {
		if res.Violation != nil {
			out = append(out, *res.Violation)
		}
	}
	return out
}
