package sales

import "sales-dashboard/internal/models"

// ValidateProductGroup checks the rows of one product. Rules are applied in
// a fixed priority (nulls, negative revenue, non-positive units) and the
// first broken rule is returned.
func ValidateProductGroup(rows []models.Transaction) models.Violation {
	for _, tx := range rows {
		if tx.UnitsSold == nil || tx.TotalRevenue == nil {
			return models.NullValues
		}
	}
	for _, tx := range rows {
		if *tx.TotalRevenue < 0 {
			return models.NegativeRevenue
		}
	}
	for _, tx := range rows {
		if *tx.UnitsSold <= 0 {
			return models.NonPositiveUnits
		}
	}
	return models.Valid
}
