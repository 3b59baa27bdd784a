package models

import "time"

// Transaction is one row of the uploaded sales table. Nullable numeric
// columns are pointers; a nil value means the cell was empty.
type Transaction struct {
	Branch       string   `json:"branch"`
	Product      string   `json:"product"`
	Year         int      `json:"year" validate:"gt=0"`
	Month        int      `json:"month" validate:"min=1,max=12"`
	UnitsSold    *float64 `json:"units_sold"`
	TotalRevenue *float64 `json:"total_revenue"`
	TotalCost    *float64 `json:"total_cost"`
}

// Dataset is an uploaded table kept for the duration of a dashboard session.
type Dataset struct {
	ID         string        `json:"id"`
	Filename   string        `json:"filename"`
	UploadedAt time.Time     `json:"uploaded_at"`
	Branches   []string      `json:"branches"`
	Rows       []Transaction `json:"rows"`
}

type DatasetInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	RowCount   int       `json:"rows"`
	Branches   []string  `json:"branches"`
}

func (d Dataset) Info() DatasetInfo {
	return DatasetInfo{
		ID:         d.ID,
		Filename:   d.Filename,
		UploadedAt: d.UploadedAt,
		RowCount:   len(d.Rows),
		Branches:   d.Branches,
	}
}

// Float returns a pointer to v, for building Transactions in code.
func Float(v float64) *float64 {
	return &v
}

func valueOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Units returns the units sold, treating a null as zero.
func (t Transaction) Units() float64 { return valueOf(t.UnitsSold) }

// Revenue returns the total revenue, treating a null as zero.
func (t Transaction) Revenue() float64 { return valueOf(t.TotalRevenue) }

// Cost returns the total cost, treating a null as zero.
func (t Transaction) Cost() float64 { return valueOf(t.TotalCost) }
