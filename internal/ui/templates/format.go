package templates

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sales-dashboard/internal/models"
)

const notApplicable = "n/a"

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// Money renders an amount as $1,234.56.
func Money(v float64) string {
	if v < 0 {
		return "-$" + printer().Sprintf("%.2f", math.Abs(v))
	}
	return "$" + printer().Sprintf("%.2f", v)
}

// Count renders a quantity with thousands separators and no decimals.
func Count(v float64) string {
	return printer().Sprintf("%.0f", v)
}

func Price(f models.Figure) string {
	v, ok := f.Value()
	if !ok {
		return notApplicable
	}
	return Money(v)
}

func Margin(f models.Figure) string {
	v, ok := f.Value()
	if !ok {
		return notApplicable
	}
	return printer().Sprintf("%.2f", v) + "%"
}

func Units(f models.Figure) string {
	v, ok := f.Value()
	if !ok {
		return notApplicable
	}
	return Count(v)
}

// Delta renders a signed percentage change such as +10.00% or -3.21%.
func Delta(f models.Figure) string {
	v, ok := f.Value()
	if !ok {
		return notApplicable
	}
	sign := "+"
	if v < 0 {
		sign = "-"
	}
	return sign + printer().Sprintf("%.2f", math.Abs(v)) + "%"
}

// Signed renders an amount difference such as +$1.50 or -$0.25.
func Signed(f models.Figure) string {
	v, ok := f.Value()
	if !ok {
		return notApplicable
	}
	if v < 0 {
		return Money(v)
	}
	return "+" + Money(v)
}
