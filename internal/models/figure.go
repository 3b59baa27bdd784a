package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Figure is a computed number that may be not applicable, for example a
// ratio whose denominator is zero. A not-applicable Figure is distinct from 0.
type Figure struct {
	value      float64
	applicable bool
}

var NotApplicable = Figure{}

func Known(v float64) Figure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotApplicable
	}
	return Figure{value: v, applicable: true}
}

// Ratio returns num/den, or NotApplicable when den is zero.
func Ratio(num, den float64) Figure {
	if den == 0 {
		return NotApplicable
	}
	return Known(num / den)
}

func (f Figure) Applicable() bool { return f.applicable }

// Value returns the number and whether it is applicable.
func (f Figure) Value() (float64, bool) { return f.value, f.applicable }

// Or returns the number, or fallback when not applicable.
func (f Figure) Or(fallback float64) float64 {
	if !f.applicable {
		return fallback
	}
	return f.value
}

func (f Figure) String() string {
	if !f.applicable {
		return "n/a"
	}
	return strconv.FormatFloat(f.value, 'f', 2, 64)
}

func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.applicable {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Figure) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = NotApplicable
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Known(v)
	return nil
}
