package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Column int

const (
	ColBranch Column = iota
	ColProduct
	ColYear
	ColMonth
	ColUnitsSold
	ColTotalRevenue
	ColTotalCost
	columnCount
)

// Name is the canonical header used in the upload template.
func (c Column) Name() string {
	switch c {
	case ColBranch:
		return "Sucursal"
	case ColProduct:
		return "Producto"
	case ColYear:
		return "Año"
	case ColMonth:
		return "Mes"
	case ColUnitsSold:
		return "Unidades_vendidas"
	case ColTotalRevenue:
		return "Ingreso_total"
	case ColTotalCost:
		return "Costo_total"
	default:
		return "unknown"
	}
}

// Accepted header spellings, after NormalizeHeader.
var aliases = map[string]Column{
	"sucursal":         ColBranch,
	"branch":           ColBranch,
	"store":            ColBranch,
	"producto":         ColProduct,
	"product":          ColProduct,
	"ano":              ColYear,
	"anio":             ColYear,
	"year":             ColYear,
	"mes":              ColMonth,
	"month":            ColMonth,
	"unidadesvendidas": ColUnitsSold,
	"unitssold":        ColUnitsSold,
	"units":            ColUnitsSold,
	"ingresototal":     ColTotalRevenue,
	"totalrevenue":     ColTotalRevenue,
	"revenue":          ColTotalRevenue,
	"costototal":       ColTotalCost,
	"totalcost":        ColTotalCost,
	"cost":             ColTotalCost,
}

// NormalizeHeader folds case and accents and drops spaces, underscores and
// hyphens, so "Año", "ANO" and " a_ño " compare equal.
func NormalizeHeader(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.TrimPrefix(folded, "\ufeff")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, folded)
}

// Mapping holds the record index of every required column.
type Mapping [columnCount]int

// MapColumns resolves the required columns in a header row. The first
// matching header wins; unknown headers are ignored.
func MapColumns(header []string) (Mapping, error) {
	var m Mapping
	for i := range m {
		m[i] = -1
	}
	for idx, name := range header {
		col, ok := aliases[NormalizeHeader(name)]
		if !ok || m[col] != -1 {
			continue
		}
		m[col] = idx
	}

	var missing []string
	for col, idx := range m {
		if idx == -1 {
			missing = append(missing, Column(col).Name())
		}
	}
	if len(missing) > 0 {
		return m, &MissingColumnError{Columns: missing}
	}
	return m, nil
}

func (m Mapping) cell(record []string, col Column) string {
	idx := m[col]
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
