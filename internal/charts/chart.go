// Package charts renders the monthly unit series of a product as an inline
// SVG line chart with its fitted trend line.
package charts

import (
	"fmt"
	"hash/fnv"
	"html/template"
	"math"
	"strings"

	"sales-dashboard/internal/models"
)

const (
	DefaultWidth   = 480
	DefaultHeight  = 200
	DefaultPadding = 32.0
	DefaultTicks   = 4
)

type Opts struct {
	Title       string
	StrokeColor string
	TrendColor  string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// UnitsTrend draws units sold per month. The trend overlay is drawn only
// when the trend is sufficient.
func UnitsTrend(width, height int, points []models.MonthlyPoint, trend models.Trend, opts Opts) (template.HTML, error) {
	if len(points) == 0 {
		return "", fmt.Errorf("charts: series required")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	stroke := fallback(opts.StrokeColor, "#2563eb")
	trendColor := fallback(opts.TrendColor, "#dc2626")
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#e2e8f0")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("charts: viewport too small")
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.UnitsSold
	}
	minVal, maxVal := bounds(values)
	if trend.Sufficient {
		for _, v := range []float64{trend.At(0), trend.At(len(points) - 1)} {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if minVal > 0 {
		minVal = 0
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	scale := chartHeight / (maxVal - minVal)

	x := func(i int) float64 {
		if len(points) == 1 {
			return padding + chartWidth/2
		}
		return padding + float64(i)*chartWidth/float64(len(points)-1)
	}
	y := func(v float64) float64 {
		return padding + chartHeight - (v-minVal)*scale
	}

	titleID := makeID(opts.Title, "title")

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s" class="chart">`, width, height, titleID)
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Units sold per month")))

	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		ty := padding + chartHeight - ratio*chartHeight
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" aria-hidden="true"></line>`, padding, ty, padding+chartWidth, ty, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, padding-6, ty+4, axisColor, formatTick(minVal+(maxVal-minVal)*ratio))
	}

	fmt.Fprintf(&b, `<g stroke="%s">`, axisColor)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, padding, padding, padding, padding+chartHeight)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, padding, padding+chartHeight, padding+chartWidth, padding+chartHeight)
	b.WriteString(`</g>`)

	var path strings.Builder
	for i, v := range values {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			path.WriteByte(' ')
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, x(i), y(v))
	}
	fmt.Fprintf(&b, `<path class="series" d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"></path>`, path.String(), stroke)
	for i, v := range values {
		fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"><title>%s: %s</title></circle>`, x(i), y(v), stroke, points[i].Label(), formatTick(v))
	}

	if trend.Sufficient {
		last := len(points) - 1
		fmt.Fprintf(&b, `<line class="trend" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1.5" stroke-dasharray="6,4"></line>`,
			x(0), y(trend.At(0)), x(last), y(trend.At(last)), trendColor)
	}

	every := labelStride(len(points))
	for i, p := range points {
		if i%every != 0 && i != len(points)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x(i), padding+chartHeight+14, axisColor, p.Label())
	}

	b.WriteString(`</svg>`)
	return template.HTML(b.String()), nil
}

// labelStride thins x-axis labels so long series stay readable.
func labelStride(n int) int {
	if n <= 6 {
		return 1
	}
	return (n + 5) / 6
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func bounds(series []float64) (float64, float64) {
	minVal, maxVal := series[0], series[0]
	for _, v := range series[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	return ElementID(base) + "-" + suffix
}

// ElementID turns a display name into an HTML id: an ASCII slug followed by
// a hash of the full name, so names that slug alike ("Café", "Caf") stay
// distinct.
func ElementID(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(name)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "item"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("%s-%08x", cleaned, h.Sum32())
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
