// Package templates holds the dashboard pages and the report fragment that
// the SSE endpoint patches into #report.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

var funcs = template.FuncMap{
	"money":  Money,
	"count":  count,
	"price":  Price,
	"margin": Margin,
	"units":  Units,
	"delta":  Delta,
	"signed": Signed,
	"chart":  chart,
	"slug":   slug,
	"script": func() string { return datastarScript },
}

var pages = template.Must(template.New("pages").Funcs(funcs).Parse(layoutHTML + uploadHTML + dashboardHTML + reportHTML))

type UploadView struct {
	Error    string
	MaxBytes int64
}

type DashboardView struct {
	Dataset  models.DatasetInfo
	Branches []string
	Selected string
	Report   models.Report
}

// ReportURL is the SSE endpoint the branch selector calls.
func (v DashboardView) ReportURL() string {
	return "/sse/datasets/" + v.Dataset.ID + "/report"
}

// Signals is the initial datastar signal object of the page.
func (v DashboardView) Signals() string {
	b, _ := json.Marshal(map[string]any{
		"branch":        v.Selected,
		"reportSummary": Summary(v.Report),
	})
	return string(b)
}

// ReportSummary is pushed as the reportSummary signal next to each report
// patch.
type ReportSummary struct {
	Branch     string `json:"branch"`
	Rows       int    `json:"rows"`
	Products   int    `json:"products"`
	Violations int    `json:"violations"`
	Period     string `json:"period"`
}

func Summary(r models.Report) ReportSummary {
	s := ReportSummary{
		Branch:     r.Branch,
		Rows:       r.RowCount,
		Products:   len(r.Summaries()),
		Violations: len(r.Violations()),
	}
	if !r.Empty() {
		s.Period = Period(r)
	}
	return s
}

func Period(r models.Report) string {
	return fmt.Sprintf("%d vs %d", r.PriorYear, r.CurrentYear)
}

func UploadPage(v UploadView) templ.Component {
	return component("upload", v)
}

func DashboardPage(v DashboardView) templ.Component {
	return component("dashboard", v)
}

// Report renders the #report fragment for one branch selection.
func Report(r models.Report) templ.Component {
	return component("report", r)
}

// RenderString renders a component into a string, for SSE patches.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return pages.ExecuteTemplate(w, name, data)
	})
}

func chart(s *models.ProductSummary) template.HTML {
	svg, err := charts.UnitsTrend(0, 0, s.Series, s.Trend, charts.Opts{Title: s.Product + " units"})
	if err != nil {
		return `<p class="trend-note">no monthly data</p>`
	}
	if !s.Trend.Sufficient {
		return svg + `<p class="trend-note">insufficient data for a trend line</p>`
	}
	return svg
}

func slug(s string) string {
	return charts.ElementID(s)
}

func count(v any) string {
	switch n := v.(type) {
	case int:
		return Count(float64(n))
	case int64:
		return Count(float64(n))
	case float64:
		return Count(n)
	default:
		return fmt.Sprint(v)
	}
}

const layoutHTML = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}} · Sales dashboard</title>
<script type="module" src="{{script}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f8fafc;color:#0f172a}
main{max-width:1100px;margin:0 auto;padding:24px}
.product-card{background:#fff;border:1px solid #e2e8f0;border-radius:8px;padding:16px;margin:16px 0}
.violation{color:#b91c1c;font-weight:600}
.metrics{border-collapse:collapse;width:100%}
.metrics td,.metrics th{padding:4px 8px;text-align:right;border-bottom:1px solid #e2e8f0}
.metrics td:first-child,.metrics th:first-child{text-align:left}
.error{color:#b91c1c}
.trend-note,.empty{color:#64748b}
</style>
</head>
<body><main>{{end}}
{{define "foot"}}</main></body></html>{{end}}
`

const uploadHTML = `
{{define "upload"}}{{template "head" "Upload"}}
<h1>Sales dashboard</h1>
<p>Upload a CSV or XLSX file with the columns Sucursal, Producto, Año, Mes, Unidades_vendidas, Ingreso_total and Costo_total.</p>
{{if .Error}}<p class="error" role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/upload" enctype="multipart/form-data">
<input type="file" name="file" accept=".csv,.xlsx,text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" required>
<button type="submit">Upload</button>
</form>
{{if .MaxBytes}}<p class="empty">Maximum file size: {{count .MaxBytes}} bytes.</p>{{end}}
{{template "foot"}}{{end}}
`

const dashboardHTML = `
{{define "dashboard"}}{{template "head" .Dataset.Filename}}
<header data-signals="{{.Signals}}">
<h1>{{.Dataset.Filename}}</h1>
<p class="empty">{{count .Dataset.RowCount}} rows · uploaded {{.Dataset.UploadedAt.Format "2006-01-02 15:04"}} UTC · <a href="/">upload another file</a></p>
<label for="branch">Branch</label>
<select id="branch" data-bind-branch data-on-change="@get('{{.ReportURL}}')">
{{range .Branches}}<option value="{{.}}"{{if eq . $.Selected}} selected{{end}}>{{.}}</option>{{end}}
</select>
<span class="empty" data-text="$reportSummary.products + ' products, ' + $reportSummary.violations + ' flagged'"></span>
</header>
{{template "report" .Report}}
{{template "foot"}}{{end}}
`

const reportHTML = `
{{define "report"}}<div id="report">
{{if .Empty}}<p class="empty">no data</p>{{else}}
<p class="empty">Branch {{.Branch}} · {{.PriorYear}} vs {{.CurrentYear}} · {{count .RowCount}} rows · overall average price {{price .OverallPrice}}</p>
{{range .Results}}<article class="product-card" id="product-{{slug .Product}}">
<h2>{{.Product}}</h2>
{{with .Violation}}<p class="violation" data-rule="{{.Rule}}">{{.Message}}</p>{{end}}
{{with .Summary}}<p>{{count .UnitsSold}} units · revenue {{money .TotalRevenue}} · cost {{money .TotalCost}} · average price {{price .AveragePrice}} ({{signed .PriceVsOverall}} vs overall) · margin {{margin .AverageMargin}}</p>
<table class="metrics">
<thead><tr><th>Metric</th><th>{{.Comparison.PriorYear}}</th><th>{{.Comparison.CurrentYear}}</th><th>Change</th></tr></thead>
<tbody>
<tr><td>Average price</td><td>{{price .Comparison.Prior.AveragePrice}}</td><td>{{price .Comparison.Current.AveragePrice}}</td><td>{{delta .Comparison.Delta.AveragePrice}}</td></tr>
<tr><td>Average margin</td><td>{{margin .Comparison.Prior.AverageMargin}}</td><td>{{margin .Comparison.Current.AverageMargin}}</td><td>{{delta .Comparison.Delta.AverageMargin}}</td></tr>
<tr><td>Units sold</td><td>{{units .Comparison.Prior.UnitsSold}}</td><td>{{units .Comparison.Current.UnitsSold}}</td><td>{{delta .Comparison.Delta.UnitsSold}}</td></tr>
</tbody>
</table>
{{chart .}}{{end}}
</article>
{{end}}{{end}}
</div>{{end}}
`
