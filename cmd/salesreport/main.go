// Command salesreport prints the sales report of a CSV or XLSX file for one
// branch, as a text table or JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/ui/templates"
)

type options struct {
	file     string
	branch   string
	format   string
	current  int
	prior    int
	logLevel string
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("salesreport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.file, "file", "", "CSV or XLSX file to report on (required)")
	fs.StringVar(&opts.branch, "branch", sales.AllBranches, "branch to report on")
	fs.StringVar(&opts.format, "format", "text", "output format: text or json")
	fs.IntVar(&opts.current, "current-year", 0, "current year of the comparison (default: latest year in the data)")
	fs.IntVar(&opts.prior, "prior-year", 0, "prior year of the comparison (default: current year - 1)")
	fs.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.file == "" {
		fmt.Fprintln(stderr, "salesreport: -file is required")
		fs.Usage()
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "salesreport: unknown format %q\n", opts.format)
		return 2
	}

	logger := observability.NewLoggerTo(stderr, config.LoggerConfig{Level: opts.logLevel, Format: "text"})

	report, err := buildReport(ctx, opts)
	if err != nil {
		logger.Error("report failed", "file", opts.file, "error", err)
		var missing *ingest.MissingColumnError
		if errors.As(err, &missing) {
			fmt.Fprintf(stderr, "salesreport: missing columns: %v\n", missing.Columns)
		}
		return 1
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	default:
		err = writeText(stdout, report)
	}
	if err != nil {
		logger.Error("write report", "error", err)
		return 1
	}
	return 0
}

func buildReport(ctx context.Context, opts options) (models.Report, error) {
	f, err := os.Open(opts.file)
	if err != nil {
		return models.Report{}, err
	}
	defer f.Close()

	rows, err := ingest.Read(ctx, opts.file, f)
	if err != nil {
		return models.Report{}, err
	}

	return sales.Aggregate(rows, sales.Options{
		Branch:      opts.branch,
		CurrentYear: opts.current,
		PriorYear:   opts.prior,
	}), nil
}

func writeText(w io.Writer, r models.Report) error {
	if r.Empty() {
		_, err := fmt.Fprintf(w, "Branch %s: no data\n", r.Branch)
		return err
	}

	fmt.Fprintf(w, "Branch %s, %s, %s rows, overall average price %s\n\n",
		r.Branch, templates.Period(r), templates.Count(float64(r.RowCount)), templates.Price(r.OverallPrice))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Product\tUnits\tRevenue\tAvg price\tMargin\tPrice Δ\tMargin Δ\tUnits Δ\tTrend\t")
	for _, s := range r.Summaries() {
		delta := s.Comparison.Delta
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Product,
			templates.Count(s.UnitsSold),
			templates.Money(s.TotalRevenue),
			templates.Price(s.AveragePrice),
			templates.Margin(s.AverageMargin),
			templates.Delta(delta.AveragePrice),
			templates.Delta(delta.AverageMargin),
			templates.Delta(delta.UnitsSold),
			trend(s.Trend),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	violations := r.Violations()
	if len(violations) > 0 {
		fmt.Fprintln(w)
		for _, v := range violations {
			fmt.Fprintf(w, "excluded: %s\n", v.Message)
		}
	}
	return nil
}

func trend(t models.Trend) string {
	if !t.Sufficient {
		return "insufficient data"
	}
	return fmt.Sprintf("%+.2f/month", t.Slope)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
