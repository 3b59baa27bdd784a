// Package ingest reads uploaded sales tables (CSV or XLSX) into typed
// transactions. Header names are mapped once, up front; a table without
// every required column is rejected before any row is parsed.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	batchSize  = 2000
	maxWorkers = 4
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var zipMagic = []byte("PK\x03\x04")

var validate = validator.New()

// DetectFormat picks the reader from the file extension, falling back to
// sniffing the content when there is none.
func DetectFormat(filename string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case "":
		if bytes.HasPrefix(head, zipMagic) {
			return FormatXLSX, nil
		}
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Read parses a whole upload. The reader is consumed fully.
func Read(ctx context.Context, filename string, r io.Reader) ([]models.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = xlsxRecords(data)
	default:
		records, err = csvRecords(data)
	}
	if err != nil {
		return nil, err
	}
	return ParseRecords(ctx, records)
}

// ParseRecords maps the header (first non-blank record) and converts every
// following non-blank record. Rows are parsed in batches on a bounded worker
// pool; the first bad cell aborts the whole table.
func ParseRecords(ctx context.Context, records [][]string) ([]models.Transaction, error) {
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, ErrEmptyFile
	}

	mapping, err := MapColumns(records[start])
	if err != nil {
		return nil, err
	}

	type numbered struct {
		line   int
		record []string
	}
	body := make([]numbered, 0, len(records)-start-1)
	for i := start + 1; i < len(records); i++ {
		if blank(records[i]) {
			continue
		}
		body = append(body, numbered{line: i + 1, record: records[i]})
	}

	out := make([]models.Transaction, len(body))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for lo := 0; lo < len(body); lo += batchSize {
		hi := min(lo+batchSize, len(body))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				tx, err := parseRecord(mapping, body[i].line, body[i].record)
				if err != nil {
					return err
				}
				out[i] = tx
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRecord(m Mapping, line int, record []string) (models.Transaction, error) {
	tx := models.Transaction{
		Branch:  m.cell(record, ColBranch),
		Product: m.cell(record, ColProduct),
	}

	var err error
	if tx.Year, err = parseInt(m.cell(record, ColYear)); err != nil {
		return tx, invalid(line, ColYear, m.cell(record, ColYear), err)
	}
	if tx.Month, err = parseInt(m.cell(record, ColMonth)); err != nil {
		return tx, invalid(line, ColMonth, m.cell(record, ColMonth), err)
	}
	if tx.UnitsSold, err = parseNullable(m.cell(record, ColUnitsSold)); err != nil {
		return tx, invalid(line, ColUnitsSold, m.cell(record, ColUnitsSold), err)
	}
	if tx.TotalRevenue, err = parseNullable(m.cell(record, ColTotalRevenue)); err != nil {
		return tx, invalid(line, ColTotalRevenue, m.cell(record, ColTotalRevenue), err)
	}
	if tx.TotalCost, err = parseNullable(m.cell(record, ColTotalCost)); err != nil {
		return tx, invalid(line, ColTotalCost, m.cell(record, ColTotalCost), err)
	}

	if err := validate.Struct(tx); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			col := ColYear
			if fieldErrs[0].Field() == "Month" {
				col = ColMonth
			}
			return tx, invalid(line, col, m.cell(record, col), fmt.Errorf("failed %q check", fieldErrs[0].Tag()))
		}
		return tx, fmt.Errorf("validate row %d: %w", line, err)
	}
	return tx, nil
}

func invalid(line int, col Column, value string, err error) error {
	return &InvalidValueError{Row: line, Column: col.Name(), Value: value, Err: err}
}

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"na":   {},
	"n/a":  {},
	"none": {},
}

func isNull(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func parseNullable(s string) (*float64, error) {
	if isNull(s) {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New("not a finite number")
	}
	return &v, nil
}

func parseInt(s string) (int, error) {
	if isNull(s) {
		return 0, errors.New("value required")
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, errors.New("not an integer")
	}
	return int(f), nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
