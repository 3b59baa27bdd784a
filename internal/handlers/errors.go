package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/store"
)

// appError converts service and ingestion failures into the HTTP error
// taxonomy. Unknown errors pass through and are reported as internal.
func appError(err error) error {
	var (
		appErr      *errors.AppError
		missing     *ingest.MissingColumnError
		invalid     *ingest.InvalidValueError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.As(err, &maxBytesErr):
		return errors.TooLarge(maxBytesErr.Limit)
	case stderrors.As(err, &missing):
		return errors.MissingColumn(err, missing.Columns)
	case stderrors.As(err, &invalid):
		appErr := errors.ValidationWrap(err, "Uploaded file contains an invalid value")
		appErr.Details = invalid.Error()
		return appErr
	case stderrors.Is(err, ingest.ErrUnsupportedFormat):
		return errors.Unsupported(err, "Only CSV and XLSX files are supported")
	case stderrors.Is(err, ingest.ErrEmptyFile):
		return errors.BadRequestWrap(err, "Uploaded file is empty")
	case stderrors.Is(err, store.ErrNotFound):
		return errors.NotFound("Dataset not found or expired")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ServiceUnavailable("Processing timed out")
	default:
		return err
	}
}

// userMessage is the text shown on HTML pages for a failed request.
func userMessage(err error) (int, string) {
	var appErr *errors.AppError
	if !stderrors.As(appError(err), &appErr) {
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
	if appErr.Details != "" {
		return appErr.StatusCode, appErr.Message + ": " + appErr.Details
	}
	return appErr.StatusCode, appErr.Message
}
