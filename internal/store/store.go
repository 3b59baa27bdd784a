// Package store keeps uploaded datasets for the lifetime of a dashboard
// session. Entries expire after a period of inactivity; nothing here is
// meant to outlive the session.
package store

import (
	"context"
	"errors"

	"sales-dashboard/internal/models"
)

var ErrNotFound = errors.New("dataset not found")

type Store interface {
	Put(ctx context.Context, ds models.Dataset) error
	Get(ctx context.Context, id string) (models.Dataset, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
