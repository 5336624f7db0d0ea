package db

import (
	"context"
	"errors"

	"sitediary/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// Store is the document store used by the services. Reports are keyed by
// (user, date); the report's date is its document ID.
type Store interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error

	GetReport(ctx context.Context, userID, date string) (*models.DailyReport, error)
	// ListReports returns reports with from <= date <= to, ascending. Empty bounds are open.
	ListReports(ctx context.Context, userID, from, to string) ([]models.DailyReport, error)
	SaveReport(ctx context.Context, userID string, report *models.DailyReport) error
	// SaveReports writes each report independently. The result maps a date to its
	// write error; dates absent from the map were written.
	SaveReports(ctx context.Context, userID string, reports []models.DailyReport) map[string]error
	DeleteReport(ctx context.Context, userID, date string) error

	GetMemory(ctx context.Context, userID string) (*models.ResourceMemory, error)
	SaveMemory(ctx context.Context, userID string, mem *models.ResourceMemory) error

	ListMaster(ctx context.Context, userID string, category models.Category) ([]models.MasterDataItem, error)
	SaveMaster(ctx context.Context, userID string, item *models.MasterDataItem) error
	DeleteMaster(ctx context.Context, userID string, category models.Category, code string) error

	Close() error
}
