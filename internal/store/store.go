// Package store persists imported datasets so they can be named, listed and
// searched without re-reading artifacts.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/RedWaffle007/sic-data-software/internal/model"
)

// Dataset is a named import of a pipeline artifact.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SourceKey string    `json:"source_key"`
	State     string    `json:"state"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchFilter narrows a company search within a dataset. Query matches
// name, number and postcode; County matches the resolved county exactly.
type SearchFilter struct {
	Query  string `json:"query,omitempty"`
	County string `json:"county,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the dataset persistence interface.
type Store interface {
	// Datasets
	CreateDataset(ctx context.Context, name, sourceKey, state string) (*Dataset, error)
	GetDataset(ctx context.Context, id string) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]Dataset, error)
	DeleteDataset(ctx context.Context, id string) error

	// Companies
	ImportCompanies(ctx context.Context, datasetID string, rows []model.ResolvedRecord) (int64, error)
	SearchCompanies(ctx context.Context, datasetID string, filter SearchFilter) ([]model.ResolvedRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
