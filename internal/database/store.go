package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/hhsantos/flight-calendar/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store owns the persisted document. Implementations must make Update atomic
// with respect to every other caller of the same store.
type Store interface {
	// Load returns the whole document, creating it from the seed if absent
	Load(ctx context.Context) (*models.Document, error)
	// Save overwrites the whole document
	Save(ctx context.Context, doc *models.Document) error
	// Update loads the document, applies fn and saves the result. Nothing is
	// written when fn returns an error.
	Update(ctx context.Context, fn func(doc *models.Document) error) error
	Close() error
}

// Supported store drivers
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates the store selected by driver. dsn is a file path for the file
// and sqlite drivers and a connection URL for postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFileStore(dsn), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
