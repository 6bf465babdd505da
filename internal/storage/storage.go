package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrPersist       = errors.New("failed to persist history")
	ErrCorrupt       = errors.New("history data is corrupt")
	ErrInvalidRecord = errors.New("invalid record")
)

// Backend persists the whole ordered collection at once.
type Backend interface {
	// Load returns every stored record. A missing store is not an error.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces the stored collection with records.
	Save(ctx context.Context, records []Record) error
	// LastSaved reports when Save last succeeded, zero if never.
	LastSaved(ctx context.Context) (time.Time, error)
	Name() string
	Close() error
}

// Open returns the backend registered under driver.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case "json":
		return NewJSONFileBackend(path)
	case "bolt":
		return NewBoltBackend(path)
	case "sqlite":
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
