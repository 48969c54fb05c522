package backend

import (
	"context"

	"halya/internal/core"
	"halya/internal/store"
)

// Importer replaces the local mirror with a full snapshot. Only the
// SQLite backend implements it; hosted stores are never written to.
type Importer interface {
	ImportSnapshot(ctx context.Context, residents []core.Resident, payments []core.Payment) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store instance and optional cleanup function
type BackendResult struct {
	Store   store.Store
	Cleanup CleanupFunc
	Type    BackendType
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Importer returns the store as an Importer when it supports snapshots.
func (r *BackendResult) Importer() (Importer, bool) {
	imp, ok := r.Store.(Importer)
	return imp, ok
}

// Factory creates stores based on configuration
type Factory interface {
	// CreateBackend creates a store instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	PostgRESTBackend BackendType = "postgrest"
	PostgresBackend  BackendType = "postgres"
	SQLiteBackend    BackendType = "sqlite"
	SheetsBackend    BackendType = "sheets"
	MemoryBackend    BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case PostgRESTBackend, PostgresBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
