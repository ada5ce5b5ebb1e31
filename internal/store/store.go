// Package store persists one AnalysisRecord per unique content digest
// for the lifetime of a run. Two backends exist: bbolt (default) and
// SQLite. Both make AddRecord an atomic insert-if-absent on the digest,
// so the at-most-one-record-per-digest invariant holds even when the
// scanner runs with multiple workers.
package store

import (
	"context"
	"errors"

	"pescan/internal/store/models"
)

// Store is the persistence contract for a single analysis run.
type Store interface {
	// Initialize creates the backing schema if absent.
	Initialize(ctx context.Context) error

	Close(ctx context.Context) error

	// AddRecord durably appends a record, or returns ErrDuplicateRecord
	// when a record with the same digest already exists. The check and
	// the insert are one atomic operation.
	AddRecord(ctx context.Context, record models.Record) error

	// HasDigest reports whether a record with this digest exists.
	HasDigest(ctx context.Context, digest string) (bool, error)

	// LoadRecords returns all records in insertion order.
	LoadRecords(ctx context.Context) ([]models.Record, error)

	// CountRecords returns the number of stored records.
	CountRecords(ctx context.Context) (int, error)

	// Path returns the backing file path, for end-of-run cleanup.
	Path() string
}

// ErrDuplicateRecord rejects an insert whose digest is already recorded.
var ErrDuplicateRecord = errors.New("record with this digest already exists")
