// Package docstore provides a small document database abstraction keyed by
// collection and string ID, with get/set/update semantics modelled on hosted
// document stores. Field values are JSON-compatible; numbers are kept as
// json.Number so integer counters never round-trip through float64.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrPrecondition is returned by Update and Set when a conditional transform
// finds its field already in the target state. Nothing is written.
var ErrPrecondition = errors.New("precondition failed")

// Document is a JSON-compatible field map.
type Document map[string]any

// Snapshot is a document together with its ID, as returned by List.
type Snapshot struct {
	ID   string
	Data Document
}

// SetOptions controls Set behaviour.
type SetOptions struct {
	// Merge keeps fields not named in the write and merges nested maps.
	Merge bool
}

// Store is the persistence collaborator used by the progress adapter.
// Update and merge-Set are atomic per document.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, fields Document, opts SetOptions) error
	// Update applies fields to an existing document. Keys may be dotted paths
	// ("progress.lesson1"). Returns ErrNotFound if the document is absent and
	// ErrPrecondition if a conditional transform rejects the write.
	Update(ctx context.Context, collection, id string, fields Document) error
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
