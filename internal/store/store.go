// Package store persists prediction records in a single append-only table.
// There is deliberately no update or delete: corrections happen by scoring
// again, and the log keeps every assignment ever made.
package store

import (
	"context"
	"errors"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store is closed")

// DefaultHistoryLimit is the row cap applied when a caller passes a
// non-positive limit to ListRecent.
const DefaultHistoryLimit = 50

// Store is the primary interface for the predictions log. Both the SQLite
// implementation and the in-memory test implementation satisfy this contract.
type Store interface {
	// Insert appends a record, assigning ID and CreatedAt on the record
	// in place. The write is durable before Insert returns.
	Insert(ctx context.Context, rec *schema.PredictionRecord) error
	// ListRecent returns up to limit records, newest first. Ordering is by
	// CreatedAt descending with ID descending as the tie-break, so
	// same-millisecond writes still come back in a deterministic order.
	ListRecent(ctx context.Context, limit int) ([]schema.PredictionRecord, error)
	// CountByCluster returns per-cluster record counts in ascending
	// cluster order.
	CountByCluster(ctx context.Context) ([]schema.ClusterCount, error)
	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)
	// Close releases the underlying resources.
	Close() error
}
