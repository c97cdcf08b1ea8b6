// Package dispatch models the order lifecycle shared by a worker and a
// customer through a single worker record. Transitions are pure functions
// that compute a conditional single-row patch; persistence and polling live
// in the application and infrastructure layers.
package dispatch

import (
	"context"

	"github.com/google/uuid"
)

// RecordStore is the shared, per-row consistent record store both agents poll.
// There are no multi-row transactions.
type RecordStore interface {
	// Create inserts a new record. Returns ErrRecordExists if the id is taken.
	Create(ctx context.Context, rec WorkerRecord) error

	// Get reads a single record. Returns ErrRecordNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (WorkerRecord, error)

	// Update applies patch to the record if cond holds at write time, bumps
	// its version, and returns the updated record. Returns ErrRecordNotFound
	// if absent and ErrPreconditionFailed if cond does not hold.
	Update(ctx context.Context, id uuid.UUID, patch Patch, cond Precondition) (WorkerRecord, error)

	// Query returns the records matching filter. An empty result is not an error.
	Query(ctx context.Context, filter Filter) ([]WorkerRecord, error)
}
