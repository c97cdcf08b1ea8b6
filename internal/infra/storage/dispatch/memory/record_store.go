package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

var _ dispatch.RecordStore = (*RecordStore)(nil)

// RecordStore provides an in-memory implementation of dispatch.RecordStore
// for tests and single-process development.
type RecordStore struct {
	mu           sync.RWMutex
	records      map[uuid.UUID]dispatch.WorkerRecord
	timeProvider timeutil.Provider
}

// NewRecordStore creates an empty in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records:      make(map[uuid.UUID]dispatch.WorkerRecord),
		timeProvider: timeutil.Default(),
	}
}

// Create inserts rec with version 1.
func (s *RecordStore) Create(ctx context.Context, rec dispatch.WorkerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return dispatch.ErrRecordExists
	}

	// Store a deep copy to prevent mutations.
	stored := rec.Clone()
	stored.Version = 1
	stored.UpdatedAt = s.timeProvider.Now()
	s.records[rec.ID] = stored
	return nil
}

// Get returns a copy of the record for id.
func (s *RecordStore) Get(ctx context.Context, id uuid.UUID) (dispatch.WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[id]
	if !exists {
		return dispatch.WorkerRecord{}, dispatch.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// Update checks cond and applies patch under a single lock, which gives the
// same per-row atomicity a conditional UPDATE does.
func (s *RecordStore) Update(
	ctx context.Context,
	id uuid.UUID,
	patch dispatch.Patch,
	cond dispatch.Precondition,
) (dispatch.WorkerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return dispatch.WorkerRecord{}, dispatch.ErrRecordNotFound
	}
	if !cond.Holds(rec) {
		return dispatch.WorkerRecord{}, dispatch.ErrPreconditionFailed
	}

	updated := patch.ApplyTo(rec)
	updated.Version = rec.Version + 1
	updated.UpdatedAt = s.timeProvider.Now()
	s.records[id] = updated
	return updated.Clone(), nil
}

// Query returns copies of the records matching filter ordered by username
// and id.
func (s *RecordStore) Query(ctx context.Context, filter dispatch.Filter) ([]dispatch.WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dispatch.WorkerRecord, 0)
	for _, rec := range s.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
