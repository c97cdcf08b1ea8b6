// Package storetest holds behaviour checks shared by every
// dispatch.RecordStore backend.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) dispatch.RecordStore

// Run exercises the RecordStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("UpdateChecksPrecondition", func(t *testing.T) { testUpdateChecksPrecondition(t, newStore(t)) })
	t.Run("OrderRoundTrip", func(t *testing.T) { testOrderRoundTrip(t, newStore(t)) })
	t.Run("Query", func(t *testing.T) { testQuery(t, newStore(t)) })
	t.Run("ConcurrentSubmitHasOneWinner", func(t *testing.T) { testConcurrentSubmit(t, newStore(t)) })
	t.Run("SubmitRefusedOnceWorkerLeavesReady", func(t *testing.T) { testSubmitAfterBreak(t, newStore(t)) })
	t.Run("ProfileEdit", func(t *testing.T) { testProfileEdit(t, newStore(t)) })
}

// NewWorker builds a verified, ready worker record named name.
func NewWorker(t *testing.T, name string) dispatch.WorkerRecord {
	t.Helper()
	rec, err := dispatch.NewRecord(uuid.New(), dispatch.Registration{
		Role:       dispatch.RoleWorker,
		Username:   name,
		Profession: "Plumber",
		IsVerified: true,
		Location:   "24.7136,46.6753",
	}, time.Now())
	require.NoError(t, err)
	return rec
}

func testCreateAndGet(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	rec := NewWorker(t, "sami")

	require.NoError(t, store.Create(ctx, rec))
	assert.ErrorIs(t, store.Create(ctx, rec), dispatch.ErrRecordExists)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, rec.Username, got.Username)
	assert.Equal(t, rec.Location, got.Location)
	assert.Equal(t, dispatch.RoleWorker, got.Role)
	assert.Equal(t, dispatch.StatusReady, got.Status)
	assert.Nil(t, got.TempID)
	assert.Nil(t, got.Price)
	assert.NoError(t, got.Validate())

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, dispatch.ErrRecordNotFound)
}

func testUpdateChecksPrecondition(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	rec := NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	change, err := dispatch.Submit(got, uuid.New(), "fix sink", time.Now(), 0)
	require.NoError(t, err)

	after, err := store.Update(ctx, rec.ID, change.Patch, change.Precondition)
	require.NoError(t, err)
	assert.Equal(t, got.Version+1, after.Version)
	assert.True(t, after.IsOrdered)

	_, err = store.Update(ctx, rec.ID, change.Patch, change.Precondition)
	assert.ErrorIs(t, err, dispatch.ErrPreconditionFailed)

	_, err = store.Update(ctx, uuid.New(), change.Patch, change.Precondition)
	assert.ErrorIs(t, err, dispatch.ErrRecordNotFound)
}

func testOrderRoundTrip(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	rec := NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))
	customerID := uuid.New()

	step := func(c dispatch.Change, err error) dispatch.WorkerRecord {
		t.Helper()
		require.NoError(t, err)
		out, err := store.Update(ctx, rec.ID, c.Patch, c.Precondition)
		require.NoError(t, err)
		require.NoError(t, out.Validate())
		return out
	}

	cur, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	expiresAt := time.Now().Add(2 * time.Minute).Truncate(time.Second)
	cur = step(dispatch.Submit(cur, customerID, "fix sink", expiresAt.Add(-2*time.Minute), 2*time.Minute))
	assert.Equal(t, dispatch.PhasePendingOffer, cur.Phase())
	require.NotNil(t, cur.Scenario)
	assert.Equal(t, "fix sink", *cur.Scenario)
	require.NotNil(t, cur.OfferExpiresAt)
	assert.True(t, expiresAt.Equal(*cur.OfferExpiresAt))

	cur = step(dispatch.Accept(cur, customerID, "75.50", "layla"))
	assert.Equal(t, dispatch.PhaseWorking, cur.Phase())
	require.NotNil(t, cur.Price)
	assert.Equal(t, "75.5", cur.Price.String())
	assert.Equal(t, dispatch.WorkingStatus("layla"), cur.Status)
	assert.True(t, cur.AssignedTo(customerID))

	cur = step(dispatch.Complete(cur))
	assert.Equal(t, dispatch.PhaseIdle, cur.Phase())
	assert.True(t, cur.IsDone)
	assert.Equal(t, dispatch.OutcomeCompleted, cur.LastOutcome)
	require.NotNil(t, cur.LastCustomerID)
	assert.Equal(t, customerID, *cur.LastCustomerID)

	history, err := store.Query(ctx, dispatch.CustomerOrdersFilter(customerID))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)
}

func testQuery(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	for _, name := range []string{"omar", "ali", "sami"} {
		require.NoError(t, store.Create(ctx, NewWorker(t, name)))
	}
	customer, err := dispatch.NewRecord(uuid.New(), dispatch.Registration{
		Role:     dispatch.RoleCustomer,
		Username: "layla",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, customer))

	filter, err := dispatch.EligibleWorkersFilter("Plumber")
	require.NoError(t, err)

	got, err := store.Query(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ali", got[0].Username)
	assert.Equal(t, "omar", got[1].Username)
	assert.Equal(t, "sami", got[2].Username)

	filter.Limit = 2
	got, err = store.Query(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	filter, err = dispatch.EligibleWorkersFilter("Electrician")
	require.NoError(t, err)
	got, err = store.Query(ctx, filter)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testConcurrentSubmit(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	rec := NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))
	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			change, err := dispatch.Submit(got, uuid.New(), "fix sink", time.Now(), 0)
			if err != nil {
				return
			}
			if _, err := store.Update(ctx, rec.ID, change.Patch, change.Precondition); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testSubmitAfterBreak(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	rec := NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))

	// The customer reads a selectable worker.
	seen, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	submit, err := dispatch.Submit(seen, uuid.New(), "fix sink", time.Now(), 0)
	require.NoError(t, err)

	// The worker goes on a break before the order lands.
	brk, err := dispatch.SetAvailability(seen, dispatch.StatusBreak)
	require.NoError(t, err)
	_, err = store.Update(ctx, rec.ID, brk.Patch, brk.Precondition)
	require.NoError(t, err)

	_, err = store.Update(ctx, rec.ID, submit.Patch, submit.Precondition)
	assert.ErrorIs(t, err, dispatch.ErrPreconditionFailed)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOrdered)
	assert.Nil(t, got.TempID)
	assert.Equal(t, dispatch.StatusBreak, got.Status)
}

func testProfileEdit(t *testing.T, store dispatch.RecordStore) {
	ctx := context.Background()
	rec := NewWorker(t, "sami")
	require.NoError(t, store.Create(ctx, rec))

	username, profession, verified := "sami k", "Electrician", false
	change, err := dispatch.UpdateProfile(rec, dispatch.ProfileEdit{
		Username:   &username,
		Profession: &profession,
		IsVerified: &verified,
	})
	require.NoError(t, err)

	after, err := store.Update(ctx, rec.ID, change.Patch, change.Precondition)
	require.NoError(t, err)
	assert.Equal(t, "sami k", after.Username)
	assert.Equal(t, "Electrician", after.Profession)
	assert.False(t, after.IsVerified)
	assert.Equal(t, rec.Location, after.Location)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "sami k", got.Username)
	assert.Equal(t, "Electrician", got.Profession)
	assert.False(t, got.IsVerified)
	assert.Equal(t, after.Version, got.Version)
}
