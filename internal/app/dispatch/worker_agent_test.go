package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
)

// TestPlumberScenario walks one order from worker search to completion and
// checks both agents' views at every step.
func TestPlumberScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	workers, err := customer.FindWorkers(ctx, "Plumber")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, f.workerID, workers[0].ID)

	view, err := customer.SubmitOrder(ctx, f.workerID, "Kitchen sink is leaking")
	require.NoError(t, err)
	assert.Equal(t, dispatch.OrderPending, view.State)

	workers, err = customer.FindWorkers(ctx, "Plumber")
	require.NoError(t, err)
	assert.Empty(t, workers, "an ordered worker is no longer selectable")

	require.NoError(t, worker.Tick(ctx))
	snap, ok := worker.Snapshot()
	require.True(t, ok)
	assert.Equal(t, dispatch.PhasePendingOffer, snap.Phase)
	require.NotNil(t, snap.Customer)
	assert.Equal(t, "layla", snap.Customer.Username)
	assert.Equal(t, "24.7000,46.7000", snap.Customer.Location)
	assert.Equal(t, "Kitchen sink is leaking", snap.Scenario)

	_, err = worker.Accept(ctx, "abc")
	assert.True(t, dispatch.IsValidation(err))
	rec, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	assert.False(t, rec.IsWorking, "invalid price must not write")

	snap, err = worker.Accept(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, dispatch.PhaseWorking, snap.Phase)
	assert.Equal(t, "Is working now for layla", snap.Status)
	require.NotNil(t, snap.Price)
	assert.True(t, snap.Price.Equal(decimal.NewFromInt(100)))

	require.NoError(t, customer.Tick(ctx))
	view, err = customer.CurrentOrder()
	require.NoError(t, err)
	assert.Equal(t, dispatch.OrderAccepted, view.State)

	history, err := customer.OrderHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dispatch.HistoryInProgress, history[0].Status)

	snap, err = worker.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, dispatch.PhaseIdle, snap.Phase)
	assert.True(t, snap.IsDone)
	assert.Equal(t, dispatch.StatusReady, snap.Status)

	history, err = customer.OrderHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dispatch.HistoryDone, history[0].Status)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "sami", history[0].WorkerName)

	require.NoError(t, customer.Tick(ctx))
	view, err = customer.CurrentOrder()
	require.NoError(t, err)
	assert.Equal(t, dispatch.OrderDone, view.State)

	workers, err = customer.FindWorkers(ctx, "Plumber")
	require.NoError(t, err)
	assert.Len(t, workers, 1, "a worker is selectable again after completion")

	assert.Equal(t, []events.EventType{
		dispatch.EventTypeOrderSubmitted,
		dispatch.EventTypeOrderAccepted,
		dispatch.EventTypeOrderCompleted,
	}, f.publisher.types())
}

func TestWorkerAgent_RejectIsVisibleToCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)

	snap, err := worker.Reject(ctx)
	require.NoError(t, err)
	assert.Equal(t, dispatch.PhaseIdle, snap.Phase)
	assert.Equal(t, dispatch.OutcomeRejected, snap.LastOutcome)

	require.NoError(t, customer.Tick(ctx))
	view, err := customer.CurrentOrder()
	require.NoError(t, err)
	assert.Equal(t, dispatch.OrderRejected, view.State)

	history, err := customer.OrderHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	// A second reject from Idle is refused and writes nothing.
	before, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	_, err = worker.Reject(ctx)
	assert.ErrorIs(t, err, dispatch.ErrIllegalTransition)
	after, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestWorkerAgent_CancelReturnsWorkerToReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)
	_, err = worker.Accept(ctx, "80")
	require.NoError(t, err)

	_, err = worker.SetAvailability(ctx, "break")
	assert.ErrorIs(t, err, dispatch.ErrIllegalTransition, "availability is locked while working")

	snap, err := worker.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, dispatch.StatusReady, snap.Status)
	assert.Nil(t, snap.Customer)

	require.NoError(t, customer.Tick(ctx))
	view, err := customer.CurrentOrder()
	require.NoError(t, err)
	assert.Equal(t, dispatch.OrderCancelled, view.State)
}

func TestWorkerAgent_AcceptSamePriceTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)
	first, err := worker.Accept(ctx, "55.5")
	require.NoError(t, err)
	second, err := worker.Accept(ctx, "55.50")
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, f.publisher.types(), 2)
}

func TestWorkerAgent_OfferExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 2*time.Minute)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	require.NoError(t, worker.Tick(ctx))
	snap, _ := worker.Snapshot()
	assert.Equal(t, dispatch.PhasePendingOffer, snap.Phase)

	f.clock.Advance(time.Minute)
	require.NoError(t, worker.Tick(ctx))
	snap, _ = worker.Snapshot()
	assert.Equal(t, dispatch.PhaseIdle, snap.Phase)
	assert.Equal(t, dispatch.OutcomeExpired, snap.LastOutcome)

	require.NoError(t, customer.Tick(ctx))
	view, err := customer.CurrentOrder()
	require.NoError(t, err)
	assert.Equal(t, dispatch.OrderExpired, view.State)
	assert.Contains(t, f.publisher.types(), dispatch.EventTypeOrderExpired)
}

func TestWorkerAgent_StaleWriteIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)
	require.NoError(t, worker.Tick(ctx))

	// Another writer resets the row between the worker's read and write.
	f.store.beforeUpdate = func() {
		rec, err := f.store.RecordStore.Get(ctx, f.workerID)
		require.NoError(t, err)
		change, err := dispatch.Reject(rec)
		require.NoError(t, err)
		_, err = f.store.RecordStore.Update(ctx, f.workerID, change.Patch, change.Precondition)
		require.NoError(t, err)
	}

	snap, err := worker.Accept(ctx, "100")
	assert.ErrorIs(t, err, dispatch.ErrStaleState)
	assert.Equal(t, dispatch.PhaseIdle, snap.Phase, "snapshot reflects the row that won")
}

func TestWorkerAgent_TransientErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)

	require.NoError(t, worker.Tick(ctx))
	before, ok := worker.Snapshot()
	require.True(t, ok)
	assert.False(t, before.Stale)

	f.store.setGetErr(errConnRefused)
	err := worker.Tick(ctx)
	require.Error(t, err)
	assert.True(t, dispatch.IsTransient(err))

	after, ok := worker.Snapshot()
	require.True(t, ok)
	assert.True(t, after.Stale)
	assert.Equal(t, before.Version, after.Version)

	f.store.setGetErr(nil)
	require.NoError(t, worker.Tick(ctx))
	recovered, _ := worker.Snapshot()
	assert.False(t, recovered.Stale)
}

func TestWorkerAgent_CustomerLookupIsCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, worker.Tick(ctx))
	}
	assert.Equal(t, 1, f.store.getCount(f.customerID), "unchanged row must not re-read the customer")

	_, err = worker.Accept(ctx, "90")
	require.NoError(t, err)
	require.NoError(t, worker.Tick(ctx))
	assert.Equal(t, 1, f.store.getCount(f.customerID), "own writes keep the cached lookup")
}

func TestWorkerAgent_MissingCustomerFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	ghost := f.customerAgent(t, uuid.New(), 0)

	_, err := ghost.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)

	require.NoError(t, worker.Tick(ctx))
	snap, _ := worker.Snapshot()
	require.NotNil(t, snap.Customer)
	assert.Equal(t, "Client", snap.Customer.Username)
	assert.Equal(t, "Location not available", snap.Customer.Location)
}

func TestWorkerAgent_PublishFailureDoesNotRollBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publisher.err = errors.New("kafka: broker not available")
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)
	snap, err := worker.Accept(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, dispatch.PhaseWorking, snap.Phase)
}

func TestWorkerAgent_ProfileEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)

	snap, err := worker.SetAvailability(ctx, "Taking a Break")
	require.NoError(t, err)
	assert.Equal(t, dispatch.StatusBreak, snap.Status)

	customer := f.customerAgent(t, f.customerID, 0)
	workers, err := customer.FindWorkers(ctx, "Plumber")
	require.NoError(t, err)
	assert.Empty(t, workers)

	_, err = worker.UpdateLocation(ctx, 21.4858, 39.1925)
	require.NoError(t, err)
	rec, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	assert.Equal(t, "21.4858,39.1925", rec.Location)

	_, err = worker.UpdateLocation(ctx, 100, 0)
	assert.True(t, dispatch.IsValidation(err))
}

// TestWorkerAgent_StartStop verifies the agent polls until stopped and that
// Stop may be called twice.
func TestWorkerAgent_StartStop(t *testing.T) {
	f := newFixture(t)
	worker := f.workerAgent(t)

	done := make(chan error, 1)
	go func() { done <- worker.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		_, ok := worker.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	worker.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for worker agent to stop")
	}
}

func TestWorkerAgent_CustomerLocationReachesWorker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	customer := f.customerAgent(t, f.customerID, 0)

	_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)
	require.NoError(t, worker.Tick(ctx))
	snap, _ := worker.Snapshot()
	require.NotNil(t, snap.Customer)
	assert.Equal(t, "24.7000,46.7000", snap.Customer.Location)

	rec, err := customer.UpdateLocation(ctx, 25.2048, 55.2708)
	require.NoError(t, err)
	assert.Equal(t, "25.2048,55.2708", rec.Location)

	f.clock.Advance(DefaultCustomerRefresh)
	require.NoError(t, worker.Tick(ctx))
	snap, _ = worker.Snapshot()
	require.NotNil(t, snap.Customer)
	assert.Equal(t, "25.2048,55.2708", snap.Customer.Location)
	assert.Equal(t, dispatch.PhasePendingOffer, snap.Phase)
	assert.Equal(t, []events.EventType{dispatch.EventTypeOrderSubmitted}, f.publisher.types(),
		"profile edits raise no lifecycle events")

	_, err = customer.UpdateLocation(ctx, 91, 0)
	assert.True(t, dispatch.IsValidation(err))
}

func TestWorkerAgent_AcceptRefusesReplacedOffer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := f.workerAgent(t)
	first := f.customerAgent(t, f.customerID, 0)
	secondID := f.registerCustomer(t, "noura")
	second := f.customerAgent(t, secondID, 0)

	_, err := first.SubmitOrder(ctx, f.workerID, "fix sink")
	require.NoError(t, err)
	require.NoError(t, worker.Tick(ctx))

	// The first offer is withdrawn and another customer takes the slot
	// before the worker answers.
	rec, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	reject, err := dispatch.Reject(rec)
	require.NoError(t, err)
	_, err = f.store.RecordStore.Update(ctx, f.workerID, reject.Patch, reject.Precondition)
	require.NoError(t, err)
	_, err = second.SubmitOrder(ctx, f.workerID, "fix tap")
	require.NoError(t, err)

	snap, err := worker.Accept(ctx, "100")
	assert.ErrorIs(t, err, dispatch.ErrStaleState)
	require.NotNil(t, snap.Customer)
	assert.Equal(t, secondID, snap.Customer.ID, "snapshot shows the offer that replaced the one seen")
	assert.Equal(t, dispatch.PhasePendingOffer, snap.Phase)

	rec, err = f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	assert.Nil(t, rec.Price)
	assert.NotContains(t, f.publisher.types(), dispatch.EventTypeOrderAccepted)

	snap, err = worker.Accept(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, dispatch.PhaseWorking, snap.Phase)
	assert.True(t, snap.Price.Equal(decimal.NewFromInt(100)))
}
