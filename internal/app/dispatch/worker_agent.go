package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

// WorkerSnapshot is what the worker UI renders after each tick.
type WorkerSnapshot struct {
	WorkerID       uuid.UUID
	Phase          dispatch.Phase
	Status         string
	Customer       *dispatch.CustomerInfo
	Scenario       string
	Price          *decimal.Decimal
	OfferExpiresAt *time.Time
	LastOutcome    dispatch.Outcome
	IsDone         bool
	Version        int64
	ObservedAt     time.Time
	// Stale is set when the latest tick failed and the snapshot is carried
	// over from an earlier successful tick.
	Stale bool
}

// customerCacheEntry remembers the display info resolved for a tempId at a
// given record version.
type customerCacheEntry struct {
	tempID    uuid.UUID
	version   int64
	fetchedAt time.Time
	info      dispatch.CustomerInfo
}

// DefaultCustomerRefresh bounds how long resolved customer info is reused.
const DefaultCustomerRefresh = 30 * time.Second

// WorkerAgentConfig configures a WorkerAgent.
type WorkerAgentConfig struct {
	WorkerID        uuid.UUID
	PollInterval    time.Duration
	// CustomerRefresh is the longest cached customer info is shown before it
	// is read again, so edits the customer makes to their own profile reach
	// the worker. Zero means DefaultCustomerRefresh.
	CustomerRefresh time.Duration
}

// WorkerAgent polls a worker's own record and applies the worker-side
// transitions: accept, reject, cancel, complete, and offer expiry.
type WorkerAgent struct {
	workerID        uuid.UUID
	customerRefresh time.Duration

	store        dispatch.RecordStore
	writer       *changeWriter
	poller       *poller
	metrics      AgentMetrics
	timeProvider timeutil.Provider

	// mu serializes ticks and actions so transitions apply in issue order.
	mu       sync.Mutex
	customer *customerCacheEntry

	snapshot atomic.Pointer[WorkerSnapshot]

	logger *logger.Logger
	tracer trace.Tracer
}

// NewWorkerAgent creates a worker agent. publisher may be nil, in which case
// lifecycle events are not emitted.
func NewWorkerAgent(
	cfg WorkerAgentConfig,
	store dispatch.RecordStore,
	publisher events.DomainEventPublisher,
	metrics AgentMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
) *WorkerAgent {
	logger = logger.With("component", "worker_agent", "worker_id", cfg.WorkerID.String())
	refresh := cfg.CustomerRefresh
	if refresh <= 0 {
		refresh = DefaultCustomerRefresh
	}
	a := &WorkerAgent{
		workerID:        cfg.WorkerID,
		customerRefresh: refresh,
		store:           store,
		metrics:         metrics,
		timeProvider:    timeutil.Default(),
		logger:          logger,
		tracer:          tracer,
	}
	a.writer = &changeWriter{
		store:        store,
		publisher:    publisher,
		metrics:      metrics,
		timeProvider: a.timeProvider,
		logger:       logger,
		tracer:       tracer,
	}
	a.poller = newPoller("worker_agent", cfg.PollInterval, a.Tick, metrics, logger, tracer)
	return a
}

// setTimeProvider swaps the clock used for expiry checks and event times.
func (a *WorkerAgent) setTimeProvider(tp timeutil.Provider) {
	a.timeProvider = tp
	a.writer.timeProvider = tp
}

// Start runs the poll loop until ctx is cancelled or Stop is called.
func (a *WorkerAgent) Start(ctx context.Context) error { return a.poller.run(ctx) }

// Stop ends the poll loop. It is safe to call more than once.
func (a *WorkerAgent) Stop() { a.poller.stop() }

// Snapshot returns the latest snapshot and whether any tick has succeeded yet.
func (a *WorkerAgent) Snapshot() (WorkerSnapshot, bool) {
	s := a.snapshot.Load()
	if s == nil {
		return WorkerSnapshot{WorkerID: a.workerID, Phase: dispatch.PhaseIdle, Stale: true}, false
	}
	return *s, true
}

// Tick reads the worker's record, expires an overdue offer and refreshes the
// snapshot. On error the previous snapshot is kept and marked stale.
func (a *WorkerAgent) Tick(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.read(ctx)
	if err != nil {
		return err
	}

	now := a.timeProvider.Now()
	if dispatch.OfferExpired(rec, now) {
		if rec, err = a.expire(ctx, rec, now); err != nil {
			a.markStale()
			return err
		}
	}

	return a.refresh(ctx, rec)
}

func (a *WorkerAgent) read(ctx context.Context) (dispatch.WorkerRecord, error) {
	rec, err := a.store.Get(ctx, a.workerID)
	if err != nil {
		a.markStale()
		return dispatch.WorkerRecord{}, fmt.Errorf("reading worker record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		a.markStale()
		a.logger.Error(ctx, "Worker record is inconsistent", "version", rec.Version, "error", err)
		return dispatch.WorkerRecord{}, err
	}
	return rec, nil
}

// expire auto-rejects an offer that sat unanswered past its expiry. Losing
// the race to a concurrent write is fine: the fresh row is used instead.
func (a *WorkerAgent) expire(ctx context.Context, rec dispatch.WorkerRecord, now time.Time) (dispatch.WorkerRecord, error) {
	change, err := dispatch.Expire(rec, now)
	if err != nil {
		return rec, nil
	}
	customerID := *rec.TempID

	after, err := a.writer.write(ctx, a.workerID, change, customerID)
	switch {
	case err == nil:
		a.logger.Info(ctx, "Pending offer expired", "customer_id", customerID.String())
		return after, nil
	case errors.Is(err, dispatch.ErrPreconditionFailed):
		a.logger.Debug(ctx, "Offer changed before it could expire")
		return a.read(ctx)
	default:
		return dispatch.WorkerRecord{}, fmt.Errorf("expiring offer: %w", err)
	}
}

// refresh rebuilds the snapshot from rec, resolving the associated
// customer's display info when the record holds an order.
func (a *WorkerAgent) refresh(ctx context.Context, rec dispatch.WorkerRecord) error {
	snap := WorkerSnapshot{
		WorkerID:       rec.ID,
		Phase:          rec.Phase(),
		Status:         rec.Status,
		Price:          rec.Price,
		OfferExpiresAt: rec.OfferExpiresAt,
		LastOutcome:    rec.LastOutcome,
		IsDone:         rec.IsDone,
		Version:        rec.Version,
		ObservedAt:     a.timeProvider.Now(),
	}
	if snap.Phase != dispatch.PhaseIdle {
		if rec.Scenario != nil {
			snap.Scenario = *rec.Scenario
		}
		info, err := a.customerInfo(ctx, rec)
		if err != nil {
			a.markStale()
			return err
		}
		snap.Customer = &info
	}

	if prev := a.snapshot.Load(); prev == nil || prev.Phase != snap.Phase {
		a.logger.Info(ctx, "Worker phase observed", "phase", snap.Phase.String(), "version", snap.Version)
	}
	a.snapshot.Store(&snap)
	return nil
}

// customerInfo resolves tempId to display info. The secondary read is skipped
// while the record version and tempId are unchanged since the last lookup and
// the lookup is younger than the refresh bound.
func (a *WorkerAgent) customerInfo(ctx context.Context, rec dispatch.WorkerRecord) (dispatch.CustomerInfo, error) {
	tempID := *rec.TempID
	now := a.timeProvider.Now()
	if c := a.customer; c != nil && c.tempID == tempID && c.version == rec.Version &&
		now.Sub(c.fetchedAt) < a.customerRefresh {
		a.metrics.IncCustomerLookups(ctx, true)
		return c.info, nil
	}
	a.metrics.IncCustomerLookups(ctx, false)

	cust, err := a.store.Get(ctx, tempID)
	var info dispatch.CustomerInfo
	switch {
	case err == nil:
		info = dispatch.CustomerInfoFrom(cust)
	case errors.Is(err, dispatch.ErrRecordNotFound):
		a.logger.Warn(ctx, "Customer record not found", "customer_id", tempID.String())
		info = dispatch.CustomerInfoFrom(dispatch.WorkerRecord{ID: tempID, Username: "Client"})
	default:
		return dispatch.CustomerInfo{}, fmt.Errorf("reading customer record: %w", err)
	}

	a.customer = &customerCacheEntry{tempID: tempID, version: rec.Version, fetchedAt: now, info: info}
	return info, nil
}

func (a *WorkerAgent) markStale() {
	prev := a.snapshot.Load()
	if prev == nil || prev.Stale {
		return
	}
	s := *prev
	s.Stale = true
	a.snapshot.Store(&s)
}

// Accept prices and takes the pending offer. The offer is pinned to the
// customer shown in the latest snapshot, so a row that changed hands since
// the worker last looked is reported as ErrStaleState.
func (a *WorkerAgent) Accept(ctx context.Context, price string) (WorkerSnapshot, error) {
	var offeredBy uuid.UUID
	if snap := a.snapshot.Load(); snap != nil && snap.Customer != nil {
		offeredBy = snap.Customer.ID
	}

	return a.act(ctx, dispatch.TransitionAccept, func(ctx context.Context, rec dispatch.WorkerRecord) (dispatch.Change, error) {
		var name string
		if rec.TempID != nil {
			info, err := a.customerInfo(ctx, rec)
			if err != nil {
				return dispatch.Change{}, err
			}
			name = info.Username
		}
		return dispatch.Accept(rec, offeredBy, price, name)
	})
}

// Reject declines the pending offer.
func (a *WorkerAgent) Reject(ctx context.Context) (WorkerSnapshot, error) {
	return a.act(ctx, dispatch.TransitionReject, func(_ context.Context, rec dispatch.WorkerRecord) (dispatch.Change, error) {
		return dispatch.Reject(rec)
	})
}

// Cancel aborts the job in progress.
func (a *WorkerAgent) Cancel(ctx context.Context) (WorkerSnapshot, error) {
	return a.act(ctx, dispatch.TransitionCancel, func(_ context.Context, rec dispatch.WorkerRecord) (dispatch.Change, error) {
		return dispatch.Cancel(rec)
	})
}

// Complete closes the job in progress.
func (a *WorkerAgent) Complete(ctx context.Context) (WorkerSnapshot, error) {
	return a.act(ctx, dispatch.TransitionComplete, func(_ context.Context, rec dispatch.WorkerRecord) (dispatch.Change, error) {
		return dispatch.Complete(rec)
	})
}

// SetAvailability switches between Ready and Break.
func (a *WorkerAgent) SetAvailability(ctx context.Context, status string) (WorkerSnapshot, error) {
	return a.act(ctx, dispatch.TransitionSetAvailability, func(_ context.Context, rec dispatch.WorkerRecord) (dispatch.Change, error) {
		return dispatch.SetAvailability(rec, status)
	})
}

// UpdateLocation stores the worker's current coordinates.
func (a *WorkerAgent) UpdateLocation(ctx context.Context, lat, lng float64) (WorkerSnapshot, error) {
	return a.act(ctx, dispatch.TransitionUpdateLocation, func(_ context.Context, _ dispatch.WorkerRecord) (dispatch.Change, error) {
		return dispatch.UpdateLocation(lat, lng)
	})
}

type computeFn func(ctx context.Context, rec dispatch.WorkerRecord) (dispatch.Change, error)

// act reads the record, computes the change, and writes it conditionally.
// A rejected precondition is reported as ErrStaleState after the snapshot is
// refreshed from the current row.
func (a *WorkerAgent) act(ctx context.Context, t dispatch.Transition, compute computeFn) (WorkerSnapshot, error) {
	ctx, span := a.tracer.Start(ctx, "worker_agent."+t.String(),
		trace.WithAttributes(attribute.String("worker_id", a.workerID.String())))
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	fail := func(err error) (WorkerSnapshot, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		snap, _ := a.Snapshot()
		return snap, err
	}

	rec, err := a.read(ctx)
	if err != nil {
		return fail(err)
	}

	change, err := compute(ctx, rec)
	if err != nil {
		if errors.Is(err, dispatch.ErrStaleState) {
			_ = a.refresh(ctx, rec)
		}
		return fail(err)
	}
	if change.Noop {
		span.AddEvent("noop")
		if err := a.refresh(ctx, rec); err != nil {
			return fail(err)
		}
		snap, _ := a.Snapshot()
		return snap, nil
	}

	var customerID uuid.UUID
	if rec.TempID != nil {
		customerID = *rec.TempID
	}

	after, err := a.writer.write(ctx, a.workerID, change, customerID)
	if err != nil {
		if errors.Is(err, dispatch.ErrPreconditionFailed) {
			a.logger.Info(ctx, "Record changed before write", "transition", t.String(), "version", rec.Version)
			if fresh, rerr := a.read(ctx); rerr == nil {
				_ = a.refresh(ctx, fresh)
			}
			return fail(fmt.Errorf("%s: %w", t, dispatch.ErrStaleState))
		}
		return fail(fmt.Errorf("writing %s: %w", t, err))
	}

	// The write was ours, so a cached lookup for the same customer still holds.
	if c := a.customer; c != nil && after.TempID != nil && *after.TempID == c.tempID {
		c.version = after.Version
	}

	a.logger.Info(ctx, "Transition applied", "transition", t.String(), "version", after.Version)
	if err := a.refresh(ctx, after); err != nil {
		a.logger.Warn(ctx, "Snapshot refresh after write failed", "error", err)
	}
	snap, _ := a.Snapshot()
	span.SetStatus(codes.Ok, "transition applied")
	return snap, nil
}
