package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

// CustomerAgentConfig configures a CustomerAgent.
type CustomerAgentConfig struct {
	CustomerID   uuid.UUID
	PollInterval time.Duration
	// OfferTTL bounds how long a submitted order may stay unanswered before
	// the worker side expires it. Zero disables expiry.
	OfferTTL time.Duration
}

// CustomerAgent finds workers, submits orders and tracks the outstanding one.
type CustomerAgent struct {
	customerID uuid.UUID
	offerTTL   time.Duration

	store        dispatch.RecordStore
	writer       *changeWriter
	poller       *poller
	metrics      AgentMetrics
	timeProvider timeutil.Provider

	mu      sync.Mutex
	tracked atomic.Pointer[uuid.UUID]
	view    atomic.Pointer[dispatch.OrderView]

	logger *logger.Logger
	tracer trace.Tracer
}

// NewCustomerAgent creates a customer agent. publisher may be nil.
func NewCustomerAgent(
	cfg CustomerAgentConfig,
	store dispatch.RecordStore,
	publisher events.DomainEventPublisher,
	metrics AgentMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
) *CustomerAgent {
	logger = logger.With("component", "customer_agent", "customer_id", cfg.CustomerID.String())
	a := &CustomerAgent{
		customerID:   cfg.CustomerID,
		offerTTL:     cfg.OfferTTL,
		store:        store,
		metrics:      metrics,
		timeProvider: timeutil.Default(),
		logger:       logger,
		tracer:       tracer,
	}
	a.writer = &changeWriter{
		store:        store,
		publisher:    publisher,
		metrics:      metrics,
		timeProvider: a.timeProvider,
		logger:       logger,
		tracer:       tracer,
	}
	a.poller = newPoller("customer_agent", cfg.PollInterval, a.Tick, metrics, logger, tracer)
	return a
}

func (a *CustomerAgent) setTimeProvider(tp timeutil.Provider) {
	a.timeProvider = tp
	a.writer.timeProvider = tp
}

// Start runs the order-tracking poll loop until ctx is cancelled or Stop is
// called.
func (a *CustomerAgent) Start(ctx context.Context) error { return a.poller.run(ctx) }

// Stop ends the poll loop. It is safe to call more than once.
func (a *CustomerAgent) Stop() { a.poller.stop() }

// FindWorkers returns the workers of profession that can take an order now.
// An empty result is not an error.
func (a *CustomerAgent) FindWorkers(ctx context.Context, profession string) ([]dispatch.WorkerRecord, error) {
	ctx, span := a.tracer.Start(ctx, "customer_agent.find_workers",
		trace.WithAttributes(attribute.String("profession", profession)))
	defer span.End()

	filter, err := dispatch.EligibleWorkersFilter(profession)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	workers, err := a.store.Query(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying workers: %w", err)
	}
	span.SetAttributes(attribute.Int("worker_count", len(workers)))
	return workers, nil
}

// SubmitOrder requests workerID for the given job. Of two customers racing for
// the same worker exactly one succeeds; the other gets ErrWorkerUnavailable.
func (a *CustomerAgent) SubmitOrder(ctx context.Context, workerID uuid.UUID, scenario string) (dispatch.OrderView, error) {
	ctx, span := a.tracer.Start(ctx, "customer_agent.submit_order",
		trace.WithAttributes(attribute.String("worker_id", workerID.String())))
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	fail := func(err error) (dispatch.OrderView, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dispatch.OrderView{}, err
	}

	worker, err := a.store.Get(ctx, workerID)
	if err != nil {
		return fail(fmt.Errorf("reading worker record: %w", err))
	}
	if worker.Role != dispatch.RoleWorker {
		return fail(fmt.Errorf("%s: %w", workerID, dispatch.ErrRecordNotFound))
	}

	change, err := dispatch.Submit(worker, a.customerID, scenario, a.timeProvider.Now(), a.offerTTL)
	if err != nil {
		return fail(err)
	}

	after, err := a.writer.write(ctx, workerID, change, a.customerID)
	if err != nil {
		if errors.Is(err, dispatch.ErrPreconditionFailed) {
			a.logger.Info(ctx, "Lost the race for worker", "worker_id", workerID.String())
			return fail(dispatch.ErrWorkerUnavailable)
		}
		return fail(fmt.Errorf("submitting order: %w", err))
	}

	view := dispatch.ObserveOrder(after, a.customerID)
	a.tracked.Store(&workerID)
	a.view.Store(&view)
	a.logger.Info(ctx, "Order submitted", "worker_id", workerID.String(), "version", after.Version)
	return view, nil
}

// OrderHistory lists every order the customer has on record.
func (a *CustomerAgent) OrderHistory(ctx context.Context) ([]dispatch.OrderSummary, error) {
	ctx, span := a.tracer.Start(ctx, "customer_agent.order_history")
	defer span.End()

	recs, err := a.store.Query(ctx, dispatch.CustomerOrdersFilter(a.customerID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying order history: %w", err)
	}

	out := make([]dispatch.OrderSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, dispatch.SummarizeOrder(r))
	}
	span.SetAttributes(attribute.Int("order_count", len(out)))
	return out, nil
}

// CurrentOrder returns the latest view of the tracked order.
func (a *CustomerAgent) CurrentOrder() (dispatch.OrderView, error) {
	v := a.view.Load()
	if v == nil {
		return dispatch.OrderView{}, dispatch.ErrNoTrackedOrder
	}
	return *v, nil
}

// Tick re-reads the tracked worker record and updates the order view. Once
// the order reaches a terminal state polling stops reading until the next
// submission.
func (a *CustomerAgent) Tick(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	workerID := a.tracked.Load()
	if workerID == nil {
		return nil
	}
	if prev := a.view.Load(); prev != nil && prev.State.IsTerminal() {
		return nil
	}

	rec, err := a.store.Get(ctx, *workerID)
	if err != nil {
		return fmt.Errorf("reading tracked worker record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		a.logger.Error(ctx, "Worker record is inconsistent", "worker_id", workerID.String(), "error", err)
		return err
	}

	view := dispatch.ObserveOrder(rec, a.customerID)
	if prev := a.view.Load(); prev == nil || prev.State != view.State {
		a.logger.Info(ctx, "Order state changed",
			"worker_id", workerID.String(),
			"state", string(view.State),
			"version", view.Version,
		)
	}
	a.view.Store(&view)
	return nil
}

// UpdateLocation stores the customer's coordinates on their own profile. The
// worker handling their order resolves it as the job location.
func (a *CustomerAgent) UpdateLocation(ctx context.Context, lat, lng float64) (dispatch.WorkerRecord, error) {
	ctx, span := a.tracer.Start(ctx, "customer_agent.update_location",
		trace.WithAttributes(attribute.String("customer_id", a.customerID.String())))
	defer span.End()

	change, err := dispatch.UpdateLocation(lat, lng)
	if err != nil {
		span.RecordError(err)
		return dispatch.WorkerRecord{}, err
	}

	rec, err := a.writer.write(ctx, a.customerID, change, a.customerID)
	if err != nil {
		return dispatch.WorkerRecord{}, fmt.Errorf("updating location: %w", err)
	}
	a.logger.Debug(ctx, "Location updated", "version", rec.Version)
	return rec, nil
}
