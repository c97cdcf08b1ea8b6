package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
	"github.com/ahrav/handyhire/internal/infra/storage/dispatch/memory"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

var testStart = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// mockEventPublisher records published events.
type mockEventPublisher struct {
	mu              sync.RWMutex
	publishedEvents []events.DomainEvent
	err             error
}

func (m *mockEventPublisher) PublishDomainEvent(ctx context.Context, event events.DomainEvent, opts ...events.PublishOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

func (m *mockEventPublisher) types() []events.EventType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]events.EventType, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		out = append(out, e.EventType())
	}
	return out
}

// hookedStore wraps a RecordStore with failure injection and read counting.
type hookedStore struct {
	dispatch.RecordStore

	mu           sync.Mutex
	getErr       error
	beforeUpdate func()
	gets         map[uuid.UUID]int
}

func newHookedStore() *hookedStore {
	return &hookedStore{RecordStore: memory.NewRecordStore(), gets: make(map[uuid.UUID]int)}
}

func (s *hookedStore) Get(ctx context.Context, id uuid.UUID) (dispatch.WorkerRecord, error) {
	s.mu.Lock()
	err := s.getErr
	s.gets[id]++
	s.mu.Unlock()
	if err != nil {
		return dispatch.WorkerRecord{}, err
	}
	return s.RecordStore.Get(ctx, id)
}

func (s *hookedStore) Update(ctx context.Context, id uuid.UUID, p dispatch.Patch, c dispatch.Precondition) (dispatch.WorkerRecord, error) {
	s.mu.Lock()
	hook := s.beforeUpdate
	s.beforeUpdate = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.RecordStore.Update(ctx, id, p, c)
}

func (s *hookedStore) setGetErr(err error) {
	s.mu.Lock()
	s.getErr = err
	s.mu.Unlock()
}

func (s *hookedStore) getCount(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[id]
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

type fixture struct {
	store     *hookedStore
	publisher *mockEventPublisher
	clock     *timeutil.Mock
	profiles  *ProfileService

	workerID   uuid.UUID
	customerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      newHookedStore(),
		publisher:  new(mockEventPublisher),
		clock:      timeutil.NewMock(testStart),
		workerID:   uuid.New(),
		customerID: uuid.New(),
	}
	f.profiles = NewProfileService(f.store, logger.Noop(), noop.NewTracerProvider().Tracer("test"))
	f.profiles.timeProvider = f.clock

	ctx := context.Background()
	_, err := f.profiles.Register(ctx, f.workerID, dispatch.Registration{
		Role:       dispatch.RoleWorker,
		Username:   "sami",
		Profession: "Plumber",
		IsVerified: true,
		Location:   "24.7136,46.6753",
	})
	require.NoError(t, err)
	_, err = f.profiles.Register(ctx, f.customerID, dispatch.Registration{
		Role:     dispatch.RoleCustomer,
		Username: "layla",
		Location: "24.7000,46.7000",
	})
	require.NoError(t, err)
	return f
}

func testMetrics(t *testing.T, role dispatch.Role) AgentMetrics {
	t.Helper()
	m, err := NewAgentMetrics(metricnoop.NewMeterProvider(), role)
	require.NoError(t, err)
	return m
}

func (f *fixture) workerAgent(t *testing.T) *WorkerAgent {
	t.Helper()
	a := NewWorkerAgent(
		WorkerAgentConfig{WorkerID: f.workerID, PollInterval: 10 * time.Millisecond},
		f.store,
		f.publisher,
		testMetrics(t, dispatch.RoleWorker),
		logger.Noop(),
		noop.NewTracerProvider().Tracer("test"),
	)
	a.setTimeProvider(f.clock)
	return a
}

func (f *fixture) customerAgent(t *testing.T, customerID uuid.UUID, ttl time.Duration) *CustomerAgent {
	t.Helper()
	a := NewCustomerAgent(
		CustomerAgentConfig{CustomerID: customerID, PollInterval: 10 * time.Millisecond, OfferTTL: ttl},
		f.store,
		f.publisher,
		testMetrics(t, dispatch.RoleCustomer),
		logger.Noop(),
		noop.NewTracerProvider().Tracer("test"),
	)
	a.setTimeProvider(f.clock)
	return a
}

func (f *fixture) registerCustomer(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := f.profiles.Register(context.Background(), id, dispatch.Registration{Role: dispatch.RoleCustomer, Username: name})
	require.NoError(t, err)
	return id
}

func loggerNoop() *logger.Logger { return logger.Noop() }

func tracerNoop() trace.Tracer { return noop.NewTracerProvider().Tracer("test") }
