package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/pkg/common/logger"
)

// DefaultPollInterval matches the refresh cadence of the mobile screens.
const DefaultPollInterval = 5 * time.Second

// tickFunc performs one read -> classify -> optional write cycle.
type tickFunc func(ctx context.Context) error

// poller drives a tickFunc on a fixed interval. Ticks never overlap: a tick
// that comes due while the previous one is still running is skipped.
type poller struct {
	name     string
	interval time.Duration
	tick     tickFunc

	inFlight atomic.Bool
	wg       sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}

	metrics AgentMetrics
	logger  *logger.Logger
	tracer  trace.Tracer
}

func newPoller(
	name string,
	interval time.Duration,
	tick tickFunc,
	metrics AgentMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
) *poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &poller{
		name:     name,
		interval: interval,
		tick:     tick,
		stopCh:   make(chan struct{}),
		metrics:  metrics,
		logger:   logger,
		tracer:   tracer,
	}
}

// run ticks once immediately and then on every interval until ctx is done or
// stop is called. It waits for an in-flight tick before returning.
func (p *poller) run(ctx context.Context) error {
	p.logger.Info(ctx, "Starting poll loop", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.fire(ctx)

	for {
		select {
		case <-ticker.C:
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.fire(ctx)
			}()
		case <-p.stopCh:
			p.logger.Info(ctx, "Poll loop stopped")
			return nil
		case <-ctx.Done():
			p.logger.Info(ctx, "Poll loop cancelled")
			return ctx.Err()
		}
	}
}

// fire runs a single tick unless one is already in flight. It reports whether
// the tick ran. Tick errors are logged and never end the loop.
func (p *poller) fire(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.IncTicksSkipped(ctx)
		p.logger.Debug(ctx, "Skipping tick, previous tick still running")
		return false
	}
	defer p.inFlight.Store(false)

	ctx, span := p.tracer.Start(ctx, p.name+".tick",
		trace.WithAttributes(attribute.String("interval", p.interval.String())))
	defer span.End()

	p.metrics.IncTicks(ctx)
	if err := p.tick(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.IncTickErrors(ctx)
		p.logger.Warn(ctx, "Poll tick failed, keeping previous snapshot", "error", err)
		return true
	}
	span.SetStatus(codes.Ok, "tick completed")
	return true
}

// stop ends the loop. Calling it more than once is safe.
func (p *poller) stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}
