package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

// AgentMetrics defines the metrics recorded by the worker and customer agents.
type AgentMetrics interface {
	// Poll loop metrics
	IncTicks(ctx context.Context)
	IncTicksSkipped(ctx context.Context)
	IncTickErrors(ctx context.Context)

	// Transition metrics
	IncTransitions(ctx context.Context, t dispatch.Transition)
	IncConflicts(ctx context.Context, t dispatch.Transition)
	IncPublishErrors(ctx context.Context)

	// Customer lookup metrics
	IncCustomerLookups(ctx context.Context, cached bool)
}

// agentMetrics implements AgentMetrics.
type agentMetrics struct {
	role string

	ticks        metric.Int64Counter
	ticksSkipped metric.Int64Counter
	tickErrors   metric.Int64Counter

	transitions   metric.Int64Counter
	conflicts     metric.Int64Counter
	publishErrors metric.Int64Counter

	customerLookups metric.Int64Counter
}

const namespace = "handyhire"

// NewAgentMetrics creates the agent metrics instruments. role is attached to
// every measurement so worker and customer processes can share dashboards.
func NewAgentMetrics(mp metric.MeterProvider, role dispatch.Role) (*agentMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := &agentMetrics{role: string(role)}
	var err error

	if m.ticks, err = meter.Int64Counter(
		"poll_ticks_total",
		metric.WithDescription("Total number of poll ticks executed"),
	); err != nil {
		return nil, err
	}

	if m.ticksSkipped, err = meter.Int64Counter(
		"poll_ticks_skipped_total",
		metric.WithDescription("Total number of poll ticks skipped because the previous tick was still running"),
	); err != nil {
		return nil, err
	}

	if m.tickErrors, err = meter.Int64Counter(
		"poll_tick_errors_total",
		metric.WithDescription("Total number of poll ticks that failed"),
	); err != nil {
		return nil, err
	}

	if m.transitions, err = meter.Int64Counter(
		"order_transitions_total",
		metric.WithDescription("Total number of order transitions written"),
	); err != nil {
		return nil, err
	}

	if m.conflicts, err = meter.Int64Counter(
		"order_conflicts_total",
		metric.WithDescription("Total number of conditional writes rejected because the record changed"),
	); err != nil {
		return nil, err
	}

	if m.publishErrors, err = meter.Int64Counter(
		"event_publish_errors_total",
		metric.WithDescription("Total number of lifecycle events that failed to publish"),
	); err != nil {
		return nil, err
	}

	if m.customerLookups, err = meter.Int64Counter(
		"customer_lookups_total",
		metric.WithDescription("Total number of customer display lookups"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *agentMetrics) roleAttr() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("role", m.role))
}

func (m *agentMetrics) IncTicks(ctx context.Context) { m.ticks.Add(ctx, 1, m.roleAttr()) }

func (m *agentMetrics) IncTicksSkipped(ctx context.Context) {
	m.ticksSkipped.Add(ctx, 1, m.roleAttr())
}

func (m *agentMetrics) IncTickErrors(ctx context.Context) { m.tickErrors.Add(ctx, 1, m.roleAttr()) }

func (m *agentMetrics) IncTransitions(ctx context.Context, t dispatch.Transition) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", m.role),
		attribute.String("transition", t.String()),
	))
}

func (m *agentMetrics) IncConflicts(ctx context.Context, t dispatch.Transition) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", m.role),
		attribute.String("transition", t.String()),
	))
}

func (m *agentMetrics) IncPublishErrors(ctx context.Context) {
	m.publishErrors.Add(ctx, 1, m.roleAttr())
}

func (m *agentMetrics) IncCustomerLookups(ctx context.Context, cached bool) {
	m.customerLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", m.role),
		attribute.Bool("cached", cached),
	))
}
