// Package dispatch contains the worker and customer agents that drive the
// order lifecycle against the shared record store.
package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

// changeWriter writes computed changes with their precondition and publishes
// the lifecycle event for every write that lands.
type changeWriter struct {
	store        dispatch.RecordStore
	publisher    events.DomainEventPublisher
	metrics      AgentMetrics
	timeProvider timeutil.Provider

	logger *logger.Logger
	tracer trace.Tracer
}

// write applies c to record id. customerID is the customer the transition
// concerns and is carried on the published event.
func (w *changeWriter) write(
	ctx context.Context,
	id uuid.UUID,
	c dispatch.Change,
	customerID uuid.UUID,
) (dispatch.WorkerRecord, error) {
	ctx, span := w.tracer.Start(ctx, "dispatch.write_change",
		trace.WithAttributes(
			attribute.String("record_id", id.String()),
			attribute.String("transition", c.Transition.String()),
		))
	defer span.End()

	after, err := w.store.Update(ctx, id, c.Patch, c.Precondition)
	if err != nil {
		if errors.Is(err, dispatch.ErrPreconditionFailed) {
			w.metrics.IncConflicts(ctx, c.Transition)
			span.AddEvent("precondition_failed")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dispatch.WorkerRecord{}, err
	}
	span.SetAttributes(attribute.Int64("version", after.Version))
	w.metrics.IncTransitions(ctx, c.Transition)

	w.publish(ctx, c.Transition, customerID, after)
	return after, nil
}

// publish emits the lifecycle event for a written transition. A failed
// publish is logged; the written row stays authoritative.
func (w *changeWriter) publish(ctx context.Context, t dispatch.Transition, customerID uuid.UUID, after dispatch.WorkerRecord) {
	if w.publisher == nil {
		return
	}
	evt, ok := dispatch.NewOrderLifecycleEvent(t, customerID, after, w.timeProvider.Now())
	if !ok {
		return
	}
	err := w.publisher.PublishDomainEvent(ctx, evt,
		events.WithKey(after.ID.String()),
		events.WithHeaders(map[string]string{"customer_id": customerID.String()}),
	)
	if err != nil {
		w.metrics.IncPublishErrors(ctx)
		w.logger.Warn(ctx, "Failed to publish lifecycle event",
			"event_type", evt.EventType(),
			"worker_id", after.ID,
			"error", err,
		)
	}
}
