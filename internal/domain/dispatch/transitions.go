package dispatch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Change is a computed transition: the single-row patch to write and the
// precondition the row must still satisfy at write time.
type Change struct {
	Transition   Transition
	Patch        Patch
	Precondition Precondition
	// Noop is set when the record already reflects the transition and no
	// write is required.
	Noop bool
}

// Submit computes a customer's order request against worker. The write is
// conditional on the worker still being selectable, so of two customers racing
// for the same worker exactly one wins, and a worker who went on Break in the
// meantime receives nothing.
func Submit(worker WorkerRecord, customerID uuid.UUID, scenario string, now time.Time, offerTTL time.Duration) (Change, error) {
	scenario, err := NormalizeScenario(scenario)
	if err != nil {
		return Change{}, err
	}
	if customerID == uuid.Nil {
		return Change{}, newValidationError("customer_id", "must be set")
	}
	if customerID == worker.ID {
		return Change{}, newValidationError("worker_id", "cannot order yourself")
	}
	if !worker.IsSelectable() {
		return Change{}, ErrWorkerUnavailable
	}

	expires := Null[time.Time]()
	if offerTTL > 0 {
		expires = Value(now.Add(offerTTL))
	}

	return Change{
		Transition: TransitionSubmit,
		Patch: Patch{
			IsOrdered:      ptr(true),
			IsWorking:      ptr(false),
			IsDone:         ptr(false),
			TempID:         Value(customerID),
			Scenario:       Value(scenario),
			Price:          Null[decimal.Decimal](),
			OfferExpiresAt: expires,
			LastOutcome:    ptr(OutcomeNone),
			LastCustomerID: Null[uuid.UUID](),
		},
		// The worker must still be selectable when the write lands, not
		// only when the customer read the row.
		Precondition: Precondition{
			Status:     ptr(StatusReady),
			IsVerified: ptr(true),
			IsOrdered:  ptr(false),
			IsWorking:  ptr(false),
		},
	}, nil
}

// Accept moves a pending offer to Working at the given price. offeredBy is
// the customer whose offer the worker saw; a row now held by someone else is
// ErrStaleState. uuid.Nil accepts whichever customer holds the row. Accepting
// again with the same price while already working for that customer is a
// no-op.
func Accept(rec WorkerRecord, offeredBy uuid.UUID, priceInput, customerName string) (Change, error) {
	price, err := ParsePrice(priceInput)
	if err != nil {
		return Change{}, err
	}

	if offeredBy != uuid.Nil && rec.TempID != nil && *rec.TempID != offeredBy {
		return Change{}, fmt.Errorf("%s: offer from %s was replaced: %w", TransitionAccept, offeredBy, ErrStaleState)
	}
	if rec.Phase() == PhaseWorking && rec.Price != nil && rec.Price.Equal(price) {
		return Change{Transition: TransitionAccept, Noop: true}, nil
	}
	if err := checkPhase(TransitionAccept, rec); err != nil {
		return Change{}, err
	}

	return Change{
		Transition: TransitionAccept,
		Patch: Patch{
			Status:         ptr(WorkingStatus(customerName)),
			Price:          Value(price),
			IsWorking:      ptr(true),
			IsDone:         ptr(false),
			OfferExpiresAt: Null[time.Time](),
		},
		Precondition: claimedBy(rec, false),
	}, nil
}

// Reject declines a pending offer and fully resets the order fields. The
// rejected customer is recorded so their poll can tell what happened.
func Reject(rec WorkerRecord) (Change, error) {
	if err := checkPhase(TransitionReject, rec); err != nil {
		return Change{}, err
	}
	return Change{
		Transition:   TransitionReject,
		Patch:        resetPatch(*rec.TempID, OutcomeRejected),
		Precondition: claimedBy(rec, false),
	}, nil
}

// Cancel aborts a job in progress and returns the worker to Ready.
func Cancel(rec WorkerRecord) (Change, error) {
	if err := checkPhase(TransitionCancel, rec); err != nil {
		return Change{}, err
	}
	p := resetPatch(*rec.TempID, OutcomeCancelled)
	p.Status = ptr(StatusReady)
	return Change{
		Transition:   TransitionCancel,
		Patch:        p,
		Precondition: claimedBy(rec, true),
	}, nil
}

// Complete closes a job successfully. tempId and price are kept so the
// customer's history still resolves the completed order.
func Complete(rec WorkerRecord) (Change, error) {
	if err := checkPhase(TransitionComplete, rec); err != nil {
		return Change{}, err
	}
	return Change{
		Transition: TransitionComplete,
		Patch: Patch{
			Status:         ptr(StatusReady),
			IsDone:         ptr(true),
			IsWorking:      ptr(false),
			IsOrdered:      ptr(false),
			OfferExpiresAt: Null[time.Time](),
			LastOutcome:    ptr(OutcomeCompleted),
			LastCustomerID: Value(*rec.TempID),
		},
		Precondition: claimedBy(rec, true),
	}, nil
}

// OfferExpired reports whether rec holds a pending offer whose expiry has
// passed at now.
func OfferExpired(rec WorkerRecord, now time.Time) bool {
	return rec.Phase() == PhasePendingOffer && rec.OfferExpiresAt != nil && !now.Before(*rec.OfferExpiresAt)
}

// Expire auto-rejects a pending offer that sat unanswered past its expiry.
// It is pinned to the exact version observed.
func Expire(rec WorkerRecord, now time.Time) (Change, error) {
	if err := checkPhase(TransitionExpire, rec); err != nil {
		return Change{}, err
	}
	if !OfferExpired(rec, now) {
		return Change{}, &TransitionError{Transition: TransitionExpire, From: rec.Phase()}
	}
	return Change{
		Transition:   TransitionExpire,
		Patch:        resetPatch(*rec.TempID, OutcomeExpired),
		Precondition: Precondition{Version: ptr(rec.Version)},
	}, nil
}

// SetAvailability switches the cosmetic Ready/Break label. It is refused
// while the worker is on a job.
func SetAvailability(rec WorkerRecord, status string) (Change, error) {
	status, err := NormalizeAvailability(status)
	if err != nil {
		return Change{}, err
	}
	if rec.Phase() == PhaseWorking {
		return Change{}, &TransitionError{Transition: TransitionSetAvailability, From: PhaseWorking}
	}
	if rec.Status == status {
		return Change{Transition: TransitionSetAvailability, Noop: true}, nil
	}
	return Change{
		Transition:   TransitionSetAvailability,
		Patch:        Patch{Status: ptr(status)},
		Precondition: Precondition{IsWorking: ptr(false)},
	}, nil
}

// UpdateLocation stores the worker's coordinates.
func UpdateLocation(lat, lng float64) (Change, error) {
	loc, err := FormatLocation(lat, lng)
	if err != nil {
		return Change{}, err
	}
	return Change{
		Transition: TransitionUpdateLocation,
		Patch:      Patch{Location: ptr(loc)},
	}, nil
}

func resetPatch(customerID uuid.UUID, outcome Outcome) Patch {
	return Patch{
		IsOrdered:      ptr(false),
		TempID:         Null[uuid.UUID](),
		Price:          Null[decimal.Decimal](),
		Scenario:       Null[string](),
		IsWorking:      ptr(false),
		IsDone:         ptr(false),
		OfferExpiresAt: Null[time.Time](),
		LastOutcome:    ptr(outcome),
		LastCustomerID: Value(customerID),
	}
}

// claimedBy pins a worker transition to the customer and working flag the
// worker observed.
func claimedBy(rec WorkerRecord, working bool) Precondition {
	return Precondition{
		IsOrdered: ptr(true),
		IsWorking: ptr(working),
		TempID:    Value(*rec.TempID),
	}
}
