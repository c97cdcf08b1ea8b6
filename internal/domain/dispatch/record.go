package dispatch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role distinguishes workers from customers. Both live in the same table and
// customers are only ever read for their display fields.
type Role string

const (
	RoleWorker   Role = "worker"
	RoleCustomer Role = "customer"
)

// Cosmetic status labels. Status is never consulted by transition logic
// except for the worker-selection predicate.
const (
	StatusReady = "Ready to Take Orders"
	StatusBreak = "Taking a Break"
)

// WorkingStatus is the label shown while the worker is on a job.
func WorkingStatus(customerName string) string {
	if customerName == "" {
		customerName = "Client"
	}
	return "Is working now for " + customerName
}

// Outcome records how the most recent order on a worker row ended, so the
// customer it belonged to can tell a rejection apart from a lost request.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeRejected  Outcome = "REJECTED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeExpired   Outcome = "EXPIRED"
	OutcomeCompleted Outcome = "COMPLETED"
)

// ParseOutcome converts a stored value into an Outcome.
func ParseOutcome(s string) Outcome {
	switch Outcome(s) {
	case OutcomeRejected, OutcomeCancelled, OutcomeExpired, OutcomeCompleted:
		return Outcome(s)
	default:
		return OutcomeNone
	}
}

// WorkerRecord is one row of the shared record store. Worker-owned
// descriptive fields sit beside the order-engagement fields both agents
// mutate.
type WorkerRecord struct {
	ID   uuid.UUID
	Role Role

	Profession        string
	Username          string
	Location          string
	WorkerDescription string
	Number            string
	IsVerified        bool
	Status            string

	IsOrdered bool
	// TempID is the customer currently associated with the worker, both while
	// the request is pending and while the job is being served.
	TempID    *uuid.UUID
	Scenario  *string
	Price     *decimal.Decimal
	IsWorking bool
	IsDone    bool

	OfferExpiresAt *time.Time
	LastOutcome    Outcome
	LastCustomerID *uuid.UUID

	// Version increases by one on every successful update.
	Version   int64
	UpdatedAt time.Time
}

// Phase classifies the record from the worker's point of view.
func (r WorkerRecord) Phase() Phase {
	switch {
	case r.IsWorking:
		return PhaseWorking
	case r.IsOrdered && r.TempID != nil:
		return PhasePendingOffer
	default:
		return PhaseIdle
	}
}

// IsSelectable reports whether the record satisfies the worker-selection
// predicate for its own profession.
func (r WorkerRecord) IsSelectable() bool {
	return r.Role == RoleWorker && r.IsVerified && r.Status == StatusReady && !r.IsOrdered
}

// AssignedTo reports whether the record is currently associated with customerID.
func (r WorkerRecord) AssignedTo(customerID uuid.UUID) bool {
	return r.TempID != nil && *r.TempID == customerID
}

// Validate checks the cross-field invariants every stored record must hold.
func (r WorkerRecord) Validate() error {
	if r.IsOrdered && r.TempID == nil {
		return fmt.Errorf("%w: ordered without an associated customer", ErrInvariantViolation)
	}
	if r.IsWorking && (!r.IsOrdered || r.Price == nil) {
		return fmt.Errorf("%w: working requires an ordered, priced record", ErrInvariantViolation)
	}
	if r.IsDone && r.IsWorking {
		return fmt.Errorf("%w: done and working at once", ErrInvariantViolation)
	}
	// A completed record keeps tempId and price for the customer's history;
	// every other open record must be fully reset.
	if r.IsVerified && !r.IsOrdered && !r.IsDone {
		if r.TempID != nil || r.Price != nil || r.Scenario != nil {
			return fmt.Errorf("%w: available worker carries order fields", ErrInvariantViolation)
		}
	}
	if r.Price != nil && !r.Price.IsPositive() {
		return fmt.Errorf("%w: non-positive price", ErrInvariantViolation)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r WorkerRecord) Clone() WorkerRecord {
	out := r
	out.TempID = clonePtr(r.TempID)
	out.Scenario = clonePtr(r.Scenario)
	out.Price = clonePtr(r.Price)
	out.OfferExpiresAt = clonePtr(r.OfferExpiresAt)
	out.LastCustomerID = clonePtr(r.LastCustomerID)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CustomerInfo is the display payload resolved from tempId.
type CustomerInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Location string    `json:"location"`
}

// CustomerInfoFrom extracts the display payload from a customer's record.
func CustomerInfoFrom(r WorkerRecord) CustomerInfo {
	loc := r.Location
	if loc == "" {
		loc = "Location not available"
	}
	return CustomerInfo{ID: r.ID, Username: r.Username, Location: loc}
}
