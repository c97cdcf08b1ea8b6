package dispatch

import (
	"strings"

	"github.com/google/uuid"
)

// Filter selects records for RecordStore.Query. Nil fields are not
// constrained; all set fields must match.
type Filter struct {
	Role       *Role
	Profession *string
	IsVerified *bool
	Status     *string
	IsOrdered  *bool
	TempID     *uuid.UUID
	HasPrice   *bool
	// Limit caps the number of rows returned; zero means no cap.
	Limit int
}

// EligibleWorkersFilter is the worker-selection predicate: verified workers
// of the requested profession who are Ready and not already ordered.
func EligibleWorkersFilter(profession string) (Filter, error) {
	profession = strings.TrimSpace(profession)
	if profession == "" {
		return Filter{}, newValidationError("profession", "must not be empty")
	}
	return Filter{
		Role:       ptr(RoleWorker),
		Profession: ptr(profession),
		IsVerified: ptr(true),
		Status:     ptr(StatusReady),
		IsOrdered:  ptr(false),
	}, nil
}

// CustomerOrdersFilter selects the rows that make up a customer's order
// history: rows associated with the customer that carry a price.
func CustomerOrdersFilter(customerID uuid.UUID) Filter {
	return Filter{
		TempID:   ptr(customerID),
		HasPrice: ptr(true),
	}
}

// Matches reports whether r satisfies every set field of f.
func (f Filter) Matches(r WorkerRecord) bool {
	if f.Role != nil && r.Role != *f.Role {
		return false
	}
	if f.Profession != nil && r.Profession != *f.Profession {
		return false
	}
	if f.IsVerified != nil && r.IsVerified != *f.IsVerified {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.IsOrdered != nil && r.IsOrdered != *f.IsOrdered {
		return false
	}
	if f.TempID != nil && (r.TempID == nil || *r.TempID != *f.TempID) {
		return false
	}
	if f.HasPrice != nil && (r.Price != nil) != *f.HasPrice {
		return false
	}
	return true
}
