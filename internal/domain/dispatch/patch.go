package dispatch

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Nullable is a patch slot for a nullable column. The zero value leaves the
// column untouched; Null clears it; Value sets it.
type Nullable[T any] struct {
	set   bool
	valid bool
	value T
}

// Value returns a slot that sets the column to v.
func Value[T any](v T) Nullable[T] { return Nullable[T]{set: true, valid: true, value: v} }

// Null returns a slot that clears the column.
func Null[T any]() Nullable[T] { return Nullable[T]{set: true} }

// IsSet reports whether the slot changes the column.
func (n Nullable[T]) IsSet() bool { return n.set }

// Get returns the value and whether it is non-null. Only meaningful when IsSet.
func (n Nullable[T]) Get() (T, bool) { return n.value, n.valid }

// Ptr returns the slot's target as a pointer, nil for Null.
func (n Nullable[T]) Ptr() *T {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

func (n Nullable[T]) applyTo(dst **T) {
	if n.set {
		*dst = n.Ptr()
	}
}

// Patch is a partial update of a single record. Nil pointers and unset
// Nullable slots leave the corresponding column as it is.
type Patch struct {
	Status         *string
	Location       *string
	Username       *string
	Profession     *string
	IsVerified     *bool
	IsOrdered      *bool
	IsWorking      *bool
	IsDone         *bool
	TempID         Nullable[uuid.UUID]
	Scenario       Nullable[string]
	Price          Nullable[decimal.Decimal]
	OfferExpiresAt Nullable[time.Time]
	LastOutcome    *Outcome
	LastCustomerID Nullable[uuid.UUID]
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.Location == nil && p.Username == nil &&
		p.Profession == nil && p.IsVerified == nil && p.IsOrdered == nil &&
		p.IsWorking == nil && p.IsDone == nil && !p.TempID.IsSet() &&
		!p.Scenario.IsSet() && !p.Price.IsSet() && !p.OfferExpiresAt.IsSet() &&
		p.LastOutcome == nil && !p.LastCustomerID.IsSet()
}

// ApplyTo returns a copy of r with the patch applied. Version and UpdatedAt
// are the store's responsibility and are left untouched.
func (p Patch) ApplyTo(r WorkerRecord) WorkerRecord {
	out := r.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.Profession != nil {
		out.Profession = *p.Profession
	}
	if p.IsVerified != nil {
		out.IsVerified = *p.IsVerified
	}
	if p.IsOrdered != nil {
		out.IsOrdered = *p.IsOrdered
	}
	if p.IsWorking != nil {
		out.IsWorking = *p.IsWorking
	}
	if p.IsDone != nil {
		out.IsDone = *p.IsDone
	}
	p.TempID.applyTo(&out.TempID)
	p.Scenario.applyTo(&out.Scenario)
	p.Price.applyTo(&out.Price)
	p.OfferExpiresAt.applyTo(&out.OfferExpiresAt)
	if p.LastOutcome != nil {
		out.LastOutcome = *p.LastOutcome
	}
	p.LastCustomerID.applyTo(&out.LastCustomerID)
	return out
}

// Precondition is the compare half of a compare-and-swap update. Stores
// reject the patch with ErrPreconditionFailed when any set field differs from
// the current row.
type Precondition struct {
	Version    *int64
	Status     *string
	IsVerified *bool
	IsOrdered  *bool
	IsWorking  *bool
	TempID     Nullable[uuid.UUID]
}

// Holds reports whether r satisfies the precondition.
func (c Precondition) Holds(r WorkerRecord) bool {
	if c.Version != nil && r.Version != *c.Version {
		return false
	}
	if c.Status != nil && r.Status != *c.Status {
		return false
	}
	if c.IsVerified != nil && r.IsVerified != *c.IsVerified {
		return false
	}
	if c.IsOrdered != nil && r.IsOrdered != *c.IsOrdered {
		return false
	}
	if c.IsWorking != nil && r.IsWorking != *c.IsWorking {
		return false
	}
	if c.TempID.IsSet() {
		want, ok := c.TempID.Get()
		switch {
		case !ok && r.TempID != nil:
			return false
		case ok && (r.TempID == nil || *r.TempID != want):
			return false
		}
	}
	return true
}

func ptr[T any](v T) *T { return &v }
