package dispatch

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func readyWorker(t *testing.T) WorkerRecord {
	t.Helper()
	rec, err := NewRecord(uuid.New(), Registration{
		Role:       RoleWorker,
		Username:   "sami",
		Profession: "Plumber",
		IsVerified: true,
	}, baseTime)
	require.NoError(t, err)
	return rec
}

// apply writes a change the way a store would, checking the precondition.
func apply(t *testing.T, rec WorkerRecord, c Change) WorkerRecord {
	t.Helper()
	if c.Noop {
		return rec
	}
	require.True(t, c.Precondition.Holds(rec), "precondition must hold against the record it was computed from")
	out := c.Patch.ApplyTo(rec)
	out.Version = rec.Version + 1
	require.NoError(t, out.Validate())
	return out
}

func pendingWorker(t *testing.T, customerID uuid.UUID) WorkerRecord {
	t.Helper()
	rec := readyWorker(t)
	c, err := Submit(rec, customerID, "fix sink", baseTime, 0)
	require.NoError(t, err)
	return apply(t, rec, c)
}

func workingWorker(t *testing.T, customerID uuid.UUID) WorkerRecord {
	t.Helper()
	rec := pendingWorker(t, customerID)
	c, err := Accept(rec, customerID, "100", "layla")
	require.NoError(t, err)
	return apply(t, rec, c)
}

func TestSubmit(t *testing.T) {
	customer := uuid.New()
	rec := readyWorker(t)

	c, err := Submit(rec, customer, "  fix sink  ", baseTime, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TransitionSubmit, c.Transition)

	after := apply(t, rec, c)
	assert.True(t, after.IsOrdered)
	require.NotNil(t, after.TempID)
	assert.Equal(t, customer, *after.TempID)
	require.NotNil(t, after.Scenario)
	assert.Equal(t, "fix sink", *after.Scenario)
	assert.Nil(t, after.Price)
	require.NotNil(t, after.OfferExpiresAt)
	assert.Equal(t, baseTime.Add(10*time.Minute), *after.OfferExpiresAt)
	assert.Equal(t, PhasePendingOffer, after.Phase())
}

func TestSubmit_Validation(t *testing.T) {
	rec := readyWorker(t)

	tests := []struct {
		name     string
		worker   WorkerRecord
		customer uuid.UUID
		scenario string
		wantErr  error
		validate bool
	}{
		{name: "empty scenario", worker: rec, customer: uuid.New(), scenario: "   ", validate: true},
		{name: "nil customer", worker: rec, customer: uuid.Nil, scenario: "fix sink", validate: true},
		{name: "self order", worker: rec, customer: rec.ID, scenario: "fix sink", validate: true},
		{name: "already ordered", worker: pendingWorker(t, uuid.New()), customer: uuid.New(), scenario: "fix sink", wantErr: ErrWorkerUnavailable},
		{
			name: "on break",
			worker: func() WorkerRecord {
				r := readyWorker(t)
				r.Status = StatusBreak
				return r
			}(),
			customer: uuid.New(), scenario: "fix sink", wantErr: ErrWorkerUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Submit(tt.worker, tt.customer, tt.scenario, baseTime, 0)
			require.Error(t, err)
			if tt.validate {
				assert.True(t, IsValidation(err))
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSubmit_PreconditionRejectsSecondWriter(t *testing.T) {
	rec := readyWorker(t)
	first, err := Submit(rec, uuid.New(), "fix sink", baseTime, 0)
	require.NoError(t, err)
	second, err := Submit(rec, uuid.New(), "leaking tap", baseTime, 0)
	require.NoError(t, err)

	after := apply(t, rec, first)
	assert.False(t, second.Precondition.Holds(after), "the second stale write must be rejected")
}

func TestAccept_PriceBoundaries(t *testing.T) {
	customer := uuid.New()

	for _, bad := range []string{"0", "-5", "", "abc", "NaN", "Inf", "1.005"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			rec := pendingWorker(t, customer)
			_, err := Accept(rec, customer, bad, "layla")
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}

	rec := pendingWorker(t, customer)
	c, err := Accept(rec, customer, "75.50", "layla")
	require.NoError(t, err)
	after := apply(t, rec, c)

	require.NotNil(t, after.Price)
	assert.True(t, after.Price.Equal(decimal.NewFromFloat(75.5)))
	assert.True(t, after.IsWorking)
	assert.False(t, after.IsDone)
	assert.Nil(t, after.OfferExpiresAt)
	assert.Equal(t, "Is working now for layla", after.Status)
	assert.Equal(t, PhaseWorking, after.Phase())
}

func TestAccept_SamePriceTwiceIsNoop(t *testing.T) {
	customer := uuid.New()
	rec := workingWorker(t, customer)

	c, err := Accept(rec, customer, "100.00", "layla")
	require.NoError(t, err)
	assert.True(t, c.Noop)

	c, err = Accept(rec, uuid.Nil, "100", "layla")
	require.NoError(t, err)
	assert.True(t, c.Noop)

	_, err = Accept(rec, customer, "120", "layla")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestAccept_OfferFromAnotherCustomer(t *testing.T) {
	seen, other := uuid.New(), uuid.New()

	tests := []struct {
		name string
		rec  WorkerRecord
	}{
		{name: "working for another customer at the same price", rec: workingWorker(t, other)},
		{name: "pending offer replaced by another customer", rec: pendingWorker(t, other)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Accept(tt.rec, seen, "100", "layla")
			assert.ErrorIs(t, err, ErrStaleState)
			assert.False(t, c.Noop)
			assert.True(t, c.Patch.IsEmpty())
		})
	}
}

func TestAccept_FromIdle(t *testing.T) {
	_, err := Accept(readyWorker(t), uuid.Nil, "10", "x")

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseIdle, te.From)
	assert.Equal(t, TransitionAccept, te.Transition)
}

func TestReject(t *testing.T) {
	customer := uuid.New()
	rec := pendingWorker(t, customer)

	c, err := Reject(rec)
	require.NoError(t, err)
	after := apply(t, rec, c)

	assert.False(t, after.IsOrdered)
	assert.Nil(t, after.TempID)
	assert.Nil(t, after.Price)
	assert.Nil(t, after.Scenario)
	assert.False(t, after.IsWorking)
	assert.False(t, after.IsDone)
	assert.Equal(t, OutcomeRejected, after.LastOutcome)
	require.NotNil(t, after.LastCustomerID)
	assert.Equal(t, customer, *after.LastCustomerID)
	assert.Equal(t, PhaseIdle, after.Phase())
	assert.True(t, after.IsSelectable())
}

func TestReject_FromIdleTwiceIsRejectedWithoutWrite(t *testing.T) {
	rec := readyWorker(t)
	for range 2 {
		c, err := Reject(rec)
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.True(t, c.Patch.IsEmpty())
		assert.NoError(t, rec.Validate())
	}
}

func TestCancel(t *testing.T) {
	customer := uuid.New()
	rec := workingWorker(t, customer)

	c, err := Cancel(rec)
	require.NoError(t, err)
	after := apply(t, rec, c)

	assert.Equal(t, StatusReady, after.Status)
	assert.False(t, after.IsWorking)
	assert.Nil(t, after.TempID)
	assert.Nil(t, after.Price)
	assert.Equal(t, OutcomeCancelled, after.LastOutcome)

	_, err = Cancel(readyWorker(t))
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = Cancel(pendingWorker(t, customer))
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestComplete(t *testing.T) {
	customer := uuid.New()
	rec := workingWorker(t, customer)

	c, err := Complete(rec)
	require.NoError(t, err)
	after := apply(t, rec, c)

	assert.True(t, after.IsDone)
	assert.False(t, after.IsWorking)
	assert.False(t, after.IsOrdered)
	assert.Equal(t, StatusReady, after.Status)
	require.NotNil(t, after.TempID, "tempId is kept for order history")
	assert.Equal(t, customer, *after.TempID)
	require.NotNil(t, after.Price)
	assert.True(t, after.Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, CustomerOrdersFilter(customer).Matches(after))
	assert.True(t, after.IsSelectable())

	_, err = Complete(pendingWorker(t, customer))
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestSubmit_AfterCompletionResetsPreviousOrder(t *testing.T) {
	first := uuid.New()
	rec := workingWorker(t, first)
	c, err := Complete(rec)
	require.NoError(t, err)
	done := apply(t, rec, c)

	second := uuid.New()
	c, err = Submit(done, second, "rewire kitchen", baseTime, 0)
	require.NoError(t, err)
	after := apply(t, done, c)

	assert.False(t, after.IsDone)
	assert.Nil(t, after.Price)
	assert.Equal(t, OutcomeNone, after.LastOutcome)
	assert.True(t, after.AssignedTo(second))
}

func TestExpire(t *testing.T) {
	customer := uuid.New()
	rec := readyWorker(t)
	c, err := Submit(rec, customer, "fix sink", baseTime, time.Minute)
	require.NoError(t, err)
	pending := apply(t, rec, c)

	assert.False(t, OfferExpired(pending, baseTime.Add(30*time.Second)))
	_, err = Expire(pending, baseTime.Add(30*time.Second))
	assert.ErrorIs(t, err, ErrIllegalTransition)

	now := baseTime.Add(time.Minute)
	require.True(t, OfferExpired(pending, now))
	c, err = Expire(pending, now)
	require.NoError(t, err)
	require.NotNil(t, c.Precondition.Version)
	assert.Equal(t, pending.Version, *c.Precondition.Version)

	after := apply(t, pending, c)
	assert.Equal(t, OutcomeExpired, after.LastOutcome)
	assert.Equal(t, PhaseIdle, after.Phase())
}

func TestSetAvailability(t *testing.T) {
	rec := readyWorker(t)

	c, err := SetAvailability(rec, "break")
	require.NoError(t, err)
	after := apply(t, rec, c)
	assert.Equal(t, StatusBreak, after.Status)
	assert.False(t, after.IsSelectable())

	c, err = SetAvailability(after, StatusBreak)
	require.NoError(t, err)
	assert.True(t, c.Noop)

	_, err = SetAvailability(rec, "sleeping")
	assert.True(t, IsValidation(err))

	_, err = SetAvailability(workingWorker(t, uuid.New()), "ready")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestUpdateLocation(t *testing.T) {
	c, err := UpdateLocation(24.7136, 46.6753)
	require.NoError(t, err)
	after := apply(t, readyWorker(t), c)
	assert.Equal(t, "24.7136,46.6753", after.Location)

	_, err = UpdateLocation(91, 0)
	assert.True(t, IsValidation(err))
	_, err = UpdateLocation(0, -181)
	assert.True(t, IsValidation(err))
}

func TestTransitions_RefuseCorruptRecords(t *testing.T) {
	rec := readyWorker(t)
	rec.IsWorking = true // working without order or price

	_, err := Cancel(rec)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	_, err = Complete(rec)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestSubmit_PreconditionFailsOnceWorkerTakesBreak(t *testing.T) {
	w := readyWorker(t)
	c, err := Submit(w, uuid.New(), "fix sink", baseTime, 0)
	require.NoError(t, err)

	brk, err := SetAvailability(w, "break")
	require.NoError(t, err)
	onBreak := apply(t, w, brk)
	assert.False(t, c.Precondition.Holds(onBreak))

	unverified := w
	unverified.IsVerified = false
	assert.False(t, c.Precondition.Holds(unverified))
}

func TestUpdateProfile(t *testing.T) {
	customer, err := NewRecord(uuid.New(), Registration{Role: RoleCustomer, Username: "layla"}, baseTime)
	require.NoError(t, err)
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		rec       WorkerRecord
		edit      ProfileEdit
		wantNoop  bool
		wantField string
		check     func(t *testing.T, after WorkerRecord)
	}{
		{
			name: "worker renames and changes trade",
			rec:  readyWorker(t),
			edit: ProfileEdit{Username: str(" sami k "), Profession: str("Electrician"), IsVerified: ptr(false)},
			check: func(t *testing.T, after WorkerRecord) {
				assert.Equal(t, "sami k", after.Username)
				assert.Equal(t, "Electrician", after.Profession)
				assert.False(t, after.IsVerified)
				assert.False(t, after.IsSelectable())
			},
		},
		{
			name: "customer renames",
			rec:  customer,
			edit: ProfileEdit{Username: str("layla a")},
			check: func(t *testing.T, after WorkerRecord) {
				assert.Equal(t, "layla a", after.Username)
			},
		},
		{name: "unchanged values", rec: readyWorker(t), edit: ProfileEdit{Username: str("sami"), Profession: str("Plumber")}, wantNoop: true},
		{name: "nothing set", rec: readyWorker(t), wantNoop: true},
		{name: "blank username", rec: readyWorker(t), edit: ProfileEdit{Username: str("  ")}, wantField: "username"},
		{name: "blank profession", rec: readyWorker(t), edit: ProfileEdit{Profession: str("")}, wantField: "profession"},
		{name: "customer profession", rec: customer, edit: ProfileEdit{Profession: str("Plumber")}, wantField: "profession"},
		{name: "customer verification", rec: customer, edit: ProfileEdit{IsVerified: ptr(true)}, wantField: "profession"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := UpdateProfile(tt.rec, tt.edit)
			if tt.wantField != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TransitionUpdateProfile, c.Transition)
			assert.Equal(t, tt.wantNoop, c.Noop)
			if tt.check != nil {
				tt.check(t, apply(t, tt.rec, c))
			}
		})
	}
}
