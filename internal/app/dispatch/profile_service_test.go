package dispatch

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

func TestProfileService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.profiles.Register(ctx, f.workerID, dispatch.Registration{Role: dispatch.RoleWorker, Username: "x", Profession: "Plumber"})
	assert.ErrorIs(t, err, dispatch.ErrRecordExists)

	_, err = f.profiles.Register(ctx, uuid.New(), dispatch.Registration{Role: dispatch.RoleWorker, Username: "x"})
	assert.True(t, dispatch.IsValidation(err))

	rec, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	assert.Equal(t, dispatch.StatusReady, rec.Status)
	assert.False(t, rec.IsOrdered)
	assert.Nil(t, rec.TempID)
	assert.Nil(t, rec.Price)
}

func TestProfileService_EnsureRegistered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	existing, err := f.profiles.EnsureRegistered(ctx, f.workerID, dispatch.Registration{Role: dispatch.RoleWorker})
	require.NoError(t, err)
	assert.Equal(t, "sami", existing.Username)

	_, err = f.profiles.EnsureRegistered(ctx, f.workerID, dispatch.Registration{Role: dispatch.RoleCustomer})
	assert.Error(t, err, "role mismatch must be refused")

	id := uuid.New()
	created, err := f.profiles.EnsureRegistered(ctx, id, dispatch.Registration{
		Role:       dispatch.RoleWorker,
		Username:   "omar",
		Profession: "Electrician",
		IsVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)

	f.store.setGetErr(errConnRefused)
	_, err = f.profiles.EnsureRegistered(ctx, uuid.New(), dispatch.Registration{Role: dispatch.RoleCustomer, Username: "z"})
	assert.ErrorIs(t, err, errConnRefused)
}

func TestProfileService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	username, profession := "  sami k ", "Electrician"
	rec, err := f.profiles.UpdateProfile(ctx, f.workerID, dispatch.ProfileEdit{
		Username:   &username,
		Profession: &profession,
	})
	require.NoError(t, err)
	assert.Equal(t, "sami k", rec.Username)
	assert.Equal(t, "Electrician", rec.Profession)
	assert.True(t, rec.IsVerified)

	again, err := f.profiles.UpdateProfile(ctx, f.workerID, dispatch.ProfileEdit{Profession: &profession})
	require.NoError(t, err)
	assert.Equal(t, rec.Version, again.Version, "an edit that changes nothing does not write")

	got, err := f.profiles.Profile(ctx, f.workerID)
	require.NoError(t, err)
	assert.Equal(t, "Electrician", got.Profession)

	tests := []struct {
		name string
		id   uuid.UUID
		edit dispatch.ProfileEdit
	}{
		{name: "blank username", id: f.workerID, edit: dispatch.ProfileEdit{Username: ptrTo("  ")}},
		{name: "blank profession", id: f.workerID, edit: dispatch.ProfileEdit{Profession: ptrTo("")}},
		{name: "customer profession", id: f.customerID, edit: dispatch.ProfileEdit{Profession: ptrTo("Plumber")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.profiles.UpdateProfile(ctx, tt.id, tt.edit)
			assert.True(t, dispatch.IsValidation(err))
		})
	}

	_, err = f.profiles.UpdateProfile(ctx, uuid.New(), dispatch.ProfileEdit{Username: ptrTo("x")})
	assert.ErrorIs(t, err, dispatch.ErrRecordNotFound)
}

func TestProfileService_UpdateProfileLosesToConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer := f.customerAgent(t, f.customerID, 0)

	f.store.beforeUpdate = func() {
		_, err := customer.SubmitOrder(ctx, f.workerID, "fix sink")
		require.NoError(t, err)
	}

	_, err := f.profiles.UpdateProfile(ctx, f.workerID, dispatch.ProfileEdit{Username: ptrTo("sami k")})
	assert.ErrorIs(t, err, dispatch.ErrStaleState)

	rec, err := f.store.RecordStore.Get(ctx, f.workerID)
	require.NoError(t, err)
	assert.Equal(t, "sami", rec.Username)
	assert.True(t, rec.IsOrdered)
}

func ptrTo[T any](v T) *T { return &v }
