package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/pkg/common/logger"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

// ProfileService registers and edits worker and customer profiles.
type ProfileService struct {
	store        dispatch.RecordStore
	timeProvider timeutil.Provider

	logger *logger.Logger
	tracer trace.Tracer
}

// NewProfileService creates a ProfileService backed by store.
func NewProfileService(store dispatch.RecordStore, logger *logger.Logger, tracer trace.Tracer) *ProfileService {
	return &ProfileService{
		store:        store,
		timeProvider: timeutil.Default(),
		logger:       logger.With("component", "profile_service"),
		tracer:       tracer,
	}
}

// Register creates the profile for id.
func (s *ProfileService) Register(ctx context.Context, id uuid.UUID, reg dispatch.Registration) (dispatch.WorkerRecord, error) {
	ctx, span := s.tracer.Start(ctx, "profile_service.register",
		trace.WithAttributes(
			attribute.String("id", id.String()),
			attribute.String("role", string(reg.Role)),
		))
	defer span.End()

	rec, err := dispatch.NewRecord(id, reg, s.timeProvider.Now())
	if err != nil {
		span.RecordError(err)
		return dispatch.WorkerRecord{}, err
	}

	if err := s.store.Create(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dispatch.WorkerRecord{}, fmt.Errorf("creating profile: %w", err)
	}
	s.logger.Info(ctx, "Profile registered", "id", id.String(), "role", string(reg.Role))
	return rec, nil
}

// EnsureRegistered returns the existing profile for id, registering it from
// reg when none exists yet.
func (s *ProfileService) EnsureRegistered(ctx context.Context, id uuid.UUID, reg dispatch.Registration) (dispatch.WorkerRecord, error) {
	rec, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		if rec.Role != reg.Role {
			return dispatch.WorkerRecord{}, fmt.Errorf("profile %s is registered as %s, not %s", id, rec.Role, reg.Role)
		}
		return rec, nil
	case errors.Is(err, dispatch.ErrRecordNotFound):
		return s.Register(ctx, id, reg)
	default:
		return dispatch.WorkerRecord{}, fmt.Errorf("reading profile: %w", err)
	}
}

// Profile returns the profile for id.
func (s *ProfileService) Profile(ctx context.Context, id uuid.UUID) (dispatch.WorkerRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return dispatch.WorkerRecord{}, fmt.Errorf("reading profile: %w", err)
	}
	return rec, nil
}

// UpdateProfile applies an account edit to the profile for id. An edit that
// changes nothing returns the current profile without writing.
func (s *ProfileService) UpdateProfile(ctx context.Context, id uuid.UUID, edit dispatch.ProfileEdit) (dispatch.WorkerRecord, error) {
	ctx, span := s.tracer.Start(ctx, "profile_service.update_profile",
		trace.WithAttributes(attribute.String("id", id.String())))
	defer span.End()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dispatch.WorkerRecord{}, fmt.Errorf("reading profile: %w", err)
	}

	change, err := dispatch.UpdateProfile(rec, edit)
	if err != nil {
		span.RecordError(err)
		return dispatch.WorkerRecord{}, err
	}
	if change.Noop {
		return rec, nil
	}

	// Pinned to the version read so a concurrent order transition is not
	// overwritten with stale profile fields.
	change.Precondition.Version = &rec.Version
	after, err := s.store.Update(ctx, id, change.Patch, change.Precondition)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, dispatch.ErrPreconditionFailed) {
			return dispatch.WorkerRecord{}, fmt.Errorf("updating profile: %w", dispatch.ErrStaleState)
		}
		return dispatch.WorkerRecord{}, fmt.Errorf("updating profile: %w", err)
	}
	s.logger.Info(ctx, "Profile updated", "id", id.String(), "version", after.Version)
	return after, nil
}
