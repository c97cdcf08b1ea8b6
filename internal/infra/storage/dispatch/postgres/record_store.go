// Package postgres stores worker records in PostgreSQL. Conditional updates
// run as a single UPDATE ... WHERE statement so the check and the write are
// atomic per row.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/db"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/infra/storage"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

var _ dispatch.RecordStore = (*recordStore)(nil)

var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
	attribute.String("db.table", "profiles"),
}

type recordStore struct {
	q            *db.Queries
	db           *pgxpool.Pool
	tracer       trace.Tracer
	timeProvider timeutil.Provider
}

// NewRecordStore creates a PostgreSQL-backed record store with tracing.
func NewRecordStore(pool *pgxpool.Pool, tracer trace.Tracer) *recordStore {
	return &recordStore{
		q:            db.New(pool),
		db:           pool,
		tracer:       tracer,
		timeProvider: timeutil.Default(),
	}
}

// Create inserts rec with version 1.
func (s *recordStore) Create(ctx context.Context, rec dispatch.WorkerRecord) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("record_id", rec.ID.String()),
		attribute.String("role", string(rec.Role)),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.create_profile", dbAttrs, func(ctx context.Context) error {
		price, err := toPgNumeric(rec.Price)
		if err != nil {
			return err
		}

		err = s.q.CreateProfile(ctx, db.CreateProfileParams{
			ID:                toPgUUID(rec.ID),
			Role:              string(rec.Role),
			Profession:        rec.Profession,
			Username:          rec.Username,
			Location:          rec.Location,
			WorkerDescription: rec.WorkerDescription,
			Number:            rec.Number,
			IsVerified:        rec.IsVerified,
			Status:            rec.Status,
			IsOrdered:         rec.IsOrdered,
			TempID:            toPgUUIDPtr(rec.TempID),
			Scenario:          toPgText(rec.Scenario),
			Price:             price,
			IsWorking:         rec.IsWorking,
			IsDone:            rec.IsDone,
			OfferExpiresAt:    toPgTimestamptz(rec.OfferExpiresAt),
			LastOutcome:       string(rec.LastOutcome),
			LastCustomerID:    toPgUUIDPtr(rec.LastCustomerID),
			CreatedAt:         pgtype.Timestamptz{Time: s.timeProvider.Now(), Valid: true},
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return dispatch.ErrRecordExists
			}
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// Get reads the record for id.
func (s *recordStore) Get(ctx context.Context, id uuid.UUID) (dispatch.WorkerRecord, error) {
	var rec dispatch.WorkerRecord
	dbAttrs := append(defaultDBAttributes, attribute.String("record_id", id.String()))

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_profile", dbAttrs, func(ctx context.Context) error {
		row, err := s.q.GetProfile(ctx, toPgUUID(id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return dispatch.ErrRecordNotFound
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}

		rec, err = toDomain(row)
		return err
	})

	return rec, err
}

// Update applies patch when cond holds. A statement that matches no row is
// followed by a read to tell a missing record apart from a lost race.
func (s *recordStore) Update(
	ctx context.Context,
	id uuid.UUID,
	patch dispatch.Patch,
	cond dispatch.Precondition,
) (dispatch.WorkerRecord, error) {
	var rec dispatch.WorkerRecord
	dbAttrs := append(defaultDBAttributes, attribute.String("record_id", id.String()))

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.update_profile", dbAttrs, func(ctx context.Context) error {
		params, err := toUpdateParams(id, patch, cond, s.timeProvider.Now())
		if err != nil {
			return err
		}

		row, err := s.q.UpdateProfile(ctx, params)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			if _, getErr := s.q.GetProfile(ctx, toPgUUID(id)); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return dispatch.ErrRecordNotFound
				}
				return fmt.Errorf("failed to re-read profile: %w", getErr)
			}
			return dispatch.ErrPreconditionFailed
		}

		rec, err = toDomain(row)
		return err
	})

	return rec, err
}

// Query lists the records matching filter ordered by username and id.
func (s *recordStore) Query(ctx context.Context, filter dispatch.Filter) ([]dispatch.WorkerRecord, error) {
	out := make([]dispatch.WorkerRecord, 0)

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_profiles", defaultDBAttributes, func(ctx context.Context) error {
		rows, err := s.q.ListProfiles(ctx, toListParams(filter))
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}

		for _, row := range rows {
			rec, err := toDomain(row)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})

	return out, err
}
