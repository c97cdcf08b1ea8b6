package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/ahrav/handyhire/internal/db"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

func toPgUUID(id uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: id, Valid: true} }

func toPgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return toPgUUID(*id)
}

func fromPgUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	out := uuid.UUID(id.Bytes)
	return &out
}

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func toPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func toPgNumeric(d *decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if d == nil {
		return n, nil
	}
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("failed to convert price %s: %w", d, err)
	}
	return n, nil
}

func fromPgNumeric(n pgtype.Numeric) (*decimal.Decimal, error) {
	if !n.Valid {
		return nil, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return nil, fmt.Errorf("%w: price is not a finite number", dispatch.ErrInvariantViolation)
	}
	d := decimal.NewFromBigInt(n.Int, n.Exp)
	return &d, nil
}

// toDomain converts a profiles row into a WorkerRecord.
func toDomain(p db.Profile) (dispatch.WorkerRecord, error) {
	price, err := fromPgNumeric(p.Price)
	if err != nil {
		return dispatch.WorkerRecord{}, err
	}

	rec := dispatch.WorkerRecord{
		ID:                uuid.UUID(p.ID.Bytes),
		Role:              dispatch.Role(p.Role),
		Profession:        p.Profession,
		Username:          p.Username,
		Location:          p.Location,
		WorkerDescription: p.WorkerDescription,
		Number:            p.Number,
		IsVerified:        p.IsVerified,
		Status:            p.Status,
		IsOrdered:         p.IsOrdered,
		TempID:            fromPgUUID(p.TempID),
		Price:             price,
		IsWorking:         p.IsWorking,
		IsDone:            p.IsDone,
		LastOutcome:       dispatch.ParseOutcome(p.LastOutcome),
		LastCustomerID:    fromPgUUID(p.LastCustomerID),
		Version:           p.Version,
		UpdatedAt:         p.UpdatedAt.Time,
	}
	if p.Scenario.Valid {
		s := p.Scenario.String
		rec.Scenario = &s
	}
	if p.OfferExpiresAt.Valid {
		t := p.OfferExpiresAt.Time
		rec.OfferExpiresAt = &t
	}
	return rec, nil
}

// toUpdateParams maps a patch and its precondition onto the single
// conditional UPDATE statement.
func toUpdateParams(
	id uuid.UUID,
	patch dispatch.Patch,
	cond dispatch.Precondition,
	now time.Time,
) (db.UpdateProfileParams, error) {
	params := db.UpdateProfileParams{
		ID:        toPgUUID(id),
		UpdatedAt: pgtype.Timestamptz{Time: now, Valid: true},
	}

	if patch.Status != nil {
		params.SetStatus, params.Status = true, *patch.Status
	}
	if patch.Location != nil {
		params.SetLocation, params.Location = true, *patch.Location
	}
	if patch.Username != nil {
		params.SetUsername, params.Username = true, *patch.Username
	}
	if patch.Profession != nil {
		params.SetProfession, params.Profession = true, *patch.Profession
	}
	if patch.IsVerified != nil {
		params.SetIsVerified, params.IsVerified = true, *patch.IsVerified
	}
	if patch.IsOrdered != nil {
		params.SetIsOrdered, params.IsOrdered = true, *patch.IsOrdered
	}
	if patch.IsWorking != nil {
		params.SetIsWorking, params.IsWorking = true, *patch.IsWorking
	}
	if patch.IsDone != nil {
		params.SetIsDone, params.IsDone = true, *patch.IsDone
	}
	if patch.TempID.IsSet() {
		params.SetTempID, params.TempID = true, toPgUUIDPtr(patch.TempID.Ptr())
	}
	if patch.Scenario.IsSet() {
		params.SetScenario, params.Scenario = true, toPgText(patch.Scenario.Ptr())
	}
	if patch.Price.IsSet() {
		price, err := toPgNumeric(patch.Price.Ptr())
		if err != nil {
			return db.UpdateProfileParams{}, err
		}
		params.SetPrice, params.Price = true, price
	}
	if patch.OfferExpiresAt.IsSet() {
		params.SetOfferExpiresAt, params.OfferExpiresAt = true, toPgTimestamptz(patch.OfferExpiresAt.Ptr())
	}
	if patch.LastOutcome != nil {
		params.SetLastOutcome, params.LastOutcome = true, string(*patch.LastOutcome)
	}
	if patch.LastCustomerID.IsSet() {
		params.SetLastCustomerID, params.LastCustomerID = true, toPgUUIDPtr(patch.LastCustomerID.Ptr())
	}

	if cond.Version != nil {
		params.ExpectVersion = pgtype.Int8{Int64: *cond.Version, Valid: true}
	}
	params.ExpectStatus = toPgText(cond.Status)
	if cond.IsVerified != nil {
		params.ExpectIsVerified = pgtype.Bool{Bool: *cond.IsVerified, Valid: true}
	}
	if cond.IsOrdered != nil {
		params.ExpectIsOrdered = pgtype.Bool{Bool: *cond.IsOrdered, Valid: true}
	}
	if cond.IsWorking != nil {
		params.ExpectIsWorking = pgtype.Bool{Bool: *cond.IsWorking, Valid: true}
	}
	if cond.TempID.IsSet() {
		params.CheckTempID, params.ExpectTempID = true, toPgUUIDPtr(cond.TempID.Ptr())
	}

	return params, nil
}

func toListParams(f dispatch.Filter) db.ListProfilesParams {
	var params db.ListProfilesParams
	if f.Role != nil {
		params.Role = pgtype.Text{String: string(*f.Role), Valid: true}
	}
	params.Profession = toPgText(f.Profession)
	if f.IsVerified != nil {
		params.IsVerified = pgtype.Bool{Bool: *f.IsVerified, Valid: true}
	}
	params.Status = toPgText(f.Status)
	if f.IsOrdered != nil {
		params.IsOrdered = pgtype.Bool{Bool: *f.IsOrdered, Valid: true}
	}
	params.TempID = toPgUUIDPtr(f.TempID)
	if f.HasPrice != nil {
		params.HasPrice = pgtype.Bool{Bool: *f.HasPrice, Valid: true}
	}
	if f.Limit > 0 {
		params.RowLimit = pgtype.Int8{Int64: int64(f.Limit), Valid: true}
	}
	return params
}
