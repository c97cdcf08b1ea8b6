// Package redis stores worker records as JSON documents in Redis. Conditional
// updates use optimistic WATCH/MULTI transactions on the record's key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/infra/storage"
	"github.com/ahrav/handyhire/pkg/common/timeutil"
)

var _ dispatch.RecordStore = (*recordStore)(nil)

const (
	defaultKeyPrefix = "handyhire"
	// maxTxRetries bounds how often a WATCH transaction is retried after
	// the key changed underneath it. Each retry re-evaluates the precondition.
	maxTxRetries = 8
)

var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "redis"),
}

// document is the stored JSON form of a WorkerRecord.
type document struct {
	ID                uuid.UUID        `json:"id"`
	Role              string           `json:"role"`
	Profession        string           `json:"profession"`
	Username          string           `json:"username"`
	Location          string           `json:"location"`
	WorkerDescription string           `json:"worker_description"`
	Number            string           `json:"number"`
	IsVerified        bool             `json:"is_verified"`
	Status            string           `json:"status"`
	IsOrdered         bool             `json:"is_ordered"`
	TempID            *uuid.UUID       `json:"temp_id"`
	Scenario          *string          `json:"scenario"`
	Price             *decimal.Decimal `json:"price"`
	IsWorking         bool             `json:"is_working"`
	IsDone            bool             `json:"is_done"`
	OfferExpiresAt    *time.Time       `json:"offer_expires_at"`
	LastOutcome       string           `json:"last_outcome"`
	LastCustomerID    *uuid.UUID       `json:"last_customer_id"`
	Version           int64            `json:"version"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func fromDomain(r dispatch.WorkerRecord) document {
	return document{
		ID:                r.ID,
		Role:              string(r.Role),
		Profession:        r.Profession,
		Username:          r.Username,
		Location:          r.Location,
		WorkerDescription: r.WorkerDescription,
		Number:            r.Number,
		IsVerified:        r.IsVerified,
		Status:            r.Status,
		IsOrdered:         r.IsOrdered,
		TempID:            r.TempID,
		Scenario:          r.Scenario,
		Price:             r.Price,
		IsWorking:         r.IsWorking,
		IsDone:            r.IsDone,
		OfferExpiresAt:    r.OfferExpiresAt,
		LastOutcome:       string(r.LastOutcome),
		LastCustomerID:    r.LastCustomerID,
		Version:           r.Version,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (d document) toDomain() dispatch.WorkerRecord {
	return dispatch.WorkerRecord{
		ID:                d.ID,
		Role:              dispatch.Role(d.Role),
		Profession:        d.Profession,
		Username:          d.Username,
		Location:          d.Location,
		WorkerDescription: d.WorkerDescription,
		Number:            d.Number,
		IsVerified:        d.IsVerified,
		Status:            d.Status,
		IsOrdered:         d.IsOrdered,
		TempID:            d.TempID,
		Scenario:          d.Scenario,
		Price:             d.Price,
		IsWorking:         d.IsWorking,
		IsDone:            d.IsDone,
		OfferExpiresAt:    d.OfferExpiresAt,
		LastOutcome:       dispatch.ParseOutcome(d.LastOutcome),
		LastCustomerID:    d.LastCustomerID,
		Version:           d.Version,
		UpdatedAt:         d.UpdatedAt,
	}
}

type recordStore struct {
	client       redis.UniversalClient
	prefix       string
	tracer       trace.Tracer
	timeProvider timeutil.Provider
}

// NewRecordStore creates a Redis-backed record store. Keys are namespaced
// under prefix, or "handyhire" when prefix is empty.
func NewRecordStore(client redis.UniversalClient, prefix string, tracer trace.Tracer) *recordStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &recordStore{
		client:       client,
		prefix:       prefix,
		tracer:       tracer,
		timeProvider: timeutil.Default(),
	}
}

func (s *recordStore) recordKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:profile:%s", s.prefix, id)
}

func (s *recordStore) indexKey() string { return s.prefix + ":profiles" }

func decode(data []byte) (dispatch.WorkerRecord, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return dispatch.WorkerRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return doc.toDomain(), nil
}

// Create inserts rec with version 1.
func (s *recordStore) Create(ctx context.Context, rec dispatch.WorkerRecord) error {
	dbAttrs := append(defaultDBAttributes, attribute.String("record_id", rec.ID.String()))

	return storage.ExecuteAndTrace(ctx, s.tracer, "redis.create_profile", dbAttrs, func(ctx context.Context) error {
		stored := rec.Clone()
		stored.Version = 1
		stored.UpdatedAt = s.timeProvider.Now()

		data, err := json.Marshal(fromDomain(stored))
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}

		// The record and its index entry land in one MULTI/EXEC so a created
		// record is always visible to Query. Re-adding the id of an existing
		// record leaves the index unchanged.
		var created *redis.BoolCmd
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			created = pipe.SetNX(ctx, s.recordKey(rec.ID), data, 0)
			pipe.SAdd(ctx, s.indexKey(), rec.ID.String())
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if !created.Val() {
			return dispatch.ErrRecordExists
		}
		return nil
	})
}

// Get reads the record for id.
func (s *recordStore) Get(ctx context.Context, id uuid.UUID) (dispatch.WorkerRecord, error) {
	var rec dispatch.WorkerRecord
	dbAttrs := append(defaultDBAttributes, attribute.String("record_id", id.String()))

	err := storage.ExecuteAndTrace(ctx, s.tracer, "redis.get_profile", dbAttrs, func(ctx context.Context) error {
		data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return dispatch.ErrRecordNotFound
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}

		rec, err = decode(data)
		return err
	})

	return rec, err
}

// Update applies patch when cond holds. The key is watched while the
// precondition is evaluated, so a concurrent writer aborts the transaction
// and the check runs again against the newer value.
func (s *recordStore) Update(
	ctx context.Context,
	id uuid.UUID,
	patch dispatch.Patch,
	cond dispatch.Precondition,
) (dispatch.WorkerRecord, error) {
	var rec dispatch.WorkerRecord
	dbAttrs := append(defaultDBAttributes, attribute.String("record_id", id.String()))
	key := s.recordKey(id)

	err := storage.ExecuteAndTrace(ctx, s.tracer, "redis.update_profile", dbAttrs, func(ctx context.Context) error {
		txf := func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return dispatch.ErrRecordNotFound
				}
				return err
			}

			cur, err := decode(data)
			if err != nil {
				return err
			}
			if !cond.Holds(cur) {
				return dispatch.ErrPreconditionFailed
			}

			updated := patch.ApplyTo(cur)
			updated.Version = cur.Version + 1
			updated.UpdatedAt = s.timeProvider.Now()

			out, err := json.Marshal(fromDomain(updated))
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, 0)
				return nil
			})
			if err == nil {
				rec = updated
			}
			return err
		}

		for range maxTxRetries {
			err := s.client.Watch(ctx, txf, key)
			if errors.Is(err, redis.TxFailedErr) {
				continue
			}
			if err != nil && !errors.Is(err, dispatch.ErrRecordNotFound) && !errors.Is(err, dispatch.ErrPreconditionFailed) {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			return err
		}
		return fmt.Errorf("failed to update profile: %w", dispatch.ErrPreconditionFailed)
	})

	return rec, err
}

// Query lists the records matching filter ordered by username and id.
func (s *recordStore) Query(ctx context.Context, filter dispatch.Filter) ([]dispatch.WorkerRecord, error) {
	out := make([]dispatch.WorkerRecord, 0)

	err := storage.ExecuteAndTrace(ctx, s.tracer, "redis.list_profiles", defaultDBAttributes, func(ctx context.Context) error {
		ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
		if err != nil {
			return fmt.Errorf("failed to list profile ids: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, s.prefix+":profile:"+id)
		}

		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}

		for _, v := range values {
			str, ok := v.(string)
			if !ok {
				// Indexed but deleted since.
				continue
			}
			rec, err := decode([]byte(str))
			if err != nil {
				return err
			}
			if filter.Matches(rec) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
