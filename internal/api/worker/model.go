package worker

import (
	"encoding/json"
	"net/http"
	"time"

	appdispatch "github.com/ahrav/handyhire/internal/app/dispatch"
	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

// acceptRequest prices the pending offer. The price may be sent as a JSON
// number or a numeric string; exact decimal parsing happens in the domain.
type acceptRequest struct {
	Price json.Number `json:"price" validate:"required"`
}

// availabilityRequest switches between Ready and Break.
type availabilityRequest struct {
	Status string `json:"status" validate:"required"`
}

// locationRequest carries the worker's coordinates.
type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// stateResponse is the worker screen model.
type stateResponse struct {
	WorkerID       string                 `json:"worker_id"`
	Phase          string                 `json:"phase"`
	Status         string                 `json:"status"`
	Customer       *dispatch.CustomerInfo `json:"customer,omitempty"`
	Scenario       string                 `json:"scenario,omitempty"`
	Price          *string                `json:"price,omitempty"`
	OfferExpiresAt *time.Time             `json:"offer_expires_at,omitempty"`
	LastOutcome    string                 `json:"last_outcome,omitempty"`
	IsDone         bool                   `json:"is_done"`
	Version        int64                  `json:"version"`
	ObservedAt     time.Time              `json:"observed_at"`
	Stale          bool                   `json:"stale"`
}

// Encode implements the web.Encoder interface.
func (sr stateResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// HTTPStatus implements the httpStatus interface to set the response status code.
func (sr stateResponse) HTTPStatus() int { return http.StatusOK }

func toStateResponse(s appdispatch.WorkerSnapshot) stateResponse {
	resp := stateResponse{
		WorkerID:       s.WorkerID.String(),
		Phase:          s.Phase.String(),
		Status:         s.Status,
		Customer:       s.Customer,
		Scenario:       s.Scenario,
		OfferExpiresAt: s.OfferExpiresAt,
		LastOutcome:    string(s.LastOutcome),
		IsDone:         s.IsDone,
		Version:        s.Version,
		ObservedAt:     s.ObservedAt,
		Stale:          s.Stale,
	}
	if s.Price != nil {
		p := s.Price.String()
		resp.Price = &p
	}
	return resp
}
