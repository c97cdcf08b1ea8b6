package customer

import (
	"encoding/json"
	"net/http"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

// submitRequest asks a worker to take a job.
type submitRequest struct {
	WorkerID string `json:"worker_id" validate:"required,uuid"`
	Scenario string `json:"scenario" validate:"required"`
}

// locationRequest carries the customer's coordinates.
type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// locationResponse echoes the stored location.
type locationResponse struct {
	Location string `json:"location"`
	Version  int64  `json:"version"`
}

// Encode implements the web.Encoder interface.
func (lr locationResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(lr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// workerInfo is one selectable worker.
type workerInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Profession  string `json:"profession"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Number      string `json:"number,omitempty"`
	IsVerified  bool   `json:"is_verified"`
	Status      string `json:"status"`
}

type workersResponse struct {
	Workers []workerInfo `json:"workers"`
}

// Encode implements the web.Encoder interface.
func (wr workersResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(wr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func toWorkersResponse(recs []dispatch.WorkerRecord) workersResponse {
	out := workersResponse{Workers: make([]workerInfo, 0, len(recs))}
	for _, r := range recs {
		out.Workers = append(out.Workers, workerInfo{
			ID:          r.ID.String(),
			Username:    r.Username,
			Profession:  r.Profession,
			Description: r.WorkerDescription,
			Location:    r.Location,
			Number:      r.Number,
			IsVerified:  r.IsVerified,
			Status:      r.Status,
		})
	}
	return out
}

// orderResponse is the customer's view of the tracked order.
type orderResponse struct {
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name"`
	State      string  `json:"state"`
	Scenario   string  `json:"scenario,omitempty"`
	Price      *string `json:"price,omitempty"`
	Version    int64   `json:"version"`

	status int
}

// Encode implements the web.Encoder interface.
func (o orderResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// HTTPStatus implements the httpStatus interface to set the response status code.
func (o orderResponse) HTTPStatus() int {
	if o.status == 0 {
		return http.StatusOK
	}
	return o.status
}

func toOrderResponse(v dispatch.OrderView, status int) orderResponse {
	resp := orderResponse{
		WorkerID:   v.WorkerID.String(),
		WorkerName: v.WorkerName,
		State:      string(v.State),
		Scenario:   v.Scenario,
		Version:    v.Version,
		status:     status,
	}
	if v.Price != nil {
		p := v.Price.String()
		resp.Price = &p
	}
	return resp
}

// historyEntry is one row of the order history.
type historyEntry struct {
	WorkerID   string `json:"worker_id"`
	WorkerName string `json:"worker_name"`
	Profession string `json:"profession"`
	Scenario   string `json:"scenario"`
	Price      string `json:"price"`
	Status     string `json:"status"`
}

type historyResponse struct {
	Orders []historyEntry `json:"orders"`
}

// Encode implements the web.Encoder interface.
func (hr historyResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(hr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func toHistoryResponse(orders []dispatch.OrderSummary) historyResponse {
	out := historyResponse{Orders: make([]historyEntry, 0, len(orders))}
	for _, o := range orders {
		out.Orders = append(out.Orders, historyEntry{
			WorkerID:   o.WorkerID.String(),
			WorkerName: o.WorkerName,
			Profession: o.Profession,
			Scenario:   o.Scenario,
			Price:      o.Price.String(),
			Status:     string(o.Status),
		})
	}
	return out
}
