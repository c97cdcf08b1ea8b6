package dispatch

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryStatus is the derived status shown in a customer's order history.
type HistoryStatus string

const (
	HistoryDone       HistoryStatus = "Done"
	HistoryInProgress HistoryStatus = "In Progress"
)

// OrderSummary is one row of a customer's order history.
type OrderSummary struct {
	WorkerID   uuid.UUID
	WorkerName string
	Profession string
	Scenario   string
	Price      decimal.Decimal
	Status     HistoryStatus
}

// SummarizeOrder projects a history row from a worker record matched by
// CustomerOrdersFilter.
func SummarizeOrder(r WorkerRecord) OrderSummary {
	s := OrderSummary{
		WorkerID:   r.ID,
		WorkerName: r.Username,
		Profession: r.Profession,
		Status:     HistoryInProgress,
	}
	if r.Scenario != nil {
		s.Scenario = *r.Scenario
	}
	if r.Price != nil {
		s.Price = *r.Price
	}
	if r.IsDone {
		s.Status = HistoryDone
	}
	return s
}

// OrderState is the customer-side view of an order it submitted.
type OrderState string

const (
	OrderPending   OrderState = "PENDING"
	OrderAccepted  OrderState = "ACCEPTED"
	OrderDone      OrderState = "DONE"
	OrderRejected  OrderState = "REJECTED"
	OrderCancelled OrderState = "CANCELLED"
	OrderExpired   OrderState = "EXPIRED"
	// OrderLost means the worker row no longer references the customer and
	// carries no outcome for them: another customer overwrote the request.
	OrderLost OrderState = "LOST"
)

// IsTerminal reports whether no further change is expected for the order.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderPending, OrderAccepted:
		return false
	default:
		return true
	}
}

// OrderView is what a customer's poll derives from the worker row.
type OrderView struct {
	WorkerID   uuid.UUID
	WorkerName string
	State      OrderState
	Scenario   string
	Price      *decimal.Decimal
	Version    int64
}

// ObserveOrder derives customerID's view of its order on worker row r.
func ObserveOrder(r WorkerRecord, customerID uuid.UUID) OrderView {
	v := OrderView{WorkerID: r.ID, WorkerName: r.Username, Version: r.Version}

	if r.AssignedTo(customerID) {
		if r.Scenario != nil {
			v.Scenario = *r.Scenario
		}
		v.Price = clonePtr(r.Price)
		switch {
		case r.IsDone:
			v.State = OrderDone
		case r.IsWorking:
			v.State = OrderAccepted
		case r.IsOrdered:
			v.State = OrderPending
		default:
			v.State = OrderLost
		}
		return v
	}

	if r.LastCustomerID != nil && *r.LastCustomerID == customerID {
		switch r.LastOutcome {
		case OutcomeRejected:
			v.State = OrderRejected
			return v
		case OutcomeCancelled:
			v.State = OrderCancelled
			return v
		case OutcomeExpired:
			v.State = OrderExpired
			return v
		case OutcomeCompleted:
			v.State = OrderDone
			return v
		}
	}

	v.State = OrderLost
	return v
}
