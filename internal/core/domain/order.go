package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions.
// Completed and cancelled are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsActive reports whether the order still blocks its client from placing another.
func (s OrderStatus) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

// ActiveStatuses are the statuses counted by the single-active-order rule.
var ActiveStatuses = []OrderStatus{StatusPending, StatusAccepted}

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// OrderDetails is what the client asks for: which bottle goes out, which comes
// back, where, and at what price.
type OrderDetails struct {
	CurrentBottle   string          `json:"current_bottle"`
	NewBottle       string          `json:"new_bottle"`
	DeliveryAddress string          `json:"delivery_address"`
	Location        *Coordinates    `json:"location,omitempty"`
	PriceDiff       decimal.Decimal `json:"price_diff"`
	ServiceFee      decimal.Decimal `json:"service_fee"`
	RunnerFee       decimal.Decimal `json:"runner_fee"`
	Tip             decimal.Decimal `json:"tip"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// StatusHistoryEntry records a single status transition on an order.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order is the ledger's aggregate root.
type Order struct {
	ID                 int64                `json:"id"`
	ClientID           int64                `json:"client_id"`
	RunnerID           *int64               `json:"runner_id"`
	Status             OrderStatus          `json:"status"`
	VerificationCode   string               `json:"-"`
	Details            OrderDetails         `json:"details"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CancelledBy        *int64               `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	StatusHistory      []StatusHistoryEntry `json:"status_history"`
}

// IsParticipant reports whether userID is the order's client or assigned runner.
func (o *Order) IsParticipant(userID int64) bool {
	return o.ClientID == userID || o.IsAssignedTo(userID)
}

// IsAssignedTo reports whether userID is the order's runner.
func (o *Order) IsAssignedTo(userID int64) bool {
	return o.RunnerID != nil && *o.RunnerID == userID
}

// Counterpart returns the other participant of the order from userID's point
// of view. ok is false when that slot is still empty.
func (o *Order) Counterpart(userID int64) (id int64, ok bool) {
	if userID == o.ClientID {
		if o.RunnerID == nil {
			return 0, false
		}
		return *o.RunnerID, true
	}
	return o.ClientID, true
}
