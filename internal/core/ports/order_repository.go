package ports

import (
	"context"
	"time"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// OrderTransition describes one conditioned write against the ledger.
//
// The write applies only if the stored order still has status From and a
// runner_id equal to ExpectRunner (nil means the slot must be empty). It is
// the ledger's compare-and-swap.
type OrderTransition struct {
	OrderID      int64
	From         domain.OrderStatus
	To           domain.OrderStatus
	ExpectRunner *int64
	AssignRunner *int64 // set runner_id; only for pending → accepted
	ActorID      int64
	Reason       string // cancellation only
	At           time.Time
}

// OrderFilter narrows List. Zero values mean "no filter".
type OrderFilter struct {
	ClientID *int64
	RunnerID *int64
	Statuses []domain.OrderStatus
}

// OrderRepository is the order ledger.
type OrderRepository interface {
	// Create assigns the order a new numeric ID and stores it.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	// Transition atomically applies t and appends a history entry. It returns
	// the updated order, or domain.ErrTransitionConflict when the condition
	// no longer holds (domain.ErrOrderNotFound when the order does not exist).
	Transition(ctx context.Context, t OrderTransition) (*domain.Order, error)
	// CountByClient counts the client's orders in any of statuses.
	CountByClient(ctx context.Context, clientID int64, statuses ...domain.OrderStatus) (int64, error)
	// CountByRunner counts the runner's orders in any of statuses.
	CountByRunner(ctx context.Context, runnerID int64, statuses ...domain.OrderStatus) (int64, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	// CountByStatus returns the number of orders per status.
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByOrder returns the order's messages, oldest first.
	ListByOrder(ctx context.Context, orderID int64) ([]*domain.Message, error)
}

// Pinger is implemented by every storage backend for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
