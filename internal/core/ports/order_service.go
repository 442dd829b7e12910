package ports

import (
	"context"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// CreateOrderResult is returned to the client after placing an order.
type CreateOrderResult struct {
	OrderID          int64
	VerificationCode string
	Order            *domain.Order
}

// OrderService is the order lifecycle controller. Every method takes the
// authenticated caller's user ID.
type OrderService interface {
	Create(ctx context.Context, clientID int64, details domain.OrderDetails) (*CreateOrderResult, error)
	Accept(ctx context.Context, runnerID, orderID int64) (*domain.Order, error)
	RequestVerification(ctx context.Context, runnerID, orderID int64) error
	Complete(ctx context.Context, runnerID, orderID int64, code string) (*domain.Order, error)
	Cancel(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error)

	// ListPending returns open orders for runners to pick from.
	ListPending(ctx context.Context, userID int64) ([]*domain.Order, error)
	// ListMine returns the caller's own orders according to their role.
	ListMine(ctx context.Context, userID int64) ([]*domain.Order, error)
}

// MessageService is the chat relay between an order's participants.
type MessageService interface {
	Send(ctx context.Context, senderID, orderID int64, content string) (*domain.Message, error)
	List(ctx context.Context, userID, orderID int64) ([]*domain.Message, error)
}
