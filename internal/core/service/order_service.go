package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/metrics"
)

// maxCancelAttempts bounds how often Cancel re-reads an order that changed
// between its read and its conditioned write.
const maxCancelAttempts = 3

// OrderService runs the order lifecycle: validate against the ledger, apply
// one conditioned write, and only then notify the affected party.
type OrderService struct {
	orders   ports.OrderRepository
	users    ports.UserRepository
	notifier ports.Notifier
	logger   zerolog.Logger

	// clientLocks serialises Create per client, runnerLocks serialises Accept
	// per runner, so the one-active-order checks cannot interleave.
	clientLocks keyedMutex
	runnerLocks keyedMutex

	now     func() time.Time
	newCode func() string
}

func NewOrderService(
	orders ports.OrderRepository,
	users ports.UserRepository,
	notifier ports.Notifier,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		users:    users,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  generateVerificationCode,
	}
}

// Create places a new pending order for a client without another active one
// and tells every connected runner about it.
func (s *OrderService) Create(ctx context.Context, clientID int64, details domain.OrderDetails) (*ports.CreateOrderResult, error) {
	client, err := s.users.FindByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if client.Role != domain.RoleClient {
		return nil, s.reject("create", fmt.Errorf("create order: role %s: %w", client.Role, domain.ErrNotAuthorized))
	}

	order, err := s.insertPending(ctx, clientID, details)
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(domain.StatusPending)).Inc()
	s.logger.Info().Int64("order_id", order.ID).Int64("client_id", clientID).Msg("order created")

	s.notifier.BroadcastRole(ctx, domain.RoleRunner, domain.EventNewOrder, domain.NewOrderPayload{
		ID:              order.ID,
		ClientID:        order.ClientID,
		CurrentBottle:   order.Details.CurrentBottle,
		NewBottle:       order.Details.NewBottle,
		DeliveryAddress: order.Details.DeliveryAddress,
		Location:        order.Details.Location,
		RunnerFee:       order.Details.RunnerFee.String(),
		Tip:             order.Details.Tip.String(),
		Status:          order.Status,
	})

	return &ports.CreateOrderResult{
		OrderID:          order.ID,
		VerificationCode: order.VerificationCode,
		Order:            order,
	}, nil
}

func (s *OrderService) insertPending(ctx context.Context, clientID int64, details domain.OrderDetails) (*domain.Order, error) {
	unlock := s.clientLocks.Lock(clientID)
	defer unlock()

	active, err := s.orders.CountByClient(ctx, clientID, domain.ActiveStatuses...)
	if err != nil {
		return nil, fmt.Errorf("create order: count active: %w", err)
	}
	if active > 0 {
		return nil, s.reject("create", fmt.Errorf("create order: %w", domain.ErrActiveOrderExists))
	}

	now := s.now()
	order := &domain.Order{
		ClientID:         clientID,
		Status:           domain.StatusPending,
		VerificationCode: s.newCode(),
		Details:          details,
		CreatedAt:        now,
		UpdatedAt:        now,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusPending, ActorID: clientID, Timestamp: now},
		},
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Int64("client_id", clientID).Msg("failed to create order")
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// Accept assigns a pending order to the calling runner. Of several runners
// racing for the same order exactly one wins; the others get
// ErrAlreadyAccepted.
func (s *OrderService) Accept(ctx context.Context, runnerID, orderID int64) (*domain.Order, error) {
	runner, err := s.users.FindByID(ctx, runnerID)
	if err != nil {
		return nil, fmt.Errorf("accept order: %w", err)
	}
	if runner.Role != domain.RoleRunner {
		return nil, s.reject("accept", fmt.Errorf("accept order: role %s: %w", runner.Role, domain.ErrNotAuthorized))
	}

	order, err := s.assignRunner(ctx, runnerID, orderID)
	if err != nil {
		return nil, s.reject("accept", err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(domain.StatusAccepted)).Inc()
	s.logger.Info().Int64("order_id", orderID).Int64("runner_id", runnerID).Msg("order accepted")

	s.notifier.NotifyUser(ctx, order.ClientID, domain.EventOrderAccepted, domain.OrderAcceptedPayload{
		OrderID:          order.ID,
		RunnerID:         runnerID,
		RunnerUsername:   runner.Username,
		RunnerName:       runner.DisplayName(),
		VerificationCode: order.VerificationCode,
	})
	return order, nil
}

func (s *OrderService) assignRunner(ctx context.Context, runnerID, orderID int64) (*domain.Order, error) {
	unlock := s.runnerLocks.Lock(runnerID)
	defer unlock()

	current, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("accept order: %w", err)
	}

	busy, err := s.orders.CountByRunner(ctx, runnerID, domain.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("accept order: count active: %w", err)
	}
	if busy > 0 {
		return nil, fmt.Errorf("accept order: %w", domain.ErrActiveOrderExists)
	}

	if current.Status != domain.StatusPending {
		return nil, fmt.Errorf("accept order %d: %w", orderID, acceptConflict(current))
	}

	updated, err := s.orders.Transition(ctx, ports.OrderTransition{
		OrderID:      orderID,
		From:         domain.StatusPending,
		To:           domain.StatusAccepted,
		ExpectRunner: nil,
		AssignRunner: &runnerID,
		ActorID:      runnerID,
		At:           s.now(),
	})
	if errors.Is(err, domain.ErrTransitionConflict) {
		latest, findErr := s.orders.FindByID(ctx, orderID)
		if findErr != nil {
			return nil, fmt.Errorf("accept order: %w", findErr)
		}
		return nil, fmt.Errorf("accept order %d: %w", orderID, acceptConflict(latest))
	}
	if err != nil {
		return nil, fmt.Errorf("accept order: %w", err)
	}
	return updated, nil
}

// acceptConflict explains why a non-pending order cannot be accepted.
func acceptConflict(o *domain.Order) error {
	if o.RunnerID != nil {
		return domain.ErrAlreadyAccepted
	}
	return domain.ErrInvalidState
}

// RequestVerification re-sends the order's code to the client's screen.
func (s *OrderService) RequestVerification(ctx context.Context, runnerID, orderID int64) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("request verification: %w", err)
	}
	if !order.IsAssignedTo(runnerID) {
		return s.reject("request_verification", fmt.Errorf("request verification: %w", domain.ErrNotAuthorized))
	}
	if order.Status != domain.StatusAccepted {
		return s.reject("request_verification", fmt.Errorf("request verification: status %s: %w", order.Status, domain.ErrInvalidState))
	}

	s.notifier.NotifyUser(ctx, order.ClientID, domain.EventShowVerificationCode, domain.VerificationCodePayload{
		OrderID:          order.ID,
		VerificationCode: order.VerificationCode,
	})
	return nil
}

// Complete closes an accepted order once the assigned runner proves the
// hand-off with the client's code.
func (s *OrderService) Complete(ctx context.Context, runnerID, orderID int64, code string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	if order.Status != domain.StatusAccepted {
		return nil, s.reject("complete", fmt.Errorf("complete order: status %s: %w", order.Status, domain.ErrInvalidState))
	}
	if !order.IsAssignedTo(runnerID) {
		return nil, s.reject("complete", fmt.Errorf("complete order: %w", domain.ErrNotAuthorized))
	}
	if !codeMatches(order.VerificationCode, code) {
		return nil, s.reject("complete", fmt.Errorf("complete order: %w", domain.ErrInvalidCode))
	}

	updated, err := s.orders.Transition(ctx, ports.OrderTransition{
		OrderID:      orderID,
		From:         domain.StatusAccepted,
		To:           domain.StatusCompleted,
		ExpectRunner: &runnerID,
		ActorID:      runnerID,
		At:           s.now(),
	})
	if errors.Is(err, domain.ErrTransitionConflict) {
		return nil, s.reject("complete", fmt.Errorf("complete order: %w", domain.ErrInvalidState))
	}
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(domain.StatusCompleted)).Inc()
	s.logger.Info().Int64("order_id", orderID).Int64("runner_id", runnerID).Msg("order completed")

	s.notifier.NotifyUser(ctx, updated.ClientID, domain.EventOrderCompleted, domain.OrderCompletedPayload{OrderID: updated.ID})
	return updated, nil
}

// Cancel stops a non-terminal order on behalf of one of its participants and
// tells the other one.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error) {
	canceller, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	for attempt := 0; attempt < maxCancelAttempts; attempt++ {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("cancel order: %w", err)
		}
		if !order.IsParticipant(userID) {
			return nil, s.reject("cancel", fmt.Errorf("cancel order: %w", domain.ErrNotAuthorized))
		}
		if order.Status.IsTerminal() {
			return nil, s.reject("cancel", fmt.Errorf("cancel order: status %s: %w", order.Status, domain.ErrInvalidState))
		}

		updated, err := s.orders.Transition(ctx, ports.OrderTransition{
			OrderID:      orderID,
			From:         order.Status,
			To:           domain.StatusCancelled,
			ExpectRunner: order.RunnerID,
			ActorID:      userID,
			Reason:       reason,
			At:           s.now(),
		})
		if errors.Is(err, domain.ErrTransitionConflict) {
			s.logger.Debug().Int64("order_id", orderID).Int("attempt", attempt).Msg("cancel raced another transition, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cancel order: %w", err)
		}

		metrics.OrderTransitionsTotal.WithLabelValues(string(domain.StatusCancelled)).Inc()
		s.logger.Info().Int64("order_id", orderID).Int64("cancelled_by", userID).Str("reason", reason).Msg("order cancelled")

		if target, ok := updated.Counterpart(userID); ok {
			s.notifier.NotifyUser(ctx, target, domain.EventOrderCancelled, domain.OrderCancelledPayload{
				OrderID:       updated.ID,
				Reason:        reason,
				CancelledBy:   canceller.Username,
				CancellerName: canceller.DisplayName(),
				CancellerRole: canceller.Role,
			})
		}
		return updated, nil
	}

	return nil, s.reject("cancel", fmt.Errorf("cancel order: %w", domain.ErrTransitionConflict))
}

// ListPending returns open orders for runners to pick from.
func (s *OrderService) ListPending(ctx context.Context, _ int64) ([]*domain.Order, error) {
	orders, err := s.orders.List(ctx, ports.OrderFilter{Statuses: []domain.OrderStatus{domain.StatusPending}})
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	return orders, nil
}

// ListMine returns the caller's orders: all of a client's, the ones a runner
// took, and every order for an admin.
func (s *OrderService) ListMine(ctx context.Context, userID int64) ([]*domain.Order, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list my orders: %w", err)
	}

	var filter ports.OrderFilter
	switch user.Role {
	case domain.RoleClient:
		filter.ClientID = &userID
	case domain.RoleRunner:
		filter.RunnerID = &userID
		filter.Statuses = []domain.OrderStatus{domain.StatusAccepted, domain.StatusCompleted, domain.StatusCancelled}
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list my orders: %w", err)
	}
	return orders, nil
}

// codeMatches compares codes ignoring surrounding blanks. Orders stored
// without a code accept any input.
func codeMatches(stored, given string) bool {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return true
	}
	return stored == strings.TrimSpace(given)
}

// reject counts a refused command by its wire code and passes err through.
func (s *OrderService) reject(operation string, err error) error {
	metrics.OrderRejectionsTotal.WithLabelValues(operation, domain.ErrorCode(err)).Inc()
	return err
}

// generateVerificationCode returns a 4-digit code read aloud at hand-off.
func generateVerificationCode() string {
	return fmt.Sprintf("%04d", 1000+rand.IntN(9000))
}
