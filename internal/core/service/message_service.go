package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/metrics"
)

// MessageService relays chat lines between an order's client and runner.
type MessageService struct {
	orders   ports.OrderRepository
	messages ports.MessageRepository
	users    ports.UserRepository
	notifier ports.Notifier
	logger   zerolog.Logger
	policy   *bluemonday.Policy
	now      func() time.Time
}

func NewMessageService(
	orders ports.OrderRepository,
	messages ports.MessageRepository,
	users ports.UserRepository,
	notifier ports.Notifier,
	logger zerolog.Logger,
) *MessageService {
	return &MessageService{
		orders:   orders,
		messages: messages,
		users:    users,
		notifier: notifier,
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Send stores a message from one participant to the other and pushes it to
// the receiver if they are connected.
func (s *MessageService) Send(ctx context.Context, senderID, orderID int64, content string) (*domain.Message, error) {
	content = s.sanitize(content)
	if content == "" {
		return nil, s.reject(fmt.Errorf("send message: %w", domain.ErrEmptyMessage))
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	if !order.IsParticipant(senderID) {
		return nil, s.reject(fmt.Errorf("send message: %w", domain.ErrNotAuthorized))
	}
	receiverID, ok := order.Counterpart(senderID)
	if !ok {
		return nil, s.reject(fmt.Errorf("send message: %w", domain.ErrNoRecipient))
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	msg := &domain.Message{
		OrderID:    orderID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to store message")
		return nil, fmt.Errorf("send message: %w", err)
	}
	msg.SenderName = sender.DisplayName()

	metrics.MessagesSentTotal.Inc()
	s.notifier.NotifyUser(ctx, receiverID, domain.EventNewMessage, msg)
	return msg, nil
}

// List returns the order's conversation, oldest first.
func (s *MessageService) List(ctx context.Context, userID, orderID int64) ([]*domain.Message, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if !order.IsParticipant(userID) {
		return nil, fmt.Errorf("list messages: %w", domain.ErrNotAuthorized)
	}

	msgs, err := s.messages.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	names := make(map[int64]string, 2)
	for _, m := range msgs {
		name, ok := names[m.SenderID]
		if !ok {
			if u, err := s.users.FindByID(ctx, m.SenderID); err == nil {
				name = u.DisplayName()
			}
			names[m.SenderID] = name
		}
		m.SenderName = name
	}
	return msgs, nil
}

// sanitize strips markup and surrounding blanks. bluemonday escapes what it
// keeps, so entities are folded back to plain text for JSON clients.
func (s *MessageService) sanitize(content string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(content)))
}

func (s *MessageService) reject(err error) error {
	metrics.OrderRejectionsTotal.WithLabelValues("send_message", domain.ErrorCode(err)).Inc()
	return err
}
