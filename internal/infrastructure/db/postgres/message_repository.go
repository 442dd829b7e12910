package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	dto := MessageDTO{
		OrderID:    msg.OrderID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		IsRead:     msg.Read,
		CreatedAt:  msg.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID = dto.ID
	return nil
}

func (r *MessageRepository) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Message, error) {
	var dtos []MessageDTO
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&dtos).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]*domain.Message, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}
