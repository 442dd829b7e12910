package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

type MessageRepository struct {
	col *mongo.Collection
	seq sequence
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection(collectionMessages), seq: newSequence(db, collectionMessages)}
}

type messageDoc struct {
	ID         int64     `bson:"_id"`
	OrderID    int64     `bson:"order_id"`
	SenderID   int64     `bson:"sender_id"`
	ReceiverID int64     `bson:"receiver_id"`
	Content    string    `bson:"content"`
	Read       bool      `bson:"is_read"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx)
	if err != nil {
		return err
	}
	doc := messageDoc{
		ID:         id,
		OrderID:    msg.OrderID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID = id
	return nil
}

func (r *MessageRepository) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"order_id": orderID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]*domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Message{
			ID:         d.ID,
			OrderID:    d.OrderID,
			SenderID:   d.SenderID,
			ReceiverID: d.ReceiverID,
			Content:    d.Content,
			Read:       d.Read,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out, nil
}
