package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
)

type OrderRepository struct {
	col *mongo.Collection
	seq sequence
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders), seq: newSequence(db, collectionOrders)}
}

// Money is stored as decimal strings so no precision is lost in BSON doubles.
type orderDoc struct {
	ID                 int64                `bson:"_id"`
	ClientID           int64                `bson:"client_id"`
	RunnerID           *int64               `bson:"runner_id"`
	Status             string               `bson:"status"`
	VerificationCode   string               `bson:"verification_code"`
	CurrentBottle      string               `bson:"current_bottle"`
	NewBottle          string               `bson:"new_bottle"`
	DeliveryAddress    string               `bson:"delivery_address"`
	Location           *domain.Coordinates  `bson:"location,omitempty"`
	PriceDiff          string               `bson:"price_diff"`
	ServiceFee         string               `bson:"service_fee"`
	RunnerFee          string               `bson:"runner_fee"`
	Tip                string               `bson:"tip"`
	TotalPrice         string               `bson:"total_price"`
	CancellationReason string               `bson:"cancellation_reason,omitempty"`
	CancelledBy        *int64               `bson:"cancelled_by,omitempty"`
	CreatedAt          time.Time            `bson:"created_at"`
	UpdatedAt          time.Time            `bson:"updated_at"`
	StatusHistory      []statusHistoryEntry `bson:"status_history"`
}

type statusHistoryEntry struct {
	Status    string    `bson:"status"`
	ActorID   int64     `bson:"actor_id"`
	Timestamp time.Time `bson:"timestamp"`
}

func toOrderDoc(o *domain.Order) orderDoc {
	d := orderDoc{
		ID:                 o.ID,
		ClientID:           o.ClientID,
		RunnerID:           o.RunnerID,
		Status:             string(o.Status),
		VerificationCode:   o.VerificationCode,
		CurrentBottle:      o.Details.CurrentBottle,
		NewBottle:          o.Details.NewBottle,
		DeliveryAddress:    o.Details.DeliveryAddress,
		Location:           o.Details.Location,
		PriceDiff:          o.Details.PriceDiff.String(),
		ServiceFee:         o.Details.ServiceFee.String(),
		RunnerFee:          o.Details.RunnerFee.String(),
		Tip:                o.Details.Tip.String(),
		TotalPrice:         o.Details.TotalPrice.String(),
		CancellationReason: o.CancellationReason,
		CancelledBy:        o.CancelledBy,
		CreatedAt:          o.CreatedAt.UTC(),
		UpdatedAt:          o.UpdatedAt.UTC(),
	}
	for _, h := range o.StatusHistory {
		d.StatusHistory = append(d.StatusHistory, statusHistoryEntry{
			Status:    string(h.Status),
			ActorID:   h.ActorID,
			Timestamp: h.Timestamp.UTC(),
		})
	}
	return d
}

func (d orderDoc) toDomain() *domain.Order {
	o := &domain.Order{
		ID:               d.ID,
		ClientID:         d.ClientID,
		RunnerID:         d.RunnerID,
		Status:           domain.OrderStatus(d.Status),
		VerificationCode: d.VerificationCode,
		Details: domain.OrderDetails{
			CurrentBottle:   d.CurrentBottle,
			NewBottle:       d.NewBottle,
			DeliveryAddress: d.DeliveryAddress,
			Location:        d.Location,
			PriceDiff:       parseDecimal(d.PriceDiff),
			ServiceFee:      parseDecimal(d.ServiceFee),
			RunnerFee:       parseDecimal(d.RunnerFee),
			Tip:             parseDecimal(d.Tip),
			TotalPrice:      parseDecimal(d.TotalPrice),
		},
		CancellationReason: d.CancellationReason,
		CancelledBy:        d.CancelledBy,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	for _, h := range d.StatusHistory {
		o.StatusHistory = append(o.StatusHistory, domain.StatusHistoryEntry{
			Status:    domain.OrderStatus(h.Status),
			ActorID:   h.ActorID,
			Timestamp: h.Timestamp,
		})
	}
	return o
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Create assigns the next order ID and inserts the document.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx)
	if err != nil {
		return err
	}
	order.ID = id
	if _, err := r.col.InsertOne(ctx, toOrderDoc(order)); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d orderDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return d.toDomain(), nil
}

// Transition sets the new status and appends a history entry in one
// conditioned update. The filter carries the expected status and runner, so
// of two racing writers only one matches.
func (r *OrderRepository) Transition(ctx context.Context, t ports.OrderTransition) (*domain.Order, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, domain.ErrTransitionConflict
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": t.OrderID, "status": string(t.From)}
	if t.ExpectRunner == nil {
		filter["runner_id"] = nil
	} else {
		filter["runner_id"] = *t.ExpectRunner
	}

	set := bson.M{"status": string(t.To), "updated_at": t.At.UTC()}
	if t.AssignRunner != nil {
		set["runner_id"] = *t.AssignRunner
	}
	if t.To == domain.StatusCancelled {
		set["cancelled_by"] = t.ActorID
		set["cancellation_reason"] = t.Reason
	}
	update := bson.M{
		"$set": set,
		"$push": bson.M{"status_history": statusHistoryEntry{
			Status:    string(t.To),
			ActorID:   t.ActorID,
			Timestamp: t.At.UTC(),
		}},
	}

	var d orderDoc
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, countErr := r.col.CountDocuments(ctx, bson.M{"_id": t.OrderID})
		if countErr != nil {
			return nil, fmt.Errorf("transition order: %w", countErr)
		}
		if n == 0 {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrTransitionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("transition order: %w", err)
	}
	return d.toDomain(), nil
}

func (r *OrderRepository) CountByClient(ctx context.Context, clientID int64, statuses ...domain.OrderStatus) (int64, error) {
	return r.count(ctx, withStatuses(bson.M{"client_id": clientID}, statuses))
}

func (r *OrderRepository) CountByRunner(ctx context.Context, runnerID int64, statuses ...domain.OrderStatus) (int64, error) {
	return r.count(ctx, withStatuses(bson.M{"runner_id": runnerID}, statuses))
}

func (r *OrderRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// List returns matching orders, newest first.
func (r *OrderRepository) List(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ClientID != nil {
		filter["client_id"] = *f.ClientID
	}
	if f.RunnerID != nil {
		filter["runner_id"] = *f.RunnerID
	}
	filter = withStatuses(filter, f.Statuses)

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// CountByStatus groups the collection by status.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "n", Value: bson.M{"$sum": 1}}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	counts := make(map[domain.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.OrderStatus(row.Status)] = row.N
	}
	return counts, nil
}

func withStatuses(filter bson.M, statuses []domain.OrderStatus) bson.M {
	if len(statuses) == 0 {
		return filter
	}
	in := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		in = append(in, string(s))
	}
	filter["status"] = bson.M{"$in": in}
	return filter
}
