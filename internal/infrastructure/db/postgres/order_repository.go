package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order together with its initial history rows.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	dto := orderFromDomain(order)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.ID = dto.ID
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *OrderRepository) find(tx *gorm.DB, id int64) (*domain.Order, error) {
	var dto OrderDTO
	err := tx.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp ASC, id ASC")
	}).First(&dto, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return dto.toDomain(), nil
}

// Transition runs a conditioned UPDATE and the history insert in one
// transaction. Zero affected rows means another writer got there first.
func (r *OrderRepository) Transition(ctx context.Context, t ports.OrderTransition) (*domain.Order, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, domain.ErrTransitionConflict
	}

	var updated *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&OrderDTO{}).Where("id = ? AND status = ?", t.OrderID, string(t.From))
		if t.ExpectRunner == nil {
			q = q.Where("runner_id IS NULL")
		} else {
			q = q.Where("runner_id = ?", *t.ExpectRunner)
		}

		fields := map[string]any{"status": string(t.To), "updated_at": t.At}
		if t.AssignRunner != nil {
			fields["runner_id"] = *t.AssignRunner
		}
		if t.To == domain.StatusCancelled {
			fields["cancelled_by"] = t.ActorID
			fields["cancellation_reason"] = t.Reason
		}

		res := q.Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("transition order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&OrderDTO{}).Where("id = ?", t.OrderID).Count(&n).Error; err != nil {
				return fmt.Errorf("transition order: %w", err)
			}
			if n == 0 {
				return domain.ErrOrderNotFound
			}
			return domain.ErrTransitionConflict
		}

		if err := tx.Create(&StatusHistoryDTO{
			OrderID:   t.OrderID,
			Status:    string(t.To),
			ActorID:   t.ActorID,
			Timestamp: t.At,
		}).Error; err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		o, err := r.find(tx, t.OrderID)
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) CountByClient(ctx context.Context, clientID int64, statuses ...domain.OrderStatus) (int64, error) {
	return r.count(ctx, "client_id = ?", clientID, statuses)
}

func (r *OrderRepository) CountByRunner(ctx context.Context, runnerID int64, statuses ...domain.OrderStatus) (int64, error) {
	return r.count(ctx, "runner_id = ?", runnerID, statuses)
}

func (r *OrderRepository) count(ctx context.Context, query string, id int64, statuses []domain.OrderStatus) (int64, error) {
	q := withStatuses(r.db.WithContext(ctx).Model(&OrderDTO{}).Where(query, id), statuses)
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *OrderRepository) List(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	q := r.db.WithContext(ctx).Model(&OrderDTO{})
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.RunnerID != nil {
		q = q.Where("runner_id = ?", *f.RunnerID)
	}
	q = withStatuses(q, f.Statuses)

	var dtos []OrderDTO
	err := q.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp ASC, id ASC")
	}).Order("created_at DESC, id DESC").Find(&dtos).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	counts := make(map[domain.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.OrderStatus(row.Status)] = row.N
	}
	return counts, nil
}

func withStatuses(q *gorm.DB, statuses []domain.OrderStatus) *gorm.DB {
	if len(statuses) == 0 {
		return q
	}
	in := make([]string, 0, len(statuses))
	for _, s := range statuses {
		in = append(in, string(s))
	}
	return q.Where("status IN ?", in)
}
