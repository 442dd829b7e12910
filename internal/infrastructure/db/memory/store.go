// Package memory is a process-local storage backend. It is used by tests and
// by STORAGE_DRIVER=memory for local runs; nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
)

// Store holds users, orders and messages behind a single lock.
type Store struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	orders   map[int64]*domain.Order
	messages []*domain.Message

	nextUser    int64
	nextOrder   int64
	nextMessage int64
}

func NewStore() *Store {
	return &Store{
		users:  make(map[int64]*domain.User),
		orders: make(map[int64]*domain.Order),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Users returns the store's user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Orders returns the store's order ledger view.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Messages returns the store's message repository view.
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	if o.RunnerID != nil {
		id := *o.RunnerID
		c.RunnerID = &id
	}
	if o.CancelledBy != nil {
		id := *o.CancelledBy
		c.CancelledBy = &id
	}
	if o.Details.Location != nil {
		loc := *o.Details.Location
		c.Details.Location = &loc
	}
	c.StatusHistory = slices.Clone(o.StatusHistory)
	return &c
}

// ── Users ─────────────────────────────────────────────────────────────────────

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return nil, domain.ErrUserExists
		}
	}
	r.s.nextUser++
	stored := cloneUser(user)
	stored.ID = r.s.nextUser
	r.s.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByLogin(_ context.Context, login string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) MarkVerified(_ context.Context, id int64) error {
	return r.update(id, func(u *domain.User) { u.Verified = true })
}

func (r *UserRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *UserRepository) UpdateProfile(_ context.Context, id int64, p domain.ProfileUpdate) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if p.Username != nil {
		for _, other := range r.s.users {
			if other.ID != id && strings.EqualFold(other.Username, *p.Username) {
				return nil, domain.ErrUserExists
			}
		}
		u.Username = *p.Username
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.DOB != nil {
		u.DOB = *p.DOB
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *UserRepository) update(id int64, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

type OrderRepository struct{ s *Store }

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextOrder++
	order.ID = r.s.nextOrder
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) Transition(_ context.Context, t ports.OrderTransition) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[t.OrderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != t.From || !sameRunner(o.RunnerID, t.ExpectRunner) || !t.From.CanTransitionTo(t.To) {
		return nil, domain.ErrTransitionConflict
	}

	o.Status = t.To
	if t.AssignRunner != nil {
		id := *t.AssignRunner
		o.RunnerID = &id
	}
	if t.To == domain.StatusCancelled {
		actor := t.ActorID
		o.CancelledBy = &actor
		o.CancellationReason = t.Reason
	}
	o.UpdatedAt = t.At
	o.StatusHistory = append(o.StatusHistory, domain.StatusHistoryEntry{
		Status:    t.To,
		ActorID:   t.ActorID,
		Timestamp: t.At,
	})
	return cloneOrder(o), nil
}

func sameRunner(stored, expected *int64) bool {
	if stored == nil || expected == nil {
		return stored == nil && expected == nil
	}
	return *stored == *expected
}

func (r *OrderRepository) CountByClient(_ context.Context, clientID int64, statuses ...domain.OrderStatus) (int64, error) {
	return r.count(func(o *domain.Order) bool {
		return o.ClientID == clientID && matchStatus(o.Status, statuses)
	}), nil
}

func (r *OrderRepository) CountByRunner(_ context.Context, runnerID int64, statuses ...domain.OrderStatus) (int64, error) {
	return r.count(func(o *domain.Order) bool {
		return o.IsAssignedTo(runnerID) && matchStatus(o.Status, statuses)
	}), nil
}

func (r *OrderRepository) count(match func(*domain.Order) bool) int64 {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, o := range r.s.orders {
		if match(o) {
			n++
		}
	}
	return n
}

func matchStatus(s domain.OrderStatus, statuses []domain.OrderStatus) bool {
	return len(statuses) == 0 || slices.Contains(statuses, s)
}

func (r *OrderRepository) List(_ context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.s.orders {
		if f.ClientID != nil && o.ClientID != *f.ClientID {
			continue
		}
		if f.RunnerID != nil && !o.IsAssignedTo(*f.RunnerID) {
			continue
		}
		if !matchStatus(o.Status, f.Statuses) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) CountByStatus(context.Context) (map[domain.OrderStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.OrderStatus]int64, 4)
	for _, o := range r.s.orders {
		counts[o.Status]++
	}
	return counts, nil
}

// ── Messages ──────────────────────────────────────────────────────────────────

type MessageRepository struct{ s *Store }

func (r *MessageRepository) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextMessage++
	msg.ID = r.s.nextMessage
	c := *msg
	r.s.messages = append(r.s.messages, &c)
	return nil
}

func (r *MessageRepository) ListByOrder(_ context.Context, orderID int64) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Message, 0)
	for _, m := range r.s.messages {
		if m.OrderID == orderID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}
