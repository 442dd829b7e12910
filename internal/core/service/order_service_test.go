package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/infrastructure/db/memory"
)

type notification struct {
	userID  int64
	role    domain.Role
	event   domain.EventType
	payload any
}

// recordingNotifier remembers every push instead of delivering it.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID int64, event domain.EventType, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID: userID, event: event, payload: payload})
}

func (n *recordingNotifier) BroadcastRole(_ context.Context, role domain.Role, event domain.EventType, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{role: role, event: event, payload: payload})
}

func (n *recordingNotifier) events(event domain.EventType) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, s := range n.sent {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

type orderFixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	svc      *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := memory.NewStore()
	n := &recordingNotifier{}
	svc := NewOrderService(store.Orders(), store.Users(), n, zerolog.Nop())
	svc.newCode = func() string { return "4321" }
	return &orderFixture{store: store, notifier: n, svc: svc}
}

func (f *orderFixture) user(t *testing.T, username string, role domain.Role) int64 {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), &domain.User{
		Username: username,
		FullName: username + " full",
		Email:    username + "@example.com",
		Role:     role,
		Verified: true,
	})
	require.NoError(t, err)
	return u.ID
}

func sampleDetails() domain.OrderDetails {
	return domain.OrderDetails{
		CurrentBottle:   "20L empty",
		NewBottle:       "20L full",
		DeliveryAddress: "Av. Reforma 222",
		Location:        &domain.Coordinates{Lat: 19.43, Lng: -99.13},
		PriceDiff:       decimal.RequireFromString("35.50"),
		ServiceFee:      decimal.RequireFromString("5"),
		RunnerFee:       decimal.RequireFromString("15"),
		Tip:             decimal.RequireFromString("10"),
		TotalPrice:      decimal.RequireFromString("65.50"),
	}
}

func (f *orderFixture) create(t *testing.T, clientID int64) int64 {
	t.Helper()
	res, err := f.svc.Create(context.Background(), clientID, sampleDetails())
	require.NoError(t, err)
	return res.OrderID
}

func (f *orderFixture) status(t *testing.T, orderID int64) domain.OrderStatus {
	t.Helper()
	o, err := f.store.Orders().FindByID(context.Background(), orderID)
	require.NoError(t, err)
	return o.Status
}

func TestOrderService_Create(t *testing.T) {
	f := newOrderFixture(t)
	client := f.user(t, "client", domain.RoleClient)

	res, err := f.svc.Create(context.Background(), client, sampleDetails())
	require.NoError(t, err)
	assert.Equal(t, "4321", res.VerificationCode)
	assert.Equal(t, domain.StatusPending, res.Order.Status)
	assert.Nil(t, res.Order.RunnerID)
	require.Len(t, res.Order.StatusHistory, 1)
	assert.Equal(t, client, res.Order.StatusHistory[0].ActorID)

	broadcasts := f.notifier.events(domain.EventNewOrder)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, domain.RoleRunner, broadcasts[0].role)
	payload := broadcasts[0].payload.(domain.NewOrderPayload)
	assert.Equal(t, res.OrderID, payload.ID)
	assert.Equal(t, "15", payload.RunnerFee)
}

func TestOrderService_Create_RequiresClient(t *testing.T) {
	f := newOrderFixture(t)
	runner := f.user(t, "runner", domain.RoleRunner)

	_, err := f.svc.Create(context.Background(), runner, sampleDetails())
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Empty(t, f.notifier.events(domain.EventNewOrder))
}

func TestOrderService_Create_SingleActiveOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", domain.RoleClient)

	first := f.create(t, client)
	_, err := f.svc.Create(ctx, client, sampleDetails())
	assert.ErrorIs(t, err, domain.ErrActiveOrderExists)

	_, err = f.svc.Cancel(ctx, client, first, "changed my mind")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, client, sampleDetails())
	assert.NoError(t, err, "a cancelled order no longer blocks the client")
}

func TestOrderService_Create_ConcurrentSingleWinner(t *testing.T) {
	f := newOrderFixture(t)
	client := f.user(t, "client", domain.RoleClient)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), client, sampleDetails())
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrActiveOrderExists)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	n, err := f.store.Orders().CountByClient(context.Background(), client, domain.ActiveStatuses...)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOrderService_Accept_ConcurrentSingleWinner(t *testing.T) {
	f := newOrderFixture(t)
	client := f.user(t, "client", domain.RoleClient)
	orderID := f.create(t, client)

	const runners = 10
	ids := make([]int64, runners)
	for i := range ids {
		ids[i] = f.user(t, "runner"+string(rune('a'+i)), domain.RoleRunner)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []int64
	)
	for _, id := range ids {
		wg.Add(1)
		go func(runnerID int64) {
			defer wg.Done()
			o, err := f.svc.Accept(context.Background(), runnerID, orderID)
			if err == nil {
				mu.Lock()
				winners = append(winners, *o.RunnerID)
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyAccepted)
		}(id)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	stored, err := f.store.Orders().FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, stored.Status)
	assert.Equal(t, winners[0], *stored.RunnerID)

	accepted := f.notifier.events(domain.EventOrderAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, client, accepted[0].userID)
	payload := accepted[0].payload.(domain.OrderAcceptedPayload)
	assert.Equal(t, winners[0], payload.RunnerID)
	assert.Equal(t, "4321", payload.VerificationCode)
}

func TestOrderService_Accept_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	clientA := f.user(t, "client_a", domain.RoleClient)
	clientB := f.user(t, "client_b", domain.RoleClient)
	runner := f.user(t, "runner", domain.RoleRunner)

	orderA := f.create(t, clientA)
	orderB := f.create(t, clientB)

	_, err := f.svc.Accept(ctx, clientB, orderA)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized, "clients cannot accept")

	_, err = f.svc.Accept(ctx, runner, 999)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.svc.Accept(ctx, runner, orderA)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, runner, orderB)
	assert.ErrorIs(t, err, domain.ErrActiveOrderExists, "a runner carries one order at a time")

	_, err = f.svc.Cancel(ctx, clientB, orderB, "")
	require.NoError(t, err)
	other := f.user(t, "runner2", domain.RoleRunner)
	_, err = f.svc.Accept(ctx, other, orderB)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "cancelled orders cannot be accepted")
}

func TestOrderService_RequestVerification(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", domain.RoleClient)
	runner := f.user(t, "runner", domain.RoleRunner)
	stranger := f.user(t, "stranger", domain.RoleRunner)
	orderID := f.create(t, client)

	assert.ErrorIs(t, f.svc.RequestVerification(ctx, runner, orderID), domain.ErrNotAuthorized, "not assigned yet")

	_, err := f.svc.Accept(ctx, runner, orderID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RequestVerification(ctx, stranger, orderID), domain.ErrNotAuthorized)
	require.NoError(t, f.svc.RequestVerification(ctx, runner, orderID))

	shown := f.notifier.events(domain.EventShowVerificationCode)
	require.Len(t, shown, 1)
	assert.Equal(t, client, shown[0].userID)
	assert.Equal(t, domain.StatusAccepted, f.status(t, orderID), "no state change")
}

func TestOrderService_AcceptCompleteScenario(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", domain.RoleClient)
	r1 := f.user(t, "r1", domain.RoleRunner)
	r2 := f.user(t, "r2", domain.RoleRunner)

	orderID := f.create(t, client)
	assert.Equal(t, domain.StatusPending, f.status(t, orderID))

	o, err := f.svc.Accept(ctx, r1, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, o.Status)
	assert.Equal(t, r1, *o.RunnerID)

	_, err = f.svc.Accept(ctx, r2, orderID)
	assert.ErrorIs(t, err, domain.ErrAlreadyAccepted)

	_, err = f.svc.Complete(ctx, r2, orderID, "4321")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized, "only the assigned runner completes")

	_, err = f.svc.Complete(ctx, r1, orderID, "0000")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	assert.Equal(t, domain.StatusAccepted, f.status(t, orderID))

	o, err = f.svc.Complete(ctx, r1, orderID, " 4321 ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, o.Status)

	_, err = f.svc.Complete(ctx, r1, orderID, "4321")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	completed := f.notifier.events(domain.EventOrderCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, client, completed[0].userID)

	stored, err := f.store.Orders().FindByID(ctx, orderID)
	require.NoError(t, err)
	var history []domain.OrderStatus
	for _, h := range stored.StatusHistory {
		history = append(history, h.Status)
	}
	assert.Equal(t, []domain.OrderStatus{domain.StatusPending, domain.StatusAccepted, domain.StatusCompleted}, history)
}

func TestOrderService_Complete_EmptyStoredCodeSkipsCheck(t *testing.T) {
	f := newOrderFixture(t)
	f.svc.newCode = func() string { return "" }
	ctx := context.Background()
	client := f.user(t, "client", domain.RoleClient)
	runner := f.user(t, "runner", domain.RoleRunner)

	orderID := f.create(t, client)
	_, err := f.svc.Accept(ctx, runner, orderID)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, runner, orderID, "anything")
	assert.NoError(t, err)
}

func TestOrderService_Cancel(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", domain.RoleClient)
	runner := f.user(t, "runner", domain.RoleRunner)
	stranger := f.user(t, "stranger", domain.RoleClient)

	t.Run("pending by client notifies nobody", func(t *testing.T) {
		orderID := f.create(t, client)
		o, err := f.svc.Cancel(ctx, client, orderID, "no longer needed")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, o.Status)
		assert.Equal(t, "no longer needed", o.CancellationReason)
		require.NotNil(t, o.CancelledBy)
		assert.Equal(t, client, *o.CancelledBy)
		assert.Empty(t, f.notifier.events(domain.EventOrderCancelled))
	})

	t.Run("accepted by runner notifies the client", func(t *testing.T) {
		orderID := f.create(t, client)
		_, err := f.svc.Accept(ctx, runner, orderID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, stranger, orderID, "")
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)

		_, err = f.svc.Cancel(ctx, runner, orderID, "flat tyre")
		require.NoError(t, err)

		cancelled := f.notifier.events(domain.EventOrderCancelled)
		require.Len(t, cancelled, 1)
		assert.Equal(t, client, cancelled[0].userID)
		payload := cancelled[0].payload.(domain.OrderCancelledPayload)
		assert.Equal(t, "flat tyre", payload.Reason)
		assert.Equal(t, "runner", payload.CancelledBy)
		assert.Equal(t, domain.RoleRunner, payload.CancellerRole)

		_, err = f.svc.Cancel(ctx, client, orderID, "")
		assert.ErrorIs(t, err, domain.ErrInvalidState, "terminal orders stay terminal")
	})
}

func TestOrderService_ListMine(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	clientA := f.user(t, "client_a", domain.RoleClient)
	clientB := f.user(t, "client_b", domain.RoleClient)
	runner := f.user(t, "runner", domain.RoleRunner)
	admin := f.user(t, "admin", domain.RoleAdmin)

	orderA := f.create(t, clientA)
	f.create(t, clientB)
	_, err := f.svc.Accept(ctx, runner, orderA)
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, clientB)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, clientB, mine[0].ClientID)

	mine, err = f.svc.ListMine(ctx, runner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, orderA, mine[0].ID)

	all, err := f.svc.ListMine(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.ListPending(ctx, runner)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, clientB, pending[0].ClientID)
}

var _ ports.OrderService = (*OrderService)(nil)
