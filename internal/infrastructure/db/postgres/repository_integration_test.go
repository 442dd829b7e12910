package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/infrastructure/db/postgres"
)

// RepositoryIntegrationTestSuite runs the gorm repositories against a real
// PostgreSQL container.
type RepositoryIntegrationTestSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *gorm.DB
	users     *postgres.UserRepository
	orders    *postgres.OrderRepository
	messages  *postgres.MessageRepository
}

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}

func (s *RepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{TranslateError: true})
	s.Require().NoError(err)
	s.Require().NoError(postgres.Migrate(db))
	s.db = db
}

func (s *RepositoryIntegrationTestSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("TRUNCATE TABLE messages, order_status_history, orders, users RESTART IDENTITY").Error)
	s.users = postgres.NewUserRepository(s.db)
	s.orders = postgres.NewOrderRepository(s.db)
	s.messages = postgres.NewMessageRepository(s.db)
}

func (s *RepositoryIntegrationTestSuite) TearDownSuite() {
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *RepositoryIntegrationTestSuite) createUser(username string, role domain.Role) *domain.User {
	now := time.Now().UTC()
	u, err := s.users.Create(context.Background(), &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	s.Require().NoError(err)
	return u
}

func (s *RepositoryIntegrationTestSuite) createOrder(clientID int64) *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &domain.Order{
		ClientID:         clientID,
		Status:           domain.StatusPending,
		VerificationCode: "4821",
		Details: domain.OrderDetails{
			CurrentBottle:   "19L empty",
			NewBottle:       "19L full",
			DeliveryAddress: "Calle 5 #12",
			Location:        &domain.Coordinates{Lat: 19.43, Lng: -99.13},
			RunnerFee:       decimal.RequireFromString("25.50"),
			Tip:             decimal.RequireFromString("5"),
			TotalPrice:      decimal.RequireFromString("90.50"),
		},
		CreatedAt: now,
		UpdatedAt: now,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusPending, ActorID: clientID, Timestamp: now},
		},
	}
	s.Require().NoError(s.orders.Create(context.Background(), o))
	return o
}

func (s *RepositoryIntegrationTestSuite) TestUsers_DuplicateUsername() {
	s.createUser("alice", domain.RoleClient)

	_, err := s.users.Create(context.Background(), &domain.User{
		Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: domain.RoleClient,
	})
	s.ErrorIs(err, domain.ErrUserExists)
}

func (s *RepositoryIntegrationTestSuite) TestUsers_FindByLoginAcceptsEmail() {
	created := s.createUser("bob", domain.RoleRunner)

	found, err := s.users.FindByLogin(context.Background(), "BOB@example.com")
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)

	_, err = s.users.FindByLogin(context.Background(), "nobody")
	s.ErrorIs(err, domain.ErrUserNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestOrders_CreateRoundTrip() {
	client := s.createUser("carol", domain.RoleClient)
	o := s.createOrder(client.ID)

	got, err := s.orders.FindByID(context.Background(), o.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, got.Status)
	s.Nil(got.RunnerID)
	s.Equal("4821", got.VerificationCode)
	s.True(got.Details.RunnerFee.Equal(decimal.RequireFromString("25.5")))
	s.Require().NotNil(got.Details.Location)
	s.InDelta(19.43, got.Details.Location.Lat, 1e-9)
	s.Len(got.StatusHistory, 1)
}

func (s *RepositoryIntegrationTestSuite) TestOrders_TransitionAppendsHistory() {
	client := s.createUser("dana", domain.RoleClient)
	runner := s.createUser("eve", domain.RoleRunner)
	o := s.createOrder(client.ID)

	updated, err := s.orders.Transition(context.Background(), ports.OrderTransition{
		OrderID:      o.ID,
		From:         domain.StatusPending,
		To:           domain.StatusAccepted,
		AssignRunner: &runner.ID,
		ActorID:      runner.ID,
		At:           time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusAccepted, updated.Status)
	s.Require().NotNil(updated.RunnerID)
	s.Equal(runner.ID, *updated.RunnerID)
	s.Len(updated.StatusHistory, 2)

	_, err = s.orders.Transition(context.Background(), ports.OrderTransition{
		OrderID: o.ID,
		From:    domain.StatusPending,
		To:      domain.StatusCancelled,
		ActorID: client.ID,
		At:      time.Now().UTC(),
	})
	s.ErrorIs(err, domain.ErrTransitionConflict)
}

func (s *RepositoryIntegrationTestSuite) TestOrders_TransitionUnknownOrder() {
	_, err := s.orders.Transition(context.Background(), ports.OrderTransition{
		OrderID: 999,
		From:    domain.StatusPending,
		To:      domain.StatusCancelled,
		At:      time.Now().UTC(),
	})
	s.ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestOrders_ConcurrentAcceptHasOneWinner() {
	client := s.createUser("frank", domain.RoleClient)
	o := s.createOrder(client.ID)

	const racers = 8
	runners := make([]*domain.User, racers)
	for i := range runners {
		runners[i] = s.createUser("runner"+string(rune('a'+i)), domain.RoleRunner)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, runner := range runners {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := s.orders.Transition(context.Background(), ports.OrderTransition{
				OrderID:      o.ID,
				From:         domain.StatusPending,
				To:           domain.StatusAccepted,
				AssignRunner: &id,
				ActorID:      id,
				At:           time.Now().UTC(),
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(runner.ID)
	}
	wg.Wait()

	s.Equal(1, wins)
	got, err := s.orders.FindByID(context.Background(), o.ID)
	s.Require().NoError(err)
	s.Len(got.StatusHistory, 2)
}

func (s *RepositoryIntegrationTestSuite) TestOrders_ListAndCounts() {
	client := s.createUser("gina", domain.RoleClient)
	first := s.createOrder(client.ID)
	second := s.createOrder(client.ID)

	active, err := s.orders.CountByClient(context.Background(), client.ID, domain.ActiveStatuses...)
	s.Require().NoError(err)
	s.EqualValues(2, active)

	list, err := s.orders.List(context.Background(), ports.OrderFilter{ClientID: &client.ID})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Equal(first.ID, list[1].ID)

	counts, err := s.orders.CountByStatus(context.Background())
	s.Require().NoError(err)
	s.EqualValues(2, counts[domain.StatusPending])
}

func (s *RepositoryIntegrationTestSuite) TestMessages_OldestFirst() {
	client := s.createUser("hank", domain.RoleClient)
	runner := s.createUser("ivy", domain.RoleRunner)
	o := s.createOrder(client.ID)

	base := time.Now().UTC()
	for i, text := range []string{"hola", "voy en camino"} {
		s.Require().NoError(s.messages.Create(context.Background(), &domain.Message{
			OrderID:    o.ID,
			SenderID:   runner.ID,
			ReceiverID: client.ID,
			Content:    text,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.messages.ListByOrder(context.Background(), o.ID)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal("hola", msgs[0].Content)
	s.Equal("voy en camino", msgs[1].Content)
}
