package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/infrastructure/db/memory"
	mongodb "github.com/bottlerun/exchange-api/internal/infrastructure/db/mongo"
	"github.com/bottlerun/exchange-api/internal/infrastructure/db/postgres"
	redisdb "github.com/bottlerun/exchange-api/internal/infrastructure/db/redis"
	"github.com/bottlerun/exchange-api/internal/pkg/config"
)

// storage bundles the repositories of the selected backend.
type storage struct {
	users    ports.UserRepository
	orders   ports.OrderRepository
	messages ports.MessageRepository
	codes    ports.CodeStore
	pingers  map[string]ports.Pinger
	closers  []func(context.Context) error
}

func (s *storage) close(ctx context.Context, log zerolog.Logger) {
	for _, c := range s.closers {
		if err := c(ctx); err != nil {
			log.Warn().Err(err).Msg("storage close failed")
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	s := &storage{pingers: make(map[string]ports.Pinger)}

	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Disconnect)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			s.close(ctx, log)
			return nil, err
		}
		s.users = mongodb.NewUserRepository(db)
		s.orders = mongodb.NewOrderRepository(db)
		s.messages = mongodb.NewMessageRepository(db)
		s.pingers["mongodb"] = mongodb.NewPinger(client)

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres handle: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return sqlDB.Close() })
		s.users = postgres.NewUserRepository(db)
		s.orders = postgres.NewOrderRepository(db)
		s.messages = postgres.NewMessageRepository(db)
		s.pingers["postgres"] = postgres.NewPinger(db)

	case config.DriverMemory:
		store := memory.NewStore()
		s.users = store.Users()
		s.orders = store.Orders()
		s.messages = store.Messages()
		s.pingers["memory"] = store
		log.Warn().Msg("using in-memory storage; data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.Redis.Addr == "" {
		s.codes = memory.NewCodeStore()
		return s, nil
	}
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		s.close(ctx, log)
		return nil, err
	}
	s.closers = append(s.closers, func(context.Context) error { return rdb.Close() })
	s.codes = redisdb.NewCodeStore(rdb)
	s.pingers["redis"] = redisdb.NewPinger(rdb)
	return s, nil
}
