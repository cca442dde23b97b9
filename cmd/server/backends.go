package main

import (
	"context"
	"fmt"
	"log/slog"

	"signup/internal/platform/config"
	"signup/internal/platform/postgres"
	redisclient "signup/internal/platform/redis"
	"signup/internal/signup/orchestrator"
	"signup/internal/signup/store/account"
	audit "signup/pkg/platform/audit"
	auditkafka "signup/pkg/platform/audit/store/kafka"
	auditmemory "signup/pkg/platform/audit/store/memory"
)

type backend struct {
	store orchestrator.KeyedStore
	ping  func(context.Context) error
	close func()
}

// openBackend connects the configured account store. Postgres tables are
// created on first start.
func openBackend(ctx context.Context, cfg config.Server) (*backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return &backend{
			store: account.NewInMemory(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil

	case config.StoreRedis:
		if cfg.Redis.URL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis store")
		}
		rc, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: account.NewRedis(rc.Client, account.WithKeyPrefix(cfg.Redis.KeyPrefix)),
			ping:  rc.Health,
			close: func() { _ = rc.Close() },
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, cfg.Database.Table); err != nil {
			_ = db.Close()
			return nil, err
		}
		store := account.NewPostgres(db, cfg.Database.Table)
		return &backend{
			store: store,
			ping:  store.Ping,
			close: func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown SIGNUP_STORE %q", cfg.Store)
}

// openAuditStore returns the Kafka sink when brokers are configured and an
// in-memory sink otherwise.
func openAuditStore(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}
	ks, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := ks.EnsureTopic(ctx, 1, 1); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	return ks, ks.Close, nil
}
