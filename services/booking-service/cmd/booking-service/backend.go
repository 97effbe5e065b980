package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/salonmonarch/booking/libs/db"
	"github.com/salonmonarch/booking/libs/runtime"
	"github.com/salonmonarch/booking/services/booking-service/internal/admins"
	"github.com/salonmonarch/booking/services/booking-service/internal/lifecycle"
	"github.com/salonmonarch/booking/services/booking-service/internal/storage"
)

type stores struct {
	appointments lifecycle.Store
	admins       admins.Store
	ready        []runtime.ReadyCheck
	close        func()
}

// openStores connects the configured backend. With migrate set, Postgres
// migrations are applied and Mongo indexes are created before returning.
func openStores(ctx context.Context, s settings, logger *slog.Logger, migrate bool) (*stores, error) {
	switch s.Backend {
	case backendPostgres:
		pool, err := db.Open(ctx, s.DatabaseURL, db.PoolOptions{MaxConns: int32(s.DBMaxConns)})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if migrate {
			applied, err := db.Migrate(ctx, pool, storage.Migrations())
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			if len(applied) > 0 {
				logger.Info("migrations applied", "files", applied)
			}
		}
		return &stores{
			appointments: storage.NewPostgresStore(pool),
			admins:       storage.NewPostgresAdminStore(pool),
			ready:        []runtime.ReadyCheck{{Name: "postgres", Check: db.ReadyCheck(pool)}},
			close:        pool.Close,
		}, nil

	case backendMongo:
		client, err := db.OpenMongo(ctx, s.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		appts := storage.NewMongoStore(client, s.MongoDatabase)
		adminStore := storage.NewMongoAdminStore(client, s.MongoDatabase)
		if migrate {
			if err := appts.EnsureIndexes(ctx); err != nil {
				disconnect()
				return nil, fmt.Errorf("ensure appointment indexes: %w", err)
			}
			if err := adminStore.EnsureIndexes(ctx); err != nil {
				disconnect()
				return nil, fmt.Errorf("ensure admin indexes: %w", err)
			}
		}
		return &stores{
			appointments: appts,
			admins:       adminStore,
			ready:        []runtime.ReadyCheck{{Name: "mongo", Check: db.MongoReadyCheck(client)}},
			close:        disconnect,
		}, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return &stores{
			appointments: storage.NewMemoryStore(),
			admins:       storage.NewMemoryAdminStore(),
			close:        func() {},
		}, nil
	}
}
