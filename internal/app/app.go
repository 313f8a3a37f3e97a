// Package app wires config into the long-lived pieces shared by the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/ariefcatur/go-crm-graphql/internal/jobs"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
	"github.com/ariefcatur/go-crm-graphql/internal/memstore"
	"github.com/ariefcatur/go-crm-graphql/internal/postgres"
	"github.com/ariefcatur/go-crm-graphql/internal/redisx"
)

func NewLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h).With("service", cfg.ServiceName)
}

// OpenStore connects the configured driver. With migrate set the postgres
// schema is applied first. The returned func releases the store.
func OpenStore(ctx context.Context, cfg config.Config, migrate bool) (crm.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return memstore.New(), func() {}, nil
	case "postgres", "":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return &postgres.Store{DB: db}, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// Events starts a producer when brokers are configured. Without brokers
// the returned publisher is nil and events are dropped.
func Events(ctx context.Context, cfg config.Config, log *slog.Logger) (crm.EventPublisher, *kafkax.Producer) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("no KAFKA_BROKERS configured, domain events disabled")
		return nil, nil
	}
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)
	return prod, prod
}

// Redis returns nil when REDIS_ADDR is empty; job locks, dedup and run
// status are then skipped.
func Redis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redisx.New(cfg.RedisAddr)
}

func NewService(cfg config.Config, store crm.Store, events crm.EventPublisher, log *slog.Logger) *crm.Service {
	return &crm.Service{
		Store:         store,
		Events:        events,
		Log:           log,
		RestockAmount: cfg.Jobs.RestockAmount,
		ServiceName:   cfg.ServiceName,
	}
}

// NewRunner registers every job against svc. rdb may be nil.
func NewRunner(cfg config.Config, svc *crm.Service, rdb *redis.Client, log *slog.Logger) *jobs.Runner {
	r := jobs.NewRunner(log, jobs.Build(cfg.Jobs, svc, nil)...)
	r.LockTTL = cfg.Jobs.LockTTL
	r.Timeout = cfg.Jobs.LockTTL
	if rdb != nil {
		r.Locker = &redisx.Locker{RDB: rdb}
		r.Status = &redisx.StatusStore{RDB: rdb}
	}
	return r
}
