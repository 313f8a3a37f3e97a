package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-crm-graphql/internal/app"
	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/ariefcatur/go-crm-graphql/internal/httpx"
	"github.com/ariefcatur/go-crm-graphql/internal/jobs"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
	"github.com/ariefcatur/go-crm-graphql/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.ServiceName += "-worker"
	log := app.NewLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("worker needs KAFKA_BROKERS")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	store, closeStore, err := app.OpenStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis
	rdb := app.Redis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// Producer for the events the jobs emit
	events, prod := app.Events(context.Background(), cfg, log)

	svc := app.NewService(cfg, store, events, log)
	h := &jobs.TriggerHandler{
		Runner: app.NewRunner(cfg, svc, rdb, log),
		MaxAge: cfg.Jobs.TriggerMaxAge,
		Log:    log,
	}
	if rdb != nil {
		h.Dedup = &redisx.Deduper{RDB: rdb, Service: cfg.Jobs.WorkerGroup}
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.Jobs.WorkerGroup, crm.TopicJobTriggered, cfg.Jobs.WorkerConcurrency, log)
	ops := &http.Server{Addr: cfg.MetricsAddr, Handler: httpx.NewOpsRouter(log, store.Ping), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("job worker started", "group", cfg.Jobs.WorkerGroup, "topic", crm.TopicJobTriggered, "workers", cfg.Jobs.WorkerConcurrency)
		return cons.Start(gctx, h.HandleJobTriggered)
	})
	g.Go(func() error {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ops.Shutdown(sctx)
	})
	err = g.Wait()

	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	return err
}
