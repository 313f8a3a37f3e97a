package main

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/ariefcatur/go-crm-graphql/internal/httpx"
	"github.com/ariefcatur/go-crm-graphql/internal/jobs"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.ServiceName += "-scheduler"
	log := app.NewLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("scheduler exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		dispatcher jobs.Dispatcher
		health     httpx.HealthFunc
		prod       *kafkax.Producer
	)
	switch cfg.Jobs.Dispatch {
	case "inline":
		store, closeStore, err := app.OpenStore(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer closeStore()
		events, p := app.Events(context.Background(), cfg, log)
		prod = p
		rdb := app.Redis(cfg)
		if rdb != nil {
			defer rdb.Close()
		}
		svc := app.NewService(cfg, store, events, log)
		dispatcher = app.NewRunner(cfg, svc, rdb, log)
		health = store.Ping
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("JOB_DISPATCH=kafka needs KAFKA_BROKERS")
		}
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 256, log)
		prod.Start(context.Background())
		dispatcher = &jobs.TriggerPublisher{Events: prod, ServiceName: cfg.ServiceName}
	default:
		return fmt.Errorf("unknown JOB_DISPATCH %q", cfg.Jobs.Dispatch)
	}

	sched, err := jobs.NewScheduler(cfg.Jobs.Schedules, dispatcher, log)
	if err != nil {
		return err
	}
	ops := &http.Server{Addr: cfg.MetricsAddr, Handler: httpx.NewOpsRouter(log, health), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("scheduler started", "dispatch", cfg.Jobs.Dispatch)
		return sched.Run(gctx)
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
