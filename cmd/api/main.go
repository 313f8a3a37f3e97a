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
	"github.com/ariefcatur/go-crm-graphql/internal/graph"
	"github.com/ariefcatur/go-crm-graphql/internal/httpx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := app.NewLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	store, closeStore, err := app.OpenStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	// Kafka producer outlives the HTTP server so in-flight mutations can
	// still publish while it drains.
	events, prod := app.Events(context.Background(), cfg, log)

	svc := app.NewService(cfg, store, events, log)
	schema, err := graph.NewSchema(svc, log)
	if err != nil {
		return err
	}

	router := httpx.NewRouter(httpx.Options{
		GraphQL: graph.Handler(schema),
		Health:  store.Ping,
		Log:     log,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	err = g.Wait()

	if prod != nil {
		prod.Close()      // stop accepting, flush inbox
		prod.WaitClosed() // writer closed
	}
	return err
}
