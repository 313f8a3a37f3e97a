package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-crm-graphql/internal/app"
	"github.com/ariefcatur/go-crm-graphql/internal/config"
)

type env struct {
	cfg config.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "crmctl",
		Short:        "Operate the CRM: schema, demo data and maintenance jobs",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
			e.cfg = config.Load()
			e.cfg.ServiceName += "-ctl"
			if v, _ := cmd.Flags().GetString("store"); v != "" {
				e.cfg.StoreDriver = v
			}
			e.log = app.NewLogger(e.cfg)
			slog.SetDefault(e.log)
		},
	}
	root.PersistentFlags().String("store", "", "override STORE_DRIVER (postgres|memory)")
	root.AddCommand(newMigrateCmd(e), newSeedCmd(e), newJobCmd(e))
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.StoreDriver == "memory" {
				return errors.New("migrate needs STORE_DRIVER=postgres")
			}
			_, closeStore, err := app.OpenStore(cmd.Context(), e.cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo customers, products and orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := app.OpenStore(ctx, e.cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := app.Seed(ctx, app.NewService(e.cfg, store, nil, e.log))
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "database already seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d customers, %d products, %d orders\n", res.Customers, res.Products, res.Orders)
			return nil
		},
	}
}
