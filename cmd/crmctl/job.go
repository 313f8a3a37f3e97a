package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-crm-graphql/internal/app"
	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/jobs"
	"github.com/ariefcatur/go-crm-graphql/internal/redisx"
)

func newJobCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and run maintenance jobs",
	}
	cmd.AddCommand(newJobListCmd(e), newJobRunCmd(e))
	return cmd
}

func newJobListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show schedules, next runs and the last recorded outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sched, err := jobs.NewScheduler(e.cfg.Jobs.Schedules, nil, e.log)
			if err != nil {
				return err
			}
			next := map[string]time.Time{}
			for _, en := range sched.Entries() {
				next[en.Job] = en.Next
			}

			rdb := app.Redis(e.cfg)
			if rdb != nil {
				defer rdb.Close()
			}
			status := &redisx.StatusStore{RDB: rdb}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tSCHEDULE\tNEXT (UTC)\tRUNNING\tLAST RESULT\tLAST RUN")
			for _, name := range config.JobNames {
				spec, nextRun := e.cfg.Jobs.Schedules[name], "-"
				if spec == "" {
					spec = "disabled"
				} else if t, ok := next[name]; ok {
					nextRun = t.Format(time.DateTime)
				}
				running, result, at := "?", "-", "-"
				if rdb != nil {
					if held, err := redisx.Exists(ctx, rdb, fmt.Sprintf(redisx.KeyJobLock, name)); err == nil {
						running = fmt.Sprint(held)
					}
					if st, ok, err := status.Last(ctx, name); err == nil && ok {
						result, at = st.Result, st.At.Format(time.RFC3339)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", name, spec, nextRun, running, result, at)
			}
			return tw.Flush()
		},
	}
}

func newJobRunCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job now, under the same lock as scheduled runs",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.JobNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := app.OpenStore(ctx, e.cfg, false)
			if err != nil {
				return err
			}
			defer closeStore()

			rdb := app.Redis(e.cfg)
			if rdb != nil {
				defer rdb.Close()
			}
			events, prod := app.Events(ctx, e.cfg, e.log)
			if prod != nil {
				defer func() {
					prod.Close()
					prod.WaitClosed()
				}()
			}
			runner := app.NewRunner(e.cfg, app.NewService(e.cfg, store, events, e.log), rdb, e.log)

			err = runner.Run(ctx, args[0])
			switch {
			case errors.Is(err, jobs.ErrJobLocked):
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already running elsewhere, skipped\n", args[0])
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s finished\n", args[0])
			return nil
		},
	}
}
