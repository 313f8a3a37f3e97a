package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Dispatcher starts a job run. Runner dispatches inline; TriggerPublisher
// hands the run to the worker fleet over Kafka.
type Dispatcher interface {
	Dispatch(ctx context.Context, job string) error
}

type Entry struct {
	Job      string
	Schedule string
	Next     time.Time
}

// Scheduler fires dispatches on standard five-field cron schedules in UTC.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	specs   map[string]string
	d       Dispatcher
	log     *slog.Logger
	ctx     context.Context
}

// NewScheduler registers every job with a non-empty schedule. An invalid
// expression fails the whole scheduler rather than silently dropping a job.
func NewScheduler(schedules map[string]string, d Dispatcher, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	clog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
		d:       d,
		log:     log,
		ctx:     context.Background(),
	}

	names := make([]string, 0, len(schedules))
	for name := range schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := schedules[name]
		if spec == "" {
			log.Info("job disabled", "job", name)
			continue
		}
		id, err := s.cron.AddFunc(spec, s.fire(name))
		if err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
		s.entries[name] = id
		s.specs[name] = spec
	}
	return s, nil
}

func (s *Scheduler) fire(name string) func() {
	return func() {
		if err := s.d.Dispatch(s.ctx, name); err != nil {
			s.log.Warn("dispatch job", "job", name, "error", err)
		}
	}
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// in-flight jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	for _, e := range s.Entries() {
		s.log.Info("job scheduled", "job", e.Job, "schedule", e.Schedule, "next", e.Next)
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		e := s.cron.Entry(id)
		next := e.Next
		if next.IsZero() && e.Schedule != nil {
			next = e.Schedule.Next(time.Now().UTC())
		}
		out = append(out, Entry{Job: name, Schedule: s.specs[name], Next: next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
