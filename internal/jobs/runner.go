package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobLocked means another process holds the job's lock; the run was
	// skipped, not failed.
	ErrJobLocked = errors.New("job already running")
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type StatusRecorder interface {
	Record(ctx context.Context, job, result, detail string, at time.Time) error
}

// Runner executes registered jobs by name. Every run is bounded by Timeout,
// guarded by Locker when set, recovered from panics and logged; Run's error
// is informational and the caller may drop it.
type Runner struct {
	Locker  Locker
	Status  StatusRecorder
	LockTTL time.Duration
	Timeout time.Duration
	Log     *slog.Logger

	jobs map[string]Job
}

func NewRunner(log *slog.Logger, jobs ...Job) *Runner {
	r := &Runner{Log: log, jobs: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		r.jobs[j.Name()] = j
	}
	return r
}

func (r *Runner) Names() []string {
	out := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// Dispatch runs the job in-process; it makes Runner the inline Dispatcher.
func (r *Runner) Dispatch(ctx context.Context, name string) error {
	jobDispatches.WithLabelValues(name, "inline").Inc()
	return r.Run(ctx, name)
}

func (r *Runner) Run(ctx context.Context, name string) (err error) {
	job, ok := r.jobs[name]
	if !ok {
		r.log().Error("unknown job", "job", name)
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	log := r.log().With("job", name)

	if r.Locker != nil {
		ttl := r.LockTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		release, acquired, lerr := r.Locker.Acquire(ctx, name, ttl)
		switch {
		case lerr != nil:
			// an unreachable lock does not block the run
			log.Warn("job lock unavailable, running unlocked", "error", lerr)
		case !acquired:
			log.Info("job already running elsewhere, skipped")
			jobRuns.WithLabelValues(name, "skipped").Inc()
			return ErrJobLocked
		default:
			defer release()
		}
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", name, rec)
		}
		elapsed := time.Since(start)
		result, detail := "ok", ""
		if err != nil {
			result, detail = "error", err.Error()
			log.Error("job failed", "error", err, "duration", elapsed)
		} else {
			log.Info("job finished", "duration", elapsed)
		}
		jobRuns.WithLabelValues(name, result).Inc()
		jobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		if r.Status != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if serr := r.Status.Record(sctx, name, result, detail, time.Now()); serr != nil {
				log.Warn("record job status", "error", serr)
			}
		}
	}()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}
