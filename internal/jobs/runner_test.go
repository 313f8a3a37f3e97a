package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
)

type funcJob struct {
	name string
	mu   sync.Mutex
	runs int
	fn   func(ctx context.Context) error
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func (j *funcJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func() { l.released++ }, true, nil
}

type fakeStatus struct {
	results map[string]string
	details map[string]string
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{results: map[string]string{}, details: map[string]string{}}
}

func (s *fakeStatus) Record(_ context.Context, job, result, detail string, _ time.Time) error {
	s.results[job] = result
	s.details[job] = detail
	return nil
}

func testJobsConfig(t *testing.T) config.Jobs {
	return config.Jobs{LogDir: t.TempDir(), RestockThreshold: 10}
}

func TestRunnerRunsAndRecords(t *testing.T) {
	ok := &funcJob{name: "ok"}
	bad := &funcJob{name: "bad", fn: func(context.Context) error { return errBoom }}
	status := newFakeStatus()
	locker := &fakeLocker{}

	r := NewRunner(nil, ok, bad)
	r.Locker, r.Status = locker, status

	assert.Equal(t, []string{"bad", "ok"}, r.Names())
	require.NoError(t, r.Run(context.Background(), "ok"))
	require.ErrorIs(t, r.Run(context.Background(), "bad"), errBoom)

	assert.Equal(t, 1, ok.count())
	assert.Equal(t, "ok", status.results["ok"])
	assert.Equal(t, "error", status.results["bad"])
	assert.Equal(t, "boom", status.details["bad"])
	assert.Equal(t, 2, locker.released)
}

func TestRunnerUnknownJob(t *testing.T) {
	r := NewRunner(nil)
	assert.ErrorIs(t, r.Run(context.Background(), "nope"), ErrUnknownJob)
}

func TestRunnerRecoversPanics(t *testing.T) {
	status := newFakeStatus()
	r := NewRunner(nil, &funcJob{name: "p", fn: func(context.Context) error { panic("kaboom") }})
	r.Status = status

	err := r.Run(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, "error", status.results["p"])
}

func TestRunnerSkipsWhenLocked(t *testing.T) {
	job := &funcJob{name: "j"}
	r := NewRunner(nil, job)
	r.Locker = &fakeLocker{held: true}

	assert.ErrorIs(t, r.Run(context.Background(), "j"), ErrJobLocked)
	assert.Zero(t, job.count())
}

func TestRunnerRunsUnlockedWhenLockBackendFails(t *testing.T) {
	job := &funcJob{name: "j"}
	r := NewRunner(nil, job)
	r.Locker = &fakeLocker{err: errors.New("redis down")}

	require.NoError(t, r.Run(context.Background(), "j"))
	assert.Equal(t, 1, job.count())
}

func TestRunnerTimeout(t *testing.T) {
	r := NewRunner(nil, &funcJob{name: "slow", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	r.Timeout = 10 * time.Millisecond
	assert.ErrorIs(t, r.Run(context.Background(), "slow"), context.DeadlineExceeded)
}

func TestRunnerDispatchIsInline(t *testing.T) {
	job := &funcJob{name: "j"}
	var d Dispatcher = NewRunner(nil, job)
	require.NoError(t, d.Dispatch(context.Background(), "j"))
	assert.Equal(t, 1, job.count())
}
