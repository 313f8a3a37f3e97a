package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func TestSchedulerEntries(t *testing.T) {
	s, err := NewScheduler(map[string]string{
		"report":    "0 6 * * 1",
		"heartbeat": "*/5 * * * *",
		"cleanup":   "",
	}, &recordingDispatcher{}, nil)
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "heartbeat", entries[0].Job)
	assert.Equal(t, "report", entries[1].Job)
	assert.Equal(t, "0 6 * * 1", entries[1].Schedule)
	assert.Equal(t, time.Monday, entries[1].Next.Weekday())
	assert.Equal(t, 6, entries[1].Next.Hour())
	assert.True(t, entries[0].Next.After(time.Now().Add(-time.Second)))
	assert.Zero(t, entries[0].Next.Minute()%5)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(map[string]string{"report": "every monday"}, &recordingDispatcher{}, nil)
	assert.ErrorContains(t, err, "report")
}

func TestSchedulerFireDispatches(t *testing.T) {
	d := &recordingDispatcher{}
	s, err := NewScheduler(map[string]string{"heartbeat": "*/5 * * * *"}, d, nil)
	require.NoError(t, err)

	s.fire("heartbeat")()
	assert.Equal(t, []string{"heartbeat"}, d.jobs)
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	s, err := NewScheduler(map[string]string{"heartbeat": "*/5 * * * *"}, &recordingDispatcher{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
