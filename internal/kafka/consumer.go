package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message was processed. A non-nil error
// keeps the message's offset, and everything after it in the same
// partition, uncommitted.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	workers int
	log     *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{r: r, workers: workers, log: log}
}

// Start fetches until ctx is cancelled, fanning messages out to the worker
// pool. It returns nil on cancellation and the fetch error otherwise.
//
// Offsets are committed per partition in fetch order: a message is only
// committed once it and every earlier message of its partition were
// handled. A failed message holds its partition's commit position until the
// consumer restarts and fetches it again, so later messages of that
// partition may be delivered twice.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	acks := &commitLog{r: c.r, pending: make(map[int][]*inflight)}
	jobs := make(chan *inflight, c.workers*4)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for f := range jobs {
				err := h(ctx, f.m)
				if err != nil {
					c.log.Error("handler failed", "worker", id, "topic", f.m.Topic, "partition", f.m.Partition, "offset", f.m.Offset, "error", err)
					time.Sleep(200 * time.Millisecond) // short backoff
				}
				if cerr := acks.finish(ctx, f, err == nil); cerr != nil && ctx.Err() == nil {
					c.log.Error("commit failed", "worker", id, "partition", f.m.Partition, "offset", f.m.Offset, "error", cerr)
				}
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		f := acks.track(m)
		select {
		case jobs <- f:
		case <-ctx.Done():
			return nil
		}
	}
}

type inflightState int

const (
	statePending inflightState = iota
	stateHandled
	stateFailed
)

type inflight struct {
	m     kafka.Message
	state inflightState
}

// commitLog keeps fetched messages per partition in fetch order and commits
// the longest handled prefix. Commits happen under mu so the position of a
// partition never moves backwards.
type commitLog struct {
	r       messageReader
	mu      sync.Mutex
	pending map[int][]*inflight
}

func (l *commitLog) track(m kafka.Message) *inflight {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := &inflight{m: m}
	l.pending[m.Partition] = append(l.pending[m.Partition], f)
	return f
}

func (l *commitLog) finish(ctx context.Context, f *inflight, ok bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f.state = stateFailed
	if ok {
		f.state = stateHandled
	}

	q := l.pending[f.m.Partition]
	var last *inflight
	for len(q) > 0 && q[0].state == stateHandled {
		last, q = q[0], q[1:]
	}
	l.pending[f.m.Partition] = q
	if last == nil {
		return nil
	}
	return l.r.CommitMessages(ctx, last.m)
}
