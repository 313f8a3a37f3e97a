package crm_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/ariefcatur/go-crm-graphql/internal/memstore"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// tickClock advances one second per reading so records created in a row
// get distinct timestamps.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recorder struct {
	mu     sync.Mutex
	topics []string
	events []crm.Envelope
}

func (r *recorder) PublishEvent(topic string, ev crm.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// flakyStore lets a test fail individual store calls.
type flakyStore struct {
	*memstore.Store
	pingErr   error
	insertErr error
	statsErr  error
	inserts   int
}

func (s *flakyStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.Store.Ping(ctx)
}

func (s *flakyStore) InsertCustomers(ctx context.Context, cs []crm.Customer) error {
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.Store.InsertCustomers(ctx, cs)
}

func (s *flakyStore) Stats(ctx context.Context) (crm.Stats, error) {
	if s.statsErr != nil {
		return crm.Stats{}, s.statsErr
	}
	return s.Store.Stats(ctx)
}

type fixture struct {
	svc    *crm.Service
	store  *flakyStore
	events *recorder
	clock  *tickClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  &flakyStore{Store: memstore.New()},
		events: &recorder{},
		clock:  &tickClock{t: epoch},
	}
	f.svc = &crm.Service{
		Store:       f.store,
		Events:      f.events,
		Now:         f.clock.Now,
		ServiceName: "crm-test",
	}
	return f
}

func intp(i int) *int { return &i }

func money(t *testing.T, s string) crm.Money {
	t.Helper()
	m, err := crm.ParseMoney(s)
	if err != nil {
		t.Fatalf("parse money %q: %v", s, err)
	}
	return m
}
