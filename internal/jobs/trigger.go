package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
)

// TriggerPublisher dispatches a job by publishing JobTriggered; a worker
// consuming crm.job.trigger runs it.
type TriggerPublisher struct {
	Events      crm.EventPublisher
	ServiceName string
	Now         func() time.Time
}

func (p *TriggerPublisher) Dispatch(ctx context.Context, job string) error {
	now := clock(p.Now).UTC()
	p.Events.PublishEvent(crm.TopicJobTriggered, crm.Envelope{
		EventID:       uuid.NewString(),
		EventType:     crm.EventJobTriggered,
		EventVersion:  1,
		OccurredAt:    now,
		Producer:      p.ServiceName,
		TraceID:       crm.TraceID(ctx),
		CorrelationID: job,
		Payload:       kafkax.MustMarshal(crm.JobTriggeredPayload{Job: job, ScheduledAt: now}),
	})
	jobDispatches.WithLabelValues(job, "kafka").Inc()
	return nil
}

type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

// TriggerHandler is the worker side of TriggerPublisher. It never returns
// an error for a bad or failed trigger: the message is committed and the
// outcome lives in the job log, metrics and run status. Redelivered
// triggers are dropped by event id.
type TriggerHandler struct {
	Runner *Runner
	Dedup  Deduper
	// MaxAge drops triggers that waited longer than this in the topic,
	// e.g. after a worker outage. Zero keeps every trigger.
	MaxAge time.Duration
	Now    func() time.Time
	Log    *slog.Logger
}

func (h *TriggerHandler) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func (h *TriggerHandler) HandleJobTriggered(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		h.log().Error("drop malformed trigger", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != crm.EventJobTriggered {
		return nil
	}

	if h.Dedup != nil {
		first, err := h.Dedup.FirstSeen(ctx, env.EventID)
		switch {
		case err != nil:
			h.log().Warn("trigger dedup unavailable", "event_id", env.EventID, "error", err)
		case !first:
			h.log().Info("duplicate trigger skipped", "event_id", env.EventID)
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[crm.JobTriggeredPayload](env.Payload)
	if err != nil {
		h.log().Error("drop malformed trigger", "event_id", env.EventID, "error", err)
		return nil
	}
	if h.MaxAge > 0 && !p.ScheduledAt.IsZero() {
		if age := clock(h.Now).Sub(p.ScheduledAt); age > h.MaxAge {
			h.log().Warn("expired trigger skipped", "job", p.Job, "age", age)
			return nil
		}
	}

	_ = h.Runner.Run(crm.WithTraceID(ctx, env.TraceID), p.Job)
	return nil
}
