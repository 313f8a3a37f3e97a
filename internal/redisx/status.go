package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RunStatus struct {
	Job    string
	Result string
	Detail string
	At     time.Time
}

// StatusStore keeps the outcome of the last run of every job.
type StatusStore struct{ RDB *redis.Client }

func (s *StatusStore) Record(ctx context.Context, job, result, detail string, at time.Time) error {
	key := fmt.Sprintf(KeyJobLastRun, job)
	pipe := s.RDB.TxPipeline()
	pipe.HSet(ctx, key, "result", result, "detail", detail, "at", at.UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, TTLLastRun)
	_, err := pipe.Exec(ctx)
	return err
}

// Last returns ok=false when the job has no recorded run.
func (s *StatusStore) Last(ctx context.Context, job string) (RunStatus, bool, error) {
	m, err := s.RDB.HGetAll(ctx, fmt.Sprintf(KeyJobLastRun, job)).Result()
	if err != nil || len(m) == 0 {
		return RunStatus{}, false, err
	}
	at, _ := time.Parse(time.RFC3339, m["at"])
	return RunStatus{Job: job, Result: m["result"], Detail: m["detail"], At: at}, true, nil
}
