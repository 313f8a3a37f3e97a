package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
)

type Purger interface {
	PurgeInactiveCustomers(ctx context.Context, window time.Duration) (int, error)
}

// CleanupJob deletes customers without an order inside Window and appends
// one line per run to the cleanup log.
type CleanupJob struct {
	Customers Purger
	Log       *AppendLog
	Window    time.Duration
	Now       func() time.Time
}

func (j *CleanupJob) Name() string { return config.JobCleanup }

func (j *CleanupJob) Run(ctx context.Context) error {
	window := j.Window
	if window <= 0 {
		window = 365 * 24 * time.Hour
	}
	n, err := j.Customers.PurgeInactiveCustomers(ctx, window)
	ts := clock(j.Now).Format(time.RFC3339)
	if err != nil {
		_ = j.Log.Append(fmt.Sprintf("[%s] ERROR: %v", ts, err))
		return err
	}
	return j.Log.Append(fmt.Sprintf("[%s] Deleted %d inactive customers", ts, n))
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
