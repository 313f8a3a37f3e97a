package jobs

import (
	"context"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
)

type Prober interface {
	Hello(ctx context.Context) (string, error)
}

// HeartbeatJob writes a liveness line whether or not the query layer
// answers; a failed probe is still logged, then reported as the run error.
type HeartbeatJob struct {
	Probe Prober
	Log   *AppendLog
	Now   func() time.Time
}

func (j *HeartbeatJob) Name() string { return config.JobHeartbeat }

func (j *HeartbeatJob) Run(ctx context.Context) error {
	line := clock(j.Now).Format("02/01/2006-15:04:05") + " CRM is alive"
	hello, err := j.Probe.Hello(ctx)
	if err != nil {
		line += " - query layer error: " + err.Error()
	} else {
		line += " - query layer responsive: " + hello
	}
	if werr := j.Log.Append(line); werr != nil {
		return werr
	}
	return err
}
