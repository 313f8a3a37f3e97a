package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type StatsSource interface {
	Stats(ctx context.Context) (crm.Stats, error)
}

// ReportJob appends weekly totals to the report log:
//
//	2025-01-06 06:00:00 - Report: 3 customers, 2 orders, $1450.00 revenue
type ReportJob struct {
	Source StatsSource
	Log    *AppendLog
	Now    func() time.Time
}

func (j *ReportJob) Name() string { return config.JobReport }

func (j *ReportJob) Run(ctx context.Context) error {
	st, err := j.Source.Stats(ctx)
	ts := clock(j.Now).Format(time.DateTime)
	if err != nil {
		_ = j.Log.Append(fmt.Sprintf("%s - ERROR generating CRM report: %v", ts, err))
		return err
	}
	return j.Log.Append(fmt.Sprintf("%s - Report: %d customers, %d orders, $%s revenue",
		ts, st.Customers, st.Orders, st.Revenue))
}
