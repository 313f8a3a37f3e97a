package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type Restocker interface {
	UpdateLowStockProducts(ctx context.Context, threshold *int) (crm.RestockResult, error)
}

type LowStockJob struct {
	Products  Restocker
	Log       *AppendLog
	Threshold int
	Now       func() time.Time
}

func (j *LowStockJob) Name() string { return config.JobLowStock }

func (j *LowStockJob) Run(ctx context.Context) error {
	threshold := j.Threshold
	if threshold <= 0 {
		threshold = crm.DefaultLowStockThreshold
	}
	res, err := j.Products.UpdateLowStockProducts(ctx, &threshold)
	ts := clock(j.Now).Format(time.DateTime)
	if err != nil {
		_ = j.Log.Append(fmt.Sprintf("[%s] ERROR: %v", ts, err))
		return err
	}
	lines := make([]string, 0, len(res.Products)+1)
	for _, p := range res.Products {
		lines = append(lines, fmt.Sprintf("[%s] Product: %s, New Stock: %d", ts, p.Name, p.Stock))
	}
	lines = append(lines, fmt.Sprintf("[%s] %s", ts, res.Message))
	return j.Log.Append(lines...)
}
