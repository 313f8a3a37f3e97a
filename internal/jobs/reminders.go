package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type OrderBook interface {
	Orders(ctx context.Context, f crm.OrderFilter, args crm.PageArgs) (crm.Page[crm.Order], error)
	Customer(ctx context.Context, id string) (crm.Customer, error)
}

// ReminderJob logs one reminder per order dated within Window, walking the
// order list page by page through the same cursor contract as the API.
type ReminderJob struct {
	Orders OrderBook
	Log    *AppendLog
	Window time.Duration
	Now    func() time.Time
}

func (j *ReminderJob) Name() string { return config.JobReminders }

func (j *ReminderJob) Run(ctx context.Context) error {
	window := j.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	now := clock(j.Now)
	ts := now.Format(time.DateTime)
	since := now.Add(-window)

	lines, err := j.collect(ctx, since, ts)
	if err != nil {
		_ = j.Log.Append(fmt.Sprintf("[%s] ERROR: %v", ts, err))
		return err
	}
	return j.Log.Append(lines...)
}

func (j *ReminderJob) collect(ctx context.Context, since time.Time, ts string) ([]string, error) {
	first := crm.MaxPageSize
	args := crm.PageArgs{First: &first, OrderBy: "orderDate"}
	filter := crm.OrderFilter{OrderDateGte: &since}
	emails := map[string]string{}

	var lines []string
	for {
		page, err := j.Orders.Orders(ctx, filter, args)
		if err != nil {
			return nil, err
		}
		for _, o := range page.Nodes() {
			email, ok := emails[o.CustomerID]
			if !ok {
				c, err := j.Orders.Customer(ctx, o.CustomerID)
				switch {
				case errors.Is(err, crm.ErrNotFound):
					email = "N/A"
				case err != nil:
					return nil, err
				default:
					email = c.Email
				}
				emails[o.CustomerID] = email
			}
			lines = append(lines, fmt.Sprintf("[%s] Order ID: %s, Customer Email: %s", ts, o.ID, email))
		}
		if !page.HasNextPage {
			return lines, nil
		}
		args.After = page.EndCursor()
	}
}
