package jobs

import (
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

// Build wires the five maintenance jobs to svc, logging under cfg.LogDir.
func Build(cfg config.Jobs, svc *crm.Service, now func() time.Time) []Job {
	return []Job{
		&CleanupJob{Customers: svc, Log: NewAppendLog(cfg.LogDir, CleanupLogFile), Window: cfg.InactivityWindow, Now: now},
		&ReminderJob{Orders: svc, Log: NewAppendLog(cfg.LogDir, RemindersLogFile), Window: cfg.ReminderWindow, Now: now},
		&HeartbeatJob{Probe: svc, Log: NewAppendLog(cfg.LogDir, HeartbeatLogFile), Now: now},
		&LowStockJob{Products: svc, Log: NewAppendLog(cfg.LogDir, LowStockLogFile), Threshold: cfg.RestockThreshold, Now: now},
		&ReportJob{Source: svc, Log: NewAppendLog(cfg.LogDir, ReportLogFile), Now: now},
	}
}
