package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log file names under Jobs.LogDir.
const (
	CleanupLogFile   = "customer_cleanup_log.txt"
	RemindersLogFile = "order_reminders_log.txt"
	HeartbeatLogFile = "crm_heartbeat_log.txt"
	LowStockLogFile  = "low_stock_updates_log.txt"
	ReportLogFile    = "crm_report_log.txt"
)

// AppendLog is an append-only text file, one event per line. The file is
// opened per write so rotation by an external tool is safe.
type AppendLog struct {
	path string
	mu   sync.Mutex
}

func NewAppendLog(dir, name string) *AppendLog {
	return &AppendLog{path: filepath.Join(dir, name)}
}

func (l *AppendLog) Path() string { return l.path }

// Append writes all lines with a single write call.
func (l *AppendLog) Append(lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(strings.TrimRight(line, "\n"))
		b.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", l.path, err)
	}
	return f.Close()
}
