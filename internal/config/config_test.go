package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_DRIVER", "KAFKA_BROKERS", "JOB_LOCK_TTL", "INACTIVITY_DAYS", "WORKER_CONCURRENCY"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.LockTTL)
	assert.Equal(t, 365*24*time.Hour, cfg.Jobs.InactivityWindow)
	assert.Equal(t, 4, cfg.Jobs.WorkerConcurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("JOB_LOCK_TTL", "90s")
	t.Setenv("JOB_TRIGGER_MAX_AGE", "-1h")
	t.Setenv("REMINDER_DAYS", "3")
	t.Setenv("WORKER_CONCURRENCY", "many")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.Jobs.LockTTL)
	assert.Equal(t, 6*time.Hour, cfg.Jobs.TriggerMaxAge, "non-positive durations fall back")
	assert.Equal(t, 72*time.Hour, cfg.Jobs.ReminderWindow)
	assert.Equal(t, 4, cfg.Jobs.WorkerConcurrency)
}

func TestSchedules(t *testing.T) {
	t.Setenv("JOB_HEARTBEAT_SCHEDULE", "")
	t.Setenv("JOB_LOW_STOCK_SCHEDULE", " */30 * * * * ")

	s := Load().Jobs.Schedules
	assert.Len(t, s, len(JobNames))
	assert.Equal(t, "", s[JobHeartbeat], "set but empty disables")
	assert.Equal(t, "*/30 * * * *", s[JobLowStock])
	assert.Equal(t, defaultSchedules[JobReport], s[JobReport])
}
