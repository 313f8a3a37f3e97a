package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may delete the lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker hands out per-job locks so a job never runs twice at once across
// the scheduler, workers and crmctl.
type Locker struct{ RDB *redis.Client }

// Acquire returns ok=false when another holder has the lock. The lock
// expires after ttl even if release is never called.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := fmt.Sprintf(KeyJobLock, name)
	token := uuid.NewString()
	ok, err = l.RDB.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, ok, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.RDB, []string{key}, token).Err()
	}, true, nil
}

// Deduper remembers processed event ids for TTLDedup.
type Deduper struct {
	RDB     *redis.Client
	Service string
}

// FirstSeen marks id as processed and reports whether it was new.
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}
