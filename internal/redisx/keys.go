package redisx

import "time"

const (
	// Job lock: lock:job:{job} -> random token of the holder
	KeyJobLock = "lock:job:%s"

	// Last run of a job: hash job:last:{job} {result, detail, at}
	KeyJobLastRun = "job:last:%s"

	// Dedup trigger processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup   = 48 * time.Hour
	TTLLastRun = 30 * 24 * time.Hour
)
