package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. The scheduler
// takes a lock before each cycle so only one replica enqueues the due
// schedules.
type DistributedLock interface {
	// Acquire tries to take the named lock without blocking. False
	// means another instance holds it. How strictly the TTL is
	// honoured depends on the backend.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release frees the lock. Best effort; releasing a lock this
	// instance does not hold is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a held lock. Backends without
	// TTLs treat this as a no-op; backends with owner tracking fail
	// when the lock is held elsewhere.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks the lock backend.
	Ping(ctx context.Context) error
}
