package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock backs DistributedLock with PostgreSQL advisory locks.
// It is the fallback on deployments that run without Redis.
//
// Advisory locks are session-scoped rather than TTL-based: the TTL
// argument is ignored, Extend is a no-op, and a lock is released when
// its connection drops. That matches the scheduler's needs, where a
// crashed holder should free the lock anyway.
type AdvisoryLock struct {
	db *DB
}

func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// advisoryKey maps a lock name onto the bigint keyspace advisory locks
// use. FNV-1a over the prefixed name keeps keys stable across restarts.
func advisoryKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("finsight:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries to take the lock without blocking.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryKey(name)).Scan(&acquired)
	return acquired, err
}

// Release frees the lock. Releasing a lock this session does not hold
// is not an error.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	var released bool
	return l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryKey(name)).Scan(&released)
}

// Extend is a no-op. Advisory locks are held until released or the
// session ends.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
