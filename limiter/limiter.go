package limiter

import (
	"context"
	"time"
)

// DefaultHourlyLimit is the fixed per-room send quota.
const DefaultHourlyLimit = 5

// Store persists bucket counters. Two drivers exist: an in-memory store
// for tests and single-node runs, and a Redis fixed-window store for
// deployments.
type Store interface {
	// Incr bumps the bucket counter and returns the new count. The ttl
	// bounds how long a dead bucket is kept around.
	Incr(ctx context.Context, key string, ttl time.Duration) (int, error)
	// Count reads the bucket counter without modifying it.
	Count(ctx context.Context, key string) (int, error)
}

// RoomQuota tracks per-room, per-hour message sends. A bucket is one
// wall-clock hour; a new hour always starts at zero. The quota is local
// to this deployment's store and deliberately not shared with the
// lockout ledger: it is a UX guard, not a security control.
type RoomQuota struct {
	store Store
	limit int
	now   func() time.Time
}

func NewRoomQuota(store Store, limit int) *RoomQuota {
	if limit <= 0 {
		limit = DefaultHourlyLimit
	}
	return &RoomQuota{store: store, limit: limit, now: time.Now}
}

// BucketKey builds the hour-granularity counter key for a room.
func BucketKey(roomID string, t time.Time) string {
	return roomID + "_" + t.Format("2006-01-02-15")
}

func (q *RoomQuota) Limit() int {
	return q.limit
}

// CanSend reports whether the room still has quota in the current hour.
// Callers must check this before RecordSend; RecordSend itself does not
// enforce the ceiling.
func (q *RoomQuota) CanSend(ctx context.Context, roomID string) (bool, error) {
	count, err := q.store.Count(ctx, BucketKey(roomID, q.now()))
	if err != nil {
		return false, err
	}
	return count < q.limit, nil
}

// Remaining reads how much quota the room still has this hour without
// consuming any.
func (q *RoomQuota) Remaining(ctx context.Context, roomID string) (int, error) {
	count, err := q.store.Count(ctx, BucketKey(roomID, q.now()))
	if err != nil {
		return 0, err
	}
	remaining := q.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RecordSend counts one send and returns the remaining quota for the
// bucket. Remaining never goes below zero even if a caller skipped
// CanSend.
func (q *RoomQuota) RecordSend(ctx context.Context, roomID string) (int, error) {
	// keep the bucket around past its own hour so late reads still see it
	count, err := q.store.Incr(ctx, BucketKey(roomID, q.now()), 2*time.Hour)
	if err != nil {
		return 0, err
	}
	remaining := q.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
