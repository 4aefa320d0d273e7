package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/models"

	"github.com/redis/go-redis/v9"
)

// SessionState is the per-user cached day state: which route is active
// and which rooms were materialized for it. The Date field is the cache
// validity key; state from a previous day is evicted, never reused.
type SessionState struct {
	Date       string            `json:"date"` // YYYY-MM-DD
	TodayRoute string            `json:"todayRoute"`
	Rooms      []models.ChatRoom `json:"chatRooms"`
}

// SessionService keeps session state server-side in Redis. Identity
// itself travels in the JWT; this cache only holds what changes during
// the day (route choice, materialized rooms).
type SessionService struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewSessionService(rdb *redis.Client, ttlHours int) *SessionService {
	return &SessionService{
		rdb: rdb,
		ttl: time.Duration(ttlHours) * time.Hour,
		now: time.Now,
	}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// Load returns the user's day state. Stale-day entries are evicted
// before anything is handed back, so callers never see yesterday's
// route or rooms.
func (s *SessionService) Load(ctx context.Context, userID string) (SessionState, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return SessionState{}, nil
	}
	if err != nil {
		return SessionState{}, err
	}

	var state SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// unreadable cache entries are discarded, not surfaced
		s.rdb.Del(ctx, sessionKey(userID))
		return SessionState{}, nil
	}

	state, evicted := EvictStale(state, FormatDate(s.now()))
	if evicted {
		if err := s.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
			return SessionState{}, err
		}
	}
	return state, nil
}

// SaveRoute records today's route choice and its materialized rooms.
func (s *SessionService) SaveRoute(ctx context.Context, userID, routeID string, rooms []models.ChatRoom) error {
	state := SessionState{
		Date:       FormatDate(s.now()),
		TodayRoute: routeID,
		Rooms:      rooms,
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(userID), raw, s.ttl).Err()
}

// Clear drops the user's cached state at logout.
func (s *SessionService) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}

// EvictStale clears route and rooms when the cached date is not today.
// Both go together: rooms from a previous day are meaningless without
// their route.
func EvictStale(state SessionState, today string) (SessionState, bool) {
	if state.Date == "" || state.Date == today {
		return state, false
	}
	return SessionState{}, true
}
