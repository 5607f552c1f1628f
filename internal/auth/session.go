package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkoval/tasktrack/internal/models"
)

const (
	// SessionTTL is how long a plain login stays valid.
	SessionTTL = 24 * time.Hour
	// RememberTTL is the extended lifetime used when "remember me"
	// is checked at login.
	RememberTTL = 30 * 24 * time.Hour
	// FlashTTL bounds how long unconsumed flash messages are kept.
	FlashTTL = time.Hour
)

// SessionStore wraps Redis for session and flash-message management.
// The session id itself lives in a browser cookie managed by the
// middleware package; only the sid -> user binding and the flash queue
// live here, so logging out does not destroy pending flashes.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Login binds the session to a user id.
func (s *SessionStore) Login(ctx context.Context, sid, userID string, remember bool) error {
	ttl := SessionTTL
	if remember {
		ttl = RememberTTL
	}
	return s.rdb.Set(ctx, "session:"+sid, userID, ttl).Err()
}

// Logout removes the user binding. The flash queue is left intact.
func (s *SessionStore) Logout(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, "session:"+sid).Err()
}

// UserID returns the user bound to the session, or "" if the session
// is anonymous or expired.
func (s *SessionStore) UserID(ctx context.Context, sid string) (string, error) {
	val, err := s.rdb.Get(ctx, "session:"+sid).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// AddFlash appends a one-time notification to the session's flash queue.
func (s *SessionStore) AddFlash(ctx context.Context, sid string, f models.Flash) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	key := "flash:" + sid
	if err := s.rdb.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, FlashTTL).Err()
}

// TakeFlashes drains the session's flash queue and returns the entries
// in the order they were added.
func (s *SessionStore) TakeFlashes(ctx context.Context, sid string) ([]models.Flash, error) {
	key := "flash:" + sid
	pipe := s.rdb.TxPipeline()
	items := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	var flashes []models.Flash
	for _, raw := range items.Val() {
		var f models.Flash
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("decode flash: %w", err)
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}
