package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"

	"mindful-resolve/internal/model"
)

// SessionCache keeps short-lived session snapshots for the waiting client's
// polls and holds the per-session generation lock.
type SessionCache struct {
	client         *redisv9.Client
	snapshotTTL    time.Duration
	dirtyMarkerTTL time.Duration
	lockTTL        time.Duration
}

func NewSessionCache(client *redisv9.Client, snapshotTTL, dirtyMarkerTTL, lockTTL time.Duration) *SessionCache {
	if snapshotTTL <= 0 {
		snapshotTTL = 30 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &SessionCache{
		client:         client,
		snapshotTTL:    snapshotTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
		lockTTL:        lockTTL,
	}
}

func (c *SessionCache) GetSession(ctx context.Context, code string) (*model.Session, bool, error) {
	raw, err := c.client.Get(ctx, c.sessionKey(code)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session failed: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached session failed: %w", err)
	}
	return &session, true, nil
}

func (c *SessionCache) SetSession(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.sessionKey(session.SessionCode), payload, c.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (c *SessionCache) DeleteSession(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, c.sessionKey(code)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

// MarkDirty stops readers from repopulating the snapshot while a write settles.
func (c *SessionCache) MarkDirty(ctx context.Context, code string) error {
	if err := c.client.Set(ctx, c.dirtyKey(code), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *SessionCache) IsDirty(ctx context.Context, code string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

// releaseLockScript deletes the lock only while it still holds the caller's token.
var releaseLockScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireGenerationLock returns acquired=false when another caller already
// holds the lock. The returned token must be passed to ReleaseGenerationLock.
func (c *SessionCache) AcquireGenerationLock(ctx context.Context, code string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, c.lockKey(code), token, c.lockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis acquire generation lock failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseGenerationLock is a no-op when the lock expired and was taken by
// another holder.
func (c *SessionCache) ReleaseGenerationLock(ctx context.Context, code, token string) error {
	if err := releaseLockScript.Run(ctx, c.client, []string{c.lockKey(code)}, token).Err(); err != nil {
		return fmt.Errorf("redis release generation lock failed: %w", err)
	}
	return nil
}

func (c *SessionCache) sessionKey(code string) string {
	return fmt.Sprintf("mediation:session:%s", code)
}

func (c *SessionCache) dirtyKey(code string) string {
	return fmt.Sprintf("mediation:session:dirty:%s", code)
}

func (c *SessionCache) lockKey(code string) string {
	return fmt.Sprintf("mediation:session:lock:%s", code)
}
