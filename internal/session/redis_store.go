package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "logingate-session||"
	sessionsSetKey   = "logingate-sessions"

	fieldAuthenticated = "authenticated"
	fieldCreatedAt     = "created_at"
	fieldLastSeen      = "last_seen"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each session in a hash with the session TTL as key expiry.
// Session ids are also kept in a set, so the sweep can find them.
type RedisStore struct {
	redisClient *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (rs *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	cmd := rs.redisClient.HGetAll(ctx, sessionKey(id))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	fields := cmd.Val()
	createdAtStr, ok := fields[fieldCreatedAt]
	if !ok {
		// either missing, or a leftover of a touch that raced with a delete
		return nil, ErrSessionNotFound
	}

	createdAt, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session created at: %w", err)
	}
	lastSeen, err := strconv.ParseInt(fields[fieldLastSeen], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session last seen: %w", err)
	}

	return &Session{
		ID:            id,
		Authenticated: fields[fieldAuthenticated] == "1",
		CreatedAt:     time.UnixMilli(createdAt),
		LastSeen:      time.UnixMilli(lastSeen),
	}, nil
}

func (rs *RedisStore) Create(ctx context.Context, s *Session, ttl time.Duration) error {
	authenticated := "0"
	if s.Authenticated {
		authenticated = "1"
	}

	key := sessionKey(s.ID)
	if err := rs.redisClient.HSet(ctx, key,
		fieldAuthenticated, authenticated,
		fieldCreatedAt, strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
		fieldLastSeen, strconv.FormatInt(s.LastSeen.UnixMilli(), 10),
	).Err(); err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}

	if err := rs.redisClient.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire session: %w", err)
	}

	if err := rs.redisClient.SAdd(ctx, sessionsSetKey, s.ID).Err(); err != nil {
		return fmt.Errorf("redis add session id: %w", err)
	}

	return nil
}

func (rs *RedisStore) Touch(ctx context.Context, id string, lastSeen time.Time, ttl time.Duration) error {
	return rs.setField(ctx, id, fieldLastSeen, strconv.FormatInt(lastSeen.UnixMilli(), 10), ttl)
}

func (rs *RedisStore) MarkAuthenticated(ctx context.Context, id string, ttl time.Duration) error {
	return rs.setField(ctx, id, fieldAuthenticated, "1", ttl)
}

func (rs *RedisStore) setField(ctx context.Context, id, field, value string, ttl time.Duration) error {
	key := sessionKey(id)
	if err := rs.redisClient.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", field, err)
	}
	if err := rs.redisClient.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire session: %w", err)
	}
	return nil
}

func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	if err := rs.redisClient.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	// remove id from the set of sessions
	if err := rs.redisClient.SRem(ctx, sessionsSetKey, id).Err(); err != nil {
		return fmt.Errorf("redis remove session id: %w", err)
	}

	return nil
}

func (rs *RedisStore) IDs(ctx context.Context) ([]string, error) {
	cmd := rs.redisClient.SMembers(ctx, sessionsSetKey)
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}
	return cmd.Val(), nil
}
