package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	mock.ExpectHGetAll(sessionKeyPrefix + "unknown").SetVal(map[string]string{})
	s, err := store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, s)

	// leftover of a touch on a deleted session
	mock.ExpectHGetAll(sessionKeyPrefix + "partial").SetVal(map[string]string{
		fieldLastSeen: "1700000000000",
	})
	_, err = store.Get(ctx, "partial")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	mock.ExpectHGetAll(sessionKeyPrefix + "sid").SetVal(map[string]string{
		fieldAuthenticated: "1",
		fieldCreatedAt:     "1700000000000",
		fieldLastSeen:      "1700000060000",
	})
	s, err = store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "sid", s.ID)
	assert.True(t, s.Authenticated)
	assert.Equal(t, time.UnixMilli(1700000000000), s.CreatedAt)
	assert.Equal(t, time.UnixMilli(1700000060000), s.LastSeen)

	mock.ExpectHGetAll(sessionKeyPrefix + "sid").SetVal(map[string]string{
		fieldCreatedAt: "not-a-number",
		fieldLastSeen:  "1700000060000",
	})
	_, err = store.Get(ctx, "sid")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	mock.ExpectHGetAll(sessionKeyPrefix + "sid").SetErr(errors.New("connection refused"))
	_, err = store.Get(ctx, "sid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Create(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	now := time.UnixMilli(1700000000000)
	s := &Session{ID: "sid", CreatedAt: now, LastSeen: now}
	key := sessionKeyPrefix + "sid"

	mock.ExpectHSet(key,
		fieldAuthenticated, "0",
		fieldCreatedAt, "1700000000000",
		fieldLastSeen, "1700000000000",
	).SetVal(3)
	mock.ExpectExpire(key, 15*time.Minute).SetVal(true)
	mock.ExpectSAdd(sessionsSetKey, "sid").SetVal(1)

	require.NoError(t, store.Create(ctx, s, 15*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectHSet(key,
		fieldAuthenticated, "0",
		fieldCreatedAt, "1700000000000",
		fieldLastSeen, "1700000000000",
	).SetErr(redis.ErrClosed)
	assert.ErrorIs(t, store.Create(ctx, s, 15*time.Minute), redis.ErrClosed)
}

func TestRedisStore_TouchAndMarkAuthenticated(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()
	key := sessionKeyPrefix + "sid"

	mock.ExpectHSet(key, fieldLastSeen, "1700000090000").SetVal(0)
	mock.ExpectExpire(key, 15*time.Minute).SetVal(true)
	require.NoError(t, store.Touch(ctx, "sid", time.UnixMilli(1700000090000), 15*time.Minute))

	mock.ExpectHSet(key, fieldAuthenticated, "1").SetVal(0)
	mock.ExpectExpire(key, 15*time.Minute).SetVal(true)
	require.NoError(t, store.MarkAuthenticated(ctx, "sid", 15*time.Minute))

	mock.ExpectHSet(key, fieldAuthenticated, "1").SetVal(0)
	mock.ExpectExpire(key, 15*time.Minute).SetErr(errors.New("timeout"))
	err := store.MarkAuthenticated(ctx, "sid", 15*time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_DeleteAndIDs(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	mock.ExpectSMembers(sessionsSetKey).SetVal([]string{"a", "b"})
	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	mock.ExpectDel(sessionKeyPrefix + "a").SetVal(1)
	mock.ExpectSRem(sessionsSetKey, "a").SetVal(1)
	require.NoError(t, store.Delete(ctx, "a"))

	mock.ExpectSMembers(sessionsSetKey).SetErr(errors.New("oops"))
	_, err = store.IDs(ctx)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
