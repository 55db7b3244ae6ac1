package users

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	// sha256("testpass")
	assert.Equal(t, "13d249f2cb4127b40cfa757866850278793f814ded3c587fe5889e889a7a9f6c", HashPassword("testpass"))
	assert.Len(t, HashPassword(""), 64)
	assert.Equal(t, HashPassword("same"), HashPassword("same"))
	assert.NotEqual(t, HashPassword("one"), HashPassword("two"))

	for i := 0; i < 10; i++ {
		plain := gofakeit.Password(true, true, true, false, false, 10)
		assert.NotEqual(t, plain, HashPassword(plain))
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("conn refused")
	err := error(&StoreError{Op: "user exists", Err: cause})

	assert.Equal(t, "credential store, user exists: conn refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "user exists", storeErr.Op)
}

func TestRepo_NoPool(t *testing.T) {
	repo := NewRepo(nil)
	ctx := context.Background()

	exists, err := repo.UserExists(ctx, "someone", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, exists)

	assert.False(t, repo.CreateUser(ctx, &User{Name: "someone", Password: "secret"}))
}

func TestTestStore(t *testing.T) {
	store := NewTestStore()
	ctx := context.Background()

	user := &User{
		Name:        "alice",
		PhoneNumber: "1123456789",
		Email:       gofakeit.Email(),
		Password:    "secret",
	}

	exists, err := store.UserExists(ctx, user.Name, user.Password)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.True(t, store.CreateUser(ctx, user))
	firstHash := store.PasswordHash(user.Name)
	assert.Equal(t, HashPassword("secret"), firstHash)
	assert.NotEqual(t, user.Password, firstHash)

	// duplicate name is rejected and the first hash stays
	assert.False(t, store.CreateUser(ctx, &User{Name: "alice", Password: "other"}))
	assert.Equal(t, firstHash, store.PasswordHash(user.Name))

	exists, err = store.UserExists(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.UserExists(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, exists)

	store.Err = errors.New("db down")
	_, err = store.UserExists(ctx, "alice", "secret")
	assert.Error(t, err)
	assert.False(t, store.CreateUser(ctx, &User{Name: "bob", Password: "x"}))
}
