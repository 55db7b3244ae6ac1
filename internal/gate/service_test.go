package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/2beens/logingate/internal/gate"
	"github.com/2beens/logingate/internal/session"
	"github.com/2beens/logingate/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name               string
		existsResult       bool
		existsErr          error
		expectAuthenticate bool
		authenticateErr    error
		expectedOK         bool
		expectErr          bool
	}{
		{
			name:               "ValidCredentials",
			existsResult:       true,
			expectAuthenticate: true,
			expectedOK:         true,
		},
		{
			name:         "WrongCredentials",
			existsResult: false,
			expectedOK:   false,
		},
		{
			name:      "StoreFailure",
			existsErr: &users.StoreError{Op: "user exists", Err: users.ErrStoreUnavailable},
			expectErr: true,
		},
		{
			name:               "SessionStoreFailure",
			existsResult:       true,
			expectAuthenticate: true,
			authenticateErr:    errors.New("redis down"),
			expectErr:          true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := NewMockcredentialStore(ctrl)
			sessions := NewMocksessionManager(ctrl)
			service := gate.NewService(store, sessions)

			sess := &session.Session{ID: "sid"}
			store.EXPECT().
				UserExists(gomock.Any(), "alice", "secret").
				Return(tc.existsResult, tc.existsErr)
			if tc.expectAuthenticate {
				sessions.EXPECT().
					Authenticate(gomock.Any(), sess).
					DoAndReturn(func(_ context.Context, s *session.Session) error {
						if tc.authenticateErr != nil {
							return tc.authenticateErr
						}
						s.Authenticated = true
						return nil
					})
			}

			ok, err := service.Login(ctx, sess, "alice", "secret")
			if tc.expectErr {
				require.Error(t, err)
				assert.False(t, ok)
				assert.False(t, sess.Authenticated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedOK, sess.Authenticated)
		})
	}
}

func TestService_LoginFailureKeepsSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockcredentialStore(ctrl)
	service := gate.NewService(store, NewMocksessionManager(ctrl))

	sess := &session.Session{ID: "sid", Authenticated: true}
	store.EXPECT().UserExists(gomock.Any(), "alice", "wrong").Return(false, nil)

	ok, err := service.Login(context.Background(), sess, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, sess.Authenticated)
}

func TestService_CheckAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := gate.NewService(NewMockcredentialStore(ctrl), NewMocksessionManager(ctrl))

	assert.False(t, service.CheckAuth(nil))
	assert.False(t, service.CheckAuth(&session.Session{ID: "sid"}))
	assert.True(t, service.CheckAuth(&session.Session{ID: "sid", Authenticated: true}))
}

func TestService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockcredentialStore(ctrl)
	service := gate.NewService(store, NewMocksessionManager(ctrl))

	user := &users.User{Name: "alice", Password: "secret"}
	gomock.InOrder(
		store.EXPECT().CreateUser(gomock.Any(), user).Return(true),
		store.EXPECT().CreateUser(gomock.Any(), user).Return(false),
	)

	assert.True(t, service.Register(context.Background(), user))
	assert.False(t, service.Register(context.Background(), user))
}

func TestService_Logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	sessions := NewMocksessionManager(ctrl)
	service := gate.NewService(NewMockcredentialStore(ctrl), sessions)

	sess := &session.Session{ID: "sid", Authenticated: true}
	sessions.EXPECT().Destroy(gomock.Any(), sess).Return(nil)
	require.NoError(t, service.Logout(context.Background(), sess))

	sessions.EXPECT().Destroy(gomock.Any(), sess).Return(errors.New("redis down"))
	assert.Error(t, service.Logout(context.Background(), sess))
}
