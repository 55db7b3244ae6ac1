package gate

import (
	"context"
	"fmt"

	"github.com/2beens/logingate/internal/session"
	"github.com/2beens/logingate/internal/telemetry/tracing"
	"github.com/2beens/logingate/internal/users"

	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=gate_test

type credentialStore interface {
	UserExists(ctx context.Context, name, password string) (bool, error)
	CreateUser(ctx context.Context, user *users.User) bool
}

type sessionManager interface {
	Authenticate(ctx context.Context, s *session.Session) error
	Destroy(ctx context.Context, s *session.Session) error
}

// Service ties credential checks to the caller's session.
type Service struct {
	store    credentialStore
	sessions sessionManager
}

func NewService(store credentialStore, sessions sessionManager) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
	}
}

// Login marks sess as authenticated when the credentials match a stored user.
// On mismatch the session is left as it was.
func (s *Service) Login(ctx context.Context, sess *session.Session, name, password string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.login")
	span.SetAttributes(attribute.String("user", name))
	defer func() {
		tracing.EndSpan(span, err, "ok")
	}()

	exists, err := s.store.UserExists(ctx, name, password)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if err := s.sessions.Authenticate(ctx, sess); err != nil {
		return false, fmt.Errorf("authenticate session: %w", err)
	}

	return true, nil
}

func (s *Service) CheckAuth(sess *session.Session) bool {
	return sess != nil && sess.Authenticated
}

// Register stores a new user. It reports false for duplicates and for
// store failures alike.
func (s *Service) Register(ctx context.Context, user *users.User) bool {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.register")
	defer span.End()
	span.SetAttributes(attribute.String("user", user.Name))

	return s.store.CreateUser(ctx, user)
}

func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "gate.logout")
	defer span.End()

	return s.sessions.Destroy(ctx, sess)
}
