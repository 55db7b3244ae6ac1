package users

import (
	"context"
	"sync"
)

// TestStore is an in-memory credential store with the same semantics as Repo.
type TestStore struct {
	mu    sync.Mutex
	users map[string]storedUser

	// Err, when set, is returned by UserExists and makes CreateUser fail.
	Err error
}

type storedUser struct {
	phoneNumber  string
	email        string
	passwordHash string
}

func NewTestStore() *TestStore {
	return &TestStore{
		users: map[string]storedUser{},
	}
}

func (s *TestStore) UserExists(_ context.Context, name, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return false, &StoreError{Op: "user exists", Err: s.Err}
	}

	u, ok := s.users[name]
	return ok && u.passwordHash == HashPassword(password), nil
}

func (s *TestStore) CreateUser(_ context.Context, user *User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return false
	}
	if _, taken := s.users[user.Name]; taken {
		return false
	}

	s.users[user.Name] = storedUser{
		phoneNumber:  user.PhoneNumber,
		email:        user.Email,
		passwordHash: HashPassword(user.Password),
	}
	return true
}

// PasswordHash returns the stored hash for name, or "" if there is no such user.
func (s *TestStore) PasswordHash(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[name].passwordHash
}
