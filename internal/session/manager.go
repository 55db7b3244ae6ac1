package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/logingate/pkg"

	log "github.com/sirupsen/logrus"
)

const sessionIDLength = 32

// Manager owns the session lifecycle: creation, sliding expiry, the
// authenticated flag and the expiry sweep.
type Manager struct {
	store        Store
	ttl          time.Duration
	cookieName   string
	secureCookie bool

	now            func() time.Time
	RandStringFunc func(s int) (string, error)
}

func NewManager(store Store, ttl time.Duration, cookieName string, secureCookie bool) *Manager {
	return &Manager{
		store:          store,
		ttl:            ttl,
		cookieName:     cookieName,
		secureCookie:   secureCookie,
		now:            time.Now,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the live session for id. Expired sessions are removed and
// reported as ErrSessionNotFound.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Expired(m.now(), m.ttl) {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Errorf("delete expired session: %s", err)
		}
		return nil, ErrSessionNotFound
	}

	return s, nil
}

// New creates and stores a fresh, unauthenticated session.
func (m *Manager) New(ctx context.Context) (*Session, error) {
	id, err := m.RandStringFunc(sessionIDLength)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := m.store.Create(ctx, s, m.ttl); err != nil {
		return nil, err
	}

	return s, nil
}

// Touch moves the session expiry forward by the full ttl.
func (m *Manager) Touch(ctx context.Context, s *Session) error {
	now := m.now()
	if err := m.store.Touch(ctx, s.ID, now, m.ttl); err != nil {
		return err
	}
	s.LastSeen = now
	return nil
}

// Resolve returns the session named by id, touched, or a new one when id
// is empty, unknown or expired.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.New(ctx)
	}

	s, err := m.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.New(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := m.Touch(ctx, s); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return m.New(ctx)
		}
		return nil, err
	}

	return s, nil
}

// Authenticate is the only place a session becomes authenticated.
func (m *Manager) Authenticate(ctx context.Context, s *Session) error {
	if err := m.store.MarkAuthenticated(ctx, s.ID, m.ttl); err != nil {
		return err
	}
	s.Authenticated = true
	return nil
}

func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return err
	}
	s.Authenticated = false
	return nil
}

// ScanAndClean removes every session idle for longer than the ttl and
// returns how many were removed.
func (m *Manager) ScanAndClean(ctx context.Context) (int, error) {
	ids, err := m.store.IDs(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	var toRemove []string
	for _, id := range ids {
		s, err := m.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// dropped by the store, only the id is left
				toRemove = append(toRemove, id)
			} else {
				log.Errorf("session sweep, get [%s]: %s", id, err)
			}
			continue
		}
		if s.Expired(now, m.ttl) {
			toRemove = append(toRemove, id)
		}
	}

	removed := 0
	for _, id := range toRemove {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Errorf("session sweep, delete [%s]: %s", id, err)
			continue
		}
		removed++
	}

	return removed, nil
}

// SessionID reads the session id from the request cookie.
func (m *Manager) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (m *Manager) Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.LastSeen.Add(m.ttl),
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
