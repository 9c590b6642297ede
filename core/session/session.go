// Package session holds the authenticated state of a portal user: the backend bearer token
// and the cached user profile. It is passed explicitly to whatever needs it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session already expired")
)

type (
	Session struct {
		ID          string    `json:"id" db:"id"`
		AccessToken string    `json:"token" db:"token"`
		Profile     user.User `json:"user" db:"-"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
		ExpiresAt   time.Time `json:"expires_at" db:"expires_at"` // UTC
	}

	// Store persists sessions.
	Store interface {
		Save(ctx context.Context, sess Session) error
		Get(ctx context.Context, id string) (Session, error)
		Delete(ctx context.Context, id string) error
		// Purge deletes the sessions that expired before t and returns how many were deleted.
		Purge(ctx context.Context, t time.Time) (int64, error)
	}
)

// Token returns the backend bearer token, or "" when there is none.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}

// User returns the cached profile of the session owner.
func (s *Session) User() user.User {
	if s == nil {
		return user.User{}
	}
	return s.Profile
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Clear forgets the token and the profile.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.AccessToken = ""
	s.Profile = user.User{}
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Manager opens, resolves and closes sessions.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// Open starts a session for the user the backend authenticated with token.
func (m *Manager) Open(ctx context.Context, token string, profile user.User) (Session, error) {
	now := m.now().UTC()
	sess := Session{
		ID:          uuid.New().String(),
		AccessToken: token,
		Profile:     profile,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return Session{}, pkgerrors.Wrap(err, "saving session")
	}
	return sess, nil
}

// Resolve returns the live session with id. Expired sessions are deleted and reported as ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, "getting session")
	}
	if sess.Expired(m.now()) {
		if err = m.store.Delete(ctx, id); err != nil {
			return nil, pkgerrors.Wrap(err, "deleting expired session")
		}
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Close ends the session with id.
func (m *Manager) Close(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil && err != ErrNotFound {
		return pkgerrors.Wrap(err, "deleting session")
	}
	return nil
}

// Purge deletes every expired session.
func (m *Manager) Purge(ctx context.Context) (int64, error) {
	n, err := m.store.Purge(ctx, m.now())
	return n, pkgerrors.Wrap(err, "purging sessions")
}
