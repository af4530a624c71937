// Package session implements C11/C5's cookie-keyed session store: a thin
// wrapper over Redis that supports fixation-resistant renewal and purge.
// The one-shot `_flash` value is carried directly in its own cookie (see
// internal/handler) rather than through this store, since it must survive
// even requests with no authenticated session.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session-id cookie.
	CookieName = "session_id"

	userIDField = "user_id"

	sessionTTL = 24 * time.Hour
)

// ErrNoSession is returned when a session key carries no data (absent or
// expired).
var ErrNoSession = errors.New("session: no session")

// Store wraps a Redis client keyed by an opaque session id.
type Store struct {
	redis *redis.Client
}

// New builds a Store.
func New(client *redis.Client) *Store {
	return &Store{redis: client}
}

// NewSessionID returns a fresh, unpredictable session id.
func NewSessionID() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("session: NewSessionID: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// SetUserID establishes user_id on the session identified by sessionID,
// creating it if absent.
func (s *Store) SetUserID(ctx context.Context, sessionID, userID string) error {
	key := sessionKey(sessionID)
	if err := s.redis.HSet(ctx, key, userIDField, userID).Err(); err != nil {
		return fmt.Errorf("session: SetUserID: %w", err)
	}
	if err := s.redis.Expire(ctx, key, sessionTTL).Err(); err != nil {
		return fmt.Errorf("session: SetUserID: expire: %w", err)
	}
	return nil
}

// UserID returns the user_id stored under sessionID, or ErrNoSession if the
// session is absent or carries no user_id.
func (s *Store) UserID(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.redis.HGet(ctx, sessionKey(sessionID), userIDField).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session: UserID: %w", err)
	}
	return userID, nil
}

// Renew regenerates the session id, copying the existing payload to the new
// key and deleting the old one. Used on login to defeat session fixation.
// Returns the new session id.
func (s *Store) Renew(ctx context.Context, oldSessionID string) (string, error) {
	payload, err := s.redis.HGetAll(ctx, sessionKey(oldSessionID)).Result()
	if err != nil {
		return "", fmt.Errorf("session: Renew: read: %w", err)
	}

	newSessionID, err := NewSessionID()
	if err != nil {
		return "", fmt.Errorf("session: Renew: %w", err)
	}

	newKey := sessionKey(newSessionID)
	if len(payload) > 0 {
		if err := s.redis.HSet(ctx, newKey, payload).Err(); err != nil {
			return "", fmt.Errorf("session: Renew: write: %w", err)
		}
		if err := s.redis.Expire(ctx, newKey, sessionTTL).Err(); err != nil {
			return "", fmt.Errorf("session: Renew: expire: %w", err)
		}
	}

	if err := s.redis.Del(ctx, sessionKey(oldSessionID)).Err(); err != nil {
		return "", fmt.Errorf("session: Renew: delete old: %w", err)
	}

	return newSessionID, nil
}

// Purge deletes the session, used on logout.
func (s *Store) Purge(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: Purge: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string { return "session:" + sessionID }
