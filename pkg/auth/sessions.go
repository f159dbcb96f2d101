package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"jailroster/internal/util"
	"jailroster/pkg/domain"
	"jailroster/pkg/store"
)

// DefaultSessionTTL is the sliding session window used when config does
// not override it.
const DefaultSessionTTL = 8 * time.Hour

// SessionManager issues and resolves sessions. Session state lives
// server-side keyed by an opaque id; the client-facing token is an
// HS256-signed JWT carrying only that id, so cookies cannot be forged
// or inspected.
type SessionManager struct {
	sessions store.SessionStore
	secret   []byte
	ttl      time.Duration
}

// NewSessionManager wires a session store with the signing secret.
func NewSessionManager(sessions store.SessionStore, secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// Issue creates a session for the user and returns the signed token.
func (m *SessionManager) Issue(user domain.User) (string, domain.Session, error) {
	session := domain.Session{
		ID:        util.NewID(),
		Username:  user.Username,
		Role:      user.Role,
		Name:      user.Name,
		LoginTime: time.Now().UTC(),
	}
	if err := m.sessions.Put(session, m.ttl); err != nil {
		return "", domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": session.ID,
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, session, nil
}

// Resolve verifies a token and loads the session it references.
func (m *SessionManager) Resolve(token string) (domain.Session, bool) {
	id, ok := m.sessionID(token)
	if !ok {
		return domain.Session{}, false
	}
	session, found, err := m.sessions.Get(id)
	if err != nil || !found {
		return domain.Session{}, false
	}
	return session, true
}

// Revoke discards the session a token references. Unconditional: an
// invalid token is not an error.
func (m *SessionManager) Revoke(token string) error {
	id, ok := m.sessionID(token)
	if !ok {
		return nil
	}
	return m.sessions.Delete(id)
}

func (m *SessionManager) sessionID(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}
	id, _ := claims["sid"].(string)
	if id == "" {
		return "", false
	}
	return id, true
}
