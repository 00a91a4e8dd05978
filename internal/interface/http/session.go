package http

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE
// Signed and encrypted cookie sessions. A single SESSION_SECRET env var is
// expanded into separate authentication and encryption keys with HKDF so the
// two concerns never share key material.
// ══════════════════════════════════════════════════════════════════════════════

const (
	sessionKeyLogin       = "login"
	sessionKeyDisplayName = "display_name"
	sessionKeyOAuthState  = "oauth_state"
)

// ErrNoSession is returned when the request carries no authenticated session.
var ErrNoSession = errors.New("http: no authenticated session")

// SessionConfig holds cookie session settings.
type SessionConfig struct {
	// Secret is the master secret keys are derived from. Minimum 16 bytes.
	Secret string

	// CookieName is the session cookie name.
	CookieName string

	// MaxAge is the session lifetime.
	MaxAge time.Duration

	// Secure marks the cookie Secure (HTTPS only).
	Secure bool
}

// SessionStore wraps a cookie store with typed accessors for the login
// session and the OAuth state.
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionStore derives cookie keys from the master secret and builds
// the store.
func NewSessionStore(cfg SessionConfig) (*SessionStore, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("http: session secret must be at least 16 bytes")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "connect_session"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}

	authKey, err := deriveKey(cfg.Secret, "session-auth")
	if err != nil {
		return nil, fmt.Errorf("http: derive auth key: %w", err)
	}
	encKey, err := deriveKey(cfg.Secret, "session-enc")
	if err != nil {
		return nil, fmt.Errorf("http: derive encryption key: %w", err)
	}

	store := sessions.NewCookieStore(authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionStore{store: store, name: cfg.CookieName}, nil
}

// deriveKey expands the master secret into a 32-byte key bound to a purpose.
func deriveKey(secret, purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("42connect/"+purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SignIn stores the authenticated login in the session cookie.
func (s *SessionStore) SignIn(w http.ResponseWriter, r *http.Request, login, displayName string) error {
	sess, _ := s.store.Get(r, s.name)
	sess.Values[sessionKeyLogin] = login
	sess.Values[sessionKeyDisplayName] = displayName
	delete(sess.Values, sessionKeyOAuthState)
	return sess.Save(r, w)
}

// SignOut drops the session cookie.
func (s *SessionStore) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, s.name)
	sess.Options.MaxAge = -1
	sess.Values = make(map[interface{}]interface{})
	return sess.Save(r, w)
}

// CurrentLogin returns the authenticated login or ErrNoSession.
func (s *SessionStore) CurrentLogin(r *http.Request) (string, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return "", ErrNoSession
	}

	login, ok := sess.Values[sessionKeyLogin].(string)
	if !ok || login == "" {
		return "", ErrNoSession
	}
	return login, nil
}

// DisplayName returns the display name stored at sign-in, if any.
func (s *SessionStore) DisplayName(r *http.Request) string {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return ""
	}
	name, _ := sess.Values[sessionKeyDisplayName].(string)
	return name
}

// SetOAuthState stores the state nonce for the pending OAuth redirect.
func (s *SessionStore) SetOAuthState(w http.ResponseWriter, r *http.Request, state string) error {
	sess, _ := s.store.Get(r, s.name)
	sess.Values[sessionKeyOAuthState] = state
	return sess.Save(r, w)
}

// ConsumeOAuthState returns the stored state nonce and removes it.
// A state survives exactly one callback.
func (s *SessionStore) ConsumeOAuthState(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return "", err
	}

	state, ok := sess.Values[sessionKeyOAuthState].(string)
	if !ok || state == "" {
		return "", errors.New("http: no pending oauth state")
	}

	delete(sess.Values, sessionKeyOAuthState)
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return state, nil
}
