package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of the bearer token. The client never
// verifies signatures; the backend owns the secret and the claims are only
// used for routing decisions (user type) and the expiry check.
type Claims struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// Session is the process-wide login state. All token mutations flow through
// SetToken, which writes through to the Store; nothing else touches the
// persisted value.
type Session struct {
	store Store
	log   *slog.Logger

	mu        sync.RWMutex
	token     string
	claims    *Claims // decode cache, invalidated when the token changes
	pushToken string
}

// New loads the persisted token, if any. An expired or undecodable persisted
// token is treated as absent and the stored value is cleared so the next
// start is clean.
func New(store Store, log *slog.Logger) *Session {
	s := &Session{store: store, log: log}
	tok, err := store.Load()
	if err != nil {
		log.Warn("token load failed", "error", err)
		return s
	}
	if tok == "" {
		return s
	}
	claims, err := decodeClaims(tok)
	if err != nil {
		log.Warn("clearing malformed persisted token", "error", err)
		if err := store.Clear(); err != nil {
			log.Warn("token clear failed", "error", err)
		}
		return s
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		log.Info("clearing expired persisted token", "expired_at", claims.ExpiresAt.Time)
		if err := store.Clear(); err != nil {
			log.Warn("token clear failed", "error", err)
		}
		return s
	}
	s.token = tok
	s.claims = claims
	return s
}

// Token returns the current bearer token, "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// SetToken is the single write path for the token. An empty token logs out
// and deletes the persisted value. A token that does not decode is treated
// the same way: it never enters the session or the store.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		s.token = ""
		s.claims = nil
		return s.store.Clear()
	}
	claims, err := decodeClaims(token)
	if err != nil {
		s.log.Warn("rejecting undecodable token", "error", err)
		s.token = ""
		s.claims = nil
		return s.store.Clear()
	}
	s.token = token
	s.claims = claims
	return s.store.Save(token)
}

// Claims returns the decoded claims for the current token, decoding lazily
// and caching per token value. Returns nil when logged out or the token is
// malformed.
func (s *Session) Claims() *Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims != nil {
		return s.claims
	}
	if s.token == "" {
		return nil
	}
	claims, err := decodeClaims(s.token)
	if err != nil {
		s.log.Warn("token decode failed", "error", err)
		return nil
	}
	s.claims = claims
	return claims
}

func (s *Session) SetPushToken(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushToken = t
}

func (s *Session) PushToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushToken
}

func decodeClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
