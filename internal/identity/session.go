// Package identity holds the storefront's signed-in user. The bearer token is
// issued by the backend; the storefront reads its claims but cannot verify
// the signature, since only the backend holds the key.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	toml "github.com/pelletier/go-toml/v2"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// DefaultSessionPath is where the session survives restarts unless
// configured otherwise.
const DefaultSessionPath = "~/.config/gamestore/session.toml"

// User describes the signed-in account as read from the token.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type claims struct {
	UserID   any    `json:"user_id,omitempty"`
	ID       any    `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type sessionFile struct {
	Token      string    `toml:"token"`
	SignedInAt time.Time `toml:"signed_in_at"`
}

// Session is the identity context shared by the caches, the remote client and
// the HTTP surface. It is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	token  string
	user   User
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// NewSession returns a signed-out session persisted at path. An empty path
// keeps the session in memory only.
func NewSession(path string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{path: strings.TrimSpace(path), now: time.Now, logger: logger}
}

// Load restores a persisted sign-in. A missing, unreadable or expired session
// file leaves the session signed out.
func (s *Session) Load() {
	path, err := s.resolvedPath()
	if err != nil || path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("session file unreadable", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}

	var f sessionFile
	if err := toml.Unmarshal(data, &f); err != nil || f.Token == "" {
		s.logger.Warn("session file ignored", slog.String("path", path))
		return
	}
	user, err := s.parse(f.Token)
	if err != nil {
		s.logger.Info("persisted session discarded", slog.String("reason", apperrors.Message(err)))
		return
	}

	s.mu.Lock()
	s.token, s.user = f.Token, user
	s.mu.Unlock()
	s.logger.Info("session restored", slog.String("user_id", user.ID))
}

// SignIn adopts token as the current credential. A malformed token is
// InvalidInput; an expired one is Unauthorized.
func (s *Session) SignIn(token string) (User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	user, err := s.parse(token)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()

	if err := s.save(sessionFile{Token: token, SignedInAt: s.now().UTC()}); err != nil {
		s.logger.Warn("session not persisted", slog.String("error", err.Error()))
	}
	return user, nil
}

// SignOut drops the credential and its persisted copy.
func (s *Session) SignOut() error {
	s.mu.Lock()
	s.token, s.user = "", User{}
	s.mu.Unlock()

	path, err := s.resolvedPath()
	if err != nil || path == "" {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a credential is held and has not expired.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

// Credential returns the bearer token, or "" when signed out or expired.
func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.token
}

// Subject returns the signed-in user's id.
func (s *Session) Subject() string {
	u, _ := s.User()
	return u.ID
}

// User returns the signed-in user.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return User{}, false
	}
	return s.user, true
}

func (s *Session) validLocked() bool {
	if s.token == "" {
		return false
	}
	return s.user.ExpiresAt.IsZero() || s.now().Before(s.user.ExpiresAt)
}

func (s *Session) parse(token string) (User, error) {
	if token == "" {
		return User{}, apperrors.InvalidInput("token is required")
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return User{}, apperrors.InvalidInput("malformed token")
	}

	user := User{
		ID:       firstNonEmpty(c.Subject, stringify(c.UserID), stringify(c.ID)),
		Username: c.Username,
		Role:     c.Role,
	}
	if user.ID == "" {
		user.ID = c.Username
	}
	if user.ID == "" {
		return User{}, apperrors.InvalidInput("token carries no subject")
	}
	if c.ExpiresAt != nil {
		user.ExpiresAt = c.ExpiresAt.Time
		if !s.now().Before(user.ExpiresAt) {
			return User{}, apperrors.Unauthorized("token expired")
		}
	}
	return user, nil
}

func (s *Session) save(f sessionFile) error {
	path, err := s.resolvedPath()
	if err != nil || path == "" {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *Session) resolvedPath() (string, error) {
	if s.path == "" {
		return "", nil
	}
	p := s.path
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
