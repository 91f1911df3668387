// Package service contains the business logic between the HTTP handlers and
// the repositories. AuthService implements the session core: login mints an
// opaque token backed by a sessions row, every authenticated request resolves
// that token back to an identity, and logout deletes the row.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dashboard-kiosk/internal/metrics"
	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/pkg/apierror"
)

// sessionIDBytes gives 256 bits of entropy per token.
const sessionIDBytes = 32

const (
	invalidCredentialsMessage = "Invalid username or password"
	invalidSessionMessage     = "Invalid or expired session"
)

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
}

type SessionStore interface {
	Store(ctx context.Context, s model.Session) error
	Find(ctx context.Context, id string) (model.Session, error)
	Revoke(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, ttl time.Duration, m *metrics.Metrics) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
	}
}

// Login verifies the credentials and mints a new session. Concurrent logins
// for the same user coexist; each call issues an independent token. Unknown
// usernames and wrong passwords produce the same generic error.
func (s *AuthService) Login(ctx context.Context, username string, password string) (string, model.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if username == "" || password == "" {
		return "", model.User{}, apierror.New("BAD_REQUEST", "Username and password are required", "", http.StatusBadRequest)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			slog.Error("login: user lookup failed", "error", err)
		}
		return "", model.User{}, apierror.New("UNAUTHORIZED", invalidCredentialsMessage, "", http.StatusUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.User{}, apierror.New("UNAUTHORIZED", invalidCredentialsMessage, "", http.StatusUnauthorized)
	}

	token, err := newSessionID()
	if err != nil {
		return "", model.User{}, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now().UTC()
	session := model.Session{
		ID:        token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.sessions.Store(ctx, session); err != nil {
		return "", model.User{}, fmt.Errorf("persist session: %w", err)
	}

	s.metrics.SessionsIssuedTotal.Inc()
	return token, user, nil
}

// Verify resolves a presented token to an identity. Unknown, revoked and
// expired tokens are indistinguishable to the caller; an expired row is
// deleted on the way out so abandoned sessions do not accumulate. Store
// failures fail closed. Group membership is looked up fresh on every call,
// unlike username/role which stay as issued.
func (s *AuthService) Verify(ctx context.Context, token string) (model.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return model.Identity{}, apierror.New("UNAUTHORIZED", invalidSessionMessage, "", http.StatusUnauthorized)
	}

	session, err := s.sessions.Find(ctx, token)
	if err != nil {
		if !errors.Is(err, model.ErrSessionNotFound) {
			slog.Error("verify: session lookup failed", "error", err)
		}
		return model.Identity{}, apierror.New("UNAUTHORIZED", invalidSessionMessage, "", http.StatusUnauthorized)
	}

	if session.Expired(s.now()) {
		if err := s.sessions.Revoke(ctx, session.ID); err != nil {
			slog.Error("verify: expired session cleanup failed", "error", err)
		}
		s.metrics.SessionsExpiredTotal.Inc()
		return model.Identity{}, apierror.New("UNAUTHORIZED", invalidSessionMessage, "", http.StatusUnauthorized)
	}

	identity := model.Identity{
		UserID:   session.UserID,
		Username: session.Username,
		Role:     session.Role,
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			slog.Error("verify: group lookup failed", "error", err)
		}
		return model.Identity{}, apierror.New("UNAUTHORIZED", invalidSessionMessage, "", http.StatusUnauthorized)
	}
	identity.GroupID = user.GroupID
	identity.GroupName = user.GroupName

	return identity, nil
}

// Logout revokes the session. It never fails from the caller's perspective;
// store errors are logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	if err := s.sessions.Revoke(ctx, token); err != nil {
		slog.Error("logout: session revocation failed", "error", err)
		return
	}
	s.metrics.SessionsRevokedTotal.Inc()
}

// SweepExpired removes every session past its TTL. Safe to run concurrently
// with itself and with lazy cleanup, since both are delete-if-exists.
func (s *AuthService) SweepExpired(ctx context.Context) {
	removed, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("session sweep removed expired sessions", "count", removed)
	}

	active, err := s.sessions.CountActive(ctx)
	if err != nil {
		slog.Error("session sweep: active count failed", "error", err)
		return
	}
	s.metrics.SessionsActive.Set(float64(active))
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
