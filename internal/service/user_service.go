package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dashboard-kiosk/internal/metrics"
	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/internal/repository"
	"dashboard-kiosk/pkg/apierror"
)

const bcryptCost = 12

type UserAdminStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username string, passwordHash string, role string, groupID *int64) (model.User, error)
	Update(ctx context.Context, id int64, upd repository.UserUpdate) (model.User, error)
	Delete(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
}

// UserService implements admin-only user provisioning. Deleting a user also
// removes every session issued to them, so stale tokens cannot outlive the
// account.
type UserService struct {
	users    UserAdminStore
	sessions SessionRevoker
	metrics  *metrics.Metrics
}

func NewUserService(users UserAdminStore, sessions SessionRevoker, m *metrics.Metrics) *UserService {
	return &UserService{users: users, sessions: sessions, metrics: m}
}

func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)

	if username == "" || password == "" {
		return model.User{}, apierror.New("BAD_REQUEST", "Username and password are required", "", http.StatusBadRequest)
	}
	if !model.ValidRole(req.Role) {
		return model.User{}, apierror.New("BAD_REQUEST", "Role must be admin or viewer", req.Role, http.StatusBadRequest)
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, model.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, username, string(hash), req.Role, req.GroupID)
}

func (s *UserService) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error) {
	if req.Username == nil && req.Password == nil && req.Role == nil && req.GroupID == nil {
		return model.User{}, apierror.New("BAD_REQUEST", "No fields to update", "", http.StatusBadRequest)
	}

	upd := repository.UserUpdate{}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return model.User{}, apierror.New("BAD_REQUEST", "Username cannot be empty", "username", http.StatusBadRequest)
		}
		upd.Username = &username
	}

	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return model.User{}, apierror.New("BAD_REQUEST", "Role must be admin or viewer", *req.Role, http.StatusBadRequest)
		}
		upd.Role = req.Role
	}

	if req.Password != nil {
		password := strings.TrimSpace(*req.Password)
		if password == "" {
			return model.User{}, apierror.New("BAD_REQUEST", "Password cannot be empty", "password", http.StatusBadRequest)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		hashed := string(hash)
		upd.PasswordHash = &hashed
	}

	if req.GroupID != nil {
		if *req.GroupID == 0 {
			upd.ClearGroup = true
		} else {
			upd.GroupID = req.GroupID
		}
	}

	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		return model.User{}, err
	}

	// A password change invalidates every outstanding session for the user.
	// Role and username changes deliberately do not; sessions keep the values
	// they were issued with.
	if req.Password != nil {
		revoked, err := s.sessions.RevokeAllForUser(ctx, id)
		if err != nil {
			slog.Error("revoke sessions after password change failed", "user_id", id, "error", err)
		} else {
			s.metrics.SessionsRevokedTotal.Add(float64(revoked))
		}
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	revoked, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.metrics.SessionsRevokedTotal.Add(float64(revoked))
	return nil
}

func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// EnsureAdmin seeds a first admin account when the users table is empty, so
// a fresh deployment can be logged into.
func (s *UserService) EnsureAdmin(ctx context.Context, username string, password string) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	if strings.TrimSpace(password) == "" {
		password = "admin123"
		slog.Warn("ADMIN_PASSWORD not set; seeding bootstrap admin with the default password")
	}

	_, err = s.Create(ctx, model.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     model.RoleAdmin,
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed bootstrap admin: %w", err)
	}

	slog.Info("seeded bootstrap admin user", "username", username)
	return nil
}
