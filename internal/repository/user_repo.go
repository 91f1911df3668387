package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dashboard-kiosk/internal/model"
)

const uniqueViolationCode = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userSelectColumns = `u.id, u.username, u.password_hash, u.role, u.group_id, g.name,
	       u.created_at, u.updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.GroupID, &u.GroupName,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userSelectColumns+`
		 FROM users u
		 LEFT JOIN dashboard_groups g ON u.group_id = g.id
		 WHERE u.id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByUsername matches the stored username exactly, case-sensitively.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userSelectColumns+`
		 FROM users u
		 LEFT JOIN dashboard_groups g ON u.group_id = g.id
		 WHERE u.username = $1`, username))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, username string, passwordHash string, role string, groupID *int64) (model.User, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role, group_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		username, passwordHash, role, groupID).Scan(&id)
	if isUniqueViolation(err) {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return r.FindByID(ctx, id)
}

// UserUpdate describes a partial update; nil fields are left unchanged.
// ClearGroup removes the group reference regardless of GroupID.
type UserUpdate struct {
	Username     *string
	PasswordHash *string
	Role         *string
	GroupID      *int64
	ClearGroup   bool
}

func (u UserUpdate) empty() bool {
	return u.Username == nil && u.PasswordHash == nil && u.Role == nil &&
		u.GroupID == nil && !u.ClearGroup
}

func (r *UserRepository) Update(ctx context.Context, id int64, upd UserUpdate) (model.User, error) {
	if upd.empty() {
		return model.User{}, model.ErrInvalidInput
	}

	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Username != nil {
		appendSet("username", *upd.Username)
	}
	if upd.PasswordHash != nil {
		appendSet("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		appendSet("role", *upd.Role)
	}
	if upd.ClearGroup {
		sets = append(sets, "group_id = NULL")
	} else if upd.GroupID != nil {
		appendSet("group_id", *upd.GroupID)
	}

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1`, strings.Join(sets, ", "))

	tag, err := r.pool.Exec(ctx, query, args...)
	if isUniqueViolation(err) {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.User{}, model.ErrUserNotFound
	}

	return r.FindByID(ctx, id)
}

// Delete removes the user and all of their sessions in one transaction, so a
// deleted user can never authenticate with a leftover token. It reports how
// many sessions were revoked along the way.
func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete user: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sessionsTag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, model.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete user: %w", err)
	}
	return sessionsTag.RowsAffected(), nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userSelectColumns+`
		 FROM users u
		 LEFT JOIN dashboard_groups g ON u.group_id = g.id
		 ORDER BY u.username ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
