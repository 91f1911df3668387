package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dashboard-kiosk/internal/model"
)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func scanGroup(row pgx.Row) (model.Group, error) {
	var g model.Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (r *GroupRepository) Create(ctx context.Context, name string, description *string) (model.Group, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx,
		`INSERT INTO dashboard_groups (name, description)
		 VALUES ($1, $2)
		 RETURNING id, name, description, created_at, updated_at`,
		name, description))
	if isUniqueViolation(err) {
		return model.Group{}, model.ErrGroupAlreadyExists
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) FindByID(ctx context.Context, id int64) (model.Group, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM dashboard_groups WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Group{}, model.ErrGroupNotFound
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("find group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]model.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM dashboard_groups ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]model.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) Update(ctx context.Context, id int64, name *string, description *string) (model.Group, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}

	if name != nil {
		args = append(args, *name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}

	query := fmt.Sprintf(
		`UPDATE dashboard_groups SET %s WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`,
		strings.Join(sets, ", "))

	g, err := scanGroup(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Group{}, model.ErrGroupNotFound
	}
	if isUniqueViolation(err) {
		return model.Group{}, model.ErrGroupAlreadyExists
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("update group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dashboard_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrGroupNotFound
	}
	return nil
}

// ReplaceDashboards swaps the group's dashboard set for the given ids.
func (r *GroupRepository) ReplaceDashboards(ctx context.Context, groupID int64, dashboardIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace group dashboards: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM group_dashboards WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("clear group dashboards: %w", err)
	}

	for _, dashboardID := range dashboardIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_dashboards (group_id, dashboard_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, groupID, dashboardID); err != nil {
			return fmt.Errorf("attach dashboard %d: %w", dashboardID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace group dashboards: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListDashboards(ctx context.Context, groupID int64) ([]model.GroupDashboard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.name, d.url
		 FROM dashboards d
		 INNER JOIN group_dashboards gd ON d.id = gd.dashboard_id
		 WHERE gd.group_id = $1
		 ORDER BY d.name ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group dashboards: %w", err)
	}
	defer rows.Close()

	dashboards := make([]model.GroupDashboard, 0)
	for rows.Next() {
		var d model.GroupDashboard
		if err := rows.Scan(&d.ID, &d.Name, &d.URL); err != nil {
			return nil, fmt.Errorf("scan group dashboard: %w", err)
		}
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}
