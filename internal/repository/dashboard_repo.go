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

type DashboardRepository struct {
	pool *pgxpool.Pool
}

func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

const dashboardColumns = `id, name, url, display_duration, is_active, sort_order, created_at, updated_at`

func scanDashboard(row pgx.Row) (model.Dashboard, error) {
	var d model.Dashboard
	err := row.Scan(&d.ID, &d.Name, &d.URL, &d.DisplayDuration, &d.IsActive,
		&d.SortOrder, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// Create appends the dashboard at the end of the rotation when no explicit
// sort order is given.
func (r *DashboardRepository) Create(ctx context.Context, name string, url string, displayDuration int, sortOrder *int) (model.Dashboard, error) {
	var (
		d   model.Dashboard
		err error
	)
	if sortOrder != nil {
		d, err = scanDashboard(r.pool.QueryRow(ctx,
			`INSERT INTO dashboards (name, url, display_duration, sort_order)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+dashboardColumns,
			name, url, displayDuration, *sortOrder))
	} else {
		d, err = scanDashboard(r.pool.QueryRow(ctx,
			`INSERT INTO dashboards (name, url, display_duration, sort_order)
			 VALUES ($1, $2, $3,
			         (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM dashboards))
			 RETURNING `+dashboardColumns,
			name, url, displayDuration))
	}
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("create dashboard: %w", err)
	}
	return d, nil
}

func (r *DashboardRepository) FindByID(ctx context.Context, id int64) (model.Dashboard, error) {
	d, err := scanDashboard(r.pool.QueryRow(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Dashboard{}, model.ErrDashboardNotFound
	}
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("find dashboard: %w", err)
	}
	return d, nil
}

func (r *DashboardRepository) List(ctx context.Context) ([]model.Dashboard, error) {
	return r.queryDashboards(ctx,
		`SELECT `+dashboardColumns+`
		 FROM dashboards
		 ORDER BY sort_order ASC, name ASC`)
}

func (r *DashboardRepository) ListActive(ctx context.Context) ([]model.Dashboard, error) {
	return r.queryDashboards(ctx,
		`SELECT `+dashboardColumns+`
		 FROM dashboards
		 WHERE is_active = true
		 ORDER BY sort_order ASC, name ASC`)
}

func (r *DashboardRepository) ListActiveByGroup(ctx context.Context, groupID int64) ([]model.Dashboard, error) {
	return r.queryDashboards(ctx,
		`SELECT d.id, d.name, d.url, d.display_duration, d.is_active, d.sort_order,
		        d.created_at, d.updated_at
		 FROM dashboards d
		 INNER JOIN group_dashboards gd ON d.id = gd.dashboard_id
		 WHERE gd.group_id = $1 AND d.is_active = true
		 ORDER BY d.sort_order ASC, d.name ASC`, groupID)
}

func (r *DashboardRepository) queryDashboards(ctx context.Context, query string, args ...any) ([]model.Dashboard, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dashboards: %w", err)
	}
	defer rows.Close()

	dashboards := make([]model.Dashboard, 0)
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dashboard: %w", err)
		}
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}

func (r *DashboardRepository) Update(ctx context.Context, id int64, upd model.UpdateDashboardRequest) (model.Dashboard, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		appendSet("name", *upd.Name)
	}
	if upd.URL != nil {
		appendSet("url", *upd.URL)
	}
	if upd.DisplayDuration != nil {
		appendSet("display_duration", *upd.DisplayDuration)
	}
	if upd.IsActive != nil {
		appendSet("is_active", *upd.IsActive)
	}
	if upd.SortOrder != nil {
		appendSet("sort_order", *upd.SortOrder)
	}

	query := fmt.Sprintf(
		`UPDATE dashboards SET %s WHERE id = $1 RETURNING `+dashboardColumns,
		strings.Join(sets, ", "))

	d, err := scanDashboard(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Dashboard{}, model.ErrDashboardNotFound
	}
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("update dashboard: %w", err)
	}
	return d, nil
}

func (r *DashboardRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dashboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dashboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDashboardNotFound
	}
	return nil
}

// Reorder moves the dashboard to newSortOrder and shifts every dashboard in
// between by one position, all inside a single transaction.
func (r *DashboardRepository) Reorder(ctx context.Context, id int64, newSortOrder int) (model.Dashboard, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("begin reorder: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldSortOrder int
	err = tx.QueryRow(ctx,
		`SELECT sort_order FROM dashboards WHERE id = $1 FOR UPDATE`, id).Scan(&oldSortOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Dashboard{}, model.ErrDashboardNotFound
	}
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("lock dashboard for reorder: %w", err)
	}

	if oldSortOrder == newSortOrder {
		return r.FindByID(ctx, id)
	}

	if oldSortOrder < newSortOrder {
		_, err = tx.Exec(ctx,
			`UPDATE dashboards
			 SET sort_order = sort_order - 1, updated_at = now()
			 WHERE sort_order > $1 AND sort_order <= $2`,
			oldSortOrder, newSortOrder)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE dashboards
			 SET sort_order = sort_order + 1, updated_at = now()
			 WHERE sort_order >= $2 AND sort_order < $1`,
			oldSortOrder, newSortOrder)
	}
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("shift sort orders: %w", err)
	}

	d, err := scanDashboard(tx.QueryRow(ctx,
		`UPDATE dashboards
		 SET sort_order = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+dashboardColumns, id, newSortOrder))
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("apply new sort order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Dashboard{}, fmt.Errorf("commit reorder: %w", err)
	}
	return d, nil
}
