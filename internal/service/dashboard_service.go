package service

import (
	"context"
	"net/http"
	"strings"

	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/pkg/apierror"
)

const defaultDisplayDuration = 30 // seconds per dashboard in the rotation

type DashboardStore interface {
	Create(ctx context.Context, name string, url string, displayDuration int, sortOrder *int) (model.Dashboard, error)
	FindByID(ctx context.Context, id int64) (model.Dashboard, error)
	List(ctx context.Context) ([]model.Dashboard, error)
	ListActive(ctx context.Context) ([]model.Dashboard, error)
	ListActiveByGroup(ctx context.Context, groupID int64) ([]model.Dashboard, error)
	Update(ctx context.Context, id int64, upd model.UpdateDashboardRequest) (model.Dashboard, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, id int64, newSortOrder int) (model.Dashboard, error)
}

type DashboardService struct {
	dashboards DashboardStore
}

func NewDashboardService(dashboards DashboardStore) *DashboardService {
	return &DashboardService{dashboards: dashboards}
}

func (s *DashboardService) Create(ctx context.Context, req model.CreateDashboardRequest) (model.Dashboard, error) {
	name := strings.TrimSpace(req.Name)
	url := strings.TrimSpace(req.URL)
	if name == "" || url == "" {
		return model.Dashboard{}, apierror.New("BAD_REQUEST", "Name and url are required", "", http.StatusBadRequest)
	}

	duration := defaultDisplayDuration
	if req.DisplayDuration != nil {
		if *req.DisplayDuration <= 0 {
			return model.Dashboard{}, apierror.New("BAD_REQUEST", "displayDuration must be positive", "", http.StatusBadRequest)
		}
		duration = *req.DisplayDuration
	}

	return s.dashboards.Create(ctx, name, url, duration, req.SortOrder)
}

func (s *DashboardService) Get(ctx context.Context, id int64) (model.Dashboard, error) {
	return s.dashboards.FindByID(ctx, id)
}

func (s *DashboardService) List(ctx context.Context) ([]model.Dashboard, error) {
	return s.dashboards.List(ctx)
}

func (s *DashboardService) ListActive(ctx context.Context) ([]model.Dashboard, error) {
	return s.dashboards.ListActive(ctx)
}

// ListForIdentity returns the rotation for the caller: admins see every
// active dashboard, viewers see the active dashboards of their group, and a
// viewer without a group sees an empty rotation.
func (s *DashboardService) ListForIdentity(ctx context.Context, identity model.Identity) ([]model.Dashboard, error) {
	if identity.Role == model.RoleAdmin {
		return s.dashboards.ListActive(ctx)
	}

	if identity.GroupID == nil {
		return []model.Dashboard{}, nil
	}

	return s.dashboards.ListActiveByGroup(ctx, *identity.GroupID)
}

func (s *DashboardService) Update(ctx context.Context, id int64, req model.UpdateDashboardRequest) (model.Dashboard, error) {
	if req.Name == nil && req.URL == nil && req.DisplayDuration == nil && req.IsActive == nil && req.SortOrder == nil {
		return model.Dashboard{}, apierror.New("BAD_REQUEST", "No fields to update", "", http.StatusBadRequest)
	}

	if req.DisplayDuration != nil && *req.DisplayDuration <= 0 {
		return model.Dashboard{}, apierror.New("BAD_REQUEST", "displayDuration must be positive", "", http.StatusBadRequest)
	}

	return s.dashboards.Update(ctx, id, req)
}

func (s *DashboardService) Delete(ctx context.Context, id int64) error {
	return s.dashboards.Delete(ctx, id)
}

func (s *DashboardService) Reorder(ctx context.Context, id int64, newSortOrder int) (model.Dashboard, error) {
	if newSortOrder < 1 {
		return model.Dashboard{}, apierror.New("BAD_REQUEST", "newSortOrder must be at least 1", "", http.StatusBadRequest)
	}
	return s.dashboards.Reorder(ctx, id, newSortOrder)
}
