package service

import (
	"context"
	"net/http"
	"strings"

	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/pkg/apierror"
)

type GroupStore interface {
	Create(ctx context.Context, name string, description *string) (model.Group, error)
	FindByID(ctx context.Context, id int64) (model.Group, error)
	List(ctx context.Context) ([]model.Group, error)
	Update(ctx context.Context, id int64, name *string, description *string) (model.Group, error)
	Delete(ctx context.Context, id int64) error
	ReplaceDashboards(ctx context.Context, groupID int64, dashboardIDs []int64) error
	ListDashboards(ctx context.Context, groupID int64) ([]model.GroupDashboard, error)
}

type GroupService struct {
	groups GroupStore
}

func NewGroupService(groups GroupStore) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) Create(ctx context.Context, req model.CreateGroupRequest) (model.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Group{}, apierror.New("BAD_REQUEST", "Group name is required", "name", http.StatusBadRequest)
	}

	group, err := s.groups.Create(ctx, name, req.Description)
	if err != nil {
		return model.Group{}, err
	}

	if len(req.DashboardIDs) > 0 {
		if err := s.groups.ReplaceDashboards(ctx, group.ID, req.DashboardIDs); err != nil {
			return model.Group{}, err
		}
	}

	return group, nil
}

func (s *GroupService) Get(ctx context.Context, id int64) (model.GroupWithDashboards, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return model.GroupWithDashboards{}, err
	}

	dashboards, err := s.groups.ListDashboards(ctx, id)
	if err != nil {
		return model.GroupWithDashboards{}, err
	}

	return model.GroupWithDashboards{Group: group, Dashboards: dashboards}, nil
}

func (s *GroupService) List(ctx context.Context) ([]model.Group, error) {
	return s.groups.List(ctx)
}

func (s *GroupService) Update(ctx context.Context, id int64, req model.UpdateGroupRequest) (model.Group, error) {
	if req.Name == nil && req.Description == nil && req.DashboardIDs == nil {
		return model.Group{}, apierror.New("BAD_REQUEST", "No fields to update", "", http.StatusBadRequest)
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return model.Group{}, apierror.New("BAD_REQUEST", "Group name cannot be empty", "name", http.StatusBadRequest)
	}

	var group model.Group
	var err error
	if req.Name != nil || req.Description != nil {
		group, err = s.groups.Update(ctx, id, req.Name, req.Description)
	} else {
		group, err = s.groups.FindByID(ctx, id)
	}
	if err != nil {
		return model.Group{}, err
	}

	if req.DashboardIDs != nil {
		if err := s.groups.ReplaceDashboards(ctx, id, req.DashboardIDs); err != nil {
			return model.Group{}, err
		}
	}

	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, id int64) error {
	return s.groups.Delete(ctx, id)
}
