package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/pkg/apierror"
)

type fakeGroupStore struct {
	groups     map[int64]model.Group
	dashboards map[int64][]model.GroupDashboard
	nextID     int64

	replaced map[int64][]int64
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{
		groups:     map[int64]model.Group{},
		dashboards: map[int64][]model.GroupDashboard{},
		nextID:     1,
		replaced:   map[int64][]int64{},
	}
}

func (f *fakeGroupStore) Create(_ context.Context, name string, description *string) (model.Group, error) {
	g := model.Group{ID: f.nextID, Name: name, Description: description}
	f.groups[g.ID] = g
	f.nextID++
	return g, nil
}

func (f *fakeGroupStore) FindByID(_ context.Context, id int64) (model.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return model.Group{}, model.ErrGroupNotFound
	}
	return g, nil
}

func (f *fakeGroupStore) List(_ context.Context) ([]model.Group, error) {
	out := make([]model.Group, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGroupStore) Update(_ context.Context, id int64, name *string, description *string) (model.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return model.Group{}, model.ErrGroupNotFound
	}
	if name != nil {
		g.Name = *name
	}
	if description != nil {
		g.Description = description
	}
	f.groups[id] = g
	return g, nil
}

func (f *fakeGroupStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.groups[id]; !ok {
		return model.ErrGroupNotFound
	}
	delete(f.groups, id)
	return nil
}

func (f *fakeGroupStore) ReplaceDashboards(_ context.Context, groupID int64, dashboardIDs []int64) error {
	f.replaced[groupID] = dashboardIDs
	return nil
}

func (f *fakeGroupStore) ListDashboards(_ context.Context, groupID int64) ([]model.GroupDashboard, error) {
	return f.dashboards[groupID], nil
}

func TestCreateGroupRequiresName(t *testing.T) {
	svc := NewGroupService(newFakeGroupStore())

	for _, name := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), model.CreateGroupRequest{Name: name})
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	}
}

func TestCreateGroupWithDashboards(t *testing.T) {
	store := newFakeGroupStore()
	svc := NewGroupService(store)

	group, err := svc.Create(context.Background(), model.CreateGroupRequest{
		Name:         "Lobby",
		DashboardIDs: []int64{3, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, store.replaced[group.ID])
}

func TestUpdateGroupNoFields(t *testing.T) {
	svc := NewGroupService(newFakeGroupStore())

	_, err := svc.Update(context.Background(), 1, model.UpdateGroupRequest{})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestUpdateGroupDashboardsOnly(t *testing.T) {
	store := newFakeGroupStore()
	svc := NewGroupService(store)

	group, err := svc.Create(context.Background(), model.CreateGroupRequest{Name: "Lobby"})
	require.NoError(t, err)

	// Replacing the dashboard set without touching name or description.
	updated, err := svc.Update(context.Background(), group.ID, model.UpdateGroupRequest{DashboardIDs: []int64{5}})
	require.NoError(t, err)
	assert.Equal(t, "Lobby", updated.Name)
	assert.Equal(t, []int64{5}, store.replaced[group.ID])

	// An empty (non-nil) set detaches every dashboard.
	_, err = svc.Update(context.Background(), group.ID, model.UpdateGroupRequest{DashboardIDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, store.replaced[group.ID])
}

func TestGetGroupIncludesDashboards(t *testing.T) {
	store := newFakeGroupStore()
	svc := NewGroupService(store)

	group, err := svc.Create(context.Background(), model.CreateGroupRequest{Name: "Lobby"})
	require.NoError(t, err)
	store.dashboards[group.ID] = []model.GroupDashboard{{ID: 9, Name: "Grafana"}}

	got, err := svc.Get(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lobby", got.Name)
	require.Len(t, got.Dashboards, 1)
	assert.Equal(t, int64(9), got.Dashboards[0].ID)
}

func TestGetUnknownGroup(t *testing.T) {
	svc := NewGroupService(newFakeGroupStore())

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrGroupNotFound)
}
