package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	GroupID  *int64 `json:"groupId"`
}

// UpdateUserRequest carries independent optional updates. A groupId of 0
// removes the user from their group.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	GroupID  *int64  `json:"groupId"`
}

type CreateGroupRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	DashboardIDs []int64 `json:"dashboardIds"`
}

// UpdateGroupRequest replaces the group's dashboard set when DashboardIDs is
// non-nil; a nil slice leaves the association untouched.
type UpdateGroupRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DashboardIDs []int64 `json:"dashboardIds"`
}

type CreateDashboardRequest struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	DisplayDuration *int   `json:"displayDuration"`
	SortOrder       *int   `json:"sortOrder"`
}

type UpdateDashboardRequest struct {
	Name            *string `json:"name"`
	URL             *string `json:"url"`
	DisplayDuration *int    `json:"displayDuration"`
	IsActive        *bool   `json:"isActive"`
	SortOrder       *int    `json:"sortOrder"`
}

type ReorderRequest struct {
	NewSortOrder int `json:"newSortOrder"`
}
