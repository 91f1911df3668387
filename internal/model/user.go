package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	GroupID      *int64    `json:"groupId,omitempty"`
	GroupName    *string   `json:"groupName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the resolved caller of an authenticated request. Username and
// role come from the session record (frozen at login); the group is looked up
// fresh on every verification, so membership changes apply immediately.
type Identity struct {
	UserID    int64   `json:"userId"`
	Username  string  `json:"username"`
	Role      string  `json:"role"`
	GroupID   *int64  `json:"groupId,omitempty"`
	GroupName *string `json:"groupName,omitempty"`
}
