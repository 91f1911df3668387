package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UserList struct {
	Users []User `json:"users"`
}

type GroupList struct {
	Groups []Group `json:"groups"`
}

type DashboardList struct {
	Dashboards []Dashboard `json:"dashboards"`
}
