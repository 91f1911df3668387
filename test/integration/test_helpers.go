//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"dashboard-kiosk/internal/config"
	"dashboard-kiosk/internal/database"
	"dashboard-kiosk/internal/handler"
	"dashboard-kiosk/internal/metrics"
	"dashboard-kiosk/internal/middleware"
	"dashboard-kiosk/internal/repository"
	"dashboard-kiosk/internal/router"
	"dashboard-kiosk/internal/service"
)

const adminPassword = "IntegrationAdmin1!"

// newTestServer stands up the full HTTP stack against the PostgreSQL
// instance named by TEST_DATABASE_URL and returns the server plus an admin
// session token. The schema is ensured and every table emptied first, so
// each test starts from a clean database.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database-backed tests")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, dsn, database.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx,
		`TRUNCATE group_dashboards, sessions, dashboards, users, dashboard_groups RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	m := metrics.New(prometheus.NewRegistry())
	authService := service.NewAuthService(userRepo, sessionRepo, time.Hour, m)
	userService := service.NewUserService(userRepo, sessionRepo, m)
	groupService := service.NewGroupService(groupRepo)
	dashboardService := service.NewDashboardService(dashboardRepo)

	require.NoError(t, userService.EnsureAdmin(ctx, "admin", adminPassword))

	cfg := &config.Config{
		RequestTimeout: 30 * time.Second,
		CORSOrigins:    []string{"*"},
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)

	server := httptest.NewServer(router.New(cfg, authMiddleware, m, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(userService),
		Group:     handler.NewGroupHandler(groupService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
	}, func(r *http.Request) error {
		return db.Health(r.Context())
	}))
	t.Cleanup(server.Close)

	return server, login(t, server.URL, "admin", adminPassword)
}

func login(t *testing.T, baseURL string, username string, password string) string {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/v1/auth/login", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	require.NotEmpty(t, parsed.Data.Token)

	return parsed.Data.Token
}

func doAuthJSON(t *testing.T, method string, url string, body []byte, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader([]byte{})
	} else {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// verifyStatus presents the token to /auth/verify and returns the HTTP status.
func verifyStatus(t *testing.T, baseURL string, token string) int {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"token": token})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/v1/auth/verify", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
