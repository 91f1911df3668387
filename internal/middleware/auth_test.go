package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-kiosk/internal/model"
)

type fakeResolver struct {
	identities map[string]model.Identity
}

func (f *fakeResolver) Verify(_ context.Context, token string) (model.Identity, error) {
	identity, ok := f.identities[token]
	if !ok {
		return model.Identity{}, errors.New("invalid session")
	}
	return identity, nil
}

func newGatedHandler(t *testing.T, resolver *fakeResolver, adminOnly bool) (http.Handler, *model.Identity) {
	t.Helper()
	var seen model.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok, "identity missing from request context")
		seen = identity
		w.WriteHeader(http.StatusOK)
	})

	m := NewAuthMiddleware(resolver)
	var h http.Handler = inner
	if adminOnly {
		h = m.RequireAdmin(h)
	}
	return m.RequireAuth(h), &seen
}

func decodeGateError(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	h, _ := newGatedHandler(t, &fakeResolver{}, false)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwdw=="},
		{"bare token", "abcdef0123456789"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			resp := decodeGateError(t, rec)
			assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
		})
	}
}

func TestRequireAuthRejectsUnknownToken(t *testing.T) {
	h, _ := newGatedHandler(t, &fakeResolver{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer deadbeef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeGateError(t, rec)
	assert.Equal(t, "Invalid or expired session", resp.Error.Message)
}

func TestRequireAuthInjectsIdentity(t *testing.T) {
	resolver := &fakeResolver{identities: map[string]model.Identity{
		"good-token": {UserID: 12, Username: "alice", Role: model.RoleViewer},
	}}
	h, seen := newGatedHandler(t, resolver, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/groups/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12), seen.UserID)
	assert.Equal(t, "alice", seen.Username)
}

func TestRequireAuthAcceptsCaseInsensitiveScheme(t *testing.T) {
	resolver := &fakeResolver{identities: map[string]model.Identity{
		"good-token": {UserID: 12, Username: "alice", Role: model.RoleViewer},
	}}
	h, _ := newGatedHandler(t, resolver, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/groups/", nil)
	req.Header.Set("Authorization", "bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminDistinguishes401From403(t *testing.T) {
	resolver := &fakeResolver{identities: map[string]model.Identity{
		"viewer-token": {UserID: 1, Username: "viewer", Role: model.RoleViewer},
		"admin-token":  {UserID: 2, Username: "admin", Role: model.RoleAdmin},
	}}
	h, _ := newGatedHandler(t, resolver, true)

	// Garbage credentials fail authentication.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid viewer fails authorization, not authentication.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer viewer-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeGateError(t, rec)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	// Admin passes both gates.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
