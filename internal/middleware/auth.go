package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"dashboard-kiosk/internal/model"
)

type identityResolver interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

type contextKey string

const identityContextKey contextKey = "identity"

// AuthMiddleware is the two-tier authorization gate. RequireAuth resolves the
// bearer token to an identity; RequireAdmin additionally checks the role.
// Missing/invalid credentials and insufficient role are distinct failures
// (401 vs 403).
type AuthMiddleware struct {
	resolver identityResolver
}

func NewAuthMiddleware(resolver identityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeGateError(w, "UNAUTHORIZED", "Missing or invalid authorization header")
			return
		}

		token := strings.TrimSpace(header[7:])
		identity, err := m.resolver.Verify(r.Context(), token)
		if err != nil {
			writeGateError(w, "UNAUTHORIZED", "Invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeGateError(w, "UNAUTHORIZED", "Authentication required")
			return
		}

		if identity.Role != model.RoleAdmin {
			writeGateError(w, "FORBIDDEN", "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func writeGateError(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	if code == "FORBIDDEN" {
		w.WriteHeader(http.StatusForbidden)
	} else {
		w.WriteHeader(http.StatusUnauthorized)
	}

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
