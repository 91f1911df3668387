package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dashboard-kiosk/internal/metrics"
	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/pkg/apierror"
)

// --- fakes ---

type fakeUserStore struct {
	byUsername map[string]model.User
	byID       map[int64]model.User
	findErr    error
}

func (f *fakeUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	if f.findErr != nil {
		return model.User{}, f.findErr
	}
	u, ok := f.byUsername[username]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (model.User, error) {
	if f.findErr != nil {
		return model.User{}, f.findErr
	}
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session

	storeErr  error
	findErr   error
	revokeErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]model.Session{}}
}

func (f *fakeSessionStore) Store(_ context.Context, s model.Session) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) Find(_ context.Context, id string) (model.Session, error) {
	if f.findErr != nil {
		return model.Session{}, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, id string) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) RevokeAllForUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	now := time.Now().UTC()
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeSessionStore) CountActive(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sessions)), nil
}

// --- helpers ---

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(t *testing.T, users *fakeUserStore, sessions *fakeSessionStore) *AuthService {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewAuthService(users, sessions, 24*time.Hour, m)
}

func singleUserStore(t *testing.T, user model.User, password string) *fakeUserStore {
	t.Helper()
	user.PasswordHash = mustHash(t, password)
	return &fakeUserStore{
		byUsername: map[string]model.User{user.Username: user},
		byID:       map[int64]model.User{user.ID: user},
	}
}

func assertUnauthorized(t *testing.T, err error, message string) {
	t.Helper()
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.Equal(t, message, apiErr.Message)
}

// --- tests ---

func TestLoginThenVerify(t *testing.T) {
	users := singleUserStore(t, model.User{ID: 1, Username: "alice", Role: model.RoleAdmin}, "Secret1!")
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, users, sessions)

	token, user, err := svc.Login(context.Background(), "alice", "Secret1!")
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 random bytes, hex encoded
	assert.Equal(t, int64(1), user.ID)

	identity, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), identity.UserID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, model.RoleAdmin, identity.Role)
	assert.Nil(t, identity.GroupID)
}

func TestLoginMissingFields(t *testing.T) {
	svc := newTestAuthService(t, &fakeUserStore{}, newFakeSessionStore())

	for _, tc := range []struct{ username, password string }{
		{"", "pw"},
		{"alice", ""},
		{"  ", "  "},
	} {
		_, _, err := svc.Login(context.Background(), tc.username, tc.password)
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	}
}

func TestLoginGenericFailureMessage(t *testing.T) {
	users := singleUserStore(t, model.User{ID: 1, Username: "alice", Role: model.RoleAdmin}, "Secret1!")
	svc := newTestAuthService(t, users, newFakeSessionStore())

	// Unknown user and wrong password must be indistinguishable.
	_, _, err := svc.Login(context.Background(), "nouser", "whatever")
	assertUnauthorized(t, err, "Invalid username or password")

	_, _, err = svc.Login(context.Background(), "alice", "wrongpass")
	assertUnauthorized(t, err, "Invalid username or password")
}

func TestLoginStoreFailureReturnsNoToken(t *testing.T) {
	users := singleUserStore(t, model.User{ID: 1, Username: "alice", Role: model.RoleAdmin}, "pw")
	sessions := newFakeSessionStore()
	sessions.storeErr = errors.New("connection refused")
	svc := newTestAuthService(t, users, sessions)

	token, _, err := svc.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Empty(t, token)
}

func TestConcurrentLoginsProduceIndependentSessions(t *testing.T) {
	users := singleUserStore(t, model.User{ID: 1, Username: "alice", Role: model.RoleViewer}, "pw")
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, users, sessions)

	token1, _, err := svc.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	token2, _, err := svc.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotEqual(t, token1, token2)

	// Revoking one leaves the other valid.
	svc.Logout(context.Background(), token1)

	_, err = svc.Verify(context.Background(), token1)
	assertUnauthorized(t, err, "Invalid or expired session")

	_, err = svc.Verify(context.Background(), token2)
	assert.NoError(t, err)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	user := model.User{ID: 7, Username: "bob", Role: model.RoleViewer}
	users := singleUserStore(t, user, "pw")
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, users, sessions)

	expiresAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := model.Session{
		ID:        "boundary-token",
		UserID:    7,
		Username:  "bob",
		Role:      model.RoleViewer,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, sessions.Store(context.Background(), session))

	// One nanosecond before expiry the session is still valid.
	svc.now = func() time.Time { return expiresAt.Add(-time.Nanosecond) }
	_, err := svc.Verify(context.Background(), "boundary-token")
	require.NoError(t, err)

	// At exactly expiresAt it is expired, and lazily removed.
	svc.now = func() time.Time { return expiresAt }
	_, err = svc.Verify(context.Background(), "boundary-token")
	assertUnauthorized(t, err, "Invalid or expired session")

	_, err = sessions.Find(context.Background(), "boundary-token")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestVerifyUnknownToken(t *testing.T) {
	svc := newTestAuthService(t, &fakeUserStore{}, newFakeSessionStore())

	_, err := svc.Verify(context.Background(), "no-such-token")
	assertUnauthorized(t, err, "Invalid or expired session")

	_, err = svc.Verify(context.Background(), "")
	assertUnauthorized(t, err, "Invalid or expired session")
}

func TestVerifyFailsClosedOnStoreError(t *testing.T) {
	sessions := newFakeSessionStore()
	sessions.findErr = errors.New("connection reset")
	svc := newTestAuthService(t, &fakeUserStore{}, sessions)

	_, err := svc.Verify(context.Background(), "some-token")
	assertUnauthorized(t, err, "Invalid or expired session")
}

func TestVerifyResolvesCurrentGroup(t *testing.T) {
	groupID := int64(3)
	groupName := "Operations"
	user := model.User{ID: 2, Username: "carol", Role: model.RoleViewer, GroupID: &groupID, GroupName: &groupName}
	users := singleUserStore(t, user, "pw")
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, users, sessions)

	token, _, err := svc.Login(context.Background(), "carol", "pw")
	require.NoError(t, err)

	identity, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, identity.GroupID)
	assert.Equal(t, groupID, *identity.GroupID)

	// Group membership is live: moving the user is visible on the next
	// verification without reissuing the token.
	newGroupID := int64(9)
	updated := users.byID[2]
	updated.GroupID = &newGroupID
	users.byID[2] = updated

	identity, err = svc.Verify(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, identity.GroupID)
	assert.Equal(t, newGroupID, *identity.GroupID)
}

func TestVerifyAfterUserDeleted(t *testing.T) {
	user := model.User{ID: 4, Username: "dave", Role: model.RoleViewer}
	users := singleUserStore(t, user, "pw")
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, users, sessions)

	token, _, err := svc.Login(context.Background(), "dave", "pw")
	require.NoError(t, err)

	// Simulate the cascade: user row and sessions both gone.
	delete(users.byID, 4)
	delete(users.byUsername, "dave")
	removed, err := sessions.RevokeAllForUser(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = svc.Verify(context.Background(), token)
	assertUnauthorized(t, err, "Invalid or expired session")
}

func TestLogoutIsIdempotentAndSilent(t *testing.T) {
	users := singleUserStore(t, model.User{ID: 1, Username: "alice", Role: model.RoleAdmin}, "pw")
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, users, sessions)

	token, _, err := svc.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	// Repeated logouts, unknown tokens and store failures all stay quiet.
	svc.Logout(context.Background(), token)
	svc.Logout(context.Background(), token)
	svc.Logout(context.Background(), "never-issued")
	svc.Logout(context.Background(), "")

	sessions.revokeErr = errors.New("store down")
	svc.Logout(context.Background(), "whatever")

	sessions.revokeErr = nil
	_, err = svc.Verify(context.Background(), token)
	assertUnauthorized(t, err, "Invalid or expired session")
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newTestAuthService(t, &fakeUserStore{}, sessions)

	now := time.Now().UTC()
	require.NoError(t, sessions.Store(context.Background(), model.Session{ID: "old", UserID: 1, ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, sessions.Store(context.Background(), model.Session{ID: "live", UserID: 1, ExpiresAt: now.Add(time.Hour)}))

	svc.SweepExpired(context.Background())

	_, err := sessions.Find(context.Background(), "old")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = sessions.Find(context.Background(), "live")
	assert.NoError(t, err)
}

func TestSessionIDEntropy(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id, err := newSessionID()
		require.NoError(t, err)
		require.Len(t, id, 64)
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id generated")
		seen[id] = struct{}{}
	}
}
