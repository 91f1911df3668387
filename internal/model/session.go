package model

import "time"

// Session is the server-side record behind an opaque bearer token. The id is
// 32 random bytes hex-encoded. Username and role are denormalized copies
// taken at issue time; changing a user's role does not affect sessions that
// are already out until they are reissued.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its TTL at the given instant.
// A lookup at exactly ExpiresAt counts as expired.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
