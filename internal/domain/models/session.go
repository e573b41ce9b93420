package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the canonical proof of an active login. One row exists per
// active browser session token; the row is created at sign-in and deleted
// on revocation or natural expiry.
type Session struct {
	SessionToken string    `json:"session_token" db:"session_token"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SessionMetadata is the richer, user-facing record of a session. It is
// keyed one-to-one to a Session by SessionToken but independently
// lifecycled: metadata may outlive its Session (an "orphan") and callers
// must tolerate that. Rows are owned exclusively by UserID.
type SessionMetadata struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	SessionToken     string    `json:"-" db:"session_token"`
	BrowserName      *string   `json:"browser_name,omitempty" db:"browser_name"`
	BrowserVersion   *string   `json:"browser_version,omitempty" db:"browser_version"`
	OSName           *string   `json:"os_name,omitempty" db:"os_name"`
	OSVersion        *string   `json:"os_version,omitempty" db:"os_version"`
	DeviceType       *string   `json:"device_type,omitempty" db:"device_type"`
	UserAgent        *string   `json:"user_agent,omitempty" db:"user_agent"`
	IPAddress        *string   `json:"ip_address,omitempty" db:"ip_address"`
	IsCurrentSession bool      `json:"is_current_session" db:"-"`
	LastActiveAt     time.Time `json:"last_active_at" db:"last_active_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	ExpiresAt        time.Time `json:"expires_at" db:"expires_at"`
}

// RevokedToken is an append-only denylist entry for a session token.
// Insertion is idempotent under unique-constraint races: two concurrent
// revocations of the same token must both succeed.
type RevokedToken struct {
	Token     string    `json:"token" db:"token"`
	RevokedAt time.Time `json:"revoked_at" db:"revoked_at"`
}

// RevokeSessionResult is the uniform shape returned by the session
// revocation entry points. Expected failures carry a message; they are
// never surfaced as errors to the HTTP layer.
type RevokeSessionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
