package models

import "time"

// TokenKind distinguishes the three single-use token flows that share one
// storage shape.
type TokenKind string

const (
	TokenKindPasswordReset   TokenKind = "password_reset"
	TokenKindAccountDeletion TokenKind = "account_deletion"
	TokenKindEmailChange     TokenKind = "email_change"
)

// SingleUseToken backs the password-reset, account-deletion and
// email-change flows. It is looked up by raw token value only; expiry is
// compared by the caller and consumption is owned by the calling flow.
type SingleUseToken struct {
	Identifier string    `json:"identifier" db:"identifier"`
	Token      string    `json:"token" db:"token"`
	Kind       TokenKind `json:"kind" db:"kind"`
	Expires    time.Time `json:"expires" db:"expires"`
}

// IsExpired reports whether the token is past its expiry.
func (t *SingleUseToken) IsExpired(now time.Time) bool {
	return now.After(t.Expires)
}
