package repository

import (
	"context"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
)

// SingleUseTokenRepository backs the password-reset, account-deletion and
// email-change flows. Lookup is by raw token value only; expiry
// enforcement and consumption belong to the calling flow.
type SingleUseTokenRepository interface {
	// Create persists a new token. token is unique; a duplicate insert
	// returns domainErrors.ErrAlreadyExists.
	Create(ctx context.Context, token *models.SingleUseToken) error

	// FindByToken retrieves a token of the given kind by raw value.
	// Returns domainErrors.ErrTokenNotFound if no row exists.
	FindByToken(ctx context.Context, kind models.TokenKind, token string) (*models.SingleUseToken, error)

	// DeleteByIdentifier removes all tokens of the given kind for an
	// identifier, returning the number deleted.
	DeleteByIdentifier(ctx context.Context, kind models.TokenKind, identifier string) (int64, error)

	// Delete consumes a token by raw value. Returns true when a row was
	// deleted.
	Delete(ctx context.Context, kind models.TokenKind, token string) (bool, error)
}
