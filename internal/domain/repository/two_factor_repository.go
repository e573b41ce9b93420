package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
)

// TwoFactorCredentialRepository manages the one-per-user TOTP credential.
type TwoFactorCredentialRepository interface {
	// FindByUserID retrieves the user's credential.
	// Returns domainErrors.ErrNotFound if no row exists.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.TwoFactorCredential, error)

	// Create inserts a new credential row. user_id is unique; a duplicate
	// insert returns domainErrors.ErrAlreadyExists.
	Create(ctx context.Context, cred *models.TwoFactorCredential) error

	// Update rewrites the existing credential row in place.
	Update(ctx context.Context, cred *models.TwoFactorCredential) error

	// DeleteByUserID removes the credential. Returns true when a row was
	// deleted.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RecoveryCodeRepository manages hashed recovery codes, written as a full
// set at enrollment and replaced wholesale on re-enrollment.
type RecoveryCodeRepository interface {
	// CreateBatch persists the full set of hashed codes for a user.
	CreateBatch(ctx context.Context, codes []*models.RecoveryCode) error

	// FindByUserID returns the user's stored codes.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*models.RecoveryCode, error)

	// DeleteByUserID removes all codes for the user, returning the number
	// deleted.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// Delete consumes a single code by id.
	Delete(ctx context.Context, id uuid.UUID) error
}
