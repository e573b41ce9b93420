package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
)

// TwoFactorCredentialRepositoryPostgres implements
// repository.TwoFactorCredentialRepository for PostgreSQL.
type TwoFactorCredentialRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewTwoFactorCredentialRepositoryPostgres creates a new instance.
func NewTwoFactorCredentialRepositoryPostgres(pool *pgxpool.Pool) *TwoFactorCredentialRepositoryPostgres {
	return &TwoFactorCredentialRepositoryPostgres{pool: pool}
}

// FindByUserID retrieves the user's credential.
func (r *TwoFactorCredentialRepositoryPostgres) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.TwoFactorCredential, error) {
	query := `
		SELECT user_id, secret, enabled, backup_codes_generated, created_at, updated_at
		FROM two_factor_credentials
		WHERE user_id = $1
	`
	c := &models.TwoFactorCredential{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&c.UserID, &c.Secret, &c.Enabled, &c.BackupCodesGenerated, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find two-factor credential by user ID: %w", err)
	}
	return c, nil
}

// Create inserts a new credential row. user_id carries a unique
// constraint; enrollment never produces a second row for a user.
func (r *TwoFactorCredentialRepositoryPostgres) Create(ctx context.Context, cred *models.TwoFactorCredential) error {
	query := `
		INSERT INTO two_factor_credentials (user_id, secret, enabled, backup_codes_generated)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, cred.UserID, cred.Secret, cred.Enabled, cred.BackupCodesGenerated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create two-factor credential: %w", err)
	}
	return nil
}

// Update rewrites the existing credential row in place.
func (r *TwoFactorCredentialRepositoryPostgres) Update(ctx context.Context, cred *models.TwoFactorCredential) error {
	query := `
		UPDATE two_factor_credentials
		SET secret = $2, enabled = $3, backup_codes_generated = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.pool.Exec(ctx, query, cred.UserID, cred.Secret, cred.Enabled, cred.BackupCodesGenerated)
	if err != nil {
		return fmt.Errorf("failed to update two-factor credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// DeleteByUserID removes the credential.
func (r *TwoFactorCredentialRepositoryPostgres) DeleteByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `DELETE FROM two_factor_credentials WHERE user_id = $1`
	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete two-factor credential: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

var _ repository.TwoFactorCredentialRepository = (*TwoFactorCredentialRepositoryPostgres)(nil)
