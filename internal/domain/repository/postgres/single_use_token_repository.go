package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
)

// SingleUseTokenRepositoryPostgres implements
// repository.SingleUseTokenRepository for PostgreSQL. All three token
// kinds share one table, discriminated by the kind column.
type SingleUseTokenRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewSingleUseTokenRepositoryPostgres creates a new instance.
func NewSingleUseTokenRepositoryPostgres(pool *pgxpool.Pool) *SingleUseTokenRepositoryPostgres {
	return &SingleUseTokenRepositoryPostgres{pool: pool}
}

// Create persists a new token.
func (r *SingleUseTokenRepositoryPostgres) Create(ctx context.Context, token *models.SingleUseToken) error {
	query := `
		INSERT INTO single_use_tokens (identifier, token, kind, expires)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, token.Identifier, token.Token, token.Kind, token.Expires)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create single-use token: %w", err)
	}
	return nil
}

// FindByToken retrieves a token of the given kind by raw value. No
// expiry filter here: the caller compares expires against current time.
func (r *SingleUseTokenRepositoryPostgres) FindByToken(ctx context.Context, kind models.TokenKind, token string) (*models.SingleUseToken, error) {
	query := `
		SELECT identifier, token, kind, expires
		FROM single_use_tokens
		WHERE token = $1 AND kind = $2
	`
	t := &models.SingleUseToken{}
	err := r.pool.QueryRow(ctx, query, token, kind).Scan(&t.Identifier, &t.Token, &t.Kind, &t.Expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find single-use token: %w", err)
	}
	return t, nil
}

// DeleteByIdentifier removes all tokens of the given kind for an
// identifier.
func (r *SingleUseTokenRepositoryPostgres) DeleteByIdentifier(ctx context.Context, kind models.TokenKind, identifier string) (int64, error) {
	query := `DELETE FROM single_use_tokens WHERE identifier = $1 AND kind = $2`
	result, err := r.pool.Exec(ctx, query, identifier, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to delete single-use tokens by identifier: %w", err)
	}
	return result.RowsAffected(), nil
}

// Delete consumes a token by raw value.
func (r *SingleUseTokenRepositoryPostgres) Delete(ctx context.Context, kind models.TokenKind, token string) (bool, error) {
	query := `DELETE FROM single_use_tokens WHERE token = $1 AND kind = $2`
	result, err := r.pool.Exec(ctx, query, token, kind)
	if err != nil {
		return false, fmt.Errorf("failed to delete single-use token: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

var _ repository.SingleUseTokenRepository = (*SingleUseTokenRepositoryPostgres)(nil)
