package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
)

const pgUniqueViolation = "23505"

// RevokedTokenRepositoryPostgres implements
// repository.RevokedTokenRepository for PostgreSQL. The denylist is
// append-only; rows are never updated or deleted here.
type RevokedTokenRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewRevokedTokenRepositoryPostgres creates a new instance.
func NewRevokedTokenRepositoryPostgres(pool *pgxpool.Pool) *RevokedTokenRepositoryPostgres {
	return &RevokedTokenRepositoryPostgres{pool: pool}
}

// Insert appends a token to the denylist. A duplicate insert surfaces as
// domainErrors.ErrAlreadyExists so callers can treat the concurrent
// revocation race as benign.
func (r *RevokedTokenRepositoryPostgres) Insert(ctx context.Context, entry *models.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (token, revoked_at)
		VALUES ($1, $2)
	`
	if entry.RevokedAt.IsZero() {
		entry.RevokedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query, entry.Token, entry.RevokedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert revoked token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token is on the denylist.
func (r *RevokedTokenRepositoryPostgres) IsRevoked(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return exists, nil
}

var _ repository.RevokedTokenRepository = (*RevokedTokenRepositoryPostgres)(nil)
