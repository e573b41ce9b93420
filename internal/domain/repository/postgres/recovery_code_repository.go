package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
)

// RecoveryCodeRepositoryPostgres implements
// repository.RecoveryCodeRepository for PostgreSQL.
type RecoveryCodeRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewRecoveryCodeRepositoryPostgres creates a new instance.
func NewRecoveryCodeRepositoryPostgres(pool *pgxpool.Pool) *RecoveryCodeRepositoryPostgres {
	return &RecoveryCodeRepositoryPostgres{pool: pool}
}

// CreateBatch persists the full set of hashed codes for a user in one
// round trip.
func (r *RecoveryCodeRepositoryPostgres) CreateBatch(ctx context.Context, codes []*models.RecoveryCode) error {
	if len(codes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `INSERT INTO recovery_codes (id, user_id, hashed_code) VALUES ($1, $2, $3)`
	for _, code := range codes {
		if code.ID == uuid.Nil {
			code.ID = uuid.New()
		}
		batch.Queue(query, code.ID, code.UserID, code.HashedCode)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range codes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert recovery code batch: %w", err)
		}
	}
	return nil
}

// FindByUserID returns the user's stored codes.
func (r *RecoveryCodeRepositoryPostgres) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*models.RecoveryCode, error) {
	query := `
		SELECT id, user_id, hashed_code, created_at
		FROM recovery_codes
		WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find recovery codes for user: %w", err)
	}
	defer rows.Close()

	var out []*models.RecoveryCode
	for rows.Next() {
		c := &models.RecoveryCode{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.HashedCode, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recovery code row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recovery code rows: %w", err)
	}
	return out, nil
}

// DeleteByUserID removes all codes for the user.
func (r *RecoveryCodeRepositoryPostgres) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `DELETE FROM recovery_codes WHERE user_id = $1`
	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recovery codes for user: %w", err)
	}
	return result.RowsAffected(), nil
}

// Delete consumes a single code by id.
func (r *RecoveryCodeRepositoryPostgres) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM recovery_codes WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete recovery code: %w", err)
	}
	return nil
}

var _ repository.RecoveryCodeRepository = (*RecoveryCodeRepositoryPostgres)(nil)
