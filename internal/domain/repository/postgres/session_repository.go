package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
)

// SessionRepositoryPostgres implements repository.SessionRepository for
// PostgreSQL.
type SessionRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewSessionRepositoryPostgres creates a new instance.
func NewSessionRepositoryPostgres(pool *pgxpool.Pool) *SessionRepositoryPostgres {
	return &SessionRepositoryPostgres{pool: pool}
}

// Create persists a new session.
func (r *SessionRepositoryPostgres) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (session_token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query, session.SessionToken, session.UserID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByToken retrieves a session by its token.
func (r *SessionRepositoryPostgres) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT session_token, user_id, expires_at
		FROM sessions
		WHERE session_token = $1
	`
	s := &models.Session{}
	err := r.pool.QueryRow(ctx, query, token).Scan(&s.SessionToken, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}
	return s, nil
}

// DeleteByToken removes the session keyed by token.
func (r *SessionRepositoryPostgres) DeleteByToken(ctx context.Context, token string) (bool, error) {
	query := `DELETE FROM sessions WHERE session_token = $1`
	result, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete session by token: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteExpired removes all sessions past their expiry.
func (r *SessionRepositoryPostgres) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

var _ repository.SessionRepository = (*SessionRepositoryPostgres)(nil)
