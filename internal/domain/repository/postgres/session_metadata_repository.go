package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
)

// SessionMetadataRepositoryPostgres implements
// repository.SessionMetadataRepository for PostgreSQL.
type SessionMetadataRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewSessionMetadataRepositoryPostgres creates a new instance.
func NewSessionMetadataRepositoryPostgres(pool *pgxpool.Pool) *SessionMetadataRepositoryPostgres {
	return &SessionMetadataRepositoryPostgres{pool: pool}
}

const sessionMetadataColumns = `
	id, user_id, session_token, browser_name, browser_version,
	os_name, os_version, device_type, user_agent, ip_address,
	last_active_at, created_at, expires_at
`

func scanSessionMetadata(row pgx.Row) (*models.SessionMetadata, error) {
	m := &models.SessionMetadata{}
	err := row.Scan(
		&m.ID, &m.UserID, &m.SessionToken, &m.BrowserName, &m.BrowserVersion,
		&m.OSName, &m.OSVersion, &m.DeviceType, &m.UserAgent, &m.IPAddress,
		&m.LastActiveAt, &m.CreatedAt, &m.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create persists a new metadata record.
func (r *SessionMetadataRepositoryPostgres) Create(ctx context.Context, meta *models.SessionMetadata) error {
	query := `
		INSERT INTO session_metadata (
			id, user_id, session_token, browser_name, browser_version,
			os_name, os_version, device_type, user_agent, ip_address,
			last_active_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	if meta.LastActiveAt.IsZero() {
		meta.LastActiveAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		meta.ID, meta.UserID, meta.SessionToken, meta.BrowserName, meta.BrowserVersion,
		meta.OSName, meta.OSVersion, meta.DeviceType, meta.UserAgent, meta.IPAddress,
		meta.LastActiveAt, meta.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session metadata: %w", err)
	}
	return nil
}

// FindByID retrieves a metadata record by id.
func (r *SessionMetadataRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*models.SessionMetadata, error) {
	query := `SELECT ` + sessionMetadataColumns + ` FROM session_metadata WHERE id = $1`
	m, err := scanSessionMetadata(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session metadata by ID: %w", err)
	}
	return m, nil
}

// ListByUserID returns all metadata records owned by the user.
func (r *SessionMetadataRepositoryPostgres) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.SessionMetadata, error) {
	query := `
		SELECT ` + sessionMetadataColumns + `
		FROM session_metadata
		WHERE user_id = $1
		ORDER BY last_active_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session metadata for user: %w", err)
	}
	defer rows.Close()

	var out []*models.SessionMetadata
	for rows.Next() {
		m, err := scanSessionMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session metadata row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session metadata rows: %w", err)
	}
	return out, nil
}

// Delete removes a metadata record.
func (r *SessionMetadataRepositoryPostgres) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM session_metadata WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session metadata: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// TouchLastActive updates the last-active timestamp for the record
// matching the session token.
func (r *SessionMetadataRepositoryPostgres) TouchLastActive(ctx context.Context, sessionToken string) error {
	query := `UPDATE session_metadata SET last_active_at = NOW() WHERE session_token = $1`
	if _, err := r.pool.Exec(ctx, query, sessionToken); err != nil {
		return fmt.Errorf("failed to touch session metadata: %w", err)
	}
	return nil
}

var _ repository.SessionMetadataRepository = (*SessionMetadataRepositoryPostgres)(nil)
