package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
)

// SessionRepository manages canonical Session rows keyed by session token.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *models.Session) error

	// FindByToken retrieves a session by its token.
	// Returns domainErrors.ErrSessionNotFound if no row exists.
	FindByToken(ctx context.Context, token string) (*models.Session, error)

	// DeleteByToken removes the session keyed by token. Returns true when
	// a row was deleted, false when nothing matched.
	DeleteByToken(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes all sessions past their expiry.
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionMetadataRepository manages the user-facing metadata records.
// Metadata is independently lifecycled from Session rows; orphans are
// legal and must be tolerated.
type SessionMetadataRepository interface {
	// Create persists a new metadata record.
	Create(ctx context.Context, meta *models.SessionMetadata) error

	// FindByID retrieves a metadata record by id.
	// Returns domainErrors.ErrSessionNotFound if no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (*models.SessionMetadata, error)

	// ListByUserID returns all metadata records owned by the user, most
	// recently active first.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.SessionMetadata, error)

	// Delete removes a metadata record. Returns true when a row was
	// deleted, false when it was already gone.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// TouchLastActive updates the last-active timestamp for the record
	// matching the session token.
	TouchLastActive(ctx context.Context, sessionToken string) error
}

// RevokedTokenRepository is the append-only session-token denylist.
type RevokedTokenRepository interface {
	// Insert appends a token to the denylist. A duplicate insert returns
	// domainErrors.ErrAlreadyExists so callers can treat the race as
	// benign.
	Insert(ctx context.Context, entry *models.RevokedToken) error

	// IsRevoked reports whether the token is on the denylist.
	IsRevoked(ctx context.Context, token string) (bool, error)
}
