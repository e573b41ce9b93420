package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
)

const (
	sessionKeyPrefix = "session:token:"
	revokedKeyPrefix = "revoked:session:"
)

// SessionCache mirrors session state in Redis so the edge and other
// consumers can reject revoked tokens without a database round trip.
// Every write here is defense-in-depth: callers treat failures as
// non-fatal.
type SessionCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewSessionCache creates a new SessionCache. ttl bounds how long
// records and revocation markers live when the session's own expiry is
// unknown.
func NewSessionCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, logger: logger, ttl: ttl}
}

// Set stores the session record keyed by its token.
func (c *SessionCache) Set(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		c.logger.Error("Failed to marshal session data", zap.Error(err))
		return err
	}

	ttl := c.ttl
	if !session.ExpiresAt.IsZero() {
		if expiresIn := time.Until(session.ExpiresAt); expiresIn > 0 {
			ttl = expiresIn
		}
	}

	key := sessionKeyPrefix + session.SessionToken
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set session in cache", zap.Error(err))
		return err
	}
	return nil
}

// Get retrieves the cached session record for a token.
func (c *SessionCache) Get(ctx context.Context, token string) (*models.Session, error) {
	data, err := c.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		c.logger.Error("Failed to get session from cache", zap.Error(err))
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		c.logger.Error("Failed to unmarshal session data", zap.Error(err))
		return nil, err
	}
	return &session, nil
}

// RevokeTokens removes the cached session records for the given tokens
// and leaves a revocation marker behind for each. Returns false when any
// Redis operation failed; the failure is logged, not raised, because the
// cache is a secondary store.
func (c *SessionCache) RevokeTokens(ctx context.Context, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}

	pipe := c.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKeyPrefix+token)
		pipe.Set(ctx, revokedKeyPrefix+token, "1", c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("Failed to revoke session tokens in cache",
			zap.Error(err),
			zap.Int("token_count", len(tokens)),
		)
		return false
	}
	return true
}

// IsRevoked reports whether a revocation marker exists for the token.
func (c *SessionCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := c.client.Exists(ctx, revokedKeyPrefix+token).Result()
	if err != nil {
		c.logger.Error("Failed to check revoked session marker", zap.Error(err))
		return false, fmt.Errorf("failed to check revoked session marker: %w", err)
	}
	return exists > 0, nil
}
