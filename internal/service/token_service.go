package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
	"github.com/mortiscope/mortiscope-web-sub011/internal/metrics"
	"github.com/mortiscope/mortiscope-web-sub011/internal/security"
)

// singleUseTokenBytes is the entropy of an issued token (hex doubles the
// string length).
const singleUseTokenBytes = 32

// Kind-specific operator messages for failed lookups. The caller still
// sees plain "not found" either way.
var tokenLookupFailureMessages = map[models.TokenKind]string{
	models.TokenKindPasswordReset:   "DATABASE_ERROR: Failed to retrieve password reset token.",
	models.TokenKindAccountDeletion: "DATABASE_ERROR: Failed to retrieve account deletion token.",
	models.TokenKindEmailChange:     "DATABASE_ERROR: Failed to retrieve email change token.",
}

// TokenService issues and looks up single-use tokens for the
// password-reset, account-deletion and email-change flows.
//
// Lookups collapse "not found" and "storage error" into the same nil
// return on purpose: an attacker probing tokens cannot distinguish a
// transient infrastructure fault from an invalid token. The underlying
// cause still reaches the log with full context so operators can tell
// the two apart.
type TokenService struct {
	repo    repository.SingleUseTokenRepository
	metrics *metrics.Registry
	logger  *zap.Logger
}

// NewTokenService wires the token store.
func NewTokenService(repo repository.SingleUseTokenRepository, m *metrics.Registry, logger *zap.Logger) *TokenService {
	return &TokenService{repo: repo, metrics: m, logger: logger}
}

// GetPasswordResetToken looks up a password-reset token by raw value.
func (s *TokenService) GetPasswordResetToken(ctx context.Context, token string) *models.SingleUseToken {
	return s.getTokenByToken(ctx, models.TokenKindPasswordReset, token)
}

// GetAccountDeletionToken looks up an account-deletion token by raw value.
func (s *TokenService) GetAccountDeletionToken(ctx context.Context, token string) *models.SingleUseToken {
	return s.getTokenByToken(ctx, models.TokenKindAccountDeletion, token)
}

// GetEmailChangeToken looks up an email-change token by raw value.
func (s *TokenService) GetEmailChangeToken(ctx context.Context, token string) *models.SingleUseToken {
	return s.getTokenByToken(ctx, models.TokenKindEmailChange, token)
}

// getTokenByToken is a pure lookup. Expiry is not enforced here; the
// caller compares Expires against current time, which keeps the store
// reusable across the three token kinds.
func (s *TokenService) getTokenByToken(ctx context.Context, kind models.TokenKind, token string) *models.SingleUseToken {
	if token == "" {
		s.metrics.TokenLookups.WithLabelValues(string(kind), "not_found").Inc()
		return nil
	}

	t, err := s.repo.FindByToken(ctx, kind, token)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTokenNotFound) {
			s.metrics.TokenLookups.WithLabelValues(string(kind), "not_found").Inc()
			return nil
		}
		msg, ok := tokenLookupFailureMessages[kind]
		if !ok {
			msg = "DATABASE_ERROR: Failed to retrieve single-use token."
		}
		s.logger.Error(msg, zap.String("kind", string(kind)), zap.Error(err))
		s.metrics.TokenLookups.WithLabelValues(string(kind), "error").Inc()
		return nil
	}

	s.metrics.TokenLookups.WithLabelValues(string(kind), "found").Inc()
	return t
}

// IssueToken mints a fresh token for the identifier, replacing any
// previous active token of the same kind. The raw token value is
// returned exactly once.
func (s *TokenService) IssueToken(ctx context.Context, kind models.TokenKind, identifier string, ttl time.Duration) (*models.SingleUseToken, error) {
	value, err := security.GenerateSecureToken(singleUseTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token value: %w", err)
	}

	if _, err := s.repo.DeleteByIdentifier(ctx, kind, identifier); err != nil {
		return nil, fmt.Errorf("failed to replace existing tokens: %w", err)
	}

	token := &models.SingleUseToken{
		Identifier: identifier,
		Token:      value,
		Kind:       kind,
		Expires:    time.Now().Add(ttl),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// ConsumeToken deletes a token after its owning flow has honored it.
func (s *TokenService) ConsumeToken(ctx context.Context, kind models.TokenKind, token string) (bool, error) {
	return s.repo.Delete(ctx, kind, token)
}
