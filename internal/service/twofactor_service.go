package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
	"github.com/mortiscope/mortiscope-web-sub011/internal/events"
	"github.com/mortiscope/mortiscope-web-sub011/internal/metrics"
	"github.com/mortiscope/mortiscope-web-sub011/internal/ratelimit"
	"github.com/mortiscope/mortiscope-web-sub011/internal/security"
)

// User-facing messages for the enrollment flow. The wording is part of
// the API surface; callers and tests match on it.
const (
	msgInvalidInput      = "Invalid input."
	msgUnauthorized      = "Unauthorized."
	msgTooFrequent       = "You are attempting to verify two-factor authentication too frequently."
	msgInvalidCode       = "Invalid verification code."
	msgAlreadyEnabled    = "Two-factor authentication is already enabled for this account."
	msgVerifyFailed      = "Failed to verify two-factor authentication code."
	msgSetupFailed       = "Failed to initiate two-factor enrollment."
	twoFactorLimitPrefix = "2fa-verify:"
)

var totpCodePattern = regexp.MustCompile(`^\d{6}$`)

// TwoFactorService drives TOTP enrollment: verifying a candidate code
// against a pending secret, persisting the credential, and issuing the
// recovery-code set.
type TwoFactorService struct {
	credRepo  repository.TwoFactorCredentialRepository
	codeRepo  repository.RecoveryCodeRepository
	totp      security.TOTPService
	hasher    security.Hasher
	encryptor security.Encryptor
	limiter   ratelimit.Limiter
	publisher events.Publisher
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// NewTwoFactorService wires the enrollment service.
func NewTwoFactorService(
	credRepo repository.TwoFactorCredentialRepository,
	codeRepo repository.RecoveryCodeRepository,
	totp security.TOTPService,
	hasher security.Hasher,
	encryptor security.Encryptor,
	limiter ratelimit.Limiter,
	publisher events.Publisher,
	m *metrics.Registry,
	logger *zap.Logger,
) *TwoFactorService {
	return &TwoFactorService{
		credRepo:  credRepo,
		codeRepo:  codeRepo,
		totp:      totp,
		hasher:    hasher,
		encryptor: encryptor,
		limiter:   limiter,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Setup generates a fresh pending TOTP secret for the user. The secret
// is returned to the caller and is not persisted until VerifyTwoFactor
// proves the authenticator holds it.
func (s *TwoFactorService) Setup(ctx context.Context, userID uuid.UUID, accountName string) (*models.TwoFactorSetup, string) {
	if userID == uuid.Nil {
		return nil, msgUnauthorized
	}

	cred, err := s.credRepo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		s.logger.Error("Failed to check existing two-factor credential", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, msgSetupFailed
	}
	if cred != nil && cred.Enabled {
		return nil, msgAlreadyEnabled
	}

	secret, otpAuthURL, err := s.totp.GenerateSecret(accountName)
	if err != nil {
		s.logger.Error("Failed to generate TOTP secret", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, msgSetupFailed
	}

	// The armored copy travels through client-held state between setup
	// and verification, so the pending secret is never exposed in a
	// replayable plain form outside the setup response itself.
	encryptedSecret, err := s.encryptor.Encrypt(secret)
	if err != nil {
		s.logger.Error("Failed to encrypt pending TOTP secret", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, msgSetupFailed
	}

	return &models.TwoFactorSetup{Secret: secret, EncryptedSecret: encryptedSecret, OTPAuthURL: otpAuthURL}, ""
}

// VerifyTwoFactor verifies the candidate code against the pending secret
// and, on success, enables two-factor authentication for the user and
// issues the full recovery-code set. Preconditions are checked in order
// and each short-circuits; nothing is mutated before the TOTP check
// passes.
func (s *TwoFactorService) VerifyTwoFactor(ctx context.Context, userID uuid.UUID, secret string, code string) *models.TwoFactorResult {
	if secret == "" || !totpCodePattern.MatchString(code) {
		s.metrics.TwoFactorVerifications.WithLabelValues("invalid_input").Inc()
		return &models.TwoFactorResult{Error: msgInvalidInput}
	}

	if userID == uuid.Nil {
		s.metrics.TwoFactorVerifications.WithLabelValues("unauthorized").Inc()
		return &models.TwoFactorResult{Error: msgUnauthorized}
	}

	limit, err := s.limiter.Limit(ctx, twoFactorLimitPrefix+userID.String())
	if err != nil {
		// The limiter fails open on infrastructure trouble; an error here
		// is unexpected and logged, but must not block the user.
		s.logger.Error("Rate limiter check failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if !limit.Success {
		s.metrics.TwoFactorVerifications.WithLabelValues("rate_limited").Inc()
		return &models.TwoFactorResult{Error: msgTooFrequent}
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil {
		s.logger.Debug("TOTP validation returned error", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if err != nil || !valid {
		s.metrics.TwoFactorVerifications.WithLabelValues("invalid_code").Inc()
		return &models.TwoFactorResult{Error: msgInvalidCode}
	}

	existing, err := s.credRepo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		s.logger.Error("Failed to look up two-factor credential", zap.String("user_id", userID.String()), zap.Error(err))
		s.metrics.TwoFactorVerifications.WithLabelValues("error").Inc()
		return &models.TwoFactorResult{Error: msgVerifyFailed}
	}
	if existing != nil && existing.Enabled {
		s.metrics.TwoFactorVerifications.WithLabelValues("already_enabled").Inc()
		return &models.TwoFactorResult{Error: msgAlreadyEnabled}
	}

	plainCodes, err := s.issueRecoveryCodes(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to issue recovery codes", zap.String("user_id", userID.String()), zap.Error(err))
		s.metrics.TwoFactorVerifications.WithLabelValues("error").Inc()
		return &models.TwoFactorResult{Error: msgVerifyFailed}
	}

	if err := s.upsertCredential(ctx, userID, secret, existing); err != nil {
		s.logger.Error("Failed to persist two-factor credential", zap.String("user_id", userID.String()), zap.Error(err))
		s.metrics.TwoFactorVerifications.WithLabelValues("error").Inc()
		return &models.TwoFactorResult{Error: msgVerifyFailed}
	}

	s.metrics.TwoFactorVerifications.WithLabelValues("success").Inc()
	s.publisher.Publish(ctx, events.EventTwoFactorEnabled, userID.String(), map[string]string{
		"user_id": userID.String(),
	})

	return &models.TwoFactorResult{Success: true, RecoveryCodes: plainCodes}
}

// issueRecoveryCodes generates, hashes and stores the full set, replacing
// any previous set wholesale. The plaintext codes are returned exactly
// once.
func (s *TwoFactorService) issueRecoveryCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	plainCodes, err := security.GenerateRecoveryCodes(models.RecoveryCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recovery codes: %w", err)
	}

	rows := make([]*models.RecoveryCode, len(plainCodes))
	for i, code := range plainCodes {
		hashed, err := s.hasher.Hash(code)
		if err != nil {
			return nil, fmt.Errorf("failed to hash recovery code %d: %w", i+1, err)
		}
		rows[i] = &models.RecoveryCode{ID: uuid.New(), UserID: userID, HashedCode: hashed}
	}

	if _, err := s.codeRepo.DeleteByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to clear previous recovery codes: %w", err)
	}
	if err := s.codeRepo.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to store recovery codes: %w", err)
	}
	return plainCodes, nil
}

// upsertCredential updates the pre-existing disabled row in place when
// present, otherwise inserts. The explicit read-then-branch keeps the
// replace-on-re-enrollment invariant testable.
func (s *TwoFactorService) upsertCredential(ctx context.Context, userID uuid.UUID, secret string, existing *models.TwoFactorCredential) error {
	cred := &models.TwoFactorCredential{
		UserID:               userID,
		Secret:               secret,
		Enabled:              true,
		BackupCodesGenerated: true,
	}
	if existing != nil {
		if err := s.credRepo.Update(ctx, cred); err != nil {
			return fmt.Errorf("failed to update two-factor credential: %w", err)
		}
		return nil
	}
	if err := s.credRepo.Create(ctx, cred); err != nil {
		return fmt.Errorf("failed to insert two-factor credential: %w", err)
	}
	return nil
}
