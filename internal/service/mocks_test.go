package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/metrics"
	"github.com/mortiscope/mortiscope-web-sub011/internal/ratelimit"
)

func newTestMetrics() *metrics.Registry {
	return metrics.NewRegistry(prometheus.NewRegistry())
}

type MockTwoFactorCredentialRepository struct {
	mock.Mock
}

func (m *MockTwoFactorCredentialRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.TwoFactorCredential, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TwoFactorCredential), args.Error(1)
}

func (m *MockTwoFactorCredentialRepository) Create(ctx context.Context, cred *models.TwoFactorCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockTwoFactorCredentialRepository) Update(ctx context.Context, cred *models.TwoFactorCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockTwoFactorCredentialRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockRecoveryCodeRepository struct {
	mock.Mock
}

func (m *MockRecoveryCodeRepository) CreateBatch(ctx context.Context, codes []*models.RecoveryCode) error {
	args := m.Called(ctx, codes)
	return args.Error(0)
}

func (m *MockRecoveryCodeRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*models.RecoveryCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecoveryCode), args.Error(1)
}

func (m *MockRecoveryCodeRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecoveryCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockSessionMetadataRepository struct {
	mock.Mock
}

func (m *MockSessionMetadataRepository) Create(ctx context.Context, meta *models.SessionMetadata) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockSessionMetadataRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.SessionMetadata, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionMetadata), args.Error(1)
}

func (m *MockSessionMetadataRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.SessionMetadata, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SessionMetadata), args.Error(1)
}

func (m *MockSessionMetadataRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionMetadataRepository) TouchLastActive(ctx context.Context, sessionToken string) error {
	args := m.Called(ctx, sessionToken)
	return args.Error(0)
}

type MockRevokedTokenRepository struct {
	mock.Mock
}

func (m *MockRevokedTokenRepository) Insert(ctx context.Context, entry *models.RevokedToken) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockSessionCache struct {
	mock.Mock
}

func (m *MockSessionCache) Set(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionCache) RevokeTokens(ctx context.Context, tokens []string) bool {
	args := m.Called(ctx, tokens)
	return args.Bool(0)
}

type MockSingleUseTokenRepository struct {
	mock.Mock
}

func (m *MockSingleUseTokenRepository) Create(ctx context.Context, token *models.SingleUseToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSingleUseTokenRepository) FindByToken(ctx context.Context, kind models.TokenKind, token string) (*models.SingleUseToken, error) {
	args := m.Called(ctx, kind, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SingleUseToken), args.Error(1)
}

func (m *MockSingleUseTokenRepository) DeleteByIdentifier(ctx context.Context, kind models.TokenKind, identifier string) (int64, error) {
	args := m.Called(ctx, kind, identifier)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSingleUseTokenRepository) Delete(ctx context.Context, kind models.TokenKind, token string) (bool, error) {
	args := m.Called(ctx, kind, token)
	return args.Bool(0), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Limit(ctx context.Context, key string) (ratelimit.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, subject string, data interface{}) {
	m.Called(ctx, eventType, subject, data)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
