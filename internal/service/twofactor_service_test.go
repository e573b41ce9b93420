package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/ratelimit"
	"github.com/mortiscope/mortiscope-web-sub011/internal/security"
	"github.com/mortiscope/mortiscope-web-sub011/internal/service"
)

type twoFactorFixture struct {
	credRepo  *MockTwoFactorCredentialRepository
	codeRepo  *MockRecoveryCodeRepository
	limiter   *MockLimiter
	publisher *MockPublisher
	svc       *service.TwoFactorService
}

func newTwoFactorFixture(t *testing.T) *twoFactorFixture {
	t.Helper()

	hasher, err := security.NewArgon2idHasher(security.Argon2idParams{
		Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)

	encryptor, err := security.NewAESGCMEncryptor(
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", zap.NewNop())
	require.NoError(t, err)

	f := &twoFactorFixture{
		credRepo:  new(MockTwoFactorCredentialRepository),
		codeRepo:  new(MockRecoveryCodeRepository),
		limiter:   new(MockLimiter),
		publisher: new(MockPublisher),
	}
	f.svc = service.NewTwoFactorService(
		f.credRepo, f.codeRepo,
		security.NewTOTPService("Mortiscope"),
		hasher, encryptor, f.limiter, f.publisher,
		newTestMetrics(), zap.NewNop(),
	)
	return f
}

func (f *twoFactorFixture) allowLimiter() {
	f.limiter.On("Limit", mock.Anything, mock.Anything).Return(ratelimit.Result{Success: true, Remaining: 1}, nil)
}

// enrollmentSecret returns a freshly generated TOTP secret together
// with a currently valid code and one guaranteed-invalid code.
func enrollmentSecret(t *testing.T) (secret, validCode, invalidCode string) {
	t.Helper()

	svc := security.NewTOTPService("Mortiscope")
	secret, _, err := svc.GenerateSecret("user@example.com")
	require.NoError(t, err)

	validCode, err = totp.GenerateCodeCustom(secret, time.Now().UTC(), totp.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	// Flip the last digit so the candidate cannot match any window.
	last := validCode[len(validCode)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	invalidCode = validCode[:len(validCode)-1] + string(flipped)
	return secret, validCode, invalidCode
}

func TestVerifyTwoFactor_InvalidInputShape(t *testing.T) {
	f := newTwoFactorFixture(t)
	userID := uuid.New()

	for _, tc := range []struct{ secret, code string }{
		{"", "123456"},
		{"SOMESECRET", ""},
		{"SOMESECRET", "12345"},
		{"SOMESECRET", "1234567"},
		{"SOMESECRET", "12345a"},
	} {
		result := f.svc.VerifyTwoFactor(context.Background(), userID, tc.secret, tc.code)
		assert.False(t, result.Success)
		assert.Equal(t, "Invalid input.", result.Error)
	}
	f.limiter.AssertNotCalled(t, "Limit", mock.Anything, mock.Anything)
	f.credRepo.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
}

func TestVerifyTwoFactor_NoPrincipal(t *testing.T) {
	f := newTwoFactorFixture(t)

	result := f.svc.VerifyTwoFactor(context.Background(), uuid.Nil, "SOMESECRET", "123456")
	assert.False(t, result.Success)
	assert.Equal(t, "Unauthorized.", result.Error)
	f.limiter.AssertNotCalled(t, "Limit", mock.Anything, mock.Anything)
}

func TestVerifyTwoFactor_RateLimited(t *testing.T) {
	f := newTwoFactorFixture(t)
	userID := uuid.New()

	f.limiter.On("Limit", mock.Anything, "2fa-verify:"+userID.String()).
		Return(ratelimit.Result{Success: false}, nil)

	result := f.svc.VerifyTwoFactor(context.Background(), userID, "SOMESECRET", "123456")
	assert.False(t, result.Success)
	assert.Equal(t, "You are attempting to verify two-factor authentication too frequently.", result.Error)
	f.credRepo.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
}

func TestVerifyTwoFactor_InvalidCodeMutatesNothing(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.allowLimiter()
	userID := uuid.New()
	secret, _, invalidCode := enrollmentSecret(t)

	result := f.svc.VerifyTwoFactor(context.Background(), userID, secret, invalidCode)
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid verification code.", result.Error)

	f.credRepo.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
	f.codeRepo.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
	f.codeRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyTwoFactor_SuccessNewEnrollment(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.allowLimiter()
	userID := uuid.New()
	secret, validCode, _ := enrollmentSecret(t)

	f.credRepo.On("FindByUserID", mock.Anything, userID).Return(nil, domainErrors.ErrNotFound).Once()
	f.codeRepo.On("DeleteByUserID", mock.Anything, userID).Return(int64(0), nil).Once()

	var storedCodes []*models.RecoveryCode
	f.codeRepo.On("CreateBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			storedCodes = args.Get(1).([]*models.RecoveryCode)
		}).Return(nil).Once()

	f.credRepo.On("Create", mock.Anything, mock.MatchedBy(func(cred *models.TwoFactorCredential) bool {
		return cred.UserID == userID && cred.Secret == secret && cred.Enabled && cred.BackupCodesGenerated
	})).Return(nil).Once()

	f.publisher.On("Publish", mock.Anything, "auth.2fa.enabled", userID.String(), mock.Anything).Return().Once()

	result := f.svc.VerifyTwoFactor(context.Background(), userID, secret, validCode)

	require.True(t, result.Success, "error: %s", result.Error)
	require.Len(t, result.RecoveryCodes, models.RecoveryCodeCount)

	seen := make(map[string]bool)
	for _, code := range result.RecoveryCodes {
		assert.False(t, seen[code])
		seen[code] = true
	}

	require.Len(t, storedCodes, models.RecoveryCodeCount)
	for i, row := range storedCodes {
		assert.Equal(t, userID, row.UserID)
		assert.NotEqual(t, result.RecoveryCodes[i], row.HashedCode)
		assert.Contains(t, row.HashedCode, "$argon2id$")
	}

	f.credRepo.AssertExpectations(t)
	f.codeRepo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestVerifyTwoFactor_AlreadyEnabled(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.allowLimiter()
	userID := uuid.New()
	secret, validCode, _ := enrollmentSecret(t)

	f.credRepo.On("FindByUserID", mock.Anything, userID).
		Return(&models.TwoFactorCredential{UserID: userID, Secret: "old", Enabled: true}, nil).Once()

	result := f.svc.VerifyTwoFactor(context.Background(), userID, secret, validCode)
	assert.False(t, result.Success)
	assert.Equal(t, "Two-factor authentication is already enabled for this account.", result.Error)

	f.codeRepo.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
	f.credRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.credRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestVerifyTwoFactor_PendingCredentialUpdatedInPlace(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.allowLimiter()
	userID := uuid.New()
	secret, validCode, _ := enrollmentSecret(t)

	f.credRepo.On("FindByUserID", mock.Anything, userID).
		Return(&models.TwoFactorCredential{UserID: userID, Secret: "stale-pending", Enabled: false}, nil).Once()
	f.codeRepo.On("DeleteByUserID", mock.Anything, userID).Return(int64(16), nil).Once()
	f.codeRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil).Once()
	f.credRepo.On("Update", mock.Anything, mock.MatchedBy(func(cred *models.TwoFactorCredential) bool {
		return cred.UserID == userID && cred.Secret == secret && cred.Enabled
	})).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, "auth.2fa.enabled", userID.String(), mock.Anything).Return().Once()

	result := f.svc.VerifyTwoFactor(context.Background(), userID, secret, validCode)

	require.True(t, result.Success, "error: %s", result.Error)
	f.credRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.credRepo.AssertExpectations(t)
}

func TestVerifyTwoFactor_RecoveryCodeStorageFailure(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.allowLimiter()
	userID := uuid.New()
	secret, validCode, _ := enrollmentSecret(t)

	f.credRepo.On("FindByUserID", mock.Anything, userID).Return(nil, domainErrors.ErrNotFound).Once()
	f.codeRepo.On("DeleteByUserID", mock.Anything, userID).Return(int64(0), nil).Once()
	f.codeRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

	result := f.svc.VerifyTwoFactor(context.Background(), userID, secret, validCode)
	assert.False(t, result.Success)
	assert.Equal(t, "Failed to verify two-factor authentication code.", result.Error)

	f.credRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyTwoFactor_CredentialLookupError(t *testing.T) {
	f := newTwoFactorFixture(t)
	f.allowLimiter()
	userID := uuid.New()
	secret, validCode, _ := enrollmentSecret(t)

	f.credRepo.On("FindByUserID", mock.Anything, userID).Return(nil, errors.New("connection reset")).Once()

	result := f.svc.VerifyTwoFactor(context.Background(), userID, secret, validCode)
	assert.False(t, result.Success)
	assert.Equal(t, "Failed to verify two-factor authentication code.", result.Error)
}

func TestSetup_NoPrincipal(t *testing.T) {
	f := newTwoFactorFixture(t)

	setup, errMsg := f.svc.Setup(context.Background(), uuid.Nil, "user@example.com")
	assert.Nil(t, setup)
	assert.Equal(t, "Unauthorized.", errMsg)
}

func TestSetup_AlreadyEnabled(t *testing.T) {
	f := newTwoFactorFixture(t)
	userID := uuid.New()

	f.credRepo.On("FindByUserID", mock.Anything, userID).
		Return(&models.TwoFactorCredential{UserID: userID, Enabled: true}, nil).Once()

	setup, errMsg := f.svc.Setup(context.Background(), userID, "user@example.com")
	assert.Nil(t, setup)
	assert.Equal(t, "Two-factor authentication is already enabled for this account.", errMsg)
}

func TestSetup_Success(t *testing.T) {
	f := newTwoFactorFixture(t)
	userID := uuid.New()

	f.credRepo.On("FindByUserID", mock.Anything, userID).Return(nil, domainErrors.ErrNotFound).Once()

	setup, errMsg := f.svc.Setup(context.Background(), userID, "user@example.com")
	require.Empty(t, errMsg)
	require.NotNil(t, setup)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	assert.NotEmpty(t, setup.EncryptedSecret)
	assert.NotContains(t, setup.EncryptedSecret, setup.Secret)
}
