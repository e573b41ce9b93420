package models

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryCodeCount is the fixed fan-out of recovery codes issued per
// successful two-factor enrollment. Re-enrollment replaces the full set.
const RecoveryCodeCount = 16

// TwoFactorCredential stores a user's TOTP enrollment state. At most one
// row exists per user: an Enabled=false row left behind by an earlier
// incomplete attempt is updated in place, never duplicated.
type TwoFactorCredential struct {
	UserID               uuid.UUID `json:"user_id" db:"user_id"`
	Secret               string    `json:"-" db:"secret"`
	Enabled              bool      `json:"enabled" db:"enabled"`
	BackupCodesGenerated bool      `json:"backup_codes_generated" db:"backup_codes_generated"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// RecoveryCode is a single hashed backup credential. Write-once at
// enrollment; consumption during recovery sign-in is owned by the sign-in
// flow, not by enrollment.
type RecoveryCode struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	HashedCode string    `json:"-" db:"hashed_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TwoFactorResult is returned by VerifyTwoFactor. On success it carries
// the full plaintext recovery-code set exactly once; the codes cannot be
// retrieved again after this call.
type TwoFactorResult struct {
	Success       bool     `json:"success"`
	RecoveryCodes []string `json:"recoveryCodes,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// TwoFactorSetup is returned when a fresh enrollment is initiated.
// EncryptedSecret is the armored copy of Secret produced by the
// encryption module; clients echo it through the verify step instead of
// holding the plain secret in storage.
type TwoFactorSetup struct {
	Secret          string `json:"secret"`
	EncryptedSecret string `json:"encryptedSecret"`
	OTPAuthURL      string `json:"otpauth_url"`
}
