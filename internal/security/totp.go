package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPService generates and validates time-based one-time passwords.
type TOTPService interface {
	GenerateSecret(accountName string) (secretBase32 string, otpAuthURL string, err error)
	ValidateCode(secretBase32 string, code string) (bool, error)
}

type totpService struct {
	issuer string
}

// NewTOTPService creates a TOTP service with the given issuer name.
func NewTOTPService(issuer string) TOTPService {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Mortiscope"
	}
	return &totpService{issuer: issuer}
}

// GenerateSecret creates a new TOTP secret and its otpauth:// URL.
func (s *totpService) GenerateSecret(accountName string) (string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", fmt.Errorf("accountName cannot be empty for TOTP secret generation")
	}
	if strings.Contains(accountName, ":") {
		return "", "", fmt.Errorf("accountName cannot contain a colon character")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateCode checks the code against the current time step, allowing
// one period of clock drift either side.
func (s *totpService) ValidateCode(secretBase32 string, code string) (bool, error) {
	if strings.TrimSpace(secretBase32) == "" {
		return false, fmt.Errorf("secret cannot be empty")
	}
	if strings.TrimSpace(code) == "" {
		return false, fmt.Errorf("code cannot be empty")
	}

	valid, err := totp.ValidateCustom(code, secretBase32, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("error during TOTP code validation: %w", err)
	}
	return valid, nil
}

var _ TOTPService = (*totpService)(nil)
