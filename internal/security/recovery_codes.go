package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// recoveryCodeAlphabet deliberately omits characters that are easy to
// misread when a user types a printed code (0/O, 1/I/L).
const recoveryCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// recoveryCodeLength is the length of each generated recovery code.
const recoveryCodeLength = 10

// GenerateRecoveryCodes returns n cryptographically random recovery
// codes. Each code is independent; the caller hashes them before
// persisting.
func GenerateRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := 0; i < n; i++ {
		code, err := generateRecoveryCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate recovery code %d: %w", i+1, err)
		}
		codes[i] = code
	}
	return codes, nil
}

func generateRecoveryCode() (string, error) {
	buf := make([]byte, recoveryCodeLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	out := make([]byte, recoveryCodeLength)
	for i, b := range buf {
		out[i] = recoveryCodeAlphabet[int(b)%len(recoveryCodeAlphabet)]
	}
	// Hyphenate the middle for readability: xxxxx-xxxxx.
	return string(out[:recoveryCodeLength/2]) + "-" + string(out[recoveryCodeLength/2:]), nil
}

// GenerateSecureToken generates a random hex string of 2*byteLength
// characters, suitable for single-use token values.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 32
	}
	b := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes for token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
