package security_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/security"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestEncryptor(t *testing.T) security.Encryptor {
	t.Helper()
	enc, err := security.NewAESGCMEncryptor(testKeyHex, zap.NewNop())
	require.NoError(t, err)
	return enc
}

func TestNewAESGCMEncryptor_RejectsBadKeys(t *testing.T) {
	_, err := security.NewAESGCMEncryptor("not-hex", zap.NewNop())
	assert.Error(t, err)

	_, err = security.NewAESGCMEncryptor("abcdef", zap.NewNop())
	assert.Error(t, err)
}

func TestEncrypt_RoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	for _, plain := range []string{"", "a", "some TOTP secret value", "unicode: héllo ✓"} {
		cipherText, err := enc.Encrypt(plain)
		require.NoError(t, err)
		assert.Equal(t, plain, enc.Decrypt(cipherText))
	}
}

func TestEncrypt_WireFormat(t *testing.T) {
	enc := newTestEncryptor(t)

	cipherText, err := enc.Encrypt("payload")
	require.NoError(t, err)

	parts := strings.Split(cipherText, ":")
	require.Len(t, parts, 3)

	iv, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, iv, 16)

	tag, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)

	_, err = hex.DecodeString(parts[2])
	assert.NoError(t, err)
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	enc := newTestEncryptor(t)

	first, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, strings.Split(first, ":")[0], strings.Split(second, ":")[0])
}

func TestDecrypt_TamperedCiphertextIsRedacted(t *testing.T) {
	enc := newTestEncryptor(t)

	cipherText, err := enc.Encrypt("sensitive value")
	require.NoError(t, err)

	parts := strings.Split(cipherText, ":")
	body := []byte(parts[2])
	if body[0] == 'f' {
		body[0] = '0'
	} else {
		body[0] = 'f'
	}
	tampered := parts[0] + ":" + parts[1] + ":" + string(body)

	assert.Equal(t, security.RedactedPlaceholder, enc.Decrypt(tampered))
}

func TestDecrypt_TamperedTagIsRedacted(t *testing.T) {
	enc := newTestEncryptor(t)

	cipherText, err := enc.Encrypt("sensitive value")
	require.NoError(t, err)

	parts := strings.Split(cipherText, ":")
	flipped := parts[0] + ":" + strings.Repeat("00", 16) + ":" + parts[2]

	assert.Equal(t, security.RedactedPlaceholder, enc.Decrypt(flipped))
}

func TestDecrypt_MalformedInputIsRedacted(t *testing.T) {
	enc := newTestEncryptor(t)

	cases := []string{
		"",
		"nocolons",
		"one:two",
		"a:b:c:d",
		"zz:" + strings.Repeat("00", 16) + ":00",
		"0011:" + strings.Repeat("00", 16) + ":00",
		strings.Repeat("00", 16) + ":zz:00",
		strings.Repeat("00", 16) + ":" + strings.Repeat("00", 16) + ":zz",
	}
	for _, in := range cases {
		assert.Equal(t, security.RedactedPlaceholder, enc.Decrypt(in), "input %q", in)
	}
}

func TestDecrypt_WrongKeyIsRedacted(t *testing.T) {
	enc := newTestEncryptor(t)
	other, err := security.NewAESGCMEncryptor(strings.Repeat("ff", 32), zap.NewNop())
	require.NoError(t, err)

	cipherText, err := enc.Encrypt("sealed under another key")
	require.NoError(t, err)

	assert.Equal(t, security.RedactedPlaceholder, other.Decrypt(cipherText))
}
