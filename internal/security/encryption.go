package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// RedactedPlaceholder is returned by Decrypt whenever the input cannot be
// authenticated or parsed. The decryptor is used in contexts that render
// a masked value, where a thrown error would be worse than a visibly
// redacted fallback.
const RedactedPlaceholder = "•••.•••.•••.•••"

// ivSize is the IV length on the wire. GCM's default nonce is 12 bytes;
// the wire format carries 16, so the cipher is constructed to match.
const ivSize = 16

// Encryptor provides authenticated symmetric encryption of arbitrary
// strings. Output format is iv:authTag:ciphertext, each part hex encoded.
type Encryptor interface {
	Encrypt(plainText string) (string, error)
	Decrypt(cipherText string) string
}

type aesGCMEncryptor struct {
	key    []byte
	logger *zap.Logger
}

// NewAESGCMEncryptor derives the AES-256 key once from the hex-encoded
// secret. The key bytes are never logged or serialized.
func NewAESGCMEncryptor(keyHex string, logger *zap.Logger) (Encryptor, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid key length: must be 32 bytes for AES-256")
	}
	return &aesGCMEncryptor{key: key, logger: logger}, nil
}

func (e *aesGCMEncryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext under AES-256-GCM with a fresh random
// 16-byte IV per call.
func (e *aesGCMEncryptor) Encrypt(plainText string) (string, error) {
	gcm, err := e.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the 16-byte auth tag to the ciphertext.
	sealed := gcm.Seal(nil, iv, []byte(plainText), nil)
	tagStart := len(sealed) - gcm.Overhead()
	cipherText, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(cipherText),
	), nil
}

// Decrypt reverses Encrypt. It fails closed: any parse error, tag
// mismatch or malformed input yields the redacted placeholder, never an
// error and never the tampered plaintext.
func (e *aesGCMEncryptor) Decrypt(cipherText string) string {
	plain, err := e.decrypt(cipherText)
	if err != nil {
		e.logger.Warn("Failed to decrypt value, returning redacted placeholder", zap.Error(err))
		return RedactedPlaceholder
	}
	return plain
}

func (e *aesGCMEncryptor) decrypt(cipherText string) (string, error) {
	parts := strings.Split(cipherText, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed ciphertext: expected 3 parts, got %d", len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed IV: %w", err)
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("malformed IV: expected %d bytes, got %d", ivSize, len(iv))
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed auth tag: %w", err)
	}
	data, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext body: %w", err)
	}

	gcm, err := e.aead()
	if err != nil {
		return "", err
	}

	plain, err := gcm.Open(nil, iv, append(data, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

var _ Encryptor = (*aesGCMEncryptor)(nil)
