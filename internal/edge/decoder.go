// Package edge decodes encrypted session cookies in constrained
// runtimes that gate routing decisions. It holds no database access and
// no dependency on the main encryption module: the decryption key is
// derived independently from the shared cookie secret. Every failure
// path returns "no session" rather than an error, because this code runs
// before a request is authenticated and must never crash one.
package edge

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/hkdf"
)

// derivedKeyLength is the HKDF output consumed by session-token
// decryption: A256CBC-HS512 uses all 64 bytes, A256GCM the first 32.
const derivedKeyLength = 64

// SessionClaims is the payload of a decoded session token.
type SessionClaims struct {
	Subject      string `json:"sub"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
	IssuedAt     int64  `json:"iat,omitempty"`
	ExpiresAt    int64  `json:"exp,omitempty"`
	JTI          string `json:"jti,omitempty"`
}

// Expired reports whether the claims carry an exp in the past.
func (c *SessionClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() >= c.ExpiresAt
}

// Decoder reconstructs and decrypts chunked, encrypted session cookies.
type Decoder struct {
	cookieName string
	key        []byte
}

// NewDecoder derives the decryption key once from the shared secret.
// The salt is the cookie name itself, so tokens minted for one cookie
// name never decrypt under another.
func NewDecoder(secret, cookieName string) (*Decoder, error) {
	if secret == "" {
		return nil, fmt.Errorf("session cookie secret must not be empty")
	}
	key, err := DeriveKey(secret, cookieName)
	if err != nil {
		return nil, err
	}
	return &Decoder{cookieName: cookieName, key: key}, nil
}

// DeriveKey produces the 512-bit session-token key via
// HKDF-SHA256(secret, salt=cookieName, info=fixed per-cookie-name string).
func DeriveKey(secret, cookieName string) ([]byte, error) {
	info := fmt.Sprintf("Authentication token (%s)", cookieName)
	reader := hkdf.New(sha256.New, []byte(secret), []byte(cookieName), []byte(info))
	key := make([]byte, derivedKeyLength)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// Decode reads the session cookie (chunked or not) from src and returns
// its claims, or nil when there is no decodable, unexpired session for
// any reason: missing cookie, malformed token, wrong key, tampering, or
// expiry.
func (d *Decoder) Decode(src CookieSource) *SessionClaims {
	raw := ReadChunkedCookie(src, d.cookieName)
	if raw == "" {
		return nil
	}
	return d.DecodeValue(raw)
}

// DecodeValue decrypts a raw compact-serialized session token.
func (d *Decoder) DecodeValue(raw string) *SessionClaims {
	jwe, err := jose.ParseEncrypted(raw,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256CBC_HS512, jose.A256GCM},
	)
	if err != nil {
		return nil
	}

	// Content encryption is negotiated from the token header: CBC-HS512
	// consumes the full 64 bytes of key material, GCM the first 32.
	key := d.key
	if enc, ok := jwe.Header.ExtraHeaders[jose.HeaderKey("enc")].(string); ok && enc == string(jose.A256GCM) {
		key = d.key[:32]
	}

	payload, err := jwe.Decrypt(key)
	if err != nil {
		return nil
	}

	var claims SessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	if claims.Expired(time.Now()) {
		return nil
	}
	return &claims
}
