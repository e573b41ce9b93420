package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/edge"
	handler "github.com/mortiscope/mortiscope-web-sub011/internal/handler/http"
)

const (
	testCookieSecret = "middleware-test-cookie-secret"
	testCookieName   = "authjs.session-token"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[token], nil
}

func mintSessionCookie(t *testing.T, subject, sessionToken string) string {
	t.Helper()

	key, err := edge.DeriveKey(testCookieSecret, testCookieName)
	require.NoError(t, err)

	encrypter, err := jose.NewEncrypter(jose.A256CBC_HS512,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key}, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(edge.SessionClaims{
		Subject:      subject,
		SessionToken: sessionToken,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	obj, err := encrypter.Encrypt(payload)
	require.NoError(t, err)

	raw, err := obj.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func newAuthRouter(t *testing.T, revocations *stubRevocations) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	decoder, err := edge.NewDecoder(testCookieSecret, testCookieName)
	require.NoError(t, err)

	r := gin.New()
	r.Use(handler.SessionAuth(decoder, revocations, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		userID, _ := c.Get(handler.ContextUserIDKey)
		c.JSON(http.StatusOK, gin.H{"success": true, "userId": userID.(uuid.UUID).String()})
	})
	return r
}

func doRequest(r *gin.Engine, cookies map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/whoami", nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionAuth_ValidCookie(t *testing.T) {
	userID := uuid.New()
	r := newAuthRouter(t, &stubRevocations{})

	w := doRequest(r, map[string]string{
		testCookieName: mintSessionCookie(t, userID.String(), "sess-1"),
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestSessionAuth_ChunkedCookie(t *testing.T) {
	userID := uuid.New()
	r := newAuthRouter(t, &stubRevocations{})

	raw := mintSessionCookie(t, userID.String(), "sess-2")
	mid := len(raw) / 2

	w := doRequest(r, map[string]string{
		testCookieName + ".0": raw[:mid],
		testCookieName + ".1": raw[mid:],
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestSessionAuth_MissingCookie(t *testing.T) {
	r := newAuthRouter(t, &stubRevocations{})

	w := doRequest(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized."}`, w.Body.String())
}

func TestSessionAuth_GarbageCookie(t *testing.T) {
	r := newAuthRouter(t, &stubRevocations{})

	w := doRequest(r, map[string]string{testCookieName: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_NonUUIDSubject(t *testing.T) {
	r := newAuthRouter(t, &stubRevocations{})

	w := doRequest(r, map[string]string{
		testCookieName: mintSessionCookie(t, "not-a-uuid", "sess-3"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_RevokedSession(t *testing.T) {
	userID := uuid.New()
	r := newAuthRouter(t, &stubRevocations{revoked: map[string]bool{"sess-4": true}})

	w := doRequest(r, map[string]string{
		testCookieName: mintSessionCookie(t, userID.String(), "sess-4"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_RevocationCheckFailureAdmits(t *testing.T) {
	userID := uuid.New()
	r := newAuthRouter(t, &stubRevocations{err: errors.New("redis down")})

	w := doRequest(r, map[string]string{
		testCookieName: mintSessionCookie(t, userID.String(), "sess-5"),
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_PanicBecomesUniformShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("unexpected") })

	req := httptest.NewRequest("GET", "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}
