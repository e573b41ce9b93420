package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/service"
)

// AuthHandler exposes the server-action surface over HTTP. Every
// response uses the uniform {success|error} discriminated shape;
// expected failures never surface as anything but that shape.
type AuthHandler struct {
	twoFactor *service.TwoFactorService
	sessions  *service.SessionService
	tokens    *service.TokenService
	logger    *zap.Logger
}

// NewAuthHandler creates the handler.
func NewAuthHandler(
	twoFactor *service.TwoFactorService,
	sessions *service.SessionService,
	tokens *service.TokenService,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		twoFactor: twoFactor,
		sessions:  sessions,
		tokens:    tokens,
		logger:    logger.Named("auth_handler"),
	}
}

type twoFactorSetupRequest struct {
	AccountName string `json:"accountName"`
}

// SetupTwoFactor handles POST /api/auth/two-factor/setup.
func (h *AuthHandler) SetupTwoFactor(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized."})
		return
	}

	var req twoFactorSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid input."})
		return
	}

	setup, errMsg := h.twoFactor.Setup(c.Request.Context(), userID, req.AccountName)
	if errMsg != "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": errMsg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"secret":          setup.Secret,
		"encryptedSecret": setup.EncryptedSecret,
		"otpauthUrl":      setup.OTPAuthURL,
	})
}

type verifyTwoFactorRequest struct {
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

// VerifyTwoFactor handles POST /api/auth/two-factor/verify.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	userID, _ := principal(c)

	var req verifyTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid input."})
		return
	}

	result := h.twoFactor.VerifyTwoFactor(c.Request.Context(), userID, req.Secret, req.Token)
	if !result.Success {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": result.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "recoveryCodes": result.RecoveryCodes})
}

// ListSessions handles GET /api/auth/sessions.
func (h *AuthHandler) ListSessions(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized."})
		return
	}

	metas, err := h.sessions.ListSessions(c.Request.Context(), userID, sessionToken(c))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": metas})
}

// RevokeSession handles DELETE /api/auth/sessions/:id.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	userID, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized."})
		return
	}

	metadataID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Session not found"})
		return
	}

	result := h.sessions.RevokeSession(c.Request.Context(), metadataID, userID)
	if !result.Success {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": result.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type revokeByTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RevokeSessionByToken handles POST /internal/sessions/revoke. It sits
// on the internal router group: trusted callers only, no ownership
// check.
func (h *AuthHandler) RevokeSessionByToken(c *gin.Context) {
	var req revokeByTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid input."})
		return
	}

	result := h.sessions.RevokeSessionByToken(c.Request.Context(), req.Token)
	if !result.Success {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": result.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LookupToken handles GET /api/auth/tokens/:kind/:token for the three
// single-use flows. The handler is the "calling flow" in the token
// store's contract, so expiry is enforced here rather than in the store.
func (h *AuthHandler) LookupToken(c *gin.Context) {
	var token *models.SingleUseToken
	switch c.Param("kind") {
	case "password-reset":
		token = h.tokens.GetPasswordResetToken(c.Request.Context(), c.Param("token"))
	case "account-deletion":
		token = h.tokens.GetAccountDeletionToken(c.Request.Context(), c.Param("token"))
	case "email-change":
		token = h.tokens.GetEmailChangeToken(c.Request.Context(), c.Param("token"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid input."})
		return
	}

	if token == nil || token.IsExpired(time.Now()) {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}
