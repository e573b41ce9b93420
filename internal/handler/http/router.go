package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/edge"
)

// NewRouter assembles the HTTP surface. The /api group requires a valid
// session cookie; /internal is for trusted in-cluster callers and is
// expected to be network-isolated.
func NewRouter(
	handler *AuthHandler,
	decoder *edge.Decoder,
	revocations RevocationChecker,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(Recovery(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/auth")
	api.Use(SessionAuth(decoder, revocations, logger))
	{
		api.POST("/two-factor/setup", handler.SetupTwoFactor)
		api.POST("/two-factor/verify", handler.VerifyTwoFactor)
		api.GET("/sessions", handler.ListSessions)
		api.DELETE("/sessions/:id", handler.RevokeSession)
	}

	// Token lookups are unauthenticated: the caller holds only the raw
	// token value, typically from an emailed link.
	router.GET("/api/auth/tokens/:kind/:token", handler.LookupToken)

	internal := router.Group("/internal")
	{
		internal.POST("/sessions/revoke", handler.RevokeSessionByToken)
	}

	return router
}
