package restapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multichain_wallet/internal/app/port"
)

// SetupRouter wires the handlers under /api/v1 and exposes /metrics.
func SetupRouter(walletHandler *WalletHandler, portfolioHandler *PortfolioHandler, log port.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/chains", walletHandler.GetChainsHandler)
		v1.POST("/wallets", walletHandler.PostWalletsHandler)
		v1.POST("/fees", walletHandler.PostFeesHandler)
		v1.POST("/transfers", walletHandler.PostTransfersHandler)
		v1.POST("/fingerprint", walletHandler.PostFingerprintHandler)
		v1.GET("/portfolio", portfolioHandler.GetPortfolioHandler)
		v1.POST("/portfolio", portfolioHandler.PostPortfolioHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// requestLogger logs method, path, status and latency. Bodies are not logged
// since they may carry passphrases.
func requestLogger(log port.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
