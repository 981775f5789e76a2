package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/internal/health"
)

func NewRouter(handler *Handler, checker *health.Checker, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/trade", handler.Trade)
		apiGroup.GET("/trade_info", handler.TradeInfo)
		apiGroup.GET("/profit", handler.Profit)
		apiGroup.POST("/reset", handler.Reset)
		apiGroup.GET("/coin_list", handler.CoinList)
		apiGroup.GET("/current_prices", handler.CurrentPrices)
		apiGroup.GET("/price_history/:coin_id", handler.PriceHistory)
		apiGroup.GET("/follow_list", handler.FollowList)
		apiGroup.POST("/follow_list", handler.UpdateFollowList)
	}

	router.GET("/health", gin.WrapF(checker.Handler()))

	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Handled request")
	}
}
