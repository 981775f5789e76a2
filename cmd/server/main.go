package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/internal/api"
	"crypto-paper-trading/internal/config"
	"crypto-paper-trading/internal/health"
	"crypto-paper-trading/internal/ledger"
	"crypto-paper-trading/internal/pricestore"
	"crypto-paper-trading/internal/tracker"
	"crypto-paper-trading/internal/trader"
	"crypto-paper-trading/internal/valuation"
	"crypto-paper-trading/pkg/database"
	"crypto-paper-trading/pkg/utils"
)

func main() {
	logger := utils.NewLogger("trading-api")

	cfg := config.Load()
	logger.WithFields(logrus.Fields{
		"http_port": cfg.Server.Port,
	}).Info("Configuration loaded")

	gin.SetMode(cfg.Server.GinMode)

	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	prices := pricestore.NewRepository(db, logger)
	journal := ledger.NewRepository(db, logger)
	follows := tracker.NewRepository(db, logger)

	engine := trader.NewEngine(prices, journal, journal, logger)
	valuer := valuation.NewEngine(journal, logger)
	checker := health.NewChecker(db, logger)

	handler := api.NewHandler(engine, valuer, journal, prices, follows, logger)
	router := api.NewRouter(handler, checker, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server stopped unexpectedly")
		}
	}()
	logger.Info("Trading API started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down trading API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	logger.Info("Trading API stopped")
}
