package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"crypto-paper-trading/internal/alert"
	"crypto-paper-trading/internal/collector"
	"crypto-paper-trading/internal/config"
	"crypto-paper-trading/internal/health"
	"crypto-paper-trading/internal/pricestore"
	"crypto-paper-trading/internal/tracker"
	"crypto-paper-trading/pkg/database"
	"crypto-paper-trading/pkg/utils"
)

func main() {
	logger := utils.NewLogger("price-collector")

	cfg := config.Load()
	logger.WithFields(logrus.Fields{
		"price_api":       cfg.Collector.PriceAPIBaseURL,
		"poll_interval":   cfg.Collector.PollInterval,
		"alert_threshold": cfg.Collector.AlertThreshold,
		"kafka_enabled":   cfg.Kafka.Enabled(),
	}).Info("Configuration loaded")

	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	prices := pricestore.NewRepository(db, logger)
	follows := tracker.NewRepository(db, logger)

	var notifier alert.Notifier
	if cfg.Kafka.Enabled() {
		kafkaNotifier := alert.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		notifier = alert.NewLogNotifier(logger)
	}

	fetcher := collector.NewFetcher(cfg.Collector.PriceAPIBaseURL, cfg.Collector.FetchTimeout, logger)
	processor := collector.NewProcessor(prices, logger)
	checker := collector.NewFluctuationChecker(follows, notifier,
		cfg.Collector.AlertThreshold, cfg.Collector.CompareWindow, logger)
	scheduler := collector.NewScheduler(fetcher, processor, checker, prices,
		cfg.Collector.PollInterval, cfg.Collector.HistoryRetention, logger)

	healthChecker := health.NewChecker(db, logger)
	healthServer := healthChecker.StartServer(cfg.Collector.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}
	logger.Info("Price collector started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down price collector...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown health server gracefully")
	}

	logger.Info("Price collector stopped")
}
