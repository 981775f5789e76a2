package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler drives the periodic price cycle: fetch and upsert current prices,
// record a history snapshot, run the fluctuation check, prune old history.
// The steps are isolated; one failing step is logged and the rest still run,
// and a failed cycle simply waits for the next tick.
type Scheduler struct {
	fetcher   *Fetcher
	processor *Processor
	checker   *FluctuationChecker
	store     PriceStore
	cron      *cron.Cron
	retention time.Duration
	interval  time.Duration
	logger    *logrus.Logger
}

func NewScheduler(fetcher *Fetcher, processor *Processor, checker *FluctuationChecker,
	store PriceStore, interval, retention time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		fetcher:   fetcher,
		processor: processor,
		checker:   checker,
		store:     store,
		cron:      cron.New(cron.WithSeconds()),
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.WithField("interval", s.interval).Info("Starting price cycle scheduler")

	minutes := int(s.interval.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	spec := fmt.Sprintf("0 */%d * * * *", minutes)

	if _, err := s.cron.AddFunc(spec, func() {
		s.RunCycle(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()

	// Run an initial cycle so prices are live before the first tick.
	go s.RunCycle(ctx)

	s.logger.Info("Price cycle scheduler started successfully")
	return nil
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping price cycle scheduler")
	s.cron.Stop()
}

// RunCycle executes one full cycle. It never returns an error and never
// panics the process; every failure is contained to its step.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := time.Now()
	now := start.UTC().Truncate(time.Minute)

	s.collectPrices(ctx, now)

	if err := s.store.RecordSnapshot(ctx, now); err != nil {
		s.logger.WithError(err).Error("Failed to record price snapshot")
	}

	if err := s.checker.Check(ctx, now); err != nil {
		s.logger.WithError(err).Error("Failed to run fluctuation check")
	}

	if err := s.store.PruneHistory(ctx, now.Add(-s.retention)); err != nil {
		s.logger.WithError(err).Error("Failed to prune price history")
	}

	s.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Price cycle completed")
}

func (s *Scheduler) collectPrices(ctx context.Context, now time.Time) {
	coins, err := s.store.Coins(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load coin list")
		return
	}

	prices, err := s.fetcher.FetchPrices(ctx, coins)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch prices")
		return
	}

	if err := s.processor.UpsertPrices(ctx, prices, now); err != nil {
		s.logger.WithError(err).Error("Failed to store prices")
	}
}
