package scheduler

import (
	"context"
	"time"

	"medication_reminder_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NotificationScheduler drives the periodic jobs: the dispatch tick, the
// daily retention sweep and the stats report. The dispatch job is wrapped
// with SkipIfStillRunning so a slow tick delays the next one instead of
// overlapping it.
type NotificationScheduler struct {
	cronEngine       *cron.Cron
	dispatch         *app.DispatchService
	logger           *logrus.Entry
	cronSpecDispatch string
	cronSpecCleanup  string
	cronSpecStats    string
}

func NewNotificationScheduler(
	dispatch *app.DispatchService,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpecDispatch string, // e.g. "*/5 * * * *" (every 5 minutes)
	cronSpecCleanup string, // e.g. "0 0 * * *" (daily at midnight)
	cronSpecStats string, // e.g. "0 * * * *" (hourly)
) *NotificationScheduler {
	schedLogger := logger.WithField("component", "scheduler")
	return &NotificationScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(schedLogger))),
		),
		dispatch:         dispatch,
		logger:           schedLogger,
		cronSpecDispatch: cronSpecDispatch,
		cronSpecCleanup:  cronSpecCleanup,
		cronSpecStats:    cronSpecStats,
	}
}

func (s *NotificationScheduler) Start() {
	s.logger.Info("Starting notification scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecDispatch, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.dispatch.Tick(ctx); err != nil {
			s.logger.WithError(err).Error("Dispatch tick failed")
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add dispatch cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecCleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.dispatch.Sweep(ctx); err != nil {
			s.logger.WithError(err).Error("Retention sweep failed")
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add cleanup cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecStats, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if _, err := s.dispatch.Stats(ctx); err != nil {
			s.logger.WithError(err).Error("Stats report failed")
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add stats cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Notification scheduler started with jobs.")
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops scheduling new runs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
