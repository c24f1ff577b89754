package scheduler

import (
	"context"
	"time"

	"koubyte-be/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	ReconcileSpec = "@every 5m"
	PurgeSpec     = "@daily"

	// Payments untouched for this long are asked about again.
	StaleAfter       = 15 * time.Minute
	WebhookRetention = 30 * 24 * time.Hour

	jobTimeout = 2 * time.Minute
)

type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration) (int, error)
}

type WebhookPurger interface {
	PurgeWebhooks(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	payments Reconciler
	webhooks WebhookPurger
	now      func() time.Time
}

// New registers the background jobs. Nothing runs until Start.
func New(payments Reconciler, webhooks WebhookPurger) (*Scheduler, error) {
	cl := cronLogger{log: logger.L().Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		payments: payments,
		webhooks: webhooks,
		now:      time.Now,
	}

	if _, err := s.cron.AddFunc(ReconcileSpec, s.ReconcilePayments); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(PurgeSpec, s.PurgeWebhooks); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.L().Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.L().Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) ReconcilePayments() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log := logger.Scoped(ctx, "scheduler", "ReconcilePayments")
	n, err := s.payments.Reconcile(ctx, StaleAfter)
	if err != nil {
		log.Error("reconcile failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("payments reconciled", zap.Int("updated", n))
	}
}

func (s *Scheduler) PurgeWebhooks() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log := logger.Scoped(ctx, "scheduler", "PurgeWebhooks")
	n, err := s.webhooks.PurgeWebhooks(ctx, s.now().Add(-WebhookRetention))
	if err != nil {
		log.Error("webhook purge failed", zap.Error(err))
		return
	}
	log.Info("webhook log purged", zap.Int64("deleted", n))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
