package engine

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"taskmint/internal/config"
	"taskmint/internal/runlock"
)

// Scheduler is the periodic trigger around the engine: generation and
// reminder sweeps fire on configured cron specs, each guarded by the
// single-flight run lock.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	lock   runlock.Lock
	cfg    *config.Config
	logger *zap.Logger
}

// NewScheduler creates the periodic trigger.
func NewScheduler(engine *Engine, lock runlock.Lock, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		engine: engine,
		lock:   lock,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers and starts the periodic jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Scheduler.GenerationSpec, func() {
		s.logger.Debug("Running: occurrence generation")
		s.runGeneration()
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.cfg.Scheduler.ReminderSpec, func() {
		s.logger.Debug("Running: reminder sweep")
		s.runReminderSweep()
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("generation_spec", s.cfg.Scheduler.GenerationSpec),
		zap.String("reminder_spec", s.cfg.Scheduler.ReminderSpec))
	return nil
}

// Stop gracefully stops the periodic trigger.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runGeneration() {
	defer s.recoverFromPanic("runGeneration")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Scheduler.LockTTL)
	defer cancel()

	release, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		s.logger.Error("Run lock unavailable", zap.Error(err))
		return
	}
	if !ok {
		s.logger.Info("Previous scheduler run still in progress, skipping")
		return
	}
	defer release()

	report, err := s.engine.Run(ctx, nil)
	if err != nil {
		s.logger.Error("Scheduler run failed", zap.Error(err))
		return
	}
	if report.Failed > 0 {
		s.logger.Warn("Scheduler run completed with failures",
			zap.String("run_id", report.RunID),
			zap.Int("failed", report.Failed))
	}
}

func (s *Scheduler) runReminderSweep() {
	defer s.recoverFromPanic("runReminderSweep")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Scheduler.LockTTL)
	defer cancel()

	sent, failed, err := s.engine.SweepReminders(ctx)
	if err != nil {
		s.logger.Error("Reminder sweep failed", zap.Error(err))
		return
	}
	if sent > 0 || failed > 0 {
		s.logger.Info("Reminder sweep completed",
			zap.Int("sent", sent), zap.Int("failed", failed))
	}
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
