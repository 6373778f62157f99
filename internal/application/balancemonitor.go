package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
)

// balanceChecker is the slice of NotificationService the monitor needs.
type balanceChecker interface {
	CheckBalance(ctx context.Context) (model.NotificationResponse, error)
}

// BalanceMonitor checks the gateway balance on a cron schedule and keeps the
// latest reply for the API and dashboard.
type BalanceMonitor struct {
	checker  balanceChecker
	schedule string
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest *model.BalanceSnapshot
}

// NewBalanceMonitor creates a BalanceMonitor. schedule uses the standard cron
// syntax plus descriptors such as "@every 1h".
func NewBalanceMonitor(checker balanceChecker, schedule string, logger *slog.Logger) *BalanceMonitor {
	return &BalanceMonitor{
		checker:  checker,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the schedule until ctx is canceled. Overlapping runs are skipped.
// It returns an error only if the schedule cannot be parsed.
func (m *BalanceMonitor) Start(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(m.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger)))

	if _, err := c.AddFunc(m.schedule, func() { m.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule balance check %q: %w", m.schedule, err)
	}

	c.Start()
	m.logger.Info("balance monitor started", "schedule", m.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	m.logger.Info("balance monitor stopped")
	return nil
}

// RunOnce performs one balance check and stores the result.
func (m *BalanceMonitor) RunOnce(ctx context.Context) model.BalanceSnapshot {
	resp, err := m.checker.CheckBalance(ctx)

	snap := model.BalanceSnapshot{
		Response:  resp.Body,
		CheckedAt: m.now().UTC(),
	}
	switch {
	case errors.Is(err, ErrNoCredentials):
		snap.Error = err.Error()
		m.logger.Warn("balance check skipped", "reason", err)
	case err != nil:
		snap.Error = err.Error()
		m.logger.Error("balance check failed", "error", err)
	}

	m.mu.Lock()
	m.latest = &snap
	m.mu.Unlock()

	return snap
}

// Latest returns the most recent snapshot, or false if no check has run.
func (m *BalanceMonitor) Latest() (model.BalanceSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return model.BalanceSnapshot{}, false
	}
	return *m.latest, true
}
