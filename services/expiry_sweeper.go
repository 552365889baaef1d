package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpirySweeper periodically moves overdue active redemptions to expired.
// Finalize already expires lazily; the sweep keeps listings and reports
// accurate for holds nobody ever scans.
type ExpirySweeper struct {
	redemptions RedemptionService
	cron        *cron.Cron
	timeout     time.Duration
	logger      *zap.Logger
}

func NewExpirySweeper(redemptions RedemptionService, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		redemptions: redemptions,
		cron:        cron.New(),
		timeout:     30 * time.Second,
		logger:      logger,
	}
}

// Start schedules the sweep with a standard cron spec or a descriptor such
// as "@every 1m".
func (s *ExpirySweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return fmt.Errorf("invalid expiry sweep schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info("Expiry sweeper started", zap.String("schedule", spec))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Expiry sweeper stopped")
}

func (s *ExpirySweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.redemptions.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Expired overdue redemptions", zap.Int64("count", n))
	}
}
