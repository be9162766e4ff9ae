// Package reconcile is the polling fallback for the bus: it periodically
// retries pending surface changes, re-reads every open surface and snapshots
// the status cache.
package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"staffplan-backend/internal/statuscache"
	"staffplan-backend/internal/surface"
)

// Source lists the controllers to reconcile.
type Source interface {
	Controllers() []surface.Controller
}

// Service runs reconciliation passes on a timer.
type Service struct {
	source       Source
	cache        *statuscache.Cache
	snapshotPath string
	interval     time.Duration
	logger       *zap.Logger
}

// NewService creates a reconciler. An empty snapshotPath disables snapshots.
func NewService(source Source, cache *statuscache.Cache, snapshotPath string, interval time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:       source,
		cache:        cache,
		snapshotPath: snapshotPath,
		interval:     interval,
		logger:       logger,
	}
}

// Run reconciles once, then every interval until ctx is done. The cache is
// snapshotted one last time on the way out.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("starting reconciler", zap.Duration("interval", s.interval))
	s.RunOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.snapshot()
			s.logger.Info("reconciler shutting down")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// RunOnce performs a single reconciliation pass.
func (s *Service) RunOnce(ctx context.Context) {
	controllers := s.source.Controllers()
	pending := 0
	for _, c := range controllers {
		if ctx.Err() != nil {
			return
		}
		log := s.logger.With(zap.String("surface", c.Name()), zap.String("event_id", c.EventID()))

		if c.Pending() > 0 {
			if err := c.RetryPending(ctx); err != nil {
				log.Warn("retrying pending changes failed", zap.Error(err))
			}
		}
		if err := c.Refresh(ctx); err != nil {
			log.Warn("refresh failed", zap.Error(err))
		}
		pending += c.Pending()
	}

	s.snapshot()
	s.logger.Debug("reconcile pass finished",
		zap.Int("surfaces", len(controllers)),
		zap.Int("pending", pending))
}

func (s *Service) snapshot() {
	if s.snapshotPath == "" || s.cache == nil {
		return
	}
	if err := s.cache.Save(s.snapshotPath); err != nil {
		s.logger.Warn("status cache snapshot failed", zap.String("path", s.snapshotPath), zap.Error(err))
	}
}
