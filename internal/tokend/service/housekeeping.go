package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/metrics"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
)

// HousekeepingService prunes refresh token rows once they are past their
// natural expiry. Revoked rows stay until then on purpose: a revoked row
// is what turns a replayed token into a reuse alarm, so it must outlive
// the token it describes.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration

	// Retention keeps rows for a grace period past expiry, absorbing
	// clock skew between the signer and the database.
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService wires a pruning worker. A zero or negative
// interval falls back to hourly; negative retention is clamped to zero.
func NewHousekeepingService(st store.Store, logger *slog.Logger, m *metrics.Metrics, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention < 0 {
		retention = 0
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Metrics:   m,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval, "retention", s.Retention)
}

// Stop signals the worker and blocks until any in-flight sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// First sweep happens at startup rather than one interval in.
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes refresh rows that expired longer ago than the retention
// window.
func (s *HousekeepingService) cleanup() {
	before := time.Now().UTC().Add(-s.Retention)

	deleted, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(context.Background(), before)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
		return
	}

	s.Logger.Info("housekeeping sweep completed", "deleted", deleted)
	if s.Metrics != nil {
		s.Metrics.HousekeepingDeleted.Add(float64(deleted))
		s.Metrics.HousekeepingLastDeleted.Set(float64(deleted))
	}
}
