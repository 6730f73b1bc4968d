// Package sweep provides background enforcement of the trash retention
// policy.
//
// Trashed links are recoverable until the retention window passes; after
// that they are purged automatically, which releases their content
// references and lets unreferenced blobs be deleted. The sweeper runs the
// purge on a timer so retention holds without anyone emptying their trash
// by hand.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittovault/internal/logger"
	"github.com/marmos91/dittovault/pkg/vault"
)

// TrashManager is the slice of the vault service the sweeper needs.
type TrashManager interface {
	ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]vault.OwnershipLink, error)
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Config contains configuration for the retention sweeper.
type Config struct {
	// Enabled controls whether sweeping is active (default: true)
	Enabled bool

	// Interval is how often to run a sweep (default: 1h)
	Interval time.Duration

	// Retention is how long trashed links are kept before purging
	// (default: 720h, thirty days)
	Retention time.Duration

	// DryRun mode logs what would be purged without actually purging.
	// Useful for validating a retention change before enabling it.
	DryRun bool
}

// Sweeper periodically purges links whose trash retention has expired.
//
// Thread Safety: Safe for concurrent use.
type Sweeper struct {
	trash  TrashManager
	clock  vault.Clock
	config Config
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper creates a retention sweeper.
//
// The sweeper is initialized but not started. Call Start() to begin
// background sweeping.
func NewSweeper(trash TrashManager, clock vault.Clock, config Config) *Sweeper {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.Retention == 0 {
		config.Retention = 30 * 24 * time.Hour
	}
	if clock == nil {
		clock = vault.RealClock{}
	}

	return &Sweeper{
		trash:  trash,
		clock:  clock,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins background sweeping. The worker goroutine runs until
// Stop() is called.
func (s *Sweeper) Start() {
	if !s.config.Enabled {
		logger.Info("Trash retention sweeping disabled")
		return
	}

	logger.Info("Starting trash sweeper: interval=%s retention=%s dry_run=%v",
		s.config.Interval, s.config.Retention, s.config.DryRun)

	go s.worker()
}

// Stop stops the sweeper and waits for any in-progress sweep to finish.
// Returns the context error if it expires before shutdown completes.
// Safe to call multiple times only after a Start.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	logger.Info("Stopping trash sweeper...")
	close(s.stopCh)

	select {
	case <-s.doneCh:
		logger.Info("Trash sweeper stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Trash sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep. Useful for tests and for manual
// triggers after a retention change. Blocks until the sweep completes or
// the context is cancelled.
func (s *Sweeper) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running trash sweep (manual trigger)...")
	return s.sweep(ctx)
}

// worker is the background goroutine that runs periodic sweeps.
func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	logger.Info("Trash sweeper worker started")

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := s.sweep(ctx)
			cancel()

			if err != nil {
				logger.Error("Trash sweep failed: %v", err)
			} else {
				logger.Info("Trash sweep completed: %s", stats.Summary())
			}

		case <-s.stopCh:
			logger.Info("Trash sweeper worker stopping...")
			return
		}
	}
}

// sweep performs a single retention pass: everything trashed at or before
// now minus the retention window is purged.
func (s *Sweeper) sweep(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: s.clock.Now()}
	cutoff := stats.StartTime.Add(-s.config.Retention)

	expired, err := s.trash.ListTrashedBefore(ctx, cutoff)
	if err != nil {
		return stats, fmt.Errorf("listing expired trash: %w", err)
	}
	stats.ExpiredCount = uint64(len(expired))

	if len(expired) == 0 {
		logger.Debug("Sweep: no expired trash")
		stats.EndTime = s.clock.Now()
		return stats, nil
	}

	logger.Info("Sweep: found %d links past retention (cutoff=%s)", stats.ExpiredCount, cutoff.Format(time.RFC3339))

	if s.config.DryRun {
		logger.Info("Sweep: DRY RUN - would purge %d links:", stats.ExpiredCount)
		for i, link := range expired {
			if i >= 10 {
				logger.Info("  ... and %d more", len(expired)-10)
				break
			}
			logger.Info("  - %s (%s, trashed %s)", link.ID, link.Filename, link.TrashedAt.Format(time.RFC3339))
		}
		stats.EndTime = s.clock.Now()
		return stats, nil
	}

	purged, err := s.trash.PurgeTrashedBefore(ctx, cutoff)
	stats.PurgedCount = uint64(purged)
	stats.FailedCount = stats.ExpiredCount - stats.PurgedCount
	stats.EndTime = s.clock.Now()
	if err != nil {
		return stats, fmt.Errorf("purging expired trash: %w", err)
	}

	return stats, nil
}

// Stats contains statistics from a sweep run.
type Stats struct {
	StartTime    time.Time // When the sweep started
	EndTime      time.Time // When the sweep ended
	ExpiredCount uint64    // Links found past the retention window
	PurgedCount  uint64    // Links successfully purged
	FailedCount  uint64    // Links that failed to purge
}

// Duration returns the total sweep duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the sweep.
func (s *Stats) Summary() string {
	return fmt.Sprintf("expired=%d purged=%d failed=%d duration=%s",
		s.ExpiredCount, s.PurgedCount, s.FailedCount, s.Duration())
}
