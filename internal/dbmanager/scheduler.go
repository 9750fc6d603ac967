package dbmanager

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs the batch runner on a periodic interval, replacing the
// external cron that would otherwise hit the process endpoint. It is
// stateless: each tick independently drains whatever is pending.
type Scheduler struct {
	interval  time.Duration
	batchSize int
	service   *Service
}

func NewScheduler(interval time.Duration, batchSize int, service *Service) *Scheduler {
	if batchSize <= 0 {
		batchSize = DefaultProcessLimit
	}
	return &Scheduler{
		interval:  interval,
		batchSize: batchSize,
		service:   service,
	}
}

// Start begins periodic batch processing. Runs until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting event processing scheduler",
		"interval", s.interval,
		"batch_size", s.batchSize,
	)

	// Run initial drain to catch up with any backlog
	s.drainBacklog(ctx)

	for {
		select {
		case <-ticker.C:
			s.drainBacklog(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Running final drain before shutdown...")
			s.drainBacklog(shutdownCtx)
			slog.Info("[Scheduler] Final drain complete")

			return nil
		}
	}
}

// drainBacklog processes pending events in batches until a batch comes back
// smaller than the batch size or stops making progress. Failed events stay
// pending with their error recorded, so a full batch of poisoned events must
// not spin the drain until the safety limit.
func (s *Scheduler) drainBacklog(ctx context.Context) {
	batchCount := 0
	maxConsecutiveBatches := 100 // Safety limit to prevent infinite loop

	for batchCount < maxConsecutiveBatches {
		select {
		case <-ctx.Done():
			slog.Info("[Scheduler] Drain interrupted by context cancellation",
				"batches_processed", batchCount,
			)
			return
		default:
		}

		result, err := s.service.ProcessPendingEvents(ctx, s.batchSize)
		if err != nil {
			slog.Error("[Scheduler] Batch processing failed",
				"error", err,
				"batch_number", batchCount+1,
			)
			return
		}

		batchCount++

		if result.TotalEvents < s.batchSize {
			if batchCount > 1 {
				slog.Info("[Scheduler] Backlog drained", "total_batches", batchCount)
			}
			return
		}

		if result.Successful == 0 {
			slog.Warn("[Scheduler] Full batch made no progress, pausing drain",
				"failed", result.Failed,
				"note", "Failed events stay pending; will retry on next tick",
			)
			return
		}

		slog.Info("[Scheduler] Backlog detected, continuing to drain",
			"batches_so_far", batchCount,
		)
	}

	slog.Warn("[Scheduler] Max consecutive batches reached, pausing drain",
		"max_batches", maxConsecutiveBatches,
		"note", "Will resume on next tick",
	)
}
