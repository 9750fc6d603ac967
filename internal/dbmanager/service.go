package dbmanager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	"github.com/jovey-lab/project-jovey/internal/core/storage"
)

// DefaultProcessLimit is the batch size when a process request does not
// specify one.
const DefaultProcessLimit = 100

// Service is the batch runner over the event log: it pulls bounded pages of
// pending events in sequence order and drives the Processor over each,
// sequentially and without reordering.
type Service struct {
	store     storage.EventStore
	processor *Processor
}

func NewService(store storage.EventStore, processor *Processor) *Service {
	if store == nil {
		panic("dbmanager: store must not be nil")
	}
	if processor == nil {
		panic("dbmanager: processor must not be nil")
	}
	return &Service{
		store:     store,
		processor: processor,
	}
}

// ProcessPendingEvents fetches up to limit unprocessed events (oldest first)
// and processes them one by one. Per-event failures are captured in the
// result; only a failure of the fetch itself propagates as an error.
func (s *Service) ProcessPendingEvents(ctx context.Context, limit int) (*BatchResult, error) {
	start := time.Now()

	if limit <= 0 {
		limit = DefaultProcessLimit
	}
	if limit > v1.MaxQueryLimit {
		limit = v1.MaxQueryLimit
	}

	events, err := s.store.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed events: %w", err)
	}

	if len(events) == 0 {
		slog.Debug("No unprocessed events found")
		return &BatchResult{Results: []ProcessingResult{}}, nil
	}

	slog.Info("Processing unprocessed events", "count", len(events))

	results := make([]ProcessingResult, 0, len(events))
	successful := 0
	failed := 0

	// Strictly in fetch order: ascending sequence_number, no parallelism.
	// Handlers may depend on causal order within an aggregate.
	for _, event := range events {
		result := s.processor.ProcessEvent(ctx, event)
		results = append(results, result)

		if result.Success {
			successful++
		} else {
			failed++
		}
	}

	elapsed := elapsedMs(start)
	slog.Info("Batch processing complete",
		"total", len(events),
		"successful", successful,
		"failed", failed,
		"processing_time_ms", elapsed)

	return &BatchResult{
		TotalEvents:      len(events),
		Successful:       successful,
		Failed:           failed,
		ProcessingTimeMs: elapsed,
		Results:          results,
	}, nil
}

// ProcessSpecificEvents processes an explicit id list, for manual retries and
// force-reprocessing. Already-processed events are skipped unless force is
// set (skipped events appear in neither Results nor the success/failure
// counts). An id that cannot be loaded becomes a failure result with event
// type "unknown" rather than aborting the batch.
func (s *Service) ProcessSpecificEvents(ctx context.Context, eventIDs []uuid.UUID, force bool) (*BatchResult, error) {
	start := time.Now()

	slog.Info("Processing specific events", "count", len(eventIDs), "force_reprocess", force)

	results := make([]ProcessingResult, 0, len(eventIDs))
	successful := 0
	failed := 0

	for _, id := range eventIDs {
		event, err := s.store.GetEventByID(ctx, id)
		if err != nil {
			slog.Error("Failed to load event for processing", "event_id", id, "error", err)
			failed++
			results = append(results, ProcessingResult{
				EventID:            id,
				EventType:          "unknown",
				Success:            false,
				Error:              err.Error(),
				OperationsExecuted: []string{},
			})
			continue
		}

		if event.IsProcessed && !force {
			slog.Warn("Event already processed, skipping", "event_id", id)
			continue
		}

		result := s.processor.ProcessEvent(ctx, event)
		results = append(results, result)

		if result.Success {
			successful++
		} else {
			failed++
		}
	}

	return &BatchResult{
		TotalEvents:      len(eventIDs),
		Successful:       successful,
		Failed:           failed,
		ProcessingTimeMs: elapsedMs(start),
		Results:          results,
	}, nil
}

// Stats reports the processing state of the event log.
func (s *Service) Stats(ctx context.Context) (*ManagerStats, error) {
	eventStats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}

	successRate := 0.0
	if eventStats.TotalEvents > 0 {
		successRate = float64(eventStats.ProcessedEvents) / float64(eventStats.TotalEvents) * 100
	}

	return &ManagerStats{
		TotalEventsProcessed: eventStats.ProcessedEvents,
		EventsPending:        eventStats.UnprocessedEvents,
		EventsFailed:         eventStats.FailedEvents,
		SuccessRate:          successRate,
		LastProcessedAt:      eventStats.LastProcessedAt,
		EventTypeBreakdown:   eventStats.EventTypeCounts,
	}, nil
}
