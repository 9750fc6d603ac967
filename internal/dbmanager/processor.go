package dbmanager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	"github.com/jovey-lab/project-jovey/internal/core/config"
	"github.com/jovey-lab/project-jovey/internal/core/storage"
)

// Processor dispatches events to their handlers and records the outcome.
//
// The handler registry is fixed at construction; resolution is an exact map
// lookup on event_type. ProcessEvent never returns an error for per-event
// failures: every outcome is captured in the ProcessingResult so batch runs
// always complete and report.
type Processor struct {
	store           storage.EventStore
	handlers        map[string]HandlerFunc
	unhandledPolicy string
}

// NewProcessor creates a processor over the default handler registry.
// unhandledPolicy controls what happens to events with no registered handler
// (config.UnhandledPolicyPending or config.UnhandledPolicyFail).
func NewProcessor(store storage.EventStore, unhandledPolicy string) *Processor {
	if store == nil {
		panic("dbmanager: store must not be nil")
	}
	if unhandledPolicy == "" {
		unhandledPolicy = config.UnhandledPolicyPending
	}
	return &Processor{
		store:           store,
		handlers:        defaultHandlers(),
		unhandledPolicy: unhandledPolicy,
	}
}

// ProcessEvent dispatches one event and persists its processing status.
//
// Status writes are best-effort: a failure to persist is logged and surfaced
// via StatusPersistWarning, but the computed result is still returned, so the
// stored status can lag behind the reported one. An event is never falsely
// marked processed: the status write happens only after the handler
// succeeded, and a crash in between leaves the event retryable.
func (p *Processor) ProcessEvent(ctx context.Context, event *v1.Event) ProcessingResult {
	start := time.Now()

	result := ProcessingResult{
		EventID:            event.ID,
		EventType:          event.EventType,
		OperationsExecuted: []string{},
	}

	handler, ok := p.handlers[event.EventType]
	if !ok {
		msg := fmt.Sprintf("no handler for event type: %s", event.EventType)
		slog.Warn("No handler for event type",
			"event_id", event.ID,
			"event_type", event.EventType,
			"policy", p.unhandledPolicy)

		result.Error = msg
		if p.unhandledPolicy == config.UnhandledPolicyFail {
			p.recordFailure(ctx, event, msg, &result)
		}
		// Under the pending policy the event keeps is_processed = false and
		// becomes eligible again once a handler is registered.
		result.ProcessingTimeMs = elapsedMs(start)
		return result
	}

	ops, err := handler(event)
	if ops != nil {
		result.OperationsExecuted = ops
	}

	if err != nil {
		slog.Error("Error processing event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"error", err)

		result.Error = err.Error()
		p.recordFailure(ctx, event, err.Error(), &result)
		result.ProcessingTimeMs = elapsedMs(start)
		return result
	}

	result.Success = true
	p.recordSuccess(ctx, event, &result)
	result.ProcessingTimeMs = elapsedMs(start)
	return result
}

// recordSuccess marks the event processed. The update is a compare-and-set
// on is_processed; losing it to a concurrent run is reported as a warning,
// not an error, unless the event was loaded as already processed (the
// force-reprocess path, where the stored status is already correct).
func (p *Processor) recordSuccess(ctx context.Context, event *v1.Event, result *ProcessingResult) {
	claimed, err := p.store.MarkProcessed(ctx, event.ID)
	if err != nil {
		slog.Error("Failed to mark event processed",
			"event_id", event.ID, "error", err)
		result.StatusPersistWarning = fmt.Sprintf("failed to persist processed status: %s", err)
		return
	}
	if !claimed && !event.IsProcessed {
		slog.Warn("Event was claimed by a concurrent run", "event_id", event.ID)
		result.StatusPersistWarning = "event was already marked processed by a concurrent run"
	}
}

func (p *Processor) recordFailure(ctx context.Context, event *v1.Event, processingError string, result *ProcessingResult) {
	if err := p.store.MarkFailed(ctx, event.ID, processingError); err != nil {
		slog.Error("Failed to mark event with error",
			"event_id", event.ID, "error", err)
		result.StatusPersistWarning = fmt.Sprintf("failed to persist failure status: %s", err)
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
