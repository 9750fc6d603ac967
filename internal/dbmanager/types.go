package dbmanager

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingResult is the outcome of one dispatch attempt for one event.
type ProcessingResult struct {
	EventID            uuid.UUID `json:"event_id"`
	EventType          string    `json:"event_type"`
	Success            bool      `json:"success"`
	Error              string    `json:"error,omitempty"`
	OperationsExecuted []string  `json:"operations_executed"`
	ProcessingTimeMs   float64   `json:"processing_time_ms"`

	// StatusPersistWarning is set when the result was computed but the
	// status write-back did not take effect (persistence failure, or a
	// concurrent run claimed the event first). The stored status may be out
	// of sync with this result.
	StatusPersistWarning string `json:"status_persist_warning,omitempty"`
}

// BatchResult summarizes one batch run. Per-event failures are captured in
// Results; a batch never aborts because of them.
type BatchResult struct {
	TotalEvents      int                `json:"total_events"`
	Successful       int                `json:"successful"`
	Failed           int                `json:"failed"`
	ProcessingTimeMs float64            `json:"processing_time_ms"`
	Results          []ProcessingResult `json:"results"`
}

// EventOperationMapping documents how one event type is processed.
type EventOperationMapping struct {
	EventType     string   `json:"event_type"`
	AggregateType string   `json:"aggregate_type"`
	Operations    []string `json:"operations"`
	Description   string   `json:"description"`
}

// ManagerStats reports the processing state of the event log.
type ManagerStats struct {
	TotalEventsProcessed int64            `json:"total_events_processed"`
	EventsPending        int64            `json:"events_pending"`
	EventsFailed         int64            `json:"events_failed"`
	SuccessRate          float64          `json:"success_rate"`
	LastProcessedAt      *time.Time       `json:"last_processed_at,omitempty"`
	EventTypeBreakdown   map[string]int64 `json:"event_type_breakdown"`
}

// ManualProcessRequest asks for an explicit list of events to be processed.
type ManualProcessRequest struct {
	EventIDs       []uuid.UUID `json:"event_ids"`
	ForceReprocess bool        `json:"force_reprocess"`
}
