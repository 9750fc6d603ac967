package v1

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is the atomic unit of the system: an immutable record of something
// that happened, carrying enough data to derive a state update.
//
// Everything except the processing-status fields (IsProcessed, ProcessedAt,
// ProcessingError) is frozen at creation time. SequenceNumber is assigned by
// the store on insert and defines the only valid processing order.
type Event struct {
	// ID is the unique identifier assigned at creation.
	ID uuid.UUID `json:"id" db:"id"`

	// SequenceNumber is a monotonically increasing integer assigned by the
	// database (BIGSERIAL). It provides strict total ordering for batch
	// processing and aggregate history reconstruction.
	SequenceNumber int64 `json:"sequence_number" db:"sequence_number"`

	// EventType is the domain event name in "aggregate.action" form,
	// e.g. "product.created", "order.cancelled". Lowercase.
	EventType string `json:"event_type" db:"event_type"`

	// AggregateType names the entity kind this event affects
	// (product, order, customer, dealer, decision). Lowercase.
	AggregateType string `json:"aggregate_type" db:"aggregate_type"`

	// AggregateID identifies the specific entity instance.
	AggregateID uuid.UUID `json:"aggregate_id" db:"aggregate_id"`

	// Data is the business payload of the event.
	Data map[string]interface{} `json:"data" db:"-"`

	// Metadata is system-attached context (source IP, trace id, versions).
	// Not business content.
	Metadata map[string]interface{} `json:"metadata,omitempty" db:"-"`

	// CreatedBy identifies the actor: "user:{uuid}", "agent:{name}" or "system".
	CreatedBy string `json:"created_by" db:"created_by"`

	// CorrelationID groups causally or transactionally related events.
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty" db:"correlation_id"`

	// CausationID is the event that triggered this one.
	CausationID *uuid.UUID `json:"causation_id,omitempty" db:"causation_id"`

	// IdempotencyKey prevents duplicate event creation when set.
	IdempotencyKey *string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// --- Processing status (the only mutable fields) ---

	IsProcessed     bool       `json:"is_processed" db:"is_processed"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	ProcessingError *string    `json:"processing_error,omitempty" db:"processing_error"`
}

// EventCreate is the request body for posting a new event.
type EventCreate struct {
	EventType      string                 `json:"event_type"`
	AggregateType  string                 `json:"aggregate_type"`
	AggregateID    uuid.UUID              `json:"aggregate_id"`
	Data           map[string]interface{} `json:"data"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedBy      string                 `json:"created_by"`
	CorrelationID  *uuid.UUID             `json:"correlation_id,omitempty"`
	CausationID    *uuid.UUID             `json:"causation_id,omitempty"`
	IdempotencyKey *string                `json:"idempotency_key,omitempty"`
}

// Validate checks required fields and normalizes event_type and
// aggregate_type to lowercase. Validation failures here mean the event is
// rejected synchronously and never stored.
func (e *EventCreate) Validate() error {
	if err := ValidateEventType(e.EventType); err != nil {
		return err
	}
	e.EventType = strings.ToLower(e.EventType)

	if strings.TrimSpace(e.AggregateType) == "" {
		return fmt.Errorf("aggregate_type is required")
	}
	e.AggregateType = strings.ToLower(e.AggregateType)

	if e.AggregateID == uuid.Nil {
		return fmt.Errorf("aggregate_id is required")
	}

	if e.Data == nil {
		return fmt.Errorf("data is required")
	}

	if !strings.HasPrefix(e.CreatedBy, "user:") &&
		!strings.HasPrefix(e.CreatedBy, "agent:") &&
		!strings.HasPrefix(e.CreatedBy, "system") {
		return fmt.Errorf("created_by must start with user:, agent:, or system")
	}

	return nil
}

// ValidateEventType enforces the "aggregate.action" form: exactly one dot,
// both parts non-empty.
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event_type is required")
	}
	parts := strings.Split(eventType, ".")
	if len(parts) != 2 {
		return fmt.Errorf("event_type must follow format aggregate.action (e.g. product.created)")
	}
	if parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("event_type parts cannot be empty")
	}
	return nil
}

// EventFilter is the set of optional predicates for querying the event stream.
// Zero values mean "no filter" (IsProcessed uses a pointer to distinguish
// unset from false).
type EventFilter struct {
	EventType     string
	AggregateType string
	AggregateID   *uuid.UUID
	CreatedBy     string
	CorrelationID *uuid.UUID
	IsProcessed   *bool

	Limit  int
	Offset int
}

const (
	// DefaultQueryLimit is applied when a query does not specify a limit.
	DefaultQueryLimit = 100
	// MaxQueryLimit caps a single page of the event stream.
	MaxQueryLimit = 1000
)

// Normalize clamps pagination into the allowed range.
func (f *EventFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ProcessingUpdate sets the processing status of one event directly.
// Used by the status tracker and the PUT /events/:id/processing endpoint.
type ProcessingUpdate struct {
	IsProcessed     bool    `json:"is_processed"`
	ProcessingError *string `json:"processing_error,omitempty"`
}

// AggregateHistoryEntry is one event projected for aggregate history:
// a reader reconstructing an entity needs the ordering, the type, the payload
// and the actor, nothing else.
type AggregateHistoryEntry struct {
	SequenceNumber int64                  `json:"sequence_number"`
	EventType      string                 `json:"event_type"`
	Data           map[string]interface{} `json:"data"`
	CreatedBy      string                 `json:"created_by"`
	CreatedAt      time.Time              `json:"created_at"`
}

// EventStats summarizes the state of the event stream.
type EventStats struct {
	TotalEvents        int64            `json:"total_events"`
	ProcessedEvents    int64            `json:"processed_events"`
	UnprocessedEvents  int64            `json:"unprocessed_events"`
	FailedEvents       int64            `json:"failed_events"`
	EventTypeCounts    map[string]int64 `json:"event_types"`
	AggregateTypeCount map[string]int64 `json:"aggregate_types"`
	LastProcessedAt    *time.Time       `json:"last_processed_at,omitempty"`
}
