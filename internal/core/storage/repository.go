package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
)

// ErrDuplicate is returned when an event with the same idempotency key
// already exists.
var ErrDuplicate = errors.New("event already exists")

// ErrNotFound is returned when an event id does not exist.
var ErrNotFound = errors.New("event not found")

// EventStore defines the interface for the append-only event log.
// Events are immutable once saved; UpdateProcessingStatus touches only the
// processing-status fields.
type EventStore interface {
	// SaveEvent appends an event and populates event.SequenceNumber from the
	// database. Returns ErrDuplicate when the idempotency key is taken.
	SaveEvent(ctx context.Context, event *v1.Event) error

	// GetEventByID loads one event. Returns ErrNotFound if it does not exist.
	GetEventByID(ctx context.Context, id uuid.UUID) (*v1.Event, error)

	// QueryEvents returns events matching the filter, newest first
	// (descending sequence_number), paginated by filter.Limit/Offset.
	QueryEvents(ctx context.Context, filter v1.EventFilter) ([]*v1.Event, error)

	// ListUnprocessed returns up to limit events with is_processed = false,
	// oldest first (ascending sequence_number). The batch runner depends on
	// this ordering: handlers may rely on causal order within an aggregate.
	ListUnprocessed(ctx context.Context, limit int) ([]*v1.Event, error)

	// UpdateProcessingStatus sets is_processed / processed_at /
	// processing_error on one event. When the update requires the event to
	// still be unprocessed (compare-and-set), claimed reports whether this
	// caller won. Returns ErrNotFound for an unknown id.
	UpdateProcessingStatus(ctx context.Context, id uuid.UUID, update v1.ProcessingUpdate) error

	// MarkProcessed is the success half of the status tracker: sets
	// is_processed = true, processed_at = now, clears processing_error.
	// It is conditional on is_processed = false so that two racing batch
	// runs cannot both claim the event; the loser gets claimed = false.
	MarkProcessed(ctx context.Context, id uuid.UUID) (claimed bool, err error)

	// MarkFailed is the failure half: keeps is_processed = false and records
	// the error text, overwriting any previous error. ProcessedAt is left
	// untouched.
	MarkFailed(ctx context.Context, id uuid.UUID, processingError string) error

	// AggregateHistory returns every event for one aggregate instance,
	// oldest first, projected to the history shape.
	AggregateHistory(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]*v1.AggregateHistoryEntry, error)

	// Stats returns counts over the whole event stream.
	Stats(ctx context.Context) (*v1.EventStats, error)
}
