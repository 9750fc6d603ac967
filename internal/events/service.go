package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	"github.com/jovey-lab/project-jovey/internal/core/storage"
)

// Service owns the event-store API surface: posting events, querying the
// stream, aggregate history, and processing-status updates.
type Service struct {
	store            storage.EventStore
	catalog          *Catalog
	maxBodySizeBytes int
}

func NewService(store storage.EventStore, catalog *Catalog, maxBodySizeMB int) *Service {
	if store == nil {
		panic("events: store must not be nil")
	}
	if catalog == nil {
		panic("events: catalog must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		catalog:          catalog,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// PostEvent stores a validated event and returns it with the assigned
// sequence number. The caller is responsible for envelope validation.
func (s *Service) PostEvent(ctx context.Context, create *v1.EventCreate) (*v1.Event, error) {
	event := &v1.Event{
		ID:             uuid.New(),
		EventType:      create.EventType,
		AggregateType:  create.AggregateType,
		AggregateID:    create.AggregateID,
		Data:           create.Data,
		Metadata:       create.Metadata,
		CreatedBy:      create.CreatedBy,
		CorrelationID:  create.CorrelationID,
		CausationID:    create.CausationID,
		IdempotencyKey: create.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.SaveEvent(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// GetEvent loads one event by id, including its processing status.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*v1.Event, error) {
	return s.store.GetEventByID(ctx, id)
}

// QueryEvents returns the filtered event stream, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter v1.EventFilter) ([]*v1.Event, error) {
	return s.store.QueryEvents(ctx, filter)
}

// ListUnprocessed returns pending events oldest first, for batch consumers.
func (s *Service) ListUnprocessed(ctx context.Context, limit int) ([]*v1.Event, error) {
	if limit <= 0 {
		limit = v1.DefaultQueryLimit
	}
	if limit > v1.MaxQueryLimit {
		limit = v1.MaxQueryLimit
	}
	return s.store.ListUnprocessed(ctx, limit)
}

// UpdateProcessing sets the processing status of one event directly.
func (s *Service) UpdateProcessing(ctx context.Context, id uuid.UUID, update v1.ProcessingUpdate) (*v1.Event, error) {
	if err := s.store.UpdateProcessingStatus(ctx, id, update); err != nil {
		return nil, err
	}
	return s.store.GetEventByID(ctx, id)
}

// AggregateHistory returns the full ordered event history of one aggregate.
func (s *Service) AggregateHistory(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]*v1.AggregateHistoryEntry, error) {
	return s.store.AggregateHistory(ctx, aggregateType, aggregateID)
}

// Stats returns counts over the event stream.
func (s *Service) Stats(ctx context.Context) (*v1.EventStats, error) {
	return s.store.Stats(ctx)
}

// EventTypes returns the loaded event-type catalog.
func (s *Service) EventTypes() []EventTypeDefinition {
	return s.catalog.Definitions()
}
