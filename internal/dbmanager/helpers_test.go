package dbmanager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	"github.com/jovey-lab/project-jovey/internal/core/storage"
)

// fakeEventStore is an in-memory storage.EventStore for exercising the
// processor and batch runner without a database. Error injection hooks cover
// the status-persistence failure paths.
type fakeEventStore struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*v1.Event
	nextSeq int64

	listErr            error
	markProcessedErr   error
	markFailedErr      error
	markProcessedCalls int
	markFailedCalls    int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[uuid.UUID]*v1.Event)}
}

func (f *fakeEventStore) add(eventType string, data map[string]interface{}) *v1.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSeq++
	event := &v1.Event{
		ID:             uuid.New(),
		SequenceNumber: f.nextSeq,
		EventType:      eventType,
		AggregateType:  aggregatePart(eventType),
		AggregateID:    uuid.New(),
		Data:           data,
		CreatedBy:      "system",
		CreatedAt:      time.Now().UTC(),
	}
	f.events[event.ID] = event
	copied := *event
	return &copied
}

func aggregatePart(eventType string) string {
	for i := 0; i < len(eventType); i++ {
		if eventType[i] == '.' {
			return eventType[:i]
		}
	}
	return eventType
}

func (f *fakeEventStore) SaveEvent(ctx context.Context, event *v1.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSeq++
	event.SequenceNumber = f.nextSeq
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventStore) GetEventByID(ctx context.Context, id uuid.UUID) (*v1.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeEventStore) QueryEvents(ctx context.Context, filter v1.EventFilter) ([]*v1.Event, error) {
	return f.sortedEvents(false), nil
}

func (f *fakeEventStore) ListUnprocessed(ctx context.Context, limit int) ([]*v1.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	var pending []*v1.Event
	for _, event := range f.sortedEvents(true) {
		if event.IsProcessed {
			continue
		}
		pending = append(pending, event)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (f *fakeEventStore) UpdateProcessingStatus(ctx context.Context, id uuid.UUID, update v1.ProcessingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[id]
	if !ok {
		return storage.ErrNotFound
	}
	event.IsProcessed = update.IsProcessed
	event.ProcessingError = update.ProcessingError
	return nil
}

func (f *fakeEventStore) MarkProcessed(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markProcessedCalls++
	if f.markProcessedErr != nil {
		return false, f.markProcessedErr
	}

	event, ok := f.events[id]
	if !ok || event.IsProcessed {
		return false, nil
	}
	now := time.Now().UTC()
	event.IsProcessed = true
	event.ProcessedAt = &now
	event.ProcessingError = nil
	return true, nil
}

func (f *fakeEventStore) MarkFailed(ctx context.Context, id uuid.UUID, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markFailedCalls++
	if f.markFailedErr != nil {
		return f.markFailedErr
	}

	event, ok := f.events[id]
	if !ok {
		return storage.ErrNotFound
	}
	event.IsProcessed = false
	event.ProcessingError = &processingError
	return nil
}

func (f *fakeEventStore) AggregateHistory(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]*v1.AggregateHistoryEntry, error) {
	var entries []*v1.AggregateHistoryEntry
	for _, event := range f.sortedEvents(true) {
		if event.AggregateType != aggregateType || event.AggregateID != aggregateID {
			continue
		}
		entries = append(entries, &v1.AggregateHistoryEntry{
			SequenceNumber: event.SequenceNumber,
			EventType:      event.EventType,
			Data:           event.Data,
			CreatedBy:      event.CreatedBy,
			CreatedAt:      event.CreatedAt,
		})
	}
	return entries, nil
}

func (f *fakeEventStore) Stats(ctx context.Context) (*v1.EventStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &v1.EventStats{
		EventTypeCounts:    make(map[string]int64),
		AggregateTypeCount: make(map[string]int64),
	}
	for _, event := range f.events {
		stats.TotalEvents++
		if event.IsProcessed {
			stats.ProcessedEvents++
		} else {
			stats.UnprocessedEvents++
			if event.ProcessingError != nil {
				stats.FailedEvents++
			}
		}
		stats.EventTypeCounts[event.EventType]++
		stats.AggregateTypeCount[event.AggregateType]++
	}
	return stats, nil
}

// sortedEvents returns copies in ascending sequence order (descending when
// asc is false), mirroring the real adapter's ordering guarantees.
func (f *fakeEventStore) sortedEvents(asc bool) []*v1.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := make([]*v1.Event, 0, len(f.events))
	for _, event := range f.events {
		copied := *event
		events = append(events, &copied)
	}
	sort.Slice(events, func(i, j int) bool {
		if asc {
			return events[i].SequenceNumber < events[j].SequenceNumber
		}
		return events[i].SequenceNumber > events[j].SequenceNumber
	})
	return events
}
