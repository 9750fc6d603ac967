package postgres

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// marshalEventJSON marshals an event's metadata and data fields to JSON.
// Nil metadata produces nil (SQL NULL) rather than the JSON "null" string.
func marshalEventJSON(event *v1.Event) (dataJSON, metadataJSON []byte, err error) {
	dataJSON, err = json.Marshal(event.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	if len(event.Metadata) > 0 {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	return dataJSON, metadataJSON, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a full event row in the canonical column order.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var dataJSON, metadataJSON []byte
	var correlationID, causationID uuid.NullUUID
	var idempotencyKey, processingError sql.NullString
	var processedAt sql.NullTime

	err := row.Scan(
		&evt.ID,
		&evt.SequenceNumber,
		&evt.EventType,
		&evt.AggregateType,
		&evt.AggregateID,
		&dataJSON,
		&metadataJSON,
		&evt.CreatedBy,
		&correlationID,
		&causationID,
		&idempotencyKey,
		&evt.CreatedAt,
		&evt.IsProcessed,
		&processedAt,
		&processingError,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	if correlationID.Valid {
		id := correlationID.UUID
		evt.CorrelationID = &id
	}
	if causationID.Valid {
		id := causationID.UUID
		evt.CausationID = &id
	}
	if idempotencyKey.Valid {
		key := idempotencyKey.String
		evt.IdempotencyKey = &key
	}
	if processedAt.Valid {
		ts := processedAt.Time
		evt.ProcessedAt = &ts
	}
	if processingError.Valid {
		msg := processingError.String
		evt.ProcessingError = &msg
	}

	if err := json.Unmarshal(dataJSON, &evt.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &evt.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &evt, nil
}

// scanHistoryRow scans the projected aggregate-history shape.
func scanHistoryRow(row scanner) (*v1.AggregateHistoryEntry, error) {
	var entry v1.AggregateHistoryEntry
	var dataJSON []byte

	err := row.Scan(
		&entry.SequenceNumber,
		&entry.EventType,
		&dataJSON,
		&entry.CreatedBy,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history row: %w", err)
	}

	if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return &entry, nil
}
