package postgres

// SQL for the fixed-shape event log operations. The filtered stream query and
// the stats breakdowns are built dynamically with goqu (see events_adapter.go).

const (
	// querySaveEvent appends an event. sequence_number is assigned by the
	// database (BIGSERIAL) and retrieved via RETURNING.
	// The partial unique index on idempotency_key makes ON CONFLICT DO
	// NOTHING return no rows (sql.ErrNoRows) for duplicates.
	querySaveEvent = `
		INSERT INTO events (
			id, event_type, aggregate_type, aggregate_id,
			data, metadata, created_by,
			correlation_id, causation_id, idempotency_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING sequence_number
	`

	queryGetEventByID = `
		SELECT
			id, sequence_number, event_type, aggregate_type, aggregate_id,
			data, metadata, created_by, correlation_id, causation_id,
			idempotency_key, created_at, is_processed, processed_at, processing_error
		FROM events
		WHERE id = $1
	`

	// queryListUnprocessed feeds the batch runner. Ascending sequence order
	// is mandatory: handlers may depend on causal order within an aggregate.
	queryListUnprocessed = `
		SELECT
			id, sequence_number, event_type, aggregate_type, aggregate_id,
			data, metadata, created_by, correlation_id, causation_id,
			idempotency_key, created_at, is_processed, processed_at, processing_error
		FROM events
		WHERE is_processed = FALSE
		ORDER BY sequence_number ASC
		LIMIT $1
	`

	// queryMarkProcessed is a compare-and-set on is_processed so that two
	// concurrent batch runs cannot both claim the same event. Zero rows
	// affected means another runner (or a force-reprocess) got there first.
	queryMarkProcessed = `
		UPDATE events
		SET is_processed = TRUE, processed_at = $2, processing_error = NULL
		WHERE id = $1 AND is_processed = FALSE
	`

	// queryMarkFailed records the error and leaves the event retryable.
	// processed_at is deliberately untouched.
	queryMarkFailed = `
		UPDATE events
		SET is_processed = FALSE, processing_error = $2
		WHERE id = $1
	`

	queryUpdateProcessing = `
		UPDATE events
		SET is_processed = $2, processed_at = $3, processing_error = $4
		WHERE id = $1
	`

	queryAggregateHistory = `
		SELECT sequence_number, event_type, data, created_by, created_at
		FROM events
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY sequence_number ASC
	`

	queryCountTotal       = `SELECT COUNT(*) FROM events`
	queryCountUnprocessed = `SELECT COUNT(*) FROM events WHERE is_processed = FALSE`
	queryCountFailed      = `SELECT COUNT(*) FROM events WHERE is_processed = FALSE AND processing_error IS NOT NULL`

	queryLastProcessedAt = `
		SELECT processed_at
		FROM events
		WHERE is_processed = TRUE AND processed_at IS NOT NULL
		ORDER BY processed_at DESC
		LIMIT 1
	`
)
