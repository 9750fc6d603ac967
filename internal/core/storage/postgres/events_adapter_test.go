package postgres

import (
	"context"
	"database/sql"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	"github.com/jovey-lab/project-jovey/internal/core/storage"
)

func TestAdapter_SaveEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		event          *v1.Event
		mockResult     func(mock sqlmock.Sqlmock, event *v1.Event)
		assertions     func(t *testing.T, event *v1.Event, err error)
		expectationsOK bool
	}{
		{
			name: "success sets sequence number",
			event: &v1.Event{
				ID:            uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
				EventType:     "product.created",
				AggregateType: "product",
				AggregateID:   uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
				Data:          map[string]interface{}{"sku": "PUMP-001"},
				Metadata:      map[string]interface{}{"source": "api"},
				CreatedBy:     "user:alice",
				CreatedAt:     now,
			},
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WithArgs(
						event.ID,
						event.EventType,
						event.AggregateType,
						event.AggregateID,
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						event.CreatedBy,
						nil,
						nil,
						nil,
						event.CreatedAt,
					).
					WillReturnRows(sqlmock.NewRows([]string{"sequence_number"}).AddRow(int64(42)))
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(42), event.SequenceNumber)
			},
			expectationsOK: true,
		},
		{
			name: "duplicate idempotency key maps to ErrDuplicate",
			event: &v1.Event{
				ID:             uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8"),
				EventType:      "order.created",
				AggregateType:  "order",
				AggregateID:    uuid.MustParse("6ba7b813-9dad-11d1-80b4-00c04fd430c8"),
				Data:           map[string]interface{}{"total": 99.5},
				CreatedBy:      "system",
				IdempotencyKey: strPtr("order-req-1"),
				CreatedAt:      now,
			},
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WillReturnRows(sqlmock.NewRows([]string{"sequence_number"}))
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
				require.Equal(t, int64(0), event.SequenceNumber)
			},
			expectationsOK: true,
		},
		{
			name: "marshal error short-circuits",
			event: &v1.Event{
				ID:            uuid.MustParse("6ba7b814-9dad-11d1-80b4-00c04fd430c8"),
				EventType:     "product.created",
				AggregateType: "product",
				AggregateID:   uuid.MustParse("6ba7b815-9dad-11d1-80b4-00c04fd430c8"),
				Data:          map[string]interface{}{"value": math.NaN()},
				CreatedBy:     "system",
				CreatedAt:     now,
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.Error(t, err)
				require.ErrorContains(t, err, "failed to marshal data")
			},
			expectationsOK: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			if tc.mockResult != nil {
				tc.mockResult(mock, tc.event)
			}

			err := adapter.SaveEvent(context.Background(), tc.event)
			tc.assertions(t, tc.event, err)

			if tc.expectationsOK {
				require.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestAdapter_GetEventByID(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	aggID := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetEventByID)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow(id.String(), int64(7), "product.created", "product", aggID.String(),
				[]byte(`{"sku":"PUMP-001"}`), nil, "user:alice", nil, nil,
				nil, now, false, nil, nil))

	event, err := adapter.GetEventByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, event.ID)
	require.Equal(t, int64(7), event.SequenceNumber)
	require.Equal(t, "product.created", event.EventType)
	require.Equal(t, "PUMP-001", event.Data["sku"])
	require.False(t, event.IsProcessed)
	require.Nil(t, event.ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetEventByID_NotFound(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	mock.ExpectQuery(regexp.QuoteMeta(queryGetEventByID)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()))

	_, err := adapter.GetEventByID(context.Background(), id)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListUnprocessed_InSequenceOrder(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	second := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	aggID := uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

	mock.ExpectQuery(regexp.QuoteMeta(queryListUnprocessed)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow(first.String(), int64(1), "product.price_changed", "product", aggID.String(),
				[]byte(`{"old_price":10,"new_price":12}`), nil, "system", nil, nil,
				nil, now, false, nil, nil).
			AddRow(second.String(), int64(2), "product.stock_updated", "product", aggID.String(),
				[]byte(`{"old_quantity":5,"new_quantity":3}`), nil, "system", nil, nil,
				nil, now, false, nil, nil))

	events, err := adapter.ListUnprocessed(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].SequenceNumber)
	require.Equal(t, int64(2), events[1].SequenceNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_MarkProcessed(t *testing.T) {
	t.Run("claims unprocessed event", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		mock.ExpectExec(regexp.QuoteMeta(queryMarkProcessed)).
			WithArgs(id, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := adapter.MarkProcessed(context.Background(), id)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race reports unclaimed", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		mock.ExpectExec(regexp.QuoteMeta(queryMarkProcessed)).
			WithArgs(id, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := adapter.MarkProcessed(context.Background(), id)
		require.NoError(t, err)
		require.False(t, claimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdapter_MarkFailed(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	mock.ExpectExec(regexp.QuoteMeta(queryMarkFailed)).
		WithArgs(id, "boom").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.MarkFailed(context.Background(), id, "boom"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_MarkFailed_NotFound(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	mock.ExpectExec(regexp.QuoteMeta(queryMarkFailed)).
		WithArgs(id, "boom").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.MarkFailed(context.Background(), id, "boom")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_QueryEvents_AppliesFilters(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	aggID := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

	// The SQL is composed with goqu; match on its structure rather than the
	// literal string.
	mock.ExpectQuery(`SELECT .+ FROM "events" WHERE .+"event_type".+ORDER BY "sequence_number" DESC`).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow(id.String(), int64(9), "order.cancelled", "order", aggID.String(),
				[]byte(`{"reason":"customer request"}`), nil, "user:bob", nil, nil,
				nil, now, true, now, nil))

	filter := v1.EventFilter{EventType: "order.cancelled"}
	events, err := adapter.QueryEvents(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "order.cancelled", events[0].EventType)
	require.True(t, events[0].IsProcessed)
	require.NotNil(t, events[0].ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_AggregateHistory(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	aggID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	mock.ExpectQuery(regexp.QuoteMeta(queryAggregateHistory)).
		WithArgs("product", aggID).
		WillReturnRows(sqlmock.NewRows([]string{"sequence_number", "event_type", "data", "created_by", "created_at"}).
			AddRow(int64(1), "product.created", []byte(`{"sku":"PUMP-001"}`), "user:alice", now).
			AddRow(int64(4), "product.price_changed", []byte(`{"new_price":12}`), "agent:pricing", now))

	history, err := adapter.AggregateHistory(context.Background(), "product", aggID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, int64(1), history[0].SequenceNumber)
	require.Equal(t, "product.created", history[0].EventType)
	require.Equal(t, "agent:pricing", history[1].CreatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Stats(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	lastProcessed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryCountTotal)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(queryCountUnprocessed)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(queryCountFailed)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT "event_type", COUNT\(\*\) AS "n" FROM "events" GROUP BY "event_type"`).
		WillReturnRows(sqlmock.NewRows([]string{"event_type", "n"}).
			AddRow("product.created", int64(6)).
			AddRow("order.created", int64(4)))
	mock.ExpectQuery(`SELECT "aggregate_type", COUNT\(\*\) AS "n" FROM "events" GROUP BY "aggregate_type"`).
		WillReturnRows(sqlmock.NewRows([]string{"aggregate_type", "n"}).
			AddRow("product", int64(6)).
			AddRow("order", int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta(queryLastProcessedAt)).
		WillReturnRows(sqlmock.NewRows([]string{"processed_at"}).AddRow(lastProcessed))

	stats, err := adapter.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(10), stats.TotalEvents)
	require.Equal(t, int64(3), stats.UnprocessedEvents)
	require.Equal(t, int64(7), stats.ProcessedEvents)
	require.Equal(t, int64(1), stats.FailedEvents)
	require.Equal(t, int64(6), stats.EventTypeCounts["product.created"])
	require.Equal(t, int64(4), stats.AggregateTypeCount["order"])
	require.NotNil(t, stats.LastProcessedAt)
	require.True(t, stats.LastProcessedAt.Equal(lastProcessed))
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	adapter := &Adapter{
		db:                  sqlx.NewDb(db, "sqlmock"),
		stmtSaveEvent:       mustPrepareStmt(t, db, mock, querySaveEvent),
		stmtGetEvent:        mustPrepareStmt(t, db, mock, queryGetEventByID),
		stmtListUnprocessed: mustPrepareStmt(t, db, mock, queryListUnprocessed),
		stmtMarkProcessed:   mustPrepareStmt(t, db, mock, queryMarkProcessed),
		stmtMarkFailed:      mustPrepareStmt(t, db, mock, queryMarkFailed),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}

func eventRowColumns() []string {
	return []string{
		"id",
		"sequence_number",
		"event_type",
		"aggregate_type",
		"aggregate_id",
		"data",
		"metadata",
		"created_by",
		"correlation_id",
		"causation_id",
		"idempotency_key",
		"created_at",
		"is_processed",
		"processed_at",
		"processing_error",
	}
}

func strPtr(s string) *string {
	return &s
}
