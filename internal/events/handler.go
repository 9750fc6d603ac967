package events

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	httperr "github.com/jovey-lab/project-jovey/internal/core/errors"
	"github.com/jovey-lab/project-jovey/internal/core/storage"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to store event"
	msgDuplicateEvent = "Event with this idempotency key already exists"
	msgEventNotFound  = "Event not found"
	msgQueryFailed    = "Failed to query events"
)

// apiError carries the structured HTTP error shape from a helper back to the
// handler. Helpers return this instead of writing to gin.Context directly,
// keeping them decoupled from HTTP.
type apiError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *apiError) Error() string {
	return e.message
}

// RegisterRoutes registers the event-store API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/v1/events", s.PostEventHandler)
	r.GET("/api/v1/events", s.ListEventsHandler)
	r.GET("/api/v1/events/:id", s.GetEventHandler)
	r.GET("/api/v1/events/unprocessed", s.UnprocessedEventsHandler)
	r.GET("/api/v1/events/types", s.EventTypesHandler)
	r.GET("/api/v1/events/stats", s.EventStatsHandler)
	r.PUT("/api/v1/events/:id/processing", s.UpdateProcessingHandler)
	r.GET("/api/v1/aggregates/:aggregate_type/:aggregate_id/history", s.AggregateHistoryHandler)
}

// PostEventHandler handles POST /api/v1/events.
// Validation failures are rejected synchronously; rejected events are never
// stored.
func (s *Service) PostEventHandler(c *gin.Context) {
	create, payloadSize, apiErr := s.parseEventCreate(c)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	if err := create.Validate(); err != nil {
		slog.Warn("Event validation failed", "error", err, "event_type", create.EventType)
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		})
		return
	}

	slog.Info("Received event",
		"event_type", create.EventType,
		"aggregate_type", create.AggregateType,
		"aggregate_id", create.AggregateID,
		"created_by", create.CreatedBy,
		"payload_size", payloadSize)

	event, err := s.PostEvent(c.Request.Context(), create)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("Duplicate event rejected",
				"event_type", create.EventType,
				"idempotency_key", create.IdempotencyKey)
			writeError(c, &apiError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateEventError,
				message:    msgDuplicateEvent,
			})
			return
		}

		slog.Error("Failed to store event", "error", err, "event_type", create.EventType)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		})
		return
	}

	c.JSON(http.StatusCreated, event)
}

// parseEventCreate reads the raw request body (bounded) and binds it into an
// EventCreate. Returns the parsed request and the raw payload size.
func (s *Service) parseEventCreate(c *gin.Context) (*v1.EventCreate, int, *apiError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &apiError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var create v1.EventCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	return &create, len(bodyBytes), nil
}

// ListEventsHandler handles GET /api/v1/events.
// Returns events newest first, filtered by any combination of the query
// parameters, paginated via limit/offset.
func (s *Service) ListEventsHandler(c *gin.Context) {
	var query struct {
		EventType     string `form:"event_type"`
		AggregateType string `form:"aggregate_type"`
		AggregateID   string `form:"aggregate_id"`
		CreatedBy     string `form:"created_by"`
		CorrelationID string `form:"correlation_id"`
		IsProcessed   *bool  `form:"is_processed"`
		Limit         int    `form:"limit"`
		Offset        int    `form:"offset"`
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Invalid query parameters",
			details:    err.Error(),
		})
		return
	}

	if query.Limit < 0 || query.Limit > v1.MaxQueryLimit {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "limit must be between 1 and 1000",
		})
		return
	}

	filter := v1.EventFilter{
		EventType:     query.EventType,
		AggregateType: query.AggregateType,
		CreatedBy:     query.CreatedBy,
		IsProcessed:   query.IsProcessed,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}

	if query.AggregateID != "" {
		id, err := uuid.Parse(query.AggregateID)
		if err != nil {
			writeError(c, &apiError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpValidationError,
				message:    "Invalid aggregate_id",
			})
			return
		}
		filter.AggregateID = &id
	}
	if query.CorrelationID != "" {
		id, err := uuid.Parse(query.CorrelationID)
		if err != nil {
			writeError(c, &apiError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpValidationError,
				message:    "Invalid correlation_id",
			})
			return
		}
		filter.CorrelationID = &id
	}

	events, err := s.QueryEvents(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Failed to query events", "error", err)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgQueryFailed,
		})
		return
	}

	if events == nil {
		events = []*v1.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// GetEventHandler handles GET /api/v1/events/:id.
// Returns the stored event including its processing status, so a failure
// reported by the batch runner can be inspected afterwards.
func (s *Service) GetEventHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "Invalid event id",
		})
		return
	}

	event, err := s.GetEvent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(c, &apiError{
				statusCode: http.StatusNotFound,
				errorType:  httperr.HttpNotFoundError,
				message:    msgEventNotFound,
			})
			return
		}

		slog.Error("Failed to load event", "error", err, "event_id", id)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to load event",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// UnprocessedEventsHandler handles GET /api/v1/events/unprocessed.
// Same shape as the stream query, fixed to is_processed = false and ordered
// oldest first for batch consumption.
func (s *Service) UnprocessedEventsHandler(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Invalid query parameters",
			details:    err.Error(),
		})
		return
	}

	if query.Limit < 0 || query.Limit > v1.MaxQueryLimit {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "limit must be between 1 and 1000",
		})
		return
	}

	events, err := s.ListUnprocessed(c.Request.Context(), query.Limit)
	if err != nil {
		slog.Error("Failed to query unprocessed events", "error", err)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgQueryFailed,
		})
		return
	}

	if events == nil {
		events = []*v1.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// EventTypesHandler handles GET /api/v1/events/types.
func (s *Service) EventTypesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.EventTypes())
}

// EventStatsHandler handles GET /api/v1/events/stats.
func (s *Service) EventStatsHandler(c *gin.Context) {
	stats, err := s.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Failed to compute event stats", "error", err)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to compute event stats",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateProcessingHandler handles PUT /api/v1/events/:id/processing.
// Sets the processing-status fields directly; everything else on the event is
// immutable.
func (s *Service) UpdateProcessingHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "Invalid event id",
		})
		return
	}

	var update v1.ProcessingUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		})
		return
	}

	event, err := s.UpdateProcessing(c.Request.Context(), id, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(c, &apiError{
				statusCode: http.StatusNotFound,
				errorType:  httperr.HttpNotFoundError,
				message:    msgEventNotFound,
			})
			return
		}

		slog.Error("Failed to update processing status", "error", err, "event_id", id)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to update processing status",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// AggregateHistoryHandler handles
// GET /api/v1/aggregates/:aggregate_type/:aggregate_id/history.
func (s *Service) AggregateHistoryHandler(c *gin.Context) {
	var uri struct {
		AggregateType string `uri:"aggregate_type" binding:"required"`
		AggregateID   string `uri:"aggregate_id" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "Invalid path parameters",
			details:    err.Error(),
		})
		return
	}

	id, err := uuid.Parse(uri.AggregateID)
	if err != nil {
		writeError(c, &apiError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    "Invalid aggregate id",
		})
		return
	}

	history, err := s.AggregateHistory(c.Request.Context(), uri.AggregateType, id)
	if err != nil {
		slog.Error("Failed to query aggregate history", "error", err,
			"aggregate_type", uri.AggregateType, "aggregate_id", id)
		writeError(c, &apiError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to query aggregate history",
		})
		return
	}

	if history == nil {
		history = []*v1.AggregateHistoryEntry{}
	}
	c.JSON(http.StatusOK, history)
}

// writeError serializes an apiError as the JSON HTTP response.
func writeError(c *gin.Context, err *apiError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
