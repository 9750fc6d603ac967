package dbmanager

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
	httperr "github.com/jovey-lab/project-jovey/internal/core/errors"
)

// RegisterRoutes registers the database-manager API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/v1/database-manager/process", s.ProcessHandler)
	r.POST("/api/v1/database-manager/process-specific", s.ProcessSpecificHandler)
	r.GET("/api/v1/database-manager/mappings", s.MappingsHandler)
	r.GET("/api/v1/database-manager/stats", s.StatsHandler)
}

// ProcessHandler handles POST /api/v1/database-manager/process.
// Runs the batch runner over up to ?limit unprocessed events (default 100,
// max 1000) and returns the full per-event result list.
func (s *Service) ProcessHandler(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}
	if query.Limit < 0 || query.Limit > v1.MaxQueryLimit {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "limit must be between 1 and 1000",
		})
		return
	}

	result, err := s.ProcessPendingEvents(c.Request.Context(), query.Limit)
	if err != nil {
		slog.Error("Batch processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Batch processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ProcessSpecificHandler handles POST /api/v1/database-manager/process-specific.
// Processes an explicit event id list, optionally force-reprocessing events
// that are already marked processed.
func (s *Service) ProcessSpecificHandler(c *gin.Context) {
	var req ManualProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}
	if len(req.EventIDs) == 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "event_ids must not be empty",
		})
		return
	}

	result, err := s.ProcessSpecificEvents(c.Request.Context(), req.EventIDs, req.ForceReprocess)
	if err != nil {
		slog.Error("Specific event processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Specific event processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// MappingsHandler handles GET /api/v1/database-manager/mappings.
func (s *Service) MappingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, Mappings())
}

// StatsHandler handles GET /api/v1/database-manager/stats.
func (s *Service) StatsHandler(c *gin.Context) {
	stats, err := s.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Failed to compute database manager stats", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to compute stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
