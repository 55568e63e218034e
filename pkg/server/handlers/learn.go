package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/server/dto"
	"github.com/soundprediction/mnemo/pkg/types"
)

// LearnHandler handles ingestion requests.
type LearnHandler struct {
	engine mnemo.Learner
}

// NewLearnHandler creates a new learn handler.
func NewLearnHandler(engine mnemo.Learner) *LearnHandler {
	return &LearnHandler{engine: engine}
}

// Learn handles POST /api/v1/learn.
func (h *LearnHandler) Learn(c *gin.Context) {
	var req dto.LearnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.engine.Learn(c.Request.Context(), req.Text, mnemo.LearnOptions{
		ScopeID:     req.ScopeID,
		ContextName: req.ContextName,
		Source:      req.Source,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LearnBatch handles POST /api/v1/learn/batch.
func (h *LearnHandler) LearnBatch(c *gin.Context) {
	var req dto.LearnBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.engine.LearnBatch(c.Request.Context(), req.Texts, mnemo.LearnOptions{
		ScopeID:     req.ScopeID,
		ContextName: req.ContextName,
		Source:      req.Source,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}

// writeEngineError maps engine error types onto HTTP statuses.
func writeEngineError(c *gin.Context, err error) {
	var validationErr *types.ValidationError
	var formatErr *mnemo.ExtractionFormatError
	var backendErr *mnemo.BackendUnavailableError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
	case errors.As(err, &formatErr):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "extraction_failed",
			Message: err.Error(),
		})
	case errors.As(err, &backendErr):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "backend_unavailable",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
