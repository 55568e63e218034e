package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/server/dto"
)

// AskHandler handles question-answering requests.
type AskHandler struct {
	engine mnemo.Asker
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(engine mnemo.Asker) *AskHandler {
	return &AskHandler{engine: engine}
}

// Ask handles POST /api/v1/ask.
func (h *AskHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.engine.Ask(c.Request.Context(), req.Query, mnemo.AskOptions{
		ScopeID:           req.ScopeID,
		ContextIDs:        req.ContextIDs,
		ValidAt:           req.ValidAt,
		Strategy:          mnemo.RetrievalStrategy(req.Strategy),
		Limit:             req.Limit,
		MaxDepth:          req.MaxDepth,
		Threshold:         req.Threshold,
		IncludeEmbeddings: req.IncludeEmbeddings,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
