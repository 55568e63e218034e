package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/server/dto"
)

// GraphHandler handles direct graph record access.
type GraphHandler struct {
	engine interface {
		mnemo.GraphReader
		mnemo.GraphWriter
	}
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(engine interface {
	mnemo.GraphReader
	mnemo.GraphWriter
}) *GraphHandler {
	return &GraphHandler{engine: engine}
}

func listOptionsFromQuery(c *gin.Context) mnemo.ListOptions {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return mnemo.ListOptions{
		ScopeID: c.Query("scope_id"),
		Labels:  c.QueryArray("label"),
		Types:   c.QueryArray("type"),
		Limit:   limit,
		Offset:  offset,
	}
}

// GetEntity handles GET /api/v1/entities/:id.
func (h *GraphHandler) GetEntity(c *gin.Context) {
	entity, err := h.engine.GetEntity(c.Request.Context(), c.Param("id"), c.Query("scope_id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if entity == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: "entity not found"})
		return
	}
	c.JSON(http.StatusOK, entity)
}

// ListEntities handles GET /api/v1/entities.
func (h *GraphHandler) ListEntities(c *gin.Context) {
	entities, err := h.engine.ListEntities(c.Request.Context(), listOptionsFromQuery(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, entities)
}

// UpdateEntity handles PATCH /api/v1/entities/:id.
func (h *GraphHandler) UpdateEntity(c *gin.Context) {
	var req dto.UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entity, err := h.engine.UpdateEntity(c.Request.Context(), c.Param("id"), req.Properties, req.ScopeID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if entity == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: "entity not found"})
		return
	}
	c.JSON(http.StatusOK, entity)
}

// DeleteEntity handles DELETE /api/v1/entities/:id.
func (h *GraphHandler) DeleteEntity(c *gin.Context) {
	removed, err := h.engine.DeleteEntity(c.Request.Context(), c.Param("id"), c.Query("scope_id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteResponse{Deleted: true, RelationshipsRemoved: removed})
}

// GetDocument handles GET /api/v1/documents/:id.
func (h *GraphHandler) GetDocument(c *gin.Context) {
	doc, err := h.engine.GetDocument(c.Request.Context(), c.Param("id"), c.Query("scope_id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListDocuments handles GET /api/v1/documents.
func (h *GraphHandler) ListDocuments(c *gin.Context) {
	docs, err := h.engine.ListDocuments(c.Request.Context(), listOptionsFromQuery(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// DeleteDocument handles DELETE /api/v1/documents/:id.
func (h *GraphHandler) DeleteDocument(c *gin.Context) {
	removed, err := h.engine.DeleteDocument(c.Request.Context(), c.Param("id"), c.Query("scope_id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteResponse{Deleted: true, RelationshipsRemoved: removed})
}

// GetRelationship handles GET /api/v1/relationships/:id.
func (h *GraphHandler) GetRelationship(c *gin.Context) {
	rel, err := h.engine.GetRelationship(c.Request.Context(), c.Param("id"), c.Query("scope_id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if rel == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: "relationship not found"})
		return
	}
	c.JSON(http.StatusOK, rel)
}

// ListRelationships handles GET /api/v1/relationships.
func (h *GraphHandler) ListRelationships(c *gin.Context) {
	rels, err := h.engine.ListRelationships(c.Request.Context(), listOptionsFromQuery(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, rels)
}

// DeleteRelationship handles DELETE /api/v1/relationships/:id.
func (h *GraphHandler) DeleteRelationship(c *gin.Context) {
	if err := h.engine.DeleteRelationship(c.Request.Context(), c.Param("id"), c.Query("scope_id")); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteResponse{Deleted: true})
}

// Subgraph handles POST /api/v1/subgraph.
func (h *GraphHandler) Subgraph(c *gin.Context) {
	var req dto.SubgraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	subgraph, err := h.engine.Subgraph(c.Request.Context(), mnemo.TraverseOptions{
		EntityLabels:      req.EntityLabels,
		RelationshipTypes: req.RelationshipTypes,
		SeedEntityIDs:     req.SeedEntityIDs,
		ScopeID:           req.ScopeID,
		MaxDepth:          req.MaxDepth,
		Limit:             req.Limit,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, subgraph)
}

// Stats handles GET /api/v1/stats.
func (h *GraphHandler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context(), c.Query("scope_id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
