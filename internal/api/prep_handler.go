package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/core"
	"prepme-backend/internal/models"
)

// PrepHandler handles API endpoints related to preps.
type PrepHandler struct {
	prepService core.PrepService
	logger      *zap.Logger
}

// NewPrepHandler creates a new PrepHandler.
func NewPrepHandler(ps core.PrepService, logger *zap.Logger) *PrepHandler {
	return &PrepHandler{prepService: ps, logger: logger}
}

// CreatePrep handles POST /preps
func (h *PrepHandler) CreatePrep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreatePrepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: true, Message: "Invalid request payload", Details: err.Error()})
		return
	}

	prep, err := h.prepService.CreatePrep(c.Request.Context(), userID, req.LinkedInURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, prep)
}

// ListPreps handles GET /preps
func (h *PrepHandler) ListPreps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	preps, err := h.prepService.ListPreps(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if preps == nil {
		preps = []*models.Prep{}
	}
	c.JSON(http.StatusOK, preps)
}

// GetPrep handles GET /preps/:prepId
func (h *PrepHandler) GetPrep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	prep, err := h.prepService.GetPrep(c.Request.Context(), userID, c.Param("prepId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prep)
}

// UpdateNotes handles PUT /preps/:prepId/notes
func (h *PrepHandler) UpdateNotes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: true, Message: "Invalid request payload", Details: err.Error()})
		return
	}

	prep, err := h.prepService.UpdateNotes(c.Request.Context(), userID, c.Param("prepId"), *req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prep)
}

// DeletePrep handles DELETE /preps/:prepId
func (h *PrepHandler) DeletePrep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.prepService.DeletePrep(c.Request.Context(), userID, c.Param("prepId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
