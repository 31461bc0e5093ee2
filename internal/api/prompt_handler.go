package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/core"
	"prepme-backend/internal/models"
)

// PromptHandler handles the admin endpoints for system prompts. Routes are
// mounted behind RequireAdmin.
type PromptHandler struct {
	promptService core.PromptService
	logger        *zap.Logger
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(ps core.PromptService, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{promptService: ps, logger: logger}
}

// ListPrompts handles GET /admin/prompts
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	prompts, err := h.promptService.ListPrompts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if prompts == nil {
		prompts = []*models.SystemPrompt{}
	}
	c.JSON(http.StatusOK, prompts)
}

// CreatePrompt handles POST /admin/prompts
func (h *PromptHandler) CreatePrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: true, Message: "Invalid request payload", Details: err.Error()})
		return
	}

	prompt, err := h.promptService.CreatePrompt(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, prompt)
}

// UpdatePrompt handles PUT /admin/prompts/:promptId
func (h *PromptHandler) UpdatePrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: true, Message: "Invalid request payload", Details: err.Error()})
		return
	}

	prompt, err := h.promptService.UpdatePrompt(c.Request.Context(), userID, c.Param("promptId"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prompt)
}

// DeletePrompt handles DELETE /admin/prompts/:promptId
func (h *PromptHandler) DeletePrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.promptService.DeletePrompt(c.Request.Context(), userID, c.Param("promptId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
