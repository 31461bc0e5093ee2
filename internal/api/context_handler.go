package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/core"
)

// ContextHandler serves meeting contexts to the voice assistant. The endpoint
// is public: the meeting ID is the capability.
type ContextHandler struct {
	contextService core.ContextService
	logger         *zap.Logger
	now            func() time.Time
}

// NewContextHandler creates a new ContextHandler.
func NewContextHandler(cs core.ContextService, logger *zap.Logger) *ContextHandler {
	return &ContextHandler{contextService: cs, logger: logger, now: time.Now}
}

// GetContext handles GET /context?meetingId=
func (h *ContextHandler) GetContext(c *gin.Context) {
	text, err := h.contextService.BuildMeetingContext(c.Request.Context(), c.Query("meetingId"))
	if err != nil {
		if errors.Is(err, core.ErrPrepNotFound) {
			abortWith(c, http.StatusNotFound, "Meeting not found")
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ContextResponse{Context: text, Timestamp: h.now().UTC()})
}
