package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/core"
	"prepme-backend/internal/middleware"
)

func abortWith(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: true, Message: message})
}

// clientMessage returns the part of err that may be shown to the caller.
func clientMessage(err error, fallback string) string {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var uerr *core.UpstreamError
	if errors.As(err, &uerr) && uerr.Message != "" {
		return uerr.Message
	}
	return fallback
}

// respondError maps service errors to HTTP status codes and ErrorResponse.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, core.ErrValidation):
		status, message = http.StatusBadRequest, clientMessage(err, "Invalid request")
	case errors.Is(err, core.ErrUserNotFound):
		status, message = http.StatusNotFound, "User not found"
	case errors.Is(err, core.ErrPrepNotFound):
		status, message = http.StatusNotFound, "Prep not found"
	case errors.Is(err, core.ErrProfileDataMissing):
		status, message = http.StatusNotFound, "Profile data not found"
	case errors.Is(err, core.ErrPromptNotFound):
		status, message = http.StatusNotFound, "System prompt not found"
	case errors.Is(err, core.ErrForbidden):
		status, message = http.StatusForbidden, "Access denied"
	case errors.Is(err, core.ErrPrepLimitReached):
		status, message = http.StatusForbidden, "Monthly prep limit reached. Upgrade your plan to create more preps."
	case errors.Is(err, core.ErrNoBillingCustomer):
		status, message = http.StatusBadRequest, "No billing account found. Subscribe to a plan first."
	case errors.Is(err, core.ErrUpstream):
		logger.Error("Upstream service failed", zap.String("path", c.FullPath()), zap.Error(err))
		status, message = http.StatusBadGateway, clientMessage(err, "Upstream service failed")
	default:
		logger.Error("Internal server error", zap.String("path", c.FullPath()), zap.Error(err))
		status, message = http.StatusInternalServerError, "An unexpected internal server error occurred."
	}
	abortWith(c, status, message)
}

// respondBillingError answers the billing endpoints, which report validation,
// upstream and authenticity failures alike as 400 {error:true, message}.
func respondBillingError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, core.ErrAuthenticity):
		logger.Warn("Rejected billing webhook", zap.Error(err))
		abortWith(c, http.StatusBadRequest, "Webhook signature verification failed")
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrUpstream):
		logger.Error("Billing request failed", zap.String("path", c.FullPath()), zap.Error(err))
		abortWith(c, http.StatusBadRequest, clientMessage(err, "Billing request failed"))
	default:
		respondError(c, logger, err)
	}
}

// currentUserID returns the authenticated user, answering 401 when the auth
// middleware did not run.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		abortWith(c, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}
