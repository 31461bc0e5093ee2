package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/core"
	"prepme-backend/internal/middleware"
	"prepme-backend/internal/models"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// BillingHandler handles billing-related API endpoints. Every route and its
// legacy aliases land here.
type BillingHandler struct {
	billingService core.BillingService
	logger         *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: bs, logger: logger}
}

// CreateCheckoutSession handles POST /billing/create-checkout-session.
// Authentication is optional; when a token is present the body's userId
// must belong to it.
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	if tokenUser := c.GetString(middleware.ContextUserID); tokenUser != "" && req.UserID != "" && tokenUser != req.UserID {
		h.logger.Warn("Checkout requested for another user", zap.String("tokenUserID", tokenUser), zap.String("userID", req.UserID))
		abortWith(c, http.StatusForbidden, "Access denied")
		return
	}

	sessionID, err := h.billingService.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		respondBillingError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutSessionResponse{ID: sessionID})
}

// CreateEmailCheckoutSession handles POST /billing/create-checkout-session/email.
func (h *BillingHandler) CreateEmailCheckoutSession(c *gin.Context) {
	var req models.EmailCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	sessionID, err := h.billingService.CreateEmailCheckoutSession(c.Request.Context(), req, c.GetHeader("Origin"))
	if err != nil {
		respondBillingError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutSessionResponse{ID: sessionID})
}

// CreatePortalSession handles POST /billing/create-portal-session. The body
// is optional.
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.PortalSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: true, Message: "Invalid request payload", Details: err.Error()})
		return
	}

	url, err := h.billingService.CreatePortalSession(c.Request.Context(), userID, req.ReturnURL, c.GetHeader("Origin"))
	if err != nil {
		respondBillingError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, PortalSessionResponse{URL: url})
}

// HandleStripeWebhook handles POST /billing/webhooks/stripe. The raw body is
// passed on untouched because the signature covers its exact bytes.
func (h *BillingHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("Failed to read webhook payload", zap.Error(err))
		abortWith(c, http.StatusBadRequest, "Failed to read webhook payload")
		return
	}

	if err := h.billingService.HandleStripeWebhook(c.Request.Context(), c.GetHeader(SignatureHeader), payload); err != nil {
		respondBillingError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
