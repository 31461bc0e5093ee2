package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/core"
	"prepme-backend/internal/metrics"
	"prepme-backend/internal/middleware"
)

// PublicPathPrefixes are served with allow-all CORS: provider webhooks, the
// checkout endpoints embedded on marketing pages, the assistant's context
// lookup and the function-style aliases.
var PublicPathPrefixes = []string{
	"/api/v1/billing/create-checkout-session",
	"/api/v1/billing/webhooks/",
	"/api/v1/context",
	"/createCheckoutSession",
	"/handleSubscriptionChange",
	"/.netlify/functions/",
}

// Services groups the services the handlers delegate to.
type Services struct {
	Users    core.UserService
	Billing  core.BillingService
	Preps    core.PrepService
	Contexts core.ContextService
	Prompts  core.PromptService
}

// RouteOptions carries the per-route guards.
type RouteOptions struct {
	// Limiter throttles the unauthenticated billing endpoints and prep creation. Nil disables it.
	Limiter *middleware.RateLimiter
	// WebhookMaxBodyBytes caps webhook payloads. Zero disables the cap.
	WebhookMaxBodyBytes int64
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// It's expected that global middleware (Logging, Recovery, CORS) are applied to the `router`
// instance *before* this function is called, typically in `main.go`.
func SetupRoutes(
	router *gin.Engine,
	authMW *middleware.AuthMiddleware,
	services Services,
	opts RouteOptions,
	logger *zap.Logger,
) {
	// --- Initialize Handlers ---
	userHandler := NewUserHandler(services.Users, logger)
	billingHandler := NewBillingHandler(services.Billing, logger)
	prepHandler := NewPrepHandler(services.Preps, logger)
	contextHandler := NewContextHandler(services.Contexts, logger)
	promptHandler := NewPromptHandler(services.Prompts, logger)

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		throttle = opts.Limiter.Middleware()
	}
	webhookBody := middleware.MaxBodyBytes(opts.WebhookMaxBodyBytes)

	// --- Define API Route Groups ---
	apiV1 := router.Group("/api/v1")
	{
		// --- User Endpoints ---
		usersGroup := apiV1.Group("/users", authMW.VerifyToken())
		{
			// Called after client-side Firebase login/signup to ensure the backend profile exists.
			usersGroup.POST("/initialize", userHandler.InitializeUserProfile)
			usersGroup.GET("/me", userHandler.GetCurrentUserProfile)
			usersGroup.GET("/me/subscription", userHandler.GetSubscription)
		}

		// --- Billing Endpoints ---
		billingGroup := apiV1.Group("/billing")
		{
			billingGroup.POST("/create-checkout-session", throttle, authMW.OptionalToken(), billingHandler.CreateCheckoutSession)
			billingGroup.POST("/create-checkout-session/email", throttle, billingHandler.CreateEmailCheckoutSession)
			billingGroup.POST("/create-portal-session", authMW.VerifyToken(), billingHandler.CreatePortalSession)

			// Public webhook endpoint. The provider authenticates deliveries with a signature.
			billingGroup.POST("/webhooks/stripe", webhookBody, billingHandler.HandleStripeWebhook)
		}

		// --- Prep Endpoints ---
		prepsGroup := apiV1.Group("/preps", authMW.VerifyToken())
		{
			prepsGroup.POST("", throttle, prepHandler.CreatePrep)
			prepsGroup.GET("", prepHandler.ListPreps)
			prepsGroup.GET("/:prepId", prepHandler.GetPrep)
			prepsGroup.PUT("/:prepId/notes", prepHandler.UpdateNotes)
			prepsGroup.DELETE("/:prepId", prepHandler.DeletePrep)
		}

		apiV1.GET("/context", contextHandler.GetContext)

		// --- Admin Endpoints ---
		adminGroup := apiV1.Group("/admin", authMW.VerifyToken(), authMW.RequireAdmin(services.Users))
		{
			adminGroup.GET("/prompts", promptHandler.ListPrompts)
			adminGroup.POST("/prompts", promptHandler.CreatePrompt)
			adminGroup.PUT("/prompts/:promptId", promptHandler.UpdatePrompt)
			adminGroup.DELETE("/prompts/:promptId", promptHandler.DeletePrompt)
		}
	}

	// --- Function-style aliases ---
	router.POST("/createCheckoutSession", throttle, authMW.OptionalToken(), billingHandler.CreateCheckoutSession)
	router.POST("/handleSubscriptionChange", webhookBody, billingHandler.HandleStripeWebhook)
	functions := router.Group("/.netlify/functions")
	{
		functions.POST("/create-checkout", throttle, billingHandler.CreateEmailCheckoutSession)
		functions.POST("/webhook", webhookBody, billingHandler.HandleStripeWebhook)
		functions.GET("/context", contextHandler.GetContext)
	}

	// --- Ops Endpoints ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "UP"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("API routes configured successfully under /api/v1, function aliases, /health and /metrics.")
}
