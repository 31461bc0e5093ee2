package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepme-backend/internal/analysis"
	"prepme-backend/internal/api"
	"prepme-backend/internal/cache"
	"prepme-backend/internal/config"
	"prepme-backend/internal/core"
	"prepme-backend/internal/db"
	"prepme-backend/internal/events"
	"prepme-backend/internal/logging"
	"prepme-backend/internal/metrics"
	"prepme-backend/internal/middleware"
	"prepme-backend/internal/payments"
)

func main() {
	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	zapLogger, err := logging.New(appConfig)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded successfully.")
	for _, warning := range appConfig.Warnings() {
		zapLogger.Warn("Configuration warning", zap.String("warning", warning))
	}

	// --- 3. Initialize Firebase Admin SDK (Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.NewClients(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()
	zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized successfully.")

	// --- 4. Initialize optional infrastructure (Redis, RabbitMQ) ---
	var contextCache core.Cache = cache.NoopCache{}
	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.RedisConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
			Prefix:   "prepme:",
		}, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable; meeting contexts will not be cached", zap.Error(err))
		} else {
			defer redisCache.Close()
			contextCache = redisCache
		}
	}

	var publisher events.Publisher = events.NoopPublisher{Logger: zapLogger}
	if appConfig.AMQPURL != "" {
		rabbit, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:   appConfig.AMQPURL,
			Queue: appConfig.SubscriptionEventsQueue,
		}, zapLogger)
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable; subscription events will not be published", zap.Error(err))
		} else {
			publisher = rabbit
		}
	}
	defer publisher.Close()

	// --- 5. Initialize external API clients ---
	stripeProvider := payments.NewStripeProvider(appConfig.StripeSecretKey, appConfig.StripeAPIURL, zapLogger)
	webhookVerifier := payments.NewWebhookVerifier(appConfig.StripeWebhookSecret)
	analyzer := analysis.NewClient(analysis.Config{
		WebhookURL: appConfig.AnalysisWebhookURL,
		Timeout:    appConfig.AnalysisTimeout,
		Source:     appConfig.ClientURL,
	}, zapLogger)

	// --- 6. Initialize Repositories ---
	userRepo := db.NewFirestoreUserRepository(clients.Firestore)
	prepRepo := db.NewFirestorePrepRepository(clients.Firestore)
	promptRepo := db.NewFirestorePromptRepository(clients.Firestore)
	auditRepo := db.NewFirestoreAuditRepository(clients.Firestore)
	billingEventRepo := db.NewFirestoreBillingEventRepository(clients.Firestore)
	zapLogger.Info("Repositories initialized successfully.")

	// --- 7. Initialize Services ---
	plans := core.Plans{
		IndividualPriceID: appConfig.PriceIndividualMonthly,
		ProPriceID:        appConfig.PriceProMonthly,
		FreePrepsPerMonth: appConfig.FreePrepsPerMonth,
	}
	auditService := core.NewAuditService(auditRepo)
	userService := core.NewUserService(userRepo, plans, zapLogger)
	contextService := core.NewContextService(prepRepo, promptRepo, contextCache, appConfig.ContextCacheTTL, zapLogger)
	services := api.Services{
		Users: userService,
		Billing: core.NewBillingService(core.BillingDeps{
			Users:     userRepo,
			Events:    billingEventRepo,
			Payments:  stripeProvider,
			Verifier:  webhookVerifier,
			Publisher: publisher,
			Audit:     auditService,
			ClientURL: appConfig.ClientURL,
		}, zapLogger),
		Preps:    core.NewPrepService(prepRepo, userRepo, analyzer, contextService, auditService, plans, zapLogger),
		Contexts: contextService,
		Prompts:  core.NewPromptService(promptRepo, auditService, zapLogger),
	}
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Register metrics ---
	metrics.MustRegister(nil)

	// --- 9. Setup Gin HTTP Engine and Global Middleware (order is important) ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORSMiddleware(appConfig.ClientURL, api.PublicPathPrefixes...))

	// --- 10. Setup API Routes ---
	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	limiter := middleware.NewRateLimiter(appConfig.RateLimitRPS, appConfig.RateLimitBurst)
	go limiter.Cleanup(runCtx, time.Minute)

	api.SetupRoutes(
		router,
		middleware.NewAuthMiddleware(clients.Auth, zapLogger),
		services,
		api.RouteOptions{Limiter: limiter, WebhookMaxBodyBytes: appConfig.WebhookMaxBodyBytes},
		zapLogger,
	)

	// --- 11. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 12. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	zapLogger.Info("Attempting graceful shutdown of HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}
