package core

import (
	"context"
	"time"

	"prepme-backend/internal/models"
	"prepme-backend/internal/payments"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one from the token claims.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetSubscription(ctx context.Context, userID string) (*models.SubscriptionView, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// BillingService owns checkout-session creation and subscription-state
// synchronization. Every HTTP entry point delegates here.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error)
	// CreateEmailCheckoutSession derives missing redirect URLs from origin.
	CreateEmailCheckoutSession(ctx context.Context, req models.EmailCheckoutRequest, origin string) (string, error)
	CreatePortalSession(ctx context.Context, userID, returnURL, origin string) (string, error)
	HandleStripeWebhook(ctx context.Context, signature string, payload []byte) error
}

// PrepService defines the interface for prep-related operations. Every
// method checks that userID owns the prep.
type PrepService interface {
	CreatePrep(ctx context.Context, userID, linkedinURL string) (*models.Prep, error)
	GetPrep(ctx context.Context, userID, prepID string) (*models.Prep, error)
	ListPreps(ctx context.Context, userID string) ([]*models.Prep, error)
	UpdateNotes(ctx context.Context, userID, prepID, notes string) (*models.Prep, error)
	DeletePrep(ctx context.Context, userID, prepID string) error
}

// ContextService assembles the AI instruction block for a meeting.
type ContextService interface {
	BuildMeetingContext(ctx context.Context, meetingID string) (string, error)
	Invalidate(ctx context.Context, meetingID string)
}

// PromptService manages admin-defined system prompts.
type PromptService interface {
	ListPrompts(ctx context.Context) ([]*models.SystemPrompt, error)
	CreatePrompt(ctx context.Context, userID string, req models.CreatePromptRequest) (*models.SystemPrompt, error)
	UpdatePrompt(ctx context.Context, userID, promptID string, req models.UpdatePromptRequest) (*models.SystemPrompt, error)
	DeletePrompt(ctx context.Context, userID, promptID string) error
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// PaymentsProvider is the subset of the payments API the billing service uses.
type PaymentsProvider interface {
	CreateCustomer(ctx context.Context, req payments.CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// EventVerifier authenticates and decodes provider webhook deliveries.
type EventVerifier interface {
	Verify(payload []byte, signature string) (*payments.Event, error)
}

// EventPublisher announces stored subscription changes.
type EventPublisher interface {
	PublishSubscriptionChanged(ctx context.Context, event models.SubscriptionChanged) error
}

// ProfileAnalyzer turns a LinkedIn profile URL into a prep sheet.
type ProfileAnalyzer interface {
	Analyze(ctx context.Context, linkedinURL, userID string) (*models.ProfileData, error)
}

// Cache stores assembled meeting contexts.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}
