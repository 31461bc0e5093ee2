package db

import (
	"context"
	"time"

	"prepme-backend/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	FindByBillingCustomerID(ctx context.Context, customerID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// LinkBillingCustomer stores customerID on the user unless one is already
	// present, in a single transaction. It returns the ID in effect afterwards.
	LinkBillingCustomer(ctx context.Context, userID, customerID string) (string, error)
	// SetSubscription replaces the embedded subscription snapshot as a whole.
	SetSubscription(ctx context.Context, userID string, snapshot models.SubscriptionSnapshot) error
}

// PrepRepository defines the interface for prep data storage operations.
type PrepRepository interface {
	Create(ctx context.Context, prep *models.Prep) (string, error) // Returns new prep ID
	GetByID(ctx context.Context, prepID string) (*models.Prep, error)
	ListByUserID(ctx context.Context, userID string, limit int) ([]*models.Prep, error)
	CountByUserIDSince(ctx context.Context, userID string, since time.Time) (int, error) // For plan limits
	UpdateNotes(ctx context.Context, prepID, notes string, at time.Time) error
	Delete(ctx context.Context, prepID string) error
}

// PromptRepository defines the interface for system prompt storage operations.
type PromptRepository interface {
	List(ctx context.Context) ([]*models.SystemPrompt, error)
	GetByID(ctx context.Context, promptID string) (*models.SystemPrompt, error)
	GetActive(ctx context.Context) (*models.SystemPrompt, error)
	Create(ctx context.Context, prompt *models.SystemPrompt) (string, error)
	Update(ctx context.Context, prompt *models.SystemPrompt) error
	Delete(ctx context.Context, promptID string) error
	// Activate marks promptID active and every other prompt inactive.
	Activate(ctx context.Context, promptID string, at time.Time) error
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}

// BillingEventRepository remembers which provider events were already applied.
type BillingEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, event models.BillingEvent) error
}
