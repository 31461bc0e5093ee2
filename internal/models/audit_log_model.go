package models

import "time"

// Audit actions written by the services.
const (
	AuditBillingCustomerCreate = "BILLING_CUSTOMER_CREATE"
	AuditCheckoutSessionCreate = "CHECKOUT_SESSION_CREATE"
	AuditSubscriptionSync      = "SUBSCRIPTION_SYNC"
	AuditSubscriptionSkipped   = "SUBSCRIPTION_SYNC_SKIPPED"
	AuditPrepCreate            = "PREP_CREATE"
	AuditPrepDelete            = "PREP_DELETE"
	AuditPromptChange          = "PROMPT_CHANGE"
)

// AuditLog represents an audit trail event.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID     string                 `json:"userId,omitempty" firestore:"userId,omitempty"` // empty for provider-initiated events
	Action     string                 `json:"action" firestore:"action"`
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"` // e.g. "SUBSCRIPTION", "PREP"
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}

// BillingEvent records a provider event that has already been applied, keyed
// by the provider's event ID.
type BillingEvent struct {
	ID             string    `json:"id" firestore:"-"`
	Type           string    `json:"type" firestore:"type"`
	UserID         string    `json:"userId,omitempty" firestore:"userId,omitempty"`
	SubscriptionID string    `json:"subscriptionId,omitempty" firestore:"subscriptionId,omitempty"`
	Outcome        string    `json:"outcome" firestore:"outcome"`
	ProcessedAt    time.Time `json:"processedAt" firestore:"processedAt,serverTimestamp"`
}

// SubscriptionChanged is published after a snapshot has been stored.
type SubscriptionChanged struct {
	EventID          string    `json:"eventId"`
	EventType        string    `json:"eventType"`
	UserID           string    `json:"userId"`
	SubscriptionID   string    `json:"subscriptionId"`
	Status           string    `json:"status"`
	PriceID          string    `json:"priceId"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd"`
}
