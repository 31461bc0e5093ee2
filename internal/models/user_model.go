package models

import "time"

// Subscription statuses referenced by the backend. Every other status from the
// payments provider is stored verbatim.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// User represents a user in the system. The document ID is the Firebase Auth UID.
type User struct {
	ID          string `json:"id" firestore:"-"`
	Email       string `json:"email" firestore:"email"`
	DisplayName string `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	// BillingCustomerID is written once, on the first checkout, and never replaced.
	BillingCustomerID string                `json:"billingCustomerId,omitempty" firestore:"billingCustomerId,omitempty"`
	Subscription      *SubscriptionSnapshot `json:"subscription,omitempty" firestore:"subscription,omitempty"`
	IsAdmin           bool                  `json:"isAdmin,omitempty" firestore:"isAdmin,omitempty"`
	CreatedAt         time.Time             `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt         time.Time             `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// SubscriptionSnapshot is the provider's view of a subscription, embedded in
// the user document and replaced as a whole on every change.
type SubscriptionSnapshot struct {
	ID               string    `json:"id" firestore:"id"`
	Status           string    `json:"status" firestore:"status"`
	PriceID          string    `json:"priceId" firestore:"priceId"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd" firestore:"currentPeriodEnd"`
}

// IsActive reports whether the snapshot grants paid access.
func (s *SubscriptionSnapshot) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// SubscriptionView is what the front-end reads to gate features.
type SubscriptionView struct {
	Subscription *SubscriptionSnapshot `json:"subscription"`
	IsActive     bool                  `json:"isActive"`
	IsPro        bool                  `json:"isPro"`
	IsIndividual bool                  `json:"isIndividual"`
}
