package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Subscription event types handled by the synchronizer.
const (
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

var (
	// ErrSignature means the payload was not signed with the shared secret.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrMalformedEvent means an authentic event could not be decoded.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// Event is an authenticated provider event. Subscription is set only for
// subscription events.
type Event struct {
	ID           string
	Type         string
	Subscription *Subscription
}

// Subscription is the part of a provider subscription the backend stores.
type Subscription struct {
	ID               string
	Status           string
	PriceID          string
	CustomerID       string
	CurrentPeriodEnd time.Time
	Metadata         map[string]string
}

// WebhookVerifier authenticates webhook payloads against the endpoint's
// signing secret.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the signature header over the raw payload and decodes the
// event. API version mismatches between the account and this SDK are
// tolerated since only a few stable fields are read.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (*Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrSignature)
	}
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrSignature)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventSubscriptionUpdated && out.Type != EventSubscriptionDeleted {
		return out, nil
	}
	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, evt.ID)
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if sub.ID == "" || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil, fmt.Errorf("%w: subscription missing id/items/price", ErrMalformedEvent)
	}

	s := &Subscription{
		ID:               sub.ID,
		Status:           string(sub.Status),
		PriceID:          sub.Items.Data[0].Price.ID,
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		Metadata:         sub.Metadata,
	}
	if sub.Customer != nil {
		s.CustomerID = sub.Customer.ID
	}
	out.Subscription = s
	return out, nil
}
