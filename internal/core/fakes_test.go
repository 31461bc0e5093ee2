package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v75/webhook"

	"prepme-backend/internal/models"
	"prepme-backend/internal/payments"
)

const testWebhookSecret = "whsec_core_test"

type fakePayments struct {
	mu        sync.Mutex
	customers []payments.CustomerParams
	checkouts []payments.CheckoutParams
	portals   []string

	customerErr error
	checkoutErr error
	portalErr   error
	// beforeCustomer runs inside CreateCustomer, e.g. to simulate a racing checkout.
	beforeCustomer func()
}

func (f *fakePayments) CreateCustomer(_ context.Context, req payments.CustomerParams) (string, error) {
	if f.beforeCustomer != nil {
		f.beforeCustomer()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.customers = append(f.customers, req)
	return fmt.Sprintf("cus_new_%d", len(f.customers)), nil
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req payments.CheckoutParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	f.checkouts = append(f.checkouts, req)
	return fmt.Sprintf("cs_test_%d", len(f.checkouts)), nil
}

func (f *fakePayments) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.portalErr != nil {
		return "", f.portalErr
	}
	f.portals = append(f.portals, customerID+"|"+returnURL)
	return "https://billing.example/" + customerID, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.SubscriptionChanged
	err       error
}

func (f *fakePublisher) PublishSubscriptionChanged(_ context.Context, event models.SubscriptionChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

type fakeAnalyzer struct {
	calls   int
	profile *models.ProfileData
	err     error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, linkedinURL, userID string) (*models.ProfileData, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	deletes []string
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]string)} }

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes = append(c.deletes, key)
	return nil
}

func signPayload(payload []byte, secret string) string {
	now := time.Now()
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(webhook.ComputeSignature(now, payload, secret)))
}

// subscriptionEvent builds a provider event for sub_1 / price_pro ending 2024-06-01.
func subscriptionEvent(eventID, eventType, customer, metadata string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": %q,
  "data": {"object": {
    "id": "sub_1",
    "object": "subscription",
    "status": "active",
    "customer": %q,
    "current_period_end": 1717200000,
    "metadata": %s,
    "items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_pro"}}]}
  }}
}`, eventID, eventType, customer, metadata))
}

func sampleProfile() *models.ProfileData {
	return &models.ProfileData{
		PersonalInfo: &models.PersonalInfo{Name: "Jane Doe", Title: "CTO", Location: "Berlin"},
		Sections: models.ProfileSection{
			CareerHistory:      []models.CareerEntry{{Title: "CTO at Acme", Period: "2020-now", Description: "Leads engineering"}},
			CommunicationStyle: models.CommunicationStyle{PreferredStyle: "Direct", BestApproach: "Data first", Avoid: "Small talk", KeyTraits: "Analytical"},
			CompanyInfo:        models.CompanyInfo{Name: "Acme", Industry: "Software", Size: "200", KeyFocusAreas: "AI", DigitalInitiatives: "Cloud"},
			PersonalInterests:  []string{"sailing", "chess"},
			RecentNews:         []models.NewsItem{{Title: "Series B", Date: "2024-03", Description: "Raised 40M"}},
			ConversationStarters: []models.ConversationTopic{
				{Title: "Sailing", Description: "Ask about the last regatta"},
			},
		},
	}
}
