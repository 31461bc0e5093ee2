package api

import "time"

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // binding errors only
}

// CheckoutSessionResponse returns the ID of the created checkout session.
type CheckoutSessionResponse struct {
	ID string `json:"id"`
}

// PortalSessionResponse returns the URL of the billing portal session.
type PortalSessionResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a provider delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// ContextResponse is the meeting context returned to the assistant.
type ContextResponse struct {
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}
