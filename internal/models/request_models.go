package models

// CheckoutRequest is the body of the user-keyed checkout endpoint.
// Presence of every field is checked by the billing service so that all
// entry points share one "Missing required parameters" answer.
type CheckoutRequest struct {
	PriceID    string `json:"priceId"`
	UserID     string `json:"userId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// EmailCheckoutRequest is the body of the email-keyed checkout endpoint.
// SuccessURL and CancelURL are optional; when omitted they are derived from
// the caller's origin.
type EmailCheckoutRequest struct {
	PriceID    string `json:"priceId"`
	UserEmail  string `json:"userEmail"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// PortalSessionRequest is the optional body of the billing portal endpoint.
type PortalSessionRequest struct {
	ReturnURL string `json:"returnUrl,omitempty"`
}

// CreatePrepRequest represents the request body for analyzing a new profile.
type CreatePrepRequest struct {
	LinkedInURL string `json:"linkedinUrl" binding:"required"`
}

// UpdateNotesRequest replaces the notes of a prep. A pointer distinguishes
// "clear the notes" from a missing field.
type UpdateNotesRequest struct {
	Notes *string `json:"notes" binding:"required"`
}

// CreatePromptRequest represents the request body for a new system prompt.
type CreatePromptRequest struct {
	Name     string `json:"name" binding:"required"`
	Content  string `json:"content" binding:"required"`
	IsActive bool   `json:"isActive"`
}

// UpdatePromptRequest represents a partial update of a system prompt.
// Pointers are used to distinguish between empty values and fields not provided.
type UpdatePromptRequest struct {
	Name     *string `json:"name,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}
