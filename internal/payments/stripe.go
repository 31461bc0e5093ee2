package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"go.uber.org/zap"
)

// CorrelationKey is the metadata key carrying the Firebase UID on customers,
// checkout sessions and subscriptions.
const CorrelationKey = "firebaseUID"

// EmailKey is the metadata key carrying the buyer's email on subscriptions
// started through the email-only checkout.
const EmailKey = "userEmail"

// CustomerParams describes a billing customer to create.
type CustomerParams struct {
	UserID string
	Email  string
}

// CheckoutParams describes a hosted subscription checkout. Exactly one of
// CustomerID and CustomerEmail is expected to be set.
type CheckoutParams struct {
	CustomerID    string
	CustomerEmail string
	PriceID       string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Error is returned for every failed provider call. Message is the
// provider's own description and is safe to show to the caller.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Op + ": " + e.Message }

func (e *Error) Unwrap() error { return e.Err }

var errNotConfigured = errors.New("payments provider is not configured")

// StripeProvider talks to the Stripe API through an injected client.
type StripeProvider struct {
	api        *client.API
	configured bool
	logger     *zap.Logger
}

// NewStripeProvider builds a Stripe client for secretKey. apiURL overrides
// the API host and is meant for stripe-mock and tests. Network retries are
// disabled: a failed call is reported, never repeated.
func NewStripeProvider(secretKey, apiURL string, logger *zap.Logger) *StripeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	backendConfig := &stripe.BackendConfig{
		LeveledLogger:     logger.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if apiURL != "" {
		backendConfig.URL = stripe.String(apiURL)
	}
	apiBackend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)
	backends := &stripe.Backends{
		API:     apiBackend,
		Connect: apiBackend,
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, &stripe.BackendConfig{
			LeveledLogger:     logger.Named("stripe").Sugar(),
			MaxNetworkRetries: stripe.Int64(0),
		}),
	}

	return &StripeProvider{
		api:        client.New(secretKey, backends),
		configured: secretKey != "",
		logger:     logger,
	}
}

// CreateCustomer creates a customer tagged with the user's ID. The request
// carries an idempotency key derived from that ID, so concurrent first
// checkouts for one user resolve to the same customer.
func (p *StripeProvider) CreateCustomer(ctx context.Context, req CustomerParams) (string, error) {
	const op = "create customer"
	if !p.configured {
		return "", &Error{Op: op, Message: errNotConfigured.Error(), Err: errNotConfigured}
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{CorrelationKey: req.UserID},
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey("prepme-customer-" + req.UserID)

	cus, err := p.api.Customers.New(params)
	if err != nil {
		return "", providerError(op, err)
	}
	return cus.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for a single price.
// Metadata is copied onto the session and onto the subscription it creates,
// which is where subscription webhooks read it back from.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutParams) (string, error) {
	const op = "create checkout session"
	if !p.configured {
		return "", &Error{Op: op, Message: errNotConfigured.Error(), Err: errNotConfigured}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = req.Metadata
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		}
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", providerError(op, err)
	}
	return s.ID, nil
}

// CreatePortalSession returns the URL of a customer portal session.
func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "create portal session"
	if !p.configured {
		return "", &Error{Op: op, Message: errNotConfigured.Error(), Err: errNotConfigured}
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", providerError(op, err)
	}
	return s.URL, nil
}

func providerError(op string, err error) error {
	msg := err.Error()
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		msg = stripeErr.Msg
	}
	return &Error{Op: op, Message: msg, Err: err}
}
