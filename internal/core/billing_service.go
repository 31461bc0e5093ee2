package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepme-backend/internal/db"
	"prepme-backend/internal/metrics"
	"prepme-backend/internal/models"
	"prepme-backend/internal/payments"
)

// Client-facing messages of the billing endpoints.
const (
	msgMissingParameters = "Missing required parameters"
	msgInvalidSignature  = "Webhook signature verification failed"
	msgMalformedEvent    = "Malformed webhook event"
)

// Reasons an authentic subscription event is acknowledged without a write.
const (
	reasonMissingCorrelation = "missing_correlation"
	reasonUserNotFound       = "user_not_found"
)

// BillingDeps groups the collaborators of the billing service.
type BillingDeps struct {
	Users     db.UserRepository
	Events    db.BillingEventRepository
	Payments  PaymentsProvider
	Verifier  EventVerifier
	Publisher EventPublisher
	Audit     AuditService
	// ClientURL is the fallback origin for derived redirect URLs.
	ClientURL string
}

// billingService implements the BillingService interface.
type billingService struct {
	BillingDeps
	logger *zap.Logger
	now    func() time.Time
}

// NewBillingService creates a new BillingService instance.
func NewBillingService(deps BillingDeps, logger *zap.Logger) BillingService {
	return &billingService{
		BillingDeps: deps,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateCheckoutSession resolves (or mints) the user's billing customer and
// opens a subscription checkout for a single price.
func (s *billingService) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (string, error) {
	if blank(req.PriceID, req.UserID, req.SuccessURL, req.CancelURL) {
		return "", invalid(msgMissingParameters)
	}

	customerID, err := s.resolveCustomer(ctx, req.UserID)
	if err != nil {
		metrics.IncCheckoutSession("user", "failed")
		return "", err
	}

	sessionID, err := s.Payments.CreateCheckoutSession(ctx, payments.CheckoutParams{
		CustomerID: customerID,
		PriceID:    req.PriceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   map[string]string{payments.CorrelationKey: req.UserID},
	})
	if err != nil {
		metrics.IncCheckoutSession("user", "failed")
		s.logger.Error("Failed to create checkout session",
			zap.String("userID", req.UserID), zap.String("priceID", req.PriceID), zap.Error(err))
		return "", providerFailure(err)
	}

	metrics.IncCheckoutSession("user", "created")
	recordAudit(ctx, s.Audit, s.logger, models.AuditLog{
		UserID:     req.UserID,
		Action:     models.AuditCheckoutSessionCreate,
		TargetType: "CHECKOUT_SESSION",
		TargetID:   sessionID,
		Details:    map[string]interface{}{"priceId": req.PriceID, "customerId": customerID},
	})
	return sessionID, nil
}

// resolveCustomer returns the user's billing customer, creating one when the
// user has none. The stored ID is written at most once: when two checkouts
// race, the transaction keeps the first ID and the loser's customer is
// reported as orphaned.
func (s *billingService) resolveCustomer(ctx context.Context, userID string) (string, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", invalid("User not found")
		}
		s.logger.Error("Failed to load user for checkout", zap.String("userID", userID), zap.Error(err))
		return "", &UpstreamError{Message: "Failed to load user", Err: err}
	}
	if user.BillingCustomerID != "" {
		return user.BillingCustomerID, nil
	}

	created, err := s.Payments.CreateCustomer(ctx, payments.CustomerParams{UserID: userID, Email: user.Email})
	if err != nil {
		s.logger.Error("Failed to create billing customer", zap.String("userID", userID), zap.Error(err))
		return "", providerFailure(err)
	}

	linked, err := s.Users.LinkBillingCustomer(ctx, userID, created)
	if err != nil {
		s.logger.Error("Failed to store billing customer",
			zap.String("userID", userID), zap.String("customerID", created), zap.Error(err))
		return "", &UpstreamError{Message: "Failed to store billing customer", Err: err}
	}
	if linked != created {
		s.logger.Warn("Billing customer already linked; new customer left orphaned",
			zap.String("userID", userID), zap.String("linked", linked), zap.String("orphaned", created))
		return linked, nil
	}

	recordAudit(ctx, s.Audit, s.logger, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditBillingCustomerCreate,
		TargetType: "BILLING_CUSTOMER",
		TargetID:   created,
	})
	return linked, nil
}

// CreateEmailCheckoutSession opens a checkout keyed only by email. Redirect
// URLs default to the caller's origin.
func (s *billingService) CreateEmailCheckoutSession(ctx context.Context, req models.EmailCheckoutRequest, origin string) (string, error) {
	if blank(req.PriceID, req.UserEmail) {
		return "", invalid(msgMissingParameters)
	}

	successURL, cancelURL := req.SuccessURL, req.CancelURL
	if successURL == "" || cancelURL == "" {
		base := s.originOrDefault(origin)
		if base == "" {
			return "", invalid("Missing redirect URLs and request origin")
		}
		if successURL == "" {
			successURL = base + "/profile?session_id={CHECKOUT_SESSION_ID}"
		}
		if cancelURL == "" {
			cancelURL = base + "/pricing"
		}
	}

	metadata := map[string]string{payments.EmailKey: req.UserEmail}
	if user, err := s.Users.FindByEmail(ctx, req.UserEmail); err == nil {
		metadata[payments.CorrelationKey] = user.ID
	} else if !errors.Is(err, db.ErrNotFound) {
		s.logger.Warn("Email lookup failed; checkout relies on email correlation",
			zap.String("email", req.UserEmail), zap.Error(err))
	}

	sessionID, err := s.Payments.CreateCheckoutSession(ctx, payments.CheckoutParams{
		CustomerEmail: req.UserEmail,
		PriceID:       req.PriceID,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata:      metadata,
	})
	if err != nil {
		metrics.IncCheckoutSession("email", "failed")
		s.logger.Error("Failed to create email checkout session",
			zap.String("email", req.UserEmail), zap.String("priceID", req.PriceID), zap.Error(err))
		return "", providerFailure(err)
	}

	metrics.IncCheckoutSession("email", "created")
	recordAudit(ctx, s.Audit, s.logger, models.AuditLog{
		UserID:     metadata[payments.CorrelationKey],
		Action:     models.AuditCheckoutSessionCreate,
		TargetType: "CHECKOUT_SESSION",
		TargetID:   sessionID,
		Details:    map[string]interface{}{"priceId": req.PriceID, "email": req.UserEmail},
	})
	return sessionID, nil
}

// CreatePortalSession returns a customer-portal URL for a user who already
// went through checkout.
func (s *billingService) CreatePortalSession(ctx context.Context, userID, returnURL, origin string) (string, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return "", &UpstreamError{Message: "Failed to load user", Err: err}
	}
	if user.BillingCustomerID == "" {
		return "", fmt.Errorf("%w: user %s", ErrNoBillingCustomer, userID)
	}

	if returnURL == "" {
		base := s.originOrDefault(origin)
		if base == "" {
			return "", invalid("Missing return URL and request origin")
		}
		returnURL = base + "/profile"
	}

	url, err := s.Payments.CreatePortalSession(ctx, user.BillingCustomerID, returnURL)
	if err != nil {
		s.logger.Error("Failed to create portal session", zap.String("userID", userID), zap.Error(err))
		return "", providerFailure(err)
	}
	return url, nil
}

// HandleStripeWebhook authenticates a delivery and, for subscription events,
// overwrites the correlated user's snapshot. Events already in the ledger are
// acknowledged without side effects. Authentic events that match no user are
// acknowledged too; the skip is logged, counted and audited.
func (s *billingService) HandleStripeWebhook(ctx context.Context, signature string, payload []byte) error {
	evt, err := s.Verifier.Verify(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrSignature) {
			metrics.IncWebhookEvent("", metrics.OutcomeRejected)
			s.logger.Warn("Rejected webhook with invalid signature", zap.Error(err))
			return fmt.Errorf("%w: %s", ErrAuthenticity, msgInvalidSignature)
		}
		metrics.IncWebhookEvent("", metrics.OutcomeFailed)
		s.logger.Error("Failed to decode authentic webhook event", zap.Error(err))
		return invalid(msgMalformedEvent)
	}

	log := s.logger.With(zap.String("eventID", evt.ID), zap.String("eventType", evt.Type))
	if evt.Subscription == nil {
		metrics.IncWebhookEvent(evt.Type, metrics.OutcomeIgnored)
		log.Debug("Ignoring unhandled webhook event type")
		return nil
	}

	seen, err := s.Events.Exists(ctx, evt.ID)
	if err != nil {
		metrics.IncWebhookEvent(evt.Type, metrics.OutcomeFailed)
		log.Error("Failed to read billing event ledger", zap.Error(err))
		return &UpstreamError{Message: "Failed to read billing event ledger", Err: err}
	}
	if seen {
		metrics.IncWebhookEvent(evt.Type, metrics.OutcomeDuplicate)
		log.Info("Webhook event already processed")
		return nil
	}

	sub := evt.Subscription
	userID, err := s.correlate(ctx, sub)
	if err != nil {
		metrics.IncWebhookEvent(evt.Type, metrics.OutcomeFailed)
		log.Error("Failed to correlate subscription to a user", zap.String("subscriptionID", sub.ID), zap.Error(err))
		return &UpstreamError{Message: "Failed to correlate subscription", Err: err}
	}
	if userID == "" {
		s.skip(ctx, evt, "", reasonMissingCorrelation)
		return nil
	}

	snapshot := models.SubscriptionSnapshot{
		ID:               sub.ID,
		Status:           sub.Status,
		PriceID:          sub.PriceID,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
	if evt.Type == payments.EventSubscriptionDeleted {
		snapshot.Status = models.SubscriptionStatusCanceled
	}

	if err := s.Users.SetSubscription(ctx, userID, snapshot); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.skip(ctx, evt, userID, reasonUserNotFound)
			return nil
		}
		metrics.IncWebhookEvent(evt.Type, metrics.OutcomeFailed)
		log.Error("Failed to store subscription snapshot", zap.String("userID", userID), zap.Error(err))
		return &UpstreamError{Message: "Failed to update subscription", Err: err}
	}

	// The snapshot is already correct; a ledger failure only means a
	// redelivery would write the same state again.
	if err := s.Events.Record(ctx, models.BillingEvent{
		ID:             evt.ID,
		Type:           evt.Type,
		UserID:         userID,
		SubscriptionID: sub.ID,
		Outcome:        metrics.OutcomeApplied,
		ProcessedAt:    s.now().UTC(),
	}); err != nil {
		log.Warn("Failed to record billing event in ledger", zap.Error(err))
	}

	metrics.IncWebhookEvent(evt.Type, metrics.OutcomeApplied)
	log.Info("Subscription snapshot stored",
		zap.String("userID", userID),
		zap.String("subscriptionID", snapshot.ID),
		zap.String("status", snapshot.Status),
		zap.String("priceID", snapshot.PriceID),
	)

	recordAudit(ctx, s.Audit, s.logger, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditSubscriptionSync,
		TargetType: "SUBSCRIPTION",
		TargetID:   snapshot.ID,
		Details: map[string]interface{}{
			"eventId": evt.ID,
			"status":  snapshot.Status,
			"priceId": snapshot.PriceID,
		},
	})
	s.publish(ctx, models.SubscriptionChanged{
		EventID:          evt.ID,
		EventType:        evt.Type,
		UserID:           userID,
		SubscriptionID:   snapshot.ID,
		Status:           snapshot.Status,
		PriceID:          snapshot.PriceID,
		CurrentPeriodEnd: snapshot.CurrentPeriodEnd,
	})
	return nil
}

// correlate finds the user a subscription belongs to: the firebaseUID
// metadata first, then the user holding the subscription's customer, then the
// userEmail metadata of email checkouts. An empty ID means no match.
func (s *billingService) correlate(ctx context.Context, sub *payments.Subscription) (string, error) {
	if uid := strings.TrimSpace(sub.Metadata[payments.CorrelationKey]); uid != "" {
		return uid, nil
	}

	if sub.CustomerID != "" {
		user, err := s.Users.FindByBillingCustomerID(ctx, sub.CustomerID)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return "", err
		}
	}

	if email := strings.TrimSpace(sub.Metadata[payments.EmailKey]); email != "" {
		user, err := s.Users.FindByEmail(ctx, email)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return "", err
		}
	}
	return "", nil
}

func (s *billingService) skip(ctx context.Context, evt *payments.Event, userID, reason string) {
	metrics.IncWebhookEvent(evt.Type, metrics.OutcomeSkipped)
	metrics.IncWebhookAnomaly(reason)
	s.logger.Warn("Subscription event acknowledged without a write",
		zap.String("eventID", evt.ID),
		zap.String("eventType", evt.Type),
		zap.String("subscriptionID", evt.Subscription.ID),
		zap.String("customerID", evt.Subscription.CustomerID),
		zap.String("userID", userID),
		zap.String("reason", reason),
	)

	if err := s.Events.Record(ctx, models.BillingEvent{
		ID:             evt.ID,
		Type:           evt.Type,
		UserID:         userID,
		SubscriptionID: evt.Subscription.ID,
		Outcome:        metrics.OutcomeSkipped,
		ProcessedAt:    s.now().UTC(),
	}); err != nil {
		s.logger.Warn("Failed to record skipped billing event", zap.String("eventID", evt.ID), zap.Error(err))
	}

	recordAudit(ctx, s.Audit, s.logger, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditSubscriptionSkipped,
		TargetType: "SUBSCRIPTION",
		TargetID:   evt.Subscription.ID,
		Details: map[string]interface{}{
			"eventId":    evt.ID,
			"eventType":  evt.Type,
			"customerId": evt.Subscription.CustomerID,
			"reason":     reason,
		},
	})
}

func (s *billingService) publish(ctx context.Context, event models.SubscriptionChanged) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishSubscriptionChanged(ctx, event); err != nil {
		metrics.IncPublishFailure()
		s.logger.Warn("Failed to publish subscription change",
			zap.String("eventID", event.EventID), zap.String("userID", event.UserID), zap.Error(err))
	}
}

func (s *billingService) originOrDefault(origin string) string {
	if o := strings.TrimRight(strings.TrimSpace(origin), "/"); o != "" {
		return o
	}
	return strings.TrimRight(s.ClientURL, "/")
}

// providerFailure keeps the provider's own message for the client.
func providerFailure(err error) error {
	var perr *payments.Error
	if errors.As(err, &perr) {
		return &UpstreamError{Message: perr.Message, Err: err}
	}
	return &UpstreamError{Message: err.Error(), Err: err}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
