package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"prepme-backend/internal/models"
)

// Publisher announces subscription changes to other services.
type Publisher interface {
	PublishSubscriptionChanged(ctx context.Context, event models.SubscriptionChanged) error
	Close() error
}

// NoopPublisher drops every event. It is used when AMQP_URL is not set.
type NoopPublisher struct {
	Logger *zap.Logger
}

func (p NoopPublisher) PublishSubscriptionChanged(_ context.Context, event models.SubscriptionChanged) error {
	if p.Logger != nil {
		p.Logger.Debug("Subscription event not published (no broker configured)",
			zap.String("eventID", event.EventID), zap.String("userID", event.UserID))
	}
	return nil
}

func (NoopPublisher) Close() error { return nil }

func encode(event models.SubscriptionChanged) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subscription event %s: %w", event.EventID, err)
	}
	return body, nil
}
