package payments

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75/webhook"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func subscriptionPayload(eventID, eventType, metadata string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "api_version": "2023-10-16",
  "type": %q,
  "data": {
    "object": {
      "id": "sub_1",
      "object": "subscription",
      "status": "active",
      "customer": "cus_123",
      "current_period_end": 1717200000,
      "metadata": %s,
      "items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_pro"}}]}
    }
  }
}`, eventID, eventType, metadata))
}

func TestVerifyDecodesSubscriptionEvent(t *testing.T) {
	payload := subscriptionPayload("evt_1", EventSubscriptionUpdated, `{"firebaseUID": "u1"}`)
	v := NewWebhookVerifier(testSecret)

	evt, err := v.Verify(payload, sign(payload, testSecret))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, EventSubscriptionUpdated, evt.Type)
	require.NotNil(t, evt.Subscription)
	assert.Equal(t, "sub_1", evt.Subscription.ID)
	assert.Equal(t, "active", evt.Subscription.Status)
	assert.Equal(t, "price_pro", evt.Subscription.PriceID)
	assert.Equal(t, "cus_123", evt.Subscription.CustomerID)
	assert.Equal(t, "u1", evt.Subscription.Metadata[CorrelationKey])
	assert.True(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Equal(evt.Subscription.CurrentPeriodEnd))
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	payload := subscriptionPayload("evt_1", EventSubscriptionUpdated, `{}`)
	v := NewWebhookVerifier(testSecret)

	cases := map[string]struct {
		payload   []byte
		signature string
	}{
		"wrong secret":  {payload, sign(payload, "whsec_other")},
		"tampered body": {append([]byte{}, subscriptionPayload("evt_2", EventSubscriptionUpdated, `{}`)...), sign(payload, testSecret)},
		"missing":       {payload, ""},
		"garbage":       {payload, "not-a-signature"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tc.payload, tc.signature)
			assert.ErrorIs(t, err, ErrSignature)
		})
	}
}

func TestVerifyWithoutSecretFailsClosed(t *testing.T) {
	payload := subscriptionPayload("evt_1", EventSubscriptionUpdated, `{}`)
	_, err := NewWebhookVerifier("").Verify(payload, sign(payload, ""))
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerifyLeavesOtherEventsUndecoded(t *testing.T) {
	payload := []byte(`{"id":"evt_9","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
	evt, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret))
	require.NoError(t, err)

	assert.Equal(t, "invoice.paid", evt.Type)
	assert.Nil(t, evt.Subscription)
}

func TestVerifyRejectsSubscriptionWithoutItems(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","status":"active"}}}`)
	_, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
