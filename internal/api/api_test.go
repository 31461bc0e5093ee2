package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"

	"prepme-backend/internal/analysis"
	"prepme-backend/internal/cache"
	"prepme-backend/internal/core"
	"prepme-backend/internal/db/dbtest"
	"prepme-backend/internal/events"
	"prepme-backend/internal/middleware"
	"prepme-backend/internal/models"
	"prepme-backend/internal/payments"
)

const (
	testWebhookSecret = "whsec_api_test"
	clientURL         = "https://app.example"
)

func init() { gin.SetMode(gin.TestMode) }

// tokens maps bearer tokens to users.
type tokens map[string]*auth.Token

func (t tokens) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := t[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

// stripeStub records every call made against the payments API.
type stripeStub struct {
	mu    sync.Mutex
	paths []string
	forms []url.Values
}

func (s *stripeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	s.forms = append(s.forms, r.PostForm)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/customers":
		_, _ = w.Write([]byte(`{"id":"cus_api_1","object":"customer"}`))
	case "/v1/checkout/sessions":
		if r.PostForm.Get("line_items[0][price]") == "price_missing" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price: 'price_missing'"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"cs_test_api","object":"checkout.session"}`))
	case "/v1/billing_portal/sessions":
		_, _ = w.Write([]byte(`{"id":"bps_1","object":"billing_portal.session","url":"https://billing.example/portal"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"unknown path"}}`))
	}
}

func (s *stripeStub) calls() ([]string, []url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...), append([]url.Values(nil), s.forms...)
}

type testEnv struct {
	router  *gin.Engine
	users   *dbtest.Users
	preps   *dbtest.Preps
	prompts *dbtest.Prompts
	audit   *dbtest.Audit
	ledger  *dbtest.BillingEvents
	stripe  *stripeStub
}

type envOption func(*RouteOptions)

func newTestEnv(t *testing.T, users []models.User, opts ...envOption) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	stub := &stripeStub{}
	stripeSrv := httptest.NewServer(stub)
	t.Cleanup(stripeSrv.Close)

	analysisSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "personalInfo": {"name": "Jane Doe", "title": "CTO", "location": "Berlin"},
  "sections": {
    "companyInfo": {"name": "Acme", "industry": "Software", "size": "200"},
    "communicationStyle": {"preferredStyle": "Direct"},
    "careerHistory": [{"title": "CTO at Acme", "period": "2020-now", "description": "Leads engineering"}],
    "personalInterests": ["sailing"]
  }
}`))
	}))
	t.Cleanup(analysisSrv.Close)

	env := &testEnv{
		users:   dbtest.NewUsers(users...),
		preps:   dbtest.NewPreps(),
		prompts: dbtest.NewPrompts(),
		audit:   &dbtest.Audit{},
		ledger:  dbtest.NewBillingEvents(),
		stripe:  stub,
	}

	plans := core.Plans{IndividualPriceID: "price_individual", ProPriceID: "price_pro", FreePrepsPerMonth: 1}
	auditService := core.NewAuditService(env.audit)
	contexts := core.NewContextService(env.preps, env.prompts, cache.NoopCache{}, time.Minute, logger)
	services := Services{
		Users: core.NewUserService(env.users, plans, logger),
		Billing: core.NewBillingService(core.BillingDeps{
			Users:     env.users,
			Events:    env.ledger,
			Payments:  payments.NewStripeProvider("sk_test_api", stripeSrv.URL, logger),
			Verifier:  payments.NewWebhookVerifier(testWebhookSecret),
			Publisher: events.NoopPublisher{Logger: logger},
			Audit:     auditService,
			ClientURL: clientURL,
		}, logger),
		Preps: core.NewPrepService(env.preps, env.users,
			analysis.NewClient(analysis.Config{WebhookURL: analysisSrv.URL, Timeout: 5 * time.Second, Source: clientURL}, logger),
			contexts, auditService, plans, logger),
		Contexts: contexts,
		Prompts:  core.NewPromptService(env.prompts, auditService, logger),
	}

	routeOpts := RouteOptions{WebhookMaxBodyBytes: 64 * 1024}
	for _, opt := range opts {
		opt(&routeOpts)
	}

	authMW := middleware.NewAuthMiddleware(tokens{
		"tok-u1":    {UID: "u1", Claims: map[string]interface{}{"email": "u1@example.com"}},
		"tok-u2":    {UID: "u2", Claims: map[string]interface{}{"email": "u2@example.com"}},
		"tok-admin": {UID: "admin"},
	}, logger)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORSMiddleware(clientURL, PublicPathPrefixes...))
	SetupRoutes(router, authMW, services, routeOpts, logger)
	env.router = router
	return env
}

// do sends a request. body may be nil, a []byte sent verbatim, or a value
// encoded as JSON.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into), w.Body.String())
}

func signPayload(payload []byte, secret string) string {
	now := time.Now()
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(webhook.ComputeSignature(now, payload, secret)))
}

// subscriptionEvent builds a provider event for sub_1 / price_pro ending 2024-06-01.
func subscriptionEvent(eventID, eventType, metadata string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": %q,
  "data": {"object": {
    "id": "sub_1",
    "object": "subscription",
    "status": "active",
    "customer": "cus_existing",
    "current_period_end": 1717200000,
    "metadata": %s,
    "items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_pro"}}]}
  }}
}`, eventID, eventType, metadata))
}
