package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token expired")
}

type fakeAdmins map[string]bool

func (f fakeAdmins) IsAdmin(_ context.Context, userID string) (bool, error) {
	return f[userID], nil
}

var verifier = fakeVerifier{
	"good":  {UID: "u1", Claims: map[string]interface{}{"email": "u1@example.com", "name": "User One"}},
	"admin": {UID: "root"},
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"uid": c.GetString(ContextUserID), "email": c.GetString(ContextUserEmail)})
}

func TestVerifyToken(t *testing.T) {
	m := NewAuthMiddleware(verifier, zap.NewNop())
	r := gin.New()
	r.GET("/me", m.VerifyToken(), whoAmI)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"uid":"u1","email":"u1@example.com"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error":true`)
			}
		})
	}
}

func TestOptionalToken(t *testing.T) {
	m := NewAuthMiddleware(verifier, zap.NewNop())
	r := gin.New()
	r.GET("/public", m.OptionalToken(), whoAmI)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"","email":""}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestRequireAdmin(t *testing.T) {
	m := NewAuthMiddleware(verifier, zap.NewNop())
	r := gin.New()
	r.GET("/admin", m.VerifyToken(), m.RequireAdmin(fakeAdmins{"root": true}), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestCORSMiddlewareSplitsPublicAndAppRoutes(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("https://app.example", "/hooks"))
	r.POST("/hooks/stripe", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := httptest.NewRequest(http.MethodOptions, "/hooks/stripe", nil)
	preflight.Header.Set("Origin", "https://anywhere.example")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	w := serve(r, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://app.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = serve(r, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":true`)
}

func TestRateLimiterPerClient(t *testing.T) {
	limiter := NewRateLimiter(0.0001, 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"), "other clients keep their own bucket")
}

func TestRateLimiterSweep(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.limiter("10.0.0.1")

	limiter.sweep(time.Now())
	assert.Len(t, limiter.visitors, 1)
	limiter.sweep(time.Now().Add(4 * time.Minute))
	assert.Empty(t, limiter.visitors)
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/hook", MaxBodyBytes(8), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("this body is too long")))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
