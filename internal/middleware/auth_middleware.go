package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Keys under which the authenticated identity is stored in the gin context.
const (
	ContextUserID          = "userID"
	ContextUserEmail       = "userEmail"
	ContextUserDisplayName = "userDisplayName"
	ContextUserPhotoURL    = "userPhotoURL"
)

// ErrorResponse is a local definition for sending standardized error messages.
// It mirrors the one in internal/api/dto_models.go to avoid import cycles.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// TokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AdminChecker reports whether a user may manage system prompts.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
// It panics if the verifier is nil, as this is a critical setup dependency.
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		panic("Firebase Auth client is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// VerifyToken is a Gin middleware handler function that verifies a Firebase ID token
// from the Authorization header. If valid, it sets user information in the Gin context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: true, Message: "Authorization header is required"})
			return
		}
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// OptionalToken authenticates the request only when an Authorization header
// is present. A present but invalid token is still rejected.
func (m *AuthMiddleware) OptionalToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" && !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// authenticate verifies the bearer token and stores its claims. It aborts the
// request and returns false on failure.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: true, Message: "Authorization header format must be 'Bearer {token}'"})
		return false
	}

	token, err := m.verifier.VerifyIDToken(c.Request.Context(), parts[1])
	if err != nil {
		m.logger.Warn("Error verifying Firebase ID token", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: true, Message: "Invalid or expired authentication token"})
		return false
	}

	c.Set(ContextUserID, token.UID)
	if email, ok := token.Claims["email"].(string); ok {
		c.Set(ContextUserEmail, email)
	}
	if name, ok := token.Claims["name"].(string); ok {
		c.Set(ContextUserDisplayName, name)
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		c.Set(ContextUserPhotoURL, picture)
	}
	return true
}

// RequireAdmin must run after VerifyToken. It rejects users whose document
// does not carry isAdmin.
func (m *AuthMiddleware) RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: true, Message: "User not authenticated"})
			return
		}
		ok, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			m.logger.Warn("Admin check failed", zap.String("userID", userID), zap.Error(err))
		}
		if err != nil || !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: true, Message: "Admin access required"})
			return
		}
		c.Next()
	}
}
