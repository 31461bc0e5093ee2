package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware configures Cross-Origin Resource Sharing (CORS) for the application.
// Paths under one of publicPrefixes (provider webhooks, public checkout and
// context endpoints) answer every origin with static headers. Every other
// path only allows clientURL, or any origin when clientURL is empty.
//
// It is installed on the engine rather than on route groups because
// preflight requests never match a route.
func CORSMiddleware(clientURL string, publicPrefixes ...string) gin.HandlerFunc {
	public := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization", "Stripe-Signature"},
		MaxAge:          12 * time.Hour,
	})

	appConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if clientURL != "" {
		appConfig.AllowOrigins = []string{strings.TrimRight(clientURL, "/")}
		appConfig.AllowCredentials = true
	} else {
		appConfig.AllowAllOrigins = true
	}
	app := cors.New(appConfig)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				public(c)
				return
			}
		}
		app(c)
	}
}
