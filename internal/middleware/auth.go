package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/LutfiBK25/qulron/internal/auth"
	"github.com/LutfiBK25/qulron/internal/fingerprint"
	"github.com/gin-gonic/gin"
)

// Context keys populated by Authenticate.
const (
	ContextPhone         = "auth_phone"
	ContextRole          = "auth_role"
	ContextToken         = "auth_token"
	ContextAuthenticated = "authenticated"
)

// Authenticate extracts and validates a bearer token, and on success
// materializes the verified identity in the request context. It never
// rejects a request: public endpoints need no token, and protected routes
// are guarded downstream by RequireRole.
func Authenticate(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		// Revocation is checked before any parsing; a blacklisted token
		// proceeds unauthenticated
		if tokens.IsBlacklisted(tokenString) {
			log.Printf("Blacklisted token attempted to access: %s", c.Request.URL.Path)
			c.Next()
			return
		}

		phone, err := tokens.Subject(tokenString)
		if err != nil {
			log.Printf("Unparseable token for request: %s: %v", c.Request.URL.Path, err)
			c.Next()
			return
		}

		currentDevice := fingerprint.Derive(c.Request.Header)
		currentLocation := fingerprint.Location(c.Request)

		result := tokens.Validate(tokenString, phone, currentDevice, currentLocation)
		if !result.Valid() {
			log.Printf("Invalid token (%s) for user: %s accessing: %s", result, phone, c.Request.URL.Path)
			c.Next()
			return
		}

		claims, err := tokens.ParseClaims(tokenString)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextPhone, phone)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, tokenString)
		c.Set(ContextAuthenticated, true)

		c.Next()
	}
}

// RequireRole guards a route group: the request must carry a valid session
// with the given role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextAuthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if c.GetString(ContextRole) != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
