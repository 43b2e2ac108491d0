package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LutfiBK25/qulron/internal/auth"
	"github.com/gin-gonic/gin"
)

func newAuthTestService() *auth.TokenService {
	revoked := auth.NewRevocationStore(100, 24*time.Hour, time.Hour)
	return auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), 6*time.Hour, 7*24*time.Hour, revoked)
}

// Router with the gate plus an open route that reports the resolved
// identity, and a guarded route behind RequireRole.
func newAuthRouter(tokens *auth.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Authenticate(tokens))

	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": c.GetBool(ContextAuthenticated),
			"phone":         c.GetString(ContextPhone),
			"role":          c.GetString(ContextRole),
		})
	})

	admin := router.Group("/admin", RequireRole(auth.RoleAdmin))
	admin.GET("/status", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router
}

func TestAuthenticate_ValidTokenPopulatesIdentity(t *testing.T) {
	tokens := newAuthTestService()
	router := newAuthRouter(tokens)

	// Issued without device binding so the test request's headers do not
	// have to reproduce the login fingerprint
	token, err := tokens.Issue("555-123-4567", auth.RoleDriver, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{`"authenticated":true`, `"phone":"555-123-4567"`, `"role":"DRIVER"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %s, got %s", want, body)
		}
	}
}

func TestAuthenticate_NoTokenPassesThroughUnauthenticated(t *testing.T) {
	router := newAuthRouter(newAuthTestService())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("the gate must not reject token-less requests, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"authenticated":false`) {
		t.Fatalf("expected unauthenticated, got %s", w.Body.String())
	}
}

func TestAuthenticate_GarbageTokenPassesThroughUnauthenticated(t *testing.T) {
	router := newAuthRouter(newAuthTestService())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("the gate must not reject malformed tokens, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"authenticated":false`) {
		t.Fatalf("expected unauthenticated, got %s", w.Body.String())
	}
}

func TestAuthenticate_RevokedTokenIsUnauthenticated(t *testing.T) {
	tokens := newAuthTestService()
	router := newAuthRouter(tokens)

	token, err := tokens.Issue("555-123-4567", auth.RoleDriver, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	tokens.Blacklist(token)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, r)

	if !strings.Contains(w.Body.String(), `"authenticated":false`) {
		t.Fatalf("expected a revoked token to leave the request unauthenticated, got %s", w.Body.String())
	}
}

func TestRequireRole_Gates(t *testing.T) {
	tokens := newAuthTestService()
	router := newAuthRouter(tokens)

	// No token: 401
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	router.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", w.Code)
	}

	// Wrong role: 403
	driverToken, err := tokens.Issue("555-123-4567", auth.RoleDriver, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	r.Header.Set("Authorization", "Bearer "+driverToken)
	router.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a driver token, got %d", w.Code)
	}

	// Right role: 200
	adminToken, err := tokens.Issue("admin", auth.RoleAdmin, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	r.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an admin token, got %d", w.Code)
	}
}

