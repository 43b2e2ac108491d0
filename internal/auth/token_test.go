package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestTokenService(ttl time.Duration) *TokenService {
	revoked := NewRevocationStore(100, 24*time.Hour, time.Hour)
	return NewTokenService(testSecret, ttl, 7*24*time.Hour, revoked)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	token, err := s.Issue("555-123-4567", RoleDriver, "device-hash", "IP:10.0.0.1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	result := s.Validate(token, "555-123-4567", "device-hash", "IP:10.0.0.1")
	if !result.Valid() {
		t.Fatalf("expected valid, got %v", result)
	}
}

func TestTokenService_SubjectMismatch(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	token, err := s.Issue("555-123-4567", RoleDriver, "device-hash", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	result := s.Validate(token, "555-999-0000", "device-hash", "")
	if result != ResultSubjectMismatch {
		t.Fatalf("expected subject mismatch, got %v", result)
	}
}

func TestTokenService_DeviceMismatch(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	token, err := s.Issue("555-123-4567", RoleDriver, "device-a", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if result := s.Validate(token, "555-123-4567", "device-b", ""); result != ResultDeviceMismatch {
		t.Fatalf("expected device mismatch, got %v", result)
	}

	// A client that sends no fingerprint is not locked out
	if result := s.Validate(token, "555-123-4567", "", ""); !result.Valid() {
		t.Fatalf("expected absent fingerprint to be tolerated, got %v", result)
	}
}

func TestTokenService_RevocationBeatsEverything(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	token, err := s.Issue("555-123-4567", RoleDriver, "device-hash", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	s.Blacklist(token)

	// Even a perfectly matching presentation is rejected
	if result := s.Validate(token, "555-123-4567", "device-hash", ""); result != ResultRevoked {
		t.Fatalf("expected revoked, got %v", result)
	}
	if !s.IsBlacklisted(token) {
		t.Fatalf("expected token to report as blacklisted")
	}
}

func TestTokenService_MalformedToken(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	if result := s.Validate("not-a-jwt", "555-123-4567", "", ""); result != ResultMalformed {
		t.Fatalf("expected malformed, got %v", result)
	}

	// Signed with a different secret
	other := NewTokenService([]byte("another-secret-another-secret!!!"), 6*time.Hour, time.Hour, NewRevocationStore(10, time.Hour, time.Hour))
	forged, err := other.Issue("555-123-4567", RoleDriver, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if result := s.Validate(forged, "555-123-4567", "", ""); result != ResultMalformed {
		t.Fatalf("expected malformed for wrong signature, got %v", result)
	}
}

func TestTokenService_ExpiredToken(t *testing.T) {
	s := newTestTokenService(-time.Minute)

	token, err := s.Issue("555-123-4567", RoleDriver, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if result := s.Validate(token, "555-123-4567", "", ""); result != ResultExpired {
		t.Fatalf("expected expired, got %v", result)
	}
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	issuedAt := time.Now()
	token, err := s.Issue("555-123-4567", RoleDriver, "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Just inside the TTL
	s.now = func() time.Time { return issuedAt.Add(6*time.Hour - time.Minute) }
	if result := s.Validate(token, "555-123-4567", "", ""); !result.Valid() {
		t.Fatalf("expected valid just inside the TTL, got %v", result)
	}

	// At and past the TTL
	s.now = func() time.Time { return issuedAt.Add(6*time.Hour + time.Minute) }
	if result := s.Validate(token, "555-123-4567", "", ""); result != ResultExpired {
		t.Fatalf("expected expired past the TTL, got %v", result)
	}
}

func TestTokenService_StaleLoginTime(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	// A token whose expiry claim was stretched far past one TTL of the
	// issuance timestamp still gets rejected off loginTime
	now := time.Now()
	claims := SessionClaims{
		Role:      RoleDriver,
		LoginTime: now.Add(-7 * time.Hour).UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "555-123-4567",
			IssuedAt:  jwt.NewNumericDate(now.Add(-7 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}

	stretched, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	if result := s.Validate(stretched, "555-123-4567", "", ""); result != ResultStale {
		t.Fatalf("expected stale, got %v", result)
	}
}

func TestTokenService_ParseClaimsRoundTrip(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	token, err := s.Issue("555-123-4567", RoleDriver, "device-hash", "IP:10.0.0.1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := s.ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims failed: %v", err)
	}

	if claims.Subject != "555-123-4567" {
		t.Fatalf("expected subject to round-trip, got %q", claims.Subject)
	}
	if claims.Role != RoleDriver {
		t.Fatalf("expected role to round-trip, got %q", claims.Role)
	}
	if claims.Device != "device-hash" {
		t.Fatalf("expected device to round-trip, got %q", claims.Device)
	}
	if claims.LoginTime == 0 {
		t.Fatalf("expected loginTime to be set")
	}

	subject, err := s.Subject(token)
	if err != nil || subject != "555-123-4567" {
		t.Fatalf("Subject = %q, %v", subject, err)
	}
}

func TestTokenService_RefreshFlow(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	refresh, err := s.IssueRefresh("555-123-4567", RoleDriver)
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	session, err := s.Refresh(refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// The renewed session token carries the original identity and role but
	// no device binding
	claims, err := s.ParseClaims(session)
	if err != nil {
		t.Fatalf("ParseClaims failed: %v", err)
	}
	if claims.Subject != "555-123-4567" || claims.Role != RoleDriver {
		t.Fatalf("unexpected claims after refresh: %+v", claims)
	}
	if claims.Device != "" {
		t.Fatalf("expected no device binding on a refreshed token")
	}

	if result := s.Validate(session, "555-123-4567", "any-device", ""); !result.Valid() {
		t.Fatalf("expected refreshed token to validate, got %v", result)
	}
}

func TestTokenService_RefreshRejectsSessionToken(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	session, err := s.Issue("555-123-4567", RoleDriver, "device-hash", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := s.Refresh(session); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestTokenService_RefreshRejectsRevokedToken(t *testing.T) {
	s := newTestTokenService(6 * time.Hour)

	refresh, err := s.IssueRefresh("555-123-4567", RoleDriver)
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	s.Blacklist(refresh)

	if _, err := s.Refresh(refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}
