package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/LutfiBK25/qulron/internal/fingerprint"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleDriver = "DRIVER"
	RoleAdmin  = "ADMIN"

	tokenTypeRefresh = "refresh"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// Claims carried by a session token. Device and Location bind the token to
// the client that logged in; LoginTime backs the staleness check.
type SessionClaims struct {
	Role      string `json:"role,omitempty"`
	Device    string `json:"device,omitempty"`
	Location  string `json:"location,omitempty"`
	LoginTime int64  `json:"loginTime,omitempty"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Outcome of validating a session token. Exactly one case applies; anything
// other than ResultValid means the token must not be honored.
type Result int

const (
	ResultValid Result = iota
	ResultRevoked
	ResultMalformed
	ResultExpired
	ResultSubjectMismatch
	ResultDeviceMismatch
	ResultStale
)

func (r Result) Valid() bool {
	return r == ResultValid
}

func (r Result) String() string {
	switch r {
	case ResultValid:
		return "valid"
	case ResultRevoked:
		return "revoked"
	case ResultMalformed:
		return "malformed"
	case ResultExpired:
		return "expired"
	case ResultSubjectMismatch:
		return "subject mismatch"
	case ResultDeviceMismatch:
		return "device mismatch"
	case ResultStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Issues and validates signed session tokens bound to a phone number, role,
// device fingerprint and location hint.
type TokenService struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	revoked    *RevocationStore

	now func() time.Time
}

func NewTokenService(secret []byte, ttl, refreshTTL time.Duration, revoked *RevocationStore) *TokenService {
	return &TokenService{
		secret:     secret,
		ttl:        ttl,
		refreshTTL: refreshTTL,
		revoked:    revoked,
		now:        time.Now,
	}
}

// Issue creates a signed session token for phone with the given role,
// bound to the device fingerprint and location hint of the login request.
func (s *TokenService) Issue(phone, role, device, location string) (string, error) {
	now := s.now()

	claims := SessionClaims{
		Role:      role,
		Device:    device,
		Location:  location,
		LoginTime: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// IssueRefresh creates the longer-lived refresh token handed out alongside
// the session token at login. It carries no device binding, only the
// identity, the role needed to mint the next session token, and its expiry.
func (s *TokenService) IssueRefresh(phone, role string) (string, error) {
	now := s.now()

	claims := SessionClaims{
		Role:      role,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, nil
}

// Refresh exchanges a valid refresh token for a fresh session token. This is
// the lighter-weight renewal path: no device or location revalidation, only
// signature, expiry and revocation. The refreshed session token carries no
// device binding.
func (s *TokenService) Refresh(refreshToken string) (string, error) {
	if s.revoked.IsBlacklisted(refreshToken) {
		return "", ErrInvalidRefreshToken
	}

	claims, err := s.ParseClaims(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	// A session token must not pass as a refresh token
	if claims.TokenType != tokenTypeRefresh {
		return "", ErrInvalidRefreshToken
	}

	return s.Issue(claims.Subject, claims.Role, "", "")
}

// ParseClaims verifies the signature and standard claims of a token and
// returns its claim set. Claims must never be read from an unverified token.
func (s *TokenService) ParseClaims(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// Subject returns the verified identity a token was issued for.
func (s *TokenService) Subject(tokenString string) (string, error) {
	claims, err := s.ParseClaims(tokenString)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

// Validate runs the full check set against a presented token. Checks run
// cheapest first: the revocation lookup is O(1) and comes before any
// cryptographic work. Every failure maps to a tagged result rather than an
// error, so no failure mode escapes the caller as a crash.
func (s *TokenService) Validate(tokenString, phone, currentDevice, currentLocation string) Result {
	if s.revoked.IsBlacklisted(tokenString) {
		return ResultRevoked
	}

	claims, err := s.ParseClaims(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ResultExpired
		}
		return ResultMalformed
	}

	if claims.Subject != phone {
		return ResultSubjectMismatch
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now()) {
		return ResultExpired
	}

	if !fingerprint.Compatible(claims.Device, currentDevice) {
		return ResultDeviceMismatch
	}

	if !locationPlausible(claims.Location, currentLocation) {
		return ResultDeviceMismatch
	}

	// A token older than one TTL is rejected off its issuance timestamp,
	// independent of what the expiry claim says
	if claims.LoginTime != 0 && s.now().UnixMilli()-claims.LoginTime > s.ttl.Milliseconds() {
		return ResultStale
	}

	return ResultValid
}

// Blacklist revokes a token immediately, independent of its expiry.
func (s *TokenService) Blacklist(token string) {
	s.revoked.Blacklist(token)
}

func (s *TokenService) IsBlacklisted(token string) bool {
	return s.revoked.IsBlacklisted(token)
}

// Deliberate no-op policy point: location changes are always accepted until
// a real geolocation policy is specified. Mobile clients move.
func locationPlausible(tokenLocation, currentLocation string) bool {
	return true
}
