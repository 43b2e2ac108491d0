package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/LutfiBK25/qulron/internal/auth"
	"github.com/LutfiBK25/qulron/internal/ratelimit"
	"github.com/LutfiBK25/qulron/internal/repository"
	"github.com/LutfiBK25/qulron/internal/storage"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)

// Outcome of a driver auth operation. StatusCode and MessageCode are part of
// the mobile client contract.
type DriverAuthResult struct {
	StatusCode   int    `json:"statusCode"`
	Message      string `json:"message"`
	MessageCode  string `json:"messageCode,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	DriverName   string `json:"driverName,omitempty"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Drives the phone-number login flow: request a verification code, verify it
// and issue a session, log out. A driver can only log in while an active
// load exists for their phone number.
type DriverAuthService struct {
	loads    *repository.LoadRepository
	redis    *storage.RedisClient
	tokens   *auth.TokenService
	attempts *ratelimit.AttemptLimiter
	sender   CodeSender
	codeTTL  time.Duration
}

func NewDriverAuthService(
	loads *repository.LoadRepository,
	redisClient *storage.RedisClient,
	tokens *auth.TokenService,
	attempts *ratelimit.AttemptLimiter,
	sender CodeSender,
	codeTTL time.Duration,
) *DriverAuthService {
	return &DriverAuthService{
		loads:    loads,
		redis:    redisClient,
		tokens:   tokens,
		attempts: attempts,
		sender:   sender,
		codeTTL:  codeTTL,
	}
}

// RequestCode generates a 6-digit verification code and sends it to the
// driver's phone. Only the bcrypt hash of the code is stored, with a short
// TTL, so a leaked redis snapshot exposes nothing usable.
func (s *DriverAuthService) RequestCode(ctx context.Context, phone string) (*DriverAuthResult, error) {
	if result := validatePhone(phone); result != nil {
		return result, nil
	}

	allowed, err := s.attempts.Allow(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("attempt limit check failed: %w", err)
	}
	if !allowed {
		log.Printf("Too many login attempts for phone: %s", phone)
		return &DriverAuthResult{
			StatusCode:  429,
			Message:     "Too many login attempts. Please try again in 15 minutes.",
			MessageCode: "Message_Code_15",
		}, nil
	}

	load, err := s.loads.FindActiveByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load lookup failed: %w", err)
	}
	if load == nil {
		log.Printf("No active order found for phone: %s", phone)
		return &DriverAuthResult{
			StatusCode:  400,
			Message:     "No active order found for this phone number. Please contact your broker or use a different phone number.",
			MessageCode: "Message_Code_16",
		}, nil
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash verification code: %w", err)
	}

	if err := s.redis.Set(ctx, codeKey(phone), string(hash), s.codeTTL); err != nil {
		return nil, fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.sender.Send(ctx, phone, code); err != nil {
		return nil, fmt.Errorf("failed to send verification code: %w", err)
	}

	log.Printf("Verification code sent successfully to: %s", phone)

	return &DriverAuthResult{
		StatusCode:  200,
		Message:     "Verification code sent to your phone number",
		MessageCode: "Message_Code_17",
		PhoneNumber: phone,
	}, nil
}

// VerifyCodeAndLogin checks the submitted code and, on success, issues a
// session token bound to the request's device fingerprint and location,
// plus a refresh token.
func (s *DriverAuthService) VerifyCodeAndLogin(ctx context.Context, phone, code, device, location string) (*DriverAuthResult, error) {
	if result := validatePhone(phone); result != nil {
		return result, nil
	}

	if strings.TrimSpace(code) == "" {
		return &DriverAuthResult{
			StatusCode:  400,
			Message:     "Verification code is required",
			MessageCode: "Message_Code_18",
		}, nil
	}

	allowed, err := s.attempts.Allow(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("attempt limit check failed: %w", err)
	}
	if !allowed {
		return &DriverAuthResult{
			StatusCode:  429,
			Message:     "Too many login attempts. Please try again in 15 minutes.",
			MessageCode: "Message_Code_15",
		}, nil
	}

	storedHash, err := s.redis.Get(ctx, codeKey(phone))
	if err == redis.Nil {
		storedHash = ""
	} else if err != nil {
		return nil, fmt.Errorf("failed to read verification code: %w", err)
	}

	if storedHash == "" || bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(code)) != nil {
		log.Printf("Invalid verification code for phone: %s", phone)
		return &DriverAuthResult{
			StatusCode:  401,
			Message:     "Invalid verification code. Please check the code and try again.",
			MessageCode: "Message_Code_19",
		}, nil
	}

	load, err := s.loads.FindActiveByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load lookup failed: %w", err)
	}
	if load == nil {
		return &DriverAuthResult{
			StatusCode:  404,
			Message:     "No active order found for this phone number.",
			MessageCode: "Message_Code_16",
		}, nil
	}

	// Single use: the code and the attempt counter are cleared on success
	if err := s.redis.Del(ctx, codeKey(phone)); err != nil {
		log.Printf("Failed to clear verification code for %s: %v", phone, err)
	}
	if err := s.attempts.Reset(ctx, phone); err != nil {
		log.Printf("Failed to reset login attempts for %s: %v", phone, err)
	}

	token, err := s.tokens.Issue(phone, auth.RoleDriver, device, location)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.IssueRefresh(phone, auth.RoleDriver)
	if err != nil {
		return nil, err
	}

	log.Printf("Successful login for phone: %s from device: %s", phone, device)

	return &DriverAuthResult{
		StatusCode:   200,
		Message:      "Login successful",
		DriverName:   load.DriverName,
		Token:        token,
		RefreshToken: refreshToken,
	}, nil
}

// Logout blacklists the presented token so it is refused for the remainder
// of its lifetime.
func (s *DriverAuthService) Logout(token string) {
	s.tokens.Blacklist(token)
}

func validatePhone(phone string) *DriverAuthResult {
	if strings.TrimSpace(phone) == "" {
		return &DriverAuthResult{
			StatusCode:  400,
			Message:     "Phone number is required",
			MessageCode: "Message_Code_13",
		}
	}

	if !phonePattern.MatchString(phone) {
		return &DriverAuthResult{
			StatusCode:  400,
			Message:     "Phone number must be in format: XXX-XXX-XXXX (e.g., 201-341-2426)",
			MessageCode: "Message_Code_14",
		}
	}

	return nil
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

func codeKey(phone string) string {
	return fmt.Sprintf("auth:code:%s", phone)
}
