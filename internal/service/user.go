package service

import (
	"context"
	"errors"

	"github.com/LutfiBK25/qulron/internal/auth"
	"github.com/LutfiBK25/qulron/internal/models"
	"github.com/LutfiBK25/qulron/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin accounts. Admin sessions go through the same token service as driver
// sessions, so they get the same device binding and revocation handling.
type UserService struct {
	repo   *repository.UserRepository
	tokens *auth.TokenService
}

func NewUserService(repo *repository.UserRepository, tokens *auth.TokenService) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
	}
}

// Creates a new admin user
func (s *UserService) Register(ctx context.Context, username, password, name string) error {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("user with this username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         auth.RoleAdmin,
	}

	return s.repo.Create(ctx, user)
}

// Authenticates an admin and returns a session token and refresh token.
func (s *UserService) Login(ctx context.Context, username, password, device, location string) (token, refreshToken string, err error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err = s.tokens.Issue(username, user.Role, device, location)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = s.tokens.IssueRefresh(username, user.Role)
	if err != nil {
		return "", "", err
	}

	return token, refreshToken, nil
}
