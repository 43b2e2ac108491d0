package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/LutfiBK25/qulron/internal/auth"
	"github.com/LutfiBK25/qulron/internal/fingerprint"
	"github.com/LutfiBK25/qulron/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	drivers *service.DriverAuthService
	users   *service.UserService
	tokens  *auth.TokenService
}

func NewAuthHandler(drivers *service.DriverAuthService, users *service.UserService, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		drivers: drivers,
		users:   users,
		tokens:  tokens,
	}
}

type requestCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber is required"})
		return
	}

	result, err := h.drivers.RequestCode(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		log.Printf("Request code failed for %s: %v", req.PhoneNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(result.StatusCode, result)
}

type verifyCodeRequest struct {
	PhoneNumber      string `json:"phoneNumber" binding:"required"`
	VerificationCode string `json:"verificationCode" binding:"required"`
}

func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber and verificationCode are required"})
		return
	}

	device := fingerprint.Derive(c.Request.Header)
	location := fingerprint.Location(c.Request)

	result, err := h.drivers.VerifyCodeAndLogin(c.Request.Context(), req.PhoneNumber, req.VerificationCode, device, location)
	if err != nil {
		log.Printf("Login failed for %s: %v", req.PhoneNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(result.StatusCode, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	token, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header required"})
		return
	}

	h.drivers.Logout(strings.TrimPrefix(authHeader, "Bearer "))

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	device := fingerprint.Derive(c.Request.Header)
	location := fingerprint.Location(c.Request)

	token, refreshToken, err := h.users.Login(c.Request.Context(), req.Username, req.Password, device, location)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		log.Printf("Admin login failed for %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token,
		"refreshToken": refreshToken,
	})
}
